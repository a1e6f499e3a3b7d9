package main

import (
	"database/sql"
	"path/filepath"
	"testing"
	"time"
)

func newTestDB(t *testing.T) *sql.DB {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "chatqa-test.db")
	db, err := InitDB(dbPath)
	if err != nil {
		t.Fatalf("InitDB failed: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestInitDBAddsLastActivityColumn(t *testing.T) {
	db := newTestDB(t)

	var count int
	if err := db.QueryRow(`SELECT COUNT(*) FROM pragma_table_info('rooms') WHERE name = 'last_activity_at'`).Scan(&count); err != nil {
		t.Fatalf("query pragma_table_info failed: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected last_activity_at column to exist, count=%d", count)
	}
}

func TestRoomLifecycle(t *testing.T) {
	db := newTestDB(t)
	base := time.Now().UTC().Truncate(time.Second)

	id, err := CreateRoom(db, "Morgan", base)
	if err != nil {
		t.Fatalf("CreateRoom failed: %v", err)
	}

	room, err := GetRoom(db, id)
	if err != nil {
		t.Fatalf("GetRoom failed: %v", err)
	}
	if room.Host != "Morgan" {
		t.Fatalf("unexpected host: %q", room.Host)
	}
	if room.Counterpart != WaitingCounterpart || room.HasCounterpart() {
		t.Fatalf("fresh room should be waiting, got %q", room.Counterpart)
	}
	if room.Status != StatusActive {
		t.Fatalf("fresh room should be Active, got %q", room.Status)
	}
	if !room.LastActivityAt.Equal(base) {
		t.Fatalf("unexpected last activity: %v", room.LastActivityAt)
	}

	if err := JoinRoom(db, id, "Alex"); err != nil {
		t.Fatalf("JoinRoom failed: %v", err)
	}
	room, err = GetRoom(db, id)
	if err != nil {
		t.Fatalf("GetRoom after join failed: %v", err)
	}
	if room.Counterpart != "Alex" || !room.HasCounterpart() {
		t.Fatalf("expected counterpart Alex, got %q", room.Counterpart)
	}

	if _, err := CreateRoom(db, "Jamie", base.Add(time.Minute)); err != nil {
		t.Fatalf("second CreateRoom failed: %v", err)
	}
	rooms, err := ListRooms(db)
	if err != nil {
		t.Fatalf("ListRooms failed: %v", err)
	}
	if len(rooms) != 2 {
		t.Fatalf("expected 2 rooms, got %d", len(rooms))
	}
	if rooms[0].Host != "Jamie" {
		t.Fatalf("expected newest room first, got %q", rooms[0].Host)
	}

	if err := SetRoomStatus(db, id, StatusExpired); err != nil {
		t.Fatalf("SetRoomStatus failed: %v", err)
	}
	room, _ = GetRoom(db, id)
	if room.Status != StatusExpired {
		t.Fatalf("expected Expired, got %q", room.Status)
	}

	open, err := ListOpenRooms(db)
	if err != nil {
		t.Fatalf("ListOpenRooms failed: %v", err)
	}
	if len(open) != 2 {
		t.Fatalf("Expired rooms are still open, expected 2, got %d", len(open))
	}
	if err := SetRoomStatus(db, id, StatusOffline); err != nil {
		t.Fatalf("SetRoomStatus offline failed: %v", err)
	}
	open, err = ListOpenRooms(db)
	if err != nil {
		t.Fatalf("ListOpenRooms after offline failed: %v", err)
	}
	if len(open) != 1 {
		t.Fatalf("Offline rooms are closed, expected 1, got %d", len(open))
	}

	touch := base.Add(10 * time.Minute)
	if err := TouchRoomActivity(db, id, touch); err != nil {
		t.Fatalf("TouchRoomActivity failed: %v", err)
	}
	room, _ = GetRoom(db, id)
	if !room.LastActivityAt.Equal(touch) {
		t.Fatalf("expected touched activity %v, got %v", touch, room.LastActivityAt)
	}

	if _, err := GetRoom(db, 9999); err != sql.ErrNoRows {
		t.Fatalf("expected ErrNoRows for missing room, got %v", err)
	}
}

func TestMessagesOrderingAndCursor(t *testing.T) {
	db := newTestDB(t)
	base := time.Now().UTC().Truncate(time.Second)

	roomID, err := CreateRoom(db, "Morgan", base)
	if err != nil {
		t.Fatalf("CreateRoom failed: %v", err)
	}

	role, err := LastMessageRole(db, roomID)
	if err != nil {
		t.Fatalf("LastMessageRole on empty room failed: %v", err)
	}
	if role != "" {
		t.Fatalf("expected empty role for empty room, got %q", role)
	}

	texts := []struct {
		sender, role, text string
	}{
		{"Alex", RoleAgent, "hello, how can i help"},
		{"Morgan", RoleCounterpart, "my laptop broke"},
		{"Alex", RoleAgent, "so sorry to hear that"},
	}
	for i, m := range texts {
		if _, err := InsertMessage(db, Message{
			RoomID:    roomID,
			Sender:    m.sender,
			Role:      m.role,
			Text:      m.text,
			Timestamp: base.Add(time.Duration(i+1) * time.Minute),
		}); err != nil {
			t.Fatalf("InsertMessage #%d failed: %v", i, err)
		}
	}

	msgs, err := GetMessages(db, roomID)
	if err != nil {
		t.Fatalf("GetMessages failed: %v", err)
	}
	if len(msgs) != 3 {
		t.Fatalf("expected 3 messages, got %d", len(msgs))
	}
	for i := 1; i < len(msgs); i++ {
		if msgs[i].ID <= msgs[i-1].ID {
			t.Fatalf("messages not ascending by id: %v", msgs)
		}
	}

	// Cursor poll: only messages after the caller's last-seen id.
	tail, err := GetMessagesAfter(db, roomID, msgs[0].ID, 100)
	if err != nil {
		t.Fatalf("GetMessagesAfter failed: %v", err)
	}
	if len(tail) != 2 {
		t.Fatalf("expected 2 messages after cursor, got %d", len(tail))
	}
	if tail[0].Text != "my laptop broke" {
		t.Fatalf("unexpected first message after cursor: %q", tail[0].Text)
	}

	limited, err := GetMessagesAfter(db, roomID, 0, 1)
	if err != nil {
		t.Fatalf("GetMessagesAfter with limit failed: %v", err)
	}
	if len(limited) != 1 || limited[0].Text != "hello, how can i help" {
		t.Fatalf("unexpected limited page: %v", limited)
	}

	// Message insert bumps the room activity stamp atomically.
	room, err := GetRoom(db, roomID)
	if err != nil {
		t.Fatalf("GetRoom failed: %v", err)
	}
	if !room.LastActivityAt.Equal(base.Add(3 * time.Minute)) {
		t.Fatalf("expected activity bumped to last message time, got %v", room.LastActivityAt)
	}

	role, err = LastMessageRole(db, roomID)
	if err != nil {
		t.Fatalf("LastMessageRole failed: %v", err)
	}
	if role != RoleAgent {
		t.Fatalf("expected Agent, got %q", role)
	}
}

func TestConfigKeyValue(t *testing.T) {
	db := newTestDB(t)

	if _, err := GetConfigValue(db, "missing"); err != sql.ErrNoRows {
		t.Fatalf("expected ErrNoRows, got %v", err)
	}

	if err := SetConfigValue(db, "k", "v1"); err != nil {
		t.Fatalf("SetConfigValue failed: %v", err)
	}
	if err := SetConfigValue(db, "k", "v2"); err != nil {
		t.Fatalf("SetConfigValue replace failed: %v", err)
	}
	val, err := GetConfigValue(db, "k")
	if err != nil {
		t.Fatalf("GetConfigValue failed: %v", err)
	}
	if val != "v2" {
		t.Fatalf("expected v2, got %q", val)
	}
}

func TestSQLRoomStoreImplementsTracker(t *testing.T) {
	db := newTestDB(t)
	base := time.Now().UTC().Add(-400 * time.Second).Truncate(time.Second)

	roomID, err := CreateRoom(db, "Morgan", base)
	if err != nil {
		t.Fatalf("CreateRoom failed: %v", err)
	}
	if err := JoinRoom(db, roomID, "Alex"); err != nil {
		t.Fatalf("JoinRoom failed: %v", err)
	}
	if _, err := InsertMessage(db, Message{
		RoomID: roomID, Sender: "Alex", Role: RoleAgent, Text: "hello", Timestamp: base,
	}); err != nil {
		t.Fatalf("InsertMessage failed: %v", err)
	}

	store := SQLRoomStore{DB: db}
	state, err := PollRoomStatus(store, roomID, time.Now().UTC(), testThresholds)
	if err != nil {
		t.Fatalf("PollRoomStatus failed: %v", err)
	}
	if state.Status != StatusExpired {
		t.Fatalf("expected Expired after 400s agent idle, got %s", state.Status)
	}

	room, err := GetRoom(db, roomID)
	if err != nil {
		t.Fatalf("GetRoom failed: %v", err)
	}
	if room.Status != StatusExpired {
		t.Fatalf("expected persisted Expired status, got %s", room.Status)
	}
}
