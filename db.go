package main

import (
	"database/sql"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

func InitDB(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}

	schema := `
	CREATE TABLE IF NOT EXISTS rooms (
		id          INTEGER PRIMARY KEY AUTOINCREMENT,
		host        TEXT NOT NULL,
		counterpart TEXT NOT NULL DEFAULT 'Waiting...',
		status      TEXT NOT NULL DEFAULT 'Active',
		created_at  DATETIME NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_rooms_status ON rooms(status);

	CREATE TABLE IF NOT EXISTS messages (
		id        INTEGER PRIMARY KEY AUTOINCREMENT,
		room_id   INTEGER NOT NULL,
		sender    TEXT NOT NULL,
		role      TEXT NOT NULL,
		text      TEXT NOT NULL,
		timestamp DATETIME NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_messages_room ON messages(room_id, id);

	CREATE TABLE IF NOT EXISTS config (
		key   TEXT PRIMARY KEY,
		value TEXT NOT NULL
	);
	`
	_, err = db.Exec(schema)
	if err != nil {
		return nil, err
	}

	// Migration: add last_activity_at column if missing.
	var colCount int
	_ = db.QueryRow(`SELECT COUNT(*) FROM pragma_table_info('rooms') WHERE name = 'last_activity_at'`).Scan(&colCount)
	if colCount == 0 {
		_, _ = db.Exec(`ALTER TABLE rooms ADD COLUMN last_activity_at DATETIME`)
		_, _ = db.Exec(`UPDATE rooms SET last_activity_at = created_at WHERE last_activity_at IS NULL`)
	}

	return db, nil
}

func CreateRoom(db *sql.DB, host string, now time.Time) (int64, error) {
	res, err := db.Exec(
		`INSERT INTO rooms (host, counterpart, status, created_at, last_activity_at)
		 VALUES (?, ?, ?, ?, ?)`,
		host, WaitingCounterpart, StatusActive, now, now,
	)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

func GetRoom(db *sql.DB, id int64) (Room, error) {
	var r Room
	err := db.QueryRow(
		`SELECT id, host, counterpart, status, created_at, last_activity_at
		 FROM rooms WHERE id = ?`,
		id,
	).Scan(&r.ID, &r.Host, &r.Counterpart, &r.Status, &r.CreatedAt, &r.LastActivityAt)
	return r, err
}

func ListRooms(db *sql.DB) ([]Room, error) {
	return queryRooms(db,
		`SELECT id, host, counterpart, status, created_at, last_activity_at
		 FROM rooms ORDER BY created_at DESC, id DESC`)
}

// ListOpenRooms returns rooms the status sweep still cares about.
// Offline is terminal, so those are skipped.
func ListOpenRooms(db *sql.DB) ([]Room, error) {
	return queryRooms(db,
		`SELECT id, host, counterpart, status, created_at, last_activity_at
		 FROM rooms WHERE status <> ? ORDER BY id`,
		StatusOffline)
}

func queryRooms(db *sql.DB, query string, args ...any) ([]Room, error) {
	rows, err := db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var rooms []Room
	for rows.Next() {
		var r Room
		if err := rows.Scan(&r.ID, &r.Host, &r.Counterpart, &r.Status, &r.CreatedAt, &r.LastActivityAt); err != nil {
			return nil, err
		}
		rooms = append(rooms, r)
	}
	return rooms, rows.Err()
}

func JoinRoom(db *sql.DB, id int64, counterpart string) error {
	_, err := db.Exec(`UPDATE rooms SET counterpart = ? WHERE id = ?`, counterpart, id)
	return err
}

func SetRoomStatus(db *sql.DB, id int64, status string) error {
	_, err := db.Exec(`UPDATE rooms SET status = ? WHERE id = ?`, status, id)
	return err
}

func TouchRoomActivity(db *sql.DB, id int64, at time.Time) error {
	_, err := db.Exec(`UPDATE rooms SET last_activity_at = ? WHERE id = ?`, at, id)
	return err
}

// InsertMessage appends a message and bumps the room's activity stamp in
// one transaction. Message order is the autoincrement id.
func InsertMessage(db *sql.DB, m Message) (int64, error) {
	tx, err := db.Begin()
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	res, err := tx.Exec(
		`INSERT INTO messages (room_id, sender, role, text, timestamp)
		 VALUES (?, ?, ?, ?, ?)`,
		m.RoomID, m.Sender, m.Role, m.Text, m.Timestamp,
	)
	if err != nil {
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	if _, err := tx.Exec(`UPDATE rooms SET last_activity_at = ? WHERE id = ?`, m.Timestamp, m.RoomID); err != nil {
		return 0, err
	}
	return id, tx.Commit()
}

// GetMessages returns a room's full transcript, ascending by id.
func GetMessages(db *sql.DB, roomID int64) ([]Message, error) {
	return queryMessages(db,
		`SELECT id, room_id, sender, role, text, timestamp
		 FROM messages WHERE room_id = ? ORDER BY id`,
		roomID)
}

// GetMessagesAfter returns up to limit messages with id greater than
// afterID. The cursor is the caller's: each polling client passes its
// own last-seen id explicitly.
func GetMessagesAfter(db *sql.DB, roomID, afterID int64, limit int) ([]Message, error) {
	return queryMessages(db,
		`SELECT id, room_id, sender, role, text, timestamp
		 FROM messages WHERE room_id = ? AND id > ? ORDER BY id LIMIT ?`,
		roomID, afterID, limit)
}

func queryMessages(db *sql.DB, query string, args ...any) ([]Message, error) {
	rows, err := db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var msgs []Message
	for rows.Next() {
		var m Message
		if err := rows.Scan(&m.ID, &m.RoomID, &m.Sender, &m.Role, &m.Text, &m.Timestamp); err != nil {
			return nil, err
		}
		msgs = append(msgs, m)
	}
	return msgs, rows.Err()
}

// LastMessageRole returns the role of a room's newest message, or ""
// when the room has no messages yet.
func LastMessageRole(db *sql.DB, roomID int64) (string, error) {
	var role string
	err := db.QueryRow(
		`SELECT role FROM messages WHERE room_id = ? ORDER BY id DESC LIMIT 1`,
		roomID,
	).Scan(&role)
	if err == sql.ErrNoRows {
		return "", nil
	}
	return role, err
}

func GetConfigValue(db *sql.DB, key string) (string, error) {
	var value string
	err := db.QueryRow(`SELECT value FROM config WHERE key = ?`, key).Scan(&value)
	return value, err
}

func SetConfigValue(db *sql.DB, key, value string) error {
	_, err := db.Exec(`REPLACE INTO config (key, value) VALUES (?, ?)`, key, value)
	return err
}

// SQLRoomStore adapts the flat DB helpers to the tracker's RoomStore.
type SQLRoomStore struct {
	DB *sql.DB
}

func (s SQLRoomStore) GetRoom(id int64) (Room, error) { return GetRoom(s.DB, id) }
func (s SQLRoomStore) ListOpenRooms() ([]Room, error) { return ListOpenRooms(s.DB) }
func (s SQLRoomStore) LastMessageRole(id int64) (string, error) {
	return LastMessageRole(s.DB, id)
}
func (s SQLRoomStore) SetRoomStatus(id int64, status string) error {
	return SetRoomStatus(s.DB, id, status)
}
