package main

import (
	"fmt"
	"log"
	"time"

	"github.com/robfig/cron/v3"
)

// StatusThresholds configures the idle-time escalation points. The clock
// only runs while it is the agent's turn: the tracker measures agent
// responsiveness, not the simulated customer's.
type StatusThresholds struct {
	Expired time.Duration
	Offline time.Duration
}

// RoomStore is the persistence surface the tracker needs. Implemented by
// the SQLite layer in production and by counting fakes in tests.
type RoomStore interface {
	GetRoom(id int64) (Room, error)
	ListOpenRooms() ([]Room, error)
	LastMessageRole(roomID int64) (string, error)
	SetRoomStatus(id int64, status string) error
}

var statusRank = map[string]int{
	StatusActive:  0,
	StatusExpired: 1,
	StatusOffline: 2,
}

// RecomputeStatus derives a room's turn state from a snapshot and the
// clock. Pure: persistence is the caller's job. Status moves only
// forward; a transition is considered only on the agent's turn, and not
// at all before a counterpart joins (elapsed reports 0 then).
func RecomputeStatus(room Room, lastRole string, now time.Time, th StatusThresholds) TurnState {
	if !room.HasCounterpart() {
		return TurnState{Status: room.Status}
	}

	diff := now.Sub(room.LastActivityAt)
	state := TurnState{
		Status:         room.Status,
		ElapsedSeconds: int64(diff / time.Second),
		AgentTurn:      AgentTurn(lastRole),
	}
	// The idle clock is attributed to the agent side: escalation is
	// considered only while the agent's message is the latest one. When
	// the counterpart spoke last (or nobody has yet), the clock is
	// paused and the room stays put no matter how long the silence.
	if lastRole != RoleAgent {
		return state
	}

	candidate := room.Status
	switch {
	case diff > th.Offline:
		candidate = StatusOffline
	case diff > th.Expired:
		candidate = StatusExpired
	}
	if statusRank[candidate] > statusRank[state.Status] {
		state.Status = candidate
	}
	return state
}

// PollRoomStatus recomputes one room's turn state and persists the
// status only when it changed. This backs the status poll endpoint.
func PollRoomStatus(store RoomStore, roomID int64, now time.Time, th StatusThresholds) (TurnState, error) {
	room, err := store.GetRoom(roomID)
	if err != nil {
		return TurnState{}, err
	}
	return recomputeAndPersist(store, room, now, th)
}

func recomputeAndPersist(store RoomStore, room Room, now time.Time, th StatusThresholds) (TurnState, error) {
	lastRole, err := store.LastMessageRole(room.ID)
	if err != nil {
		return TurnState{}, err
	}
	state := RecomputeStatus(room, lastRole, now, th)
	if state.Status != room.Status {
		if err := store.SetRoomStatus(room.ID, state.Status); err != nil {
			return state, err
		}
		log.Printf("room %d status %s -> %s (idle %ds)", room.ID, room.Status, state.Status, state.ElapsedSeconds)
	}
	return state, nil
}

// SweepRoomStatuses runs one pass over every open room. Errors on a
// single room are logged and do not stop the sweep.
func SweepRoomStatuses(store RoomStore, now time.Time, th StatusThresholds) {
	rooms, err := store.ListOpenRooms()
	if err != nil {
		log.Printf("status sweep: list rooms: %v", err)
		return
	}
	for _, room := range rooms {
		if _, err := recomputeAndPersist(store, room, now, th); err != nil {
			log.Printf("status sweep: room %d: %v", room.ID, err)
		}
	}
}

// StartStatusSweeper schedules the periodic sweep and returns the cron
// so the caller can stop it on shutdown.
func StartStatusSweeper(store RoomStore, th StatusThresholds, interval time.Duration) *cron.Cron {
	c := cron.New()
	_, err := c.AddFunc(fmt.Sprintf("@every %s", interval), func() {
		SweepRoomStatuses(store, time.Now(), th)
	})
	if err != nil {
		log.Fatalf("schedule status sweep: %v", err)
	}
	c.Start()
	log.Printf("Status sweeper running every %s (expired>%s, offline>%s)", interval, th.Expired, th.Offline)
	return c
}
