package service

import (
	"errors"
	"fmt"
	"time"

	"github.com/wricardo/rps-arena/game/room"
)

var ErrInvalidFilter = errors.New("invalid room filter")

// RoomInfo is the operator view of a room. Choices are only present once the
// room is resolved.
type RoomInfo struct {
	ID          string            `json:"id"`
	Kind        string            `json:"kind"`
	State       string            `json:"state"`
	Players     []room.PlayerInfo `json:"players"`
	Winner      string            `json:"winner,omitempty"`
	Draw        bool              `json:"draw,omitempty"`
	Choice      string            `json:"choice,omitempty"`
	Subscribers int               `json:"subscribers"`
	CreatedAt   time.Time         `json:"created_at"`
}

func newRoomInfo(snap room.Snapshot) *RoomInfo {
	info := &RoomInfo{
		ID:          snap.ID,
		Kind:        snap.Kind.String(),
		State:       snap.State.String(),
		Players:     snap.Players,
		Subscribers: snap.Subscribers,
		CreatedAt:   snap.CreatedAt,
	}
	if info.Players == nil {
		info.Players = []room.PlayerInfo{}
	}
	if o := snap.Outcome; o != nil {
		info.Choice = o.Choice.String()
		if o.Draw() {
			info.Draw = true
		} else {
			info.Winner = o.Winner.ID
		}
	}
	return info
}

// RoomFilter narrows ListRooms. The zero value matches every room.
type RoomFilter struct {
	State string `json:"state,omitempty"` // "open", "full", "resolved" or "closed"
}

func (f RoomFilter) validate() error {
	switch f.State {
	case "", room.Open.String(), room.Full.String(), room.Resolved.String(), room.Closed.String():
		return nil
	}
	return fmt.Errorf("%w: unknown state %q", ErrInvalidFilter, f.State)
}

func (f RoomFilter) matches(snap room.Snapshot) bool {
	return f.State == "" || snap.State.String() == f.State
}

// Stats summarises the lobby.
type Stats struct {
	Rooms        int            `json:"rooms"`
	RoomsByState map[string]int `json:"rooms_by_state"`
	Players      int            `json:"players"`
	Sessions     int            `json:"sessions"`
	Waiting      int            `json:"waiting"` // connected but not yet in a room
	Draws        int            `json:"draws"`
	StartedAt    time.Time      `json:"started_at"`
	Uptime       string         `json:"uptime"`
}
