package service

import (
	"context"
	"time"

	"github.com/wricardo/rps-arena/game/room"
)

// LobbyService defines the read-only lobby operations exposed to operators.
type LobbyService interface {
	ListRooms(ctx context.Context, filter RoomFilter) ([]*RoomInfo, error)
	GetRoom(ctx context.Context, roomID string) (*RoomInfo, error)
	Stats(ctx context.Context) (*Stats, error)
}

// Rooms is the registry view the lobby reads from.
type Rooms interface {
	List() []room.Snapshot
	Get(id string) (*room.Room, error)
}

// SessionCounter reports live connections, including ones still waiting for
// a match request.
type SessionCounter interface {
	Count() int
}

type lobbyService struct {
	rooms     Rooms
	sessions  SessionCounter
	startedAt time.Time
}

// NewLobbyService creates a lobby over rooms. sessions may be nil when no
// transport is attached.
func NewLobbyService(rooms Rooms, sessions SessionCounter) LobbyService {
	return &lobbyService{
		rooms:     rooms,
		sessions:  sessions,
		startedAt: time.Now(),
	}
}

func (s *lobbyService) ListRooms(ctx context.Context, filter RoomFilter) ([]*RoomInfo, error) {
	if err := filter.validate(); err != nil {
		return nil, err
	}

	snaps := s.rooms.List()
	out := make([]*RoomInfo, 0, len(snaps))
	for _, snap := range snaps {
		if !filter.matches(snap) {
			continue
		}
		out = append(out, newRoomInfo(snap))
	}
	return out, nil
}

func (s *lobbyService) GetRoom(ctx context.Context, roomID string) (*RoomInfo, error) {
	r, err := s.rooms.Get(roomID)
	if err != nil {
		return nil, err
	}
	return newRoomInfo(r.Snapshot()), nil
}

func (s *lobbyService) Stats(ctx context.Context) (*Stats, error) {
	stats := &Stats{
		RoomsByState: make(map[string]int),
		StartedAt:    s.startedAt,
		Uptime:       time.Since(s.startedAt).Round(time.Second).String(),
	}
	for _, snap := range s.rooms.List() {
		stats.Rooms++
		stats.Players += len(snap.Players)
		stats.RoomsByState[snap.State.String()]++
		if snap.Outcome != nil && snap.Outcome.Draw() {
			stats.Draws++
		}
	}
	if s.sessions != nil {
		stats.Sessions = s.sessions.Count()
		stats.Waiting = stats.Sessions - stats.Players
		if stats.Waiting < 0 {
			stats.Waiting = 0
		}
	}
	return stats, nil
}
