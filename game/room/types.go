package room

import (
	"errors"
	"time"

	"github.com/wricardo/rps-arena/game/engine"
)

// MaxPlayers is the capacity of every room.
const MaxPlayers = 2

var (
	ErrRoomNotFound   = errors.New("room not found")
	ErrPlayerNotFound = errors.New("player not found in room")
	ErrPlayerExists   = errors.New("player already in room")
	ErrRoomFull       = errors.New("room is full")
	ErrRoomClosed     = errors.New("room is closed")
	ErrRoomResolved   = errors.New("room is already resolved")
	ErrAlreadyChosen  = errors.New("player has already chosen")
	ErrIncomplete     = errors.New("room does not have two choices yet")
)

// Kind distinguishes rooms open to quick matchmaking from private ones.
type Kind uint8

const (
	Public Kind = iota
	Private
)

func (k Kind) String() string {
	if k == Private {
		return "private"
	}
	return "public"
}

func (k Kind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// State is the lifecycle stage of a room.
type State uint8

const (
	// Open rooms have fewer than MaxPlayers players.
	Open State = iota
	// Full rooms have MaxPlayers players and no result yet.
	Full
	// Resolved rooms have broadcast their result.
	Resolved
	// Closed rooms lost a player before resolving and accept nothing further.
	Closed
)

func (s State) String() string {
	switch s {
	case Open:
		return "open"
	case Full:
		return "full"
	case Resolved:
		return "resolved"
	case Closed:
		return "closed"
	}
	return "unknown"
}

func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// PlayerInfo is the public view of a player. Choice is only filled in once the
// room is resolved.
type PlayerInfo struct {
	ID        string        `json:"id"`
	HasChosen bool          `json:"has_chosen"`
	Choice    engine.Choice `json:"choice,omitempty"`
}

// Snapshot is a point-in-time copy of a room's state.
type Snapshot struct {
	ID          string          `json:"id"`
	Kind        Kind            `json:"kind"`
	State       State           `json:"state"`
	Players     []PlayerInfo    `json:"players"`
	Outcome     *engine.Outcome `json:"outcome,omitempty"`
	Subscribers int             `json:"subscribers"`
	CreatedAt   time.Time       `json:"created_at"`
}

// SubmitResult reports what a submission changed.
type SubmitResult struct {
	// Resolved is true only for the submission that completed the room.
	Resolved bool
	Outcome  engine.Outcome
}
