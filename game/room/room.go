package room

import (
	"fmt"
	"sync"
	"time"

	"github.com/wricardo/rps-arena/game/engine"
	"github.com/wricardo/rps-arena/game/protocol"
)

// Room pairs at most two players for one round and owns their broadcast.
// All fields behind mu change only through Registry operations.
type Room struct {
	ID        string
	Kind      Kind
	CreatedAt time.Time

	mu        sync.Mutex
	state     State
	players   []engine.Player
	outcome   *engine.Outcome
	broadcast *Broadcast
}

func newRoom(id string, kind Kind, buffer int) *Room {
	return &Room{
		ID:        id,
		Kind:      kind,
		CreatedAt: time.Now(),
		state:     Open,
		players:   make([]engine.Player, 0, MaxPlayers),
		broadcast: NewBroadcast(buffer),
	}
}

// State returns the room's current lifecycle state.
func (r *Room) State() State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

// Len returns the number of players in the room.
func (r *Room) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.players)
}

// Snapshot copies the room's state. Choices stay hidden until resolution.
func (r *Room) Snapshot() Snapshot {
	r.mu.Lock()
	defer r.mu.Unlock()

	snap := Snapshot{
		ID:          r.ID,
		Kind:        r.Kind,
		State:       r.state,
		Players:     make([]PlayerInfo, 0, len(r.players)),
		Subscribers: r.broadcast.Subscribers(),
		CreatedAt:   r.CreatedAt,
	}
	for _, p := range r.players {
		info := PlayerInfo{ID: p.ID, HasChosen: p.HasChosen()}
		if r.state == Resolved {
			info.Choice = p.Choice
		}
		snap.Players = append(snap.Players, info)
	}
	if r.outcome != nil {
		o := *r.outcome
		snap.Outcome = &o
	}
	return snap
}

// The methods below require r.mu to be held.

func (r *Room) openLocked() bool {
	return r.state == Open && len(r.players) < MaxPlayers
}

func (r *Room) indexLocked(playerID string) int {
	for i, p := range r.players {
		if p.ID == playerID {
			return i
		}
	}
	return -1
}

func (r *Room) joinLocked(p engine.Player) error {
	switch r.state {
	case Closed:
		return ErrRoomClosed
	case Resolved:
		return ErrRoomResolved
	}
	if len(r.players) >= MaxPlayers {
		return ErrRoomFull
	}
	if r.indexLocked(p.ID) >= 0 {
		return ErrPlayerExists
	}
	r.players = append(r.players, p)
	if len(r.players) == MaxPlayers {
		r.state = Full
	}
	return nil
}

func (r *Room) setChoiceLocked(playerID string, c engine.Choice) error {
	if !c.Valid() {
		return engine.ErrNoChoice
	}
	i := r.indexLocked(playerID)
	if i < 0 {
		return ErrPlayerNotFound
	}
	switch r.state {
	case Closed:
		return ErrRoomClosed
	case Resolved:
		return ErrRoomResolved
	}
	if r.players[i].HasChosen() {
		return ErrAlreadyChosen
	}
	r.players[i].Choice = c
	return nil
}

func (r *Room) allChosenLocked() bool {
	if len(r.players) != MaxPlayers {
		return false
	}
	for _, p := range r.players {
		if !p.HasChosen() {
			return false
		}
	}
	return true
}

// resolveLocked computes the outcome once and caches it. resolved reports
// whether this call made the transition.
func (r *Room) resolveLocked() (outcome engine.Outcome, resolved bool, err error) {
	if r.outcome != nil {
		return *r.outcome, false, nil
	}
	if !r.allChosenLocked() {
		return engine.Outcome{}, false, ErrIncomplete
	}
	o, err := engine.Resolve(r.players[0], r.players[1])
	if err != nil {
		return engine.Outcome{}, false, fmt.Errorf("resolve room %s: %w", r.ID, err)
	}
	r.outcome = &o
	r.state = Resolved
	return o, true, nil
}

func (r *Room) publishLocked(ev protocol.Event) {
	r.broadcast.Publish(ev.Text())
}

// removeLocked drops the player and moves the room along its lifecycle. It
// reports whether the room is now empty.
func (r *Room) removeLocked(playerID string) (empty bool, err error) {
	i := r.indexLocked(playerID)
	if i < 0 {
		return len(r.players) == 0, ErrPlayerNotFound
	}
	r.players = append(r.players[:i], r.players[i+1:]...)

	switch r.state {
	case Full:
		// The round can no longer complete.
		r.publishLocked(protocol.Left{PlayerID: playerID})
		r.state = Closed
		r.broadcast.Close()
	case Resolved:
		r.publishLocked(protocol.Left{PlayerID: playerID})
	}

	if len(r.players) == 0 {
		r.state = Closed
		r.broadcast.Close()
		return true, nil
	}
	return false, nil
}
