package room

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/wricardo/rps-arena/game/engine"
	"github.com/wricardo/rps-arena/game/ids"
	"github.com/wricardo/rps-arena/game/protocol"
)

// Registry owns every live room. Structural changes go through its methods so
// that matchmaking and resolution are serialized.
//
// Lock order is Registry.mu, then Room.mu, then Broadcast.mu.
type Registry struct {
	ids    ids.Source
	buffer int

	mu    sync.RWMutex
	rooms map[string]*Room
	order []*Room // creation order, for first-fit matchmaking
}

// Option configures a Registry.
type Option func(*Registry)

// WithBroadcastBuffer sets the per-subscriber buffer of new rooms.
func WithBroadcastBuffer(n int) Option {
	return func(r *Registry) {
		if n > 0 {
			r.buffer = n
		}
	}
}

// NewRegistry creates an empty registry that names rooms with src.
func NewRegistry(src ids.Source, opts ...Option) *Registry {
	r := &Registry{
		ids:    src,
		buffer: DefaultBroadcastBuffer,
		rooms:  make(map[string]*Room),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// FindOpenRoom returns the first public room with a free slot.
func (g *Registry) FindOpenRoom() (string, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	if r := g.findOpenLocked(); r != nil {
		return r.ID, true
	}
	return "", false
}

// CreateRoom inserts a new empty room of the given kind.
func (g *Registry) CreateRoom(kind Kind) *Room {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.createLocked(kind)
}

// Join appends p to the room.
func (g *Registry) Join(roomID string, p engine.Player) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	r, ok := g.rooms[roomID]
	if !ok {
		return fmt.Errorf("join room %s: %w", roomID, ErrRoomNotFound)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.joinLocked(p); err != nil {
		return fmt.Errorf("join room %s: %w", roomID, err)
	}
	return nil
}

// Matchmake places p in a room and subscribes it to that room's broadcast in
// a single critical section. Public players take the first open public room
// or a fresh one; private players always get a fresh private room.
//
// Subscribing before the lock is released guarantees the player sees every
// event published after it joined.
func (g *Registry) Matchmake(ctx context.Context, kind Kind, p engine.Player) (string, *Subscription, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	var r *Room
	if kind == Public {
		r = g.findOpenLocked()
	}
	created := false
	if r == nil {
		r = g.createLocked(kind)
		created = true
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.joinLocked(p); err != nil {
		return "", nil, fmt.Errorf("matchmake room %s: %w", r.ID, err)
	}
	sub, err := r.broadcast.Subscribe()
	if err != nil {
		r.players = r.players[:len(r.players)-1]
		if r.state == Full {
			r.state = Open
		}
		return "", nil, fmt.Errorf("matchmake room %s: %w", r.ID, err)
	}

	slog.DebugContext(ctx, "player matched", "room", r.ID, "player", p.ID, "created", created, "players", len(r.players))
	return r.ID, sub, nil
}

// Get returns the room with the given id.
func (g *Registry) Get(roomID string) (*Room, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	r, ok := g.rooms[roomID]
	if !ok {
		return nil, ErrRoomNotFound
	}
	return r, nil
}

// GetBroadcast returns the broadcast of a room.
func (g *Registry) GetBroadcast(roomID string) (*Broadcast, error) {
	r, err := g.Get(roomID)
	if err != nil {
		return nil, err
	}
	return r.broadcast, nil
}

// SetChoice records the player's choice. A player who already chose keeps the
// first choice and gets ErrAlreadyChosen.
func (g *Registry) SetChoice(roomID, playerID string, c engine.Choice) error {
	r, err := g.Get(roomID)
	if err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.setChoiceLocked(playerID, c)
}

// HasChosen reports whether the player has a choice this round.
func (g *Registry) HasChosen(roomID, playerID string) (bool, error) {
	r, err := g.Get(roomID)
	if err != nil {
		return false, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	i := r.indexLocked(playerID)
	if i < 0 {
		return false, ErrPlayerNotFound
	}
	return r.players[i].HasChosen(), nil
}

// AllChosen reports whether the room has two players who both chose.
func (g *Registry) AllChosen(roomID string) (bool, error) {
	r, err := g.Get(roomID)
	if err != nil {
		return false, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.allChosenLocked(), nil
}

// ResolveRoom returns the cached outcome of a resolved room, or computes one
// from the current choices without changing the room. Submit is the only path
// that resolves and broadcasts.
func (g *Registry) ResolveRoom(roomID string) (engine.Outcome, error) {
	r, err := g.Get(roomID)
	if err != nil {
		return engine.Outcome{}, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.outcome != nil {
		return *r.outcome, nil
	}
	if !r.allChosenLocked() {
		return engine.Outcome{}, ErrIncomplete
	}
	return engine.Resolve(r.players[0], r.players[1])
}

// Submit records a choice, announces it, and if the room is now complete
// resolves it and broadcasts the outcome. The whole sequence holds the room
// lock, so the outcome is broadcast at most once per room.
func (g *Registry) Submit(ctx context.Context, roomID, playerID string, c engine.Choice) (SubmitResult, error) {
	r, err := g.Get(roomID)
	if err != nil {
		return SubmitResult{}, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.setChoiceLocked(playerID, c); err != nil {
		return SubmitResult{}, err
	}
	r.publishLocked(protocol.Chosen{PlayerID: playerID})

	if !r.allChosenLocked() {
		return SubmitResult{}, nil
	}
	outcome, resolved, err := r.resolveLocked()
	if err != nil {
		return SubmitResult{}, err
	}
	if resolved {
		r.publishLocked(protocol.OutcomeEvent(outcome))
		slog.InfoContext(ctx, "room resolved", "room", r.ID, "draw", outcome.Draw(), "choice", outcome.Choice.String())
	}
	return SubmitResult{Resolved: resolved, Outcome: outcome}, nil
}

// Leave removes the player from the room. An unresolved full room is closed
// and its broadcast shut; an empty room is released from the registry.
func (g *Registry) Leave(ctx context.Context, roomID, playerID string) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	r, ok := g.rooms[roomID]
	if !ok {
		return fmt.Errorf("leave room %s: %w", roomID, ErrRoomNotFound)
	}
	r.mu.Lock()
	empty, err := r.removeLocked(playerID)
	state := r.state
	r.mu.Unlock()
	if err != nil {
		return fmt.Errorf("leave room %s: %w", roomID, err)
	}

	if empty {
		g.deleteLocked(roomID)
		slog.DebugContext(ctx, "room released", "room", roomID)
		return nil
	}
	slog.DebugContext(ctx, "player left room", "room", roomID, "player", playerID, "state", state.String())
	return nil
}

// List returns snapshots of every live room in creation order.
func (g *Registry) List() []Snapshot {
	g.mu.RLock()
	rooms := make([]*Room, len(g.order))
	copy(rooms, g.order)
	g.mu.RUnlock()

	result := make([]Snapshot, 0, len(rooms))
	for _, r := range rooms {
		result = append(result, r.Snapshot())
	}
	return result
}

// Count returns the number of live rooms.
func (g *Registry) Count() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.rooms)
}

// Close shuts every room's broadcast. Subscribed sessions observe their
// channels closing and terminate.
func (g *Registry) Close() {
	g.mu.RLock()
	defer g.mu.RUnlock()
	for _, r := range g.order {
		r.broadcast.Close()
	}
}

func (g *Registry) findOpenLocked() *Room {
	for _, r := range g.order {
		if r.Kind != Public {
			continue
		}
		r.mu.Lock()
		open := r.openLocked()
		r.mu.Unlock()
		if open {
			return r
		}
	}
	return nil
}

func (g *Registry) createLocked(kind Kind) *Room {
	r := newRoom(g.ids.Next(), kind, g.buffer)
	g.rooms[r.ID] = r
	g.order = append(g.order, r)
	return r
}

func (g *Registry) deleteLocked(roomID string) {
	delete(g.rooms, roomID)
	for i, r := range g.order {
		if r.ID == roomID {
			g.order = append(g.order[:i], g.order[i+1:]...)
			return
		}
	}
}
