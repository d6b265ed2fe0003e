package websocket

import (
	"context"
	"log/slog"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/wricardo/rps-arena/game/config"
	"github.com/wricardo/rps-arena/game/ids"
	"github.com/wricardo/rps-arena/game/room"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// The landing page may be served from any host, including tunnels.
		return true
	},
}

// Hub accepts websocket connections, runs a Session for each, and tracks the
// live ones so they can be shut down together.
type Hub struct {
	registry *room.Registry
	ids      ids.Source
	cfg      *config.Config

	mu       sync.Mutex
	sessions map[*Session]context.CancelFunc
	closed   bool
}

// NewHub creates a hub that matches players through registry.
func NewHub(registry *room.Registry, src ids.Source, cfg *config.Config) *Hub {
	return &Hub{
		registry: registry,
		ids:      src,
		cfg:      cfg,
		sessions: make(map[*Session]context.CancelFunc),
	}
}

// ServeWS upgrades the request and runs the session until it ends.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.WarnContext(r.Context(), "websocket upgrade failed", "remote", r.RemoteAddr, "err", err)
		return
	}

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	session := NewSession(conn, h.registry, h.ids, h.cfg)
	if !h.registerSession(session, cancel) {
		session.closeWith(websocket.CloseGoingAway, "server shutting down")
		return
	}
	defer h.unregisterSession(session)

	if err := session.Run(ctx); err != nil {
		slog.WarnContext(ctx, "session failed", "remote", r.RemoteAddr, "player", session.PlayerID(), "err", err)
	}
}

// ServeHTTP lets the hub be mounted directly on a router.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.ServeWS(w, r)
}

// Count returns the number of live sessions.
func (h *Hub) Count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.sessions)
}

// Shutdown cancels every live session; each sends a going-away close frame.
// New connections are refused afterwards.
func (h *Hub) Shutdown() {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.closed = true
	for _, cancel := range h.sessions {
		cancel()
	}
	slog.Info("websocket hub shut down", "sessions", len(h.sessions))
}

func (h *Hub) registerSession(s *Session, cancel context.CancelFunc) bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return false
	}
	h.sessions[s] = cancel
	slog.Debug("session registered", "total", len(h.sessions))
	return true
}

func (h *Hub) unregisterSession(s *Session) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.sessions[s]; ok {
		delete(h.sessions, s)
		slog.Debug("session unregistered", "remaining", len(h.sessions))
	}
}
