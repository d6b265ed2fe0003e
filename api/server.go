package api

import (
	"embed"
	"encoding/json"
	"errors"
	"io/fs"
	"log/slog"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/wricardo/rps-arena/game/room"
	"github.com/wricardo/rps-arena/game/service"
)

//go:embed static
var staticFiles embed.FS

// Server represents the HTTP front of the arena: the websocket endpoint, the
// read-only REST API and the landing page.
type Server struct {
	service service.LobbyService
	ws      http.Handler
	router  *mux.Router
}

// NewServer creates a new API server. ws handles websocket upgrades.
func NewServer(lobby service.LobbyService, ws http.Handler) *Server {
	s := &Server{
		service: lobby,
		ws:      ws,
		router:  mux.NewRouter(),
	}

	s.setupRoutes()
	return s
}

// setupRoutes configures all routes
func (s *Server) setupRoutes() {
	api := s.router.PathPrefix("/api").Subrouter()
	api.HandleFunc("/rooms", s.handleListRooms).Methods("GET")
	api.HandleFunc("/rooms/{id}", s.handleGetRoom).Methods("GET")
	api.HandleFunc("/stats", s.handleStats).Methods("GET")

	s.router.HandleFunc("/healthz", s.handleHealth).Methods("GET")

	s.router.Handle("/websocket", s.ws)
	s.router.Handle("/ws", s.ws)

	static, err := fs.Sub(staticFiles, "static")
	if err != nil {
		panic(err)
	}
	s.router.PathPrefix("/").Handler(http.FileServer(http.FS(static)))
}

// ServeHTTP implements http.Handler
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// Response helpers
func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Warn("encode response failed", "err", err)
	}
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, room.ErrRoomNotFound):
		return http.StatusNotFound
	case errors.Is(err, service.ErrInvalidFilter):
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

func (s *Server) handleListRooms(w http.ResponseWriter, r *http.Request) {
	filter := service.RoomFilter{State: r.URL.Query().Get("state")}

	rooms, err := s.service.ListRooms(r.Context(), filter)
	if err != nil {
		respondError(w, statusFor(err), err.Error())
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"count": len(rooms),
		"rooms": rooms,
	})
}

func (s *Server) handleGetRoom(w http.ResponseWriter, r *http.Request) {
	roomID := mux.Vars(r)["id"]

	info, err := s.service.GetRoom(r.Context(), roomID)
	if err != nil {
		respondError(w, statusFor(err), err.Error())
		return
	}

	respondJSON(w, http.StatusOK, info)
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.service.Stats(r.Context())
	if err != nil {
		respondError(w, statusFor(err), err.Error())
		return
	}

	respondJSON(w, http.StatusOK, stats)
}

// Health check
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{
		"status": "healthy",
	})
}
