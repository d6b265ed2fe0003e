// Package api provides the HTTP front of the rps-arena server.
//
// Endpoints:
//
// Gameplay:
//   - GET /websocket - Upgrade to the game protocol (alias: /ws)
//
// Lobby inspection (read-only):
//   - GET /api/rooms - List rooms, optionally ?state=open|full|resolved|closed
//   - GET /api/rooms/{id} - Get a single room
//   - GET /api/stats - Lobby-wide counters
//
// Other:
//   - GET /healthz - Liveness check
//   - GET / - Embedded landing page with a minimal browser client
//
// All JSON errors have the shape {"error": "..."}. Unknown rooms return 404
// and malformed filters return 400.
//
// Usage:
//
//	lobby := service.NewLobbyService(registry, hub)
//	apiServer := api.NewServer(lobby, hub)
//	http.ListenAndServe(":3000", apiServer)
package api
