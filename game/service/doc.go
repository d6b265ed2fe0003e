// Package service provides the read-only lobby layer for the rps-arena server.
//
// LobbyService turns registry snapshots into operator-facing views: the room
// list (optionally filtered by state), a single room, and lobby-wide stats.
// It never mutates rooms; all gameplay goes through the websocket transport.
//
// Usage:
//
//	registry := room.NewRegistry(ids.NewUUIDSource())
//	hub := websocket.NewHub(registry, ids.NewUUIDSource(), cfg)
//	lobby := service.NewLobbyService(registry, hub)
//
//	rooms, err := lobby.ListRooms(ctx, service.RoomFilter{State: "open"})
package service
