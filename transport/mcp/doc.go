// Package mcp provides a Model Context Protocol server for the rps-arena lobby.
//
// The server is a thin proxy over the REST API and exposes read-only tools:
//   - list_rooms: List rooms, optionally filtered by state
//   - get_room: Get a single room
//   - lobby_stats: Lobby-wide counters
//   - game_rules: The rules and websocket message protocol
//
// Transport Modes:
//   - Stdio: server.ServeStdio(client.GetMCPServer())
//   - HTTP: mount the Client itself, one JSON-RPC message per POST
//
// Usage:
//
//	client := mcp.NewClient("http://localhost:3000")
//	http.Handle("/mcp", client)
package mcp
