// Package websocket provides the websocket transport for the arena.
//
// The websocket package implements:
//   - Hub: upgrades connections and tracks live sessions for shutdown
//   - Session: the per-connection coordinator between a client and its room
//
// Connection Lifecycle:
//
//  1. Client connects to /websocket
//  2. Client sends "quick"; anything else is answered with an error event
//  3. Session matches the player into a room and subscribes to its broadcast
//  4. Client receives "you have been connected as player: <id>"
//  5. Client sends "rock", "paper" or "scissors"; the room broadcasts progress
//     notices and the result
//  6. The session ends when the client leaves, the room closes or the server shuts down
//
// Concurrency:
//
// After matchmaking a session runs three relays in an errgroup: readPump
// (client frames into the registry), relayPump (room broadcast into the
// bounded outbound queue) and writePump (outbound queue to the client, plus
// keepalive pings). The first relay to finish cancels the others; writePump
// then flushes the queue, sends a close frame and closes the connection,
// which unblocks readPump.
//
// Message Protocol:
//
// Frames are plain text. Binary frames are rejected with an error event and
// the session continues. See package protocol for the event set.
package websocket
