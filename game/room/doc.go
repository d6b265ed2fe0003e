// Package room provides rooms, their broadcast fabric, and the registry that
// matches arriving players into rooms.
//
// The room package implements:
//   - Room: at most two players, their sealed choices, and a per-room Broadcast
//   - Broadcast: ordered fan-out of text events to every subscriber
//   - Registry: the single owner of live rooms, with atomic matchmaking,
//     atomic submit-and-resolve, and a leave hook that releases empty rooms
//
// Room Lifecycle:
//
//	Open --second join--> Full --both chose--> Resolved
//	  |                     |
//	  '--last leave-->      '--a player leaves--> Closed
//	     (released)
//
// A room is released from the registry once its last player leaves.
//
// Concurrency:
//
// Matchmake holds the registry lock across find, create, join and subscribe,
// so concurrent arrivals never overfill a room and never create more rooms
// than needed. Submit holds the room lock across set-choice, the completion
// check and resolution, so each room broadcasts its result at most once.
//
// Usage:
//
//	registry := room.NewRegistry(ids.NewUUIDSource())
//
//	player := engine.NewPlayer(ids.NewUUIDSource().Next())
//	roomID, sub, err := registry.Matchmake(ctx, room.Public, player)
//	if err != nil {
//		return err
//	}
//	defer sub.Unsubscribe()
//	defer registry.Leave(ctx, roomID, player.ID)
//
//	result, err := registry.Submit(ctx, roomID, player.ID, engine.Rock)
package room
