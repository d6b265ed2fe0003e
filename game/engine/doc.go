// Package engine provides the rules of a rock-paper-scissors round.
//
// The engine package implements:
//   - The Choice enum and its exact lowercase wire tokens
//   - The Player value (identity by ID, at most one choice per round)
//   - Resolve, a pure and symmetric comparison of two submitted choices
//
// Usage:
//
//	a := engine.Player{ID: "a", Choice: engine.Rock}
//	b := engine.Player{ID: "b", Choice: engine.Scissors}
//
//	outcome, err := engine.Resolve(a, b)
//	if err != nil {
//		log.Fatal(err)
//	}
//	if outcome.Draw() {
//		fmt.Println("draw")
//	} else {
//		fmt.Println(outcome.Winner.ID, "wins with", outcome.Choice)
//	}
//
// Game Rules:
//
// Rock beats scissors, scissors beats paper and paper beats rock. Equal choices
// are a draw. Resolving a player without a choice is a caller error and is
// reported as ErrNoChoice rather than a draw.
package engine
