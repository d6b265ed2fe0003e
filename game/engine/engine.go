package engine

import "fmt"

// Resolve compares the choices of two players. Rock beats scissors, scissors
// beats paper and paper beats rock; equal choices are a draw.
//
// Resolve is symmetric: Resolve(a, b) and Resolve(b, a) name the same winner.
// It returns ErrNoChoice if either player has not chosen.
func Resolve(a, b Player) (Outcome, error) {
	if !a.HasChosen() {
		return Outcome{}, fmt.Errorf("resolve player %s: %w", a.ID, ErrNoChoice)
	}
	if !b.HasChosen() {
		return Outcome{}, fmt.Errorf("resolve player %s: %w", b.ID, ErrNoChoice)
	}

	switch {
	case a.Choice == b.Choice:
		return Outcome{Choice: a.Choice}, nil
	case a.Choice.Beats(b.Choice):
		winner := a
		return Outcome{Winner: &winner, Choice: a.Choice}, nil
	default:
		winner := b
		return Outcome{Winner: &winner, Choice: b.Choice}, nil
	}
}
