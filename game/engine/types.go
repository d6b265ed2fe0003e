package engine

import (
	"errors"
	"fmt"
)

// Choice is a sealed hand a player submits for a round.
type Choice uint8

const (
	// NoChoice is the zero value of a player who has not chosen yet.
	NoChoice Choice = iota
	Rock
	Paper
	Scissors
)

var ErrNoChoice = errors.New("player has not made a valid choice")

var choiceNames = map[Choice]string{
	Rock:     "rock",
	Paper:    "paper",
	Scissors: "scissors",
}

var choiceTokens = map[string]Choice{
	"rock":     Rock,
	"paper":    Paper,
	"scissors": Scissors,
}

// ParseChoice maps a wire token to a Choice. Matching is exact and lowercase.
func ParseChoice(token string) (Choice, bool) {
	c, ok := choiceTokens[token]
	return c, ok
}

// String returns the wire token for the choice, or "" for NoChoice.
func (c Choice) String() string {
	return choiceNames[c]
}

// Valid reports whether c is one of Rock, Paper or Scissors.
func (c Choice) Valid() bool {
	_, ok := choiceNames[c]
	return ok
}

// Beats reports whether c defeats other.
func (c Choice) Beats(other Choice) bool {
	switch c {
	case Rock:
		return other == Scissors
	case Scissors:
		return other == Paper
	case Paper:
		return other == Rock
	}
	return false
}

// MarshalText encodes the choice as its wire token so JSON views read naturally.
func (c Choice) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

// UnmarshalText accepts a wire token, or "" for NoChoice.
func (c *Choice) UnmarshalText(text []byte) error {
	if len(text) == 0 {
		*c = NoChoice
		return nil
	}
	parsed, ok := ParseChoice(string(text))
	if !ok {
		return fmt.Errorf("unknown choice %q", text)
	}
	*c = parsed
	return nil
}

// Player is a participant in a room. Identity is the ID alone.
type Player struct {
	ID     string `json:"id"`
	Choice Choice `json:"choice,omitempty"`
}

// NewPlayer creates a player that has not chosen yet.
func NewPlayer(id string) Player {
	return Player{ID: id}
}

// HasChosen reports whether the player has a valid choice.
func (p Player) HasChosen() bool {
	return p.Choice.Valid()
}

// Outcome is the result of resolving a round.
type Outcome struct {
	// Winner is nil on a draw.
	Winner *Player `json:"winner,omitempty"`
	// Choice is the winning choice, or the shared choice on a draw.
	Choice Choice `json:"choice"`
}

// Draw reports whether the round ended without a winner.
func (o Outcome) Draw() bool {
	return o.Winner == nil
}
