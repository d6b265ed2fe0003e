package protocol

import (
	"errors"
	"fmt"
	"strings"

	"github.com/wricardo/rps-arena/game/engine"
)

var ErrUnknownEvent = errors.New("unrecognized server message")

// ParseEvent decodes an outbound message back into its Event. Clients such as
// load generators use it to follow a round.
func ParseEvent(text string) (Event, error) {
	if reason, ok := strings.CutPrefix(text, "error: "); ok {
		return Error{Reason: reason}, nil
	}
	if id, ok := strings.CutPrefix(text, "you have been connected as player: "); ok && id != "" {
		return Connected{PlayerID: id}, nil
	}
	if rest, ok := strings.CutPrefix(text, "draw: both players chose "); ok {
		c, err := choiceBefore(rest, "!")
		if err != nil {
			return nil, err
		}
		return Draw{Choice: c}, nil
	}

	rest, ok := strings.CutPrefix(text, "player: ")
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownEvent, text)
	}
	if id, ok := strings.CutSuffix(rest, " has made their choice"); ok && id != "" {
		return Chosen{PlayerID: id}, nil
	}
	if id, ok := strings.CutSuffix(rest, " has left the room"); ok && id != "" {
		return Left{PlayerID: id}, nil
	}
	if i := strings.LastIndex(rest, " is the winner using "); i > 0 {
		c, err := choiceBefore(rest[i+len(" is the winner using "):], "!")
		if err != nil {
			return nil, err
		}
		return MatchResult{WinnerID: rest[:i], Choice: c}, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownEvent, text)
}

func choiceBefore(s, suffix string) (engine.Choice, error) {
	token, ok := strings.CutSuffix(s, suffix)
	if !ok {
		return engine.NoChoice, fmt.Errorf("%w: missing %q after choice", ErrUnknownEvent, suffix)
	}
	c, ok := engine.ParseChoice(token)
	if !ok {
		return engine.NoChoice, fmt.Errorf("%w: unknown choice %q", ErrUnknownEvent, token)
	}
	return c, nil
}
