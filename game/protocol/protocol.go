// Package protocol defines the typed events exchanged with clients and their
// plain-text wire encoding.
//
// Clients send one match request ("quick" or "private") followed by choice
// tokens ("rock", "paper", "scissors"). Tokens are matched exactly. Parse turns
// every inbound frame into a Request so nothing past the dispatch step sees raw
// text.
package protocol

import (
	"fmt"

	"github.com/wricardo/rps-arena/game/engine"
)

// MatchKind is the kind of match a client asks for.
type MatchKind uint8

const (
	MatchQuick MatchKind = iota + 1
	MatchPrivate
)

func (k MatchKind) String() string {
	switch k {
	case MatchQuick:
		return "quick"
	case MatchPrivate:
		return "private"
	}
	return "unknown"
}

// RequestKind classifies an inbound message.
type RequestKind uint8

const (
	RequestInvalid RequestKind = iota
	RequestMatch
	RequestChoice
)

// Request is a parsed inbound client message.
type Request struct {
	Kind   RequestKind
	Match  MatchKind
	Choice engine.Choice
	Raw    string
}

// Parse classifies an inbound text frame.
func Parse(text string) Request {
	switch text {
	case "quick":
		return Request{Kind: RequestMatch, Match: MatchQuick, Raw: text}
	case "private":
		return Request{Kind: RequestMatch, Match: MatchPrivate, Raw: text}
	}
	if c, ok := engine.ParseChoice(text); ok {
		return Request{Kind: RequestChoice, Choice: c, Raw: text}
	}
	return Request{Kind: RequestInvalid, Raw: text}
}

// Event is an outbound message. Text returns its wire encoding.
type Event interface {
	Text() string
}

// Connected acknowledges a join and tells the client its player id.
type Connected struct {
	PlayerID string
}

func (e Connected) Text() string {
	return fmt.Sprintf("you have been connected as player: %s", e.PlayerID)
}

// Chosen announces that a player has locked in a choice without revealing it.
type Chosen struct {
	PlayerID string
}

func (e Chosen) Text() string {
	return fmt.Sprintf("player: %s has made their choice", e.PlayerID)
}

// MatchResult announces the winner of a round.
type MatchResult struct {
	WinnerID string
	Choice   engine.Choice
}

func (e MatchResult) Text() string {
	return fmt.Sprintf("player: %s is the winner using %s!", e.WinnerID, e.Choice)
}

// Draw announces a round where both players chose the same hand.
type Draw struct {
	Choice engine.Choice
}

func (e Draw) Text() string {
	return fmt.Sprintf("draw: both players chose %s!", e.Choice)
}

// Left announces that a player disconnected from the room.
type Left struct {
	PlayerID string
}

func (e Left) Text() string {
	return fmt.Sprintf("player: %s has left the room", e.PlayerID)
}

// Error reports a rejected message to the client that sent it.
type Error struct {
	Reason string
}

func (e Error) Text() string {
	return "error: " + e.Reason
}

// OutcomeEvent converts a resolved round into the event broadcast to the room.
func OutcomeEvent(o engine.Outcome) Event {
	if o.Draw() {
		return Draw{Choice: o.Choice}
	}
	return MatchResult{WinnerID: o.Winner.ID, Choice: o.Choice}
}

// Common rejection reasons.
var (
	ErrExpectedMatchRequest = Error{Reason: `expected a match request: "quick" or "private"`}
	ErrPrivateUnsupported   = Error{Reason: "private matches are not supported"}
	ErrInvalidChoice        = Error{Reason: `invalid choice: send "rock", "paper" or "scissors"`}
	ErrAlreadyChosen        = Error{Reason: "you have already chosen"}
	ErrRoundOver            = Error{Reason: "the round is over"}
	ErrBinaryFrame          = Error{Reason: "binary frames are not supported"}
)
