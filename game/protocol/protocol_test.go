package protocol

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/wricardo/rps-arena/game/engine"
)

func TestParse(t *testing.T) {
	tests := []struct {
		text   string
		kind   RequestKind
		match  MatchKind
		choice engine.Choice
	}{
		{"quick", RequestMatch, MatchQuick, engine.NoChoice},
		{"private", RequestMatch, MatchPrivate, engine.NoChoice},
		{"rock", RequestChoice, 0, engine.Rock},
		{"paper", RequestChoice, 0, engine.Paper},
		{"scissors", RequestChoice, 0, engine.Scissors},
		{"ROCK", RequestInvalid, 0, engine.NoChoice},
		{"Quick", RequestInvalid, 0, engine.NoChoice},
		{"lizard", RequestInvalid, 0, engine.NoChoice},
		{"", RequestInvalid, 0, engine.NoChoice},
	}

	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			req := Parse(tt.text)
			assert.Equal(t, tt.kind, req.Kind)
			assert.Equal(t, tt.match, req.Match)
			assert.Equal(t, tt.choice, req.Choice)
			assert.Equal(t, tt.text, req.Raw)
		})
	}
}

func TestEventText(t *testing.T) {
	tests := []struct {
		event Event
		want  string
	}{
		{Connected{PlayerID: "p1"}, "you have been connected as player: p1"},
		{Chosen{PlayerID: "p1"}, "player: p1 has made their choice"},
		{MatchResult{WinnerID: "p2", Choice: engine.Rock}, "player: p2 is the winner using rock!"},
		{Draw{Choice: engine.Paper}, "draw: both players chose paper!"},
		{Left{PlayerID: "p1"}, "player: p1 has left the room"},
		{ErrAlreadyChosen, "error: you have already chosen"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, tt.event.Text())
	}
}

func TestOutcomeEvent(t *testing.T) {
	winner := engine.Player{ID: "w", Choice: engine.Scissors}
	ev := OutcomeEvent(engine.Outcome{Winner: &winner, Choice: engine.Scissors})
	assert.Equal(t, MatchResult{WinnerID: "w", Choice: engine.Scissors}, ev)

	ev = OutcomeEvent(engine.Outcome{Choice: engine.Rock})
	assert.Equal(t, Draw{Choice: engine.Rock}, ev)
}

func TestMatchKindString(t *testing.T) {
	assert.Equal(t, "quick", MatchQuick.String())
	assert.Equal(t, "private", MatchPrivate.String())
	assert.Equal(t, "unknown", MatchKind(0).String())
}
