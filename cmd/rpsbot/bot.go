package main

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/gorilla/websocket"

	"github.com/wricardo/rps-arena/game/engine"
	"github.com/wricardo/rps-arena/game/protocol"
)

// Outcome is how a single game ended for one bot.
type Outcome int

const (
	Won Outcome = iota
	Lost
	Drew
	// Abandoned means the opponent left before the round resolved.
	Abandoned
	// Unmatched means the server closed the connection before a match.
	Unmatched
)

func (o Outcome) String() string {
	switch o {
	case Won:
		return "won"
	case Lost:
		return "lost"
	case Drew:
		return "drew"
	case Abandoned:
		return "abandoned"
	case Unmatched:
		return "unmatched"
	}
	return "unknown"
}

// Result describes one game played by a bot.
type Result struct {
	PlayerID string
	Choice   engine.Choice
	Outcome  Outcome
	Elapsed  time.Duration
}

var choices = []engine.Choice{engine.Rock, engine.Paper, engine.Scissors}

// Bot plays games against the arena over its websocket endpoint.
type Bot struct {
	url     string
	dialer  *websocket.Dialer
	timeout time.Duration
	rng     *rand.Rand
}

// NewBot creates a bot with its own random source so bots can run
// concurrently.
func NewBot(url string, timeout time.Duration, seed uint64) *Bot {
	return &Bot{
		url:     url,
		dialer:  websocket.DefaultDialer,
		timeout: timeout,
		rng:     rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)),
	}
}

// Play connects, asks for a quick match, throws a random choice as soon as it
// is acknowledged and reads until the round is decided.
func (b *Bot) Play(ctx context.Context) (Result, error) {
	start := time.Now()
	var res Result

	conn, _, err := b.dialer.DialContext(ctx, b.url, nil)
	if err != nil {
		return res, fmt.Errorf("dial %s: %w", b.url, err)
	}
	defer conn.Close()
	stop := context.AfterFunc(ctx, func() { conn.Close() })
	defer stop()

	if err := conn.WriteMessage(websocket.TextMessage, []byte("quick")); err != nil {
		return res, fmt.Errorf("send match request: %w", err)
	}
	if err := conn.SetReadDeadline(time.Now().Add(b.timeout)); err != nil {
		return res, err
	}

	finish := func(o Outcome) (Result, error) {
		res.Outcome = o
		res.Elapsed = time.Since(start)
		deadline := time.Now().Add(time.Second)
		_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), deadline)
		return res, nil
	}

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			var ce *websocket.CloseError
			if errors.As(err, &ce) {
				if res.PlayerID == "" {
					return finish(Unmatched)
				}
				return finish(Abandoned)
			}
			return res, fmt.Errorf("read: %w", err)
		}

		ev, err := protocol.ParseEvent(string(data))
		if err != nil {
			return res, err
		}
		switch ev := ev.(type) {
		case protocol.Connected:
			res.PlayerID = ev.PlayerID
			res.Choice = choices[b.rng.IntN(len(choices))]
			if err := conn.WriteMessage(websocket.TextMessage, []byte(res.Choice.String())); err != nil {
				return res, fmt.Errorf("send choice: %w", err)
			}
		case protocol.MatchResult:
			if ev.WinnerID == res.PlayerID {
				return finish(Won)
			}
			return finish(Lost)
		case protocol.Draw:
			return finish(Drew)
		case protocol.Left:
			return finish(Abandoned)
		case protocol.Error:
			return res, fmt.Errorf("server rejected message: %s", ev.Reason)
		}
	}
}
