package main

import (
	"context"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	gorilla "github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wricardo/rps-arena/game/config"
	"github.com/wricardo/rps-arena/game/ids"
	"github.com/wricardo/rps-arena/game/room"
	"github.com/wricardo/rps-arena/transport/websocket"
)

type arena struct {
	url      string
	hub      *websocket.Hub
	registry *room.Registry
}

func newArena(t *testing.T, cfg *config.Config) *arena {
	t.Helper()
	registry := room.NewRegistry(ids.NewUUIDSource())
	hub := websocket.NewHub(registry, ids.NewUUIDSource(), cfg)
	server := httptest.NewServer(hub)
	t.Cleanup(func() {
		hub.Shutdown()
		server.Close()
	})
	return &arena{url: "ws" + strings.TrimPrefix(server.URL, "http"), hub: hub, registry: registry}
}

func TestRun(t *testing.T) {
	a := newArena(t, config.Default())

	summary, err := run(context.Background(), options{
		url:     a.url,
		players: 8,
		games:   3,
		timeout: 5 * time.Second,
		seed:    42,
	})
	require.NoError(t, err)

	assert.Equal(t, 24, summary.Games)
	assert.Equal(t, summary.ByKind[Won], summary.ByKind[Lost])
	assert.Equal(t, 24, summary.ByKind[Won]+summary.ByKind[Lost]+summary.ByKind[Drew])
	assert.Zero(t, summary.ByKind[Unmatched])

	assert.Eventually(t, func() bool { return a.registry.Count() == 0 }, 2*time.Second, 10*time.Millisecond,
		"every room should be released once its players leave")
}

func TestBot_NoOpponent(t *testing.T) {
	a := newArena(t, config.Default())

	res, err := NewBot(a.url, 300*time.Millisecond, 1).Play(context.Background())
	require.Error(t, err, "a lone bot should hit its read deadline")
	assert.NotEmpty(t, res.PlayerID)
	assert.True(t, res.Choice.Valid())
}

func TestBot_Unmatched(t *testing.T) {
	a := newArena(t, config.Default())
	a.hub.Shutdown()

	// the refusal races the bot's match request on the wire, so a reset
	// connection is also acceptable; a match never is
	res, err := NewBot(a.url, time.Second, 1).Play(context.Background())
	if err == nil {
		assert.Equal(t, Unmatched, res.Outcome)
	}
	assert.Empty(t, res.PlayerID)
}

func TestBot_OpponentLeaves(t *testing.T) {
	a := newArena(t, config.Default())

	done := make(chan Result, 1)
	go func() {
		res, err := NewBot(a.url, 5*time.Second, 7).Play(context.Background())
		if err != nil {
			t.Errorf("Play: %v", err)
		}
		done <- res
	}()
	require.Eventually(t, func() bool { return a.registry.Count() == 1 }, 2*time.Second, 10*time.Millisecond)

	// join the bot's room, then leave without choosing
	conn, _, err := gorilla.DefaultDialer.Dial(a.url, nil)
	require.NoError(t, err)
	require.NoError(t, conn.WriteMessage(gorilla.TextMessage, []byte("quick")))
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, ack, err := conn.ReadMessage()
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(string(ack), "you have been connected as player: "))
	conn.Close()

	select {
	case res := <-done:
		assert.Equal(t, Abandoned, res.Outcome)
	case <-time.After(5 * time.Second):
		t.Fatal("bot never finished")
	}
}

func TestSummaryCheck(t *testing.T) {
	s := &Summary{ByKind: map[Outcome]int{Won: 2, Lost: 2, Drew: 2}}
	assert.NoError(t, s.check())

	s.ByKind[Won] = 3
	assert.Error(t, s.check())

	s = &Summary{ByKind: map[Outcome]int{Drew: 3}}
	assert.Error(t, s.check())
}

func TestOutcomeString(t *testing.T) {
	assert.Equal(t, "won", Won.String())
	assert.Equal(t, "unmatched", Unmatched.String())
	assert.Equal(t, "unknown", Outcome(99).String())
}
