// Command rpsbot is a load client for rps-arena. It opens many concurrent
// connections, lets each one play random games and checks that every decided
// room produced exactly one winner and one loser.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/urfave/cli/v3"
	"golang.org/x/sync/errgroup"
)

type options struct {
	url     string
	players int
	games   int
	timeout time.Duration
	seed    uint64
}

// Summary tallies outcomes across all bots.
type Summary struct {
	Games   int
	ByKind  map[Outcome]int
	Slowest time.Duration
}

func (s *Summary) add(r Result) {
	s.Games++
	s.ByKind[r.Outcome]++
	if r.Elapsed > s.Slowest {
		s.Slowest = r.Elapsed
	}
}

// check reports tallies that cannot happen when every room holds two players
// and resolves at most once.
func (s *Summary) check() error {
	if s.ByKind[Won] != s.ByKind[Lost] {
		return fmt.Errorf("%d wins but %d losses", s.ByKind[Won], s.ByKind[Lost])
	}
	if s.ByKind[Drew]%2 != 0 {
		return fmt.Errorf("odd number of draws: %d", s.ByKind[Drew])
	}
	return nil
}

func run(ctx context.Context, opts options) (*Summary, error) {
	summary := &Summary{ByKind: make(map[Outcome]int)}
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	for i := 0; i < opts.players; i++ {
		bot := NewBot(opts.url, opts.timeout, opts.seed+uint64(i))
		g.Go(func() error {
			for game := 0; game < opts.games; game++ {
				res, err := bot.Play(gctx)
				if err != nil {
					return fmt.Errorf("bot %d game %d: %w", i, game, err)
				}
				slog.Debug("game finished", "bot", i, "player", res.PlayerID, "choice", res.Choice.String(), "outcome", res.Outcome.String())

				mu.Lock()
				summary.add(res)
				mu.Unlock()
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return summary, err
	}
	return summary, summary.check()
}

func main() {
	cmd := &cli.Command{
		Name:  "rpsbot",
		Usage: "play concurrent rock-paper-scissors games against an rps-arena server",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "url", Value: "ws://localhost:3000/websocket", Usage: "arena websocket URL", Sources: cli.EnvVars("RPS_BOT_URL")},
			&cli.IntFlag{Name: "players", Value: 10, Usage: "concurrent connections"},
			&cli.IntFlag{Name: "games", Value: 1, Usage: "games per connection, played one after another"},
			&cli.DurationFlag{Name: "timeout", Value: 30 * time.Second, Usage: "per-game read timeout"},
			&cli.IntFlag{Name: "seed", Value: 1, Usage: "random seed for choices"},
			&cli.BoolFlag{Name: "debug", Usage: "log every game"},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			level := slog.LevelInfo
			if cmd.Bool("debug") {
				level = slog.LevelDebug
			}
			slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))

			opts := options{
				url:     cmd.String("url"),
				players: int(cmd.Int("players")),
				games:   int(cmd.Int("games")),
				timeout: cmd.Duration("timeout"),
				seed:    uint64(cmd.Int("seed")),
			}
			if opts.players <= 0 || opts.games <= 0 {
				return fmt.Errorf("players and games must be positive")
			}

			start := time.Now()
			summary, err := run(ctx, opts)
			slog.Info("load run finished",
				"games", summary.Games,
				"won", summary.ByKind[Won],
				"lost", summary.ByKind[Lost],
				"drew", summary.ByKind[Drew],
				"abandoned", summary.ByKind[Abandoned],
				"unmatched", summary.ByKind[Unmatched],
				"slowest", summary.Slowest,
				"elapsed", time.Since(start).Round(time.Millisecond),
			)
			return err
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		slog.Error("rpsbot failed", "err", err)
		os.Exit(1)
	}
}
