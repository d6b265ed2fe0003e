// Command rps-arena starts the rock-paper-scissors room coordinator.
//
// It supports two modes:
//  1. "serve" (default) – runs the HTTP server exposing the game websocket, the
//     read-only REST API and an /mcp HTTP endpoint
//  2. "stdio-mcp" – runs an MCP stdio server, reusing a running arena if one
//     answers at --api-url and starting an internal one otherwise
//
// Settings come from defaults, an optional JSON file (--config), RPS_*
// environment variables and flags, in increasing precedence. A .env file in
// the working directory is loaded first.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/mark3labs/mcp-go/server"
	"github.com/urfave/cli/v3"
	"golang.ngrok.com/ngrok"
	ngrokConfig "golang.ngrok.com/ngrok/config"
	"golang.org/x/sync/errgroup"

	"github.com/wricardo/rps-arena/api"
	"github.com/wricardo/rps-arena/game/config"
	"github.com/wricardo/rps-arena/game/ids"
	"github.com/wricardo/rps-arena/game/room"
	"github.com/wricardo/rps-arena/game/service"
	"github.com/wricardo/rps-arena/transport/mcp"
	"github.com/wricardo/rps-arena/transport/websocket"
)

// Version information
const (
	Version = "1.0.0"
	AppName = "RPS Arena Server"
)

const shutdownTimeout = 10 * time.Second

func main() {
	// Load .env file if it exists (ignore error if not found)
	if err := godotenv.Load(); err != nil {
		if !os.IsNotExist(err) {
			fmt.Fprintf(os.Stderr, "Warning: error loading .env file: %v\n", err)
		}
	}

	if err := newCommand().Run(context.Background(), os.Args); err != nil {
		slog.Error("rps-arena failed", "err", err)
		os.Exit(1)
	}
}

func newCommand() *cli.Command {
	return &cli.Command{
		Name:    "rps-arena",
		Usage:   AppName,
		Version: Version,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Usage:   "JSON configuration file",
				Sources: cli.EnvVars("RPS_CONFIG"),
			},
			&cli.StringFlag{
				Name:    "host",
				Value:   config.DefaultHost,
				Usage:   "HTTP server host",
				Sources: cli.EnvVars("RPS_HOST"),
			},
			&cli.IntFlag{
				Name:    "port",
				Value:   config.DefaultPort,
				Usage:   "HTTP server port",
				Sources: cli.EnvVars("RPS_PORT"),
			},
			&cli.DurationFlag{
				Name:    "match-timeout",
				Value:   config.DefaultMatchTimeout,
				Usage:   "how long a connection may wait before sending a match request",
				Sources: cli.EnvVars("RPS_MATCH_TIMEOUT"),
			},
			&cli.DurationFlag{
				Name:    "idle-timeout",
				Value:   config.DefaultIdleTimeout,
				Usage:   "read deadline, refreshed by every frame and pong",
				Sources: cli.EnvVars("RPS_IDLE_TIMEOUT"),
			},
			&cli.DurationFlag{
				Name:    "write-timeout",
				Value:   config.DefaultWriteTimeout,
				Usage:   "deadline for a single websocket write",
				Sources: cli.EnvVars("RPS_WRITE_TIMEOUT"),
			},
			&cli.IntFlag{
				Name:    "max-message-size",
				Value:   config.DefaultMaxMessageSize,
				Usage:   "largest accepted client frame in bytes",
				Sources: cli.EnvVars("RPS_MAX_MESSAGE_SIZE"),
			},
			&cli.IntFlag{
				Name:    "outbound-queue",
				Value:   config.DefaultOutboundQueueSize,
				Usage:   "per-connection outbound message queue",
				Sources: cli.EnvVars("RPS_OUTBOUND_QUEUE"),
			},
			&cli.IntFlag{
				Name:    "broadcast-buffer",
				Value:   config.DefaultBroadcastBuffer,
				Usage:   "per-subscriber room broadcast buffer",
				Sources: cli.EnvVars("RPS_BROADCAST_BUFFER"),
			},
			&cli.BoolFlag{
				Name:    "require-match-request",
				Value:   true,
				Usage:   `require clients to send "quick" before they are matched`,
				Sources: cli.EnvVars("RPS_REQUIRE_MATCH_REQUEST"),
			},
			&cli.BoolFlag{
				Name:    "debug",
				Usage:   "enable debug logging",
				Sources: cli.EnvVars("RPS_DEBUG"),
			},
			&cli.BoolFlag{
				Name:    "ngrok",
				Usage:   "expose the server through an ngrok tunnel",
				Sources: cli.EnvVars("NGROK_ENABLED"),
			},
			&cli.StringFlag{
				Name:    "ngrok-auth",
				Usage:   "ngrok auth token",
				Sources: cli.EnvVars("NGROK_AUTHTOKEN", "NGROK_AUTH_TOKEN"),
			},
			&cli.StringFlag{
				Name:    "ngrok-domain",
				Usage:   "custom ngrok domain (optional)",
				Sources: cli.EnvVars("NGROK_DOMAIN"),
			},
		},
		Before: func(ctx context.Context, cmd *cli.Command) (context.Context, error) {
			setupLogging(cmd.Bool("debug"))
			return ctx, nil
		},
		Action: serveAction,
		Commands: []*cli.Command{
			{
				Name:    "serve",
				Aliases: []string{"server", "http"},
				Usage:   "run the HTTP server with websocket, REST API and MCP endpoint",
				Action:  serveAction,
			},
			{
				Name:    "stdio-mcp",
				Aliases: []string{"mcp-stdio", "mcp"},
				Usage:   "run an MCP stdio server over the arena REST API",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "api-url",
						Value:   fmt.Sprintf("http://localhost:%d", config.DefaultPort),
						Usage:   "arena to reuse; an internal one starts if it does not answer",
						Sources: cli.EnvVars("RPS_API_URL"),
					},
				},
				Action: stdioMCPAction,
			},
		},
	}
}

// setupLogging installs the default slog logger on stderr, so that stdout
// stays free for the MCP stdio transport.
func setupLogging(debug bool) {
	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level:     level,
		AddSource: debug,
	})))
}

// loadConfig layers the JSON file, then environment and flags, over defaults.
func loadConfig(cmd *cli.Command) (*config.Config, error) {
	cfg := config.Default()
	if path := cmd.String("config"); path != "" {
		loaded, err := config.Load(path)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}

	if cmd.IsSet("host") {
		cfg.Host = cmd.String("host")
	}
	if cmd.IsSet("port") {
		cfg.Port = int(cmd.Int("port"))
	}
	if cmd.IsSet("match-timeout") {
		cfg.MatchTimeout = config.Duration(cmd.Duration("match-timeout"))
	}
	if cmd.IsSet("idle-timeout") {
		cfg.IdleTimeout = config.Duration(cmd.Duration("idle-timeout"))
	}
	if cmd.IsSet("write-timeout") {
		cfg.WriteTimeout = config.Duration(cmd.Duration("write-timeout"))
	}
	if cmd.IsSet("max-message-size") {
		cfg.MaxMessageSize = int64(cmd.Int("max-message-size"))
	}
	if cmd.IsSet("outbound-queue") {
		cfg.OutboundQueueSize = int(cmd.Int("outbound-queue"))
	}
	if cmd.IsSet("broadcast-buffer") {
		cfg.BroadcastBuffer = int(cmd.Int("broadcast-buffer"))
	}
	if cmd.IsSet("require-match-request") {
		cfg.RequireMatchRequest = cmd.Bool("require-match-request")
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

type ngrokOptions struct {
	enabled bool
	auth    string
	domain  string
}

// arena is one running instance of the game stack.
type arena struct {
	registry *room.Registry
	hub      *websocket.Hub
	handler  http.Handler
}

// newArena wires registry, hub, lobby, REST API and the /mcp endpoint. The
// MCP proxy talks to the REST API at selfURL.
func newArena(cfg *config.Config, selfURL string) *arena {
	registry := room.NewRegistry(ids.NewUUIDSource(), room.WithBroadcastBuffer(cfg.BroadcastBuffer))
	hub := websocket.NewHub(registry, ids.NewUUIDSource(), cfg)
	lobby := service.NewLobbyService(registry, hub)

	mux := http.NewServeMux()
	mux.Handle("/", api.NewServer(lobby, hub))
	mux.Handle("/mcp", mcp.NewClient(selfURL))

	return &arena{registry: registry, hub: hub, handler: mux}
}

// shutdown closes live sessions first so they send going-away frames, then
// stops accepting HTTP traffic.
func (a *arena) shutdown(httpServer *http.Server) error {
	a.hub.Shutdown()

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	err := httpServer.Shutdown(ctx)

	a.registry.Close()
	return err
}

// loopbackURL is the address the process uses to reach its own listener.
func loopbackURL(addr net.Addr) string {
	port := addr.(*net.TCPAddr).Port
	return "http://" + net.JoinHostPort("127.0.0.1", strconv.Itoa(port))
}

func serveAction(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	return runHTTPServer(ctx, cfg, ngrokOptions{
		enabled: cmd.Bool("ngrok"),
		auth:    cmd.String("ngrok-auth"),
		domain:  cmd.String("ngrok-domain"),
	})
}

// runHTTPServer serves until SIGINT or SIGTERM, then shuts down gracefully.
// If ngrok is enabled it also serves through a public tunnel.
func runHTTPServer(ctx context.Context, cfg *config.Config, ngrokOpts ngrokOptions) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	listener, err := net.Listen("tcp", cfg.Addr())
	if err != nil {
		return fmt.Errorf("listen on %s: %w", cfg.Addr(), err)
	}

	app := newArena(cfg, loopbackURL(listener.Addr()))
	httpServer := &http.Server{
		Handler:           app.handler,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	slog.InfoContext(ctx, "starting "+AppName, "version", Version, "addr", listener.Addr().String())
	slog.InfoContext(ctx, "endpoints",
		"websocket", "ws://"+listener.Addr().String()+"/websocket",
		"api", "http://"+listener.Addr().String()+"/api",
		"mcp", "http://"+listener.Addr().String()+"/mcp",
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := httpServer.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("HTTP server failed: %w", err)
		}
		return nil
	})
	if ngrokOpts.enabled {
		g.Go(func() error {
			serveNgrok(gctx, ngrokOpts, app.handler)
			return nil
		})
	}
	g.Go(func() error {
		<-gctx.Done()
		slog.Info("shutting down", "sessions", app.hub.Count(), "rooms", app.registry.Count())
		return app.shutdown(httpServer)
	})

	err = g.Wait()
	slog.Info("server stopped")
	return err
}

// serveNgrok serves handler through an ngrok tunnel until ctx is done. Tunnel
// failures are logged; the local listener keeps running.
func serveNgrok(ctx context.Context, opts ngrokOptions, handler http.Handler) {
	if opts.auth == "" {
		slog.Warn("ngrok enabled but no auth token provided (use --ngrok-auth, NGROK_AUTHTOKEN, or NGROK_AUTH_TOKEN)")
		return
	}

	var tunnel ngrokConfig.Tunnel
	if opts.domain != "" {
		tunnel = ngrokConfig.HTTPEndpoint(ngrokConfig.WithDomain(opts.domain))
		slog.Info("using custom ngrok domain", "domain", opts.domain)
	} else {
		tunnel = ngrokConfig.HTTPEndpoint()
	}

	tun, err := ngrok.Listen(ctx, tunnel, ngrok.WithAuthtoken(opts.auth))
	if err != nil {
		slog.Error("failed to start ngrok tunnel", "err", err)
		return
	}
	stop := context.AfterFunc(ctx, func() {
		if err := tun.Close(); err != nil {
			slog.Warn("failed to close ngrok tunnel", "err", err)
		}
	})
	defer stop()

	url := tun.URL()
	slog.Info("ngrok tunnel established", "url", url, "websocket", url+"/websocket", "mcp", url+"/mcp")

	if err := http.Serve(tun, handler); err != nil && ctx.Err() == nil {
		slog.Warn("ngrok server error", "err", err)
	}
	slog.Info("ngrok tunnel closed")
}

func stdioMCPAction(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	return runStdioMCP(ctx, cfg, cmd.String("api-url"))
}

// runStdioMCP serves MCP on stdio. It proxies to externalURL when an arena
// answers there, and otherwise starts an internal one on a loopback port.
func runStdioMCP(ctx context.Context, cfg *config.Config, externalURL string) error {
	baseURL := externalURL
	if !probe(ctx, externalURL) {
		listener, err := net.Listen("tcp", "127.0.0.1:0")
		if err != nil {
			return fmt.Errorf("failed to get available port: %w", err)
		}
		baseURL = loopbackURL(listener.Addr())

		app := newArena(cfg, baseURL)
		httpServer := &http.Server{Handler: app.handler, ReadHeaderTimeout: 10 * time.Second}
		go func() {
			if err := httpServer.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
				slog.Error("internal HTTP server error", "err", err)
			}
		}()
		defer app.shutdown(httpServer)

		slog.Info("no external arena found, started internal HTTP server", "url", baseURL)
	} else {
		slog.Info("using external arena for MCP", "url", baseURL)
	}

	client := mcp.NewClient(baseURL)
	slog.Info("MCP stdio server ready")
	if err := server.ServeStdio(client.GetMCPServer()); err != nil {
		return fmt.Errorf("MCP stdio server error: %w", err)
	}
	return nil
}

// probe reports whether an arena answers its health check at baseURL.
func probe(ctx context.Context, baseURL string) bool {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, baseURL+"/healthz", nil)
	if err != nil {
		return false
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return false
	}
	resp.Body.Close()
	return resp.StatusCode == http.StatusOK
}
