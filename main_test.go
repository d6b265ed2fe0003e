package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	gorillaws "github.com/gorilla/websocket"
	"github.com/urfave/cli/v3"

	"github.com/wricardo/rps-arena/game/config"
)

func TestConstants(t *testing.T) {
	if Version == "" {
		t.Error("Version should not be empty")
	}
	if AppName != "RPS Arena Server" {
		t.Errorf("Unexpected app name %s", AppName)
	}
}

// runConfig parses args through the real command and returns the resulting
// configuration instead of starting a server.
func runConfig(t *testing.T, args ...string) (*config.Config, error) {
	t.Helper()
	cmd := newCommand()
	var cfg *config.Config
	cmd.Action = func(ctx context.Context, c *cli.Command) error {
		var err error
		cfg, err = loadConfig(c)
		return err
	}
	err := cmd.Run(context.Background(), append([]string{"rps-arena"}, args...))
	return cfg, err
}

func TestLoadConfig_Defaults(t *testing.T) {
	cfg, err := runConfig(t)
	if err != nil {
		t.Fatalf("loadConfig failed: %v", err)
	}

	want := config.Default()
	if *cfg != *want {
		t.Errorf("Expected defaults %+v, got %+v", want, cfg)
	}
}

func TestLoadConfig_Precedence(t *testing.T) {
	path := filepath.Join(t.TempDir(), "arena.json")
	file := `{"host": "127.0.0.1", "port": 4000, "match_timeout": "5s", "broadcast_buffer": 8}`
	if err := os.WriteFile(path, []byte(file), 0o644); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name  string
		env   map[string]string
		args  []string
		check func(*testing.T, *config.Config)
	}{
		{
			name: "file over defaults",
			args: []string{"--config", path},
			check: func(t *testing.T, cfg *config.Config) {
				if cfg.Host != "127.0.0.1" || cfg.Port != 4000 || cfg.BroadcastBuffer != 8 {
					t.Errorf("File values not applied: %+v", cfg)
				}
				if cfg.OutboundQueueSize != config.DefaultOutboundQueueSize {
					t.Errorf("Expected default outbound queue, got %d", cfg.OutboundQueueSize)
				}
			},
		},
		{
			name: "env over file",
			env:  map[string]string{"RPS_PORT": "5000", "RPS_CONFIG": path},
			check: func(t *testing.T, cfg *config.Config) {
				if cfg.Port != 5000 {
					t.Errorf("Expected env port 5000, got %d", cfg.Port)
				}
				if time.Duration(cfg.MatchTimeout) != 5*time.Second {
					t.Errorf("Expected file match timeout 5s, got %v", time.Duration(cfg.MatchTimeout))
				}
			},
		},
		{
			name: "flags over env",
			env:  map[string]string{"RPS_PORT": "5000", "RPS_REQUIRE_MATCH_REQUEST": "true"},
			args: []string{"--port", "6000", "--require-match-request=false", "--idle-timeout", "90s"},
			check: func(t *testing.T, cfg *config.Config) {
				if cfg.Port != 6000 {
					t.Errorf("Expected flag port 6000, got %d", cfg.Port)
				}
				if cfg.RequireMatchRequest {
					t.Error("Expected match request requirement disabled")
				}
				if time.Duration(cfg.IdleTimeout) != 90*time.Second {
					t.Errorf("Expected idle timeout 90s, got %v", time.Duration(cfg.IdleTimeout))
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			cfg, err := runConfig(t, tt.args...)
			if err != nil {
				t.Fatalf("loadConfig failed: %v", err)
			}
			tt.check(t, cfg)
		})
	}
}

func TestLoadConfig_Errors(t *testing.T) {
	if _, err := runConfig(t, "--port", "70000"); !errors.Is(err, config.ErrInvalidConfig) {
		t.Errorf("Expected ErrInvalidConfig, got %v", err)
	}
	if _, err := runConfig(t, "--outbound-queue", "0"); !errors.Is(err, config.ErrInvalidConfig) {
		t.Errorf("Expected ErrInvalidConfig, got %v", err)
	}
	if _, err := runConfig(t, "--config", "/non/existent/arena.json"); !errors.Is(err, config.ErrConfigNotFound) {
		t.Errorf("Expected ErrConfigNotFound, got %v", err)
	}
}

func TestLoopbackURL(t *testing.T) {
	addr := &net.TCPAddr{IP: net.IPv4zero, Port: 3456}
	if got := loopbackURL(addr); got != "http://127.0.0.1:3456" {
		t.Errorf("Expected http://127.0.0.1:3456, got %s", got)
	}
}

func TestProbe(t *testing.T) {
	healthy := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/healthz" {
			http.NotFound(w, r)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer healthy.Close()

	if !probe(context.Background(), healthy.URL) {
		t.Error("Expected healthy server to answer")
	}

	gone := httptest.NewServer(http.NotFoundHandler())
	gone.Close()
	if probe(context.Background(), gone.URL) {
		t.Error("Expected closed server to fail the probe")
	}
}

// TestArena drives the fully wired stack: websocket play, REST inspection and
// the /mcp endpoint proxying back to the same process.
func TestArena(t *testing.T) {
	cfg := config.Default()
	cfg.MatchTimeout = config.Duration(2 * time.Second)

	var handler http.Handler
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		handler.ServeHTTP(w, r)
	}))
	defer server.Close()
	app := newArena(cfg, server.URL)
	handler = app.handler
	defer app.hub.Shutdown()

	resp, err := http.Get(server.URL + "/healthz")
	if err != nil {
		t.Fatalf("Health check failed: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("Expected 200 from /healthz, got %d", resp.StatusCode)
	}

	wsURL := "ws" + strings.TrimPrefix(server.URL, "http") + "/websocket"
	conn, _, err := gorillaws.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("Failed to connect to WebSocket: %v", err)
	}
	defer conn.Close()

	if err := conn.WriteMessage(gorillaws.TextMessage, []byte("quick")); err != nil {
		t.Fatal(err)
	}
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, ack, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("Failed to read acknowledgement: %v", err)
	}
	if !strings.HasPrefix(string(ack), "you have been connected as player: ") {
		t.Fatalf("Unexpected acknowledgement %q", ack)
	}

	resp, err = http.Get(server.URL + "/api/rooms?state=open")
	if err != nil {
		t.Fatal(err)
	}
	var rooms struct {
		Count int `json:"count"`
	}
	json.NewDecoder(resp.Body).Decode(&rooms)
	resp.Body.Close()
	if rooms.Count != 1 {
		t.Errorf("Expected 1 open room, got %d", rooms.Count)
	}

	body := `{"jsonrpc":"2.0","id":1,"method":"tools/call","params":{"name":"lobby_stats","arguments":{}}}`
	resp, err = http.Post(server.URL+"/mcp", "application/json", bytes.NewBufferString(body))
	if err != nil {
		t.Fatal(err)
	}
	var buf bytes.Buffer
	buf.ReadFrom(resp.Body)
	resp.Body.Close()
	if !strings.Contains(buf.String(), "Players in rooms: 1") {
		t.Errorf("Expected lobby stats through /mcp, got %s", buf.String())
	}
}
