package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"os"
	"strconv"
	"time"
)

var (
	ErrConfigNotFound = errors.New("configuration not found")
	ErrInvalidConfig  = errors.New("invalid configuration")
)

// Default settings.
const (
	DefaultHost              = "0.0.0.0"
	DefaultPort              = 3000
	DefaultMatchTimeout      = 30 * time.Second
	DefaultIdleTimeout       = 60 * time.Second
	DefaultWriteTimeout      = 10 * time.Second
	DefaultMaxMessageSize    = 512
	DefaultOutboundQueueSize = 16
	DefaultBroadcastBuffer   = 100
)

// Duration is a time.Duration that reads and writes JSON as "30s".
type Duration time.Duration

func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(time.Duration(d).String())
}

func (d *Duration) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("duration must be a string like \"30s\": %w", err)
	}
	v, err := time.ParseDuration(s)
	if err != nil {
		return err
	}
	*d = Duration(v)
	return nil
}

// Config holds the server settings.
type Config struct {
	Host string `json:"host"`
	Port int    `json:"port"`

	// MatchTimeout bounds how long a connection may wait before sending a
	// valid match request.
	MatchTimeout Duration `json:"match_timeout"`
	// IdleTimeout is the read deadline, refreshed by every frame and pong.
	IdleTimeout  Duration `json:"idle_timeout"`
	WriteTimeout Duration `json:"write_timeout"`

	MaxMessageSize    int64 `json:"max_message_size"`
	OutboundQueueSize int   `json:"outbound_queue_size"`
	BroadcastBuffer   int   `json:"broadcast_buffer"`

	// RequireMatchRequest makes clients send "quick" before playing.
	RequireMatchRequest bool `json:"require_match_request"`
}

// Default returns a Config populated with defaults.
func Default() *Config {
	return &Config{
		Host:                DefaultHost,
		Port:                DefaultPort,
		MatchTimeout:        Duration(DefaultMatchTimeout),
		IdleTimeout:         Duration(DefaultIdleTimeout),
		WriteTimeout:        Duration(DefaultWriteTimeout),
		MaxMessageSize:      DefaultMaxMessageSize,
		OutboundQueueSize:   DefaultOutboundQueueSize,
		BroadcastBuffer:     DefaultBroadcastBuffer,
		RequireMatchRequest: true,
	}
}

// Load reads a JSON file over the defaults. Fields missing from the file keep
// their default values.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrConfigNotFound, path)
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := Default()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate reports the first setting that cannot work.
func (c *Config) Validate() error {
	switch {
	case c.Port < 0 || c.Port > 65535:
		return fmt.Errorf("%w: port %d out of range", ErrInvalidConfig, c.Port)
	case c.MatchTimeout <= 0:
		return fmt.Errorf("%w: match_timeout must be positive", ErrInvalidConfig)
	case c.IdleTimeout <= 0:
		return fmt.Errorf("%w: idle_timeout must be positive", ErrInvalidConfig)
	case c.WriteTimeout <= 0:
		return fmt.Errorf("%w: write_timeout must be positive", ErrInvalidConfig)
	case c.MaxMessageSize <= 0:
		return fmt.Errorf("%w: max_message_size must be positive", ErrInvalidConfig)
	case c.OutboundQueueSize <= 0:
		return fmt.Errorf("%w: outbound_queue_size must be positive", ErrInvalidConfig)
	case c.BroadcastBuffer <= 0:
		return fmt.Errorf("%w: broadcast_buffer must be positive", ErrInvalidConfig)
	}
	return nil
}

// Addr is the listen address.
func (c *Config) Addr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

// PingPeriod is how often keepalive pings go out. It must be shorter than the
// idle timeout so a healthy peer's pong always arrives in time.
func (c *Config) PingPeriod() time.Duration {
	return time.Duration(c.IdleTimeout) * 9 / 10
}
