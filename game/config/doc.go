// Package config provides server configuration for the arena.
//
// The config package handles:
//   - Default settings (bind address, timeouts, queue sizes)
//   - Loading overrides from a JSON file
//   - Validation before the server starts
//
// Configuration Format:
//
//	{
//	  "host": "0.0.0.0",
//	  "port": 3000,
//	  "match_timeout": "30s",
//	  "idle_timeout": "60s",
//	  "write_timeout": "10s",
//	  "max_message_size": 512,
//	  "outbound_queue_size": 16,
//	  "broadcast_buffer": 100,
//	  "require_match_request": true
//	}
//
// Precedence, lowest first: defaults, the JSON file, RPS_* environment
// variables, command-line flags. The command wires the last two.
package config
