// Package config holds the tunable protocol constants shared by mipd
// and routingd: cache/queue sizes, timer periods, and timeouts. The
// zero-value defaults match the ones named throughout spec.md; an
// optional TOML file can override them, the same way bamgate's
// internal/config loads and saves a TOML-backed Config.
package config

import (
	"bytes"
	"fmt"
	"os"
	"time"

	"github.com/BurntSushi/toml"
)

// Config is the set of tunable constants for one running node.
type Config struct {
	// ARPCacheSize is the number of MIP->MAC bindings the ARP cache
	// retains before evicting the least recently used entry.
	ARPCacheSize int `toml:"arp_cache_size"`

	// MaxQueueSize is the number of slots in the pending-ARP table.
	MaxQueueSize int `toml:"max_queue_size"`

	// MaxIf is the maximum number of interfaces mipd will bind.
	MaxIf int `toml:"max_if"`

	// MaxNodes is the size of the dense routing table array.
	MaxNodes int `toml:"max_nodes"`

	// HelloInterval is the period between routingd HELLO emissions.
	HelloInterval time.Duration `toml:"hello_interval"`

	// TimeoutInterval is how long a neighbour may go without a HELLO
	// before routingd marks it unreachable.
	TimeoutInterval time.Duration `toml:"timeout_interval"`

	// PendingARPTimeout is how long an unresolved pending-ARP entry
	// waits before being dropped.
	PendingARPTimeout time.Duration `toml:"pending_arp_timeout"`

	// PingReadTimeout bounds how long ping_client waits for a PONG.
	PingReadTimeout time.Duration `toml:"ping_read_timeout"`

	// ListenBacklog is carried for parity with the source's listen(2)
	// backlog; Go's net.Listen has no equivalent knob, so this is
	// advisory/documentary only (see DESIGN.md).
	ListenBacklog int `toml:"listen_backlog"`
}

// Default returns the compiled-in defaults named in spec.md.
func Default() Config {
	return Config{
		ARPCacheSize:      10,
		MaxQueueSize:      8,
		MaxIf:             3,
		MaxNodes:          52,
		HelloInterval:     10 * time.Second,
		TimeoutInterval:   30 * time.Second,
		PendingARPTimeout: 1 * time.Second,
		PingReadTimeout:   5 * time.Second,
		ListenBacklog:     3,
	}
}

// Load reads a TOML tuning file and applies it on top of Default(). An
// empty path returns the defaults unchanged.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("reading tuning file %s: %w", path, err)
	}

	if _, err := toml.Decode(string(data), &cfg); err != nil {
		return Config{}, fmt.Errorf("parsing tuning file %s: %w", path, err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("tuning file %s: %w", path, err)
	}

	return cfg, nil
}

// Save writes cfg to path as TOML, creating or truncating the file.
func Save(path string, cfg Config) error {
	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(cfg); err != nil {
		return fmt.Errorf("encoding tuning file: %w", err)
	}
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("writing tuning file %s: %w", path, err)
	}
	return nil
}

// Validate rejects values that would break the protocol's invariants
// (e.g. a routing table larger than the 255 addressable nodes, or a
// zero-length queue that could never accept a pending entry).
func (c Config) Validate() error {
	switch {
	case c.ARPCacheSize <= 0:
		return fmt.Errorf("arp_cache_size must be positive, got %d", c.ARPCacheSize)
	case c.MaxQueueSize <= 0:
		return fmt.Errorf("max_queue_size must be positive, got %d", c.MaxQueueSize)
	case c.MaxIf <= 0:
		return fmt.Errorf("max_if must be positive, got %d", c.MaxIf)
	case c.MaxNodes <= 0 || c.MaxNodes > 255:
		return fmt.Errorf("max_nodes must be in 1..255, got %d", c.MaxNodes)
	case c.HelloInterval <= 0:
		return fmt.Errorf("hello_interval must be positive, got %s", c.HelloInterval)
	case c.TimeoutInterval <= c.HelloInterval:
		return fmt.Errorf("timeout_interval (%s) must exceed hello_interval (%s)", c.TimeoutInterval, c.HelloInterval)
	case c.PendingARPTimeout <= 0:
		return fmt.Errorf("pending_arp_timeout must be positive, got %s", c.PendingARPTimeout)
	}
	return nil
}
