// Package config loads the node-level configuration surface a mesh
// node boots with, from YAML via gopkg.in/yaml.v3 — the same library
// and the same "raw struct with string durations, parsed after
// unmarshal" pattern shurlinet-shurli's internal/config/loader.go uses
// for its own node configuration.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config bundles every option a mesh node's runtime behavior depends
// on: timer cadences, batching/dedup/tracking bounds, and the group
// mask and power radius that bias neighbor selection.
type Config struct {
	PeerUpdateInterval   time.Duration
	EntityExpiryInterval time.Duration
	EntityUpdatesSize    int
	Spectator            bool

	TimestampLookupSize int

	TrackingDuration uint32
	GroupMask        uint32
	PowerRadius      float32
}

// Default returns the configuration gyre-equivalent nodes would boot
// with absent any file: a one-second peer-update cadence (matching
// gyre's own reapInterval), a five-second expiry sweep, and a 7000
// byte outgoing entity batch ceiling.
func Default() Config {
	return Config{
		PeerUpdateInterval:   1 * time.Second,
		EntityExpiryInterval: 5 * time.Second,
		EntityUpdatesSize:    7000,
		TimestampLookupSize:  4096,
		TrackingDuration:     0xFFFFFFFF,
		GroupMask:            0xFFFFFFFF,
	}
}

// raw mirrors Config but with durations as strings, the same
// indirection shurlinet-shurli's loader uses so its YAML stays
// human-writable ("1s", "500ms") instead of raw nanosecond integers.
type raw struct {
	PeerUpdateInterval   string  `yaml:"peer_update_interval,omitempty"`
	EntityExpiryInterval string  `yaml:"entity_expiry_interval,omitempty"`
	EntityUpdatesSize    int     `yaml:"entity_updates_size,omitempty"`
	Spectator            bool    `yaml:"spectator,omitempty"`
	TimestampLookupSize  int     `yaml:"timestamp_lookup_size,omitempty"`
	TrackingDuration     uint32  `yaml:"tracking_duration,omitempty"`
	GroupMask            uint32  `yaml:"group_mask,omitempty"`
	PowerRadius          float32 `yaml:"power_radius,omitempty"`
}

// Load reads and validates a YAML configuration file, starting from
// Default() and overriding any field the file sets.
func Load(path string) (Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("config: read %s: %w", path, err)
	}

	var r raw
	if err := yaml.Unmarshal(data, &r); err != nil {
		return Config{}, fmt.Errorf("config: parse %s: %w", path, err)
	}

	if r.PeerUpdateInterval != "" {
		if cfg.PeerUpdateInterval, err = time.ParseDuration(r.PeerUpdateInterval); err != nil {
			return Config{}, fmt.Errorf("config: peer_update_interval: %w", err)
		}
	}
	if r.EntityExpiryInterval != "" {
		if cfg.EntityExpiryInterval, err = time.ParseDuration(r.EntityExpiryInterval); err != nil {
			return Config{}, fmt.Errorf("config: entity_expiry_interval: %w", err)
		}
	}
	if r.EntityUpdatesSize != 0 {
		cfg.EntityUpdatesSize = r.EntityUpdatesSize
	}
	cfg.Spectator = r.Spectator
	if r.TimestampLookupSize != 0 {
		cfg.TimestampLookupSize = r.TimestampLookupSize
	}
	if r.TrackingDuration != 0 {
		cfg.TrackingDuration = r.TrackingDuration
	}
	if r.GroupMask != 0 {
		cfg.GroupMask = r.GroupMask
	}
	cfg.PowerRadius = r.PowerRadius

	return cfg, nil
}
