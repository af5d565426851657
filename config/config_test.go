package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefaultMatchesDocumentedValues(t *testing.T) {
	cfg := Default()
	if cfg.PeerUpdateInterval != time.Second {
		t.Errorf("PeerUpdateInterval = %v, want 1s", cfg.PeerUpdateInterval)
	}
	if cfg.EntityExpiryInterval != 5*time.Second {
		t.Errorf("EntityExpiryInterval = %v, want 5s", cfg.EntityExpiryInterval)
	}
	if cfg.EntityUpdatesSize != 7000 {
		t.Errorf("EntityUpdatesSize = %d, want 7000", cfg.EntityUpdatesSize)
	}
	if cfg.TrackingDuration != 0xFFFFFFFF || cfg.GroupMask != 0xFFFFFFFF {
		t.Errorf("TrackingDuration/GroupMask should default to all-bits-set, got %d/%d", cfg.TrackingDuration, cfg.GroupMask)
	}
}

func TestLoadOverridesDefaultsFromYAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "node.yaml")
	contents := "peer_update_interval: 250ms\nentity_expiry_interval: 2s\nentity_updates_size: 1200\nspectator: true\ngroup_mask: 3\npower_radius: 1.5\n"
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.PeerUpdateInterval != 250*time.Millisecond {
		t.Errorf("PeerUpdateInterval = %v, want 250ms", cfg.PeerUpdateInterval)
	}
	if cfg.EntityExpiryInterval != 2*time.Second {
		t.Errorf("EntityExpiryInterval = %v, want 2s", cfg.EntityExpiryInterval)
	}
	if cfg.EntityUpdatesSize != 1200 {
		t.Errorf("EntityUpdatesSize = %d, want 1200", cfg.EntityUpdatesSize)
	}
	if !cfg.Spectator {
		t.Error("Spectator should be true")
	}
	if cfg.GroupMask != 3 {
		t.Errorf("GroupMask = %d, want 3", cfg.GroupMask)
	}
	if cfg.PowerRadius != 1.5 {
		t.Errorf("PowerRadius = %v, want 1.5", cfg.PowerRadius)
	}
	// TimestampLookupSize and TrackingDuration were left unset in the
	// fixture and must keep Default()'s values.
	if cfg.TimestampLookupSize != 4096 {
		t.Errorf("TimestampLookupSize = %d, want default 4096", cfg.TimestampLookupSize)
	}
}

func TestLoadRejectsMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("expected error for missing config file")
	}
}

func TestLoadRejectsMalformedYAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bad.yaml")
	if err := os.WriteFile(path, []byte("peer_update_interval: [this is not a string\n"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	if _, err := Load(path); err == nil {
		t.Error("expected error for malformed YAML")
	}
}
