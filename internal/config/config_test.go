package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefault(t *testing.T) {
	cfg := Default()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("defaults must validate: %v", err)
	}
	if cfg.BatchSize != 500 {
		t.Fatalf("batch size = %d", cfg.BatchSize)
	}
	if cfg.LatencyCeiling() != 1500*time.Millisecond {
		t.Fatalf("latency ceiling = %v", cfg.LatencyCeiling())
	}
	if len(cfg.ProbeEndpoints) != 3 {
		t.Fatalf("probe endpoints = %#v", cfg.ProbeEndpoints)
	}
	if cfg.GeoEnabled() {
		t.Fatalf("geo must be off by default")
	}
}

func TestLoad_ProfileOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "profile.yaml")
	profile := `
batch_size: 50
latency_ceiling_ms: 900
target_country: ID
probe_endpoints:
  - http://example.com/ip
`
	if err := os.WriteFile(path, []byte(profile), 0o644); err != nil {
		t.Fatalf("write profile: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if cfg.BatchSize != 50 {
		t.Fatalf("batch size = %d, want 50", cfg.BatchSize)
	}
	if cfg.LatencyCeiling() != 900*time.Millisecond {
		t.Fatalf("ceiling = %v", cfg.LatencyCeiling())
	}
	if !cfg.GeoEnabled() || cfg.TargetCountry != "ID" {
		t.Fatalf("geo config not applied: %#v", cfg)
	}
	if len(cfg.ProbeEndpoints) != 1 {
		t.Fatalf("probe endpoints not overridden: %#v", cfg.ProbeEndpoints)
	}
	// Untouched keys keep their defaults.
	if cfg.FetchConcurrency != 100 {
		t.Fatalf("fetch concurrency = %d, want default 100", cfg.FetchConcurrency)
	}
}

func TestLoad_EmptyPathIsDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if cfg.BatchSize != Default().BatchSize {
		t.Fatalf("empty path must return defaults")
	}
}

func TestLoad_MissingFileFails(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Fatalf("expected error for missing profile")
	}
}

func TestValidate_RejectsBrokenProfiles(t *testing.T) {
	cfg := Default()
	cfg.BatchSize = 0
	if err := cfg.Validate(); err == nil {
		t.Fatalf("zero batch size must be rejected")
	}

	cfg = Default()
	cfg.ProbeEndpoints = nil
	if err := cfg.Validate(); err == nil {
		t.Fatalf("empty endpoint list must be rejected")
	}

	cfg = Default()
	cfg.TargetCountry = "ID"
	cfg.GeoLookupsPerMin = 0
	if err := cfg.Validate(); err == nil {
		t.Fatalf("geo stage without a lookup rate must be rejected")
	}
}
