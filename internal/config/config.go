package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds every knob of the pipeline. One configurable pipeline,
// parameterized here, replaces the older per-use-case script variants.
type Config struct {
	// Inputs and outputs.
	SourcesFile   string `yaml:"sources_file"`
	BlacklistFile string `yaml:"blacklist_file"`
	OutputDir     string `yaml:"output_dir"`

	// Fetch stage.
	FetchConcurrency    int `yaml:"fetch_concurrency"`
	FetchTimeoutSeconds int `yaml:"fetch_timeout_seconds"`
	ConnectTimeoutMs    int `yaml:"connect_timeout_ms"`

	// Verification stage.
	BatchSize           int      `yaml:"batch_size"`
	BatchPauseMs        int      `yaml:"batch_pause_ms"`
	ProbeTimeoutSeconds int      `yaml:"probe_timeout_seconds"`
	LatencyCeilingMs    int      `yaml:"latency_ceiling_ms"`
	ProbeEndpoints      []string `yaml:"probe_endpoints"`

	// Optional geo stage. Empty TargetCountry disables it.
	TargetCountry    string `yaml:"target_country"`
	GeoLookupsPerMin int    `yaml:"geo_lookups_per_min"`
	GeoAPIURL        string `yaml:"geo_api_url"`
	GeoIPDatabase    string `yaml:"geoip_database"`

	// Output flavor.
	AnnotateLatency bool `yaml:"annotate_latency"`

	Verbose bool `yaml:"verbose"`
}

// Default returns the baseline profile. Values mirror what the hosted
// scraper runs with in production.
func Default() Config {
	return Config{
		SourcesFile:         "sites.txt",
		BlacklistFile:       "blacklist.txt",
		OutputDir:           "proxy",
		FetchConcurrency:    100,
		FetchTimeoutSeconds: 10,
		ConnectTimeoutMs:    2000,
		BatchSize:           500,
		BatchPauseMs:        200,
		ProbeTimeoutSeconds: 5,
		LatencyCeilingMs:    1500,
		ProbeEndpoints: []string{
			"http://ip-api.com/json/",
			"http://httpbin.org/ip",
			"http://ipinfo.io/json",
		},
		GeoLookupsPerMin: 30,
		GeoAPIURL:        "http://ip-api.com/json",
	}
}

// Load reads a YAML profile on top of the defaults. An empty path returns
// the defaults untouched.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config profile: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config profile: %w", err)
	}
	return cfg, cfg.Validate()
}

// Validate rejects profiles that would stall or crash the pipeline.
func (c Config) Validate() error {
	if c.BatchSize < 1 {
		return fmt.Errorf("batch_size must be >= 1, got %d", c.BatchSize)
	}
	if c.FetchConcurrency < 1 {
		return fmt.Errorf("fetch_concurrency must be >= 1, got %d", c.FetchConcurrency)
	}
	if len(c.ProbeEndpoints) == 0 {
		return fmt.Errorf("probe_endpoints must not be empty")
	}
	if c.TargetCountry != "" && c.GeoLookupsPerMin < 1 {
		return fmt.Errorf("geo_lookups_per_min must be >= 1, got %d", c.GeoLookupsPerMin)
	}
	return nil
}

// GeoEnabled reports whether the optional geo-classification stage runs.
func (c Config) GeoEnabled() bool {
	return c.TargetCountry != ""
}

func (c Config) FetchTimeout() time.Duration {
	return time.Duration(c.FetchTimeoutSeconds) * time.Second
}

func (c Config) ConnectTimeout() time.Duration {
	return time.Duration(c.ConnectTimeoutMs) * time.Millisecond
}

func (c Config) BatchPause() time.Duration {
	return time.Duration(c.BatchPauseMs) * time.Millisecond
}

func (c Config) ProbeTimeout() time.Duration {
	return time.Duration(c.ProbeTimeoutSeconds) * time.Second
}

func (c Config) LatencyCeiling() time.Duration {
	return time.Duration(c.LatencyCeilingMs) * time.Millisecond
}
