// Package config provides configuration management for drmdiag.
//
// Everything here is resolved once at startup and treated as immutable for
// the rest of the run: filesystem roots (Paths), probe timing, and the gate
// policy knobs. Components receive the config by injection rather than
// reading globals, so tests can substitute a fake state tree.
//
// Config file locations (priority order):
//  1. $DRMDIAG_CONFIG
//  2. ./drmdiag.yaml
//  3. ~/.config/drmdiag/config.yaml
//  4. /etc/drmdiag/config.yaml
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the full tool configuration.
type Config struct {
	Version  int            `yaml:"version"`
	Paths    Paths          `yaml:"paths"`
	Probes   ProbeConfig    `yaml:"probes"`
	Policy   PolicyConfig   `yaml:"policy"`
	Log      LogConfig      `yaml:"log"`
	Database DatabaseConfig `yaml:"database"`
}

// ProbeConfig bounds every blocking wait the runtime probes perform. No
// probe blocks for longer than its configured duration.
type ProbeConfig struct {
	// VBlankWait is the interval between the two vblank counter reads.
	VBlankWait Duration `yaml:"vblank_wait"`
	// FlipSamples is the number of framebuffer-state samples taken.
	FlipSamples int `yaml:"flip_samples"`
	// FlipInterval is the wait between consecutive flip samples.
	FlipInterval Duration `yaml:"flip_interval"`
	// TraceWindow is the duration of the optional tracefs event capture.
	TraceWindow Duration `yaml:"trace_window"`
	// TraceEnabled turns the tracefs capture on (requires root).
	TraceEnabled bool `yaml:"trace_enabled"`
	// TraceExcerptBytes caps the trace excerpt retained in the report.
	TraceExcerptBytes int `yaml:"trace_excerpt_bytes"`
	// MaxReadBytes caps any single state read.
	MaxReadBytes int64 `yaml:"max_read_bytes"`
}

// PolicyConfig resolves the behaviors the source material is inconsistent
// about. The defaults are the conservative readings.
type PolicyConfig struct {
	// ExpectKMS treats missing KMS prerequisites as failure (desktop
	// expectation); set by the --expect-kms flag.
	ExpectKMS bool `yaml:"expect_kms"`
	// NoConnectors controls a controller exporting zero connectors:
	// "warn" records a WARN, "skip" stays silent.
	NoConnectors string `yaml:"no_connectors"`
	// UnboundController controls the per-card record for a controller
	// with no driver-binding symlink: "warn" or "fail". The aggregate
	// "no card has any driver" is always a hard failure regardless.
	UnboundController string `yaml:"unbound_controller"`
}

// LogConfig configures the structured logger.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// DatabaseConfig configures the optional run-history store.
type DatabaseConfig struct {
	// Path is the sqlite database file; empty disables persistence.
	Path string `yaml:"path"`
}

// Load finds and loads the config file, or returns defaults if none found
func Load() (*Config, string, error) {
	path := FindConfigPath()
	if path == "" {
		return DefaultConfig(), "", nil
	}
	return LoadFromPath(path)
}

// LoadFromPath loads config from a specific path
func LoadFromPath(path string) (*Config, string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, path, fmt.Errorf("read config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, path, fmt.Errorf("parse config: %w", err)
	}

	cfg.applyDefaults()

	if err := cfg.Policy.validate(); err != nil {
		return nil, path, err
	}

	return &cfg, path, nil
}

// DefaultConfig returns the defaults for a run with no config file.
func DefaultConfig() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}

// applyDefaults fills in missing values with defaults
func (c *Config) applyDefaults() {
	if c.Version == 0 {
		c.Version = 1
	}
	if c.Paths == (Paths{}) {
		c.Paths = DefaultPaths()
	}
	if c.Probes.VBlankWait == 0 {
		c.Probes.VBlankWait = Duration(500 * time.Millisecond)
	}
	if c.Probes.FlipSamples == 0 {
		c.Probes.FlipSamples = 10
	}
	if c.Probes.FlipInterval == 0 {
		c.Probes.FlipInterval = Duration(200 * time.Millisecond)
	}
	if c.Probes.TraceWindow == 0 {
		c.Probes.TraceWindow = Duration(2 * time.Second)
	}
	if c.Probes.TraceExcerptBytes == 0 {
		c.Probes.TraceExcerptBytes = 20000
	}
	if c.Probes.MaxReadBytes == 0 {
		c.Probes.MaxReadBytes = 200_000
	}
	if c.Policy.NoConnectors == "" {
		c.Policy.NoConnectors = PolicyWarn
	}
	if c.Policy.UnboundController == "" {
		c.Policy.UnboundController = PolicyWarn
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "console"
	}
}

// Policy value constants.
const (
	PolicyWarn = "warn"
	PolicySkip = "skip"
	PolicyFail = "fail"
)

func (p PolicyConfig) validate() error {
	switch p.NoConnectors {
	case PolicyWarn, PolicySkip:
	default:
		return fmt.Errorf("policy.no_connectors: %q is not one of warn, skip", p.NoConnectors)
	}
	switch p.UnboundController {
	case PolicyWarn, PolicyFail:
	default:
		return fmt.Errorf("policy.unbound_controller: %q is not one of warn, fail", p.UnboundController)
	}
	return nil
}

// Duration is a yaml-friendly wrapper around time.Duration ("500ms", "2s").
type Duration time.Duration

// Duration converts to the stdlib type.
func (d Duration) Duration() time.Duration {
	return time.Duration(d)
}

// UnmarshalYAML parses a duration string.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	parsed, err := time.ParseDuration(value.Value)
	if err != nil {
		return fmt.Errorf("parse duration %q: %w", value.Value, err)
	}
	*d = Duration(parsed)
	return nil
}

// MarshalYAML renders the duration string.
func (d Duration) MarshalYAML() (any, error) {
	return time.Duration(d).String(), nil
}
