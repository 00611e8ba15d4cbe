// Package config loads and validates the ramasyncd configuration file.
//
// The file is YAML; absent fields fall back to defaults, and the merged
// result is checked against an embedded CUE schema so a bad config fails
// at startup with a position-aware message instead of misbehaving later.
package config

import (
	"bytes"
	_ "embed"
	"fmt"
	"os"
	"time"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"
	"gopkg.in/yaml.v3"
)

//go:embed schema.cue
var schemaSource string

// Gateway configures the remote donation endpoint.
type Gateway struct {
	BaseURL        string `yaml:"baseUrl" json:"baseUrl"`
	Token          string `yaml:"token" json:"token,omitempty"`
	TimeoutSeconds int    `yaml:"timeoutSeconds" json:"timeoutSeconds"`
}

// Database configures the local store.
type Database struct {
	Path string `yaml:"path" json:"path"`
}

// Sync configures the pass scheduler.
type Sync struct {
	IntervalSeconds   int `yaml:"intervalSeconds" json:"intervalSeconds"`
	RecordDelayMillis int `yaml:"recordDelayMillis" json:"recordDelayMillis"`
}

// Network configures the connectivity monitor.
type Network struct {
	ProbeURL             string `yaml:"probeUrl" json:"probeUrl"`
	ProbeIntervalSeconds int    `yaml:"probeIntervalSeconds" json:"probeIntervalSeconds"`
	StableProbes         int    `yaml:"stableProbes" json:"stableProbes"`
}

// API configures the local status/admin HTTP listener.
type API struct {
	Listen string `yaml:"listen" json:"listen"`
}

// Config is the full daemon configuration.
type Config struct {
	Gateway  Gateway  `yaml:"gateway" json:"gateway"`
	Database Database `yaml:"database" json:"database"`
	Sync     Sync     `yaml:"sync" json:"sync"`
	Network  Network  `yaml:"network" json:"network"`
	API      API      `yaml:"api" json:"api"`
}

// Default returns the built-in configuration. Every field validates, so a
// config file only needs the values it wants to change.
func Default() Config {
	return Config{
		Gateway: Gateway{
			BaseURL:        "http://localhost:5200",
			TimeoutSeconds: 30,
		},
		Database: Database{
			Path: "donations.db",
		},
		Sync: Sync{
			IntervalSeconds:   300,
			RecordDelayMillis: 250,
		},
		Network: Network{
			ProbeURL:             "http://localhost:5200/api/health",
			ProbeIntervalSeconds: 10,
			StableProbes:         2,
		},
		API: API{
			Listen: "127.0.0.1:8787",
		},
	}
}

// Load reads the YAML file at path, merges it over the defaults, and
// validates the result. An empty path returns the validated defaults.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("read config: %w", err)
		}
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(&cfg); err != nil {
			return cfg, fmt.Errorf("parse config %s: %w", path, err)
		}
	}
	if err := Validate(cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Validate checks a Config against the embedded schema.
func Validate(cfg Config) error {
	ctx := cuecontext.New()

	schema := ctx.CompileString(schemaSource)
	if err := schema.Err(); err != nil {
		return fmt.Errorf("compile config schema: %w", err)
	}
	def := schema.LookupPath(cue.ParsePath("#Config"))
	if err := def.Err(); err != nil {
		return fmt.Errorf("config schema missing #Config: %w", err)
	}

	val := ctx.Encode(cfg)
	if err := val.Err(); err != nil {
		return fmt.Errorf("encode config: %w", err)
	}

	unified := def.Unify(val)
	if err := unified.Validate(cue.Concrete(true)); err != nil {
		return fmt.Errorf("invalid config: %s", cueerrors.Details(err, nil))
	}
	return nil
}

// SyncInterval returns the pass interval as a duration.
func (c Config) SyncInterval() time.Duration {
	return time.Duration(c.Sync.IntervalSeconds) * time.Second
}

// RecordDelay returns the inter-record delay as a duration.
func (c Config) RecordDelay() time.Duration {
	return time.Duration(c.Sync.RecordDelayMillis) * time.Millisecond
}

// GatewayTimeout returns the HTTP client timeout as a duration.
func (c Config) GatewayTimeout() time.Duration {
	return time.Duration(c.Gateway.TimeoutSeconds) * time.Second
}

// ProbeInterval returns the connectivity probe cadence as a duration.
func (c Config) ProbeInterval() time.Duration {
	return time.Duration(c.Network.ProbeIntervalSeconds) * time.Second
}
