// (c) Siemens AG 2023
//
// SPDX-License-Identifier: MIT

package config

import (
	"bytes"
	"fmt"
	"os"

	"github.com/xodpool/cfedge/locations"
	"github.com/xodpool/cfedge/probe"
	"github.com/xodpool/cfedge/registry"

	"gopkg.in/yaml.v3"
)

// Config collects the scan's tunables. All fields carry usable defaults;
// an optional YAML config file overrides them, and command-line flags in
// turn override the file.
type Config struct {
	Workers        int      `yaml:"workers"`         // concurrent probe limit
	Port           uint16   `yaml:"port"`            // transport port to probe
	ConnectTimeout Duration `yaml:"connect-timeout"` // per-candidate connection attempt limit
	RequestTimeout Duration `yaml:"request-timeout"` // per-candidate validation request limit
	MaxDuration    Duration `yaml:"max-duration"`    // total round-trip ceiling
	TraceURL       string   `yaml:"trace-url"`       // diagnostic validation endpoint
	RegistryURL    string   `yaml:"registry-url"`    // routing-registry API base URL
	PrefixDB       string   `yaml:"prefix-db"`       // optional offline ip2asn TSV dump
	LocationsURL   string   `yaml:"locations-url"`   // location table source
	LocationsCache string   `yaml:"locations-cache"` // location table cache file
	OutputDir      string   `yaml:"output-dir"`      // where per-operator CSV files go
}

// Default returns the stock configuration: 50 workers probing port 443
// under the usual 1s/1s/2s timing policy.
func Default() Config {
	return Config{
		Workers:        50,
		Port:           443,
		ConnectTimeout: Duration(probe.DefaultConnectTimeout),
		RequestTimeout: Duration(probe.DefaultRequestTimeout),
		MaxDuration:    Duration(probe.DefaultMaxDuration),
		TraceURL:       probe.DefaultTraceURL,
		RegistryURL:    registry.DefaultBaseURL,
		LocationsURL:   locations.DefaultURL,
		LocationsCache: locations.DefaultCachePath,
		OutputDir:      ".",
	}
}

// Load returns the default configuration with the YAML file at path
// unmarshalled over it. Unknown keys are an error, so typos don't silently
// scan with defaults.
func Load(path string) (Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("cannot read config file: %w", err)
	}
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil {
		return Config{}, fmt.Errorf("malformed config file %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config file %s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks the configuration for nonsense that would otherwise
// surface only deep inside a running scan.
func (c Config) Validate() error {
	if c.Workers < 1 {
		return fmt.Errorf("workers must be at least 1, got %d", c.Workers)
	}
	if c.Port == 0 {
		return fmt.Errorf("port must be non-zero")
	}
	if c.ConnectTimeout <= 0 || c.RequestTimeout <= 0 || c.MaxDuration <= 0 {
		return fmt.Errorf("timeouts and the duration ceiling must be positive")
	}
	if c.TraceURL == "" {
		return fmt.Errorf("trace-url must not be empty")
	}
	return nil
}
