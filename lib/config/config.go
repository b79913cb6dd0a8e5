// Copyright 2026 The Vigil Authors
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// EnvVar is the environment variable naming the config file when no
// --config flag is passed.
const EnvVar = "VIGIL_CONFIG"

// Config is the configuration for a Vigil guard pair. A single YAML
// file, no discovery, no hidden overrides: the file named by --config
// or VIGIL_CONFIG is the whole story. Flags override individual
// fields after loading.
type Config struct {
	// Driver is the binder device path. Defaults to /dev/binder.
	Driver string `yaml:"driver"`

	// StateDir is the directory holding the indicator and observer
	// marker files. The original role owns the bare guard.indicator
	// and guard.observer files under it; the detached role owns the
	// "-c" variants; each role watches the other's.
	StateDir string `yaml:"state_dir"`

	// Package is the application package whose component is revived.
	Package string `yaml:"package"`

	// Service is the fully qualified class name of the component to
	// revive.
	Service string `yaml:"service"`

	// PlatformRevision is the Android API level of the host. It
	// selects both the startService payload layout and the
	// transaction code.
	PlatformRevision int `yaml:"platform_revision"`
}

// Load reads and validates a config file. When path is empty, the
// VIGIL_CONFIG environment variable is consulted; when that is also
// empty, Load returns an error rather than guessing.
func Load(path string) (*Config, error) {
	if path == "" {
		path = os.Getenv(EnvVar)
	}
	if path == "" {
		return nil, errors.New("no config file: pass --config or set " + EnvVar)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config %s: %w", path, err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

// Default returns a Config with the defaults applied. Callers that
// skip Load (flag-only operation) start from here.
func Default() *Config {
	return &Config{
		Driver:   "/dev/binder",
		StateDir: "/data/local/tmp/vigil",
	}
}

// Validate checks that the configuration is complete and internally
// consistent.
func (c *Config) Validate() error {
	if c.Driver == "" {
		return errors.New("driver must not be empty")
	}
	if c.StateDir == "" {
		return errors.New("state_dir must not be empty")
	}
	if !filepath.IsAbs(c.StateDir) {
		return fmt.Errorf("state_dir %q must be absolute", c.StateDir)
	}
	if c.Package == "" {
		return errors.New("package is required")
	}
	if c.Service == "" {
		return errors.New("service is required")
	}
	if c.PlatformRevision <= 0 {
		return errors.New("platform_revision is required")
	}
	return nil
}
