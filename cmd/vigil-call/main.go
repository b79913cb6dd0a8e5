// Copyright 2026 The Vigil Authors
// SPDX-License-Identifier: Apache-2.0

// Vigil-call fires a single startService transaction at the binder
// driver and exits. It is the deployment smoke test for vigil-guard:
// if this binary can open the driver, resolve the activity service,
// and enqueue the oneway call, a guard pair on the same host can
// revive the component.
package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/vigil-systems/vigil/guard"
	"github.com/vigil-systems/vigil/lib/config"
	"github.com/vigil-systems/vigil/lib/process"
	"github.com/vigil-systems/vigil/lib/version"
)

func main() {
	if err := run(); err != nil {
		process.Fatal(err)
	}
}

func run() error {
	var (
		configPath       string
		driver           string
		packageName      string
		serviceName      string
		platformRevision int
		verbose          bool
		showVersion      bool
	)

	flag.StringVar(&configPath, "config", "", "YAML config file (default: $"+config.EnvVar+")")
	flag.StringVar(&driver, "driver", "", "binder device path (overrides config)")
	flag.StringVar(&packageName, "package", "", "application package to start (overrides config)")
	flag.StringVar(&serviceName, "service", "", "service class to start (overrides config)")
	flag.IntVar(&platformRevision, "platform-revision", 0, "Android API level of the host (overrides config)")
	flag.BoolVar(&verbose, "verbose", false, "log the driver exchange at debug level")
	flag.BoolVar(&showVersion, "version", false, "print version information and exit")
	flag.Parse()

	if showVersion {
		fmt.Printf("vigil-call %s\n", version.Info())
		return nil
	}

	var cfg *config.Config
	if configPath != "" || os.Getenv(config.EnvVar) != "" {
		loaded, err := config.Load(configPath)
		if err != nil {
			return err
		}
		cfg = loaded
	} else {
		cfg = config.Default()
	}
	if driver != "" {
		cfg.Driver = driver
	}
	if packageName != "" {
		cfg.Package = packageName
	}
	if serviceName != "" {
		cfg.Service = serviceName
	}
	if platformRevision != 0 {
		cfg.PlatformRevision = platformRevision
	}
	// The call needs no state directory; validate only what it uses.
	if cfg.Package == "" || cfg.Service == "" || cfg.PlatformRevision <= 0 {
		return fmt.Errorf("--package, --service, and --platform-revision are required")
	}

	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)

	return guard.TestTransaction(guard.RevivalConfig{
		Device:           cfg.Driver,
		Package:          cfg.Package,
		Service:          cfg.Service,
		PlatformRevision: cfg.PlatformRevision,
	}, logger)
}
