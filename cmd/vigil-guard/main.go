// Copyright 2026 The Vigil Authors
// SPDX-License-Identifier: Apache-2.0

// Vigil-guard runs a mutual life-guard pair for one Android component.
// The process re-executes itself to create a detached daemon sibling;
// the two instances then hold indicator-file locks and block on each
// other's. Whichever side survives the other's death submits one
// oneway startService transaction straight to the binder driver to
// revive the configured component, then tears its process group down.
//
// Configuration comes from a YAML file (--config or VIGIL_CONFIG)
// with individual flag overrides; flag-only operation works too. The
// --respawn-role flag is internal plumbing between the stages of the
// self-re-execution and is not meant to be set by operators, except
// "daemon" for debugging a single detached instance.
package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"
	"strconv"

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
		stateDir         string
		packageName      string
		serviceName      string
		platformRevision int
		respawnRole      string
		showVersion      bool
	)

	flag.StringVar(&configPath, "config", "", "YAML config file (default: $"+config.EnvVar+")")
	flag.StringVar(&driver, "driver", "", "binder device path (overrides config)")
	flag.StringVar(&stateDir, "state-dir", "", "directory for indicator and observer files (overrides config)")
	flag.StringVar(&packageName, "package", "", "application package to revive (overrides config)")
	flag.StringVar(&serviceName, "service", "", "service class to revive (overrides config)")
	flag.IntVar(&platformRevision, "platform-revision", 0, "Android API level of the host (overrides config)")
	flag.StringVar(&respawnRole, "respawn-role", "", "internal: stage of the self-re-execution (middle, daemon)")
	flag.BoolVar(&showVersion, "version", false, "print version information and exit")
	flag.Parse()

	if showVersion {
		fmt.Printf("vigil-guard %s\n", version.Info())
		return nil
	}

	cfg, err := resolveConfig(configPath, driver, stateDir, packageName, serviceName, platformRevision)
	if err != nil {
		return err
	}

	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)
	logger = logger.With("pid", os.Getpid())

	if err := os.MkdirAll(cfg.StateDir, 0o700); err != nil {
		return fmt.Errorf("creating state dir: %w", err)
	}

	opts := guard.PairOptions{
		Paths: guard.PairPaths(cfg.StateDir),
		Connect: guard.DriverConnector(guard.RevivalConfig{
			Device:           cfg.Driver,
			Package:          cfg.Package,
			Service:          cfg.Service,
			PlatformRevision: cfg.PlatformRevision,
		}, logger),
		RespawnArgs: stageArgs(cfg, "middle"),
		Logger:      logger,
	}

	switch respawnRole {
	case "":
		logger.Info("starting guard pair",
			"component", cfg.Package+"/"+cfg.Service,
			"state_dir", cfg.StateDir)
		return guard.StartPair(opts)

	case "middle":
		// Middle stage: hand the daemon to init and vanish.
		return guard.SpawnDetached(stageArgs(cfg, "daemon"), logger)

	case "daemon":
		// The middle already put us in a new session via SysProcAttr;
		// this only matters when the daemon stage is launched by hand.
		if err := process.SetSessionLeader(); err != nil {
			logger.Debug("setsid declined, keeping inherited session", "error", err)
		}
		return guard.RunDetached(opts)

	default:
		return fmt.Errorf("unknown respawn role %q", respawnRole)
	}
}

// resolveConfig layers flag overrides onto the config file (or the
// defaults when no file is named anywhere).
func resolveConfig(path, driver, stateDir, packageName, serviceName string, platformRevision int) (*config.Config, error) {
	var cfg *config.Config
	if path != "" || os.Getenv(config.EnvVar) != "" {
		loaded, err := config.Load(path)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	} else {
		cfg = config.Default()
	}

	if driver != "" {
		cfg.Driver = driver
	}
	if stateDir != "" {
		cfg.StateDir = stateDir
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

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// stageArgs builds the argument vector for a re-executed stage. The
// resolved configuration travels as explicit flags so the child needs
// neither the config file nor the environment variable.
func stageArgs(cfg *config.Config, role string) []string {
	return []string{
		"--driver", cfg.Driver,
		"--state-dir", cfg.StateDir,
		"--package", cfg.Package,
		"--service", cfg.Service,
		"--platform-revision", strconv.Itoa(cfg.PlatformRevision),
		"--respawn-role", role,
	}
}
