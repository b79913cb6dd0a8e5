// Copyright 2026 The Vigil Authors
// SPDX-License-Identifier: Apache-2.0

package guard

import (
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"syscall"

	"github.com/vigil-systems/vigil/lib/clock"
)

// PairOptions configures StartPair.
type PairOptions struct {
	// Paths is the original role's path set (see PairPaths); the
	// detached role runs against its mirror.
	Paths Paths

	// Connect prepares the revival transport (see Instance.Connect).
	// Both roles use the same connector.
	Connect func() (RevivalSender, error)

	// RespawnArgs is the argument vector (excluding the binary) that
	// makes this same binary run the middle respawn stage. The middle
	// stage spawns the detached daemon and exits immediately.
	RespawnArgs []string

	// Logger receives both the pair bookkeeping and the original
	// instance's log output.
	Logger *slog.Logger

	// Clock drives backoff and polling; defaults to clock.Real().
	Clock clock.Clock
}

// StartPair launches a guard pair: a detached daemon instance plus
// this process as the original instance.
//
// The Go runtime cannot fork() without exec, so the source topology's
// double fork becomes a double spawn: this process re-executes its
// own binary as a short-lived middle process; the middle spawns the
// detached daemon in a new session and exits at once, reparenting the
// daemon to init. This process reaps the middle (no transient zombie)
// and then runs its own instance of the state machine, blocking until
// that instance terminates.
func StartPair(opts PairOptions) error {
	executable, err := os.Executable()
	if err != nil {
		return fmt.Errorf("locating own binary: %w", err)
	}

	middle := exec.Command(executable, opts.RespawnArgs...)
	middle.Stdout = os.Stdout
	middle.Stderr = os.Stderr
	if err := middle.Start(); err != nil {
		return fmt.Errorf("spawning respawn stage: %w", err)
	}
	opts.Logger.Info("respawn stage started", "pid", middle.Process.Pid)

	// Reap the middle process before guarding begins.
	if err := middle.Wait(); err != nil {
		return fmt.Errorf("respawn stage failed: %w", err)
	}

	instance := &Instance{
		Role:    RoleOriginal,
		Paths:   opts.Paths,
		Connect: opts.Connect,
		Logger:  opts.Logger,
		Clock:   opts.Clock,
	}
	return instance.Run()
}

// SpawnDetached is the middle-stage body: start the detached daemon
// and return so the middle process can exit, handing the daemon to
// init. The daemon runs this same binary with daemonArgs and gets its
// own session (setsid), so no terminal or process-group signal aimed
// at the original tree reaches it.
func SpawnDetached(daemonArgs []string, logger *slog.Logger) error {
	executable, err := os.Executable()
	if err != nil {
		return fmt.Errorf("locating own binary: %w", err)
	}

	daemon := exec.Command(executable, daemonArgs...)
	daemon.SysProcAttr = &syscall.SysProcAttr{Setsid: true}
	daemon.Stdout = os.Stdout
	daemon.Stderr = os.Stderr
	if err := daemon.Start(); err != nil {
		return fmt.Errorf("spawning detached daemon: %w", err)
	}
	logger.Info("detached daemon started", "pid", daemon.Process.Pid)

	// The daemon outlives us; drop the handle rather than waiting.
	return daemon.Process.Release()
}

// RunDetached is the daemon-stage body: run the state machine as the
// detached role against the mirror of the original role's path set.
// Blocks for the life of the daemon.
func RunDetached(opts PairOptions) error {
	instance := &Instance{
		Role:    RoleDetached,
		Paths:   opts.Paths.Mirrored(),
		Connect: opts.Connect,
		Logger:  opts.Logger,
		Clock:   opts.Clock,
	}
	return instance.Run()
}
