// Copyright 2026 The Vigil Authors
// SPDX-License-Identifier: Apache-2.0

package guard

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/vigil-systems/vigil/lib/clock"
	"github.com/vigil-systems/vigil/lib/lockfile"
	"github.com/vigil-systems/vigil/lib/process"
)

// Own-lock acquisition policy: five non-blocking attempts with a
// fixed short backoff, then give up silently (this guard simply never
// runs; the system is not otherwise affected).
const (
	selfLockAttempts = 5
	selfLockBackoff  = 10 * time.Millisecond
)

// RevivalSender delivers the prepared revival transaction. The
// production implementation submits a prebuilt oneway startService
// call through the binder engine; tests substitute a recorder.
type RevivalSender interface {
	// Send enqueues the revival transaction. Best-effort: the call is
	// fire-and-forget, so success means enqueued, not delivered.
	Send() error
}

// Instance is one guard: one OS process running the dead-man-switch
// state machine against its own four marker files. Exactly two
// instances guard a monitored pair, communicating only through the
// filesystem.
type Instance struct {
	// Role labels this instance for logging and path selection.
	Role Role

	// Paths are the instance's marker files.
	Paths Paths

	// Connect opens the transport and prepares the revival
	// transaction. Called at the top of Monitoring, before the death
	// wait, so the trigger path does no setup work.
	Connect func() (RevivalSender, error)

	// Logger receives the instance's structured log output.
	Logger *slog.Logger

	// Clock drives backoff and polling. Defaults to clock.Real().
	Clock clock.Clock

	// OnTransition, when set, observes every state change in order.
	OnTransition func(State)

	// Terminate ends the process after a trigger. Defaults to
	// SIGTERM to the whole process group. Tests override it.
	Terminate func() error

	// selfLock holds the own-indicator lock from LockingSelf until
	// process death. Tests close it to simulate dying.
	selfLock *lockfile.Lock
}

// Run executes the state machine to completion. It returns after
// Terminated; for a triggered instance the Terminate hook normally
// ends the process before the return is observed.
//
// All failures are terminal and silent from the system's point of
// view: the error return and the log are the only witnesses, and the
// caller is expected to exit either way.
func (in *Instance) Run() error {
	logger := in.Logger.With("role", in.Role.String())
	clk := in.Clock
	if clk == nil {
		clk = clock.Real()
	}

	in.transition(StateInit)
	if err := lockfile.EnsureExists(in.Paths.SelfIndicator); err != nil {
		in.transition(StateTerminated)
		return err
	}
	if err := lockfile.EnsureExists(in.Paths.SiblingIndicator); err != nil {
		in.transition(StateTerminated)
		return err
	}

	in.transition(StateLockingSelf)
	if err := in.lockSelf(clk, logger); err != nil {
		in.transition(StateTerminated)
		return err
	}
	logger.Info("own indicator locked", "path", in.Paths.SelfIndicator)

	in.transition(StateSyncing)
	barrier := &lockfile.Barrier{
		Self:    lockfile.NewObserver(in.Paths.SelfObserver),
		Sibling: lockfile.NewObserver(in.Paths.SiblingObserver),
	}
	if err := barrier.Sync(clk); err != nil {
		in.transition(StateTerminated)
		return fmt.Errorf("barrier sync: %w", err)
	}
	logger.Info("pair synchronized")

	in.transition(StateMonitoring)
	sender, err := in.Connect()
	if err != nil {
		in.transition(StateTerminated)
		return fmt.Errorf("preparing revival transport: %w", err)
	}

	logger.Info("monitoring sibling", "path", in.Paths.SiblingIndicator)
	siblingLock, err := lockfile.WaitAcquire(in.Paths.SiblingIndicator, clk)
	if err != nil {
		in.transition(StateTerminated)
		return fmt.Errorf("death wait: %w", err)
	}
	defer siblingLock.Close()

	// The sibling is dead. One revival, teardown, exit.
	in.transition(StateTriggered)
	logger.Warn("sibling death detected, firing revival")
	if err := sender.Send(); err != nil {
		logger.Error("revival submission failed", "error", err)
	} else {
		logger.Info("revival transaction enqueued")
	}

	// Retract the own announcement so a future restart of the pair
	// does not consume a stale one.
	if err := lockfile.NewObserver(in.Paths.SelfObserver).Consume(); err != nil {
		logger.Error("removing own observer file", "error", err)
	}

	terminate := in.Terminate
	if terminate == nil {
		terminate = process.TerminateGroup
	}
	if err := terminate(); err != nil {
		logger.Error("termination signal failed", "error", err)
	}

	in.transition(StateTerminated)
	return nil
}

// lockSelf acquires the own indicator lock with bounded retries.
func (in *Instance) lockSelf(clk clock.Clock, logger *slog.Logger) error {
	in.selfLock = lockfile.New(in.Paths.SelfIndicator)
	for attempt := 1; attempt <= selfLockAttempts; attempt++ {
		ok, err := in.selfLock.TryAcquire()
		if err != nil {
			in.selfLock.Close()
			return err
		}
		if ok {
			return nil
		}
		logger.Debug("own indicator contended, retrying", "attempt", attempt)
		clk.Sleep(selfLockBackoff)
	}
	in.selfLock.Close()
	logger.Warn("own indicator lock unavailable, guard will not run",
		"path", in.Paths.SelfIndicator)
	return fmt.Errorf("locking own indicator %s: %w", in.Paths.SelfIndicator, lockfile.ErrLockUnavailable)
}

// transition records a state change with the optional hook.
func (in *Instance) transition(state State) {
	if in.OnTransition != nil {
		in.OnTransition(state)
	}
}
