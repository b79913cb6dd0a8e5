// Copyright 2026 The Vigil Authors
// SPDX-License-Identifier: Apache-2.0

package lockfile

import (
	"fmt"
	"os"
	"time"

	"github.com/gofrs/flock"

	"github.com/vigil-systems/vigil/lib/clock"
)

// drainInterval is the pause between non-blocking probe attempts while
// draining stale unlocked state before the blocking death wait.
const drainInterval = time.Millisecond

// Lock is an advisory exclusive lock on a zero-length marker file. The
// kernel releases the lock automatically when the holding process
// terminates for any reason, including SIGKILL. That release-on-death
// property is what makes a held Lock usable as a death oracle: a
// successful blocking acquisition of a sibling's lock means the
// sibling process is gone.
//
// The lock is tied to the open file description, not the path: two
// Locks on the same path contend even within one process, which the
// tests rely on.
type Lock struct {
	path string
	fl   *flock.Flock
}

// New creates a Lock for path. The marker file is created on first
// acquisition attempt if absent; call EnsureExists beforehand when the
// file must be visible before any acquisition.
func New(path string) *Lock {
	return &Lock{path: path, fl: flock.New(path)}
}

// Path returns the marker file path.
func (l *Lock) Path() string { return l.path }

// TryAcquire attempts to take the exclusive lock without blocking.
// Returns true when the lock was taken, false when another open file
// description holds it.
func (l *Lock) TryAcquire() (bool, error) {
	ok, err := l.fl.TryLock()
	if err != nil {
		return false, fmt.Errorf("locking %s: %w", l.path, err)
	}
	return ok, nil
}

// Acquire blocks until the exclusive lock is taken. There is no
// timeout: the call returns only when the current holder releases the
// lock or dies.
func (l *Lock) Acquire() error {
	if err := l.fl.Lock(); err != nil {
		return fmt.Errorf("waiting for lock on %s: %w", l.path, err)
	}
	return nil
}

// Release drops the lock but keeps the file descriptor open for
// further acquisition attempts.
func (l *Lock) Release() error {
	if err := l.fl.Unlock(); err != nil {
		return fmt.Errorf("unlocking %s: %w", l.path, err)
	}
	return nil
}

// Close releases the lock (if held) and closes the underlying file.
func (l *Lock) Close() error {
	return l.fl.Close()
}

// Acquire takes the exclusive lock on path with a single non-blocking
// attempt and holds it for the life of the process. This is the
// "mark self alive" operation: the returned Lock is deliberately
// never released by the caller — the kernel releases it at process
// death, which is the signal the sibling guard waits on.
func Acquire(path string) (*Lock, error) {
	if err := EnsureExists(path); err != nil {
		return nil, err
	}
	lock := New(path)
	ok, err := lock.TryAcquire()
	if err != nil {
		return nil, err
	}
	if !ok {
		lock.Close()
		return nil, fmt.Errorf("lock on %s: %w", path, ErrLockUnavailable)
	}
	return lock, nil
}

// WaitAcquire blocks until the lock on path can be taken. Before
// blocking it drains stale unlocked state: as long as a non-blocking
// probe succeeds the lock is merely uncontended (the watched process
// has not taken it yet), so the probe releases and retries after a
// short pause. Only once the probe fails — the watched process
// actually holds the lock — does the call fall through to the
// blocking acquisition, whose success then means the holder died.
//
// There is no timeout. The call suspends the whole process until the
// watched process terminates, which is the entire job of a guard in
// its monitoring phase.
func WaitAcquire(path string, clk clock.Clock) (*Lock, error) {
	if err := EnsureExists(path); err != nil {
		return nil, err
	}
	lock := New(path)
	for {
		ok, err := lock.TryAcquire()
		if err != nil {
			lock.Close()
			return nil, err
		}
		if !ok {
			break
		}
		if err := lock.Release(); err != nil {
			lock.Close()
			return nil, err
		}
		clk.Sleep(drainInterval)
	}
	if err := lock.Acquire(); err != nil {
		lock.Close()
		return nil, err
	}
	return lock, nil
}

// EnsureExists creates the zero-length marker file at path when it
// does not already exist. Content is never read; only the file's
// lock state and existence matter.
func EnsureExists(path string) error {
	file, err := os.OpenFile(path, os.O_CREATE|os.O_RDONLY, 0600)
	if err != nil {
		return fmt.Errorf("creating marker file %s: %w", path, err)
	}
	return file.Close()
}
