// Copyright 2026 The Vigil Authors
// SPDX-License-Identifier: Apache-2.0

package lockfile

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/vigil-systems/vigil/lib/clock"
)

// observerPollInterval bounds how stale the barrier wait can be when
// an fsnotify event is missed or no watcher could be created.
const observerPollInterval = 50 * time.Millisecond

// Observer is a one-shot filesystem barrier signal between two
// processes. Existence of the file means "announcement made"; deletion
// means "announcement consumed". Each observer file has exactly one
// legitimate deleter: the counterpart process consuming the
// announcement. Content is never read.
type Observer struct {
	path string
}

// NewObserver creates an Observer for path. No file is touched until
// Announce.
func NewObserver(path string) *Observer {
	return &Observer{path: path}
}

// Path returns the observer file path.
func (o *Observer) Path() string { return o.path }

// Announce creates the observer file, publishing this side's
// readiness. Announcing twice is harmless: the file already existing
// is still a single announcement until consumed.
func (o *Observer) Announce() error {
	file, err := os.OpenFile(o.path, os.O_CREATE|os.O_RDONLY, 0600)
	if err != nil {
		return fmt.Errorf("announcing on %s: %w", o.path, err)
	}
	return file.Close()
}

// AwaitAnnouncement blocks until the observer file exists. The wait is
// driven by an fsnotify watch on the parent directory with a periodic
// existence poll as a safety net; when no watcher can be created
// (exotic filesystems), the poll alone carries the wait. There is no
// timeout: the barrier holds until the counterpart announces.
func (o *Observer) AwaitAnnouncement(clk clock.Clock) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		watcher = nil
	} else if err := watcher.Add(filepath.Dir(o.path)); err != nil {
		watcher.Close()
		watcher = nil
	}
	if watcher != nil {
		defer watcher.Close()
	}

	// Check after the watch is in place so a creation between the
	// stat and the first event cannot be missed.
	for {
		exists, err := o.exists()
		if err != nil {
			return err
		}
		if exists {
			return nil
		}

		if watcher == nil {
			clk.Sleep(observerPollInterval)
			continue
		}

		select {
		case event := <-watcher.Events:
			if event.Name == o.path && event.Op.Has(fsnotify.Create) {
				return nil
			}
		case err := <-watcher.Errors:
			return fmt.Errorf("watching for %s: %w", o.path, err)
		case <-clk.After(observerPollInterval):
			// Re-check existence on the next loop iteration.
		}
	}
}

// Consume deletes the observer file, marking the announcement as
// received. Idempotent: a missing file counts as already consumed.
func (o *Observer) Consume() error {
	if err := os.Remove(o.path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("consuming announcement %s: %w", o.path, err)
	}
	return nil
}

func (o *Observer) exists() (bool, error) {
	_, err := os.Stat(o.path)
	if err == nil {
		return true, nil
	}
	if os.IsNotExist(err) {
		return false, nil
	}
	return false, fmt.Errorf("checking %s: %w", o.path, err)
}

// Barrier is the two-party startup rendezvous: each side announces on
// its own observer file, waits for the sibling's announcement, and
// consumes it. After Sync returns on both sides, both processes are
// known to have reached the barrier and each announcement has been
// consumed exactly once.
type Barrier struct {
	// Self is this side's observer file.
	Self *Observer

	// Sibling is the counterpart's observer file.
	Sibling *Observer
}

// Sync runs the barrier protocol: announce, await the sibling,
// consume. Blocks until the sibling has announced; no timeout.
func (b *Barrier) Sync(clk clock.Clock) error {
	if err := b.Self.Announce(); err != nil {
		return err
	}
	if err := b.Sibling.AwaitAnnouncement(clk); err != nil {
		return err
	}
	return b.Sibling.Consume()
}
