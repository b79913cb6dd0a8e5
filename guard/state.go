// Copyright 2026 The Vigil Authors
// SPDX-License-Identifier: Apache-2.0

package guard

import "path/filepath"

// State is a stop on the guard's single forward path. No transition
// ever moves backward; the only internal retry (own-lock acquisition)
// stays within LockingSelf.
type State int

const (
	// StateInit creates the marker file paths for this instance's
	// role.
	StateInit State = iota

	// StateLockingSelf acquires this instance's own indicator lock,
	// marking it alive for its sibling.
	StateLockingSelf

	// StateSyncing runs the two-party observer-file barrier.
	StateSyncing

	// StateMonitoring holds the prepared revival transaction and
	// blocks on the sibling's indicator lock — the death oracle.
	StateMonitoring

	// StateTriggered fires the revival transaction and tears down.
	StateTriggered

	// StateTerminated is the end of the path, monitoring done or
	// abandoned.
	StateTerminated
)

func (s State) String() string {
	switch s {
	case StateInit:
		return "init"
	case StateLockingSelf:
		return "locking-self"
	case StateSyncing:
		return "syncing"
	case StateMonitoring:
		return "monitoring"
	case StateTriggered:
		return "triggered"
	case StateTerminated:
		return "terminated"
	default:
		return "unknown"
	}
}

// Role distinguishes the two processes of a guard pair running the
// same state machine.
type Role int

const (
	// RoleOriginal is the process that called StartPair.
	RoleOriginal Role = iota

	// RoleDetached is the re-spawned daemon, reparented to init and
	// running in its own session.
	RoleDetached
)

func (r Role) String() string {
	switch r {
	case RoleOriginal:
		return "original"
	case RoleDetached:
		return "detached"
	default:
		return "unknown"
	}
}

// DetachedSuffix marks the detached role's own files. The two roles
// own disjoint files but watch each other's, so the suffix appears on
// exactly one side of every watch.
const DetachedSuffix = "-c"

// Paths are the four marker files of one guard instance. "Self" files
// belong to this instance; "sibling" files belong to the peer process
// being monitored (which receives the mirrored set).
type Paths struct {
	// SelfIndicator is locked by this instance for its whole life;
	// its release is the sibling's death signal for us.
	SelfIndicator string

	// SiblingIndicator is the peer's indicator; blocking on its lock
	// is our death oracle.
	SiblingIndicator string

	// SelfObserver is this instance's barrier announcement file.
	SelfObserver string

	// SiblingObserver is the peer's announcement file, consumed by us.
	SiblingObserver string
}

// Mirrored returns the peer's view of the same four files: self and
// sibling swapped. The detached role runs against the mirror of the
// original role's set.
func (p Paths) Mirrored() Paths {
	return Paths{
		SelfIndicator:    p.SiblingIndicator,
		SiblingIndicator: p.SelfIndicator,
		SelfObserver:     p.SiblingObserver,
		SiblingObserver:  p.SelfObserver,
	}
}

// PairPaths builds the original role's path set under stateDir. The
// original owns the bare indicator and observer files; the detached
// daemon owns the DetachedSuffix variants; each watches the other's.
func PairPaths(stateDir string) Paths {
	indicator := filepath.Join(stateDir, "guard.indicator")
	observer := filepath.Join(stateDir, "guard.observer")
	return Paths{
		SelfIndicator:    indicator,
		SiblingIndicator: indicator + DetachedSuffix,
		SelfObserver:     observer,
		SiblingObserver:  observer + DetachedSuffix,
	}
}
