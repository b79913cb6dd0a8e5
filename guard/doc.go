// Copyright 2026 The Vigil Authors
// SPDX-License-Identifier: Apache-2.0

// Package guard runs the mutual life-guard pair: two processes, each
// holding an indicator-file lock for its whole life and blocking on
// the sibling's. Kernel release of an advisory lock on process death
// is the death oracle; the surviving instance fires one prepared
// oneway revival transaction and tears itself down.
//
// Both roles execute the same forward-only state machine
// (Init → LockingSelf → Syncing → Monitoring → Triggered →
// Terminated) against mirrored path sets. StartPair spawns the
// detached daemon through a short-lived middle process so it is
// reparented to init, then runs the original role in place.
package guard
