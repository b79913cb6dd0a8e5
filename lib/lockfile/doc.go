// Copyright 2026 The Vigil Authors
// SPDX-License-Identifier: Apache-2.0

// Package lockfile implements the two filesystem primitives the guard
// protocol is built on.
//
// [Lock] is an advisory exclusive lock on a zero-length marker file,
// used as a death oracle: the kernel releases a process's locks when
// the process terminates for any reason, so blocking on a sibling's
// lock ([WaitAcquire]) returns exactly when the sibling dies. The
// blocking wait first drains stale unlocked state with non-blocking
// probe-and-release attempts so that an uncontended lock is not
// mistaken for a dead holder.
//
// [Observer] is a one-shot barrier signal: the file's existence means
// "announcement made", its deletion means "announcement consumed".
// [Barrier] composes two observers into the two-party startup
// rendezvous that orders "both sides ready" before either side begins
// monitoring.
//
// The death-oracle semantics assume local-filesystem advisory locks
// with release-on-termination, which holds for the target platform.
// Remote filesystems or outside deletion of the marker files void the
// guarantee; the paths used for guarding must be private to the pair.
package lockfile
