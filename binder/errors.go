// Copyright 2026 The Vigil Authors
// SPDX-License-Identifier: Apache-2.0

package binder

import "errors"

// Sentinel errors for the transport. Test with errors.Is; all are
// returned wrapped with call context.
var (
	// ErrDriverUnavailable reports that the driver device could not be
	// opened or negotiated (absent, permission denied, version
	// mismatch). Fatal to the owning daemon instance: nothing can be
	// guarded without the transport.
	ErrDriverUnavailable = errors.New("binder driver unavailable")

	// ErrTargetDead reports that the transaction target's remote
	// endpoint no longer exists (BR_DEAD_REPLY).
	ErrTargetDead = errors.New("transaction target dead")

	// ErrTransactionRejected reports that the driver or remote refused
	// the transaction (BR_FAILED_REPLY).
	ErrTransactionRejected = errors.New("transaction rejected")

	// ErrServiceNotFound reports that the registry carries no entry
	// for the requested name. A normal outcome, not a failure: callers
	// may retry later or proceed and let submission fail.
	ErrServiceNotFound = errors.New("service not found")

	// ErrReplyReleased reports a second release of the same reply
	// buffer — a caller-side ownership defect.
	ErrReplyReleased = errors.New("reply already released")
)
