// Copyright 2026 The Vigil Authors
// SPDX-License-Identifier: Apache-2.0

package lockfile

import "errors"

// ErrLockUnavailable reports that a non-blocking acquisition found the
// lock held by another open file description. Test with errors.Is.
var ErrLockUnavailable = errors.New("lock held elsewhere")
