// Copyright 2026 The Vigil Authors
// SPDX-License-Identifier: Apache-2.0

// Package ams builds the activity-manager revival request: a
// startService transaction flattened exactly the way the platform's
// IActivityManager interface expects for a given platform revision
// (API level). The interface was renumbered and re-shaped across
// releases, so both the transaction code and the argument layout are
// revision-dependent.
//
// The payload addresses a service by explicit component name only; no
// action, categories, or extras are carried. That is all a revival
// needs: the dead component is restarted by name.
package ams
