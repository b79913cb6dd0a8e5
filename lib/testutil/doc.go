// Copyright 2026 The Vigil Authors
// SPDX-License-Identifier: Apache-2.0

// Package testutil provides shared test helpers for Vigil packages:
// timeout-guarded channel receives and a polling Eventually assertion
// for state mutated by other processes.
package testutil
