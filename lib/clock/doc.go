// Copyright 2026 The Vigil Authors
// SPDX-License-Identifier: Apache-2.0

// Package clock abstracts time operations behind a small [Clock]
// interface so that retry backoff and polling code can be tested
// deterministically. Production code injects [Real]; tests inject
// [Fake], whose Sleep and After advance a synthetic current time
// immediately instead of blocking.
package clock
