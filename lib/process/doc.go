// Copyright 2026 The Vigil Authors
// SPDX-License-Identifier: Apache-2.0

// Package process provides entrypoint helpers shared by Vigil
// binaries: the standard fatal-error exit path, session detachment
// for the daemonized guard role, and process-group termination.
package process
