// Copyright 2026 The Vigil Authors
// SPDX-License-Identifier: Apache-2.0

// Package config provides configuration loading for Vigil binaries.
//
// Configuration is loaded from a single YAML file specified by:
//   - the VIGIL_CONFIG environment variable, or
//   - the --config flag passed to the command.
//
// There are no fallbacks or automatic discovery. This keeps the
// configuration deterministic and auditable: what the file says is
// what runs, with command-line flags as the only override layer.
package config
