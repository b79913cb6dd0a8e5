// Copyright 2026 The Vigil Authors
// SPDX-License-Identifier: Apache-2.0

package process

import (
	"fmt"

	"golang.org/x/sys/unix"
)

// SetSessionLeader detaches the calling process from its controlling
// terminal and parent session by starting a new session (setsid). The
// detached guard role calls this so that killing the original process
// tree does not take the daemon down with it.
//
// Fails when the caller is already a process group leader; the caller
// may ignore that case when detachment was already arranged by the
// spawner (Setsid in SysProcAttr).
func SetSessionLeader() error {
	if _, err := unix.Setsid(); err != nil {
		return fmt.Errorf("setsid: %w", err)
	}
	return nil
}

// TerminateGroup sends SIGTERM to the calling process's entire process
// group. Used by the guard after firing its revival transaction: the
// guard's own death hands monitoring duty back to the surviving
// sibling's lifecycle.
func TerminateGroup() error {
	pgid, err := unix.Getpgid(0)
	if err != nil {
		return fmt.Errorf("getpgid: %w", err)
	}
	if err := unix.Kill(-pgid, unix.SIGTERM); err != nil {
		return fmt.Errorf("signaling process group %d: %w", pgid, err)
	}
	return nil
}
