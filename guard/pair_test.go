// Copyright 2026 The Vigil Authors
// SPDX-License-Identifier: Apache-2.0

package guard

import (
	"fmt"
	"os"
	"strings"
	"testing"
	"time"

	"golang.org/x/sys/unix"

	"github.com/vigil-systems/vigil/lib/testutil"
)

// sessionOutEnv makes a re-executed test binary report its pid and
// session id instead of running the test suite. SpawnDetached
// re-executes the current binary, so the spawned child is this test
// binary again with the variable inherited.
const sessionOutEnv = "VIGIL_GUARD_SESSION_OUT"

func TestMain(m *testing.M) {
	if out := os.Getenv(sessionOutEnv); out != "" {
		sid, err := unix.Getsid(0)
		if err != nil {
			fmt.Fprintln(os.Stderr, "getsid:", err)
			os.Exit(1)
		}
		report := fmt.Sprintf("%d %d\n", os.Getpid(), sid)
		if err := os.WriteFile(out+".tmp", []byte(report), 0o600); err != nil {
			fmt.Fprintln(os.Stderr, "writing session report:", err)
			os.Exit(1)
		}
		if err := os.Rename(out+".tmp", out); err != nil {
			fmt.Fprintln(os.Stderr, "publishing session report:", err)
			os.Exit(1)
		}
		os.Exit(0)
	}
	os.Exit(m.Run())
}

// TestSpawnDetachedNewSession spawns the daemon stage and checks that
// it runs as its own session leader, detached from this process's
// session.
func TestSpawnDetachedNewSession(t *testing.T) {
	out := t.TempDir() + "/session"
	t.Setenv(sessionOutEnv, out)

	if err := SpawnDetached(nil, discardLogger()); err != nil {
		t.Fatalf("spawning detached daemon: %v", err)
	}

	testutil.Eventually(t, 5*time.Second, func() bool {
		_, err := os.Stat(out)
		return err == nil
	}, "daemon should report its session")

	report, err := os.ReadFile(out)
	if err != nil {
		t.Fatalf("reading session report: %v", err)
	}
	var pid, sid int
	if _, err := fmt.Sscanf(strings.TrimSpace(string(report)), "%d %d", &pid, &sid); err != nil {
		t.Fatalf("parsing session report %q: %v", report, err)
	}

	if sid != pid {
		t.Errorf("daemon sid = %d, pid = %d, want session leader", sid, pid)
	}
	ownSID, err := unix.Getsid(0)
	if err != nil {
		t.Fatalf("getsid: %v", err)
	}
	if sid == ownSID {
		t.Errorf("daemon shares the test's session %d", sid)
	}
}
