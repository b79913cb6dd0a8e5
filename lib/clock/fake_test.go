// Copyright 2026 The Vigil Authors
// SPDX-License-Identifier: Apache-2.0

package clock

import (
	"testing"
	"time"
)

func TestFakeSleepAdvances(t *testing.T) {
	start := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	fake := Fake(start)

	fake.Sleep(10 * time.Millisecond)
	fake.Sleep(10 * time.Millisecond)

	want := start.Add(20 * time.Millisecond)
	if got := fake.Now(); !got.Equal(want) {
		t.Errorf("Now() = %v, want %v", got, want)
	}

	slept := fake.Slept()
	if len(slept) != 2 {
		t.Fatalf("len(Slept()) = %d, want 2", len(slept))
	}
	for i, d := range slept {
		if d != 10*time.Millisecond {
			t.Errorf("Slept()[%d] = %v, want 10ms", i, d)
		}
	}
}

func TestFakeAfterDeliversImmediately(t *testing.T) {
	start := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	fake := Fake(start)

	select {
	case got := <-fake.After(time.Second):
		if want := start.Add(time.Second); !got.Equal(want) {
			t.Errorf("After delivered %v, want %v", got, want)
		}
	default:
		t.Fatal("After channel did not deliver immediately")
	}
}

func TestFakeAdvanceDoesNotRecordSleep(t *testing.T) {
	fake := Fake(time.Unix(0, 0))
	fake.Advance(time.Minute)
	if got := len(fake.Slept()); got != 0 {
		t.Errorf("len(Slept()) = %d after Advance, want 0", got)
	}
	if got, want := fake.Now(), time.Unix(60, 0); !got.Equal(want) {
		t.Errorf("Now() = %v, want %v", got, want)
	}
}
