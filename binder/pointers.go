// Copyright 2026 The Vigil Authors
// SPDX-License-Identifier: Apache-2.0

package binder

import "unsafe"

// bufferPointer returns the raw address of a payload slice for the
// driver's command stream, or 0 for an empty payload. Callers keep
// the slice alive (runtime.KeepAlive) across the exchange that
// consumes the command.
func bufferPointer(payload []byte) uint64 {
	if len(payload) == 0 {
		return 0
	}
	return uint64(uintptr(unsafe.Pointer(&payload[0])))
}

// offsetsPointer returns the raw address of the offsets table, or 0
// when there are no embedded objects.
func offsetsPointer(offsets []uint64) uint64 {
	if len(offsets) == 0 {
		return 0
	}
	return uint64(uintptr(unsafe.Pointer(&offsets[0])))
}
