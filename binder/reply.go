// Copyright 2026 The Vigil Authors
// SPDX-License-Identifier: Apache-2.0

package binder

import "fmt"

// Reply is one transaction's response. Payload borrows a kernel buffer
// pinned in the channel's mapped region: the caller must call Release
// exactly once when done, on every exit path (defer it immediately
// after a successful Submit). Omitting the release leaks kernel-pinned
// buffer space; releasing twice is reported as ErrReplyReleased.
type Reply struct {
	engine        *Engine
	bufferPointer uint64
	released      bool

	// Payload is the flattened reply data. Invalid after Release.
	Payload []byte

	objectOffsets []uint64
}

// Release returns the reply's buffer to the kernel and invalidates
// Payload. Safe to defer: a Reply that failed to construct is never
// handed to the caller.
func (r *Reply) Release() error {
	if r.released {
		return fmt.Errorf("release: %w", ErrReplyReleased)
	}
	r.released = true
	r.Payload = nil
	r.objectOffsets = nil
	r.engine.queueFreeBuffer(r.bufferPointer)
	return r.engine.flush()
}

// FirstHandle returns the first embedded remote capability reference
// in the reply, or ok=false when the reply embeds none (the registry's
// way of saying a name is unregistered).
func (r *Reply) FirstHandle() (handle uint32, ok bool, err error) {
	if r.released {
		return 0, false, fmt.Errorf("first handle: %w", ErrReplyReleased)
	}
	for _, offset := range r.objectOffsets {
		object, err := decodeFlatObject(r.Payload, offset)
		if err != nil {
			return 0, false, err
		}
		if object.objType == typeHandle {
			return uint32(object.handle), true, nil
		}
	}
	return 0, false, nil
}
