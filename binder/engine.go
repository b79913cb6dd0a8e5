// Copyright 2026 The Vigil Authors
// SPDX-License-Identifier: Apache-2.0

package binder

import (
	"encoding/binary"
	"fmt"
	"log/slog"
	"runtime"
)

// readBufferSize is the inbound command buffer handed to each
// exchange. Matches the platform client's in-parcel capacity.
const readBufferSize = 256

// Transport is the driver surface the engine runs on. Channel is the
// production implementation; tests substitute a scripted fake.
type Transport interface {
	// Exchange performs one combined write/read cycle. See
	// Channel.Exchange.
	Exchange(out []byte, in []byte, block bool) (consumed int, delivered int, err error)

	// ReplyBuffer resolves a kernel buffer pointer from a reply into
	// readable bytes.
	ReplyBuffer(ptr uint64, size uint64) ([]byte, error)
}

// Transaction is one outbound request. Built once (payload via Parcel
// or the ams package) and read-only thereafter; the guard reuses the
// same Transaction for every revival attempt.
type Transaction struct {
	// Handle addresses the remote endpoint. Handle 0 is the registry.
	Handle uint32

	// Code is the operation number understood by the remote.
	Code uint32

	// Flags modify delivery; FlagOneWay makes the call
	// fire-and-forget.
	Flags uint32

	// Payload is the flattened request data.
	Payload []byte

	// ObjectOffsets lists byte positions of embedded flat objects
	// within Payload.
	ObjectOffsets []uint64
}

// Engine marshals transactions into the driver command stream, runs
// the blocking request/response loop, demultiplexes asynchronous
// returns, and releases consumed reply buffers.
//
// An Engine is single-flight by design: the guard protocol has no
// in-process concurrency, so no locking is done here.
type Engine struct {
	transport Transport
	logger    *slog.Logger

	// out accumulates outbound command bytes between exchanges.
	out []byte
}

// NewEngine creates an Engine on the given transport.
func NewEngine(transport Transport, logger *slog.Logger) *Engine {
	return &Engine{transport: transport, logger: logger}
}

// Submit sends one transaction. For waits-for-reply transactions it
// blocks until the reply arrives and returns it; the caller owns the
// Reply and must call Release exactly once. For oneway transactions
// (FlagOneWay set) it returns (nil, nil) as soon as the driver has
// consumed the outbound bytes: delivery is enqueued, not confirmed.
func (e *Engine) Submit(tx *Transaction) (*Reply, error) {
	e.queueTransaction(tx)

	if tx.Flags&FlagOneWay != 0 {
		err := e.flush()
		runtime.KeepAlive(tx.Payload)
		runtime.KeepAlive(tx.ObjectOffsets)
		if err != nil {
			return nil, err
		}
		return nil, nil
	}

	reply, err := e.waitForReply()
	runtime.KeepAlive(tx.Payload)
	runtime.KeepAlive(tx.ObjectOffsets)
	return reply, err
}

// queueTransaction appends the BC_TRANSACTION command for tx to the
// outbound buffer. The payload and offsets are referenced by raw
// pointer; the caller keeps them alive across the exchange.
func (e *Engine) queueTransaction(tx *Transaction) {
	data := transactionData{
		targetHandle: uint64(tx.Handle),
		code:         tx.Code,
		flags:        tx.Flags | FlagAcceptFDs,
		dataSize:     uint64(len(tx.Payload)),
		offsetsSize:  uint64(len(tx.ObjectOffsets)) * 8,
		buffer:       bufferPointer(tx.Payload),
		offsets:      offsetsPointer(tx.ObjectOffsets),
	}
	e.out = binary.LittleEndian.AppendUint32(e.out, cmdTransaction)
	e.out = data.appendTo(e.out)
}

// flush writes the queued outbound bytes without waiting for inbound
// commands.
func (e *Engine) flush() error {
	for len(e.out) > 0 {
		consumed, _, err := e.transport.Exchange(e.out, nil, false)
		if err != nil {
			return err
		}
		e.out = e.out[consumed:]
	}
	return nil
}

// waitForReply drives exchanges until a terminal return is observed.
func (e *Engine) waitForReply() (*Reply, error) {
	in := make([]byte, readBufferSize)
	for {
		consumed, delivered, err := e.transport.Exchange(e.out, in, true)
		if err != nil {
			return nil, err
		}
		e.out = e.out[consumed:]

		reply, terminal, err := e.dispatch(in[:delivered])
		if err != nil {
			return nil, err
		}
		if terminal {
			return reply, nil
		}
	}
}

// dispatch consumes one batch of inbound command bytes. Returns a
// non-nil reply or terminal=true when the transaction concluded;
// non-terminal returns are handled inline and the remainder of the
// batch keeps parsing.
func (e *Engine) dispatch(in []byte) (*Reply, bool, error) {
	for len(in) >= 4 {
		code := binary.LittleEndian.Uint32(in)
		in = in[4:]

		switch code {
		case retReply:
			data, err := decodeTransactionData(in)
			if err != nil {
				return nil, false, err
			}
			reply, err := e.buildReply(data)
			if err != nil {
				return nil, false, err
			}
			return reply, true, nil

		case retDeadReply:
			return nil, false, fmt.Errorf("submit: %w", ErrTargetDead)

		case retFailedReply:
			return nil, false, fmt.Errorf("submit: %w", ErrTransactionRejected)

		case retError:
			status, err := decodeStatus(in)
			if err != nil {
				return nil, false, err
			}
			return nil, false, fmt.Errorf("driver error status %d", status)

		case retTransactionComplete, retNoop, retOK, retSpawnLooper:
			// Bookkeeping only; nothing follows in the stream.

		case retAcquireResult:
			in = skip(in, 4)

		case retIncRefs, retAcquire, retRelease, retDecRefs:
			// Pointer + cookie for local object refcounting. This
			// client exports no objects; consume and ignore.
			in = skip(in, 16)

		case retDeadBinder:
			// Death notice for an unrelated handle; consume the
			// cookie and keep waiting.
			in = skip(in, 8)
			e.logger.Debug("dead binder notice ignored")

		case retTransaction:
			// Inbound call. This client never acts as a callee; free
			// the buffer immediately so the kernel does not pin it.
			data, err := decodeTransactionData(in)
			if err != nil {
				return nil, false, err
			}
			in = skip(in, transactionDataSize)
			e.queueFreeBuffer(data.buffer)
			e.logger.Warn("unexpected inbound transaction dropped", "code", data.code)
			continue

		default:
			return nil, false, fmt.Errorf("unknown driver return %s", returnName(code))
		}
	}
	return nil, false, nil
}

// buildReply resolves the reply's kernel buffers into a caller-owned
// Reply. Zero-length replies release their buffer immediately and
// carry no payload.
func (e *Engine) buildReply(data transactionData) (*Reply, error) {
	payload, err := e.transport.ReplyBuffer(data.buffer, data.dataSize)
	if err != nil {
		e.queueFreeBuffer(data.buffer)
		_ = e.flush()
		return nil, err
	}

	var offsets []uint64
	if data.offsetsSize > 0 {
		raw, err := e.transport.ReplyBuffer(data.offsets, data.offsetsSize)
		if err != nil {
			e.queueFreeBuffer(data.buffer)
			_ = e.flush()
			return nil, err
		}
		offsets = make([]uint64, 0, data.offsetsSize/8)
		for i := 0; i+8 <= len(raw); i += 8 {
			offsets = append(offsets, binary.LittleEndian.Uint64(raw[i:]))
		}
	}

	return &Reply{
		engine:        e,
		bufferPointer: data.buffer,
		Payload:       payload,
		objectOffsets: offsets,
	}, nil
}

// queueFreeBuffer appends a BC_FREE_BUFFER command for the kernel
// buffer at ptr.
func (e *Engine) queueFreeBuffer(ptr uint64) {
	e.out = binary.LittleEndian.AppendUint32(e.out, cmdFreeBuffer)
	e.out = binary.LittleEndian.AppendUint64(e.out, ptr)
}

// skip drops n bytes, tolerating short input (the following parse
// will fail cleanly on the next iteration).
func skip(in []byte, n int) []byte {
	if n > len(in) {
		return nil
	}
	return in[n:]
}
