// Copyright 2026 The Vigil Authors
// SPDX-License-Identifier: Apache-2.0

package binder

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"testing"
)

// fakeTransport is a scripted driver: it records every outbound
// command and serves pre-staged inbound batches, one per blocking
// exchange. Kernel reply buffers are simulated with a pointer-keyed
// map so the free-buffer accounting can be checked.
type fakeTransport struct {
	// inbound batches delivered in order, one per blocking exchange.
	inbound [][]byte

	// buffers simulates the kernel's pinned reply buffers.
	buffers map[uint64][]byte

	// recorded outbound traffic.
	sentTransactions []transactionData
	freedBuffers     []uint64

	blockingExchanges int
}

func newFakeTransport() *fakeTransport {
	return &fakeTransport{buffers: make(map[uint64][]byte)}
}

// stageBuffer registers a simulated kernel buffer and returns its
// pointer.
func (f *fakeTransport) stageBuffer(ptr uint64, data []byte) uint64 {
	f.buffers[ptr] = data
	return ptr
}

// stageReply appends an inbound batch carrying BR_REPLY for a payload
// already staged with stageBuffer.
func (f *fakeTransport) stageReply(payloadPtr uint64, offsetsPtr uint64, offsetsSize uint64) {
	data := transactionData{
		buffer:      payloadPtr,
		dataSize:    uint64(len(f.buffers[payloadPtr])),
		offsets:     offsetsPtr,
		offsetsSize: offsetsSize,
	}
	batch := binary.LittleEndian.AppendUint32(nil, retReply)
	f.inbound = append(f.inbound, data.appendTo(batch))
}

func (f *fakeTransport) stageBatch(batch []byte) {
	f.inbound = append(f.inbound, batch)
}

func (f *fakeTransport) Exchange(out []byte, in []byte, block bool) (int, int, error) {
	// Parse and record the outbound command stream in full.
	rest := out
	for len(rest) >= 4 {
		code := binary.LittleEndian.Uint32(rest)
		rest = rest[4:]
		switch code {
		case cmdTransaction:
			data, err := decodeTransactionData(rest)
			if err != nil {
				return 0, 0, err
			}
			rest = rest[transactionDataSize:]
			f.sentTransactions = append(f.sentTransactions, data)
		case cmdFreeBuffer:
			if len(rest) < 8 {
				return 0, 0, fmt.Errorf("truncated free-buffer command")
			}
			ptr := binary.LittleEndian.Uint64(rest)
			rest = rest[8:]
			if _, ok := f.buffers[ptr]; !ok {
				return 0, 0, fmt.Errorf("free of unknown buffer %#x", ptr)
			}
			delete(f.buffers, ptr)
			f.freedBuffers = append(f.freedBuffers, ptr)
		default:
			return 0, 0, fmt.Errorf("unexpected outbound command %#x", code)
		}
	}

	if !block {
		return len(out), 0, nil
	}

	f.blockingExchanges++
	if len(f.inbound) == 0 {
		return 0, 0, io.ErrUnexpectedEOF
	}
	batch := f.inbound[0]
	f.inbound = f.inbound[1:]
	return len(out), copy(in, batch), nil
}

func (f *fakeTransport) ReplyBuffer(ptr uint64, size uint64) ([]byte, error) {
	if size == 0 {
		return nil, nil
	}
	data, ok := f.buffers[ptr]
	if !ok {
		return nil, fmt.Errorf("unknown buffer %#x", ptr)
	}
	return data[:size], nil
}

// outstanding reports simulated kernel buffers not yet freed.
func (f *fakeTransport) outstanding() int { return len(f.buffers) }

func testEngine(t *testing.T) (*Engine, *fakeTransport) {
	t.Helper()
	transport := newFakeTransport()
	return NewEngine(transport, slog.New(slog.NewTextHandler(io.Discard, nil))), transport
}

func simpleReturn(code uint32) []byte {
	return binary.LittleEndian.AppendUint32(nil, code)
}

func TestSubmitOneway(t *testing.T) {
	engine, transport := testEngine(t)

	payload := []byte{1, 2, 3, 4}
	reply, err := engine.Submit(&Transaction{
		Handle:  7,
		Code:    34,
		Flags:   FlagOneWay,
		Payload: payload,
	})
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if reply != nil {
		t.Fatal("oneway Submit returned a reply, want nil")
	}

	if transport.blockingExchanges != 0 {
		t.Errorf("oneway submission performed %d blocking exchanges, want 0", transport.blockingExchanges)
	}
	if len(transport.sentTransactions) != 1 {
		t.Fatalf("sent %d transactions, want 1", len(transport.sentTransactions))
	}
	sent := transport.sentTransactions[0]
	if sent.targetHandle != 7 || sent.code != 34 {
		t.Errorf("sent target=%d code=%d, want 7/34", sent.targetHandle, sent.code)
	}
	if sent.flags&FlagOneWay == 0 {
		t.Error("sent transaction missing oneway flag")
	}
	if sent.dataSize != uint64(len(payload)) {
		t.Errorf("sent dataSize = %d, want %d", sent.dataSize, len(payload))
	}
}

func TestSubmitWaitsThroughNonTerminalReturns(t *testing.T) {
	engine, transport := testEngine(t)

	// First batch: bookkeeping only. Second batch: the reply.
	batch := simpleReturn(retTransactionComplete)
	batch = append(batch, simpleReturn(retNoop)...)
	batch = append(batch, binary.LittleEndian.AppendUint32(nil, retIncRefs)...)
	batch = append(batch, make([]byte, 16)...) // ptr + cookie
	batch = append(batch, binary.LittleEndian.AppendUint32(nil, retDeadBinder)...)
	batch = append(batch, make([]byte, 8)...) // cookie
	transport.stageBatch(batch)

	ptr := transport.stageBuffer(0x1000, []byte("reply-bytes"))
	transport.stageReply(ptr, 0, 0)

	reply, err := engine.Submit(&Transaction{Handle: 3, Code: 1})
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if got, want := string(reply.Payload), "reply-bytes"; got != want {
		t.Errorf("reply payload = %q, want %q", got, want)
	}
	if err := reply.Release(); err != nil {
		t.Fatalf("Release: %v", err)
	}
	if transport.outstanding() != 0 {
		t.Errorf("%d kernel buffers outstanding after release, want 0", transport.outstanding())
	}
}

func TestSubmitDeadReply(t *testing.T) {
	engine, transport := testEngine(t)
	transport.stageBatch(simpleReturn(retDeadReply))

	_, err := engine.Submit(&Transaction{Handle: 3, Code: 1})
	if !errors.Is(err, ErrTargetDead) {
		t.Errorf("Submit error = %v, want ErrTargetDead", err)
	}
}

func TestSubmitFailedReply(t *testing.T) {
	engine, transport := testEngine(t)
	transport.stageBatch(simpleReturn(retFailedReply))

	_, err := engine.Submit(&Transaction{Handle: 3, Code: 1})
	if !errors.Is(err, ErrTransactionRejected) {
		t.Errorf("Submit error = %v, want ErrTransactionRejected", err)
	}
}

func TestSubmitDriverErrorStatus(t *testing.T) {
	engine, transport := testEngine(t)
	batch := binary.LittleEndian.AppendUint32(nil, retError)
	batch = binary.LittleEndian.AppendUint32(batch, uint32(0xffffffff)) // status -1
	transport.stageBatch(batch)

	_, err := engine.Submit(&Transaction{Handle: 3, Code: 1})
	if err == nil {
		t.Fatal("Submit succeeded, want driver error")
	}
}

func TestSubmitUnknownReturn(t *testing.T) {
	engine, transport := testEngine(t)
	transport.stageBatch(simpleReturn(0xdeadbeef))

	_, err := engine.Submit(&Transaction{Handle: 3, Code: 1})
	if err == nil {
		t.Fatal("Submit succeeded on unknown return code, want error")
	}
}

func TestReplyDoubleRelease(t *testing.T) {
	engine, transport := testEngine(t)
	ptr := transport.stageBuffer(0x2000, []byte("x"))
	transport.stageReply(ptr, 0, 0)

	reply, err := engine.Submit(&Transaction{Handle: 3, Code: 1})
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if err := reply.Release(); err != nil {
		t.Fatalf("first Release: %v", err)
	}
	err = reply.Release()
	if !errors.Is(err, ErrReplyReleased) {
		t.Errorf("second Release error = %v, want ErrReplyReleased", err)
	}
	if got := len(transport.freedBuffers); got != 1 {
		t.Errorf("freed %d buffers, want exactly 1", got)
	}
}

func TestInboundTransactionBufferFreed(t *testing.T) {
	engine, transport := testEngine(t)

	// An unrelated inbound call arrives before our reply. Its buffer
	// must be freed even though the client never dispatches it.
	strayPtr := transport.stageBuffer(0x3000, []byte("stray"))
	stray := transactionData{buffer: strayPtr, dataSize: 5}
	batch := binary.LittleEndian.AppendUint32(nil, retTransaction)
	batch = stray.appendTo(batch)
	transport.stageBatch(batch)

	replyPtr := transport.stageBuffer(0x4000, []byte("real"))
	transport.stageReply(replyPtr, 0, 0)

	reply, err := engine.Submit(&Transaction{Handle: 3, Code: 1})
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if err := reply.Release(); err != nil {
		t.Fatalf("Release: %v", err)
	}

	if transport.outstanding() != 0 {
		t.Errorf("%d kernel buffers outstanding, want 0 (stray inbound call must be freed)", transport.outstanding())
	}
}
