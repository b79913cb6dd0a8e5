// Copyright 2026 The Vigil Authors
// SPDX-License-Identifier: Apache-2.0

package binder

import (
	"encoding/binary"
	"fmt"
)

// Wire constants derived from the Linux kernel UAPI header
// (include/uapi/linux/android/binder.h). Stable ABI; the encoded ioctl
// numbers below are for the 64-bit struct layouts.
const (
	// ProtocolVersion is BINDER_CURRENT_PROTOCOL_VERSION. Open fails
	// when the driver reports anything else.
	ProtocolVersion = 8

	// ioctlWriteRead is BINDER_WRITE_READ: _IOWR('b', 1, struct
	// binder_write_read), 48 bytes.
	ioctlWriteRead = 0xc0306201

	// ioctlSetMaxThreads is BINDER_SET_MAX_THREADS: _IOW('b', 5, __u32).
	ioctlSetMaxThreads = 0x40046205

	// ioctlVersion is BINDER_VERSION: _IOWR('b', 9, struct
	// binder_version), 4 bytes.
	ioctlVersion = 0xc0046209
)

// Outbound command codes (BC_*, "binder command").
const (
	// cmdTransaction is BC_TRANSACTION: _IOW('c', 0, struct
	// binder_transaction_data), 64 bytes.
	cmdTransaction = 0x40406300

	// cmdFreeBuffer is BC_FREE_BUFFER: _IOW('c', 3, binder_uintptr_t).
	cmdFreeBuffer = 0x40086303
)

// Inbound return codes (BR_*, "binder return").
const (
	retError               = 0x80047200 // BR_ERROR, 4-byte status follows
	retOK                  = 0x00007201 // BR_OK
	retTransaction         = 0x80407202 // BR_TRANSACTION, transaction data follows
	retReply               = 0x80407203 // BR_REPLY, transaction data follows
	retAcquireResult       = 0x80047204 // BR_ACQUIRE_RESULT, 4-byte status follows
	retDeadReply           = 0x00007205 // BR_DEAD_REPLY
	retTransactionComplete = 0x00007206 // BR_TRANSACTION_COMPLETE
	retIncRefs             = 0x80107207 // BR_INCREFS, ptr+cookie follow
	retAcquire             = 0x80107208 // BR_ACQUIRE, ptr+cookie follow
	retRelease             = 0x80107209 // BR_RELEASE, ptr+cookie follow
	retDecRefs             = 0x8010720a // BR_DECREFS, ptr+cookie follow
	retNoop                = 0x0000720c // BR_NOOP
	retSpawnLooper         = 0x0000720d // BR_SPAWN_LOOPER
	retDeadBinder          = 0x8008720f // BR_DEAD_BINDER, cookie follows
	retFailedReply         = 0x00007211 // BR_FAILED_REPLY
)

// Transaction flags.
const (
	// FlagOneWay marks a fire-and-forget transaction: no reply is
	// waited for, delivery is enqueued but never confirmed.
	FlagOneWay = 0x01

	// FlagAcceptFDs permits file descriptors in the reply.
	FlagAcceptFDs = 0x10
)

// Flat object type tags (B_PACK_CHARS encodings from the UAPI header).
const (
	// typeBinder is BINDER_TYPE_BINDER, a local object reference.
	typeBinder = 0x73622a85

	// typeHandle is BINDER_TYPE_HANDLE, a remote capability reference.
	typeHandle = 0x73682a85
)

// transactionDataSize is sizeof(struct binder_transaction_data) on
// 64-bit targets.
const transactionDataSize = 64

// flatObjectSize is sizeof(struct flat_binder_object) on 64-bit
// targets.
const flatObjectSize = 24

// transactionData mirrors struct binder_transaction_data. The target
// union carries only the handle form here (this client addresses
// remote endpoints exclusively); buffer and offsets carry raw kernel
// pointers.
type transactionData struct {
	targetHandle uint64
	cookie       uint64
	code         uint32
	flags        uint32
	senderPID    int32
	senderEUID   uint32
	dataSize     uint64
	offsetsSize  uint64
	buffer       uint64
	offsets      uint64
}

// appendTo appends the 64-byte little-endian encoding to out.
func (t *transactionData) appendTo(out []byte) []byte {
	out = binary.LittleEndian.AppendUint64(out, t.targetHandle)
	out = binary.LittleEndian.AppendUint64(out, t.cookie)
	out = binary.LittleEndian.AppendUint32(out, t.code)
	out = binary.LittleEndian.AppendUint32(out, t.flags)
	out = binary.LittleEndian.AppendUint32(out, uint32(t.senderPID))
	out = binary.LittleEndian.AppendUint32(out, t.senderEUID)
	out = binary.LittleEndian.AppendUint64(out, t.dataSize)
	out = binary.LittleEndian.AppendUint64(out, t.offsetsSize)
	out = binary.LittleEndian.AppendUint64(out, t.buffer)
	out = binary.LittleEndian.AppendUint64(out, t.offsets)
	return out
}

// decodeTransactionData parses the 64-byte layout.
func decodeTransactionData(in []byte) (transactionData, error) {
	if len(in) < transactionDataSize {
		return transactionData{}, fmt.Errorf("transaction data truncated: %d of %d bytes", len(in), transactionDataSize)
	}
	return transactionData{
		targetHandle: binary.LittleEndian.Uint64(in[0:]),
		cookie:       binary.LittleEndian.Uint64(in[8:]),
		code:         binary.LittleEndian.Uint32(in[16:]),
		flags:        binary.LittleEndian.Uint32(in[20:]),
		senderPID:    int32(binary.LittleEndian.Uint32(in[24:])),
		senderEUID:   binary.LittleEndian.Uint32(in[28:]),
		dataSize:     binary.LittleEndian.Uint64(in[32:]),
		offsetsSize:  binary.LittleEndian.Uint64(in[40:]),
		buffer:       binary.LittleEndian.Uint64(in[48:]),
		offsets:      binary.LittleEndian.Uint64(in[56:]),
	}, nil
}

// returnName gives the symbolic name of a BR_* code for logging.
func returnName(code uint32) string {
	switch code {
	case retError:
		return "BR_ERROR"
	case retOK:
		return "BR_OK"
	case retTransaction:
		return "BR_TRANSACTION"
	case retReply:
		return "BR_REPLY"
	case retAcquireResult:
		return "BR_ACQUIRE_RESULT"
	case retDeadReply:
		return "BR_DEAD_REPLY"
	case retTransactionComplete:
		return "BR_TRANSACTION_COMPLETE"
	case retIncRefs:
		return "BR_INCREFS"
	case retAcquire:
		return "BR_ACQUIRE"
	case retRelease:
		return "BR_RELEASE"
	case retDecRefs:
		return "BR_DECREFS"
	case retNoop:
		return "BR_NOOP"
	case retSpawnLooper:
		return "BR_SPAWN_LOOPER"
	case retDeadBinder:
		return "BR_DEAD_BINDER"
	case retFailedReply:
		return "BR_FAILED_REPLY"
	default:
		return fmt.Sprintf("BR_0x%08x", code)
	}
}
