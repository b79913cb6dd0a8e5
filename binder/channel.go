// Copyright 2026 The Vigil Authors
// SPDX-License-Identifier: Apache-2.0

package binder

import (
	"encoding/binary"
	"fmt"
	"os"
	"unsafe"

	"golang.org/x/sys/unix"
)

// DefaultDevice is the standard binder device node.
const DefaultDevice = "/dev/binder"

// defaultMaxThreads caps the driver's concurrent dispatch threads for
// this process. This client never acts as a callee, so the value only
// needs to satisfy the driver's bookkeeping.
const defaultMaxThreads = 15

// mapBudget is the fixed receive-region allocation: 1 MB minus two
// guard pages, matching the platform's process-state default. Reply
// payloads are delivered inside this region.
func mapBudget() int {
	return 1*1024*1024 - 2*os.Getpagesize()
}

// Channel owns the open driver descriptor and the memory-mapped
// receive region. One Channel per guard instance, created at daemon
// start and closed only on process exit; never shared across
// processes.
type Channel struct {
	fd      int
	mapped  []byte
	mapBase uint64
}

// Open acquires the transport: opens the device, verifies the
// protocol version, negotiates the thread cap, and maps the receive
// region. All failures wrap ErrDriverUnavailable — without the
// transport the daemon instance cannot run at all.
func Open(device string) (*Channel, error) {
	fd, err := unix.Open(device, unix.O_RDWR|unix.O_CLOEXEC, 0)
	if err != nil {
		return nil, fmt.Errorf("%w: opening %s: %v", ErrDriverUnavailable, device, err)
	}

	var driverVersion int32
	if err := ioctl(fd, ioctlVersion, unsafe.Pointer(&driverVersion)); err != nil {
		unix.Close(fd)
		return nil, fmt.Errorf("%w: version query on %s: %v", ErrDriverUnavailable, device, err)
	}
	if driverVersion != ProtocolVersion {
		unix.Close(fd)
		return nil, fmt.Errorf("%w: %s speaks protocol %d, need %d", ErrDriverUnavailable, device, driverVersion, ProtocolVersion)
	}

	maxThreads := uint32(defaultMaxThreads)
	if err := ioctl(fd, ioctlSetMaxThreads, unsafe.Pointer(&maxThreads)); err != nil {
		unix.Close(fd)
		return nil, fmt.Errorf("%w: setting max threads on %s: %v", ErrDriverUnavailable, device, err)
	}

	mapped, err := unix.Mmap(fd, 0, mapBudget(), unix.PROT_READ, unix.MAP_PRIVATE|unix.MAP_NORESERVE)
	if err != nil {
		unix.Close(fd)
		return nil, fmt.Errorf("%w: mapping receive region on %s: %v", ErrDriverUnavailable, device, err)
	}

	return &Channel{
		fd:      fd,
		mapped:  mapped,
		mapBase: uint64(uintptr(unsafe.Pointer(&mapped[0]))),
	}, nil
}

// writeRead mirrors struct binder_write_read: byte counts and raw
// buffer pointers for one combined write/read cycle.
type writeRead struct {
	writeSize     uint64
	writeConsumed uint64
	writeBuffer   uint64
	readSize      uint64
	readConsumed  uint64
	readBuffer    uint64
}

// Exchange performs one BINDER_WRITE_READ cycle: the driver consumes
// queued outbound command bytes from out and, when block is true,
// suspends the process until at least one inbound command lands in
// in. Returns the counts of bytes consumed and delivered.
//
// EINTR and EAGAIN are retried here and never surfaced; any other
// errno is returned as a driver I/O error and is not retried at this
// layer — the caller decides whether to abort the transaction.
func (c *Channel) Exchange(out []byte, in []byte, block bool) (consumed int, delivered int, err error) {
	var bwr writeRead
	if len(out) > 0 {
		bwr.writeSize = uint64(len(out))
		bwr.writeBuffer = uint64(uintptr(unsafe.Pointer(&out[0])))
	}
	if block && len(in) > 0 {
		bwr.readSize = uint64(len(in))
		bwr.readBuffer = uint64(uintptr(unsafe.Pointer(&in[0])))
	}

	if err := ioctl(c.fd, ioctlWriteRead, unsafe.Pointer(&bwr)); err != nil {
		return 0, 0, fmt.Errorf("driver exchange: %w", err)
	}
	return int(bwr.writeConsumed), int(bwr.readConsumed), nil
}

// ReplyBuffer resolves a kernel buffer pointer delivered in a reply
// into the mapped receive region. The returned slice borrows kernel
// memory: it is valid only until the corresponding free-buffer command
// is issued.
func (c *Channel) ReplyBuffer(ptr uint64, size uint64) ([]byte, error) {
	if size == 0 {
		return nil, nil
	}
	if ptr < c.mapBase || ptr+size > c.mapBase+uint64(len(c.mapped)) {
		return nil, fmt.Errorf("reply buffer [%#x,+%d) outside mapped region", ptr, size)
	}
	offset := ptr - c.mapBase
	return c.mapped[offset : offset+size : offset+size], nil
}

// Close unmaps the receive region and closes the descriptor. The
// Channel is unusable afterward.
func (c *Channel) Close() error {
	var first error
	if c.mapped != nil {
		if err := unix.Munmap(c.mapped); err != nil {
			first = fmt.Errorf("unmapping receive region: %w", err)
		}
		c.mapped = nil
	}
	if c.fd >= 0 {
		if err := unix.Close(c.fd); err != nil && first == nil {
			first = fmt.Errorf("closing driver: %w", err)
		}
		c.fd = -1
	}
	return first
}

// ioctl issues one ioctl, retrying transient interrupt results.
func ioctl(fd int, request uint, arg unsafe.Pointer) error {
	for {
		_, _, errno := unix.Syscall(unix.SYS_IOCTL, uintptr(fd), uintptr(request), uintptr(arg))
		switch errno {
		case 0:
			return nil
		case unix.EINTR, unix.EAGAIN:
			continue
		default:
			return errno
		}
	}
}

// sanity check: writeRead must match the kernel's 48-byte layout.
var _ [48]byte = [unsafe.Sizeof(writeRead{})]byte{}

// decodeStatus reads the int32 status payload that follows BR_ERROR
// and BR_ACQUIRE_RESULT.
func decodeStatus(in []byte) (int32, error) {
	if len(in) < 4 {
		return 0, fmt.Errorf("status truncated: %d bytes", len(in))
	}
	return int32(binary.LittleEndian.Uint32(in)), nil
}
