// Copyright 2026 The Vigil Authors
// SPDX-License-Identifier: Apache-2.0

package binder

import (
	"encoding/binary"
	"fmt"
	"unicode/utf16"
)

// Parcel builds a flattened binder payload: little-endian primitives,
// length-prefixed UTF-16 strings, and embedded flat objects whose
// positions are recorded in an offsets table so the kernel can
// translate them in flight. Writes are append-only; a Parcel is built
// once and submitted read-only.
type Parcel struct {
	data    []byte
	offsets []uint64
}

// NewParcel returns an empty Parcel.
func NewParcel() *Parcel {
	return &Parcel{}
}

// Data returns the payload bytes. The slice aliases the Parcel's
// buffer; do not modify.
func (p *Parcel) Data() []byte { return p.data }

// ObjectOffsets returns the byte offsets of embedded flat objects
// within Data, in write order.
func (p *Parcel) ObjectOffsets() []uint64 { return p.offsets }

// WriteInt32 appends a little-endian int32.
func (p *Parcel) WriteInt32(v int32) {
	p.data = binary.LittleEndian.AppendUint32(p.data, uint32(v))
}

// WriteUint32 appends a little-endian uint32.
func (p *Parcel) WriteUint32(v uint32) {
	p.data = binary.LittleEndian.AppendUint32(p.data, v)
}

// WriteString16 appends a UTF-16 string: int32 length in code units,
// the little-endian code units, a NUL terminator, padding to a 4-byte
// boundary.
func (p *Parcel) WriteString16(s string) {
	units := utf16.Encode([]rune(s))
	p.WriteInt32(int32(len(units)))
	for _, u := range units {
		p.data = binary.LittleEndian.AppendUint16(p.data, u)
	}
	p.data = binary.LittleEndian.AppendUint16(p.data, 0)
	for len(p.data)%4 != 0 {
		p.data = append(p.data, 0)
	}
}

// WriteString16Null appends the null-string marker (length -1, no
// data).
func (p *Parcel) WriteString16Null() {
	p.WriteInt32(-1)
}

// WriteInterfaceToken appends the RPC header the platform expects at
// the start of every remote call: the strict-mode policy word (zero —
// this client gathers no violations) followed by the interface
// descriptor string.
func (p *Parcel) WriteInterfaceToken(descriptor string) {
	p.WriteInt32(0)
	p.WriteString16(descriptor)
}

// WriteNullBinder appends a flat object carrying a null local binder
// reference and records its offset. The platform reads this where an
// optional IBinder argument (such as a caller token) is expected.
func (p *Parcel) WriteNullBinder() {
	p.offsets = append(p.offsets, uint64(len(p.data)))
	p.data = binary.LittleEndian.AppendUint32(p.data, typeBinder)
	p.data = binary.LittleEndian.AppendUint32(p.data, 0) // flags
	p.data = binary.LittleEndian.AppendUint64(p.data, 0) // binder
	p.data = binary.LittleEndian.AppendUint64(p.data, 0) // cookie
}

// flatObject is one embedded object reference read back from a reply.
type flatObject struct {
	objType uint32
	flags   uint32
	handle  uint64
	cookie  uint64
}

// decodeFlatObject parses a flat_binder_object at offset within data.
func decodeFlatObject(data []byte, offset uint64) (flatObject, error) {
	if offset+flatObjectSize > uint64(len(data)) {
		return flatObject{}, fmt.Errorf("flat object at offset %d exceeds payload of %d bytes", offset, len(data))
	}
	in := data[offset:]
	return flatObject{
		objType: binary.LittleEndian.Uint32(in[0:]),
		flags:   binary.LittleEndian.Uint32(in[4:]),
		handle:  binary.LittleEndian.Uint64(in[8:]),
		cookie:  binary.LittleEndian.Uint64(in[16:]),
	}, nil
}
