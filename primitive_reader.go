// Licensed to the Apache Software Foundation (ASF) under one
// or more contributor license agreements.  See the NOTICE file
// distributed with this work for additional information
// regarding copyright ownership.  The ASF licenses this file
// to you under the Apache License, Version 2.0 (the
// "License"); you may not use this file except in compliance
// with the License.  You may obtain a copy of the License at
//
//   http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing,
// software distributed under the License is distributed on an
// "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY
// KIND, either express or implied.  See the License for the
// specific language governing permissions and limitations
// under the License.

package slimgraph

import (
	"encoding/binary"
	"io"
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// DefaultMaxCollectionLength bounds declared string and array lengths.
const DefaultMaxCollectionLength = 1 << 27

type byteStream interface {
	io.Reader
	io.ByteReader
}

// byteAtATime adapts a plain io.Reader without reading past what was asked
// for, so a stream holding several graphs stays positioned after each one.
type byteAtATime struct {
	r   io.Reader
	one [1]byte
}

func (b *byteAtATime) Read(p []byte) (int, error) { return b.r.Read(p) }

func (b *byteAtATime) ReadByte() (byte, error) {
	if _, err := io.ReadFull(b.r, b.one[:]); err != nil {
		return 0, err
	}
	return b.one[0], nil
}

// PrimitiveReader reads primitive values from a bound stream.
//
// Errors are sticky: after the first failure every read returns the zero value
// and Err reports the failure.
type PrimitiveReader struct {
	r       byteStream
	plain   byteAtATime
	scratch [16]byte
	maxLen  int
	err     error
}

// NewPrimitiveReader returns a reader bound to r.
func NewPrimitiveReader(r io.Reader) *PrimitiveReader {
	pr := &PrimitiveReader{maxLen: DefaultMaxCollectionLength}
	pr.Bind(r)
	return pr
}

// Bind attaches the reader to a new stream. Streams that already implement
// io.ByteReader are read directly. Anything else is read without buffering so
// that no byte past the end of a graph is consumed; wrap such streams in a
// bufio.Reader that outlives the calls when throughput matters.
func (r *PrimitiveReader) Bind(in io.Reader) {
	r.err = nil
	if bs, ok := in.(byteStream); ok {
		r.r = bs
		return
	}
	r.plain.r = in
	r.r = &r.plain
}

// Unbind detaches the stream.
func (r *PrimitiveReader) Unbind() {
	r.plain.r = nil
	r.r = nil
}

// SetMaxLength sets the ceiling for declared string and array lengths.
func (r *PrimitiveReader) SetMaxLength(n int) {
	if n <= 0 {
		n = DefaultMaxCollectionLength
	}
	r.maxLen = n
}

// MaxLength returns the configured length ceiling.
func (r *PrimitiveReader) MaxLength() int { return r.maxLen }

// Err returns the first error encountered.
func (r *PrimitiveReader) Err() error { return r.err }

func (r *PrimitiveReader) setErr(err error) {
	if r.err == nil {
		r.err = err
	}
}

func (r *PrimitiveReader) data(p []byte) bool {
	if r.err != nil {
		return false
	}
	if _, err := io.ReadFull(r.r, p); err != nil {
		r.err = eofToCorrupt(err)
		return false
	}
	return true
}

func (r *PrimitiveReader) ReadByte() (byte, error) {
	if r.err != nil {
		return 0, r.err
	}
	b, err := r.r.ReadByte()
	if err != nil {
		r.err = eofToCorrupt(err)
		return 0, r.err
	}
	return b, nil
}

func (r *PrimitiveReader) ReadBool() bool {
	b, err := r.ReadByte()
	if err != nil {
		return false
	}
	switch b {
	case 0:
		return false
	case 1:
		return true
	}
	r.setErr(corruptf("invalid bool byte 0x%02x", b))
	return false
}

// ReadPresence reads the nullable prefix.
func (r *PrimitiveReader) ReadPresence() bool { return r.ReadBool() }

func (r *PrimitiveReader) ReadInt8() int8 {
	b, _ := r.ReadByte()
	return int8(b)
}

func (r *PrimitiveReader) ReadUint8() uint8 {
	b, _ := r.ReadByte()
	return b
}

func (r *PrimitiveReader) signed(bits uint) int64 {
	if r.err != nil {
		return 0
	}
	v, err := readSignedVarint(r.r, bits)
	if err != nil {
		r.err = err
		return 0
	}
	return v
}

func (r *PrimitiveReader) unsigned(bits uint) uint64 {
	if r.err != nil {
		return 0
	}
	v, err := readUvarint(r.r, bits)
	if err != nil {
		r.err = err
		return 0
	}
	return v
}

func (r *PrimitiveReader) ReadInt16() int16   { return int16(r.signed(15)) }
func (r *PrimitiveReader) ReadInt32() int32   { return int32(r.signed(31)) }
func (r *PrimitiveReader) ReadInt64() int64   { return r.signed(63) }
func (r *PrimitiveReader) ReadUint16() uint16 { return uint16(r.unsigned(16)) }
func (r *PrimitiveReader) ReadUint32() uint32 { return uint32(r.unsigned(32)) }
func (r *PrimitiveReader) ReadUint64() uint64 { return r.unsigned(64) }

func (r *PrimitiveReader) ReadFloat32() float32 {
	if !r.data(r.scratch[:4]) {
		return 0
	}
	return math.Float32frombits(binary.LittleEndian.Uint32(r.scratch[:4]))
}

func (r *PrimitiveReader) ReadFloat64() float64 {
	if !r.data(r.scratch[:8]) {
		return 0
	}
	return math.Float64frombits(binary.LittleEndian.Uint64(r.scratch[:8]))
}

func (r *PrimitiveReader) ReadComplex64() complex64 {
	re := r.ReadFloat32()
	return complex(re, r.ReadFloat32())
}

func (r *PrimitiveReader) ReadComplex128() complex128 {
	re := r.ReadFloat64()
	return complex(re, r.ReadFloat64())
}

// ReadLength reads an element or byte count and checks it against the ceiling
// before the caller allocates anything.
func (r *PrimitiveReader) ReadLength() int {
	n := r.unsigned(64)
	if r.err != nil {
		return 0
	}
	if n > uint64(r.maxLen) {
		r.setErr(corruptf("declared length %d exceeds limit %d", n, r.maxLen))
		return 0
	}
	return int(n)
}

// ReadString reads a length-prefixed UTF-8 string.
func (r *PrimitiveReader) ReadString() string {
	n := r.ReadLength()
	if n == 0 || r.err != nil {
		return ""
	}
	return r.readStringBytes(n)
}

// ReadBytes reads a length-prefixed byte block.
func (r *PrimitiveReader) ReadBytes() []byte {
	n := r.ReadLength()
	if r.err != nil {
		return nil
	}
	b := make([]byte, n)
	if !r.data(b) {
		return nil
	}
	return b
}

// ReadRaw fills p from the stream.
func (r *PrimitiveReader) ReadRaw(p []byte) { r.data(p) }

func (r *PrimitiveReader) ReadTime() time.Time {
	if !r.data(r.scratch[:9]) {
		return time.Time{}
	}
	ticks := int64(binary.BigEndian.Uint64(r.scratch[:8]))
	t, err := ticksToTime(ticks, r.scratch[8])
	if err != nil {
		r.setErr(err)
		return time.Time{}
	}
	return t
}

func (r *PrimitiveReader) ReadDecimal() decimal.Decimal {
	if !r.data(r.scratch[:13]) {
		return decimal.Zero
	}
	var words [3]uint32
	for i := range words {
		words[i] = binary.LittleEndian.Uint32(r.scratch[i*4:])
	}
	d, err := wordsToDecimal(words, r.scratch[12])
	if err != nil {
		r.setErr(err)
		return decimal.Zero
	}
	return d
}

func (r *PrimitiveReader) ReadUUID() uuid.UUID {
	var id uuid.UUID
	r.data(id[:])
	return id
}

// ReadVarIntStr reads a type handle token.
func (r *PrimitiveReader) ReadVarIntStr() VarIntStr {
	tag := r.unsigned(64)
	if r.err != nil {
		return VarIntStr{}
	}
	if tag&1 == 0 {
		idx := tag >> 1
		if idx > math.MaxUint32 {
			r.setErr(corruptf("type index %d out of range", idx))
			return VarIntStr{}
		}
		return IndexHandle(uint32(idx))
	}
	n := tag >> 1
	if n > uint64(r.maxLen) {
		r.setErr(corruptf("type name length %d exceeds limit %d", n, r.maxLen))
		return VarIntStr{}
	}
	return NameHandle(r.readStringBytes(int(n)))
}

// ReadMetaHandle reads a raw handle value and its metadata when flagged.
func (r *PrimitiveReader) ReadMetaHandle() MetaHandle {
	if r.err != nil {
		return MetaHandle{}
	}
	raw, hasMeta, err := readFlagVarint(r.r, 63)
	if err != nil {
		r.err = err
		return MetaHandle{}
	}
	h := MetaHandle{Raw: int64(raw)}
	if hasMeta {
		meta := r.ReadVarIntStr()
		h.Meta = &meta
	}
	return h
}
