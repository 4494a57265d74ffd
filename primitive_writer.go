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
	"bufio"
	"encoding/binary"
	"io"
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// PrimitiveWriter writes primitive values to a bound stream.
//
// Errors are sticky: after the first failure all further writes are dropped
// and Err reports the failure.
type PrimitiveWriter struct {
	w       *bufio.Writer
	scratch []byte
	err     error
}

// NewPrimitiveWriter returns a writer bound to w.
func NewPrimitiveWriter(w io.Writer) *PrimitiveWriter {
	pw := &PrimitiveWriter{scratch: make([]byte, 0, 16)}
	pw.Bind(w)
	return pw
}

// Bind attaches the writer to a new stream, reusing its buffers.
func (w *PrimitiveWriter) Bind(out io.Writer) {
	if w.w == nil {
		w.w = bufio.NewWriter(out)
	} else {
		w.w.Reset(out)
	}
	w.err = nil
}

// Unbind flushes buffered output and detaches the stream.
func (w *PrimitiveWriter) Unbind() error {
	if w.w == nil {
		return w.err
	}
	if err := w.w.Flush(); err != nil && w.err == nil {
		w.err = err
	}
	w.w.Reset(io.Discard)
	return w.err
}

// Flush writes any buffered data to the bound stream.
func (w *PrimitiveWriter) Flush() error {
	if w.err != nil {
		return w.err
	}
	w.err = w.w.Flush()
	return w.err
}

// Err returns the first error encountered.
func (w *PrimitiveWriter) Err() error { return w.err }

func (w *PrimitiveWriter) setErr(err error) {
	if w.err == nil {
		w.err = err
	}
}

func (w *PrimitiveWriter) data(p []byte) {
	if w.err != nil {
		return
	}
	if _, err := w.w.Write(p); err != nil {
		w.err = err
	}
}

func (w *PrimitiveWriter) flushScratch() {
	w.data(w.scratch)
	w.scratch = w.scratch[:0]
}

// WriteRaw writes p without a length prefix.
func (w *PrimitiveWriter) WriteRaw(p []byte) { w.data(p) }

func (w *PrimitiveWriter) WriteByte(v byte) error {
	if w.err != nil {
		return w.err
	}
	w.err = w.w.WriteByte(v)
	return w.err
}

func (w *PrimitiveWriter) WriteBool(v bool) {
	if v {
		w.WriteByte(1)
	} else {
		w.WriteByte(0)
	}
}

// WritePresence writes the nullable prefix shared by every optional payload.
func (w *PrimitiveWriter) WritePresence(present bool) { w.WriteBool(present) }

func (w *PrimitiveWriter) WriteInt8(v int8)   { w.WriteByte(byte(v)) }
func (w *PrimitiveWriter) WriteUint8(v uint8) { w.WriteByte(v) }

func (w *PrimitiveWriter) WriteInt16(v int16) { w.WriteInt64(int64(v)) }
func (w *PrimitiveWriter) WriteInt32(v int32) { w.WriteInt64(int64(v)) }

func (w *PrimitiveWriter) WriteInt64(v int64) {
	w.scratch = appendSignedVarint(w.scratch[:0], v)
	w.flushScratch()
}

func (w *PrimitiveWriter) WriteUint16(v uint16) { w.WriteUint64(uint64(v)) }
func (w *PrimitiveWriter) WriteUint32(v uint32) { w.WriteUint64(uint64(v)) }

func (w *PrimitiveWriter) WriteUint64(v uint64) {
	w.scratch = appendUvarint(w.scratch[:0], v)
	w.flushScratch()
}

func (w *PrimitiveWriter) WriteFloat32(v float32) {
	w.scratch = binary.LittleEndian.AppendUint32(w.scratch[:0], math.Float32bits(v))
	w.flushScratch()
}

func (w *PrimitiveWriter) WriteFloat64(v float64) {
	w.scratch = binary.LittleEndian.AppendUint64(w.scratch[:0], math.Float64bits(v))
	w.flushScratch()
}

func (w *PrimitiveWriter) WriteComplex64(v complex64) {
	w.WriteFloat32(real(v))
	w.WriteFloat32(imag(v))
}

func (w *PrimitiveWriter) WriteComplex128(v complex128) {
	w.WriteFloat64(real(v))
	w.WriteFloat64(imag(v))
}

// WriteString writes the UTF-8 byte length followed by the bytes.
func (w *PrimitiveWriter) WriteString(v string) {
	w.WriteUint64(uint64(len(v)))
	if w.err != nil || len(v) == 0 {
		return
	}
	if _, err := w.w.WriteString(v); err != nil {
		w.err = err
	}
}

// WriteBytes writes a length-prefixed byte block.
func (w *PrimitiveWriter) WriteBytes(v []byte) {
	w.WriteUint64(uint64(len(v)))
	w.data(v)
}

// WriteTime writes a DateTime: big-endian ticks followed by the kind byte.
func (w *PrimitiveWriter) WriteTime(v time.Time) {
	ticks, kind := timeToTicks(v)
	w.scratch = binary.BigEndian.AppendUint64(w.scratch[:0], uint64(ticks))
	w.scratch = append(w.scratch, kind)
	w.flushScratch()
}

// WriteDecimal writes three little-endian 32-bit words and a sign/scale byte.
func (w *PrimitiveWriter) WriteDecimal(v decimal.Decimal) {
	words, flags, err := decimalToWords(v)
	if err != nil {
		w.setErr(err)
		return
	}
	w.scratch = w.scratch[:0]
	for _, word := range words {
		w.scratch = binary.LittleEndian.AppendUint32(w.scratch, word)
	}
	w.scratch = append(w.scratch, flags)
	w.flushScratch()
}

// WriteUUID writes the 16 raw bytes of a Guid.
func (w *PrimitiveWriter) WriteUUID(v uuid.UUID) { w.data(v[:]) }

// WriteVarIntStr writes a type handle token.
func (w *PrimitiveWriter) WriteVarIntStr(v VarIntStr) {
	if !v.IsName {
		w.WriteUint64(uint64(v.Index) << 1)
		return
	}
	w.WriteUint64(uint64(len(v.Name))<<1 | 1)
	if w.err != nil || len(v.Name) == 0 {
		return
	}
	if _, err := w.w.WriteString(v.Name); err != nil {
		w.err = err
	}
}

// WriteMetaHandle writes the raw handle value and, when present, its metadata.
func (w *PrimitiveWriter) WriteMetaHandle(h MetaHandle) {
	if h.Raw < 0 {
		w.setErr(corruptf("negative handle %d", h.Raw))
		return
	}
	w.scratch = appendFlagVarint(w.scratch[:0], uint64(h.Raw), h.Meta != nil)
	w.flushScratch()
	if h.Meta != nil {
		w.WriteVarIntStr(*h.Meta)
	}
}

// ============================================================================
// DateTime ticks
// ============================================================================

const (
	timeKindUnspecified byte = 0
	timeKindUTC         byte = 1
	timeKindLocal       byte = 2

	ticksPerSecond = 10_000_000
	// seconds between 0001-01-01 and 1970-01-01
	unixEpochSeconds = 62_135_596_800
)

func timeToTicks(t time.Time) (int64, byte) {
	kind := timeKindUnspecified
	switch t.Location() {
	case time.UTC:
		kind = timeKindUTC
	case time.Local:
		kind = timeKindLocal
	}
	ticks := (t.Unix()+unixEpochSeconds)*ticksPerSecond + int64(t.Nanosecond()/100)
	return ticks, kind
}

func ticksToTime(ticks int64, kind byte) (time.Time, error) {
	if kind > timeKindLocal {
		return time.Time{}, corruptf("invalid time kind %d", kind)
	}
	sec := ticks/ticksPerSecond - unixEpochSeconds
	nsec := (ticks % ticksPerSecond) * 100
	t := time.Unix(sec, nsec)
	if kind == timeKindLocal {
		return t.Local(), nil
	}
	return t.UTC(), nil
}
