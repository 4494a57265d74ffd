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
	"bytes"
	"math"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func writeWith(t *testing.T, fn func(w *PrimitiveWriter)) []byte {
	t.Helper()
	var buf bytes.Buffer
	w := NewPrimitiveWriter(&buf)
	fn(w)
	require.NoError(t, w.Flush())
	return buf.Bytes()
}

func checkSignedVarint(t *testing.T, value int64, bytesWritten int) {
	t.Helper()
	data := writeWith(t, func(w *PrimitiveWriter) { w.WriteInt64(value) })
	require.Len(t, data, bytesWritten)
	r := NewPrimitiveReader(bytes.NewReader(data))
	require.Equal(t, value, r.ReadInt64())
	require.NoError(t, r.Err())
}

func checkUvarint(t *testing.T, value uint64, bytesWritten int) {
	t.Helper()
	data := writeWith(t, func(w *PrimitiveWriter) { w.WriteUint64(value) })
	require.Len(t, data, bytesWritten)
	r := NewPrimitiveReader(bytes.NewReader(data))
	require.Equal(t, value, r.ReadUint64())
	require.NoError(t, r.Err())
}

func TestSignedVarint(t *testing.T) {
	checkSignedVarint(t, 0, 1)
	checkSignedVarint(t, 1, 1)
	checkSignedVarint(t, -1, 1)
	checkSignedVarint(t, 63, 1)
	checkSignedVarint(t, -64, 1)
	checkSignedVarint(t, 64, 2)
	checkSignedVarint(t, -65, 2)
	checkSignedVarint(t, 1<<13-1, 2)
	checkSignedVarint(t, 1<<13, 3)
	checkSignedVarint(t, 1<<20, 4)
	checkSignedVarint(t, 1<<27, 5)
	checkSignedVarint(t, math.MaxInt32, 5)
	checkSignedVarint(t, math.MinInt32, 5)
	checkSignedVarint(t, math.MaxInt64, 10)
	checkSignedVarint(t, math.MinInt64, 10)
}

func TestSignedVarintLayout(t *testing.T) {
	require.Equal(t, []byte{0x00}, writeWith(t, func(w *PrimitiveWriter) { w.WriteInt32(0) }))
	require.Equal(t, []byte{0x02}, writeWith(t, func(w *PrimitiveWriter) { w.WriteInt32(1) }))
	require.Equal(t, []byte{0x01}, writeWith(t, func(w *PrimitiveWriter) { w.WriteInt32(-1) }))
	require.Equal(t, []byte{0x7e}, writeWith(t, func(w *PrimitiveWriter) { w.WriteInt32(63) }))
	require.Equal(t, []byte{0x80, 0x01}, writeWith(t, func(w *PrimitiveWriter) { w.WriteInt32(64) }))
	require.Equal(t, []byte{0x81, 0x01}, writeWith(t, func(w *PrimitiveWriter) { w.WriteInt32(-65) }))
}

func TestUvarint(t *testing.T) {
	checkUvarint(t, 0, 1)
	checkUvarint(t, 127, 1)
	checkUvarint(t, 128, 2)
	checkUvarint(t, 1<<14, 3)
	checkUvarint(t, math.MaxUint32, 5)
	checkUvarint(t, math.MaxUint64, 10)
}

func TestIntegerBoundaries(t *testing.T) {
	data := writeWith(t, func(w *PrimitiveWriter) {
		w.WriteInt32(math.MinInt32)
		w.WriteInt32(-1)
		w.WriteInt32(0)
		w.WriteInt64(math.MaxInt64)
		w.WriteInt16(math.MinInt16)
		w.WriteInt16(math.MaxInt16)
		w.WriteInt8(math.MinInt8)
		w.WriteUint16(math.MaxUint16)
		w.WriteUint32(math.MaxUint32)
	})
	r := NewPrimitiveReader(bytes.NewReader(data))
	require.Equal(t, int32(math.MinInt32), r.ReadInt32())
	require.Equal(t, int32(-1), r.ReadInt32())
	require.Equal(t, int32(0), r.ReadInt32())
	require.Equal(t, int64(math.MaxInt64), r.ReadInt64())
	require.Equal(t, int16(math.MinInt16), r.ReadInt16())
	require.Equal(t, int16(math.MaxInt16), r.ReadInt16())
	require.Equal(t, int8(math.MinInt8), r.ReadInt8())
	require.Equal(t, uint16(math.MaxUint16), r.ReadUint16())
	require.Equal(t, uint32(math.MaxUint32), r.ReadUint32())
	require.NoError(t, r.Err())
}

func TestVarintOverflow(t *testing.T) {
	t.Run("Int32", func(t *testing.T) {
		data := writeWith(t, func(w *PrimitiveWriter) { w.WriteInt64(1 << 40) })
		r := NewPrimitiveReader(bytes.NewReader(data))
		r.ReadInt32()
		require.ErrorIs(t, r.Err(), ErrStreamCorrupted)
	})
	t.Run("Int16", func(t *testing.T) {
		data := writeWith(t, func(w *PrimitiveWriter) { w.WriteInt64(40000) })
		r := NewPrimitiveReader(bytes.NewReader(data))
		r.ReadInt16()
		require.ErrorIs(t, r.Err(), ErrStreamCorrupted)
	})
	t.Run("Uint32", func(t *testing.T) {
		data := writeWith(t, func(w *PrimitiveWriter) { w.WriteUint64(1 << 32) })
		r := NewPrimitiveReader(bytes.NewReader(data))
		r.ReadUint32()
		require.ErrorIs(t, r.Err(), ErrStreamCorrupted)
	})
	t.Run("TooLong", func(t *testing.T) {
		r := NewPrimitiveReader(bytes.NewReader(bytes.Repeat([]byte{0xff}, 11)))
		r.ReadUint64()
		require.ErrorIs(t, r.Err(), ErrStreamCorrupted)
	})
	t.Run("Truncated", func(t *testing.T) {
		r := NewPrimitiveReader(bytes.NewReader([]byte{0x80}))
		r.ReadInt64()
		require.ErrorIs(t, r.Err(), ErrStreamCorrupted)
	})
}

func TestStickyReadError(t *testing.T) {
	r := NewPrimitiveReader(bytes.NewReader([]byte{0x02}))
	require.False(t, r.ReadBool())
	require.ErrorIs(t, r.Err(), ErrStreamCorrupted)
	require.Equal(t, "", r.ReadString())
	require.Equal(t, int64(0), r.ReadInt64())
}

func TestFixedWidth(t *testing.T) {
	require.Equal(t, []byte{0x00, 0x00, 0x80, 0x3f},
		writeWith(t, func(w *PrimitiveWriter) { w.WriteFloat32(1) }))

	data := writeWith(t, func(w *PrimitiveWriter) {
		w.WriteFloat32(-2.5)
		w.WriteFloat64(math.Pi)
		w.WriteFloat64(math.Inf(-1))
		w.WriteComplex64(complex(1, -1))
		w.WriteComplex128(complex(math.MaxFloat64, math.SmallestNonzeroFloat64))
		w.WriteBool(true)
		w.WriteUint8(0xff)
	})
	r := NewPrimitiveReader(bytes.NewReader(data))
	require.Equal(t, float32(-2.5), r.ReadFloat32())
	require.Equal(t, math.Pi, r.ReadFloat64())
	require.True(t, math.IsInf(r.ReadFloat64(), -1))
	require.Equal(t, complex64(complex(1, -1)), r.ReadComplex64())
	require.Equal(t, complex(math.MaxFloat64, math.SmallestNonzeroFloat64), r.ReadComplex128())
	require.True(t, r.ReadBool())
	require.Equal(t, uint8(0xff), r.ReadUint8())
	require.NoError(t, r.Err())
}

func TestStrings(t *testing.T) {
	long := strings.Repeat("slimgraph ", 300)
	data := writeWith(t, func(w *PrimitiveWriter) {
		w.WriteString("")
		w.WriteString("héllo, 世界")
		w.WriteString(long)
		w.WriteBytes([]byte{1, 2, 3})
	})
	r := NewPrimitiveReader(bytes.NewReader(data))
	require.Equal(t, "", r.ReadString())
	require.Equal(t, "héllo, 世界", r.ReadString())
	require.Equal(t, long, r.ReadString())
	require.Equal(t, []byte{1, 2, 3}, r.ReadBytes())
	require.NoError(t, r.Err())

	t.Run("LengthCeiling", func(t *testing.T) {
		data := writeWith(t, func(w *PrimitiveWriter) { w.WriteString("123456789") })
		r := NewPrimitiveReader(bytes.NewReader(data))
		r.SetMaxLength(8)
		require.Equal(t, "", r.ReadString())
		require.ErrorIs(t, r.Err(), ErrStreamCorrupted)
	})
	t.Run("HugeDeclaredLength", func(t *testing.T) {
		r := NewPrimitiveReader(bytes.NewReader([]byte{0xff, 0xff, 0xff, 0xff, 0x0f}))
		require.Nil(t, r.ReadBytes())
		require.ErrorIs(t, r.Err(), ErrStreamCorrupted)
	})
}

func TestTime(t *testing.T) {
	t.Run("Epoch", func(t *testing.T) {
		data := writeWith(t, func(w *PrimitiveWriter) { w.WriteTime(time.Date(1, 1, 1, 0, 0, 0, 0, time.UTC)) })
		require.Equal(t, []byte{0, 0, 0, 0, 0, 0, 0, 0, timeKindUTC}, data)
	})
	t.Run("RoundTrip", func(t *testing.T) {
		utc := time.Date(2024, 3, 1, 12, 30, 45, 123456700, time.UTC)
		local := time.Date(1999, 12, 31, 23, 59, 59, 0, time.Local)
		data := writeWith(t, func(w *PrimitiveWriter) {
			w.WriteTime(utc)
			w.WriteTime(local)
		})
		r := NewPrimitiveReader(bytes.NewReader(data))
		got := r.ReadTime()
		require.True(t, utc.Equal(got))
		require.Equal(t, time.UTC, got.Location())
		got = r.ReadTime()
		require.True(t, local.Equal(got))
		require.Equal(t, time.Local, got.Location())
		require.NoError(t, r.Err())
	})
	t.Run("TruncatesToTicks", func(t *testing.T) {
		in := time.Date(2020, 1, 2, 3, 4, 5, 123456789, time.UTC)
		data := writeWith(t, func(w *PrimitiveWriter) { w.WriteTime(in) })
		got := NewPrimitiveReader(bytes.NewReader(data)).ReadTime()
		require.Equal(t, 123456700, got.Nanosecond())
	})
	t.Run("BadKind", func(t *testing.T) {
		r := NewPrimitiveReader(bytes.NewReader([]byte{0, 0, 0, 0, 0, 0, 0, 0, 3}))
		r.ReadTime()
		require.ErrorIs(t, r.Err(), ErrStreamCorrupted)
	})
}

func TestDecimal(t *testing.T) {
	values := []string{"0", "123.45", "-0.0001", "79228162514264337593543950335", "-7922816251426433759354395033.5", "1e10"}
	for _, s := range values {
		t.Run(s, func(t *testing.T) {
			want := decimal.RequireFromString(s)
			data := writeWith(t, func(w *PrimitiveWriter) { w.WriteDecimal(want) })
			require.Len(t, data, 13)
			got := NewPrimitiveReader(bytes.NewReader(data)).ReadDecimal()
			require.True(t, want.Equal(got), "want %v, got %v", want, got)
		})
	}

	t.Run("Layout", func(t *testing.T) {
		data := writeWith(t, func(w *PrimitiveWriter) { w.WriteDecimal(decimal.RequireFromString("-0.0001")) })
		require.Equal(t, []byte{1, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0x84}, data)
	})
	t.Run("RoundsExcessScale", func(t *testing.T) {
		in := decimal.RequireFromString("0.1234567890123456789012345678901")
		data := writeWith(t, func(w *PrimitiveWriter) { w.WriteDecimal(in) })
		got := NewPrimitiveReader(bytes.NewReader(data)).ReadDecimal()
		require.True(t, in.Round(28).Equal(got))
	})
	t.Run("Overflow", func(t *testing.T) {
		var buf bytes.Buffer
		w := NewPrimitiveWriter(&buf)
		w.WriteDecimal(decimal.RequireFromString("79228162514264337593543950336"))
		require.Error(t, w.Err())
	})
	t.Run("BadScale", func(t *testing.T) {
		r := NewPrimitiveReader(bytes.NewReader(append(make([]byte, 12), 29)))
		r.ReadDecimal()
		require.ErrorIs(t, r.Err(), ErrStreamCorrupted)
	})
}

func TestUUID(t *testing.T) {
	id := uuid.MustParse("6ba7b810-9dad-11d1-80b4-00c04fd430c8")
	data := writeWith(t, func(w *PrimitiveWriter) { w.WriteUUID(id) })
	require.Equal(t, id[:], data)
	require.Equal(t, id, NewPrimitiveReader(bytes.NewReader(data)).ReadUUID())
}

func TestVarIntStr(t *testing.T) {
	require.Equal(t, []byte{0x00}, writeWith(t, func(w *PrimitiveWriter) { w.WriteVarIntStr(IndexHandle(nullIndex)) }))
	require.Equal(t, []byte{0x0a}, writeWith(t, func(w *PrimitiveWriter) { w.WriteVarIntStr(IndexHandle(5)) }))
	require.Equal(t, []byte{0x05, 'a', 'b'}, writeWith(t, func(w *PrimitiveWriter) { w.WriteVarIntStr(NameHandle("ab")) }))

	data := writeWith(t, func(w *PrimitiveWriter) {
		w.WriteVarIntStr(IndexHandle(300))
		w.WriteVarIntStr(NameHandle("github.com/x/y.Z"))
	})
	r := NewPrimitiveReader(bytes.NewReader(data))
	require.Equal(t, IndexHandle(300), r.ReadVarIntStr())
	require.Equal(t, NameHandle("github.com/x/y.Z"), r.ReadVarIntStr())
	require.NoError(t, r.Err())
}

func TestMetaHandleWire(t *testing.T) {
	require.Equal(t, []byte{0x08}, writeWith(t, func(w *PrimitiveWriter) { w.WriteMetaHandle(NullHandle()) }))
	require.Equal(t, []byte{0x00}, writeWith(t, func(w *PrimitiveWriter) { w.WriteMetaHandle(InlineStringHandle()) }))
	require.Equal(t, []byte{0x0a}, writeWith(t, func(w *PrimitiveWriter) { w.WriteMetaHandle(SlotHandle(1, nil)) }))
	require.Equal(t, []byte{0x0b, 0x0e},
		writeWith(t, func(w *PrimitiveWriter) { w.WriteMetaHandle(SlotHandle(1, metaPtr(IndexHandle(7)))) }))

	handles := []MetaHandle{
		NullHandle(),
		SlotHandle(70, nil),
		SlotHandle(2, metaPtr(NameHandle("$2|7"))),
		InlineValueHandle(IndexHandle(4)),
		InlineReferenceHandle(NameHandle("[]int16")),
		InlineTypeHandle(IndexHandle(9)),
	}
	data := writeWith(t, func(w *PrimitiveWriter) {
		for _, h := range handles {
			w.WriteMetaHandle(h)
		}
	})
	r := NewPrimitiveReader(bytes.NewReader(data))
	for _, want := range handles {
		got := r.ReadMetaHandle()
		require.True(t, want.Equal(got), "want %v, got %v", want, got)
	}
	require.NoError(t, r.Err())
}
