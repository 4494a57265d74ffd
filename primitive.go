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
	"reflect"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ============================================================================
// Primitive codecs - one per reflect.Kind plus the fixed-width value types
// ============================================================================

// primCodec writes and reads one primitive value through reflection. Named
// types (enums) share the codec of their underlying kind.
type primCodec struct {
	write func(w *PrimitiveWriter, v reflect.Value)
	read  func(r *PrimitiveReader, v reflect.Value)
}

var boolCodec = &primCodec{
	write: func(w *PrimitiveWriter, v reflect.Value) { w.WriteBool(v.Bool()) },
	read:  func(r *PrimitiveReader, v reflect.Value) { v.SetBool(r.ReadBool()) },
}

var int8Codec = &primCodec{
	write: func(w *PrimitiveWriter, v reflect.Value) { w.WriteInt8(int8(v.Int())) },
	read:  func(r *PrimitiveReader, v reflect.Value) { v.SetInt(int64(r.ReadInt8())) },
}

var int16Codec = &primCodec{
	write: func(w *PrimitiveWriter, v reflect.Value) { w.WriteInt16(int16(v.Int())) },
	read:  func(r *PrimitiveReader, v reflect.Value) { v.SetInt(int64(r.ReadInt16())) },
}

var int32Codec = &primCodec{
	write: func(w *PrimitiveWriter, v reflect.Value) { w.WriteInt32(int32(v.Int())) },
	read:  func(r *PrimitiveReader, v reflect.Value) { v.SetInt(int64(r.ReadInt32())) },
}

var int64Codec = &primCodec{
	write: func(w *PrimitiveWriter, v reflect.Value) { w.WriteInt64(v.Int()) },
	read:  func(r *PrimitiveReader, v reflect.Value) { v.SetInt(r.ReadInt64()) },
}

var uint8Codec = &primCodec{
	write: func(w *PrimitiveWriter, v reflect.Value) { w.WriteUint8(uint8(v.Uint())) },
	read:  func(r *PrimitiveReader, v reflect.Value) { v.SetUint(uint64(r.ReadUint8())) },
}

var uint16Codec = &primCodec{
	write: func(w *PrimitiveWriter, v reflect.Value) { w.WriteUint16(uint16(v.Uint())) },
	read:  func(r *PrimitiveReader, v reflect.Value) { v.SetUint(uint64(r.ReadUint16())) },
}

var uint32Codec = &primCodec{
	write: func(w *PrimitiveWriter, v reflect.Value) { w.WriteUint32(uint32(v.Uint())) },
	read:  func(r *PrimitiveReader, v reflect.Value) { v.SetUint(uint64(r.ReadUint32())) },
}

var uint64Codec = &primCodec{
	write: func(w *PrimitiveWriter, v reflect.Value) { w.WriteUint64(v.Uint()) },
	read:  func(r *PrimitiveReader, v reflect.Value) { v.SetUint(r.ReadUint64()) },
}

var float32Codec = &primCodec{
	write: func(w *PrimitiveWriter, v reflect.Value) { w.WriteFloat32(float32(v.Float())) },
	read:  func(r *PrimitiveReader, v reflect.Value) { v.SetFloat(float64(r.ReadFloat32())) },
}

var float64Codec = &primCodec{
	write: func(w *PrimitiveWriter, v reflect.Value) { w.WriteFloat64(v.Float()) },
	read:  func(r *PrimitiveReader, v reflect.Value) { v.SetFloat(r.ReadFloat64()) },
}

var complex64Codec = &primCodec{
	write: func(w *PrimitiveWriter, v reflect.Value) { w.WriteComplex64(complex64(v.Complex())) },
	read:  func(r *PrimitiveReader, v reflect.Value) { v.SetComplex(complex128(r.ReadComplex64())) },
}

var complex128Codec = &primCodec{
	write: func(w *PrimitiveWriter, v reflect.Value) { w.WriteComplex128(v.Complex()) },
	read:  func(r *PrimitiveReader, v reflect.Value) { v.SetComplex(r.ReadComplex128()) },
}

var stringCodec = &primCodec{
	write: func(w *PrimitiveWriter, v reflect.Value) { w.WriteString(v.String()) },
	read:  func(r *PrimitiveReader, v reflect.Value) { v.SetString(r.ReadString()) },
}

var timeCodec = &primCodec{
	write: func(w *PrimitiveWriter, v reflect.Value) { w.WriteTime(v.Interface().(time.Time)) },
	read:  func(r *PrimitiveReader, v reflect.Value) { v.Set(reflect.ValueOf(r.ReadTime())) },
}

var decimalCodec = &primCodec{
	write: func(w *PrimitiveWriter, v reflect.Value) { w.WriteDecimal(v.Interface().(decimal.Decimal)) },
	read:  func(r *PrimitiveReader, v reflect.Value) { v.Set(reflect.ValueOf(r.ReadDecimal())) },
}

var uuidCodec = &primCodec{
	write: func(w *PrimitiveWriter, v reflect.Value) { w.WriteUUID(v.Interface().(uuid.UUID)) },
	read:  func(r *PrimitiveReader, v reflect.Value) { v.Set(reflect.ValueOf(r.ReadUUID())) },
}

var kindCodecs = map[reflect.Kind]*primCodec{
	reflect.Bool:       boolCodec,
	reflect.Int8:       int8Codec,
	reflect.Int16:      int16Codec,
	reflect.Int32:      int32Codec,
	reflect.Int64:      int64Codec,
	reflect.Int:        int64Codec,
	reflect.Uint8:      uint8Codec,
	reflect.Uint16:     uint16Codec,
	reflect.Uint32:     uint32Codec,
	reflect.Uint64:     uint64Codec,
	reflect.Uint:       uint64Codec,
	reflect.Uintptr:    uint64Codec,
	reflect.Float32:    float32Codec,
	reflect.Float64:    float64Codec,
	reflect.Complex64:  complex64Codec,
	reflect.Complex128: complex128Codec,
	reflect.String:     stringCodec,
}

// primitiveCodecFor returns the codec for t, or nil when t is not primitive.
func primitiveCodecFor(t reflect.Type) *primCodec {
	switch t {
	case timeType:
		return timeCodec
	case decimalType:
		return decimalCodec
	case uuidType:
		return uuidCodec
	}
	return kindCodecs[t.Kind()]
}
