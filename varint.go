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

import "io"

// Variable length integer layouts.
//
// Signed values put a flag in bit 0 of the first byte, six data bits above it
// and a continuation bit in bit 7:
//
//	byte0 = flag | (low6 << 1) | (more << 7)
//	byteN = low7 | (more << 7)
//
// For signed integers the flag is the sign and negative values are stored as
// their bitwise complement. MetaHandle raw values reuse the same layout with the
// flag meaning "metadata follows". Unsigned values use plain 7-bit groups.

const (
	maxVarintLen64  = 10
	maxFlagVarint64 = 10
)

// appendFlagVarint appends u (the magnitude) with flag in bit 0 of the first byte.
func appendFlagVarint(b []byte, u uint64, flag bool) []byte {
	first := byte(u&0x3f) << 1
	if flag {
		first |= 1
	}
	u >>= 6
	if u == 0 {
		return append(b, first)
	}
	b = append(b, first|0x80)
	for u >= 0x80 {
		b = append(b, byte(u)|0x80)
		u >>= 7
	}
	return append(b, byte(u))
}

// appendSignedVarint appends v in the signed layout.
func appendSignedVarint(b []byte, v int64) []byte {
	if v < 0 {
		return appendFlagVarint(b, uint64(^v), true)
	}
	return appendFlagVarint(b, uint64(v), false)
}

// appendUvarint appends v as 7-bit groups.
func appendUvarint(b []byte, v uint64) []byte {
	for v >= 0x80 {
		b = append(b, byte(v)|0x80)
		v >>= 7
	}
	return append(b, byte(v))
}

// readFlagVarint decodes the flag layout. bits bounds the magnitude width.
func readFlagVarint(r io.ByteReader, bits uint) (uint64, bool, error) {
	first, err := r.ReadByte()
	if err != nil {
		return 0, false, eofToCorrupt(err)
	}
	flag := first&1 != 0
	u := uint64(first>>1) & 0x3f
	if first&0x80 == 0 {
		return u, flag, nil
	}
	shift := uint(6)
	for i := 1; i < maxFlagVarint64; i++ {
		c, err := r.ReadByte()
		if err != nil {
			return 0, false, eofToCorrupt(err)
		}
		if shift >= bits || (bits-shift < 7 && uint64(c&0x7f)>>(bits-shift) != 0) {
			return 0, false, corruptf("varint overflows %d bits", bits)
		}
		u |= uint64(c&0x7f) << shift
		if c&0x80 == 0 {
			return u, flag, nil
		}
		shift += 7
	}
	return 0, false, corruptf("varint too long")
}

// readSignedVarint decodes a signed value of at most bits width (sign excluded).
func readSignedVarint(r io.ByteReader, bits uint) (int64, error) {
	u, neg, err := readFlagVarint(r, bits)
	if err != nil {
		return 0, err
	}
	if neg {
		return ^int64(u), nil
	}
	return int64(u), nil
}

// readUvarint decodes an unsigned value of at most bits width.
func readUvarint(r io.ByteReader, bits uint) (uint64, error) {
	var u uint64
	var shift uint
	for i := 0; i < maxVarintLen64; i++ {
		c, err := r.ReadByte()
		if err != nil {
			return 0, eofToCorrupt(err)
		}
		if shift >= bits || (bits-shift < 7 && uint64(c&0x7f)>>(bits-shift) != 0) {
			return 0, corruptf("uvarint overflows %d bits", bits)
		}
		u |= uint64(c&0x7f) << shift
		if c&0x80 == 0 {
			return u, nil
		}
		shift += 7
	}
	return 0, corruptf("uvarint too long")
}

func eofToCorrupt(err error) error {
	if err == io.EOF || err == io.ErrUnexpectedEOF {
		return corruptf("unexpected end of stream")
	}
	return err
}
