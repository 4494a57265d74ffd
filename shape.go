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
	"strconv"
	"strings"
)

const (
	// MaxArrayRank bounds the number of dimensions a descriptor may declare.
	MaxArrayRank = 37
	// MaxArrayElements bounds the total element count a descriptor may declare.
	MaxArrayElements = 388_000_000

	multiArrayPrefix = '@'
	shapeSeparator   = '|'
	boundSeparator   = '~'
	dimSeparator     = ','
)

// ArrayShape is the decoded form of an array descriptor.
type ArrayShape struct {
	// Token is "$<index>" or the full name of the slice type []T.
	Token string
	// Multi marks a *Array rather than a plain slice.
	Multi   bool
	Lower   []int
	Lengths []int
}

// Rank returns the number of dimensions.
func (s ArrayShape) Rank() int { return len(s.Lengths) }

// Count returns the total number of elements.
func (s ArrayShape) Count() int {
	n := 1
	for _, l := range s.Lengths {
		n *= l
	}
	return n
}

// TokenHandle converts the type token back into a VarIntStr.
func (s ArrayShape) TokenHandle() (VarIntStr, error) {
	if strings.HasPrefix(s.Token, "$") {
		idx, err := strconv.ParseUint(s.Token[1:], 10, 32)
		if err != nil {
			return VarIntStr{}, corruptf("bad array type token %q", s.Token)
		}
		return IndexHandle(uint32(idx)), nil
	}
	if s.Token == "" {
		return VarIntStr{}, corruptf("empty array type token")
	}
	return NameHandle(s.Token), nil
}

// shapeToken renders a type handle as a descriptor token.
func shapeToken(h VarIntStr) string {
	if h.IsName {
		return h.Name
	}
	return "$" + strconv.FormatUint(uint64(h.Index), 10)
}

// EncodeShape renders s as a descriptor string.
func EncodeShape(s ArrayShape) string {
	var b strings.Builder
	if s.Multi {
		b.WriteByte(multiArrayPrefix)
	}
	b.WriteString(s.Token)
	b.WriteByte(shapeSeparator)
	if !s.Multi && s.Token == "$2" && len(s.Lengths) == 1 {
		b.WriteString(strconv.Itoa(s.Lengths[0]))
		return b.String()
	}
	for i, n := range s.Lengths {
		if i > 0 {
			b.WriteByte(dimSeparator)
		}
		lb := 0
		if i < len(s.Lower) {
			lb = s.Lower[i]
		}
		b.WriteString(strconv.Itoa(lb))
		b.WriteByte(boundSeparator)
		b.WriteString(strconv.Itoa(lb + n - 1))
	}
	return b.String()
}

// isShapeDescriptor reports whether a metadata name is an array descriptor
// rather than a type name.
func isShapeDescriptor(name string) bool {
	return strings.IndexByte(name, shapeSeparator) >= 0
}

// DecodeShape parses a descriptor. Rank and element limits, and the ceiling
// maxElements when positive, are checked before anything is allocated.
func DecodeShape(desc string, maxElements int) (ArrayShape, error) {
	var s ArrayShape
	if strings.HasPrefix(desc, string(multiArrayPrefix)) {
		s.Multi = true
		desc = desc[1:]
	}
	sep := strings.LastIndexByte(desc, shapeSeparator)
	if sep < 0 {
		return s, corruptf("array descriptor %q has no bounds", desc)
	}
	s.Token = desc[:sep]
	bounds := desc[sep+1:]
	if s.Token == "" || bounds == "" {
		return s, corruptf("malformed array descriptor %q", desc)
	}
	rank := strings.Count(bounds, string(dimSeparator)) + 1
	if rank > MaxArrayRank {
		return s, corruptf("array rank %d exceeds %d", rank, MaxArrayRank)
	}
	limit := MaxArrayElements
	if maxElements > 0 && maxElements < limit {
		limit = maxElements
	}
	s.Lower = make([]int, 0, rank)
	s.Lengths = make([]int, 0, rank)
	total := 1
	for _, dim := range strings.Split(bounds, string(dimSeparator)) {
		lb, n, err := parseDimension(dim)
		if err != nil {
			return s, err
		}
		if n > 0 && total > limit/n {
			return s, corruptf("array of more than %d elements", limit)
		}
		total *= n
		s.Lower = append(s.Lower, lb)
		s.Lengths = append(s.Lengths, n)
	}
	if total > limit {
		return s, corruptf("array of %d elements exceeds %d", total, limit)
	}
	if !s.Multi && (rank != 1 || s.Lower[0] != 0) {
		return s, corruptf("slice descriptor %q must be rank 1 from 0", desc)
	}
	return s, nil
}

func parseDimension(dim string) (lb, n int, err error) {
	i := strings.IndexByte(dim, boundSeparator)
	if i < 0 {
		n, err := strconv.Atoi(dim)
		if err != nil || n < 0 {
			return 0, 0, corruptf("bad array length %q", dim)
		}
		return 0, n, nil
	}
	lo, err1 := strconv.ParseInt(dim[:i], 10, 32)
	hi, err2 := strconv.ParseInt(dim[i+1:], 10, 32)
	if err1 != nil || err2 != nil {
		return 0, 0, corruptf("bad array bounds %q", dim)
	}
	if hi < lo-1 {
		return 0, 0, corruptf("array upper bound %d below lower bound %d", hi, lo)
	}
	return int(lo), int(hi - lo + 1), nil
}
