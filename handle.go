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

import "strconv"

// VarIntStr is a type handle token: either a compact registry index or a full
// type name.
type VarIntStr struct {
	Index  uint32
	Name   string
	IsName bool
}

// IndexHandle returns a VarIntStr carrying a registry index.
func IndexHandle(idx uint32) VarIntStr { return VarIntStr{Index: idx} }

// NameHandle returns a VarIntStr carrying a type name.
func NameHandle(name string) VarIntStr { return VarIntStr{Name: name, IsName: true} }

// IsNull reports whether v is the null marker.
func (v VarIntStr) IsNull() bool { return !v.IsName && v.Index == nullIndex }

func (v VarIntStr) String() string {
	if v.IsName {
		return strconv.Quote(v.Name)
	}
	return "$" + strconv.FormatUint(uint64(v.Index), 10)
}

// HandleKind classifies a MetaHandle raw value.
type HandleKind int8

const (
	InlineString HandleKind = iota
	InlineValue
	InlineReference
	InlineType
	SlotReference
)

// HandleOffset is the first raw value that denotes a pool slot.
const HandleOffset = 4

var handleKindNames = [...]string{"InlineString", "InlineValue", "InlineReference", "InlineType", "Slot"}

func (k HandleKind) String() string {
	if int(k) < len(handleKindNames) {
		return handleKindNames[k]
	}
	return "HandleKind(" + strconv.Itoa(int(k)) + ")"
}

// MetaHandle references a pool slot or announces an inlined payload. Meta
// carries the type token the first time a slot is seen, or the type of an
// inlined payload.
type MetaHandle struct {
	Raw  int64
	Meta *VarIntStr
}

func metaPtr(meta VarIntStr) *VarIntStr { return &meta }

// SlotHandle references pool slot s. A nil meta writes no metadata.
func SlotHandle(s int, meta *VarIntStr) MetaHandle {
	return MetaHandle{Raw: int64(s) + HandleOffset, Meta: meta}
}

// NullHandle references slot 0.
func NullHandle() MetaHandle { return SlotHandle(0, nil) }

func InlineStringHandle() MetaHandle { return MetaHandle{Raw: int64(InlineString)} }

func InlineValueHandle(meta VarIntStr) MetaHandle {
	return MetaHandle{Raw: int64(InlineValue), Meta: metaPtr(meta)}
}

func InlineReferenceHandle(meta VarIntStr) MetaHandle {
	return MetaHandle{Raw: int64(InlineReference), Meta: metaPtr(meta)}
}

func InlineTypeHandle(meta VarIntStr) MetaHandle {
	return MetaHandle{Raw: int64(InlineType), Meta: metaPtr(meta)}
}

// IsSlot reports whether h references a pool slot.
func (h MetaHandle) IsSlot() bool { return h.Raw >= HandleOffset }

// Slot returns the referenced pool slot, or -1 for inline handles.
func (h MetaHandle) Slot() int {
	if !h.IsSlot() {
		return -1
	}
	return int(h.Raw - HandleOffset)
}

// IsNull reports whether h references the null slot.
func (h MetaHandle) IsNull() bool { return h.Raw == HandleOffset }

// Kind classifies h.
func (h MetaHandle) Kind() HandleKind {
	if h.IsSlot() {
		return SlotReference
	}
	return HandleKind(h.Raw)
}

// Equal compares raw value and metadata.
func (h MetaHandle) Equal(o MetaHandle) bool {
	if h.Raw != o.Raw {
		return false
	}
	if h.Meta == nil || o.Meta == nil {
		return h.Meta == nil && o.Meta == nil
	}
	return *h.Meta == *o.Meta
}

func (h MetaHandle) String() string {
	s := h.Kind().String()
	if h.IsSlot() {
		s += "#" + strconv.Itoa(h.Slot())
	}
	if h.Meta != nil {
		s += "(" + h.Meta.String() + ")"
	}
	return s
}
