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
)

// Built-in registry indices.
const (
	nullIndex     = 0
	anyIndex      = 1
	anySliceIndex = 2
	bytesIndex    = 3

	builtinCount = 4
)

// Registry maps types to compact indices for one session. The writer registers
// types as it meets them and the reader registers them in the same order as it
// resolves names, so indices agree on both ends.
type Registry struct {
	types    []reflect.Type
	names    []string
	index    map[reflect.Type]uint32
	checksum uint64
	compat   bool
	seeded   int
}

func newBuiltinRegistry() *Registry {
	r := &Registry{
		types: []reflect.Type{nil, anyType, anySliceType, bytesType},
		names: []string{"", "", "", ""},
		index: make(map[reflect.Type]uint32, 32),
	}
	r.index[anyType] = anyIndex
	r.index[anySliceType] = anySliceIndex
	r.index[bytesType] = bytesIndex
	r.seeded = builtinCount
	return r
}

// NewRegistry returns a registry seeded with the built-ins and baseline b. A nil
// baseline seeds the built-ins only.
func NewRegistry(b *Baseline, compat bool) *Registry {
	r := seededTemplate(b).clone()
	r.compat = compat
	return r
}

func (r *Registry) clone() *Registry {
	c := &Registry{
		types:    append(make([]reflect.Type, 0, len(r.types)+16), r.types...),
		names:    append(make([]string, 0, len(r.names)+16), r.names...),
		index:    make(map[reflect.Type]uint32, len(r.index)+16),
		checksum: r.checksum,
		compat:   r.compat,
		seeded:   r.seeded,
	}
	for k, v := range r.index {
		c.index[k] = v
	}
	return c
}

// Len returns the number of registered types, built-ins included.
func (r *Registry) Len() int { return len(r.types) }

// Checksum returns the running structural checksum.
func (r *Registry) Checksum() uint64 { return r.checksum }

// Reset drops every type added after the baseline.
func (r *Registry) Reset() { r.truncate(r.seeded) }

// truncate drops every type at index n and above.
func (r *Registry) truncate(n int) {
	if n < r.seeded {
		n = r.seeded
	}
	if n >= len(r.types) {
		return
	}
	for i := n; i < len(r.types); i++ {
		if idx, ok := r.index[r.types[i]]; ok && int(idx) >= n {
			delete(r.index, r.types[i])
		}
	}
	clear(r.types[n:])
	r.types = r.types[:n]
	r.names = r.names[:n]
	r.checksum = 0
	for _, name := range r.names[builtinCount:] {
		r.checksum = checksumStep(r.checksum, name)
	}
}

func (r *Registry) add(t reflect.Type, name string) uint32 {
	idx := uint32(len(r.types))
	r.types = append(r.types, t)
	r.names = append(r.names, name)
	if _, ok := r.index[t]; !ok {
		r.index[t] = idx
	}
	r.checksum = checksumStep(r.checksum, name)
	return idx
}

// Lookup returns the index of t if it is registered.
func (r *Registry) Lookup(t reflect.Type) (uint32, bool) {
	if t == nil {
		return nullIndex, true
	}
	idx, ok := r.index[t]
	return idx, ok
}

// GetOrAddHandle returns t's index when it is known, otherwise registers t and
// returns its full name.
func (r *Registry) GetOrAddHandle(t reflect.Type) VarIntStr {
	if idx, ok := r.Lookup(t); ok {
		return IndexHandle(idx)
	}
	name := TypeName(t)
	r.add(t, name)
	return NameHandle(toWireName(name, r.compat))
}

// Resolve maps a handle back to a type. Names are registered in the order they
// are resolved. The null marker resolves to a nil type.
func (r *Registry) Resolve(h VarIntStr) (reflect.Type, error) {
	if !h.IsName {
		if int(h.Index) >= len(r.types) {
			return nil, corruptf("type index %d out of range (%d registered)", h.Index, len(r.types))
		}
		return r.types[h.Index], nil
	}
	name := fromWireName(h.Name)
	t, err := parseTypeName(name)
	if err != nil {
		return nil, err
	}
	r.add(t, name)
	return t, nil
}

// TypeAt returns the type registered at idx.
func (r *Registry) TypeAt(idx int) reflect.Type { return r.types[idx] }

// checksumStep folds one name into the running checksum using its first and
// last byte and its length.
func checksumStep(c uint64, name string) uint64 {
	var first, last uint64
	if len(name) > 0 {
		first = uint64(name[0])
		last = uint64(name[len(name)-1])
	}
	return c*33 ^ (first<<40 | last<<24 | uint64(len(name)))
}
