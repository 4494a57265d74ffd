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
	"sync"
	"time"

	"github.com/spaolacci/murmur3"
)

// Baseline is an ordered list of well-known types seeded into both ends'
// registries right after the built-ins, so those types cost no name bytes.
type Baseline struct {
	types       []reflect.Type
	fingerprint uint64
}

// NewBaseline returns a baseline of the given types in order. Duplicates and
// built-ins are dropped.
func NewBaseline(types ...reflect.Type) *Baseline {
	b := &Baseline{}
	seen := map[reflect.Type]bool{nil: true, anyType: true, anySliceType: true, bytesType: true}
	h := murmur3.New64()
	for _, t := range types {
		if seen[t] {
			continue
		}
		seen[t] = true
		RegisterType(t)
		b.types = append(b.types, t)
		h.Write([]byte(TypeName(t)))
		h.Write([]byte{0})
	}
	b.fingerprint = h.Sum64()
	return b
}

// Types returns the seeded types in order.
func (b *Baseline) Types() []reflect.Type {
	if b == nil {
		return nil
	}
	return append([]reflect.Type(nil), b.types...)
}

// Fingerprint identifies the baseline by the murmur3 hash of its type names.
func (b *Baseline) Fingerprint() uint64 {
	if b == nil {
		return 0
	}
	return b.fingerprint
}

var (
	defaultBaselineOnce sync.Once
	defaultBaseline     *Baseline
)

// DefaultBaseline seeds the common primitive types and their slices.
func DefaultBaseline() *Baseline {
	defaultBaselineOnce.Do(func() {
		defaultBaseline = NewBaseline(
			reflect.TypeFor[bool](),
			reflect.TypeFor[int](),
			reflect.TypeFor[int8](),
			reflect.TypeFor[int16](),
			reflect.TypeFor[int32](),
			reflect.TypeFor[int64](),
			reflect.TypeFor[uint](),
			reflect.TypeFor[uint8](),
			reflect.TypeFor[uint16](),
			reflect.TypeFor[uint32](),
			reflect.TypeFor[uint64](),
			reflect.TypeFor[float32](),
			reflect.TypeFor[float64](),
			reflect.TypeFor[string](),
			timeType,
			reflect.TypeFor[time.Duration](),
			decimalType,
			uuidType,
			typeType,
			reflect.TypeFor[[]string](),
			reflect.TypeFor[[]int32](),
			reflect.TypeFor[[]int64](),
			reflect.TypeFor[[]float64](),
			reflect.TypeFor[map[string]any](),
			reflect.TypeFor[map[string]string](),
		)
	})
	return defaultBaseline
}

// templates caches one seeded registry per baseline fingerprint.
var templates sync.Map

func seededTemplate(b *Baseline) *Registry {
	key := b.Fingerprint()
	if r, ok := templates.Load(key); ok {
		return r.(*Registry)
	}
	r := newBuiltinRegistry()
	for _, t := range b.Types() {
		r.add(t, TypeName(t))
	}
	r.seeded = len(r.types)
	actual, _ := templates.LoadOrStore(key, r)
	return actual.(*Registry)
}
