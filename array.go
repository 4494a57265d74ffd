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
	"fmt"
	"reflect"

	"github.com/pkg/errors"
)

// Array is a multi-dimensional array with arbitrary lower bounds. Elements are
// stored row-major in one flat slice.
type Array struct {
	elem    reflect.Type
	lower   []int
	lengths []int
	data    any
}

// NewArray allocates an array of elem with the given per-dimension lower bounds
// and lengths. It panics if the two slices differ in length, the rank is zero
// or exceeds MaxArrayRank, or a length is negative.
func NewArray(elem reflect.Type, lowerBounds, lengths []int) *Array {
	a, err := newArray(elem, lowerBounds, lengths)
	if err != nil {
		panic(err)
	}
	return a
}

func newArray(elem reflect.Type, lowerBounds, lengths []int) (*Array, error) {
	if len(lengths) == 0 || len(lengths) > MaxArrayRank {
		return nil, errors.Errorf("slimgraph: array rank %d out of range", len(lengths))
	}
	if len(lowerBounds) != len(lengths) {
		return nil, errors.Errorf("slimgraph: %d lower bounds for rank %d", len(lowerBounds), len(lengths))
	}
	total := 1
	for _, n := range lengths {
		if n < 0 {
			return nil, errors.Errorf("slimgraph: negative array length %d", n)
		}
		total *= n
	}
	return &Array{
		elem:    elem,
		lower:   append([]int(nil), lowerBounds...),
		lengths: append([]int(nil), lengths...),
		data:    reflect.MakeSlice(reflect.SliceOf(elem), total, total).Interface(),
	}, nil
}

// Rank returns the number of dimensions.
func (a *Array) Rank() int { return len(a.lengths) }

// LowerBound returns the lowest valid index of dimension d.
func (a *Array) LowerBound(d int) int { return a.lower[d] }

// UpperBound returns the highest valid index of dimension d.
func (a *Array) UpperBound(d int) int { return a.lower[d] + a.lengths[d] - 1 }

// Length returns the number of elements along dimension d.
func (a *Array) Length(d int) int { return a.lengths[d] }

// Len returns the total number of elements.
func (a *Array) Len() int { return reflect.ValueOf(a.data).Len() }

// ElemType returns the element type.
func (a *Array) ElemType() reflect.Type { return a.elem }

// Values returns the flat backing slice, typed []T.
func (a *Array) Values() any { return a.data }

// Index returns the flat row-major offset of idx.
func (a *Array) Index(idx ...int) int {
	if len(idx) != len(a.lengths) {
		panic(fmt.Sprintf("slimgraph: %d indices for rank %d array", len(idx), len(a.lengths)))
	}
	off := 0
	for d, i := range idx {
		rel := i - a.lower[d]
		if rel < 0 || rel >= a.lengths[d] {
			panic(fmt.Sprintf("slimgraph: index %d out of range [%d, %d] in dimension %d",
				i, a.lower[d], a.UpperBound(d), d))
		}
		off = off*a.lengths[d] + rel
	}
	return off
}

// Get returns the element at idx.
func (a *Array) Get(idx ...int) any {
	return reflect.ValueOf(a.data).Index(a.Index(idx...)).Interface()
}

// Set stores v at idx.
func (a *Array) Set(v any, idx ...int) {
	dst := reflect.ValueOf(a.data).Index(a.Index(idx...))
	if v == nil {
		dst.SetZero()
		return
	}
	dst.Set(reflect.ValueOf(v))
}

func (a *Array) shape(token string) ArrayShape {
	return ArrayShape{Token: token, Multi: true, Lower: a.lower, Lengths: a.lengths}
}

func (a *Array) String() string {
	s := fmt.Sprintf("Array[%v]", a.elem)
	for d := range a.lengths {
		s += fmt.Sprintf("[%d..%d]", a.lower[d], a.UpperBound(d))
	}
	return s
}
