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

package refl

import (
	"reflect"
	"unsafe"
)

// Identity is the pooling key of a reference value: its dynamic type, the
// address of its data and, for slices, its length. Holding the address as an
// unsafe.Pointer keeps the referent alive while the key is in use.
type Identity struct {
	Type reflect.Type
	Ptr  unsafe.Pointer
	Len  int
}

// IdentityOf returns the identity of a pointer, map, slice or unsafe pointer
// value. It panics for other kinds.
func IdentityOf(v reflect.Value) Identity {
	id := Identity{Type: v.Type()}
	switch v.Kind() {
	case reflect.Pointer, reflect.Map, reflect.UnsafePointer:
		id.Ptr = v.UnsafePointer()
	case reflect.Slice:
		id.Ptr = v.UnsafePointer()
		id.Len = v.Len()
	default:
		panic("refl: identity of non-reference kind " + v.Kind().String())
	}
	return id
}

// IsNilRef reports whether v is an invalid value or a nil reference.
func IsNilRef(v reflect.Value) bool {
	if !v.IsValid() {
		return true
	}
	switch v.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Slice, reflect.Interface, reflect.UnsafePointer:
		return v.IsNil()
	}
	return false
}

// AddrOf returns a pointer to the addressable v. Unlike v.Addr it also works
// for values reached through unexported embedded fields.
func AddrOf(v reflect.Value) reflect.Value {
	return reflect.NewAt(v.Type(), unsafe.Pointer(v.UnsafeAddr()))
}
