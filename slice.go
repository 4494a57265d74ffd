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

// ============================================================================
// Native slices - presence, count, flat elements; never pooled
// ============================================================================

func (d *descriptor) writeNativeSlice(w *graphWriter, v reflect.Value) error {
	if v.IsNil() {
		w.pw.WritePresence(false)
		return w.pw.Err()
	}
	w.pw.WritePresence(true)
	n := v.Len()
	w.pw.WriteUint64(uint64(n))
	if d.typ.Elem().Kind() == reflect.Uint8 {
		w.pw.WriteRaw(v.Bytes())
		return w.pw.Err()
	}
	prim := d.elemPrim()
	for i := 0; i < n; i++ {
		prim.write(w.pw, v.Index(i))
	}
	return w.pw.Err()
}

func (d *descriptor) readNativeSlice(r *graphReader, v reflect.Value) error {
	if !r.pr.ReadPresence() {
		if err := r.pr.Err(); err != nil {
			return err
		}
		v.SetZero()
		return nil
	}
	n := r.pr.ReadLength()
	if err := r.pr.Err(); err != nil {
		return err
	}
	s := reflect.MakeSlice(d.typ, n, n)
	if d.typ.Elem().Kind() == reflect.Uint8 {
		r.pr.ReadRaw(s.Bytes())
	} else {
		prim := d.elemPrim()
		for i := 0; i < n && r.pr.Err() == nil; i++ {
			prim.read(r.pr, s.Index(i))
		}
	}
	if err := r.pr.Err(); err != nil {
		return err
	}
	v.Set(s)
	return nil
}

func (d *descriptor) elemPrim() *primCodec { return d.elem.get().prim }

// ============================================================================
// Fixed arrays - inline, length is part of the type
// ============================================================================

func (d *descriptor) writeFixedArray(w *graphWriter, v reflect.Value) error {
	elem := d.elem.get()
	for i := 0; i < v.Len(); i++ {
		if err := elem.writeValue(w, v.Index(i)); err != nil {
			return err
		}
	}
	return nil
}

func (d *descriptor) readFixedArray(r *graphReader, v reflect.Value) error {
	elem := d.elem.get()
	for i := 0; i < v.Len(); i++ {
		if err := elem.readValue(r, v.Index(i)); err != nil {
			return err
		}
	}
	return nil
}

// ============================================================================
// Pooled slices and arrays - the length travels in the slot metadata
// ============================================================================

func (d *descriptor) writeSliceBody(w *graphWriter, v reflect.Value) error {
	return writeElements(w, d.elem.get(), v)
}

func (d *descriptor) readSliceBody(r *graphReader, v reflect.Value) error {
	return readElements(r, d.elem.get(), v)
}

func writeArrayBody(w *graphWriter, a *Array) error {
	return writeElements(w, descriptorOf(a.elem), reflect.ValueOf(a.data))
}

func readArrayBody(r *graphReader, a *Array) error {
	return readElements(r, descriptorOf(a.elem), reflect.ValueOf(a.data))
}

func writeElements(w *graphWriter, elem *descriptor, s reflect.Value) error {
	n := s.Len()
	if elem.kind == kindPrimitive {
		for i := 0; i < n; i++ {
			elem.prim.write(w.pw, s.Index(i))
		}
		return w.pw.Err()
	}
	for i := 0; i < n; i++ {
		if err := elem.writeValue(w, s.Index(i)); err != nil {
			return err
		}
	}
	return nil
}

func readElements(r *graphReader, elem *descriptor, s reflect.Value) error {
	n := s.Len()
	if elem.kind == kindPrimitive {
		for i := 0; i < n && r.pr.Err() == nil; i++ {
			elem.prim.read(r.pr, s.Index(i))
		}
		return r.pr.Err()
	}
	for i := 0; i < n; i++ {
		if err := elem.readValue(r, s.Index(i)); err != nil {
			return err
		}
	}
	return nil
}
