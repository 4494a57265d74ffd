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

	"github.com/chaokunyang/slimgraph/refl"
)

// header opens every stream.
var header = [4]byte{0x00, 0x00, 0xCA, 0xFE}

// maxInlineDepth bounds how deeply inline values may nest inside one another.
// Pooled values reset the count since the drain reads them iteratively.
const maxInlineDepth = 10000

type writeState uint8

const (
	writeIdle writeState = iota
	writeHeaderWritten
	writeRootWritten
	writeDrainingPool
	writeDone
)

var writeStateNames = [...]string{"Idle", "HeaderWritten", "RootWritten", "DrainingPool", "Done"}

func (s writeState) String() string { return writeStateNames[s] }

// graphWriter drives one Serialize call.
type graphWriter struct {
	pw         *PrimitiveWriter
	reg        *Registry
	pool       *Tracker
	crosscheck bool
	state      writeState
	inline     int
}

func (w *graphWriter) serialize(root any) error {
	w.state = writeIdle
	w.pw.WriteRaw(header[:])
	if w.crosscheck {
		w.pw.WriteUint64(uint64(w.reg.Len()))
		w.pw.WriteUint64(w.reg.Checksum())
	}
	if err := w.pw.Err(); err != nil {
		return err
	}
	w.state = writeHeaderWritten

	first, err := w.writeRoot(reflect.ValueOf(root))
	if err != nil {
		return err
	}
	w.state = writeRootWritten

	// Bodies can discover new slots, so the bound is re-read every iteration.
	w.state = writeDrainingPool
	for i := first; i < w.pool.Len(); i++ {
		v := w.pool.At(i)
		if err := descriptorOf(v.Type()).writeBody(w, v); err != nil {
			return err
		}
	}
	w.state = writeDone
	return w.pw.Err()
}

// writeRoot writes the root type tag and payload and returns the first slot
// the drain has to write.
func (w *graphWriter) writeRoot(v reflect.Value) (int, error) {
	if refl.IsNilRef(v) {
		w.pw.WriteVarIntStr(IndexHandle(nullIndex))
		return 1, w.pw.Err()
	}
	if v.Type() == rtypeType {
		w.pw.WriteVarIntStr(w.reg.GetOrAddHandle(typeType))
		w.pw.WriteVarIntStr(w.reg.GetOrAddHandle(v.Interface().(reflect.Type)))
		return 1, w.pw.Err()
	}
	d := descriptorOf(v.Type())
	if d.kind == kindProhibited {
		return 0, d.err
	}
	if d.kind.pooled() {
		w.pool.InternOrGetSlot(v)
		w.pw.WriteVarIntStr(d.refMeta(w, v))
		return 2, d.writeBody(w, v)
	}
	w.pw.WriteVarIntStr(w.reg.GetOrAddHandle(v.Type()))
	return 1, d.writeValue(w, v)
}

// writeDynamic writes a value whose type the reader cannot know statically.
func (w *graphWriter) writeDynamic(v reflect.Value) error {
	if refl.IsNilRef(v) {
		w.pw.WriteMetaHandle(NullHandle())
		return w.pw.Err()
	}
	t := v.Type()
	if t == rtypeType {
		w.pw.WriteMetaHandle(InlineTypeHandle(w.reg.GetOrAddHandle(v.Interface().(reflect.Type))))
		return w.pw.Err()
	}
	d := descriptorOf(t)
	switch {
	case d.kind == kindProhibited:
		return d.err
	case d.kind.pooled():
		return w.writeRef(d, v)
	case t == stringType:
		w.pw.WriteMetaHandle(InlineStringHandle())
		w.pw.WriteString(v.String())
		return w.pw.Err()
	case d.kind == kindNativeSlice:
		w.pw.WriteMetaHandle(InlineReferenceHandle(w.reg.GetOrAddHandle(t)))
	default:
		w.pw.WriteMetaHandle(InlineValueHandle(w.reg.GetOrAddHandle(t)))
	}
	if err := w.pw.Err(); err != nil {
		return err
	}
	if w.inline >= maxInlineDepth {
		return prohibitedf("%v: inline nesting exceeds %d", t, maxInlineDepth)
	}
	w.inline++
	err := d.writeValue(w, v)
	w.inline--
	return err
}

// writeRef writes the slot handle of a pooled value, interning it on first
// sight. Its body is written later by the drain.
func (w *graphWriter) writeRef(d *descriptor, v reflect.Value) error {
	if v.IsNil() {
		w.pw.WriteMetaHandle(NullHandle())
		return w.pw.Err()
	}
	slot, isNew := w.pool.InternOrGetSlot(v)
	var meta *VarIntStr
	if isNew {
		meta = metaPtr(d.refMeta(w, v))
	}
	w.pw.WriteMetaHandle(SlotHandle(slot, meta))
	return w.pw.Err()
}
