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

	"github.com/pkg/errors"
)

type readState uint8

const (
	readIdle readState = iota
	readHeaderVerified
	readRootRead
	readDrainingPool
	readFixupsApplied
	readCallbacksInvoked
	readDone
)

var readStateNames = [...]string{
	"Idle", "HeaderVerified", "RootRead", "DrainingPool", "FixupsApplied", "CallbacksInvoked", "Done",
}

func (s readState) String() string { return readStateNames[s] }

// graphReader drives one Deserialize call.
type graphReader struct {
	pr         *PrimitiveReader
	reg        *Registry
	pool       *Tracker
	crosscheck bool
	state      readState
	inline     int // nesting of inline values being read
}

func (r *graphReader) deserialize() (any, error) {
	r.state = readIdle
	var magic [4]byte
	r.pr.ReadRaw(magic[:])
	if err := r.pr.Err(); err != nil {
		return nil, err
	}
	if magic != header {
		return nil, corruptf("bad header % x", magic[:])
	}
	if r.crosscheck {
		n := r.pr.ReadUint64()
		sum := r.pr.ReadUint64()
		if err := r.pr.Err(); err != nil {
			return nil, err
		}
		if n != uint64(r.reg.Len()) || sum != r.reg.Checksum() {
			return nil, errors.Wrapf(ErrRegistryMismatch, "stream has %d types (checksum %#x), reader has %d (checksum %#x)",
				n, sum, r.reg.Len(), r.reg.Checksum())
		}
	}
	r.state = readHeaderVerified

	root, first, err := r.readRoot()
	if err != nil {
		return nil, err
	}
	r.state = readRootRead

	r.state = readDrainingPool
	for i := first; i < r.pool.Len(); i++ {
		v := r.pool.At(i)
		if err := descriptorOf(v.Type()).readBody(r, v); err != nil {
			return nil, err
		}
	}

	for _, f := range r.pool.fixups {
		if err := f.target.RestoreMembers(f.members); err != nil {
			return nil, callbackFailure("RestoreMembers", f.owner, err)
		}
	}
	r.state = readFixupsApplied

	for _, c := range r.pool.callbacks {
		if err := c.hooks.deserialized(c.target); err != nil {
			return nil, err
		}
	}
	r.state = readCallbacksInvoked

	for i := 1; i < r.pool.Len(); i++ {
		if l, ok := r.pool.At(i).Interface().(DeserializationListener); ok {
			if err := l.OnDeserialization(); err != nil {
				return nil, callbackFailure("OnDeserialization", r.pool.At(i).Type(), err)
			}
		}
	}
	r.state = readDone

	if !root.IsValid() {
		return nil, nil
	}
	return root.Interface(), nil
}

// readRoot reads the root type tag and payload and returns the first slot the
// drain has to read.
func (r *graphReader) readRoot() (reflect.Value, int, error) {
	tag := r.pr.ReadVarIntStr()
	if err := r.pr.Err(); err != nil {
		return reflect.Value{}, 0, err
	}
	if tag.IsNull() {
		return reflect.Value{}, 1, nil
	}
	if tag.IsName && isShapeDescriptor(tag.Name) {
		v, err := r.allocate(tag)
		if err != nil {
			return reflect.Value{}, 0, err
		}
		r.pool.AppendNext(v)
		return v, 2, descriptorOf(v.Type()).readBody(r, v)
	}
	t, err := r.reg.Resolve(tag)
	if err != nil {
		return reflect.Value{}, 0, err
	}
	if t == nil {
		return reflect.Value{}, 0, corruptf("root tag %v names no type", tag)
	}
	if t == typeType {
		x, err := r.readType()
		if err != nil {
			return reflect.Value{}, 0, err
		}
		if x == nil {
			return reflect.Value{}, 0, corruptf("null type value")
		}
		return reflect.ValueOf(x), 1, nil
	}
	d := descriptorOf(t)
	if d.kind == kindProhibited {
		return reflect.Value{}, 0, d.err
	}
	if d.kind.pooled() {
		v, err := allocateType(t)
		if err != nil {
			return reflect.Value{}, 0, err
		}
		r.pool.AppendNext(v)
		return v, 2, d.readBody(r, v)
	}
	v := reflect.New(t).Elem()
	return v, 1, d.readValue(r, v)
}

func (r *graphReader) readType() (reflect.Type, error) {
	h := r.pr.ReadVarIntStr()
	if err := r.pr.Err(); err != nil {
		return nil, err
	}
	return r.reg.Resolve(h)
}

func (r *graphReader) resolveMeta(h MetaHandle) (reflect.Type, error) {
	if h.Meta == nil {
		return nil, corruptf("handle %v carries no type", h)
	}
	t, err := r.reg.Resolve(*h.Meta)
	if err != nil {
		return nil, err
	}
	if t == nil {
		return nil, corruptf("handle %v names no type", h)
	}
	return t, nil
}

// readDynamic reads a value written by writeDynamic. A null reference comes
// back as the invalid Value.
func (r *graphReader) readDynamic() (reflect.Value, error) {
	h := r.pr.ReadMetaHandle()
	if err := r.pr.Err(); err != nil {
		return reflect.Value{}, err
	}
	switch h.Kind() {
	case SlotReference:
		return r.resolveSlot(h)
	case InlineString:
		s := r.pr.ReadString()
		return reflect.ValueOf(s), r.pr.Err()
	case InlineType:
		t, err := r.resolveMeta(h)
		if err != nil {
			return reflect.Value{}, err
		}
		return reflect.ValueOf(t), nil
	}
	t, err := r.resolveMeta(h)
	if err != nil {
		return reflect.Value{}, err
	}
	d := descriptorOf(t)
	switch {
	case d.kind == kindProhibited:
		return reflect.Value{}, d.err
	case d.kind.pooled(), d.kind == kindInterface:
		return reflect.Value{}, corruptf("%v cannot be inlined", t)
	case h.Kind() == InlineReference && d.kind != kindNativeSlice:
		return reflect.Value{}, corruptf("%v is not a native reference type", t)
	}
	if r.inline >= maxInlineDepth {
		return reflect.Value{}, corruptf("inline nesting exceeds %d", maxInlineDepth)
	}
	r.inline++
	v := reflect.New(t).Elem()
	err = d.readValue(r, v)
	r.inline--
	if err != nil {
		return reflect.Value{}, err
	}
	return v, nil
}

// resolveSlot returns the value of a slot handle. The next free slot is
// allocated from the handle's metadata; known slots must carry none.
func (r *graphReader) resolveSlot(h MetaHandle) (reflect.Value, error) {
	slot := h.Slot()
	switch {
	case slot == 0:
		if h.Meta != nil {
			return reflect.Value{}, corruptf("null handle with metadata")
		}
		return reflect.Value{}, nil
	case slot < r.pool.Len():
		if h.Meta != nil {
			return reflect.Value{}, corruptf("metadata on known slot %d", slot)
		}
		return r.pool.At(slot), nil
	case slot > r.pool.Len():
		return reflect.Value{}, corruptf("slot %d out of order, expected %d", slot, r.pool.Len())
	}
	if h.Meta == nil {
		return reflect.Value{}, corruptf("new slot %d without metadata", slot)
	}
	v, err := r.allocate(*h.Meta)
	if err != nil {
		return reflect.Value{}, err
	}
	r.pool.AppendNext(v)
	return v, nil
}

// allocate creates the empty instance a slot's metadata describes. Array
// shapes are validated before anything is allocated.
func (r *graphReader) allocate(meta VarIntStr) (reflect.Value, error) {
	if !meta.IsName || !isShapeDescriptor(meta.Name) {
		t, err := r.reg.Resolve(meta)
		if err != nil {
			return reflect.Value{}, err
		}
		return allocateType(t)
	}
	shape, err := DecodeShape(meta.Name, r.pr.MaxLength())
	if err != nil {
		return reflect.Value{}, err
	}
	token, err := shape.TokenHandle()
	if err != nil {
		return reflect.Value{}, err
	}
	st, err := r.reg.Resolve(token)
	if err != nil {
		return reflect.Value{}, err
	}
	if st == nil || st.Kind() != reflect.Slice {
		return reflect.Value{}, corruptf("array descriptor %q does not name a slice type", meta.Name)
	}
	if shape.Multi {
		a, err := newArray(st.Elem(), shape.Lower, shape.Lengths)
		if err != nil {
			return reflect.Value{}, corruptf("%v", err)
		}
		return reflect.ValueOf(a), nil
	}
	if descriptorOf(st).kind != kindSlice {
		return reflect.Value{}, corruptf("%v is not a pooled slice type", st)
	}
	n := shape.Lengths[0]
	return reflect.MakeSlice(st, n, n), nil
}

func allocateType(t reflect.Type) (reflect.Value, error) {
	if t == nil {
		return reflect.Value{}, corruptf("slot metadata names no type")
	}
	d := descriptorOf(t)
	if d.kind == kindProhibited {
		return reflect.Value{}, d.err
	}
	switch d.kind {
	case kindPointer, kindCustom:
		return reflect.New(t.Elem()), nil
	case kindMap:
		return reflect.MakeMap(t), nil
	}
	return reflect.Value{}, corruptf("%v cannot occupy a slot", t)
}
