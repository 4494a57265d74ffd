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
	"sync/atomic"

	"github.com/chaokunyang/slimgraph/optional"
)

// descKind classifies how a type is written.
type descKind uint8

const (
	kindPrimitive descKind = iota
	kindNativeSlice
	kindFixedArray
	kindStruct
	kindOptional
	kindInterface
	// pooled kinds
	kindPointer
	kindCustom
	kindMap
	kindSlice
	kindMultiArray
	// always fails
	kindProhibited
)

var descKindNames = [...]string{
	kindPrimitive:   "primitive",
	kindNativeSlice: "native-slice",
	kindFixedArray:  "fixed-array",
	kindStruct:      "struct",
	kindOptional:    "optional",
	kindInterface:   "interface",
	kindPointer:     "pointer",
	kindCustom:      "custom",
	kindMap:         "map",
	kindSlice:       "slice",
	kindMultiArray:  "array",
	kindProhibited:  "prohibited",
}

func (k descKind) String() string { return descKindNames[k] }

// pooled reports whether values of the kind go through the reference tracker.
func (k descKind) pooled() bool { return k >= kindPointer && k <= kindMultiArray }

// descriptor is the cached codec plan for one type. It is immutable once
// published, apart from the lazily resolved element descriptors.
type descriptor struct {
	typ    reflect.Type
	kind   descKind
	prim   *primCodec
	fields []fieldInfo
	hooks  *hookSet
	elem   lazyDesc
	key    lazyDesc
	err    error
}

// lazyDesc resolves a descriptor on first use so self-referential types never
// recurse while being built.
type lazyDesc struct {
	t reflect.Type
	p atomic.Pointer[descriptor]
}

func (l *lazyDesc) get() *descriptor {
	if d := l.p.Load(); d != nil {
		return d
	}
	d := descriptorOf(l.t)
	l.p.Store(d)
	return d
}

var (
	descriptors sync.Map // reflect.Type -> *descriptor

	rtypeType           = reflect.TypeOf(reflect.TypeOf(0))
	customType          = reflect.TypeFor[CustomCodec]()
	nullableType        = reflect.TypeFor[optional.Nullable]()
	settableType        = reflect.TypeFor[optional.Settable]()
	notSerializableType = reflect.TypeFor[NotSerializable]()
)

// NotSerializable marks a struct that must never be written or read. Embed it
// to opt a type out.
type NotSerializable struct{}

func descriptorOf(t reflect.Type) *descriptor {
	if d, ok := descriptors.Load(t); ok {
		return d.(*descriptor)
	}
	d := buildDescriptor(t)
	if err := catalog.add(t); err != nil && d.kind != kindProhibited {
		d = &descriptor{typ: t, kind: kindProhibited, err: err}
	}
	actual, _ := descriptors.LoadOrStore(t, d)
	return actual.(*descriptor)
}

func buildDescriptor(t reflect.Type) *descriptor {
	d := &descriptor{typ: t}
	if p := primitiveCodecFor(t); p != nil {
		d.kind = kindPrimitive
		d.prim = p
		return d
	}
	switch t.Kind() {
	case reflect.Chan, reflect.Func, reflect.UnsafePointer:
		return prohibited(d, "%v has kind %v", t, t.Kind())
	case reflect.Interface:
		d.kind = kindInterface
	case reflect.Pointer:
		d.elem.t = t.Elem()
		switch {
		case t == arrayPtrType:
			d.kind = kindMultiArray
		case t.Implements(customType):
			d.kind = kindCustom
		default:
			d.kind = kindPointer
		}
		if t.Elem().Kind() == reflect.Struct {
			d.hooks = hooksFor(t.Elem())
		}
	case reflect.Map:
		d.kind = kindMap
		d.key.t = t.Key()
		d.elem.t = t.Elem()
	case reflect.Slice:
		d.elem.t = t.Elem()
		if isNativeElem(t.Elem()) {
			d.kind = kindNativeSlice
		} else {
			d.kind = kindSlice
		}
	case reflect.Array:
		d.kind = kindFixedArray
		d.elem.t = t.Elem()
	case reflect.Struct:
		if t.Implements(nullableType) && reflect.PointerTo(t).Implements(settableType) {
			d.kind = kindOptional
			d.elem.t = reflect.Zero(t).Interface().(optional.Nullable).ElemType()
			return d
		}
		fields, err := structFields(t)
		if err != nil {
			d.kind = kindProhibited
			d.err = err
			return d
		}
		d.kind = kindStruct
		d.fields = fields
	default:
		return prohibited(d, "unsupported kind %v of %v", t.Kind(), t)
	}
	return d
}

func prohibited(d *descriptor, format string, args ...any) *descriptor {
	d.kind = kindProhibited
	d.err = prohibitedf(format, args...)
	return d
}

// isNativeElem reports whether slices of t are written inline as primitives.
func isNativeElem(t reflect.Type) bool {
	switch t.Kind() {
	case reflect.Bool, reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr,
		reflect.Float32, reflect.Float64, reflect.Complex64, reflect.Complex128, reflect.String:
		return true
	}
	return false
}

// ============================================================================
// Static dispatch
// ============================================================================

// writeValue writes v, whose type is d.typ, in a context where the reader knows
// the type statically.
func (d *descriptor) writeValue(w *graphWriter, v reflect.Value) error {
	switch d.kind {
	case kindPrimitive:
		d.prim.write(w.pw, v)
		return w.pw.Err()
	case kindNativeSlice:
		return d.writeNativeSlice(w, v)
	case kindFixedArray:
		return d.writeFixedArray(w, v)
	case kindStruct:
		return d.writeStruct(w, v)
	case kindOptional:
		return d.writeOptional(w, v)
	case kindInterface:
		return w.writeDynamic(v.Elem())
	case kindProhibited:
		return d.err
	}
	return w.writeRef(d, v)
}

// readValue reads into the settable v of type d.typ.
func (d *descriptor) readValue(r *graphReader, v reflect.Value) error {
	switch d.kind {
	case kindPrimitive:
		d.prim.read(r.pr, v)
		return r.pr.Err()
	case kindNativeSlice:
		return d.readNativeSlice(r, v)
	case kindFixedArray:
		return d.readFixedArray(r, v)
	case kindStruct:
		return d.readStruct(r, v)
	case kindOptional:
		return d.readOptional(r, v)
	case kindInterface:
		x, err := r.readDynamic()
		if err != nil {
			return err
		}
		return assign(v, x)
	case kindProhibited:
		return d.err
	}
	h := r.pr.ReadMetaHandle()
	if err := r.pr.Err(); err != nil {
		return err
	}
	if !h.IsSlot() {
		return corruptf("expected slot handle for %v, got %v", d.typ, h)
	}
	x, err := r.resolveSlot(h)
	if err != nil {
		return err
	}
	return assign(v, x)
}

// assign stores x in v, leaving v zero when x is a null reference.
func assign(v, x reflect.Value) error {
	if !x.IsValid() {
		v.SetZero()
		return nil
	}
	if !x.Type().AssignableTo(v.Type()) {
		return corruptf("cannot assign %v to %v", x.Type(), v.Type())
	}
	v.Set(x)
	return nil
}

// writeBody writes the contents of a pooled value.
func (d *descriptor) writeBody(w *graphWriter, v reflect.Value) error {
	switch d.kind {
	case kindPointer:
		if err := d.hooks.serializing(v); err != nil {
			return err
		}
		if err := d.elem.get().writeValue(w, v.Elem()); err != nil {
			return err
		}
		return d.hooks.serialized(v)
	case kindCustom:
		if err := d.hooks.serializing(v); err != nil {
			return err
		}
		if err := d.writeCustomBody(w, v); err != nil {
			return err
		}
		return d.hooks.serialized(v)
	case kindMap:
		return d.writeMapBody(w, v)
	case kindSlice:
		return d.writeSliceBody(w, v)
	case kindMultiArray:
		return writeArrayBody(w, v.Interface().(*Array))
	case kindProhibited:
		return d.err
	}
	return corruptf("%v is not a pooled type", d.typ)
}

// readBody fills a pooled value allocated when its slot was first seen.
func (d *descriptor) readBody(r *graphReader, v reflect.Value) error {
	switch d.kind {
	case kindPointer:
		if err := d.hooks.deserializing(v); err != nil {
			return err
		}
		if err := d.elem.get().readValue(r, v.Elem()); err != nil {
			return err
		}
		if d.hooks.hasDeserialized() {
			r.pool.queueCallback(callback{target: v, hooks: d.hooks})
		}
		return nil
	case kindCustom:
		if err := d.hooks.deserializing(v); err != nil {
			return err
		}
		if err := d.readCustomBody(r, v); err != nil {
			return err
		}
		if d.hooks.hasDeserialized() {
			r.pool.queueCallback(callback{target: v, hooks: d.hooks})
		}
		return nil
	case kindMap:
		return d.readMapBody(r, v)
	case kindSlice:
		return d.readSliceBody(r, v)
	case kindMultiArray:
		return readArrayBody(r, v.Interface().(*Array))
	case kindProhibited:
		return d.err
	}
	return corruptf("%v is not a pooled type", d.typ)
}

// refMeta returns the metadata written with a slot's first sighting: the
// array descriptor for slices and arrays, otherwise the type handle.
func (d *descriptor) refMeta(w *graphWriter, v reflect.Value) VarIntStr {
	switch d.kind {
	case kindSlice:
		token := shapeToken(w.reg.GetOrAddHandle(d.typ))
		return NameHandle(EncodeShape(ArrayShape{Token: token, Lengths: []int{v.Len()}}))
	case kindMultiArray:
		a := v.Interface().(*Array)
		token := shapeToken(w.reg.GetOrAddHandle(reflect.SliceOf(a.elem)))
		return NameHandle(EncodeShape(a.shape(token)))
	}
	return w.reg.GetOrAddHandle(d.typ)
}

// ============================================================================
// Optional
// ============================================================================

func (d *descriptor) writeOptional(w *graphWriter, v reflect.Value) error {
	o := v.Interface().(optional.Nullable)
	w.pw.WritePresence(o.IsSome())
	if !o.IsSome() {
		return w.pw.Err()
	}
	x := reflect.New(d.elem.t).Elem()
	if val := o.ValueAny(); val != nil {
		x.Set(reflect.ValueOf(val))
	}
	return d.elem.get().writeValue(w, x)
}

func (d *descriptor) readOptional(r *graphReader, v reflect.Value) error {
	present := r.pr.ReadPresence()
	if err := r.pr.Err(); err != nil {
		return err
	}
	o := v.Addr().Interface().(optional.Settable)
	if !present {
		o.Clear()
		return nil
	}
	x := reflect.New(d.elem.t).Elem()
	if err := d.elem.get().readValue(r, x); err != nil {
		return err
	}
	if !o.SetAny(x.Interface()) {
		return corruptf("cannot store %v in %v", x.Type(), d.typ)
	}
	return nil
}

// ============================================================================
// Diagnostics
// ============================================================================

// TypeInfo describes how a type is written.
type TypeInfo struct {
	Type   reflect.Type
	Kind   string
	Fields []string
	Err    error
}

// Describe returns the cached plan for t: its classification and, for
// structs, the field names in wire order.
func Describe(t reflect.Type) TypeInfo {
	d := descriptorOf(t)
	info := TypeInfo{Type: t, Kind: d.kind.String(), Err: d.err}
	for _, f := range d.fields {
		info.Fields = append(info.Fields, f.name)
	}
	return info
}
