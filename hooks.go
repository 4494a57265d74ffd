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
	"runtime"

	"github.com/chaokunyang/slimgraph/refl"
)

// SerializingHook runs before an object's body is written.
type SerializingHook interface{ OnSerializing() error }

// SerializedHook runs after an object's body is written.
type SerializedHook interface{ OnSerialized() error }

// DeserializingHook runs on a freshly allocated object before its body is read.
type DeserializingHook interface{ OnDeserializing() error }

// DeserializedHook runs after every fixup has been applied, in discovery order.
type DeserializedHook interface{ OnDeserialized() error }

// DeserializationListener is notified once the whole graph is complete, in
// slot order.
type DeserializationListener interface{ OnDeserialization() error }

var (
	serializingHookType   = reflect.TypeFor[SerializingHook]()
	serializedHookType    = reflect.TypeFor[SerializedHook]()
	deserializingHookType = reflect.TypeFor[DeserializingHook]()
	deserializedHookType  = reflect.TypeFor[DeserializedHook]()
)

// hookSet holds, per phase, the embedding paths of every struct level that
// declares the hook itself, base levels first. An empty path is the object.
type hookSet struct {
	serializingAt   [][]int
	serializedAt    [][]int
	deserializingAt [][]int
	deserializedAt  [][]int
}

func hooksFor(t reflect.Type) *hookSet {
	h := &hookSet{}
	h.collect(t, nil)
	if h.empty() {
		return nil
	}
	return h
}

func (h *hookSet) collect(t reflect.Type, path []int) {
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		if isEmbeddedBase(f) && !excluded(f) {
			h.collect(f.Type, appendIndex(path, i))
		}
	}
	pt := reflect.PointerTo(t)
	if pt.Implements(serializingHookType) && declares(t, "OnSerializing") {
		h.serializingAt = append(h.serializingAt, path)
	}
	if pt.Implements(serializedHookType) && declares(t, "OnSerialized") {
		h.serializedAt = append(h.serializedAt, path)
	}
	if pt.Implements(deserializingHookType) && declares(t, "OnDeserializing") {
		h.deserializingAt = append(h.deserializingAt, path)
	}
	if pt.Implements(deserializedHookType) && declares(t, "OnDeserialized") {
		h.deserializedAt = append(h.deserializedAt, path)
	}
}

func (h *hookSet) empty() bool {
	return len(h.serializingAt) == 0 && len(h.serializedAt) == 0 &&
		len(h.deserializingAt) == 0 && len(h.deserializedAt) == 0
}

// declares reports whether t defines method name itself rather than through
// promotion from an embedded field. Promoted methods are compiler-generated
// wrappers.
func declares(t reflect.Type, name string) bool {
	m, ok := t.MethodByName(name)
	if !ok {
		m, ok = reflect.PointerTo(t).MethodByName(name)
	}
	if !ok {
		return false
	}
	pc := m.Func.Pointer()
	fn := runtime.FuncForPC(pc)
	if fn == nil {
		return true
	}
	file, _ := fn.FileLine(pc)
	return file != "<autogenerated>"
}

// levelAt returns a pointer to the struct level at path inside the object ptr.
func levelAt(ptr reflect.Value, path []int) any {
	if len(path) == 0 {
		return ptr.Interface()
	}
	return refl.AddrOf(ptr.Elem().FieldByIndex(path)).Interface()
}

func (h *hookSet) serializing(ptr reflect.Value) error {
	if h == nil {
		return nil
	}
	for _, p := range h.serializingAt {
		if err := levelAt(ptr, p).(SerializingHook).OnSerializing(); err != nil {
			return callbackFailure("OnSerializing", ptr.Type(), err)
		}
	}
	return nil
}

func (h *hookSet) serialized(ptr reflect.Value) error {
	if h == nil {
		return nil
	}
	for _, p := range h.serializedAt {
		if err := levelAt(ptr, p).(SerializedHook).OnSerialized(); err != nil {
			return callbackFailure("OnSerialized", ptr.Type(), err)
		}
	}
	return nil
}

func (h *hookSet) deserializing(ptr reflect.Value) error {
	if h == nil {
		return nil
	}
	for _, p := range h.deserializingAt {
		if err := levelAt(ptr, p).(DeserializingHook).OnDeserializing(); err != nil {
			return callbackFailure("OnDeserializing", ptr.Type(), err)
		}
	}
	return nil
}

func (h *hookSet) hasDeserialized() bool { return h != nil && len(h.deserializedAt) > 0 }

func (h *hookSet) deserialized(ptr reflect.Value) error {
	if h == nil {
		return nil
	}
	for _, p := range h.deserializedAt {
		if err := levelAt(ptr, p).(DeserializedHook).OnDeserialized(); err != nil {
			return callbackFailure("OnDeserialized", ptr.Type(), err)
		}
	}
	return nil
}
