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
	"sort"
	"strings"
)

const (
	tagName   = "slim"
	tagSkip   = "-"
	tagInject = "inject"
)

// fieldInfo stores field metadata computed once per struct type.
type fieldInfo struct {
	name  string
	index []int
	desc  *lazyDesc
}

// structFields returns the wire order of t's fields: embedded structs first,
// depth-first from the innermost base, then the level's own exported fields
// sorted by name.
func structFields(t reflect.Type) ([]fieldInfo, error) {
	var fields []fieldInfo
	if err := collectFields(t, nil, &fields, map[reflect.Type]bool{}); err != nil {
		return nil, err
	}
	return fields, nil
}

func collectFields(t reflect.Type, path []int, out *[]fieldInfo, visiting map[reflect.Type]bool) error {
	visiting[t] = true
	defer delete(visiting, t)
	var own []reflect.StructField
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		if excluded(f) {
			continue
		}
		if f.Anonymous && f.Type == notSerializableType {
			return prohibitedf("%v is marked not serializable", t)
		}
		if isEmbeddedBase(f) && !visiting[f.Type] {
			if err := collectFields(f.Type, appendIndex(path, i), out, visiting); err != nil {
				return err
			}
			continue
		}
		if f.IsExported() {
			own = append(own, f)
		}
	}
	sort.SliceStable(own, func(i, j int) bool { return own[i].Name < own[j].Name })
	for _, f := range own {
		*out = append(*out, fieldInfo{
			name:  qualifiedFieldName(t, path, f.Name),
			index: appendIndex(path, f.Index[0]),
			desc:  &lazyDesc{t: f.Type},
		})
	}
	return nil
}

func excluded(f reflect.StructField) bool {
	tag, ok := f.Tag.Lookup(tagName)
	if !ok {
		return false
	}
	opt, _, _ := strings.Cut(tag, ",")
	return opt == tagSkip || opt == tagInject
}

// isEmbeddedBase reports whether f is an embedded struct value whose fields
// are flattened into the embedding struct.
func isEmbeddedBase(f reflect.StructField) bool {
	return f.Anonymous && f.Type.Kind() == reflect.Struct && primitiveCodecFor(f.Type) == nil &&
		!f.Type.Implements(nullableType)
}

func appendIndex(path []int, i int) []int {
	out := make([]int, len(path)+1)
	copy(out, path)
	out[len(path)] = i
	return out
}

func qualifiedFieldName(t reflect.Type, path []int, name string) string {
	if len(path) == 0 {
		return name
	}
	return t.Name() + "." + name
}

// ============================================================================
// Field walking
// ============================================================================

func (d *descriptor) writeStruct(w *graphWriter, v reflect.Value) error {
	for i := range d.fields {
		f := &d.fields[i]
		if err := f.desc.get().writeValue(w, fieldByIndex(v, f.index)); err != nil {
			return err
		}
	}
	return nil
}

func (d *descriptor) readStruct(r *graphReader, v reflect.Value) error {
	for i := range d.fields {
		f := &d.fields[i]
		if err := f.desc.get().readValue(r, fieldByIndex(v, f.index)); err != nil {
			return err
		}
	}
	return nil
}

func fieldByIndex(v reflect.Value, index []int) reflect.Value {
	if len(index) == 1 {
		return v.Field(index[0])
	}
	for _, i := range index {
		v = v.Field(i)
	}
	return v
}
