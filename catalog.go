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
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ============================================================================
// Process-wide name -> type catalog
// ============================================================================

// typeCatalog is copy-on-write: readers load the current map without locking,
// writers publish a new map under mu.
type typeCatalog struct {
	mu    sync.Mutex
	types atomic.Pointer[map[string]reflect.Type]
}

var catalog = newTypeCatalog()

func newTypeCatalog() *typeCatalog {
	c := &typeCatalog{}
	m := make(map[string]reflect.Type)
	c.types.Store(&m)
	return c
}

func (c *typeCatalog) lookup(name string) (reflect.Type, bool) {
	t, ok := (*c.types.Load())[name]
	return t, ok
}

// add publishes every named type reachable from t that is not yet known. It
// fails when one of them shares its canonical name with a different type,
// since a reader could not tell the two apart.
func (c *typeCatalog) add(t reflect.Type) error {
	found := make(map[string]reflect.Type)
	if err := collectNamedTypes(t, found, make(map[reflect.Type]bool)); err != nil {
		return err
	}
	current := *c.types.Load()
	missing := false
	for name, ft := range found {
		known, ok := current[name]
		if !ok {
			missing = true
			continue
		}
		if known != ft {
			return nameClash(name, known, ft)
		}
	}
	if !missing {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	current = *c.types.Load()
	for name, ft := range found {
		if known, ok := current[name]; ok && known != ft {
			return nameClash(name, known, ft)
		}
	}
	next := make(map[string]reflect.Type, len(current)+len(found))
	for k, v := range current {
		next[k] = v
	}
	for k, v := range found {
		next[k] = v
	}
	c.types.Store(&next)
	return nil
}

func nameClash(name string, known, other reflect.Type) error {
	return prohibitedf("%v: type name %q is already taken by a different type", other, name)
}

func collectNamedTypes(t reflect.Type, found map[string]reflect.Type, seen map[reflect.Type]bool) error {
	if t == nil || seen[t] {
		return nil
	}
	seen[t] = true
	if (t.Name() != "" && t.PkgPath() != "") || (t.Name() == "" && !isStructural(t)) {
		name := TypeName(t)
		if prev, ok := found[name]; ok && prev != t {
			return nameClash(name, prev, t)
		}
		found[name] = t
	}
	switch t.Kind() {
	case reflect.Pointer, reflect.Slice, reflect.Array:
		return collectNamedTypes(t.Elem(), found, seen)
	case reflect.Map:
		if err := collectNamedTypes(t.Key(), found, seen); err != nil {
			return err
		}
		return collectNamedTypes(t.Elem(), found, seen)
	case reflect.Struct:
		for i := 0; i < t.NumField(); i++ {
			f := t.Field(i)
			if f.IsExported() || f.Anonymous {
				if err := collectNamedTypes(f.Type, found, seen); err != nil {
					return err
				}
			}
		}
	}
	return nil
}

// Register adds T, and every named type reachable from it, to the process-wide
// catalog so that streams naming them can be resolved. Types only ever stored
// behind interfaces must be registered before they are read by a process that
// never wrote them.
// It fails with ErrProhibitedType when a name is already taken by a different
// type, as happens with same-named types declared in different functions.
func Register[T any]() error { return RegisterType(reflect.TypeFor[T]()) }

// RegisterType is the reflect.Type form of Register.
func RegisterType(t reflect.Type) error {
	if t == nil {
		return nil
	}
	return catalog.add(t)
}

// ============================================================================
// Type names
// ============================================================================

var (
	anyType      = reflect.TypeFor[any]()
	stringType   = reflect.TypeFor[string]()
	anySliceType = reflect.TypeFor[[]any]()
	bytesType    = reflect.TypeFor[[]byte]()
	typeType     = reflect.TypeFor[reflect.Type]()
	errorType    = reflect.TypeFor[error]()
	timeType     = reflect.TypeFor[time.Time]()
	decimalType  = reflect.TypeFor[decimal.Decimal]()
	uuidType     = reflect.TypeFor[uuid.UUID]()
	arrayPtrType = reflect.TypeFor[*Array]()
)

var predeclared = map[string]reflect.Type{
	"bool":         reflect.TypeFor[bool](),
	"int":          reflect.TypeFor[int](),
	"int8":         reflect.TypeFor[int8](),
	"int16":        reflect.TypeFor[int16](),
	"int32":        reflect.TypeFor[int32](),
	"int64":        reflect.TypeFor[int64](),
	"uint":         reflect.TypeFor[uint](),
	"uint8":        reflect.TypeFor[uint8](),
	"uint16":       reflect.TypeFor[uint16](),
	"uint32":       reflect.TypeFor[uint32](),
	"uint64":       reflect.TypeFor[uint64](),
	"uintptr":      reflect.TypeFor[uintptr](),
	"float32":      reflect.TypeFor[float32](),
	"float64":      reflect.TypeFor[float64](),
	"complex64":    reflect.TypeFor[complex64](),
	"complex128":   reflect.TypeFor[complex128](),
	"string":       reflect.TypeFor[string](),
	"error":        errorType,
	"interface {}": anyType,
}

func init() {
	for _, t := range []reflect.Type{typeType, timeType, decimalType, uuidType, arrayPtrType} {
		RegisterType(t)
	}
}

// isStructural reports whether TypeName renders t in a form parseTypeName can
// rebuild without the catalog.
func isStructural(t reflect.Type) bool {
	if t.Name() != "" {
		return true
	}
	switch t.Kind() {
	case reflect.Pointer, reflect.Slice, reflect.Array, reflect.Map:
		return true
	case reflect.Interface:
		return t == anyType
	}
	return false
}

// TypeName returns the canonical full name written for t.
func TypeName(t reflect.Type) string {
	if t.Name() != "" {
		if t.PkgPath() == "" {
			return t.Name()
		}
		return t.PkgPath() + "." + t.Name()
	}
	switch t.Kind() {
	case reflect.Pointer:
		return "*" + TypeName(t.Elem())
	case reflect.Slice:
		return "[]" + TypeName(t.Elem())
	case reflect.Array:
		return "[" + strconv.Itoa(t.Len()) + "]" + TypeName(t.Elem())
	case reflect.Map:
		return "map[" + TypeName(t.Key()) + "]" + TypeName(t.Elem())
	}
	return t.String()
}

// parseTypeName resolves a canonical name through the catalog, the predeclared
// names and the composite forms.
func parseTypeName(name string) (reflect.Type, error) {
	if t, ok := catalog.lookup(name); ok {
		return t, nil
	}
	if t, ok := predeclared[name]; ok {
		return t, nil
	}
	switch {
	case strings.HasPrefix(name, "*"):
		elem, err := parseTypeName(name[1:])
		if err != nil {
			return nil, err
		}
		return reflect.PointerTo(elem), nil
	case strings.HasPrefix(name, "[]"):
		elem, err := parseTypeName(name[2:])
		if err != nil {
			return nil, err
		}
		return reflect.SliceOf(elem), nil
	case strings.HasPrefix(name, "map["):
		end := matchingBracket(name, 3)
		if end < 0 {
			return nil, corruptf("malformed map type %q", name)
		}
		key, err := parseTypeName(name[4:end])
		if err != nil {
			return nil, err
		}
		if !key.Comparable() {
			return nil, corruptf("map key %v is not comparable", key)
		}
		elem, err := parseTypeName(name[end+1:])
		if err != nil {
			return nil, err
		}
		return reflect.MapOf(key, elem), nil
	case strings.HasPrefix(name, "["):
		end := strings.IndexByte(name, ']')
		if end < 0 {
			return nil, corruptf("malformed array type %q", name)
		}
		n, err := strconv.Atoi(name[1:end])
		if err != nil || n < 0 || n > DefaultMaxCollectionLength {
			return nil, corruptf("malformed array type %q", name)
		}
		elem, err := parseTypeName(name[end+1:])
		if err != nil {
			return nil, err
		}
		return reflect.ArrayOf(n, elem), nil
	}
	return nil, corruptf("unknown type %q", name)
}

// matchingBracket returns the index of the ']' closing the '[' at open.
func matchingBracket(s string, open int) int {
	depth := 0
	for i := open; i < len(s); i++ {
		switch s[i] {
		case '[':
			depth++
		case ']':
			depth--
			if depth == 0 {
				return i
			}
		}
	}
	return -1
}
