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

package optional

import "reflect"

// Optional represents a nullable value without pointer indirection. On the wire
// it is a presence byte followed by the payload when present.
type Optional[T any] struct {
	Value T
	Has   bool
}

// Some returns an Optional containing a value.
func Some[T any](v T) Optional[T] {
	return Optional[T]{Value: v, Has: true}
}

// None returns an empty Optional.
func None[T any]() Optional[T] {
	return Optional[T]{}
}

// FromPtr converts a pointer to an Optional.
func FromPtr[T any](v *T) Optional[T] {
	if v == nil {
		return None[T]()
	}
	return Some(*v)
}

// Ptr returns a pointer to the contained value or nil.
func (o Optional[T]) Ptr() *T {
	if !o.Has {
		return nil
	}
	v := o.Value
	return &v
}

// IsSome reports whether the optional contains a value.
func (o Optional[T]) IsSome() bool { return o.Has }

// IsNone reports whether the optional is empty.
func (o Optional[T]) IsNone() bool { return !o.Has }

// UnwrapOr returns the contained value or a default.
func (o Optional[T]) UnwrapOr(defaultValue T) T {
	if o.Has {
		return o.Value
	}
	return defaultValue
}

// UnwrapOrDefault returns the contained value or the zero value.
func (o Optional[T]) UnwrapOrDefault() T {
	if o.Has {
		return o.Value
	}
	var zero T
	return zero
}

// Map maps an Optional[T] to Optional[U] by applying a function.
func Map[T, U any](o Optional[T], f func(T) U) Optional[U] {
	if o.Has {
		return Some(f(o.Value))
	}
	return None[U]()
}

// Set sets the option to Some(value).
func (o *Optional[T]) Set(v T) {
	if o == nil {
		return
	}
	o.Value = v
	o.Has = true
}

// Clear resets the option to None.
func (o *Optional[T]) Clear() {
	if o == nil {
		return
	}
	var zero T
	o.Value = zero
	o.Has = false
}

// ============================================================================
// Untyped access for codecs
// ============================================================================

// Nullable is implemented by every Optional instantiation.
type Nullable interface {
	IsSome() bool
	ElemType() reflect.Type
	ValueAny() any
}

// Settable is implemented by *Optional[T].
type Settable interface {
	Nullable
	SetAny(v any) bool
	Clear()
}

// ElemType returns the type of the contained value.
func (o Optional[T]) ElemType() reflect.Type { return reflect.TypeFor[T]() }

// ValueAny returns the contained value boxed, or nil when empty.
func (o Optional[T]) ValueAny() any {
	if !o.Has {
		return nil
	}
	return o.Value
}

// SetAny stores v when it holds a T and reports whether it did.
func (o *Optional[T]) SetAny(v any) bool {
	if v == nil {
		// only interface-typed T can hold an untyped nil
		var zero T
		if any(zero) != nil {
			return false
		}
		o.Set(zero)
		return true
	}
	t, ok := v.(T)
	if !ok {
		return false
	}
	o.Set(t)
	return true
}

var (
	_ Nullable = Optional[int]{}
	_ Settable = (*Optional[int])(nil)
)

// Int32 wraps an int32 value in Optional.
func Int32(v int32) Optional[int32] { return Some(v) }

// Int64 wraps an int64 value in Optional.
func Int64(v int64) Optional[int64] { return Some(v) }

// Int wraps an int value in Optional.
func Int(v int) Optional[int] { return Some(v) }

// Uint32 wraps a uint32 value in Optional.
func Uint32(v uint32) Optional[uint32] { return Some(v) }

// Float64 wraps a float64 value in Optional.
func Float64(v float64) Optional[float64] { return Some(v) }

// String wraps a string value in Optional.
func String(v string) Optional[string] { return Some(v) }

// Bool wraps a bool value in Optional.
func Bool(v bool) Optional[bool] { return Some(v) }
