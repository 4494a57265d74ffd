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

// ============================================================================
// Error taxonomy
// ============================================================================

// Const is the type for constant error values.
type Const string

// Error implements error for Const returning the string value of the const.
func (e Const) Error() string { return string(e) }

const (
	// ErrStreamCorrupted covers premature EOF, bad header magic, oversized declared
	// lengths, malformed array shapes and unresolvable type handles.
	ErrStreamCorrupted = Const("slimgraph: stream corrupted")
	// ErrRegistryMismatch is returned when the writer's registry size or checksum
	// disagrees with the reader's.
	ErrRegistryMismatch = Const("slimgraph: type registry mismatch")
	// ErrProhibitedType is returned when a value of a non-serializable type is processed.
	ErrProhibitedType = Const("slimgraph: prohibited type")
	// ErrCallbackFailure wraps a failing lifecycle hook or deserialization listener.
	ErrCallbackFailure = Const("slimgraph: callback failure")
)

var taxonomy = []struct {
	kind string
	err  error
}{
	{"StreamCorrupted", ErrStreamCorrupted},
	{"RegistryMismatch", ErrRegistryMismatch},
	{"ProhibitedType", ErrProhibitedType},
	{"CallbackFailure", ErrCallbackFailure},
}

func corruptf(format string, args ...any) error {
	return errors.Wrapf(ErrStreamCorrupted, format, args...)
}

func prohibitedf(format string, args ...any) error {
	return errors.Wrapf(ErrProhibitedType, format, args...)
}

// callbackError keeps the hook's own error reachable while matching ErrCallbackFailure.
type callbackError struct {
	hook  string
	owner reflect.Type
	err   error
}

func (e *callbackError) Error() string {
	return fmt.Sprintf("%v: %s on %v: %v", ErrCallbackFailure, e.hook, e.owner, e.err)
}

func (e *callbackError) Unwrap() error { return e.err }

func (e *callbackError) Is(target error) bool { return target == ErrCallbackFailure }

func callbackFailure(hook string, owner reflect.Type, err error) error {
	if err == nil {
		return nil
	}
	return errors.WithStack(&callbackError{hook: hook, owner: owner, err: err})
}

// ============================================================================
// Boundary errors
// ============================================================================

// SerializationError is the single failure surface of Serialize.
type SerializationError struct {
	// Kind is the taxonomy name of the cause, or its Go type when it falls outside it.
	Kind  string
	Cause error
}

func (e *SerializationError) Error() string {
	return fmt.Sprintf("slimgraph: serialization failed (%s): %v", e.Kind, e.Cause)
}

func (e *SerializationError) Unwrap() error { return e.Cause }

// DeserializationError is the single failure surface of Deserialize.
type DeserializationError struct {
	Kind  string
	Cause error
}

func (e *DeserializationError) Error() string {
	return fmt.Sprintf("slimgraph: deserialization failed (%s): %v", e.Kind, e.Cause)
}

func (e *DeserializationError) Unwrap() error { return e.Cause }

func kindOf(err error) string {
	for _, t := range taxonomy {
		if errors.Is(err, t.err) {
			return t.kind
		}
	}
	return fmt.Sprintf("%T", errors.Cause(err))
}

// fromPanic converts a recovered value into an error.
func fromPanic(value any) error {
	switch v := value.(type) {
	case nil:
		return nil
	case error:
		return errors.WithStack(v)
	default:
		return errors.Errorf("panic: %v", v)
	}
}

func wrapSerialize(err error) error {
	if err == nil {
		return nil
	}
	return &SerializationError{Kind: kindOf(err), Cause: err}
}

func wrapDeserialize(err error) error {
	if err == nil {
		return nil
	}
	return &DeserializationError{Kind: kindOf(err), Cause: err}
}
