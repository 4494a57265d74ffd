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

// Package threadsafe provides a concurrency-safe wrapper around batch
// sessions using sync.Pool.
package threadsafe

import (
	"io"
	"sync"

	"github.com/chaokunyang/slimgraph"
	"github.com/pkg/errors"
)

// Codec pools slimgraph sessions. Each call borrows a session and returns it
// reset to the baseline, so calls are independent while the session's
// buffers and trackers are reused.
type Codec struct {
	pool sync.Pool
}

// New creates a new thread-safe Codec.
func New(opts ...slimgraph.Option) *Codec {
	base := slimgraph.New(opts...)
	c := &Codec{}
	c.pool = sync.Pool{
		New: func() any {
			return base.NewSession()
		},
	}
	return c
}

func (c *Codec) acquire() *slimgraph.Session {
	return c.pool.Get().(*slimgraph.Session)
}

func (c *Codec) release(s *slimgraph.Session) {
	s.Reset()
	c.pool.Put(s)
}

// Serialize writes the graph rooted at v to w using a pooled session.
func (c *Codec) Serialize(w io.Writer, v any) error {
	s := c.acquire()
	defer c.release(s)
	return s.Serialize(w, v)
}

// Deserialize reads one graph from r using a pooled session.
func (c *Codec) Deserialize(r io.Reader) (any, error) {
	s := c.acquire()
	defer c.release(s)
	return s.Deserialize(r)
}

// Marshal serializes v to bytes using a pooled session.
func (c *Codec) Marshal(v any) ([]byte, error) {
	s := c.acquire()
	defer c.release(s)
	return s.Marshal(v)
}

// Unmarshal deserializes data using a pooled session.
func (c *Codec) Unmarshal(data []byte) (any, error) {
	s := c.acquire()
	defer c.release(s)
	return s.Unmarshal(data)
}

// ============================================================================
// Generic package-level functions
// ============================================================================

// Deserialize deserializes data to type T, thread-safe. A null root yields
// the zero T.
func Deserialize[T any](c *Codec, data []byte) (T, error) {
	var zero T
	v, err := c.Unmarshal(data)
	if err != nil || v == nil {
		return zero, err
	}
	t, ok := v.(T)
	if !ok {
		return zero, &slimgraph.DeserializationError{Kind: "TypeMismatch", Cause: errors.Errorf("root is %T, not %T", v, zero)}
	}
	return t, nil
}

// ============================================================================
// Global convenience functions
// ============================================================================

var globalCodec = New()

// Marshal serializes a value using the global thread-safe instance.
func Marshal(v any) ([]byte, error) {
	return globalCodec.Marshal(v)
}

// Unmarshal deserializes data using the global thread-safe instance.
func Unmarshal[T any](data []byte) (T, error) {
	return Deserialize[T](globalCodec, data)
}
