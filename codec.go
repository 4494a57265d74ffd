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
	"bytes"
	"context"
	"io"
	"log/slog"
	"sync"

	"github.com/pkg/errors"
)

// ============================================================================
// Config
// ============================================================================

// Sharing selects how registry and tracker state is shared between calls.
type Sharing uint8

const (
	// PerCall builds fresh state for every call; calls may run concurrently.
	PerCall Sharing = iota
	// Batch reuses one session across calls so registered types accumulate.
	// Calls are serialized on the codec and the peer must read the streams in
	// the order they were written.
	Batch
)

// Config holds configuration options for Codec instances.
type Config struct {
	// Baseline seeds both registries after the built-ins.
	Baseline *Baseline
	// PinnedBaseline skips writing and verifying the registry size and
	// checksum. Both ends must agree on it.
	PinnedBaseline bool
	// CompatTypeNames writes this module's import path as a portable token.
	CompatTypeNames bool
	Sharing         Sharing
	// MaxCollectionLength bounds declared string, slice, map and array lengths.
	MaxCollectionLength int
	Logger              *slog.Logger
}

func defaultConfig() Config {
	return Config{
		Baseline:            DefaultBaseline(),
		MaxCollectionLength: DefaultMaxCollectionLength,
		Logger:              slog.Default(),
	}
}

// Option is a function that configures a Codec.
type Option func(*Config)

// WithBaseline sets the registry baseline. A nil baseline seeds built-ins only.
func WithBaseline(b *Baseline) Option {
	return func(c *Config) {
		c.Baseline = b
	}
}

// WithPinnedBaseline skips the registry crosscheck.
func WithPinnedBaseline(pinned bool) Option {
	return func(c *Config) {
		c.PinnedBaseline = pinned
	}
}

// WithCompatTypeNames enables the portable module token in written names.
func WithCompatTypeNames(enabled bool) Option {
	return func(c *Config) {
		c.CompatTypeNames = enabled
	}
}

// WithSharing sets the sharing mode.
func WithSharing(mode Sharing) Option {
	return func(c *Config) {
		c.Sharing = mode
	}
}

// WithMaxCollectionLength sets the ceiling for declared lengths.
func WithMaxCollectionLength(n int) Option {
	return func(c *Config) {
		if n > 0 {
			c.MaxCollectionLength = n
		}
	}
}

// WithLogger sets the logger used for debug events.
func WithLogger(l *slog.Logger) Option {
	return func(c *Config) {
		if l != nil {
			c.Logger = l
		}
	}
}

func (c *Config) debug(msg string, args ...any) {
	if c.Logger.Enabled(context.Background(), slog.LevelDebug) {
		c.Logger.Debug(msg, args...)
	}
}

// serialize runs one write with panics recovered and the stream flushed on
// every exit path.
func (c *Config) serialize(pw *PrimitiveWriter, reg *Registry, pool *Tracker, out io.Writer, root any) (err error) {
	gw := graphWriter{pw: pw, reg: reg, pool: pool, crosscheck: !c.PinnedBaseline}
	pw.Bind(out)
	defer func() {
		if r := recover(); r != nil {
			err = fromPanic(r)
		}
		if uerr := pw.Unbind(); err == nil {
			err = uerr
		}
		if err != nil {
			c.debug("slimgraph: serialize failed", "state", gw.state, "err", err)
			err = wrapSerialize(errors.WithMessagef(err, "write state %v", gw.state))
			return
		}
		c.debug("slimgraph: serialized", "slots", pool.Len()-1, "types", reg.Len())
	}()
	return gw.serialize(root)
}

// deserialize runs one read with panics recovered and the stream unbound on
// every exit path.
func (c *Config) deserialize(pr *PrimitiveReader, reg *Registry, pool *Tracker, in io.Reader) (v any, err error) {
	gr := graphReader{pr: pr, reg: reg, pool: pool, crosscheck: !c.PinnedBaseline}
	pr.Bind(in)
	pr.SetMaxLength(c.MaxCollectionLength)
	defer func() {
		if r := recover(); r != nil {
			err = fromPanic(r)
		}
		pr.Unbind()
		if err != nil {
			if errors.Is(err, ErrRegistryMismatch) {
				c.debug("slimgraph: registry crosscheck failed", "types", reg.Len(), "checksum", reg.Checksum())
			}
			v = nil
			err = wrapDeserialize(errors.WithMessagef(err, "read state %v", gr.state))
			return
		}
		c.debug("slimgraph: deserialized", "slots", pool.Len()-1, "types", reg.Len())
	}()
	return gr.deserialize()
}

// ============================================================================
// Codec
// ============================================================================

// Codec serializes object graphs. In PerCall mode it is safe for concurrent
// use; in Batch mode calls are serialized.
type Codec struct {
	config  Config
	writers sync.Pool
	readers sync.Pool

	mu    sync.Mutex
	batch *Session
}

// New creates a Codec.
func New(opts ...Option) *Codec {
	c := &Codec{config: defaultConfig()}
	for _, opt := range opts {
		opt(&c.config)
	}
	c.writers.New = func() any { return NewPrimitiveWriter(io.Discard) }
	c.readers.New = func() any { return NewPrimitiveReader(bytes.NewReader(nil)) }
	if c.config.Sharing == Batch {
		c.batch = c.NewSession()
	}
	return c
}

// Config returns a copy of the codec's configuration.
func (c *Codec) Config() Config { return c.config }

func (c *Codec) acquireTracker(mode TrackerMode) *Tracker {
	t, reused := trackers.acquire(mode)
	if !reused {
		c.config.debug("slimgraph: tracker free list empty, allocating")
	}
	return t
}

// Serialize writes the graph rooted at root to w. Failures are returned as
// *SerializationError.
func (c *Codec) Serialize(w io.Writer, root any) error {
	if c.batch != nil {
		c.mu.Lock()
		defer c.mu.Unlock()
		return c.batch.Serialize(w, root)
	}
	pw := c.writers.Get().(*PrimitiveWriter)
	defer c.writers.Put(pw)
	pool := c.acquireTracker(TrackWrite)
	defer pool.Release()
	reg := NewRegistry(c.config.Baseline, c.config.CompatTypeNames)
	return c.config.serialize(pw, reg, pool, w, root)
}

// Deserialize reads one graph from r. Reading stops at the end of the graph, so
// r may carry several graphs back to back. Failures are returned as
// *DeserializationError.
func (c *Codec) Deserialize(r io.Reader) (any, error) {
	if c.batch != nil {
		c.mu.Lock()
		defer c.mu.Unlock()
		return c.batch.Deserialize(r)
	}
	pr := c.readers.Get().(*PrimitiveReader)
	defer c.readers.Put(pr)
	pool := c.acquireTracker(TrackRead)
	defer pool.Release()
	reg := NewRegistry(c.config.Baseline, c.config.CompatTypeNames)
	return c.config.deserialize(pr, reg, pool, r)
}

// Marshal serializes v to bytes.
func (c *Codec) Marshal(v any) ([]byte, error) {
	var buf bytes.Buffer
	if err := c.Serialize(&buf, v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Unmarshal deserializes one graph from data.
func (c *Codec) Unmarshal(data []byte) (any, error) {
	return c.Deserialize(bytes.NewReader(data))
}

// Unmarshal deserializes data and asserts the root to T. A null root yields
// the zero T.
func Unmarshal[T any](c *Codec, data []byte) (T, error) {
	var zero T
	v, err := c.Unmarshal(data)
	if err != nil || v == nil {
		return zero, err
	}
	t, ok := v.(T)
	if !ok {
		return zero, &DeserializationError{
			Kind:  "TypeMismatch",
			Cause: errors.Errorf("root is %T, not %T", v, zero),
		}
	}
	return t, nil
}

// ============================================================================
// Global convenience functions
// ============================================================================

var globalCodec = New()

// Marshal serializes v with the default per-call codec.
func Marshal(v any) ([]byte, error) { return globalCodec.Marshal(v) }

// UnmarshalAs deserializes data with the default per-call codec.
func UnmarshalAs[T any](data []byte) (T, error) { return Unmarshal[T](globalCodec, data) }
