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
	"io"
)

// Session is a batch serialization context. Types registered by one call stay
// registered for the next, so a type's name crosses the wire once per session
// instead of once per call. The reading side must use its own session and read
// the streams in the order they were written.
//
// A Session is not safe for concurrent use.
type Session struct {
	config    *Config
	pw        *PrimitiveWriter
	pr        *PrimitiveReader
	writeReg  *Registry
	readReg   *Registry
	writePool *Tracker
	readPool  *Tracker
}

// NewSession returns a batch session using the codec's configuration.
func (c *Codec) NewSession() *Session {
	cfg := c.config
	return &Session{
		config:    &cfg,
		pw:        NewPrimitiveWriter(io.Discard),
		pr:        NewPrimitiveReader(bytes.NewReader(nil)),
		writeReg:  NewRegistry(cfg.Baseline, cfg.CompatTypeNames),
		readReg:   NewRegistry(cfg.Baseline, cfg.CompatTypeNames),
		writePool: newTracker(TrackWrite),
		readPool:  newTracker(TrackRead),
	}
}

// Serialize writes one graph. On failure the types registered by the call are
// dropped again so the session stays in step with its peer.
func (s *Session) Serialize(w io.Writer, root any) error {
	mark := s.writeReg.Len()
	s.writePool.reset(TrackWrite)
	defer s.writePool.reset(TrackWrite)
	err := s.config.serialize(s.pw, s.writeReg, s.writePool, w, root)
	if err != nil {
		s.writeReg.truncate(mark)
	}
	return err
}

// Deserialize reads one graph.
func (s *Session) Deserialize(r io.Reader) (any, error) {
	mark := s.readReg.Len()
	s.readPool.reset(TrackRead)
	defer s.readPool.reset(TrackRead)
	v, err := s.config.deserialize(s.pr, s.readReg, s.readPool, r)
	if err != nil {
		s.readReg.truncate(mark)
	}
	return v, err
}

// Marshal serializes v to bytes.
func (s *Session) Marshal(v any) ([]byte, error) {
	var buf bytes.Buffer
	if err := s.Serialize(&buf, v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Unmarshal deserializes one graph from data.
func (s *Session) Unmarshal(data []byte) (any, error) {
	return s.Deserialize(bytes.NewReader(data))
}

// Reset returns both registries to the baseline.
func (s *Session) Reset() {
	s.writeReg.Reset()
	s.readReg.Reset()
}

// RegisteredTypes returns the number of types the writing side knows,
// built-ins and baseline included.
func (s *Session) RegisteredTypes() int { return s.writeReg.Len() }
