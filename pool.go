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

	"github.com/chaokunyang/slimgraph/refl"
)

// TrackerMode selects the direction a Tracker is used in.
type TrackerMode uint8

const (
	TrackWrite TrackerMode = iota
	TrackRead
)

const (
	// Pools up to this size are searched linearly; larger pools use an index.
	linearScanLimit = 16
	// Trackers larger than this are not kept on the free list.
	maxRetainedSlots = 1 << 14
	freeListSize     = 8
)

// fixup is a deferred RestoreMembers call.
type fixup struct {
	target  CustomCodec
	owner   reflect.Type
	members []Member
}

// callback is a deferred OnDeserialized invocation.
type callback struct {
	target reflect.Value
	hooks  *hookSet
}

// Tracker is the per-session reference pool. Slot 0 is reserved for null; the
// remaining slots hold reference values in first-discovery order, which is the
// same on both ends.
type Tracker struct {
	mode      TrackerMode
	values    []reflect.Value
	ids       []refl.Identity
	index     map[refl.Identity]int
	fixups    []fixup
	callbacks []callback
}

func newTracker(mode TrackerMode) *Tracker {
	t := &Tracker{}
	t.reset(mode)
	return t
}

func (t *Tracker) reset(mode TrackerMode) {
	t.mode = mode
	clear(t.values)
	t.values = append(t.values[:0], reflect.Value{})
	clear(t.ids)
	t.ids = append(t.ids[:0], refl.Identity{})
	t.index = nil
	clear(t.fixups)
	t.fixups = t.fixups[:0]
	clear(t.callbacks)
	t.callbacks = t.callbacks[:0]
}

// Mode returns the direction the tracker was acquired for.
func (t *Tracker) Mode() TrackerMode { return t.mode }

// Len returns the number of slots, the null slot included.
func (t *Tracker) Len() int { return len(t.values) }

// At returns the value in slot i.
func (t *Tracker) At(i int) reflect.Value { return t.values[i] }

// InternOrGetSlot returns the slot of v, registering it when it has not been
// seen before. v must be a non-nil pointer, map or slice.
func (t *Tracker) InternOrGetSlot(v reflect.Value) (int, bool) {
	id := refl.IdentityOf(v)
	if t.index != nil {
		if slot, ok := t.index[id]; ok {
			return slot, false
		}
	} else {
		for i := 1; i < len(t.ids); i++ {
			if t.ids[i] == id {
				return i, false
			}
		}
	}
	slot := len(t.values)
	t.values = append(t.values, v)
	t.ids = append(t.ids, id)
	if t.index != nil {
		t.index[id] = slot
	} else if len(t.ids) > linearScanLimit {
		t.index = make(map[refl.Identity]int, 2*len(t.ids))
		for i := 1; i < len(t.ids); i++ {
			t.index[t.ids[i]] = i
		}
	}
	return slot, true
}

// AppendNext places a freshly allocated value in the next slot.
func (t *Tracker) AppendNext(v reflect.Value) int {
	t.values = append(t.values, v)
	return len(t.values) - 1
}

func (t *Tracker) queueFixup(f fixup) { t.fixups = append(t.fixups, f) }

func (t *Tracker) queueCallback(c callback) { t.callbacks = append(t.callbacks, c) }

// QueueFixup schedules c.RestoreMembers(members) for after the pool is drained.
func (t *Tracker) QueueFixup(c CustomCodec, members []Member) {
	t.queueFixup(fixup{target: c, owner: reflect.TypeOf(c), members: members})
}

// ============================================================================
// Free list
// ============================================================================

type trackerFreeList struct {
	mu   sync.Mutex
	free []*Tracker
}

var trackers = &trackerFreeList{free: make([]*Tracker, 0, freeListSize)}

func (l *trackerFreeList) acquire(mode TrackerMode) (*Tracker, bool) {
	l.mu.Lock()
	n := len(l.free)
	if n == 0 {
		l.mu.Unlock()
		return newTracker(mode), false
	}
	t := l.free[n-1]
	l.free[n-1] = nil
	l.free = l.free[:n-1]
	l.mu.Unlock()
	t.reset(mode)
	return t, true
}

func (l *trackerFreeList) release(t *Tracker) {
	if cap(t.values) > maxRetainedSlots {
		return
	}
	t.reset(t.mode)
	l.mu.Lock()
	if len(l.free) < cap(l.free) {
		l.free = append(l.free, t)
	}
	l.mu.Unlock()
}

// AcquireTracker takes a tracker from the free list, allocating a transient one
// when the list is empty. Release it when the call is done.
func AcquireTracker(mode TrackerMode) *Tracker {
	t, _ := trackers.acquire(mode)
	return t
}

// Release returns t to the free list.
func (t *Tracker) Release() { trackers.release(t) }
