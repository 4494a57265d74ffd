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
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"
)

var hookLog []string

func logHook(event string) error {
	hookLog = append(hookLog, event)
	return nil
}

type hookBase struct {
	BaseName string
}

func (b *hookBase) OnSerializing() error  { return logHook("base.serializing") }
func (b *hookBase) OnDeserialized() error { return logHook("base.deserialized:" + b.BaseName) }

type hookDerived struct {
	hookBase
	Name string
}

func (d *hookDerived) OnSerializing() error   { return logHook("derived.serializing") }
func (d *hookDerived) OnSerialized() error    { return logHook("derived.serialized") }
func (d *hookDerived) OnDeserializing() error { return logHook("derived.deserializing:" + d.Name) }
func (d *hookDerived) OnDeserialized() error  { return logHook("derived.deserialized:" + d.Name) }

// hookLeaf only inherits its hooks.
type hookLeaf struct {
	hookBase
	X int
}

type listenerNode struct {
	Name string
	Next *listenerNode
}

func (n *listenerNode) OnDeserialized() error    { return logHook("d:" + n.Name) }
func (n *listenerNode) OnDeserialization() error { return logHook("l:" + n.Name) }

var errBoom = errors.New("boom")

type failingHook struct {
	X int
}

func (f *failingHook) OnSerializing() error { return errBoom }

type failingListener struct {
	X int
}

func (f *failingListener) OnDeserialization() error { return errBoom }

func TestHookOrder(t *testing.T) {
	c := New()
	in := &hookDerived{hookBase: hookBase{BaseName: "b"}, Name: "d"}

	hookLog = nil
	data, err := c.Marshal(in)
	require.NoError(t, err)
	require.Equal(t, []string{"base.serializing", "derived.serializing", "derived.serialized"}, hookLog)

	hookLog = nil
	got, err := c.Unmarshal(data)
	require.NoError(t, err)
	require.Equal(t, in, got)
	require.Equal(t, []string{
		"derived.deserializing:",
		"base.deserialized:b",
		"derived.deserialized:d",
	}, hookLog)
}

func TestInheritedHooksRunOnce(t *testing.T) {
	c := New()
	hookLog = nil
	data, err := c.Marshal(&hookLeaf{X: 1})
	require.NoError(t, err)
	require.Equal(t, []string{"base.serializing"}, hookLog)

	hookLog = nil
	_, err = c.Unmarshal(data)
	require.NoError(t, err)
	require.Equal(t, []string{"base.deserialized:"}, hookLog)
}

func TestDeserializationListeners(t *testing.T) {
	c := New()
	data, err := c.Marshal(&listenerNode{Name: "a", Next: &listenerNode{Name: "b"}})
	require.NoError(t, err)

	hookLog = nil
	got, err := c.Unmarshal(data)
	require.NoError(t, err)
	require.Equal(t, "b", got.(*listenerNode).Next.Name)
	require.Equal(t, []string{"d:a", "d:b", "l:a", "l:b"}, hookLog)
}

func TestCallbackFailure(t *testing.T) {
	c := New()
	_, err := c.Marshal(&failingHook{})
	var se *SerializationError
	require.ErrorAs(t, err, &se)
	require.Equal(t, "CallbackFailure", se.Kind)
	require.ErrorIs(t, err, ErrCallbackFailure)
	require.ErrorIs(t, err, errBoom)
	require.Contains(t, err.Error(), "OnSerializing")

	data, err := c.Marshal(&failingListener{})
	require.NoError(t, err)
	_, err = c.Unmarshal(data)
	var de *DeserializationError
	require.ErrorAs(t, err, &de)
	require.Equal(t, "CallbackFailure", de.Kind)
	require.ErrorIs(t, err, errBoom)
}

// customBag hides its state from field walking and round-trips it as members.
type customBag struct {
	label       string
	peer        *customPeer
	count       int
	sawPeerName string
}

type customPeer struct {
	Name  string
	Owner *customBag
}

func (b *customBag) CollectMembers() ([]Member, error) {
	return []Member{
		{Name: "label", Value: b.label},
		{Name: "peer", Type: reflect.TypeFor[*customPeer](), Value: b.peer},
		{Name: "count", Value: b.count},
	}, nil
}

func (b *customBag) RestoreMembers(members []Member) error {
	for _, m := range members {
		switch m.Name {
		case "label":
			b.label = m.Value.(string)
		case "peer":
			b.peer, _ = m.Value.(*customPeer)
			if b.peer != nil {
				b.sawPeerName = b.peer.Name
			}
		case "count":
			b.count = m.Value.(int)
		default:
			return errors.Errorf("unexpected member %q", m.Name)
		}
	}
	return nil
}

type brokenBag struct{}

func (*brokenBag) CollectMembers() ([]Member, error) {
	return []Member{{Name: "unknown", Value: 1}}, nil
}

func (*brokenBag) RestoreMembers(members []Member) error { return errBoom }

func TestCustomCodec(t *testing.T) {
	c := New()
	bag := &customBag{label: "bag", count: 3}
	bag.peer = &customPeer{Name: "peer", Owner: bag}

	got := roundTrip(t, c, bag).(*customBag)
	require.Equal(t, "bag", got.label)
	require.Equal(t, 3, got.count)
	require.NotNil(t, got.peer)
	require.Same(t, got, got.peer.Owner)
	// members are restored after every body has been read
	require.Equal(t, "peer", got.sawPeerName)

	t.Run("NilMember", func(t *testing.T) {
		got := roundTrip(t, c, &customBag{label: "alone"}).(*customBag)
		require.Equal(t, "alone", got.label)
		require.Nil(t, got.peer)
	})
	t.Run("InsideGraph", func(t *testing.T) {
		bag := &customBag{label: "shared"}
		got := roundTrip(t, c, []any{bag, bag}).([]any)
		require.Same(t, got[0].(*customBag), got[1].(*customBag))
	})
	t.Run("RestoreFailure", func(t *testing.T) {
		data, err := c.Marshal(&brokenBag{})
		require.NoError(t, err)
		_, err = c.Unmarshal(data)
		require.ErrorIs(t, err, ErrCallbackFailure)
		require.Contains(t, err.Error(), "RestoreMembers")
	})
}

// restoredBag records what its members held when OnDeserialized ran.
type restoredBag struct {
	label string
	seen  string
}

func (b *restoredBag) CollectMembers() ([]Member, error) {
	return []Member{{Name: "label", Value: b.label}}, nil
}

func (b *restoredBag) RestoreMembers(members []Member) error {
	for _, m := range members {
		if m.Name == "label" {
			b.label = m.Value.(string)
		}
	}
	return logHook("restore:" + b.label)
}

func (b *restoredBag) OnDeserialized() error {
	b.seen = b.label
	return logHook("deserialized:" + b.label)
}

func TestFixupsBeforeDeserialized(t *testing.T) {
	c := New()
	data, err := c.Marshal(&restoredBag{label: "bag"})
	require.NoError(t, err)

	hookLog = nil
	got, err := c.Unmarshal(data)
	require.NoError(t, err)
	require.Equal(t, "bag", got.(*restoredBag).seen)
	require.Equal(t, []string{"restore:bag", "deserialized:bag"}, hookLog)
}
