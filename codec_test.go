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
	"fmt"
	"log/slog"
	"math"
	"reflect"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

type color int32

const (
	red color = iota
	green
	blue
)

type point struct {
	X, Y int
}

type person struct {
	Name   string
	Age    int32
	Tags   []string
	Scores []float64
	Attrs  map[string]any
	Born   time.Time
	ID     uuid.UUID
	Color  color
	Grid   [3]int16
	Origin point
	Friend *person
	hidden int
}

func roundTrip(t *testing.T, c *Codec, v any) any {
	t.Helper()
	data, err := c.Marshal(v)
	require.NoError(t, err)
	got, err := c.Unmarshal(data)
	require.NoError(t, err)
	return got
}

func TestRoundTripRoots(t *testing.T) {
	c := New()
	values := []any{
		true,
		int8(-8),
		int16(-300),
		int32(math.MinInt32),
		int64(math.MaxInt64),
		-1,
		uint8(200),
		uint16(math.MaxUint16),
		uint32(math.MaxUint32),
		uint64(math.MaxUint64),
		uint(42),
		float32(1.5),
		-2.25,
		complex64(complex(1, 2)),
		complex(-1.5, 0.25),
		"héllo, 世界",
		"",
		[]byte{1, 2, 3},
		[]int32{1, -1, math.MaxInt32},
		[]string{"a", "", "c"},
		[]bool{true, false},
		5 * time.Second,
		uuid.MustParse("6ba7b810-9dad-11d1-80b4-00c04fd430c8"),
		time.Date(2024, 3, 1, 12, 30, 45, 123456700, time.UTC),
		reflect.TypeFor[map[string][]int](),
		blue,
		[2]string{"x", "y"},
		point{X: 1, Y: -2},
		map[string]any{"n": 1, "s": "two", "f": 3.0, "nested": map[string]any{"ok": true}},
		map[any]string{1: "int", "two": "string", green: "color"},
		[]any{1, "two", nil, []int32{3}},
	}
	for _, want := range values {
		t.Run(fmt.Sprintf("%T", want), func(t *testing.T) {
			require.Equal(t, want, roundTrip(t, c, want))
		})
	}
}

func TestRoundTripDecimal(t *testing.T) {
	c := New()
	for _, s := range []string{"0", "1234.50", "-0.000000001", "79228162514264337593543950335"} {
		want := decimal.RequireFromString(s)
		got := roundTrip(t, c, want)
		require.True(t, want.Equal(got.(decimal.Decimal)), "want %v, got %v", want, got)
	}
}

func TestRoundTripStruct(t *testing.T) {
	want := &person{
		Name:   "alice",
		Age:    37,
		Tags:   []string{},
		Scores: []float64{1.5, math.Inf(1)},
		Attrs: map[string]any{
			"level":  7,
			"active": true,
			"ids":    []int32{1, 2, 3},
			"origin": point{X: 3},
			"kind":   reflect.TypeFor[person](),
			"none":   nil,
		},
		Born:   time.Date(1990, 5, 17, 8, 0, 0, 0, time.UTC),
		ID:     uuid.MustParse("00000000-0000-0000-0000-000000000001"),
		Color:  green,
		Grid:   [3]int16{-1, 0, 1},
		Origin: point{X: 10, Y: 20},
		Friend: &person{Name: "bob", Tags: nil},
		hidden: 99,
	}
	got := roundTrip(t, New(), want).(*person)
	require.Equal(t, 0, got.hidden)
	want.hidden = 0
	require.Equal(t, want, got)
	require.NotNil(t, got.Tags)
	require.Nil(t, got.Friend.Tags)
	require.Nil(t, got.Friend.Attrs)
}

func TestNullRoot(t *testing.T) {
	t.Run("Pinned", func(t *testing.T) {
		c := New(WithPinnedBaseline(true))
		data, err := c.Marshal(nil)
		require.NoError(t, err)
		require.Equal(t, []byte{0x00, 0x00, 0xCA, 0xFE, 0x00}, data)
		got, err := c.Unmarshal(data)
		require.NoError(t, err)
		require.Nil(t, got)
	})
	t.Run("Crosschecked", func(t *testing.T) {
		c := New()
		data, err := c.Marshal((*person)(nil))
		require.NoError(t, err)
		require.Equal(t, header[:], data[:4])
		require.Equal(t, byte(0x00), data[len(data)-1])
		got, err := c.Unmarshal(data)
		require.NoError(t, err)
		require.Nil(t, got)
	})
}

func TestHeaderLayout(t *testing.T) {
	c := New()
	data, err := c.Marshal(int32(1))
	require.NoError(t, err)

	reg := NewRegistry(DefaultBaseline(), false)
	want := append([]byte(nil), header[:]...)
	want = appendUvarint(want, uint64(reg.Len()))
	want = appendUvarint(want, reg.Checksum())
	idx, ok := reg.Lookup(reflect.TypeFor[int32]())
	require.True(t, ok)
	want = appendUvarint(want, uint64(idx)<<1)
	want = appendSignedVarint(want, 1)
	require.Equal(t, want, data)
}

func TestStreamCorrupted(t *testing.T) {
	c := New()
	data, err := c.Marshal(&person{Name: "carol", Attrs: map[string]any{"x": 1}})
	require.NoError(t, err)

	cases := map[string][]byte{
		"Empty":     nil,
		"BadMagic":  append([]byte{0x00, 0x00, 0xCA, 0xFF}, data[4:]...),
		"Truncated": data[:len(data)-1],
	}
	for name, in := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := c.Unmarshal(in)
			var de *DeserializationError
			require.ErrorAs(t, err, &de)
			require.Equal(t, "StreamCorrupted", de.Kind)
		})
	}

	t.Run("UnknownTypeName", func(t *testing.T) {
		pinned := New(WithPinnedBaseline(true))
		in := append([]byte(nil), header[:]...)
		name := "example.com/nowhere.Missing"
		in = appendUvarint(in, uint64(len(name))<<1|1)
		in = append(in, name...)
		_, err := pinned.Unmarshal(in)
		var de *DeserializationError
		require.ErrorAs(t, err, &de)
		require.Equal(t, "StreamCorrupted", de.Kind)
		require.ErrorIs(t, err, ErrStreamCorrupted)
	})
	t.Run("SlotOutOfOrder", func(t *testing.T) {
		pinned := New(WithPinnedBaseline(true))
		in := append([]byte(nil), header[:]...)
		shape := "$2|1"
		in = appendUvarint(in, uint64(len(shape))<<1|1)
		in = append(in, shape...)
		in = appendFlagVarint(in, 9+HandleOffset, false)
		_, err := pinned.Unmarshal(in)
		require.ErrorIs(t, err, ErrStreamCorrupted)
	})
}

func TestSizeGuard(t *testing.T) {
	t.Run("ArrayDescriptor", func(t *testing.T) {
		data, err := New().Marshal(make([]*leaf, 100))
		require.NoError(t, err)
		_, err = New(WithMaxCollectionLength(10)).Unmarshal(data)
		var de *DeserializationError
		require.ErrorAs(t, err, &de)
		require.Equal(t, "StreamCorrupted", de.Kind)
		require.Contains(t, err.Error(), "read state HeaderVerified")
	})
	t.Run("NativeSlice", func(t *testing.T) {
		data, err := New().Marshal(make([]int32, 100))
		require.NoError(t, err)
		_, err = New(WithMaxCollectionLength(99)).Unmarshal(data)
		require.ErrorIs(t, err, ErrStreamCorrupted)
		_, err = New(WithMaxCollectionLength(100)).Unmarshal(data)
		require.NoError(t, err)
	})
	t.Run("DeclaredStringLength", func(t *testing.T) {
		idx, ok := NewRegistry(DefaultBaseline(), false).Lookup(stringType)
		require.True(t, ok)
		in := append([]byte(nil), header[:]...)
		in = appendUvarint(in, uint64(idx)<<1)
		in = appendUvarint(in, math.MaxUint32)
		_, err := New(WithPinnedBaseline(true)).Unmarshal(in)
		require.ErrorIs(t, err, ErrStreamCorrupted)
	})
}

func TestChecksumGuard(t *testing.T) {
	intType, stringType := reflect.TypeFor[int](), reflect.TypeFor[string]()
	writer := New(WithBaseline(NewBaseline(intType, stringType)))
	data, err := writer.Marshal(&point{X: 1})
	require.NoError(t, err)

	_, err = New(WithBaseline(NewBaseline(intType))).Unmarshal(data)
	var de *DeserializationError
	require.ErrorAs(t, err, &de)
	require.Equal(t, "RegistryMismatch", de.Kind)
	require.ErrorIs(t, err, ErrRegistryMismatch)

	_, err = New(WithBaseline(NewBaseline(stringType, intType))).Unmarshal(data)
	require.ErrorIs(t, err, ErrRegistryMismatch)

	got, err := New(WithBaseline(NewBaseline(intType, stringType))).Unmarshal(data)
	require.NoError(t, err)
	require.Equal(t, &point{X: 1}, got)
}

type withChan struct {
	C chan int
}

type secret struct {
	NotSerializable
	Token string
}

func TestProhibitedTypes(t *testing.T) {
	c := New()
	values := map[string]any{
		"Func":            func() {},
		"Chan":            make(chan int),
		"ChanField":       &withChan{},
		"NotSerializable": &secret{Token: "x"},
		"InsideInterface": map[string]any{"f": func() {}},
	}
	for name, v := range values {
		t.Run(name, func(t *testing.T) {
			_, err := c.Marshal(v)
			var se *SerializationError
			require.ErrorAs(t, err, &se)
			require.Equal(t, "ProhibitedType", se.Kind)
			require.ErrorIs(t, err, ErrProhibitedType)
		})
	}
}

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) { return 0, errors.New("disk full") }

func TestWriteFailure(t *testing.T) {
	err := New().Serialize(failingWriter{}, "payload")
	var se *SerializationError
	require.ErrorAs(t, err, &se)
	require.Contains(t, err.Error(), "disk full")
}

func TestGenericUnmarshal(t *testing.T) {
	c := New()
	data, err := c.Marshal(&point{X: 4, Y: 2})
	require.NoError(t, err)

	p, err := Unmarshal[*point](c, data)
	require.NoError(t, err)
	require.Equal(t, 4, p.X)

	_, err = Unmarshal[string](c, data)
	var de *DeserializationError
	require.ErrorAs(t, err, &de)
	require.Equal(t, "TypeMismatch", de.Kind)

	data, err = Marshal("global")
	require.NoError(t, err)
	s, err := UnmarshalAs[string](data)
	require.NoError(t, err)
	require.Equal(t, "global", s)

	data, err = Marshal(nil)
	require.NoError(t, err)
	np, err := UnmarshalAs[*point](data)
	require.NoError(t, err)
	require.Nil(t, np)
}

func TestDescribe(t *testing.T) {
	type describedBase struct {
		Z int
	}
	type described struct {
		describedBase
		B      int
		A      string
		hidden int
		Skip   string `slim:"-"`
		Svc    any    `slim:"inject"`
	}
	info := Describe(reflect.TypeFor[described]())
	require.Equal(t, "struct", info.Kind)
	require.Equal(t, []string{"describedBase.Z", "A", "B"}, info.Fields)
	require.NoError(t, info.Err)

	kinds := map[reflect.Type]string{
		reflect.TypeFor[int64]():          "primitive",
		reflect.TypeFor[time.Time]():      "primitive",
		reflect.TypeFor[[]int]():          "native-slice",
		reflect.TypeFor[[]*int]():         "slice",
		reflect.TypeFor[[4]string]():      "fixed-array",
		reflect.TypeFor[map[string]int](): "map",
		reflect.TypeFor[*point]():         "pointer",
		reflect.TypeFor[*Array]():         "array",
		reflect.TypeFor[*customBag]():     "custom",
		reflect.TypeFor[any]():            "interface",
		reflect.TypeFor[chan int]():       "prohibited",
		reflect.TypeFor[secret]():         "prohibited",
		reflect.TypeFor[withOptional]():   "struct",
	}
	for typ, kind := range kinds {
		require.Equal(t, kind, Describe(typ).Kind, typ.String())
	}
	require.ErrorIs(t, Describe(reflect.TypeFor[secret]()).Err, ErrProhibitedType)
}

func TestDebugLogging(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	c := New(WithLogger(logger))
	data, err := c.Marshal(&point{X: 1})
	require.NoError(t, err)
	_, err = c.Unmarshal(data)
	require.NoError(t, err)
	require.Contains(t, buf.String(), "slimgraph: serialized")
	require.Contains(t, buf.String(), "slimgraph: deserialized")

	buf.Reset()
	_, err = c.Unmarshal(header[:])
	require.Error(t, err)
	require.NotContains(t, buf.String(), "slimgraph: deserialized")
}

func TestConfig(t *testing.T) {
	cfg := New().Config()
	require.Equal(t, DefaultMaxCollectionLength, cfg.MaxCollectionLength)
	require.Same(t, DefaultBaseline(), cfg.Baseline)
	require.Equal(t, PerCall, cfg.Sharing)

	cfg = New(WithBaseline(nil), WithMaxCollectionLength(-1), WithLogger(nil)).Config()
	require.Nil(t, cfg.Baseline)
	require.Equal(t, DefaultMaxCollectionLength, cfg.MaxCollectionLength)
	require.NotNil(t, cfg.Logger)
}

func FuzzUnmarshal(f *testing.F) {
	c := New()
	for _, v := range []any{
		nil,
		"seed",
		&person{Name: "seed", Attrs: map[string]any{"k": []int32{1}}},
		[]any{1, "two", &point{}},
		NewArray(reflect.TypeFor[int32](), []int{1, -2}, []int{2, 3}),
	} {
		data, err := c.Marshal(v)
		require.NoError(f, err)
		f.Add(data)
	}
	reader := New(WithMaxCollectionLength(1 << 12))
	f.Fuzz(func(t *testing.T, data []byte) {
		_, err := reader.Unmarshal(data)
		if err != nil {
			var de *DeserializationError
			require.ErrorAs(t, err, &de)
		}
	})
}
