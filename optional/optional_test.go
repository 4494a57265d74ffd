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

import (
	"reflect"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestOptional(t *testing.T) {
	some := Some(5)
	require.True(t, some.IsSome())
	require.False(t, some.IsNone())
	require.Equal(t, 5, some.UnwrapOr(9))
	require.Equal(t, 5, *some.Ptr())

	none := None[int]()
	require.True(t, none.IsNone())
	require.Equal(t, 9, none.UnwrapOr(9))
	require.Equal(t, 0, none.UnwrapOrDefault())
	require.Nil(t, none.Ptr())

	v := 3
	require.Equal(t, Some(3), FromPtr(&v))
	require.Equal(t, None[int](), FromPtr[int](nil))
	require.Equal(t, Some("6"), Map(Some(6), func(i int) string { return "6" }))
	require.Equal(t, None[string](), Map(None[int](), func(i int) string { return "x" }))

	var o Optional[string]
	o.Set("x")
	require.Equal(t, String("x"), o)
	o.Clear()
	require.True(t, o.IsNone())
	require.Equal(t, "", o.Value)
}

func TestUntypedAccess(t *testing.T) {
	var n Nullable = Int32(4)
	require.Equal(t, reflect.TypeFor[int32](), n.ElemType())
	require.Equal(t, int32(4), n.ValueAny())
	require.Nil(t, None[int32]().ValueAny())

	var o Optional[int64]
	require.False(t, o.SetAny("wrong"))
	require.False(t, o.SetAny(nil))
	require.True(t, o.SetAny(int64(8)))
	require.Equal(t, Int64(8), o)

	var a Optional[any]
	require.True(t, a.SetAny(nil))
	require.True(t, a.IsSome())
	require.Nil(t, a.Value)

	var p Optional[*int]
	require.True(t, p.SetAny((*int)(nil)))
	require.True(t, p.IsSome())
}
