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

import "sync"

// Strings shorter than this are decoded through a pooled buffer.
const pooledStringLimit = 1 << 10

var stringBufPool = sync.Pool{
	New: func() any {
		b := make([]byte, pooledStringLimit)
		return &b
	},
}

// readStringBytes reads n bytes of UTF-8 and returns them as a string.
func (r *PrimitiveReader) readStringBytes(n int) string {
	if n == 0 {
		return ""
	}
	if n >= pooledStringLimit {
		b := make([]byte, n)
		if !r.data(b) {
			return ""
		}
		return string(b)
	}
	bp := stringBufPool.Get().(*[]byte)
	defer stringBufPool.Put(bp)
	b := (*bp)[:n]
	if !r.data(b) {
		return ""
	}
	return string(b)
}
