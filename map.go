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

import "reflect"

// writeMapBody writes the entry count followed by key/value pairs in
// iteration order; the reader inserts them in the order it reads them.
func (d *descriptor) writeMapBody(w *graphWriter, v reflect.Value) error {
	key, elem := d.key.get(), d.elem.get()
	w.pw.WriteUint64(uint64(v.Len()))
	if err := w.pw.Err(); err != nil {
		return err
	}
	iter := v.MapRange()
	for iter.Next() {
		if err := key.writeValue(w, iter.Key()); err != nil {
			return err
		}
		if err := elem.writeValue(w, iter.Value()); err != nil {
			return err
		}
	}
	return nil
}

func (d *descriptor) readMapBody(r *graphReader, v reflect.Value) error {
	key, elem := d.key.get(), d.elem.get()
	n := r.pr.ReadLength()
	if err := r.pr.Err(); err != nil {
		return err
	}
	kv := reflect.New(d.typ.Key()).Elem()
	ev := reflect.New(d.typ.Elem()).Elem()
	for i := 0; i < n; i++ {
		kv.SetZero()
		ev.SetZero()
		if err := key.readValue(r, kv); err != nil {
			return err
		}
		if err := elem.readValue(r, ev); err != nil {
			return err
		}
		if !kv.Comparable() {
			return corruptf("unhashable key of type %v in %v", kv.Type(), d.typ)
		}
		v.SetMapIndex(kv, ev)
	}
	return nil
}
