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

// Member is one named, typed value of a custom-serialized object.
type Member struct {
	Name  string
	Type  reflect.Type
	Value any
}

// CustomCodec is implemented by pointer types that take over their own member
// enumeration instead of field walking. RestoreMembers runs after the whole
// graph has been allocated and read, so member values that reference other
// objects are complete by then.
type CustomCodec interface {
	CollectMembers() ([]Member, error)
	RestoreMembers(members []Member) error
}

func (d *descriptor) writeCustomBody(w *graphWriter, v reflect.Value) error {
	members, err := v.Interface().(CustomCodec).CollectMembers()
	if err != nil {
		return callbackFailure("CollectMembers", d.typ, err)
	}
	w.pw.WriteVarIntStr(w.reg.GetOrAddHandle(d.typ.Elem()))
	w.pw.WriteUint64(uint64(len(members)))
	for _, m := range members {
		mt := m.Type
		if mt == nil && m.Value != nil {
			mt = reflect.TypeOf(m.Value)
		}
		w.pw.WriteString(m.Name)
		w.pw.WriteVarIntStr(w.reg.GetOrAddHandle(mt))
		if err := w.pw.Err(); err != nil {
			return err
		}
		if err := w.writeDynamic(reflect.ValueOf(m.Value)); err != nil {
			return err
		}
	}
	return w.pw.Err()
}

func (d *descriptor) readCustomBody(r *graphReader, v reflect.Value) error {
	t, err := r.readType()
	if err != nil {
		return err
	}
	if t != d.typ.Elem() {
		return corruptf("custom body of %v found in slot of %v", t, d.typ)
	}
	n := r.pr.ReadLength()
	if err := r.pr.Err(); err != nil {
		return err
	}
	members := make([]Member, 0, min(n, 64))
	for i := 0; i < n; i++ {
		name := r.pr.ReadString()
		mt, err := r.readType()
		if err != nil {
			return err
		}
		x, err := r.readDynamic()
		if err != nil {
			return err
		}
		m := Member{Name: name, Type: mt}
		if x.IsValid() {
			m.Value = x.Interface()
		}
		members = append(members, m)
	}
	r.pool.queueFixup(fixup{target: v.Interface().(CustomCodec), owner: d.typ, members: members})
	return nil
}
