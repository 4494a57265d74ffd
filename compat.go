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
	"strings"
)

// compatToken replaces this module's import path inside written type names
// when the compat flag is set, so streams do not depend on where the module is
// vendored or which major version wrote them. '!' never occurs in an import
// path, so the token cannot be mistaken for a real package.
const compatToken = "!slimgraph"

var modulePath = reflect.TypeFor[Array]().PkgPath()

// toWireName applies the compat rewrite to a canonical name.
func toWireName(name string, compat bool) string {
	if !compat || !strings.Contains(name, modulePath) {
		return name
	}
	return strings.ReplaceAll(name, modulePath, compatToken)
}

// fromWireName maps portable tokens back to this module's import path.
func fromWireName(name string) string {
	if !strings.Contains(name, compatToken) {
		return name
	}
	return strings.ReplaceAll(name, compatToken, modulePath)
}
