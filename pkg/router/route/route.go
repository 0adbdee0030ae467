/*
 * Copyright 2024 The Halyard Authors
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

// Package route defines the Route registration record and the Match result
// returned by router lookups
package route

import (
	"github.com/halyardhttp/halyard/pkg/handlers"
)

// Route is the registration-time record binding a (method, pattern) pair to
// a handler reference and static metadata. Routes are immutable after
// registration and live for the process lifetime.
type Route struct {
	// Method is the HTTP method the Route is registered under
	Method string
	// Pattern is the path pattern, e.g. /users/{id:int} or /assets/*path
	Pattern string
	// Handler is the opaque business-logic capability for the Route
	Handler handlers.Handler
	// Tags are static labels attached at registration (e.g. cache
	// invalidation tags)
	Tags []string
}

// Match is the result of a router lookup
type Match struct {
	// Route is the selected Route; nil when no handler was selected
	Route *Route
	// Params holds extracted path parameters; nil when the Route has none
	Params map[string]string
	// Allowed lists the methods registered for the path when the lookup
	// failed with ErrMethodNotAllowed
	Allowed []string
}

// SetParam records an extracted path parameter, allocating the Params map
// only when a matched route actually has parameters
func (m *Match) SetParam(name, value string) {
	if m.Params == nil {
		m.Params = make(map[string]string, 4)
	}
	m.Params[name] = value
}
