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

// Package router defines the Router interface for registering routes and
// matching concrete request paths against them
package router

import (
	"github.com/halyardhttp/halyard/pkg/handlers"
	"github.com/halyardhttp/halyard/pkg/router/route"
)

// Router is the interface for the route table. Routes are registered during
// startup; once serving begins the table is read-only and Match is safe for
// concurrent use without locks.
type Router interface {
	// AddRoute registers a handler for the provided method and path pattern.
	// It returns ErrRouteConflict if an identical (method, pattern) pair has
	// already been registered.
	AddRoute(method, pattern string, handler handlers.Handler, tags ...string) error
	// Match finds the route for the provided method and concrete path. When
	// the path matches under different methods only, it returns
	// ErrMethodNotAllowed and a Match listing the allowed methods.
	Match(method, path string) (*route.Match, error)
	// Routes returns all registered routes
	Routes() []*route.Route
}
