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

// Package errors provides the core error taxonomy for the request pipeline
package errors

import (
	"errors"
	"fmt"
)

// ErrRouteNotFound is returned when no route matches the request path
var ErrRouteNotFound = errors.New("no route matches the request path")

// ErrMethodNotAllowed is returned when the path matches under a different method
var ErrMethodNotAllowed = errors.New("method not allowed for the request path")

// ErrRouteConflict is returned when registering a duplicate (method, pattern) pair
var ErrRouteConflict = errors.New("route already registered for method and pattern")

// ErrInvalidPattern is returned when a route pattern cannot be parsed
var ErrInvalidPattern = errors.New("invalid route pattern")

// ErrInvalidMethod is returned when a route is registered with an unknown method
var ErrInvalidMethod = errors.New("invalid method")

// ErrNotRegistered is returned when resolving a dependency name with no provider
var ErrNotRegistered = errors.New("dependency not registered")

// ErrCircularDependency is returned when a provider's resolution chain revisits a name
var ErrCircularDependency = errors.New("circular dependency detected")

// ErrInvalidOptions is returned when a configuration is invalid
var ErrInvalidOptions = errors.New("invalid options")

// ErrServerAlreadyStarted is returned when a running server is started again
var ErrServerAlreadyStarted = errors.New("server already started")

// ErrProviderFailed wraps an error returned (or panicked) by a dependency provider
type ErrProviderFailed struct {
	Name string
	Err  error
}

func (e *ErrProviderFailed) Error() string {
	return fmt.Sprintf("provider for %q failed: %v", e.Name, e.Err)
}

func (e *ErrProviderFailed) Unwrap() error {
	return e.Err
}

// NewErrProviderFailed returns an ErrProviderFailed for the named provider
func NewErrProviderFailed(name string, err error) error {
	return &ErrProviderFailed{Name: name, Err: err}
}
