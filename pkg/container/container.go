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

// Package container provides a named-provider dependency container with
// Singleton, Request and Transient lifetimes. Singleton instances are
// memoized once per process, Request instances once per request Context,
// and Transient instances are constructed on every resolution.
package container

import (
	goerrors "errors"
	"fmt"
	"sync"

	"github.com/halyardhttp/halyard/pkg/errors"
	"github.com/halyardhttp/halyard/pkg/request"
)

// Scope is the lifetime policy governing how long a resolved instance is reused
type Scope int

const (
	// ScopeSingleton instances live for the process lifetime
	ScopeSingleton Scope = iota
	// ScopeRequest instances live within one request Context
	ScopeRequest
	// ScopeTransient instances are recreated on every resolution
	ScopeTransient
)

func (s Scope) String() string {
	switch s {
	case ScopeSingleton:
		return "singleton"
	case ScopeRequest:
		return "request"
	case ScopeTransient:
		return "transient"
	}
	return "unknown"
}

// Provider constructs a dependency instance. Providers may resolve their own
// dependencies through the supplied Resolver; re-entering a name already on
// the resolution chain fails with ErrCircularDependency.
type Provider func(r *Resolver) (any, error)

type descriptor struct {
	name     string
	scope    Scope
	provider Provider

	once     sync.Once
	instance any
	err      error
}

// Container holds the registered dependency descriptors. Registration
// happens at startup; Resolve is safe for concurrent use once serving begins.
type Container struct {
	mtx         sync.RWMutex
	descriptors map[string]*descriptor
}

// New returns an empty Container
func New() *Container {
	return &Container{descriptors: make(map[string]*descriptor)}
}

// Register registers a provider under name with the provided scope,
// replacing any prior registration of the same name
func (c *Container) Register(name string, scope Scope, provider Provider) {
	c.mtx.Lock()
	c.descriptors[name] = &descriptor{name: name, scope: scope, provider: provider}
	c.mtx.Unlock()
}

// RegisterSingleton registers a process-lifetime provider under name
func (c *Container) RegisterSingleton(name string, provider Provider) {
	c.Register(name, ScopeSingleton, provider)
}

// RegisterRequest registers a request-lifetime provider under name
func (c *Container) RegisterRequest(name string, provider Provider) {
	c.Register(name, ScopeRequest, provider)
}

// RegisterTransient registers an always-reconstructed provider under name
func (c *Container) RegisterTransient(name string, provider Provider) {
	c.Register(name, ScopeTransient, provider)
}

// RegisterValue registers an already-constructed singleton value under name
func (c *Container) RegisterValue(name string, value any) {
	c.RegisterSingleton(name, func(*Resolver) (any, error) { return value, nil })
}

// Resolve returns the instance registered under name, constructing it
// according to its scope. ctx may be nil when no request is in flight, in
// which case Request-scoped providers resolve like Transient ones.
func (c *Container) Resolve(name string, ctx *request.Context) (any, error) {
	r := &Resolver{container: c, ctx: ctx}
	return r.Resolve(name)
}

// Resolver tracks one resolution chain. It is handed to providers so nested
// resolutions share the chain and cycles fail fast.
type Resolver struct {
	container *Container
	ctx       *request.Context
	chain     []string
}

// Context returns the request Context of the resolution, or nil
func (r *Resolver) Context() *request.Context {
	return r.ctx
}

// Resolve resolves name within the current chain
func (r *Resolver) Resolve(name string) (any, error) {
	r.container.mtx.RLock()
	d, ok := r.container.descriptors[name]
	r.container.mtx.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", errors.ErrNotRegistered, name)
	}
	for _, inFlight := range r.chain {
		if inFlight == name {
			return nil, fmt.Errorf("%w: %s",
				errors.ErrCircularDependency, chainString(r.chain, name))
		}
	}

	switch d.scope {
	case ScopeSingleton:
		d.once.Do(func() {
			d.instance, d.err = r.invoke(d)
		})
		return d.instance, d.err
	case ScopeRequest:
		if r.ctx != nil {
			if v, ok := r.ctx.CachedDependency(name); ok {
				return v, nil
			}
		}
		v, err := r.invoke(d)
		if err != nil {
			return nil, err
		}
		if r.ctx != nil {
			r.ctx.CacheDependency(name, v)
		}
		return v, nil
	default:
		return r.invoke(d)
	}
}

// invoke runs the provider with name pushed onto the chain, converting
// provider panics and errors into ErrProviderFailed
func (r *Resolver) invoke(d *descriptor) (v any, err error) {
	r.chain = append(r.chain, d.name)
	defer func() {
		r.chain = r.chain[:len(r.chain)-1]
		if rec := recover(); rec != nil {
			v = nil
			err = errors.NewErrProviderFailed(d.name,
				fmt.Errorf("provider panic: %v", rec))
		}
	}()
	v, err = d.provider(r)
	if err != nil {
		// cycle errors pass through unwrapped so callers can match them
		if isResolutionError(err) {
			return nil, err
		}
		return nil, errors.NewErrProviderFailed(d.name, err)
	}
	return v, nil
}

func isResolutionError(err error) bool {
	var pf *errors.ErrProviderFailed
	return goerrors.Is(err, errors.ErrCircularDependency) ||
		goerrors.Is(err, errors.ErrNotRegistered) ||
		goerrors.As(err, &pf)
}

func chainString(chain []string, name string) string {
	s := ""
	for _, c := range chain {
		s += c + " -> "
	}
	return s + name
}
