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

// Package middleware provides the priority-ordered middleware chain that
// wraps every routed handler invocation
package middleware

import (
	"context"
	"fmt"
	"sort"

	"github.com/halyardhttp/halyard/pkg/handlers"
	"github.com/halyardhttp/halyard/pkg/observability/logging"
	"github.com/halyardhttp/halyard/pkg/observability/logging/logger"
	"github.com/halyardhttp/halyard/pkg/observability/metrics"
	"github.com/halyardhttp/halyard/pkg/request"
)

// PreFunc runs before the handler; a non-nil Response is terminal and
// short-circuits the remainder of the pre phase and the handler
type PreFunc func(ctx *request.Context) (*request.Response, error)

// PostFunc runs after the handler in reverse priority order and may mutate
// the response headers and status, but never re-invokes the handler
type PostFunc func(ctx *request.Context, resp *request.Response)

// Descriptor describes one member of a Chain
type Descriptor struct {
	// Name identifies the middleware in logs and metrics
	Name string
	// Priority orders the chain; lower runs earlier in pre and later in post
	Priority int
	// Pre is the request-phase hook; nil means no pre phase
	Pre PreFunc
	// Post is the response-phase hook; nil means no post phase
	Post PostFunc
}

// Chain is an immutable, priority-sorted middleware pipeline
type Chain struct {
	descriptors []*Descriptor
	debug       bool
}

// NewChain returns a Chain of the provided descriptors sorted by Priority.
// Descriptors with equal Priority retain their registration order.
func NewChain(descriptors ...*Descriptor) *Chain {
	c := &Chain{descriptors: make([]*Descriptor, len(descriptors))}
	copy(c.descriptors, descriptors)
	sort.SliceStable(c.descriptors, func(i, j int) bool {
		return c.descriptors[i].Priority < c.descriptors[j].Priority
	})
	return c
}

// SetDebug includes failure detail in 500 response bodies when enabled
func (c *Chain) SetDebug(debug bool) {
	c.debug = debug
}

// Descriptors returns the chain members in execution order
func (c *Chain) Descriptors() []*Descriptor {
	return c.descriptors
}

// Execute runs the chain around the provided handler and always returns a
// writable Response. A terminal pre response skips the handler and all
// later pres; the post phase then runs in reverse starting from the
// short-circuiting descriptor. Panics in any phase are recovered here so
// one request cannot take down its serving goroutine.
func (c *Chain) Execute(ctx *request.Context, h handlers.Handler) *request.Response {
	var resp *request.Response
	last := len(c.descriptors) - 1

	for i, d := range c.descriptors {
		if d.Pre == nil {
			continue
		}
		r, err := c.runPre(ctx, d)
		if err != nil {
			resp = handlers.InternalServerError(err.Error(), c.debug)
			last = i
			break
		}
		if r != nil {
			resp = r
			last = i
			break
		}
		if deadlineExceeded(ctx) {
			resp = handlers.GatewayTimeout()
			last = i
			break
		}
	}

	if resp == nil {
		resp = c.runHandler(ctx, h)
	}

	for i := last; i >= 0; i-- {
		d := c.descriptors[i]
		if d.Post == nil {
			continue
		}
		c.runPost(ctx, d, resp)
	}
	return resp
}

func (c *Chain) runPre(ctx *request.Context, d *Descriptor) (resp *request.Response, err error) {
	defer func() {
		if r := recover(); r != nil {
			c.observePanic(ctx, d.Name, r)
			resp, err = nil, fmt.Errorf("panic in middleware %s", d.Name)
		}
	}()
	return d.Pre(ctx)
}

func (c *Chain) runHandler(ctx *request.Context, h handlers.Handler) (resp *request.Response) {
	defer func() {
		if r := recover(); r != nil {
			c.observePanic(ctx, "handler", r)
			resp = handlers.InternalServerError("panic in handler", c.debug)
		}
	}()
	if deadlineExceeded(ctx) {
		return handlers.GatewayTimeout()
	}
	r, err := h.Invoke(ctx)
	if deadlineExceeded(ctx) {
		return handlers.GatewayTimeout()
	}
	if err != nil {
		logger.Error("handler failed", logging.Pairs{
			"method": ctx.Method, "path": ctx.Path, "detail": err})
		return handlers.InternalServerError(err.Error(), c.debug)
	}
	if r == nil {
		return handlers.InternalServerError("handler returned no response", c.debug)
	}
	return r
}

func (c *Chain) runPost(ctx *request.Context, d *Descriptor, resp *request.Response) {
	defer func() {
		if r := recover(); r != nil {
			c.observePanic(ctx, d.Name, r)
		}
	}()
	d.Post(ctx, resp)
}

func (c *Chain) observePanic(ctx *request.Context, name string, r any) {
	metrics.PipelinePanics.WithLabelValues(name).Inc()
	logger.Error("recovered panic in request pipeline", logging.Pairs{
		"middleware": name, "method": ctx.Method, "path": ctx.Path,
		"detail": fmt.Sprintf("%v", r)})
}

func deadlineExceeded(ctx *request.Context) bool {
	return ctx.Context().Err() == context.DeadlineExceeded
}
