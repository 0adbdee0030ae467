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

// Package request provides the per-request Context passed through the
// middleware chain, and the Response type produced by it
package request

import (
	"context"
	"net/http"
	"net/url"
	"strings"
	"sync"

	"github.com/halyardhttp/halyard/pkg/headers"
)

// Context is the per-request execution context. It is created when a request
// is accepted, owned exclusively by that request's goroutine, and released
// when the response has been written. Values attached to it never outlive
// the request.
type Context struct {
	// Request is the inbound HTTP request as delivered by the transport;
	// its Body remains lazily readable
	Request *http.Request
	// Method is the request method
	Method string
	// Path is the unescaped request path
	Path string
	// Params holds the path parameters extracted by the router, or nil
	// when the matched route has none
	Params map[string]string
	// RoutePattern is the pattern of the matched route, for metrics labels
	RoutePattern string
	// RouteTags are the static tags of the matched route
	RouteTags []string

	ctx      context.Context
	cancel   context.CancelFunc
	query    url.Values
	hasQuery bool
	clientIP string
	values   map[string]any
	deps     map[string]any
}

var ctxPool = sync.Pool{New: func() any { return &Context{} }}

// New returns a Context for the provided request, applying the deadline of
// parent (if any) to the request's lifetime
func New(parent context.Context, r *http.Request) *Context {
	c := ctxPool.Get().(*Context)
	if parent == nil {
		parent = r.Context()
	}
	c.ctx, c.cancel = context.WithCancel(parent)
	c.Request = r
	c.Method = r.Method
	c.Path = r.URL.Path
	return c
}

// Release cancels and recycles the Context. The caller must not retain any
// reference to it afterward.
func (c *Context) Release() {
	if c.cancel != nil {
		c.cancel()
	}
	*c = Context{}
	ctxPool.Put(c)
}

// Context returns the context governing the request's deadline/cancellation
func (c *Context) Context() context.Context {
	if c.ctx == nil {
		return context.Background()
	}
	return c.ctx
}

// Param returns the named path parameter, or an empty string
func (c *Context) Param(name string) string {
	return c.Params[name]
}

// Query returns the first value of the named query parameter, parsing the
// query string on first use
func (c *Context) Query(name string) string {
	if !c.hasQuery {
		if c.Request != nil {
			c.query = c.Request.URL.Query()
		} else {
			c.query = url.Values{}
		}
		c.hasQuery = true
	}
	return c.query.Get(name)
}

// RawQuery returns the unparsed query string
func (c *Context) RawQuery() string {
	if c.Request == nil {
		return ""
	}
	return c.Request.URL.RawQuery
}

// Header returns the first value of the named request header
func (c *Context) Header(name string) string {
	if c.Request == nil {
		return ""
	}
	return c.Request.Header.Get(name)
}

// ClientIP returns the requesting client's address, preferring the first
// entry of X-Forwarded-For over the transport peer address
func (c *Context) ClientIP() string {
	if c.clientIP != "" {
		return c.clientIP
	}
	if c.Request != nil {
		if xff := c.Request.Header.Get(headers.NameXForwardedFor); xff != "" {
			if i := strings.Index(xff, ","); i > 0 {
				c.clientIP = strings.TrimSpace(xff[:i])
			} else {
				c.clientIP = strings.TrimSpace(xff)
			}
			return c.clientIP
		}
		addr := c.Request.RemoteAddr
		if i := strings.LastIndex(addr, ":"); i > 0 {
			addr = addr[:i]
		}
		c.clientIP = strings.Trim(addr, "[]")
	}
	return c.clientIP
}

// SetValue attaches a named value for cross-middleware communication
func (c *Context) SetValue(key string, value any) {
	if c.values == nil {
		c.values = make(map[string]any, 8)
	}
	c.values[key] = value
}

// Value returns the named value previously attached with SetValue
func (c *Context) Value(key string) (any, bool) {
	v, ok := c.values[key]
	return v, ok
}

// CachedDependency returns the request-scoped dependency instance cached
// under name, if one has been resolved during this request
func (c *Context) CachedDependency(name string) (any, bool) {
	v, ok := c.deps[name]
	return v, ok
}

// CacheDependency memoizes a request-scoped dependency instance under name
// for the remainder of this request
func (c *Context) CacheDependency(name string, value any) {
	if c.deps == nil {
		c.deps = make(map[string]any, 4)
	}
	c.deps[name] = value
}
