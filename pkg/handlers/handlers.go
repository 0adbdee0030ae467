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

// Package handlers defines the handler bridge through which business logic
// is invoked, and provides the synthetic terminal responses produced by the
// pipeline itself (404, 405, 429, 500, 503, 504)
package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/halyardhttp/halyard/pkg/headers"
	"github.com/halyardhttp/halyard/pkg/request"
)

// Handler is the opaque capability through which the pipeline invokes
// business logic. The pipeline makes no assumption about what runtime
// executes the callable or where it suspends.
type Handler interface {
	Invoke(ctx *request.Context) (*request.Response, error)
}

// HandlerFunc adapts an ordinary function to the Handler interface
type HandlerFunc func(ctx *request.Context) (*request.Response, error)

// Invoke calls f(ctx)
func (f HandlerFunc) Invoke(ctx *request.Context) (*request.Response, error) {
	return f(ctx)
}

type errorBody struct {
	Error      string `json:"error"`
	RetryAfter int    `json:"retry_after,omitempty"`
}

func jsonError(statusCode int, message string, retryAfter int) *request.Response {
	resp := request.NewResponse(statusCode)
	b, _ := json.Marshal(errorBody{Error: message, RetryAfter: retryAfter})
	resp.SetBody(b, headers.ValueApplicationJSON)
	return resp
}

// NotFound returns the synthetic 404 response
func NotFound() *request.Response {
	return jsonError(http.StatusNotFound, "not found", 0)
}

// MethodNotAllowed returns the synthetic 405 response carrying the Allow
// header for the provided methods
func MethodNotAllowed(allowed []string) *request.Response {
	resp := jsonError(http.StatusMethodNotAllowed, "method not allowed", 0)
	if len(allowed) > 0 {
		resp.Header.Set(headers.NameAllow, strings.Join(allowed, ", "))
	}
	return resp
}

// RateLimited returns the synthetic 429 response with Retry-After set to the
// provided duration, rounded up to whole seconds
func RateLimited(retryAfter time.Duration) *request.Response {
	secs := retryAfterSeconds(retryAfter)
	resp := jsonError(http.StatusTooManyRequests, "rate limit exceeded", secs)
	resp.Header.Set(headers.NameRetryAfter, strconv.Itoa(secs))
	return resp
}

// CircuitOpen returns the synthetic 503 response produced when a circuit
// breaker rejects a request without invoking the handler
func CircuitOpen(resource string, retryAfter time.Duration) *request.Response {
	secs := retryAfterSeconds(retryAfter)
	resp := jsonError(http.StatusServiceUnavailable,
		"circuit open for "+resource, secs)
	resp.Header.Set(headers.NameRetryAfter, strconv.Itoa(secs))
	return resp
}

// InternalServerError returns the synthetic 500 response. detail is included
// in the body only when debug is true; otherwise a generic message is sent.
func InternalServerError(detail string, debug bool) *request.Response {
	msg := "internal server error"
	if debug && detail != "" {
		msg = detail
	}
	return jsonError(http.StatusInternalServerError, msg, 0)
}

// GatewayTimeout returns the synthetic 504 response produced when the
// per-request deadline elapses before the chain completes
func GatewayTimeout() *request.Response {
	return jsonError(http.StatusGatewayTimeout, "request deadline exceeded", 0)
}

func retryAfterSeconds(d time.Duration) int {
	if d <= 0 {
		return 0
	}
	secs := int((d + time.Second - 1) / time.Second)
	if secs < 1 {
		secs = 1
	}
	return secs
}
