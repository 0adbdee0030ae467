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

// Package tracing records a span per request around the middleware chain
package tracing

import (
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/halyardhttp/halyard/pkg/middleware"
	"github.com/halyardhttp/halyard/pkg/request"
)

// Priority places the request span outside every other middleware
const Priority = 5

const spanKey = "tracing.span"

// Descriptor returns the chain descriptor opening a span in the pre phase
// and closing it with the response status in the post phase
func Descriptor(tracer trace.Tracer) *middleware.Descriptor {
	return &middleware.Descriptor{
		Name:     "tracing",
		Priority: Priority,
		Pre: func(ctx *request.Context) (*request.Response, error) {
			name := ctx.Method
			if ctx.RoutePattern != "" {
				name += " " + ctx.RoutePattern
			}
			_, span := tracer.Start(ctx.Context(), name,
				trace.WithSpanKind(trace.SpanKindServer),
				trace.WithAttributes(
					attribute.String("http.method", ctx.Method),
					attribute.String("http.target", ctx.Path),
				))
			ctx.SetValue(spanKey, span)
			return nil, nil
		},
		Post: func(ctx *request.Context, resp *request.Response) {
			v, ok := ctx.Value(spanKey)
			if !ok {
				return
			}
			span := v.(trace.Span)
			span.SetAttributes(attribute.Int("http.status_code", resp.StatusCode))
			span.End()
		},
	}
}
