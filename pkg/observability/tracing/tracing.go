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

// Package tracing provides the OpenTelemetry tracer used by the request
// pipeline's tracing middleware
package tracing

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
)

// Options specifies the tracing configuration
type Options struct {
	// Enabled turns request tracing on
	Enabled bool `yaml:"enabled,omitempty"`
	// SampleRate is the ratio of requests traced, 0.0 to 1.0
	SampleRate float64 `yaml:"sample_rate,omitempty"`
	// ServiceName is reported as the service.name resource attribute
	ServiceName string `yaml:"service_name,omitempty"`
}

// NewOptions returns Options with default values
func NewOptions() *Options {
	return &Options{SampleRate: 1, ServiceName: "halyard"}
}

// FlushFunc flushes any spans buffered by the tracer's exporter
type FlushFunc func(context.Context) error

// New returns a Tracer for the provided options along with its flush
// function, registering its provider as the global otel provider
func New(o *Options) (trace.Tracer, FlushFunc, error) {
	if o == nil {
		o = NewOptions()
	}
	exp, err := stdouttrace.New(stdouttrace.WithPrettyPrint())
	if err != nil {
		return nil, nil, err
	}
	sampler := sdktrace.ParentBased(sdktrace.TraceIDRatioBased(o.SampleRate))
	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exp),
		sdktrace.WithSampler(sampler),
		sdktrace.WithResource(resource.NewSchemaless(
			attribute.String("service.name", o.ServiceName),
		)),
	)
	otel.SetTracerProvider(tp)
	return tp.Tracer("halyard"), tp.Shutdown, nil
}

// NoopTracer returns a Tracer that records nothing
func NoopTracer() trace.Tracer {
	return trace.NewNoopTracerProvider().Tracer("halyard")
}
