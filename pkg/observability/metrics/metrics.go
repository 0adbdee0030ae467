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

// Package metrics implements prometheus metrics for the request pipeline
// and exposes the metrics HTTP listener
package metrics

import (
	"fmt"
	"net/http"

	"github.com/halyardhttp/halyard/pkg/observability/logging"
	"github.com/halyardhttp/halyard/pkg/observability/logging/logger"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	metricNamespace    = "halyard"
	frontendSubsystem  = "frontend"
	ratelimitSubsystem = "ratelimit"
	breakerSubsystem   = "breaker"
	cacheSubsystem     = "cache"
	pipelineSubsystem  = "pipeline"
)

var defaultBuckets = []float64{0.005, 0.025, 0.1, 0.5, 1, 5, 10}

// BuildInfo carries the process build metadata as constant labels
var BuildInfo *prometheus.GaugeVec

// FrontendRequestStatus is a Counter of processed requests by status
var FrontendRequestStatus *prometheus.CounterVec

// FrontendRequestDuration is a Histogram of request processing time
var FrontendRequestDuration *prometheus.HistogramVec

// FrontendActiveConnections is a Gauge of currently-open connections
var FrontendActiveConnections prometheus.Gauge

// FrontendConnectionsLimited is a Counter of connections rejected at the listener
var FrontendConnectionsLimited prometheus.Counter

// PipelinePanics is a Counter of panics recovered at the chain boundary
var PipelinePanics *prometheus.CounterVec

// RateLimiterDecisions is a Counter of rate limiter outcomes by strategy
var RateLimiterDecisions *prometheus.CounterVec

// BreakerState is a Gauge of circuit state per resource (0 closed, 1 open, 2 half-open)
var BreakerState *prometheus.GaugeVec

// BreakerTransitions is a Counter of circuit state transitions per resource
var BreakerTransitions *prometheus.CounterVec

// CacheObjectOperations is a Counter of cache operations by result
var CacheObjectOperations *prometheus.CounterVec

// CacheObjects is a Gauge of the number of objects in a cache
var CacheObjects *prometheus.GaugeVec

// CacheBytes is a Gauge of the number of bytes in a cache
var CacheBytes *prometheus.GaugeVec

// CacheEvents is a Counter of maintenance events (expirations, evictions,
// tag invalidations) per cache
var CacheEvents *prometheus.CounterVec

func init() {
	BuildInfo = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: metricNamespace,
			Name:      "build_info",
			Help:      "Describes the build information of the running process",
		},
		[]string{"goversion", "revision", "version"},
	)
	FrontendRequestStatus = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: metricNamespace,
			Subsystem: frontendSubsystem,
			Name:      "requests_total",
			Help:      "Count of front end requests handled by the pipeline",
		},
		[]string{"method", "pattern", "http_status"},
	)
	FrontendRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: metricNamespace,
			Subsystem: frontendSubsystem,
			Name:      "requests_duration_seconds",
			Help:      "Histogram of front end request processing time",
			Buckets:   defaultBuckets,
		},
		[]string{"method", "pattern"},
	)
	FrontendActiveConnections = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: metricNamespace,
			Subsystem: frontendSubsystem,
			Name:      "active_connections",
			Help:      "Number of currently-open front end connections",
		},
	)
	FrontendConnectionsLimited = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: metricNamespace,
			Subsystem: frontendSubsystem,
			Name:      "connections_limited_total",
			Help:      "Count of connections rejected by the connection limit",
		},
	)
	PipelinePanics = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: metricNamespace,
			Subsystem: pipelineSubsystem,
			Name:      "panics_total",
			Help:      "Count of panics recovered at the middleware chain boundary",
		},
		[]string{"middleware"},
	)
	RateLimiterDecisions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: metricNamespace,
			Subsystem: ratelimitSubsystem,
			Name:      "decisions_total",
			Help:      "Count of rate limiter decisions by strategy and outcome",
		},
		[]string{"strategy", "outcome"},
	)
	BreakerState = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: metricNamespace,
			Subsystem: breakerSubsystem,
			Name:      "state",
			Help:      "Current circuit state per resource (0=closed 1=open 2=half-open)",
		},
		[]string{"resource"},
	)
	BreakerTransitions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: metricNamespace,
			Subsystem: breakerSubsystem,
			Name:      "transitions_total",
			Help:      "Count of circuit state transitions per resource",
		},
		[]string{"resource", "to"},
	)
	CacheObjectOperations = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: metricNamespace,
			Subsystem: cacheSubsystem,
			Name:      "operation_objects_total",
			Help:      "Count of objects on which cache operations were performed",
		},
		[]string{"cache", "provider", "operation", "status"},
	)
	CacheObjects = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: metricNamespace,
			Subsystem: cacheSubsystem,
			Name:      "objects",
			Help:      "Number of objects in the cache",
		},
		[]string{"cache", "provider"},
	)
	CacheBytes = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: metricNamespace,
			Subsystem: cacheSubsystem,
			Name:      "bytes",
			Help:      "Number of bytes in the cache",
		},
		[]string{"cache", "provider"},
	)
	CacheEvents = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: metricNamespace,
			Subsystem: cacheSubsystem,
			Name:      "events_total",
			Help:      "Count of cache maintenance events",
		},
		[]string{"cache", "provider", "event"},
	)

	prometheus.MustRegister(
		BuildInfo,
		FrontendRequestStatus,
		FrontendRequestDuration,
		FrontendActiveConnections,
		FrontendConnectionsLimited,
		PipelinePanics,
		RateLimiterDecisions,
		BreakerState,
		BreakerTransitions,
		CacheObjectOperations,
		CacheObjects,
		CacheBytes,
		CacheEvents,
	)
}

// Handler returns the HTTP handler serving the prometheus exposition format
func Handler() http.Handler {
	return promhttp.Handler()
}

// ListenAndServe serves /metrics on the provided address in a goroutine
func ListenAndServe(listenAddress string, listenPort int) {
	addr := fmt.Sprintf("%s:%d", listenAddress, listenPort)
	logger.Info("metrics http endpoint starting",
		logging.Pairs{"address": listenAddress, "port": listenPort})
	go func() {
		mux := http.NewServeMux()
		mux.Handle("/metrics", Handler())
		if err := http.ListenAndServe(addr, mux); err != nil {
			logger.Error("unable to start metrics http server",
				logging.Pairs{"detail": err})
		}
	}()
}
