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

// Package breaker provides a per-resource circuit breaker that sheds load
// from failing routes without blocking the request path
package breaker

import (
	"hash/fnv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/halyardhttp/halyard/pkg/handlers"
	"github.com/halyardhttp/halyard/pkg/middleware"
	"github.com/halyardhttp/halyard/pkg/middleware/breaker/options"
	"github.com/halyardhttp/halyard/pkg/observability/logging"
	"github.com/halyardhttp/halyard/pkg/observability/logging/logger"
	"github.com/halyardhttp/halyard/pkg/observability/metrics"
	"github.com/halyardhttp/halyard/pkg/request"
)

// State is the condition of one resource's circuit
type State int32

const (
	// StateClosed admits all requests
	StateClosed = State(iota)
	// StateOpen rejects all requests until the reset timeout elapses
	StateOpen
	// StateHalfOpen admits requests while probing for recovery
	StateHalfOpen
)

var stateNames = []string{"closed", "open", "half-open"}

func (s State) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return "unknown"
	}
	return stateNames[s]
}

const shardCount = 64

// resource holds one circuit's state; all fields are accessed atomically so
// recording an outcome never blocks the request path
type resource struct {
	state     int32
	failures  int32
	successes int32
	openedAt  int64 // unix nanos
}

type shard struct {
	mtx       sync.RWMutex
	resources map[string]*resource
}

// Breaker tracks a circuit per resource key
type Breaker struct {
	opts         *options.Options
	failureCodes map[int]struct{}
	shards       [shardCount]*shard
	now          func() time.Time
}

// New returns a Breaker for the provided options
func New(o *options.Options) (*Breaker, error) {
	if o == nil {
		o = options.New()
	}
	if err := o.Validate(); err != nil {
		return nil, err
	}
	b := &Breaker{opts: o, now: time.Now,
		failureCodes: make(map[int]struct{}, len(o.FailureStatusCodes))}
	for _, c := range o.FailureStatusCodes {
		b.failureCodes[c] = struct{}{}
	}
	for i := range b.shards {
		b.shards[i] = &shard{resources: make(map[string]*resource)}
	}
	return b, nil
}

func (b *Breaker) resource(key string) *resource {
	h := fnv.New32a()
	h.Write([]byte(key))
	s := b.shards[h.Sum32()%shardCount]

	s.mtx.RLock()
	r, ok := s.resources[key]
	s.mtx.RUnlock()
	if ok {
		return r
	}
	s.mtx.Lock()
	if r, ok = s.resources[key]; !ok {
		r = &resource{}
		s.resources[key] = r
	}
	s.mtx.Unlock()
	return r
}

// State returns the current circuit state for the resource key
func (b *Breaker) State(key string) State {
	return State(atomic.LoadInt32(&b.resource(key).state))
}

// Allow reports whether a request against the resource may proceed. On an
// open circuit whose reset timeout has elapsed, exactly one caller wins the
// transition to half-open; all callers then proceed as probes.
func (b *Breaker) Allow(key string) (bool, time.Duration) {
	r := b.resource(key)
	if State(atomic.LoadInt32(&r.state)) != StateOpen {
		return true, 0
	}
	elapsed := b.now().Sub(time.Unix(0, atomic.LoadInt64(&r.openedAt)))
	remaining := b.opts.ResetTimeout() - elapsed
	if remaining > 0 {
		return false, remaining
	}
	if atomic.CompareAndSwapInt32(&r.state, int32(StateOpen), int32(StateHalfOpen)) {
		atomic.StoreInt32(&r.successes, 0)
		b.observeTransition(key, StateHalfOpen)
	}
	return true, 0
}

// Record classifies the response status and advances the state machine.
// Outcomes landing after the circuit re-opened are discarded.
func (b *Breaker) Record(key string, statusCode int) {
	r := b.resource(key)
	_, failure := b.failureCodes[statusCode]

	switch State(atomic.LoadInt32(&r.state)) {
	case StateClosed:
		if !failure {
			atomic.StoreInt32(&r.failures, 0)
			return
		}
		if atomic.AddInt32(&r.failures, 1) < int32(b.opts.FailureThreshold) {
			return
		}
		atomic.StoreInt64(&r.openedAt, b.now().UnixNano())
		if atomic.CompareAndSwapInt32(&r.state, int32(StateClosed), int32(StateOpen)) {
			atomic.StoreInt32(&r.failures, 0)
			b.observeTransition(key, StateOpen)
		}
	case StateHalfOpen:
		if failure {
			atomic.StoreInt64(&r.openedAt, b.now().UnixNano())
			if atomic.CompareAndSwapInt32(&r.state,
				int32(StateHalfOpen), int32(StateOpen)) {
				b.observeTransition(key, StateOpen)
			}
			return
		}
		if atomic.AddInt32(&r.successes, 1) < int32(b.opts.HalfOpenTarget) {
			return
		}
		if atomic.CompareAndSwapInt32(&r.state,
			int32(StateHalfOpen), int32(StateClosed)) {
			atomic.StoreInt32(&r.failures, 0)
			b.observeTransition(key, StateClosed)
		}
	}
}

func (b *Breaker) observeTransition(key string, to State) {
	metrics.BreakerState.WithLabelValues(key).Set(float64(to))
	metrics.BreakerTransitions.WithLabelValues(key, to.String()).Inc()
	logger.Info("circuit state changed",
		logging.Pairs{"resource": key, "state": to.String()})
}

const admittedKey = "breaker.admitted"

// Priority places the breaker after the rate limiter and before the cache
const Priority = 20

// Descriptor returns the chain descriptor for the Breaker, keyed by route
// pattern. Open circuits answer 503 with Retry-After; outcomes are recorded
// in the post phase from the response status.
func (b *Breaker) Descriptor() *middleware.Descriptor {
	return &middleware.Descriptor{
		Name:     "breaker",
		Priority: Priority,
		Pre: func(ctx *request.Context) (*request.Response, error) {
			key := resourceKey(ctx)
			allowed, retryAfter := b.Allow(key)
			if !allowed {
				return handlers.CircuitOpen(key, retryAfter), nil
			}
			ctx.SetValue(admittedKey, true)
			return nil, nil
		},
		Post: func(ctx *request.Context, resp *request.Response) {
			// only outcomes of admitted requests count; the breaker's own
			// rejections must not feed back into the state machine
			if _, ok := ctx.Value(admittedKey); ok {
				b.Record(resourceKey(ctx), resp.StatusCode)
			}
		},
	}
}

func resourceKey(ctx *request.Context) string {
	if ctx.RoutePattern != "" {
		return ctx.RoutePattern
	}
	return ctx.Path
}
