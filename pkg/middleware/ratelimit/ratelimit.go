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

// Package ratelimit provides keyed request rate limiting with token bucket
// and sliding window strategies and optional load-adaptive scaling
package ratelimit

import (
	"strconv"
	"time"

	"github.com/halyardhttp/halyard/pkg/handlers"
	"github.com/halyardhttp/halyard/pkg/headers"
	"github.com/halyardhttp/halyard/pkg/middleware"
	"github.com/halyardhttp/halyard/pkg/middleware/ratelimit/options"
	"github.com/halyardhttp/halyard/pkg/observability/metrics"
	"github.com/halyardhttp/halyard/pkg/request"
)

// Decision is the outcome of a limiter check. A denial is a valid terminal
// outcome, not an error.
type Decision struct {
	// Allowed indicates whether the request may proceed
	Allowed bool
	// Limit is the effective limit applied to the check
	Limit int
	// Remaining is the allowance left in the current window when allowed
	Remaining int
	// ResetAt is when the allowance fully replenishes
	ResetAt time.Time
	// RetryAfter is how long the client should wait when denied
	RetryAfter time.Duration
}

// Strategy is a keyed limiting algorithm; limit is passed per check so an
// adaptive wrapper can scale it between calls
type Strategy interface {
	Name() string
	Check(key string, cost, limit int) Decision
}

// RateLimiter applies a limiting strategy to request keys
type RateLimiter struct {
	opts     *options.Options
	strategy Strategy
	adaptive *adaptive
}

// New returns a RateLimiter for the provided options
func New(o *options.Options) (*RateLimiter, error) {
	if o == nil {
		o = options.New()
	}
	if err := o.Validate(); err != nil {
		return nil, err
	}
	rl := &RateLimiter{opts: o}
	switch o.Strategy {
	case options.StrategySlidingWindow:
		rl.strategy = newSlidingWindow(o)
	default:
		rl.strategy = newTokenBucket(o)
	}
	if o.Adaptive != nil && o.Adaptive.Enabled {
		rl.adaptive = adapt(rl.strategy, o)
		rl.strategy = rl.adaptive
	}
	return rl, nil
}

// Check runs the limiting strategy for the provided key and cost
func (rl *RateLimiter) Check(key string, cost int) Decision {
	d := rl.strategy.Check(key, cost, rl.opts.MaxRequests)
	outcome := "allowed"
	if !d.Allowed {
		outcome = "denied"
	}
	metrics.RateLimiterDecisions.WithLabelValues(rl.strategy.Name(), outcome).Inc()
	return d
}

// SetLoadSignals feeds load observations to the adaptive wrapper; it is a
// no-op when adaptive scaling is not enabled
func (rl *RateLimiter) SetLoadSignals(s LoadSignals) {
	if rl.adaptive != nil {
		rl.adaptive.SetLoadSignals(s)
	}
}

const decisionKey = "ratelimit.decision"

// Priority places the limiter ahead of the breaker and cache in the chain
const Priority = 10

// Descriptor returns the chain descriptor for the RateLimiter, keyed by
// client IP. Denials answer 429 with Retry-After; allowed requests carry
// X-RateLimit headers on the response.
func (rl *RateLimiter) Descriptor() *middleware.Descriptor {
	return &middleware.Descriptor{
		Name:     "ratelimit",
		Priority: Priority,
		Pre: func(ctx *request.Context) (*request.Response, error) {
			d := rl.Check(ctx.ClientIP(), 1)
			if !d.Allowed {
				resp := handlers.RateLimited(d.RetryAfter)
				setRateLimitHeaders(resp, d)
				return resp, nil
			}
			ctx.SetValue(decisionKey, d)
			return nil, nil
		},
		Post: func(ctx *request.Context, resp *request.Response) {
			if v, ok := ctx.Value(decisionKey); ok {
				setRateLimitHeaders(resp, v.(Decision))
			}
		},
	}
}

func setRateLimitHeaders(resp *request.Response, d Decision) {
	resp.Header.Set(headers.NameXRateLimitLimit, strconv.Itoa(d.Limit))
	resp.Header.Set(headers.NameXRateLimitRemaining, strconv.Itoa(d.Remaining))
	resp.Header.Set(headers.NameXRateLimitReset,
		strconv.FormatInt(d.ResetAt.Unix(), 10))
}
