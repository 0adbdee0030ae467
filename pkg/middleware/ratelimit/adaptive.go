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

package ratelimit

import (
	"math"
	"sync"
	"time"

	"github.com/halyardhttp/halyard/pkg/middleware/ratelimit/options"
)

// LoadSignals carries externally-sampled load observations; the limiter
// never samples the system itself
type LoadSignals struct {
	// CPUPct is the current CPU utilization percentage
	CPUPct float64
	// MemoryPct is the current memory utilization percentage
	MemoryPct float64
	// P99Latency is the current p99 request latency
	P99Latency time.Duration
}

// adaptive wraps a base strategy and scales the effective limit down toward
// MinRequests while any load signal breaches its threshold.
//
// Scaling policies:
//   - step: each breached signal halves the effective limit
//   - linear: the limit is scaled by 1 minus the worst fractional overage
func adapt(base Strategy, o *options.Options) *adaptive {
	return &adaptive{base: base, opts: o.Adaptive, maxRequests: o.MaxRequests}
}

var _ Strategy = &adaptive{}

type adaptive struct {
	base        Strategy
	opts        *options.AdaptiveOptions
	maxRequests int

	mtx     sync.RWMutex
	signals LoadSignals
}

func (a *adaptive) Name() string {
	return a.base.Name()
}

// SetLoadSignals replaces the current load observations
func (a *adaptive) SetLoadSignals(s LoadSignals) {
	a.mtx.Lock()
	a.signals = s
	a.mtx.Unlock()
}

func (a *adaptive) Check(key string, cost, limit int) Decision {
	return a.base.Check(key, cost, a.effectiveLimit(limit))
}

func (a *adaptive) effectiveLimit(limit int) int {
	a.mtx.RLock()
	s := a.signals
	a.mtx.RUnlock()

	o := a.opts
	latencyMS := float64(s.P99Latency / time.Millisecond)

	var breached int
	var worstOverage float64
	check := func(value, threshold float64) {
		if threshold <= 0 || value <= threshold {
			return
		}
		breached++
		if over := (value - threshold) / threshold; over > worstOverage {
			worstOverage = over
		}
	}
	check(s.CPUPct, o.CPUThresholdPct)
	check(s.MemoryPct, o.MemoryThresholdPct)
	check(latencyMS, float64(o.LatencyThresholdMS))

	if breached == 0 {
		return limit
	}

	var scaled float64
	switch o.Policy {
	case options.PolicyLinear:
		scaled = float64(limit) * math.Max(0, 1-worstOverage)
	default: // step
		scaled = float64(limit) * math.Pow(0.5, float64(breached))
	}

	effective := int(scaled)
	if effective < o.MinRequests {
		effective = o.MinRequests
	}
	return effective
}
