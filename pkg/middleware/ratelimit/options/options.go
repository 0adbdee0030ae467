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

package options

import (
	"fmt"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	// StrategyTokenBucket refills allowance continuously and permits bursts
	StrategyTokenBucket = "token_bucket"
	// StrategySlidingWindow counts requests over a rolling window
	StrategySlidingWindow = "sliding_window"

	// PolicyStep halves the effective limit per breached load signal
	PolicyStep = "step"
	// PolicyLinear scales the effective limit by the worst signal overage
	PolicyLinear = "linear"

	// DefaultMaxRequests is the default request allowance per window
	DefaultMaxRequests = 100
	// DefaultWindowSecs is the default window length in seconds
	DefaultWindowSecs = 60
)

// AdaptiveOptions configures load-based scaling of the limit
type AdaptiveOptions struct {
	// Enabled turns adaptive scaling on
	Enabled bool `yaml:"enabled,omitempty"`
	// MinRequests is the floor the effective limit never scales below
	MinRequests int `yaml:"min_requests,omitempty"`
	// Policy selects the scaling policy ("step" or "linear")
	Policy string `yaml:"policy,omitempty"`
	// CPUThresholdPct is the CPU utilization percentage considered overloaded
	CPUThresholdPct float64 `yaml:"cpu_threshold_pct,omitempty"`
	// MemoryThresholdPct is the memory utilization percentage considered overloaded
	MemoryThresholdPct float64 `yaml:"memory_threshold_pct,omitempty"`
	// LatencyThresholdMS is the p99 latency in milliseconds considered overloaded
	LatencyThresholdMS int `yaml:"latency_threshold_ms,omitempty"`
}

// Options configures a rate limiter
type Options struct {
	// Name identifies the limiter in logs and metrics
	Name string `yaml:"-"`
	// Strategy selects the limiting strategy
	Strategy string `yaml:"strategy,omitempty"`
	// MaxRequests is the request allowance per window
	MaxRequests int `yaml:"max_requests,omitempty"`
	// WindowSecs is the window length in seconds
	WindowSecs int `yaml:"window_secs,omitempty"`
	// Adaptive configures load-based scaling of the limit
	Adaptive *AdaptiveOptions `yaml:"adaptive,omitempty"`
}

// New returns a new rate limiter Options with default values
func New() *Options {
	return &Options{
		Strategy:    StrategyTokenBucket,
		MaxRequests: DefaultMaxRequests,
		WindowSecs:  DefaultWindowSecs,
		Adaptive: &AdaptiveOptions{
			Policy:             PolicyStep,
			CPUThresholdPct:    90,
			MemoryThresholdPct: 90,
			LatencyThresholdMS: 1000,
		},
	}
}

// UnmarshalYAML decodes the Options over the default values, so omitted
// fields keep their defaults
func (o *Options) UnmarshalYAML(node *yaml.Node) error {
	type raw Options
	*o = *New()
	return node.Decode((*raw)(o))
}

// Window returns the window length as a Duration
func (o *Options) Window() time.Duration {
	return time.Duration(o.WindowSecs) * time.Second
}

// Validate returns an error if the Options would not produce a usable limiter
func (o *Options) Validate() error {
	if o.MaxRequests <= 0 {
		return fmt.Errorf("rate limiter %s: max_requests must be > 0", o.Name)
	}
	if o.WindowSecs <= 0 {
		return fmt.Errorf("rate limiter %s: window_secs must be > 0", o.Name)
	}
	switch o.Strategy {
	case StrategyTokenBucket, StrategySlidingWindow:
	default:
		return fmt.Errorf("rate limiter %s: invalid strategy: %s", o.Name, o.Strategy)
	}
	if o.Adaptive != nil && o.Adaptive.Enabled {
		switch o.Adaptive.Policy {
		case PolicyStep, PolicyLinear:
		default:
			return fmt.Errorf("rate limiter %s: invalid adaptive policy: %s",
				o.Name, o.Adaptive.Policy)
		}
		if o.Adaptive.MinRequests < 1 || o.Adaptive.MinRequests > o.MaxRequests {
			return fmt.Errorf(
				"rate limiter %s: min_requests must be between 1 and max_requests",
				o.Name)
		}
	}
	return nil
}

// Clone returns a copy of the subject Options
func (o *Options) Clone() *Options {
	out := *o
	if o.Adaptive != nil {
		a := *o.Adaptive
		out.Adaptive = &a
	}
	return &out
}
