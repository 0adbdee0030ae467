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
	// DefaultFailureThreshold is the consecutive failure count that opens the circuit
	DefaultFailureThreshold = 5
	// DefaultResetTimeoutSecs is how long an open circuit waits before probing
	DefaultResetTimeoutSecs = 30
	// DefaultHalfOpenTarget is the consecutive success count that closes the circuit
	DefaultHalfOpenTarget = 3
)

// DefaultFailureStatusCodes are the response codes counted as failures;
// client errors are never failures
func DefaultFailureStatusCodes() []int {
	return []int{500, 502, 503, 504}
}

// Options configures a circuit breaker
type Options struct {
	// Name identifies the breaker in logs and metrics
	Name string `yaml:"-"`
	// FailureThreshold is the consecutive failure count that opens the circuit
	FailureThreshold int `yaml:"failure_threshold,omitempty"`
	// ResetTimeoutSecs is how long an open circuit rejects before allowing a probe
	ResetTimeoutSecs int `yaml:"reset_timeout_secs,omitempty"`
	// HalfOpenTarget is the consecutive success count that closes a half-open circuit
	HalfOpenTarget int `yaml:"half_open_target,omitempty"`
	// FailureStatusCodes are the response status codes counted as failures
	FailureStatusCodes []int `yaml:"failure_status_codes,omitempty"`
}

// New returns a new breaker Options with default values
func New() *Options {
	return &Options{
		FailureThreshold:   DefaultFailureThreshold,
		ResetTimeoutSecs:   DefaultResetTimeoutSecs,
		HalfOpenTarget:     DefaultHalfOpenTarget,
		FailureStatusCodes: DefaultFailureStatusCodes(),
	}
}

// UnmarshalYAML decodes the Options over the default values, so omitted
// fields keep their defaults
func (o *Options) UnmarshalYAML(node *yaml.Node) error {
	type raw Options
	*o = *New()
	return node.Decode((*raw)(o))
}

// ResetTimeout returns the reset timeout as a Duration
func (o *Options) ResetTimeout() time.Duration {
	return time.Duration(o.ResetTimeoutSecs) * time.Second
}

// Validate returns an error if the Options would not produce a usable breaker
func (o *Options) Validate() error {
	if o.FailureThreshold <= 0 {
		return fmt.Errorf("breaker %s: failure_threshold must be > 0", o.Name)
	}
	if o.ResetTimeoutSecs <= 0 {
		return fmt.Errorf("breaker %s: reset_timeout_secs must be > 0", o.Name)
	}
	if o.HalfOpenTarget <= 0 {
		return fmt.Errorf("breaker %s: half_open_target must be > 0", o.Name)
	}
	for _, c := range o.FailureStatusCodes {
		if c < 500 || c > 599 {
			return fmt.Errorf("breaker %s: failure status code out of range: %d",
				o.Name, c)
		}
	}
	return nil
}

// Clone returns a copy of the subject Options
func (o *Options) Clone() *Options {
	out := *o
	out.FailureStatusCodes = append([]int(nil), o.FailureStatusCodes...)
	return &out
}
