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
	"net/http"
	"time"

	"github.com/halyardhttp/halyard/pkg/methods"

	"gopkg.in/yaml.v3"
)

const (
	// DefaultTTLSecs is the default object lifetime of cached responses
	DefaultTTLSecs = 300
	// DefaultCacheName is the named cache used when none is configured
	DefaultCacheName = "default"
)

// Options configures the response cache middleware
type Options struct {
	// CacheName selects the configured cache backing this middleware
	CacheName string `yaml:"cache_name,omitempty"`
	// TTLSecs is the object lifetime of cached responses
	TTLSecs int `yaml:"ttl_secs,omitempty"`
	// Methods lists the HTTP methods eligible for caching
	Methods []string `yaml:"methods,omitempty"`
	// VaryHeaders lists request headers whose values partition the cache key
	VaryHeaders []string `yaml:"vary_headers,omitempty"`
}

// New returns a new response cache Options with default values
func New() *Options {
	return &Options{
		CacheName: DefaultCacheName,
		TTLSecs:   DefaultTTLSecs,
		Methods:   []string{http.MethodGet, http.MethodHead},
	}
}

// UnmarshalYAML decodes the Options over the default values, so omitted
// fields keep their defaults
func (o *Options) UnmarshalYAML(node *yaml.Node) error {
	type raw Options
	*o = *New()
	return node.Decode((*raw)(o))
}

// TTL returns the object lifetime as a Duration
func (o *Options) TTL() time.Duration {
	return time.Duration(o.TTLSecs) * time.Second
}

// Validate returns an error if the Options would not produce a usable cache
func (o *Options) Validate() error {
	if o.TTLSecs <= 0 {
		return fmt.Errorf("response cache: ttl_secs must be > 0")
	}
	if len(o.Methods) == 0 {
		return fmt.Errorf("response cache: at least one method is required")
	}
	for _, m := range o.Methods {
		if !methods.IsCacheable(m) {
			return fmt.Errorf("response cache: method not cacheable: %s", m)
		}
	}
	return nil
}

// Clone returns a copy of the subject Options
func (o *Options) Clone() *Options {
	out := *o
	out.Methods = append([]string(nil), o.Methods...)
	out.VaryHeaders = append([]string(nil), o.VaryHeaders...)
	return &out
}
