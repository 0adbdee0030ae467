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

// Package config provides Halyard configuration abilities, including
// parsing configuration files, command line parameters and environment
// variables, as well as default values and validation
package config

import (
	"os"
	"time"

	cache "github.com/halyardhttp/halyard/pkg/cache/options"
	breaker "github.com/halyardhttp/halyard/pkg/middleware/breaker/options"
	httpcache "github.com/halyardhttp/halyard/pkg/middleware/httpcache/options"
	ratelimit "github.com/halyardhttp/halyard/pkg/middleware/ratelimit/options"
	"github.com/halyardhttp/halyard/pkg/observability/logging"
	"github.com/halyardhttp/halyard/pkg/observability/tracing"

	"gopkg.in/yaml.v3"
)

const (
	// DefaultListenPort is the default port of the main http listener
	DefaultListenPort = 8480
	// DefaultMetricsListenPort is the default port of the metrics listener
	DefaultMetricsListenPort = 8481
	// DefaultListenerCount is the default number of SO_REUSEPORT listeners
	DefaultListenerCount = 1
	// DefaultWorkerPoolSize is the default size of the blocking-handler pool
	DefaultWorkerPoolSize = 256
	// DefaultRequestTimeoutMS is the default per-request deadline
	DefaultRequestTimeoutMS = 30000
)

// Config is the main configuration object
type Config struct {
	// Main is the primary MainConfig section
	Main *MainConfig `yaml:"main,omitempty"`
	// Frontend provides configurations for the server front end
	Frontend *FrontendConfig `yaml:"frontend,omitempty"`
	// Logging provides configurations that affect logging behavior
	Logging *logging.Options `yaml:"logging,omitempty"`
	// Metrics provides configurations for the metrics listener
	Metrics *MetricsConfig `yaml:"metrics,omitempty"`
	// Tracing provides the request tracing configuration
	Tracing *tracing.Options `yaml:"tracing,omitempty"`
	// Caches is a map of cache configurations keyed by cache name
	Caches cache.Lookup `yaml:"caches,omitempty"`
	// RateLimiter configures the request rate limiter; nil disables it
	RateLimiter *ratelimit.Options `yaml:"rate_limiter,omitempty"`
	// Breaker configures the per-route circuit breaker; nil disables it
	Breaker *breaker.Options `yaml:"breaker,omitempty"`
	// ResponseCache configures the response cache; nil disables it
	ResponseCache *httpcache.Options `yaml:"response_cache,omitempty"`
}

// MainConfig is a collection of general configuration values
type MainConfig struct {
	// InstanceID identifies this instance when multiple run on one host
	InstanceID int `yaml:"instance_id,omitempty"`
	// ServerName is reported in logs and defaults to os.Hostname
	ServerName string `yaml:"server_name,omitempty"`
	// PingHandlerPath is the path of the liveness handler
	PingHandlerPath string `yaml:"ping_handler_path,omitempty"`
	// ConfigHandlerPath is the path of the running-config handler
	ConfigHandlerPath string `yaml:"config_handler_path,omitempty"`
	// Debug includes failure detail in 500 response bodies when true
	Debug bool `yaml:"debug,omitempty"`
}

// FrontendConfig is a collection of configurations for the server front end
type FrontendConfig struct {
	// ListenAddress is the IP address of the main http listener
	ListenAddress string `yaml:"listen_address,omitempty"`
	// ListenPort is the TCP port of the main http listener
	ListenPort int `yaml:"listen_port,omitempty"`
	// ListenerCount is the number of listeners sharing the port via SO_REUSEPORT
	ListenerCount int `yaml:"listener_count,omitempty"`
	// ConnectionsLimit caps concurrent front end connections; 0 means unlimited
	ConnectionsLimit int `yaml:"connections_limit,omitempty"`
	// WorkerPoolSize bounds the pool that runs blocking handlers
	WorkerPoolSize int `yaml:"worker_pool_size,omitempty"`
	// RequestTimeoutMS is the per-request deadline in milliseconds
	RequestTimeoutMS int `yaml:"request_timeout_ms,omitempty"`
	// ReadHeaderTimeoutMS bounds how long reading request headers may take
	ReadHeaderTimeoutMS int `yaml:"read_header_timeout_ms,omitempty"`
	// IdleTimeoutMS is how long keep-alive connections may sit idle
	IdleTimeoutMS int `yaml:"idle_timeout_ms,omitempty"`
	// H2C serves plaintext HTTP/2 on the main listener when true
	H2C bool `yaml:"h2c,omitempty"`
}

// RequestTimeout returns the per-request deadline as a Duration
func (fc *FrontendConfig) RequestTimeout() time.Duration {
	return time.Duration(fc.RequestTimeoutMS) * time.Millisecond
}

// MetricsConfig is a collection of configurations for the metrics listener
type MetricsConfig struct {
	// ListenAddress is the IP address of the metrics listener
	ListenAddress string `yaml:"listen_address,omitempty"`
	// ListenPort is the TCP port of the metrics listener; 0 disables it
	ListenPort int `yaml:"listen_port,omitempty"`
}

// New returns a Config with default values
func New() *Config {
	hostname, _ := os.Hostname()
	return &Config{
		Main: &MainConfig{
			ServerName:      hostname,
			PingHandlerPath: "/halyard/ping",
		},
		Frontend: &FrontendConfig{
			ListenPort:          DefaultListenPort,
			ListenerCount:       DefaultListenerCount,
			WorkerPoolSize:      DefaultWorkerPoolSize,
			RequestTimeoutMS:    DefaultRequestTimeoutMS,
			ReadHeaderTimeoutMS: 10000,
			IdleTimeoutMS:       20000,
		},
		Logging: logging.NewOptions(),
		Metrics: &MetricsConfig{ListenPort: DefaultMetricsListenPort},
		Tracing: tracing.NewOptions(),
		Caches:  cache.Lookup{httpcache.DefaultCacheName: cache.New()},
	}
}

// Validate checks the Config for configurations that would fail at runtime
func (c *Config) Validate() error {
	if err := c.Caches.Validate(); err != nil {
		return err
	}
	if c.RateLimiter != nil {
		if err := c.RateLimiter.Validate(); err != nil {
			return err
		}
	}
	if c.Breaker != nil {
		if err := c.Breaker.Validate(); err != nil {
			return err
		}
	}
	if c.ResponseCache != nil {
		if err := c.ResponseCache.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// FromYAML loads the YAML document over the Config's current values
func (c *Config) FromYAML(data []byte) error {
	return yaml.Unmarshal(data, c)
}

// ToYAML returns the Config rendered as YAML
func (c *Config) ToYAML() ([]byte, error) {
	return yaml.Marshal(c)
}
