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

import "time"

const (
	// DefaultReapIntervalMS is the default interval for reaping expired objects
	DefaultReapIntervalMS = 3000
	// DefaultFlushIntervalMS is the default interval for flushing the index to the backing store
	DefaultFlushIntervalMS = 5000
	// DefaultMaxSizeBytes is the default maximum byte size of a managed cache
	DefaultMaxSizeBytes = 512 * 1024 * 1024
	// DefaultMaxSizeBackoffBytes is the default size the reaper frees beyond the max
	DefaultMaxSizeBackoffBytes = 16 * 1024 * 1024
	// DefaultMaxSizeObjects means unlimited objects by default
	DefaultMaxSizeObjects = 0
	// DefaultMaxSizeBackoffObjects is the default object count the reaper frees beyond the max
	DefaultMaxSizeBackoffObjects = 100
)

// Options defines the operation of the Cache Index
type Options struct {
	// ReapIntervalMS defines how often the Cache Index reaps expired and overflow objects
	ReapIntervalMS int `yaml:"reap_interval_ms,omitempty"`
	// FlushIntervalMS defines how often the Cache Index flushes to the backing store
	FlushIntervalMS int `yaml:"flush_interval_ms,omitempty"`
	// MaxSizeBytes indicates the maximum size of the cache in bytes before eviction
	MaxSizeBytes int64 `yaml:"max_size_bytes,omitempty"`
	// MaxSizeBackoffBytes indicates how far below max size the reaper evicts down to
	MaxSizeBackoffBytes int64 `yaml:"max_size_backoff_bytes,omitempty"`
	// MaxSizeObjects indicates the maximum object count of the cache before eviction
	MaxSizeObjects int64 `yaml:"max_size_objects,omitempty"`
	// MaxSizeBackoffObjects indicates how far below max objects the reaper evicts down to
	MaxSizeBackoffObjects int64 `yaml:"max_size_backoff_objects,omitempty"`
}

// New returns a new index Options with default values
func New() *Options {
	return &Options{
		ReapIntervalMS:        DefaultReapIntervalMS,
		FlushIntervalMS:       DefaultFlushIntervalMS,
		MaxSizeBytes:          DefaultMaxSizeBytes,
		MaxSizeBackoffBytes:   DefaultMaxSizeBackoffBytes,
		MaxSizeObjects:        DefaultMaxSizeObjects,
		MaxSizeBackoffObjects: DefaultMaxSizeBackoffObjects,
	}
}

// ReapInterval returns the reap interval as a Duration
func (o *Options) ReapInterval() time.Duration {
	return time.Duration(o.ReapIntervalMS) * time.Millisecond
}

// FlushInterval returns the flush interval as a Duration
func (o *Options) FlushInterval() time.Duration {
	return time.Duration(o.FlushIntervalMS) * time.Millisecond
}
