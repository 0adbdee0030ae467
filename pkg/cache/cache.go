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

// Package cache defines the caching fabric interfaces used by the response
// cache middleware and provides general cache functionality
package cache

import (
	"errors"
	"time"

	"github.com/halyardhttp/halyard/pkg/cache/options"
	"github.com/halyardhttp/halyard/pkg/cache/status"
	"github.com/halyardhttp/halyard/pkg/locks"
)

// ErrKNF represents the error "key not found in cache"
var ErrKNF = errors.New("key not found in cache")

// Client is the interface for the supported caching fabrics
// When making new cache providers, Retrieve() must return an error on cache miss
type Client interface {
	Connect() error
	Store(cacheKey string, data []byte, ttl time.Duration) error
	Retrieve(cacheKey string) ([]byte, status.LookupStatus, error)
	SetTTL(cacheKey string, ttl time.Duration)
	Remove(cacheKeys ...string) error
	Close() error
	Configuration() *options.Options
	Locker() locks.NamedLocker
	SetLocker(locks.NamedLocker)
}

// MemoryClient is the interface for an in-process memory cache, which offers
// additional methods for storing references to bypass serialization
type MemoryClient interface {
	Client
	StoreReference(cacheKey string, data ReferenceObject, ttl time.Duration) error
	RetrieveReference(cacheKey string) (any, status.LookupStatus, error)
}

// ReferenceObject defines an interface for a cache object that can report the
// approximate byte size of its members, to assist with cache size management
type ReferenceObject interface {
	Size() int
}
