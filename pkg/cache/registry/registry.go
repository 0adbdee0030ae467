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

// Package registry instantiates cache clients from their configurations
package registry

import (
	"fmt"

	"github.com/halyardhttp/halyard/pkg/cache"
	"github.com/halyardhttp/halyard/pkg/cache/badger"
	"github.com/halyardhttp/halyard/pkg/cache/bbolt"
	"github.com/halyardhttp/halyard/pkg/cache/memory"
	"github.com/halyardhttp/halyard/pkg/cache/options"
	"github.com/halyardhttp/halyard/pkg/cache/redis"
	"github.com/halyardhttp/halyard/pkg/observability/logging"
	"github.com/halyardhttp/halyard/pkg/observability/logging/logger"
)

// NewCache returns a connected cache client for the provided Options
func NewCache(cacheName string, o *options.Options) (cache.Client, error) {
	var c cache.Client
	switch o.Provider {
	case options.ProviderMemory:
		c = memory.New(cacheName, o)
	case options.ProviderBBolt:
		c = bbolt.New(cacheName, o)
	case options.ProviderBadger:
		c = badger.New(cacheName, o)
	case options.ProviderRedis:
		c = redis.New(cacheName, o)
	default:
		return nil, fmt.Errorf("invalid cache provider name: %s", o.Provider)
	}
	logger.Info("cache setup", logging.Pairs{
		"cacheName": cacheName, "provider": o.Provider})
	if err := c.Connect(); err != nil {
		return nil, err
	}
	return c, nil
}

// LoadCachesFromConfig returns connected cache clients for each configured cache
func LoadCachesFromConfig(l options.Lookup) (map[string]cache.Client, error) {
	caches := make(map[string]cache.Client, len(l))
	for name, o := range l {
		c, err := NewCache(name, o)
		if err != nil {
			CloseCaches(caches)
			return nil, err
		}
		caches[name] = c
	}
	return caches, nil
}

// CloseCaches closes the provided cache clients
func CloseCaches(caches map[string]cache.Client) {
	for name, c := range caches {
		if err := c.Close(); err != nil {
			logger.Warn("error closing cache",
				logging.Pairs{"cacheName": name, "detail": err})
		}
	}
}
