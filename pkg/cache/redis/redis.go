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

// Package redis is the redis implementation of the cache.Client and supports
// standalone, sentinel and cluster deployments
package redis

import (
	"time"

	"github.com/halyardhttp/halyard/pkg/cache"
	"github.com/halyardhttp/halyard/pkg/cache/options"
	"github.com/halyardhttp/halyard/pkg/cache/status"
	"github.com/halyardhttp/halyard/pkg/locks"
	"github.com/halyardhttp/halyard/pkg/observability/metrics"

	"github.com/go-redis/redis"
)

var _ cache.Client = &CacheClient{}

// CacheClient implements cache.Client backed by a redis deployment.
// Redis manages object expiration natively, so no index is maintained.
type CacheClient struct {
	Name   string
	Config *options.Options

	client redis.Cmdable
	closer func() error
	locker locks.NamedLocker
}

// New returns a new redis cache client
func New(name string, cfg *options.Options) *CacheClient {
	if cfg == nil {
		cfg = options.New()
	}
	return &CacheClient{Name: name, Config: cfg, locker: locks.NewNamedLocker()}
}

// Configuration returns the Configuration for the CacheClient
func (c *CacheClient) Configuration() *options.Options {
	return c.Config
}

// Locker returns the CacheClient's NamedLocker
func (c *CacheClient) Locker() locks.NamedLocker {
	return c.locker
}

// SetLocker sets the CacheClient's NamedLocker
func (c *CacheClient) SetLocker(l locks.NamedLocker) {
	c.locker = l
}

// Connect connects to the configured redis endpoint
func (c *CacheClient) Connect() error {
	switch c.Config.Redis.ClientType {
	case "sentinel":
		client := redis.NewFailoverClient(c.sentinelOpts())
		c.closer = client.Close
		c.client = client
	case "cluster":
		client := redis.NewClusterClient(c.clusterOpts())
		c.closer = client.Close
		c.client = client
	default:
		client := redis.NewClient(c.clientOpts())
		c.closer = client.Close
		c.client = client
	}
	return c.client.Ping().Err()
}

// Close closes the redis connection
func (c *CacheClient) Close() error {
	if c.closer == nil {
		return nil
	}
	return c.closer()
}

// Store places an object in the cache using the specified key and ttl
func (c *CacheClient) Store(cacheKey string, data []byte, ttl time.Duration) error {
	err := c.client.Set(cacheKey, data, ttl).Err()
	if err != nil {
		metrics.CacheObjectOperations.WithLabelValues(c.Name, options.ProviderRedis,
			"set", "failed").Inc()
		return err
	}
	metrics.CacheObjectOperations.WithLabelValues(c.Name, options.ProviderRedis,
		"set", "none").Inc()
	return nil
}

// Retrieve gets an object from the cache using the provided key
func (c *CacheClient) Retrieve(cacheKey string) ([]byte, status.LookupStatus, error) {
	res, err := c.client.Get(cacheKey).Result()
	if err == nil {
		metrics.CacheObjectOperations.WithLabelValues(c.Name, options.ProviderRedis,
			"get", status.LookupStatusHit.String()).Inc()
		return []byte(res), status.LookupStatusHit, nil
	}
	if err == redis.Nil {
		metrics.CacheObjectOperations.WithLabelValues(c.Name, options.ProviderRedis,
			"get", status.LookupStatusKeyMiss.String()).Inc()
		return nil, status.LookupStatusKeyMiss, cache.ErrKNF
	}
	metrics.CacheObjectOperations.WithLabelValues(c.Name, options.ProviderRedis,
		"get", status.LookupStatusError.String()).Inc()
	return nil, status.LookupStatusError, err
}

// SetTTL updates the TTL of the named object
func (c *CacheClient) SetTTL(cacheKey string, ttl time.Duration) {
	c.client.Expire(cacheKey, ttl)
}

// Remove removes the listed objects from the cache
func (c *CacheClient) Remove(cacheKeys ...string) error {
	if err := c.client.Del(cacheKeys...).Err(); err != nil {
		return err
	}
	metrics.CacheObjectOperations.WithLabelValues(c.Name, options.ProviderRedis,
		"remove", "none").Add(float64(len(cacheKeys)))
	return nil
}
