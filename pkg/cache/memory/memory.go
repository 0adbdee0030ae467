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

// Package memory is the in-process memory implementation of the cache.Client
// and uses a sync.Map to manage cache objects
package memory

import (
	"sync"
	"time"

	"github.com/halyardhttp/halyard/pkg/cache"
	"github.com/halyardhttp/halyard/pkg/cache/index"
	"github.com/halyardhttp/halyard/pkg/cache/options"
	"github.com/halyardhttp/halyard/pkg/cache/status"
	"github.com/halyardhttp/halyard/pkg/locks"
	"github.com/halyardhttp/halyard/pkg/observability/metrics"
)

var (
	_ cache.Client       = &CacheClient{}
	_ cache.MemoryClient = &CacheClient{}
)

// CacheClient implements cache.MemoryClient backed by a sync.Map
type CacheClient struct {
	Name   string
	Config *options.Options

	client sync.Map
	index  *index.Index
	locker locks.NamedLocker
}

// New returns a new memory cache client
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

// Connect initializes the CacheClient's index
func (c *CacheClient) Connect() error {
	c.index = index.New(c.Name, options.ProviderMemory, nil, c.Config.Index,
		func(cacheKeys ...string) {
			for _, k := range cacheKeys {
				c.client.Delete(k)
			}
		}, nil)
	return nil
}

// Close stops the CacheClient's index
func (c *CacheClient) Close() error {
	if c.index != nil {
		c.index.Close()
	}
	return nil
}

type cacheObject struct {
	data []byte
	ref  cache.ReferenceObject
}

func (o *cacheObject) size() int64 {
	if o.ref != nil {
		return int64(o.ref.Size())
	}
	return int64(len(o.data))
}

// Store places an object in the cache using the specified key and ttl
func (c *CacheClient) Store(cacheKey string, data []byte, ttl time.Duration) error {
	return c.store(cacheKey, &cacheObject{data: data}, ttl)
}

// StoreReference stores an object directly to the memory cache without serialization
func (c *CacheClient) StoreReference(cacheKey string, data cache.ReferenceObject,
	ttl time.Duration) error {
	return c.store(cacheKey, &cacheObject{ref: data}, ttl)
}

func (c *CacheClient) store(cacheKey string, o *cacheObject, ttl time.Duration) error {
	c.client.Store(cacheKey, o)
	obj := &index.Object{Key: cacheKey, Size: o.size()}
	if ttl > 0 {
		obj.Expiration = time.Now().Add(ttl)
	}
	c.index.UpdateObject(obj)
	metrics.CacheObjectOperations.WithLabelValues(c.Name, options.ProviderMemory,
		"set", "none").Inc()
	return nil
}

// Retrieve looks for an object in cache and returns it (or an error if not found)
func (c *CacheClient) Retrieve(cacheKey string) ([]byte, status.LookupStatus, error) {
	o, s, err := c.retrieve(cacheKey)
	if err != nil {
		return nil, s, err
	}
	return o.data, s, nil
}

// RetrieveReference looks for an object in cache and returns it without deserialization
func (c *CacheClient) RetrieveReference(cacheKey string) (any,
	status.LookupStatus, error) {
	o, s, err := c.retrieve(cacheKey)
	if err != nil {
		return nil, s, err
	}
	if o.ref != nil {
		return o.ref, s, nil
	}
	return o.data, s, nil
}

func (c *CacheClient) retrieve(cacheKey string) (*cacheObject,
	status.LookupStatus, error) {
	record, ok := c.client.Load(cacheKey)
	if !ok {
		metrics.CacheObjectOperations.WithLabelValues(c.Name,
			options.ProviderMemory, "get", status.LookupStatusKeyMiss.String()).Inc()
		return nil, status.LookupStatusKeyMiss, cache.ErrKNF
	}
	exp := c.index.GetExpiration(cacheKey)
	if !exp.IsZero() && exp.Before(time.Now()) {
		c.client.Delete(cacheKey)
		c.index.RemoveObjects(cacheKey)
		metrics.CacheObjectOperations.WithLabelValues(c.Name,
			options.ProviderMemory, "get", status.LookupStatusExpired.String()).Inc()
		return nil, status.LookupStatusExpired, cache.ErrKNF
	}
	c.index.UpdateObjectAccessTime(cacheKey)
	metrics.CacheObjectOperations.WithLabelValues(c.Name,
		options.ProviderMemory, "get", status.LookupStatusHit.String()).Inc()
	return record.(*cacheObject), status.LookupStatusHit, nil
}

// SetTTL updates the TTL of the named object
func (c *CacheClient) SetTTL(cacheKey string, ttl time.Duration) {
	c.index.UpdateObjectTTL(cacheKey, ttl)
}

// Remove removes the listed objects from the cache
func (c *CacheClient) Remove(cacheKeys ...string) error {
	for _, k := range cacheKeys {
		c.client.Delete(k)
	}
	c.index.RemoveObjects(cacheKeys...)
	metrics.CacheObjectOperations.WithLabelValues(c.Name, options.ProviderMemory,
		"remove", "none").Add(float64(len(cacheKeys)))
	return nil
}
