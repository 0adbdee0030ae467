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

// Package bbolt is the bbolt implementation of the cache.Client
package bbolt

import (
	"fmt"
	"time"

	"github.com/halyardhttp/halyard/pkg/cache"
	"github.com/halyardhttp/halyard/pkg/cache/index"
	"github.com/halyardhttp/halyard/pkg/cache/options"
	"github.com/halyardhttp/halyard/pkg/cache/status"
	"github.com/halyardhttp/halyard/pkg/locks"
	"github.com/halyardhttp/halyard/pkg/observability/logging"
	"github.com/halyardhttp/halyard/pkg/observability/logging/logger"
	"github.com/halyardhttp/halyard/pkg/observability/metrics"

	"go.etcd.io/bbolt"
)

var _ cache.Client = &CacheClient{}

// CacheClient implements cache.Client backed by a bbolt database file
type CacheClient struct {
	Name   string
	Config *options.Options

	dbh    *bbolt.DB
	index  *index.Index
	locker locks.NamedLocker
}

// New returns a new bbolt cache client
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

// Connect opens the configured bbolt database file and hydrates the index
func (c *CacheClient) Connect() error {
	var err error
	c.dbh, err = bbolt.Open(c.Config.BBolt.Filename, 0o644,
		&bbolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return err
	}
	err = c.dbh.Update(func(tx *bbolt.Tx) error {
		_, err2 := tx.CreateBucketIfNotExists([]byte(c.Config.BBolt.Bucket))
		if err2 != nil {
			return fmt.Errorf("create bucket: %w", err2)
		}
		return nil
	})
	if err != nil {
		return err
	}

	var indexData []byte
	c.dbh.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket([]byte(c.Config.BBolt.Bucket))
		indexData = b.Get([]byte(index.IndexKey))
		return nil
	})
	c.index = index.New(c.Name, options.ProviderBBolt, indexData, c.Config.Index,
		func(cacheKeys ...string) {
			if err := c.removeData(cacheKeys...); err != nil {
				logger.Error("cache reap remove failed",
					logging.Pairs{"cacheName": c.Name, "detail": err})
			}
		},
		func(cacheKey string, data []byte) {
			if err := c.writeData(cacheKey, data); err != nil {
				logger.Error("cache index flush failed",
					logging.Pairs{"cacheName": c.Name, "detail": err})
			}
		})
	return nil
}

// Close stops the index and closes the database handle
func (c *CacheClient) Close() error {
	if c.index != nil {
		c.index.Close()
	}
	if c.dbh == nil {
		return nil
	}
	return c.dbh.Close()
}

// Store places an object in the cache using the specified key and ttl
func (c *CacheClient) Store(cacheKey string, data []byte, ttl time.Duration) error {
	if err := c.writeData(cacheKey, data); err != nil {
		metrics.CacheObjectOperations.WithLabelValues(c.Name, options.ProviderBBolt,
			"set", "failed").Inc()
		return err
	}
	obj := &index.Object{Key: cacheKey, Size: int64(len(data))}
	if ttl > 0 {
		obj.Expiration = time.Now().Add(ttl)
	}
	c.index.UpdateObject(obj)
	metrics.CacheObjectOperations.WithLabelValues(c.Name, options.ProviderBBolt,
		"set", "none").Inc()
	return nil
}

func (c *CacheClient) writeData(cacheKey string, data []byte) error {
	return c.dbh.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket([]byte(c.Config.BBolt.Bucket))
		return b.Put([]byte(cacheKey), data)
	})
}

// Retrieve gets an object from the cache using the provided key
func (c *CacheClient) Retrieve(cacheKey string) ([]byte, status.LookupStatus, error) {
	var data []byte
	err := c.dbh.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket([]byte(c.Config.BBolt.Bucket))
		v := b.Get([]byte(cacheKey))
		if v == nil {
			return cache.ErrKNF
		}
		data = append([]byte(nil), v...)
		return nil
	})
	if err != nil {
		metrics.CacheObjectOperations.WithLabelValues(c.Name, options.ProviderBBolt,
			"get", status.LookupStatusKeyMiss.String()).Inc()
		return nil, status.LookupStatusKeyMiss, err
	}

	exp := c.index.GetExpiration(cacheKey)
	if !exp.IsZero() && exp.Before(time.Now()) {
		c.Remove(cacheKey)
		metrics.CacheObjectOperations.WithLabelValues(c.Name, options.ProviderBBolt,
			"get", status.LookupStatusExpired.String()).Inc()
		return nil, status.LookupStatusExpired, cache.ErrKNF
	}
	c.index.UpdateObjectAccessTime(cacheKey)
	metrics.CacheObjectOperations.WithLabelValues(c.Name, options.ProviderBBolt,
		"get", status.LookupStatusHit.String()).Inc()
	return data, status.LookupStatusHit, nil
}

// SetTTL updates the TTL of the named object
func (c *CacheClient) SetTTL(cacheKey string, ttl time.Duration) {
	c.index.UpdateObjectTTL(cacheKey, ttl)
}

// Remove removes the listed objects from the cache
func (c *CacheClient) Remove(cacheKeys ...string) error {
	if err := c.removeData(cacheKeys...); err != nil {
		return err
	}
	c.index.RemoveObjects(cacheKeys...)
	metrics.CacheObjectOperations.WithLabelValues(c.Name, options.ProviderBBolt,
		"remove", "none").Add(float64(len(cacheKeys)))
	return nil
}

func (c *CacheClient) removeData(cacheKeys ...string) error {
	return c.dbh.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket([]byte(c.Config.BBolt.Bucket))
		for _, k := range cacheKeys {
			if err := b.Delete([]byte(k)); err != nil {
				return err
			}
		}
		return nil
	})
}
