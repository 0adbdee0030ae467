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

// Package badger is the BadgerDB implementation of the cache.Client
package badger

import (
	"time"

	"github.com/halyardhttp/halyard/pkg/cache"
	"github.com/halyardhttp/halyard/pkg/cache/options"
	"github.com/halyardhttp/halyard/pkg/cache/status"
	"github.com/halyardhttp/halyard/pkg/locks"
	"github.com/halyardhttp/halyard/pkg/observability/metrics"

	badger "github.com/dgraph-io/badger"
)

var _ cache.Client = &CacheClient{}

// CacheClient implements cache.Client backed by a badger key-value store.
// Badger manages object expiration natively, so no index is maintained.
type CacheClient struct {
	Name   string
	Config *options.Options

	dbh    *badger.DB
	locker locks.NamedLocker
}

// New returns a new badger cache client
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

// Connect opens the configured badger key-value store
func (c *CacheClient) Connect() error {
	opts := badger.DefaultOptions(c.Config.Badger.Directory)
	opts.ValueDir = c.Config.Badger.ValueDirectory
	var err error
	c.dbh, err = badger.Open(opts)
	return err
}

// Close closes the badger database handle
func (c *CacheClient) Close() error {
	if c.dbh == nil {
		return nil
	}
	return c.dbh.Close()
}

// Store places an object in the cache using the specified key and ttl
func (c *CacheClient) Store(cacheKey string, data []byte, ttl time.Duration) error {
	err := c.dbh.Update(func(txn *badger.Txn) error {
		e := badger.NewEntry([]byte(cacheKey), data)
		if ttl > 0 {
			e = e.WithTTL(ttl)
		}
		return txn.SetEntry(e)
	})
	if err != nil {
		metrics.CacheObjectOperations.WithLabelValues(c.Name, options.ProviderBadger,
			"set", "failed").Inc()
		return err
	}
	metrics.CacheObjectOperations.WithLabelValues(c.Name, options.ProviderBadger,
		"set", "none").Inc()
	return nil
}

// Retrieve gets an object from the cache using the provided key
func (c *CacheClient) Retrieve(cacheKey string) ([]byte, status.LookupStatus, error) {
	var data []byte
	err := c.dbh.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(cacheKey))
		if err != nil {
			return err
		}
		data, err = item.ValueCopy(nil)
		return err
	})
	if err == nil {
		metrics.CacheObjectOperations.WithLabelValues(c.Name, options.ProviderBadger,
			"get", status.LookupStatusHit.String()).Inc()
		return data, status.LookupStatusHit, nil
	}
	if err == badger.ErrKeyNotFound {
		metrics.CacheObjectOperations.WithLabelValues(c.Name, options.ProviderBadger,
			"get", status.LookupStatusKeyMiss.String()).Inc()
		return nil, status.LookupStatusKeyMiss, cache.ErrKNF
	}
	metrics.CacheObjectOperations.WithLabelValues(c.Name, options.ProviderBadger,
		"get", status.LookupStatusError.String()).Inc()
	return nil, status.LookupStatusError, err
}

// SetTTL rewrites the named object with a new expiration
func (c *CacheClient) SetTTL(cacheKey string, ttl time.Duration) {
	c.dbh.Update(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(cacheKey))
		if err != nil {
			return nil
		}
		data, err := item.ValueCopy(nil)
		if err != nil {
			return nil
		}
		e := badger.NewEntry([]byte(cacheKey), data)
		if ttl > 0 {
			e = e.WithTTL(ttl)
		}
		return txn.SetEntry(e)
	})
}

// Remove removes the listed objects from the cache
func (c *CacheClient) Remove(cacheKeys ...string) error {
	err := c.dbh.Update(func(txn *badger.Txn) error {
		for _, k := range cacheKeys {
			if err := txn.Delete([]byte(k)); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return err
	}
	metrics.CacheObjectOperations.WithLabelValues(c.Name, options.ProviderBadger,
		"remove", "none").Add(float64(len(cacheKeys)))
	return nil
}
