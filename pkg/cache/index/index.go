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

// Package index maintains expiration and size metadata for cache providers
// that have no native object lifecycle, and evicts least-recently-accessed
// objects when the cache exceeds its configured size
package index

import (
	"bytes"
	"encoding/gob"
	"sort"
	"sync"
	"time"

	"github.com/halyardhttp/halyard/pkg/cache/index/options"
	"github.com/halyardhttp/halyard/pkg/observability/logging"
	"github.com/halyardhttp/halyard/pkg/observability/logging/logger"
	"github.com/halyardhttp/halyard/pkg/observability/metrics"
)

// IndexKey is the key under which the index flushes itself to the backing store
const IndexKey = "halyard.cache.index"

// RemoveFunc removes the listed keys from the backing store
type RemoveFunc func(cacheKeys ...string)

// FlushFunc persists the serialized index to the backing store
type FlushFunc func(cacheKey string, data []byte)

// Index maintains the object metadata for a managed cache
type Index struct {
	name     string
	provider string
	options  *options.Options

	mtx         sync.Mutex
	objects     map[string]*Object
	cacheSize   int64
	objectCount int64
	lastWrite   time.Time
	lastFlush   time.Time

	removeFunc RemoveFunc
	flushFunc  FlushFunc

	done     chan struct{}
	stopOnce sync.Once
}

// New returns a new Index for the named cache, hydrated from indexData when
// a previously-flushed index is present, and starts its maintenance loops
func New(cacheName, provider string, indexData []byte, o *options.Options,
	removeFunc RemoveFunc, flushFunc FlushFunc) *Index {
	if o == nil {
		o = options.New()
	}
	idx := &Index{
		name:       cacheName,
		provider:   provider,
		options:    o,
		objects:    make(map[string]*Object),
		removeFunc: removeFunc,
		flushFunc:  flushFunc,
		done:       make(chan struct{}),
	}
	if len(indexData) > 0 {
		if err := idx.fromBytes(indexData); err != nil {
			logger.Warn("cache index could not be restored",
				logging.Pairs{"cacheName": cacheName, "detail": err})
		}
	}
	idx.observeGauges()
	go idx.reaper()
	if flushFunc != nil {
		go idx.flusher()
	}
	return idx
}

// Close stops the index maintenance loops
func (idx *Index) Close() {
	idx.stopOnce.Do(func() { close(idx.done) })
}

// UpdateOptions swaps in a new options reference
func (idx *Index) UpdateOptions(o *options.Options) {
	idx.mtx.Lock()
	idx.options = o
	idx.mtx.Unlock()
}

// UpdateObject writes or updates the metadata for the provided object
func (idx *Index) UpdateObject(obj *Object) {
	if obj.Key == "" {
		return
	}
	now := time.Now()
	idx.mtx.Lock()
	obj.LastWrite = now
	obj.LastAccess = now
	if prev, ok := idx.objects[obj.Key]; ok {
		idx.cacheSize += obj.Size - prev.Size
	} else {
		idx.cacheSize += obj.Size
		idx.objectCount++
	}
	idx.objects[obj.Key] = obj
	idx.lastWrite = now
	idx.observeGaugesLocked()
	idx.mtx.Unlock()
}

// UpdateObjectAccessTime updates the LastAccess time of the named object
func (idx *Index) UpdateObjectAccessTime(cacheKey string) {
	idx.mtx.Lock()
	if obj, ok := idx.objects[cacheKey]; ok {
		obj.LastAccess = time.Now()
	}
	idx.mtx.Unlock()
}

// UpdateObjectTTL updates the expiration of the named object
func (idx *Index) UpdateObjectTTL(cacheKey string, ttl time.Duration) {
	idx.mtx.Lock()
	if obj, ok := idx.objects[cacheKey]; ok {
		obj.Expiration = time.Now().Add(ttl)
		idx.lastWrite = time.Now()
	}
	idx.mtx.Unlock()
}

// RemoveObjects removes the listed keys from the index accounting only;
// the caller is responsible for removal from the backing store
func (idx *Index) RemoveObjects(cacheKeys ...string) {
	idx.mtx.Lock()
	for _, k := range cacheKeys {
		if obj, ok := idx.objects[k]; ok {
			idx.cacheSize -= obj.Size
			idx.objectCount--
			delete(idx.objects, k)
		}
	}
	idx.lastWrite = time.Now()
	idx.observeGaugesLocked()
	idx.mtx.Unlock()
}

// GetExpiration returns the expiration time of the named object, or the zero
// time when the object is not indexed
func (idx *Index) GetExpiration(cacheKey string) time.Time {
	idx.mtx.Lock()
	defer idx.mtx.Unlock()
	if obj, ok := idx.objects[cacheKey]; ok {
		return obj.Expiration
	}
	return time.Time{}
}

// Contains reports whether the named object is indexed
func (idx *Index) Contains(cacheKey string) bool {
	idx.mtx.Lock()
	_, ok := idx.objects[cacheKey]
	idx.mtx.Unlock()
	return ok
}

// Len returns the number of indexed objects
func (idx *Index) Len() int {
	idx.mtx.Lock()
	defer idx.mtx.Unlock()
	return len(idx.objects)
}

// ToBytes returns a gob-encoded representation of the Index contents
func (idx *Index) ToBytes() []byte {
	idx.mtx.Lock()
	defer idx.mtx.Unlock()
	return idx.toBytesLocked()
}

func (idx *Index) toBytesLocked() []byte {
	buf := &bytes.Buffer{}
	gob.NewEncoder(buf).Encode(idx.objects)
	return buf.Bytes()
}

func (idx *Index) fromBytes(data []byte) error {
	objects := make(map[string]*Object)
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&objects); err != nil {
		return err
	}
	var size, count int64
	for _, obj := range objects {
		size += obj.Size
		count++
	}
	idx.mtx.Lock()
	idx.objects = objects
	idx.cacheSize = size
	idx.objectCount = count
	idx.mtx.Unlock()
	return nil
}

func (idx *Index) reaper() {
	ticker := time.NewTicker(idx.options.ReapInterval())
	defer ticker.Stop()
	for {
		select {
		case <-idx.done:
			return
		case <-ticker.C:
			idx.reap()
		}
	}
}

// reap removes expired objects and, when the cache exceeds its configured
// size, evicts least-recently-accessed objects until below the backoff mark
func (idx *Index) reap() {
	now := time.Now()

	idx.mtx.Lock()
	var expired []string
	for k, obj := range idx.objects {
		if !obj.Expiration.IsZero() && obj.Expiration.Before(now) {
			expired = append(expired, k)
		}
	}
	idx.removeLocked(expired...)
	evicted := idx.evictLocked()
	idx.observeGaugesLocked()
	idx.mtx.Unlock()

	if len(expired) > 0 {
		metrics.CacheEvents.WithLabelValues(idx.name, idx.provider,
			"expiration").Add(float64(len(expired)))
		if idx.removeFunc != nil {
			idx.removeFunc(expired...)
		}
	}
	if len(evicted) > 0 {
		metrics.CacheEvents.WithLabelValues(idx.name, idx.provider,
			"eviction").Add(float64(len(evicted)))
		logger.Debug("cache size limit exceeded, evicted objects",
			logging.Pairs{"cacheName": idx.name, "count": len(evicted)})
		if idx.removeFunc != nil {
			idx.removeFunc(evicted...)
		}
	}
}

func (idx *Index) evictLocked() []string {
	o := idx.options
	overBytes := o.MaxSizeBytes > 0 && idx.cacheSize > o.MaxSizeBytes
	overObjects := o.MaxSizeObjects > 0 && idx.objectCount > o.MaxSizeObjects
	if !overBytes && !overObjects {
		return nil
	}

	byteTarget := o.MaxSizeBytes - o.MaxSizeBackoffBytes
	objectTarget := o.MaxSizeObjects - o.MaxSizeBackoffObjects

	ordered := make([]*Object, 0, len(idx.objects))
	for _, obj := range idx.objects {
		ordered = append(ordered, obj)
	}
	sort.Slice(ordered, func(i, j int) bool {
		return ordered[i].LastAccess.Before(ordered[j].LastAccess)
	})

	var evicted []string
	for _, obj := range ordered {
		if (!overBytes || idx.cacheSize <= byteTarget) &&
			(!overObjects || idx.objectCount <= objectTarget) {
			break
		}
		idx.cacheSize -= obj.Size
		idx.objectCount--
		delete(idx.objects, obj.Key)
		evicted = append(evicted, obj.Key)
	}
	return evicted
}

func (idx *Index) removeLocked(cacheKeys ...string) {
	for _, k := range cacheKeys {
		if obj, ok := idx.objects[k]; ok {
			idx.cacheSize -= obj.Size
			idx.objectCount--
			delete(idx.objects, k)
		}
	}
}

func (idx *Index) flusher() {
	ticker := time.NewTicker(idx.options.FlushInterval())
	defer ticker.Stop()
	for {
		select {
		case <-idx.done:
			return
		case <-ticker.C:
			idx.mtx.Lock()
			stale := idx.lastWrite.After(idx.lastFlush)
			var data []byte
			if stale {
				data = idx.toBytesLocked()
				idx.lastFlush = time.Now()
			}
			idx.mtx.Unlock()
			if stale {
				idx.flushFunc(IndexKey, data)
			}
		}
	}
}

func (idx *Index) observeGauges() {
	idx.mtx.Lock()
	idx.observeGaugesLocked()
	idx.mtx.Unlock()
}

func (idx *Index) observeGaugesLocked() {
	metrics.CacheObjects.WithLabelValues(idx.name,
		idx.provider).Set(float64(idx.objectCount))
	metrics.CacheBytes.WithLabelValues(idx.name,
		idx.provider).Set(float64(idx.cacheSize))
}
