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

// Package locks provides named per-key read/write locks backed by sharded
// maps, so locking one key never contends with unrelated keys
package locks

import (
	"errors"
	"hash/fnv"
	"sync"
)

// ErrInvalidLockName is returned when acquiring a lock with an empty name
var ErrInvalidLockName = errors.New("invalid lock name")

const shardCount = 64

// NamedLocker provides locks identified by string name (e.g., cache keys)
type NamedLocker interface {
	// Acquire blocks until the named write lock is held
	Acquire(name string) (NamedLock, error)
	// RAcquire blocks until the named read lock is held
	RAcquire(name string) (NamedLock, error)
}

// NamedLock is a held lock that must be released exactly once
type NamedLock interface {
	Release()
}

type lockShard struct {
	mtx   sync.Mutex
	locks map[string]*namedLock
}

type namedLocker struct {
	shards [shardCount]*lockShard
}

// NewNamedLocker returns a new sharded NamedLocker
func NewNamedLocker() NamedLocker {
	nl := &namedLocker{}
	for i := range nl.shards {
		nl.shards[i] = &lockShard{locks: make(map[string]*namedLock)}
	}
	return nl
}

type namedLock struct {
	sync.RWMutex
	name  string
	shard *lockShard
	refs  int
}

func (lk *namedLocker) shardFor(name string) *lockShard {
	h := fnv.New32a()
	h.Write([]byte(name))
	return lk.shards[h.Sum32()%shardCount]
}

func (lk *namedLocker) acquire(name string, write bool) (NamedLock, error) {
	if name == "" {
		return nil, ErrInvalidLockName
	}
	shard := lk.shardFor(name)
	shard.mtx.Lock()
	nl, ok := shard.locks[name]
	if !ok {
		nl = &namedLock{name: name, shard: shard}
		shard.locks[name] = nl
	}
	nl.refs++
	shard.mtx.Unlock()

	// the handle returned to the caller records which unlock applies; the
	// underlying RWMutex is shared between all holders of the name
	h := &lockHandle{namedLock: nl, write: write}
	if write {
		nl.Lock()
	} else {
		nl.RLock()
	}
	return h, nil
}

type lockHandle struct {
	*namedLock
	write bool
}

func (h *lockHandle) Release() {
	if h.write {
		h.namedLock.Unlock()
	} else {
		h.namedLock.RUnlock()
	}
	h.shard.mtx.Lock()
	h.namedLock.refs--
	// drop the map entry once nobody holds or awaits the lock, so the
	// key space cannot grow without bound
	if h.namedLock.refs == 0 {
		delete(h.shard.locks, h.name)
	}
	h.shard.mtx.Unlock()
}

// Acquire locks the named lock for writing, blocking until acquired
func (lk *namedLocker) Acquire(name string) (NamedLock, error) {
	return lk.acquire(name, true)
}

// RAcquire locks the named lock for reading, blocking until acquired
func (lk *namedLocker) RAcquire(name string) (NamedLock, error) {
	return lk.acquire(name, false)
}
