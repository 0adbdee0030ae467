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

package ratelimit

import (
	"hash/fnv"
	"sync"
	"time"
)

const shardCount = 64

// keyState is per-key limiter state; implementations must be safe to use
// under their own lock and report their idle time for lazy reaping
type keyState interface {
	idleSince() time.Time
}

type shard struct {
	mtx      sync.Mutex
	entries  map[string]keyState
	lastReap time.Time
}

// shardedKeys spreads per-key state over fixed shards so unrelated keys
// never contend on one lock; idle entries are reaped lazily on access
type shardedKeys struct {
	shards  [shardCount]*shard
	newFunc func() keyState
	maxIdle time.Duration
}

func newShardedKeys(maxIdle time.Duration, newFunc func() keyState) *shardedKeys {
	sk := &shardedKeys{newFunc: newFunc, maxIdle: maxIdle}
	for i := range sk.shards {
		sk.shards[i] = &shard{entries: make(map[string]keyState)}
	}
	return sk
}

// get returns the state for key, creating it on first use
func (sk *shardedKeys) get(key string) keyState {
	h := fnv.New32a()
	h.Write([]byte(key))
	s := sk.shards[h.Sum32()%shardCount]

	s.mtx.Lock()
	now := time.Now()
	if now.Sub(s.lastReap) > sk.maxIdle {
		s.lastReap = now
		for k, e := range s.entries {
			if now.Sub(e.idleSince()) > sk.maxIdle {
				delete(s.entries, k)
			}
		}
	}
	e, ok := s.entries[key]
	if !ok {
		e = sk.newFunc()
		s.entries[key] = e
	}
	s.mtx.Unlock()
	return e
}

// len returns the total entry count across shards
func (sk *shardedKeys) len() int {
	var n int
	for _, s := range sk.shards {
		s.mtx.Lock()
		n += len(s.entries)
		s.mtx.Unlock()
	}
	return n
}
