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
	"sync"
	"time"

	"github.com/halyardhttp/halyard/pkg/middleware/ratelimit/options"
)

var _ Strategy = &tokenBucket{}

// tokenBucket permits bursts up to the limit and refills allowance
// continuously at limit-per-window
type tokenBucket struct {
	window time.Duration
	keys   *shardedKeys
	now    func() time.Time
}

type bucket struct {
	mtx        sync.Mutex
	tokens     float64
	lastRefill time.Time
	lastAccess time.Time
	primed     bool
}

func (b *bucket) idleSince() time.Time {
	b.mtx.Lock()
	defer b.mtx.Unlock()
	return b.lastAccess
}

func newTokenBucket(o *options.Options) *tokenBucket {
	return &tokenBucket{
		window: o.Window(),
		keys:   newShardedKeys(2*o.Window(), func() keyState { return &bucket{} }),
		now:    time.Now,
	}
}

func (t *tokenBucket) Name() string {
	return options.StrategyTokenBucket
}

// Check refills elapsed/window*limit tokens capped at limit, then performs
// a check-and-subtract of cost under the bucket lock
func (t *tokenBucket) Check(key string, cost, limit int) Decision {
	b := t.keys.get(key).(*bucket)
	now := t.now()
	capacity := float64(limit)

	b.mtx.Lock()
	defer b.mtx.Unlock()

	if !b.primed {
		b.tokens = capacity
		b.lastRefill = now
		b.primed = true
	} else {
		elapsed := now.Sub(b.lastRefill)
		if elapsed > 0 {
			b.tokens += elapsed.Seconds() / t.window.Seconds() * capacity
			b.lastRefill = now
		}
	}
	if b.tokens > capacity {
		b.tokens = capacity
	}
	b.lastAccess = now

	fcost := float64(cost)
	if b.tokens >= fcost {
		b.tokens -= fcost
		return Decision{
			Allowed:   true,
			Limit:     limit,
			Remaining: int(b.tokens),
			ResetAt:   now.Add(t.refillTime(capacity-b.tokens, capacity)),
		}
	}

	wait := t.refillTime(fcost-b.tokens, capacity)
	return Decision{
		Limit:      limit,
		RetryAfter: wait,
		ResetAt:    now.Add(wait),
	}
}

// refillTime returns how long the bucket takes to accrue the given tokens
func (t *tokenBucket) refillTime(tokens, capacity float64) time.Duration {
	if tokens <= 0 {
		return 0
	}
	return time.Duration(tokens / capacity * float64(t.window))
}
