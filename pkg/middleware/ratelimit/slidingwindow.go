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

var _ Strategy = &slidingWindow{}

// slidingWindow counts requests in one-second sub-buckets over a rolling
// window; stale sub-buckets are pruned lazily on each check
type slidingWindow struct {
	window time.Duration
	keys   *shardedKeys
	now    func() time.Time
}

type window struct {
	mtx        sync.Mutex
	buckets    map[int64]int
	lastAccess time.Time
}

func (w *window) idleSince() time.Time {
	w.mtx.Lock()
	defer w.mtx.Unlock()
	return w.lastAccess
}

func newSlidingWindow(o *options.Options) *slidingWindow {
	return &slidingWindow{
		window: o.Window(),
		keys: newShardedKeys(2*o.Window(), func() keyState {
			return &window{buckets: make(map[int64]int)}
		}),
		now: time.Now,
	}
}

func (s *slidingWindow) Name() string {
	return options.StrategySlidingWindow
}

// Check sums the live sub-buckets and denies when the sum plus cost would
// exceed the limit
func (s *slidingWindow) Check(key string, cost, limit int) Decision {
	w := s.keys.get(key).(*window)
	now := s.now()
	nowSec := now.Unix()
	windowSecs := int64(s.window / time.Second)
	floor := nowSec - windowSecs + 1

	w.mtx.Lock()
	defer w.mtx.Unlock()
	w.lastAccess = now

	var count int
	var oldest int64 = -1
	for sec, n := range w.buckets {
		if sec < floor {
			delete(w.buckets, sec)
			continue
		}
		count += n
		if oldest < 0 || sec < oldest {
			oldest = sec
		}
	}

	if count+cost > limit {
		// the oldest live sub-bucket leaving the window frees allowance
		retryAfter := time.Second
		if oldest >= 0 {
			retryAfter = time.Duration(oldest-floor+1) * time.Second
		}
		return Decision{
			Limit:      limit,
			RetryAfter: retryAfter,
			ResetAt:    now.Add(retryAfter),
		}
	}

	w.buckets[nowSec] += cost
	if oldest < 0 || nowSec < oldest {
		oldest = nowSec
	}
	return Decision{
		Allowed:   true,
		Limit:     limit,
		Remaining: limit - count - cost,
		ResetAt:   time.Unix(oldest+windowSecs, 0),
	}
}
