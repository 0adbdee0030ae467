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

package redis

import (
	"bytes"
	"testing"
	"time"

	"github.com/alicebob/miniredis"
	"github.com/halyardhttp/halyard/pkg/cache/options"
	"github.com/halyardhttp/halyard/pkg/cache/status"
)

const cacheKey = "cacheKey"

func newTestClient(t *testing.T) *CacheClient {
	s, err := miniredis.Run()
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(s.Close)
	o := options.New()
	o.Provider = options.ProviderRedis
	o.Redis.Endpoint = s.Addr()
	c := New("test", o)
	if err := c.Connect(); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { c.Close() })
	return c
}

func TestStoreRetrieve(t *testing.T) {
	c := newTestClient(t)
	if err := c.Store(cacheKey, []byte("data"), time.Minute); err != nil {
		t.Error(err)
	}
	data, s, err := c.Retrieve(cacheKey)
	if err != nil {
		t.Error(err)
	}
	if s != status.LookupStatusHit {
		t.Errorf("expected hit, got %s", s)
	}
	if !bytes.Equal(data, []byte("data")) {
		t.Errorf("unexpected data: %s", data)
	}
}

func TestRetrieveMiss(t *testing.T) {
	c := newTestClient(t)
	_, s, err := c.Retrieve("absent")
	if err == nil {
		t.Error("expected error on miss")
	}
	if s != status.LookupStatusKeyMiss {
		t.Errorf("expected kmiss, got %s", s)
	}
}

func TestRemove(t *testing.T) {
	c := newTestClient(t)
	c.Store(cacheKey, []byte("data"), time.Minute)
	if err := c.Remove(cacheKey); err != nil {
		t.Error(err)
	}
	_, s, _ := c.Retrieve(cacheKey)
	if s != status.LookupStatusKeyMiss {
		t.Errorf("expected kmiss, got %s", s)
	}
}
