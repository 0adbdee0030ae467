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

package daemon

import (
	"testing"

	"github.com/halyardhttp/halyard/pkg/cache/registry"
	"github.com/halyardhttp/halyard/pkg/config"
	breaker "github.com/halyardhttp/halyard/pkg/middleware/breaker/options"
	httpcache "github.com/halyardhttp/halyard/pkg/middleware/httpcache/options"
	ratelimit "github.com/halyardhttp/halyard/pkg/middleware/ratelimit/options"
	"github.com/halyardhttp/halyard/pkg/observability/tracing"
)

func TestAssembleChain(t *testing.T) {
	conf := config.New()
	conf.RateLimiter = ratelimit.New()
	conf.Breaker = breaker.New()
	conf.ResponseCache = httpcache.New()

	caches, err := registry.LoadCachesFromConfig(conf.Caches)
	if err != nil {
		t.Fatal(err)
	}
	defer registry.CloseCaches(caches)

	chain, err := assembleChain(conf, caches, tracing.NoopTracer())
	if err != nil {
		t.Fatal(err)
	}

	// rate limiter, breaker, compression, response cache, ordered by priority
	descriptors := chain.Descriptors()
	want := []string{"ratelimit", "breaker", "compression", "httpcache"}
	if len(descriptors) != len(want) {
		t.Fatalf("expected %d descriptors, got %d", len(want), len(descriptors))
	}
	for i, d := range descriptors {
		if d.Name != want[i] {
			t.Errorf("expected %s at position %d, got %s", want[i], i, d.Name)
		}
	}
}

func TestAssembleChainUnknownCache(t *testing.T) {
	conf := config.New()
	conf.ResponseCache = httpcache.New()
	conf.ResponseCache.CacheName = "nope"

	caches, err := registry.LoadCachesFromConfig(conf.Caches)
	if err != nil {
		t.Fatal(err)
	}
	defer registry.CloseCaches(caches)

	if _, err = assembleChain(conf, caches, tracing.NoopTracer()); err == nil {
		t.Error("expected error for unknown cache name")
	}
}
