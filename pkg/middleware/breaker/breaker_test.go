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

package breaker

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/halyardhttp/halyard/pkg/handlers"
	"github.com/halyardhttp/halyard/pkg/headers"
	"github.com/halyardhttp/halyard/pkg/middleware"
	"github.com/halyardhttp/halyard/pkg/middleware/breaker/options"
	"github.com/halyardhttp/halyard/pkg/request"
)

const res = "/api/users"

func newTestBreaker(t *testing.T) (*Breaker, *time.Time) {
	o := options.New()
	o.FailureThreshold = 3
	o.ResetTimeoutSecs = 30
	o.HalfOpenTarget = 2
	b, err := New(o)
	if err != nil {
		t.Fatal(err)
	}
	now := time.Unix(1700000000, 0)
	b.now = func() time.Time { return now }
	return b, &now
}

func TestLifecycle(t *testing.T) {
	b, now := newTestBreaker(t)

	// threshold consecutive failures open the circuit
	for i := 0; i < 3; i++ {
		if s := b.State(res); s != StateClosed {
			t.Fatalf("expected closed before failure %d, got %s", i+1, s)
		}
		b.Record(res, 500)
	}
	if s := b.State(res); s != StateOpen {
		t.Fatalf("expected open, got %s", s)
	}

	// open rejects with the remaining reset time
	allowed, retryAfter := b.Allow(res)
	if allowed {
		t.Fatal("open circuit should reject")
	}
	if retryAfter != 30*time.Second {
		t.Errorf("expected retry after 30s, got %s", retryAfter)
	}

	// after the reset timeout a probe is admitted and the circuit is half-open
	*now = now.Add(31 * time.Second)
	if allowed, _ = b.Allow(res); !allowed {
		t.Fatal("probe should be admitted after reset timeout")
	}
	if s := b.State(res); s != StateHalfOpen {
		t.Fatalf("expected half-open, got %s", s)
	}

	// target consecutive successes close the circuit
	b.Record(res, 200)
	if s := b.State(res); s != StateHalfOpen {
		t.Fatalf("expected half-open after 1 success, got %s", s)
	}
	b.Record(res, 200)
	if s := b.State(res); s != StateClosed {
		t.Fatalf("expected closed after 2 successes, got %s", s)
	}
}

func TestHalfOpenFailureReopens(t *testing.T) {
	b, now := newTestBreaker(t)
	for i := 0; i < 3; i++ {
		b.Record(res, 503)
	}
	*now = now.Add(31 * time.Second)
	b.Allow(res)
	if s := b.State(res); s != StateHalfOpen {
		t.Fatalf("expected half-open, got %s", s)
	}

	b.Record(res, 500)
	if s := b.State(res); s != StateOpen {
		t.Fatalf("expected open after half-open failure, got %s", s)
	}
	// the reopen carries a fresh timestamp
	_, retryAfter := b.Allow(res)
	if retryAfter != 30*time.Second {
		t.Errorf("expected full reset timeout, got %s", retryAfter)
	}
}

func TestSuccessResetsFailureCount(t *testing.T) {
	b, _ := newTestBreaker(t)
	b.Record(res, 500)
	b.Record(res, 500)
	b.Record(res, 200)
	b.Record(res, 500)
	b.Record(res, 500)
	if s := b.State(res); s != StateClosed {
		t.Errorf("expected closed, non-consecutive failures must not open; got %s", s)
	}
}

func TestClientErrorsAreNotFailures(t *testing.T) {
	b, _ := newTestBreaker(t)
	for i := 0; i < 10; i++ {
		b.Record(res, 404)
	}
	if s := b.State(res); s != StateClosed {
		t.Errorf("expected closed, got %s", s)
	}
}

func TestResourcesAreIndependent(t *testing.T) {
	b, _ := newTestBreaker(t)
	for i := 0; i < 3; i++ {
		b.Record("/a", 500)
	}
	if s := b.State("/a"); s != StateOpen {
		t.Fatalf("expected /a open, got %s", s)
	}
	if allowed, _ := b.Allow("/b"); !allowed {
		t.Error("unrelated resource should be unaffected")
	}
}

func TestSingleTransitionWinner(t *testing.T) {
	b, now := newTestBreaker(t)
	for i := 0; i < 3; i++ {
		b.Record(res, 500)
	}
	*now = now.Add(31 * time.Second)

	var admitted int32
	done := make(chan struct{})
	for i := 0; i < 16; i++ {
		go func() {
			if ok, _ := b.Allow(res); ok {
				atomic.AddInt32(&admitted, 1)
			}
			done <- struct{}{}
		}()
	}
	for i := 0; i < 16; i++ {
		<-done
	}
	// all callers proceed as probes, but the state moved exactly once
	if admitted != 16 {
		t.Errorf("expected all 16 admitted, got %d", admitted)
	}
	if s := b.State(res); s != StateHalfOpen {
		t.Errorf("expected half-open, got %s", s)
	}
}

func TestDescriptor(t *testing.T) {
	o := options.New()
	o.FailureThreshold = 2
	b, err := New(o)
	if err != nil {
		t.Fatal(err)
	}
	chain := middleware.NewChain(b.Descriptor())
	failing := handlers.HandlerFunc(func(ctx *request.Context) (*request.Response, error) {
		return request.NewResponse(http.StatusBadGateway), nil
	})

	run := func() *request.Response {
		r := httptest.NewRequest(http.MethodGet, "http://example.com/api/users", nil)
		ctx := request.New(context.Background(), r)
		ctx.RoutePattern = res
		defer ctx.Release()
		return chain.Execute(ctx, failing)
	}

	for i := 0; i < 2; i++ {
		if resp := run(); resp.StatusCode != http.StatusBadGateway {
			t.Fatalf("expected 502, got %d", resp.StatusCode)
		}
	}

	// the opened circuit rejects without invoking the handler
	resp := run()
	if resp.StatusCode != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", resp.StatusCode)
	}
	if resp.Header.Get(headers.NameRetryAfter) == "" {
		t.Error("expected Retry-After header")
	}
	if !strings.Contains(string(resp.Body), "retry_after") {
		t.Errorf("expected retry_after in body, got %s", resp.Body)
	}

	// rejections must not count as failures against the circuit itself
	if s := b.State(res); s != StateOpen {
		t.Errorf("expected open, got %s", s)
	}
}
