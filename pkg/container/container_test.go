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

package container

import (
	goerrors "errors"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/halyardhttp/halyard/pkg/errors"
	"github.com/halyardhttp/halyard/pkg/request"
)

type widget struct{ n int }

func newTestContext() *request.Context {
	return request.New(nil, httptest.NewRequest("GET", "/", nil))
}

func TestSingletonScope(t *testing.T) {
	c := New()
	var calls int
	c.RegisterSingleton("widget", func(*Resolver) (any, error) {
		calls++
		return &widget{n: calls}, nil
	})

	ctx1 := newTestContext()
	ctx2 := newTestContext()
	v1, err := c.Resolve("widget", ctx1)
	if err != nil {
		t.Fatal(err)
	}
	v2, err := c.Resolve("widget", ctx2)
	if err != nil {
		t.Fatal(err)
	}
	// reference-identical across different requests
	if v1.(*widget) != v2.(*widget) {
		t.Error("expected the same singleton instance across requests")
	}
	if calls != 1 {
		t.Errorf("expected 1 provider call, got %d", calls)
	}
}

func TestSingletonConcurrent(t *testing.T) {
	c := New()
	var calls int
	c.RegisterSingleton("widget", func(*Resolver) (any, error) {
		calls++
		return &widget{}, nil
	})
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			c.Resolve("widget", nil)
		}()
	}
	wg.Wait()
	if calls != 1 {
		t.Errorf("expected 1 provider call, got %d", calls)
	}
}

func TestRequestScope(t *testing.T) {
	c := New()
	var calls int
	c.RegisterRequest("session", func(*Resolver) (any, error) {
		calls++
		return &widget{n: calls}, nil
	})

	ctx1 := newTestContext()
	v1, _ := c.Resolve("session", ctx1)
	v2, _ := c.Resolve("session", ctx1)
	if v1.(*widget) != v2.(*widget) {
		t.Error("expected the same instance within one request")
	}
	ctx2 := newTestContext()
	v3, _ := c.Resolve("session", ctx2)
	if v1.(*widget) == v3.(*widget) {
		t.Error("expected a new instance for a new request")
	}
	if calls != 2 {
		t.Errorf("expected 2 provider calls, got %d", calls)
	}
}

func TestTransientScope(t *testing.T) {
	c := New()
	var calls int
	c.RegisterTransient("uid", func(*Resolver) (any, error) {
		calls++
		return calls, nil
	})
	ctx := newTestContext()
	c.Resolve("uid", ctx)
	c.Resolve("uid", ctx)
	if calls != 2 {
		t.Errorf("expected 2 provider calls, got %d", calls)
	}
}

func TestNestedResolution(t *testing.T) {
	c := New()
	c.RegisterValue("config", "dsn://db")
	c.RegisterSingleton("db", func(r *Resolver) (any, error) {
		dsn, err := r.Resolve("config")
		if err != nil {
			return nil, err
		}
		return "db(" + dsn.(string) + ")", nil
	})
	v, err := c.Resolve("db", nil)
	if err != nil {
		t.Fatal(err)
	}
	if v.(string) != "db(dsn://db)" {
		t.Errorf("unexpected value %v", v)
	}
}

func TestCircularDependency(t *testing.T) {
	c := New()
	c.RegisterTransient("a", func(r *Resolver) (any, error) {
		return r.Resolve("b")
	})
	c.RegisterTransient("b", func(r *Resolver) (any, error) {
		return r.Resolve("a")
	})
	_, err := c.Resolve("a", nil)
	if !goerrors.Is(err, errors.ErrCircularDependency) {
		t.Errorf("expected ErrCircularDependency, got %v", err)
	}
}

func TestNotRegistered(t *testing.T) {
	c := New()
	_, err := c.Resolve("ghost", nil)
	if !goerrors.Is(err, errors.ErrNotRegistered) {
		t.Errorf("expected ErrNotRegistered, got %v", err)
	}
}

func TestProviderFailure(t *testing.T) {
	c := New()
	c.RegisterTransient("boom", func(*Resolver) (any, error) {
		return nil, goerrors.New("db unreachable")
	})
	_, err := c.Resolve("boom", nil)
	var pf *errors.ErrProviderFailed
	if !goerrors.As(err, &pf) {
		t.Fatalf("expected ErrProviderFailed, got %v", err)
	}
	if pf.Name != "boom" {
		t.Errorf("expected provider name boom, got %s", pf.Name)
	}
}

func TestProviderPanic(t *testing.T) {
	c := New()
	c.RegisterTransient("panicky", func(*Resolver) (any, error) {
		panic("kaboom")
	})
	_, err := c.Resolve("panicky", nil)
	var pf *errors.ErrProviderFailed
	if !goerrors.As(err, &pf) {
		t.Fatalf("expected ErrProviderFailed, got %v", err)
	}
}
