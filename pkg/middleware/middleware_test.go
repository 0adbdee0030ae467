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

package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/halyardhttp/halyard/pkg/handlers"
	"github.com/halyardhttp/halyard/pkg/request"
)

func newTestContext(t *testing.T) *request.Context {
	r := httptest.NewRequest(http.MethodGet, "http://example.com/test", nil)
	ctx := request.New(context.Background(), r)
	t.Cleanup(ctx.Release)
	return ctx
}

func okHandler(body string) handlers.Handler {
	return handlers.HandlerFunc(func(ctx *request.Context) (*request.Response, error) {
		return request.NewResponse(http.StatusOK).SetBody([]byte(body), "text/plain"), nil
	})
}

func recordingDescriptor(name string, priority int, log *[]string) *Descriptor {
	return &Descriptor{
		Name:     name,
		Priority: priority,
		Pre: func(ctx *request.Context) (*request.Response, error) {
			*log = append(*log, "pre:"+name)
			return nil, nil
		},
		Post: func(ctx *request.Context, resp *request.Response) {
			*log = append(*log, "post:"+name)
		},
	}
}

func TestExecutionOrder(t *testing.T) {
	var log []string
	// registered out of order; the chain sorts by priority
	c := NewChain(
		recordingDescriptor("b", 20, &log),
		recordingDescriptor("a", 10, &log),
		recordingDescriptor("c", 30, &log),
	)
	resp := c.Execute(newTestContext(t), okHandler("ok"))
	if resp.StatusCode != http.StatusOK {
		t.Errorf("expected 200, got %d", resp.StatusCode)
	}
	want := "pre:a,pre:b,pre:c,post:c,post:b,post:a"
	if got := strings.Join(log, ","); got != want {
		t.Errorf("expected %s, got %s", want, got)
	}
}

func TestShortCircuit(t *testing.T) {
	var log []string
	blocker := &Descriptor{
		Name:     "blocker",
		Priority: 20,
		Pre: func(ctx *request.Context) (*request.Response, error) {
			log = append(log, "pre:blocker")
			return request.NewResponse(http.StatusTooManyRequests), nil
		},
		Post: func(ctx *request.Context, resp *request.Response) {
			log = append(log, "post:blocker")
		},
	}
	handlerRan := false
	h := handlers.HandlerFunc(func(ctx *request.Context) (*request.Response, error) {
		handlerRan = true
		return request.NewResponse(http.StatusOK), nil
	})

	c := NewChain(
		recordingDescriptor("a", 10, &log),
		blocker,
		recordingDescriptor("c", 30, &log),
	)
	resp := c.Execute(newTestContext(t), h)
	if handlerRan {
		t.Error("handler should not run after a terminal pre response")
	}
	if resp.StatusCode != http.StatusTooManyRequests {
		t.Errorf("expected 429, got %d", resp.StatusCode)
	}
	// post runs in reverse from the short-circuiting descriptor; "c" never ran
	want := "pre:a,pre:blocker,post:blocker,post:a"
	if got := strings.Join(log, ","); got != want {
		t.Errorf("expected %s, got %s", want, got)
	}
}

func TestPanicInHandler(t *testing.T) {
	var log []string
	c := NewChain(recordingDescriptor("a", 10, &log))
	h := handlers.HandlerFunc(func(ctx *request.Context) (*request.Response, error) {
		panic("boom")
	})
	resp := c.Execute(newTestContext(t), h)
	if resp.StatusCode != http.StatusInternalServerError {
		t.Errorf("expected 500, got %d", resp.StatusCode)
	}
	// post passes still run so boundary middlewares can record the outcome
	if got := strings.Join(log, ","); got != "pre:a,post:a" {
		t.Errorf("unexpected order: %s", got)
	}
}

func TestPanicInPre(t *testing.T) {
	c := NewChain(&Descriptor{
		Name:     "bad",
		Priority: 10,
		Pre: func(ctx *request.Context) (*request.Response, error) {
			panic("boom")
		},
	})
	resp := c.Execute(newTestContext(t), okHandler("ok"))
	if resp.StatusCode != http.StatusInternalServerError {
		t.Errorf("expected 500, got %d", resp.StatusCode)
	}
}

func TestPanicInPost(t *testing.T) {
	c := NewChain(&Descriptor{
		Name:     "bad",
		Priority: 10,
		Post: func(ctx *request.Context, resp *request.Response) {
			panic("boom")
		},
	})
	resp := c.Execute(newTestContext(t), okHandler("ok"))
	// the handler response survives a post-phase panic
	if resp.StatusCode != http.StatusOK {
		t.Errorf("expected 200, got %d", resp.StatusCode)
	}
}

func TestHandlerError(t *testing.T) {
	c := NewChain()
	h := handlers.HandlerFunc(func(ctx *request.Context) (*request.Response, error) {
		return nil, context.DeadlineExceeded
	})
	resp := c.Execute(newTestContext(t), h)
	if resp.StatusCode != http.StatusInternalServerError {
		t.Errorf("expected 500, got %d", resp.StatusCode)
	}
	if strings.Contains(string(resp.Body), "deadline") {
		t.Error("error detail must not leak without debug")
	}

	c.SetDebug(true)
	resp = c.Execute(newTestContext(t), h)
	if !strings.Contains(string(resp.Body), "deadline") {
		t.Error("expected error detail with debug enabled")
	}
}

func TestDeadlineAbortsChain(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "http://example.com/test", nil)
	parent, cancel := context.WithDeadline(context.Background(),
		time.Now().Add(-time.Second))
	defer cancel()
	ctx := request.New(parent, r)
	defer ctx.Release()

	handlerRan := false
	h := handlers.HandlerFunc(func(ctx *request.Context) (*request.Response, error) {
		handlerRan = true
		return request.NewResponse(http.StatusOK), nil
	})
	resp := NewChain().Execute(ctx, h)
	if handlerRan {
		t.Error("handler should not run past the deadline")
	}
	if resp.StatusCode != http.StatusGatewayTimeout {
		t.Errorf("expected 504, got %d", resp.StatusCode)
	}
}
