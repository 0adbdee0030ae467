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

package server

import (
	"context"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/halyardhttp/halyard/pkg/config"
	"github.com/halyardhttp/halyard/pkg/errors"
	"github.com/halyardhttp/halyard/pkg/handlers"
	"github.com/halyardhttp/halyard/pkg/headers"
	"github.com/halyardhttp/halyard/pkg/middleware"
	"github.com/halyardhttp/halyard/pkg/request"
	"github.com/halyardhttp/halyard/pkg/router"
	"github.com/halyardhttp/halyard/pkg/router/radix"
)

func echoHandler(ctx *request.Context) (*request.Response, error) {
	resp := request.NewResponse(http.StatusOK)
	resp.SetBody([]byte("user "+ctx.Param("id")), headers.ValueTextPlain)
	return resp, nil
}

type blockingHandler struct {
	delay time.Duration
	body  string
}

func (h *blockingHandler) Blocking() bool { return true }

func (h *blockingHandler) Invoke(ctx *request.Context) (*request.Response, error) {
	time.Sleep(h.delay)
	resp := request.NewResponse(http.StatusOK)
	resp.SetBody([]byte(h.body), headers.ValueTextPlain)
	return resp, nil
}

func testServer(t *testing.T, mutate func(c *config.Config)) (*Server, router.Router) {
	t.Helper()
	c := config.New()
	c.Frontend.ListenPort = 0
	c.Metrics.ListenPort = 0
	if mutate != nil {
		mutate(c)
	}
	rt := radix.NewRouter()
	if err := rt.AddRoute("GET", "/users/{id:int}",
		handlers.HandlerFunc(echoHandler)); err != nil {
		t.Fatal(err)
	}
	return New(c, rt, middleware.NewChain()), rt
}

func TestServeRequest(t *testing.T) {
	s, _ := testServer(t, nil)
	ts := httptest.NewServer(s.Handler())
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/users/42")
	if err != nil {
		t.Fatal(err)
	}
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	if resp.StatusCode != 200 || string(body) != "user 42" {
		t.Errorf("expected 200 user 42, got %d %s", resp.StatusCode, body)
	}

	resp, err = http.Get(ts.URL + "/missing")
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != 404 {
		t.Errorf("expected 404, got %d", resp.StatusCode)
	}
}

func TestMethodNotAllowed(t *testing.T) {
	s, _ := testServer(t, nil)
	ts := httptest.NewServer(s.Handler())
	defer ts.Close()

	req, _ := http.NewRequest(http.MethodDelete, ts.URL+"/users/42", nil)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != 405 {
		t.Errorf("expected 405, got %d", resp.StatusCode)
	}
	if allow := resp.Header.Get(headers.NameAllow); !strings.Contains(allow, "GET") {
		t.Errorf("expected Allow header with GET, got %q", allow)
	}
}

func TestPingAndConfigHandlers(t *testing.T) {
	s, _ := testServer(t, func(c *config.Config) {
		c.Main.ConfigHandlerPath = "/halyard/config"
	})
	ts := httptest.NewServer(s.Handler())
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/halyard/ping")
	if err != nil {
		t.Fatal(err)
	}
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	if resp.StatusCode != 200 || string(body) != "pong" {
		t.Errorf("expected pong, got %d %s", resp.StatusCode, body)
	}

	resp, err = http.Get(ts.URL + "/halyard/config")
	if err != nil {
		t.Fatal(err)
	}
	body, _ = io.ReadAll(resp.Body)
	resp.Body.Close()
	if resp.StatusCode != 200 || !strings.Contains(string(body), "frontend:") {
		t.Errorf("expected running config yaml, got %d %s", resp.StatusCode, body)
	}
}

func TestHeadOmitsBody(t *testing.T) {
	s, _ := testServer(t, nil)
	rt := radix.NewRouter()
	rt.AddRoute("HEAD", "/users/{id:int}", handlers.HandlerFunc(echoHandler))
	s.router = rt
	ts := httptest.NewServer(s.Handler())
	defer ts.Close()

	resp, err := http.Head(ts.URL + "/users/42")
	if err != nil {
		t.Fatal(err)
	}
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	if len(body) != 0 {
		t.Errorf("expected empty body on HEAD, got %q", body)
	}
	if cl := resp.Header.Get(headers.NameContentLength); cl != "7" {
		t.Errorf("expected Content-Length 7, got %q", cl)
	}
}

func TestRequestDeadline(t *testing.T) {
	s, rt := testServer(t, func(c *config.Config) {
		c.Frontend.RequestTimeoutMS = 50
	})
	rt.AddRoute("GET", "/slow", handlers.HandlerFunc(
		func(ctx *request.Context) (*request.Response, error) {
			time.Sleep(150 * time.Millisecond)
			return request.NewResponse(http.StatusOK), nil
		}))
	ts := httptest.NewServer(s.Handler())
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/slow")
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != 504 {
		t.Errorf("expected 504 after deadline, got %d", resp.StatusCode)
	}
}

func TestBlockingHandlerOffload(t *testing.T) {
	s, rt := testServer(t, nil)
	rt.AddRoute("GET", "/report", &blockingHandler{body: "done"})
	ts := httptest.NewServer(s.Handler())
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/report")
	if err != nil {
		t.Fatal(err)
	}
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	if resp.StatusCode != 200 || string(body) != "done" {
		t.Errorf("expected 200 done, got %d %s", resp.StatusCode, body)
	}
}

func TestBlockingHandlerAbandonedAtDeadline(t *testing.T) {
	s, rt := testServer(t, func(c *config.Config) {
		c.Frontend.RequestTimeoutMS = 50
	})
	rt.AddRoute("GET", "/stuck", &blockingHandler{delay: 2 * time.Second})
	ts := httptest.NewServer(s.Handler())
	defer ts.Close()

	start := time.Now()
	resp, err := http.Get(ts.URL + "/stuck")
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != 504 {
		t.Errorf("expected 504, got %d", resp.StatusCode)
	}
	// the 504 must not wait for the stuck worker
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Errorf("deadline response took %v", elapsed)
	}
}

func TestWorkerPoolSaturation(t *testing.T) {
	p := newWorkerPool(1)
	hold := make(chan struct{})
	if !p.Submit(func() { <-hold }) {
		t.Fatal("expected first task to be accepted")
	}
	// the single worker is busy; the pool must refuse rather than queue
	time.Sleep(10 * time.Millisecond)
	if p.Submit(func() {}) {
		t.Error("expected saturated pool to refuse the task")
	}
	close(hold)
	p.Close()
}

func TestStartShutdown(t *testing.T) {
	s, _ := testServer(t, nil)
	if err := s.Start(); err != nil {
		t.Fatal(err)
	}
	if err := s.Start(); err != errors.ErrServerAlreadyStarted {
		t.Errorf("expected ErrServerAlreadyStarted, got %v", err)
	}

	resp, err := http.Get("http://" + s.Addr() + "/users/7")
	if err != nil {
		t.Fatal(err)
	}
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	if resp.StatusCode != 200 || string(body) != "user 7" {
		t.Errorf("expected 200 user 7, got %d %s", resp.StatusCode, body)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := s.Shutdown(ctx); err != nil {
		t.Fatal(err)
	}
}

func TestReusePortListeners(t *testing.T) {
	l1, err := NewListener("127.0.0.1", 0, 0, true)
	if err != nil {
		t.Fatal(err)
	}
	defer l1.Close()
	port := l1.Addr().(*net.TCPAddr).Port

	l2, err := NewListener("127.0.0.1", port, 0, true)
	if err != nil {
		t.Fatalf("expected second listener to share the port: %v", err)
	}
	l2.Close()
}

func TestConnectionLimit(t *testing.T) {
	l, err := NewListener("127.0.0.1", 0, 1, false)
	if err != nil {
		t.Fatal(err)
	}
	defer l.Close()

	accepted := make(chan net.Conn, 4)
	go func() {
		for {
			c, err := l.Accept()
			if err != nil {
				return
			}
			accepted <- c
		}
	}()

	c1, err := net.Dial("tcp", l.Addr().String())
	if err != nil {
		t.Fatal(err)
	}
	defer c1.Close()
	held := <-accepted
	defer held.Close()

	// the limit is reached; the next connection must be closed by the
	// listener rather than accepted
	c2, err := net.Dial("tcp", l.Addr().String())
	if err != nil {
		t.Fatal(err)
	}
	defer c2.Close()
	c2.SetReadDeadline(time.Now().Add(2 * time.Second))
	if _, err = c2.Read(make([]byte, 1)); err != io.EOF {
		t.Errorf("expected EOF on over-limit connection, got %v", err)
	}
}
