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

// Package server runs the request pipeline: it owns the front end listeners,
// bridges inbound HTTP requests into the router and middleware chain, bounds
// blocking handler execution with a worker pool, and drains gracefully on
// shutdown
package server

import (
	"context"
	goerrors "errors"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/halyardhttp/halyard/pkg/config"
	"github.com/halyardhttp/halyard/pkg/errors"
	"github.com/halyardhttp/halyard/pkg/handlers"
	"github.com/halyardhttp/halyard/pkg/headers"
	"github.com/halyardhttp/halyard/pkg/middleware"
	"github.com/halyardhttp/halyard/pkg/observability/logging"
	"github.com/halyardhttp/halyard/pkg/observability/logging/logger"
	"github.com/halyardhttp/halyard/pkg/observability/metrics"
	"github.com/halyardhttp/halyard/pkg/request"
	"github.com/halyardhttp/halyard/pkg/router"

	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"
)

// Server binds the configured listeners and serves the request pipeline
type Server struct {
	conf   *config.Config
	router router.Router
	chain  *middleware.Chain
	pool   *workerPool

	mtx       sync.Mutex
	started   bool
	servers   []*http.Server
	listeners []net.Listener
	serveWG   sync.WaitGroup
	serveErr  error
}

// New returns a Server for the provided configuration, route table and
// middleware chain
func New(conf *config.Config, rtr router.Router, chain *middleware.Chain) *Server {
	chain.SetDebug(conf.Main.Debug)
	return &Server{
		conf:   conf,
		router: rtr,
		chain:  chain,
		pool:   newWorkerPool(conf.Frontend.WorkerPoolSize),
	}
}

// Handler returns the http.Handler serving the pipeline plus the built-in
// ping and running-config endpoints
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	if p := s.conf.Main.PingHandlerPath; p != "" {
		mux.HandleFunc(p, s.pingHandler)
	}
	if p := s.conf.Main.ConfigHandlerPath; p != "" {
		mux.HandleFunc(p, s.configHandler)
	}
	mux.HandleFunc("/", s.serveRequest)
	return mux
}

// Start binds the front end listeners and begins serving. It returns
// ErrServerAlreadyStarted if the Server is already running; listener bind
// failures are returned before any goroutine is started.
func (s *Server) Start() error {
	s.mtx.Lock()
	defer s.mtx.Unlock()
	if s.started {
		return errors.ErrServerAlreadyStarted
	}

	fc := s.conf.Frontend
	count := fc.ListenerCount
	if count < 1 {
		count = 1
	}
	// multiple listeners on one port require SO_REUSEPORT
	reusePort := count > 1

	handler := s.Handler()
	if fc.H2C {
		handler = h2c.NewHandler(handler, &http2.Server{})
	}

	listeners := make([]net.Listener, 0, count)
	port := fc.ListenPort
	for i := 0; i < count; i++ {
		l, err := NewListener(fc.ListenAddress, port, fc.ConnectionsLimit,
			reusePort)
		if err != nil {
			for _, pl := range listeners {
				pl.Close()
			}
			return err
		}
		// with an ephemeral port, subsequent listeners must share the
		// port the kernel picked for the first
		if port == 0 {
			port = l.Addr().(*net.TCPAddr).Port
		}
		listeners = append(listeners, l)
	}

	for _, l := range listeners {
		hs := &http.Server{
			Handler:           handler,
			ReadHeaderTimeout: time.Duration(fc.ReadHeaderTimeoutMS) * time.Millisecond,
			IdleTimeout:       time.Duration(fc.IdleTimeoutMS) * time.Millisecond,
		}
		s.servers = append(s.servers, hs)
		s.serveWG.Add(1)
		go func(hs *http.Server, l net.Listener) {
			defer s.serveWG.Done()
			if err := hs.Serve(l); err != nil &&
				!goerrors.Is(err, http.ErrServerClosed) {
				s.mtx.Lock()
				s.serveErr = err
				s.mtx.Unlock()
				logger.Error("front end listener exited",
					logging.Pairs{"detail": err})
			}
		}(hs, l)
	}
	s.listeners = listeners

	if mc := s.conf.Metrics; mc != nil && mc.ListenPort > 0 {
		metrics.ListenAndServe(mc.ListenAddress, mc.ListenPort)
	}

	logger.Info("front end serving", logging.Pairs{
		"address":   fc.ListenAddress,
		"port":      port,
		"listeners": count,
		"h2c":       fc.H2C,
	})
	s.started = true
	return nil
}

// Addr returns the address of the first bound listener, or an empty string
// when the Server is not started
func (s *Server) Addr() string {
	s.mtx.Lock()
	defer s.mtx.Unlock()
	if len(s.listeners) == 0 {
		return ""
	}
	return s.listeners[0].Addr().String()
}

// Shutdown gracefully drains in-flight requests and releases the listeners
// and the worker pool. The provided context bounds the drain.
func (s *Server) Shutdown(ctx context.Context) error {
	s.mtx.Lock()
	if !s.started {
		s.mtx.Unlock()
		return nil
	}
	servers := s.servers
	s.servers = nil
	s.listeners = nil
	s.started = false
	s.mtx.Unlock()

	var firstErr error
	for _, hs := range servers {
		if err := hs.Shutdown(ctx); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	s.serveWG.Wait()
	s.pool.Close()
	logger.Info("front end stopped", nil)
	return firstErr
}

// serveRequest is the pipeline bridge: it matches the route, builds the
// request Context with the configured deadline, executes the middleware
// chain, and writes the resulting response to the transport
func (s *Server) serveRequest(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	isHead := r.Method == http.MethodHead

	parent := r.Context()
	if timeout := s.conf.Frontend.RequestTimeout(); timeout > 0 {
		var cancel context.CancelFunc
		parent, cancel = context.WithTimeout(parent, timeout)
		defer cancel()
	}

	pattern := "none"
	var resp *request.Response
	m, err := s.router.Match(r.Method, r.URL.Path)
	switch {
	case goerrors.Is(err, errors.ErrMethodNotAllowed):
		resp = handlers.MethodNotAllowed(m.Allowed)
	case err != nil:
		resp = handlers.NotFound()
	default:
		pattern = m.Route.Pattern
		ctx := request.New(parent, r)
		ctx.Params = m.Params
		ctx.RoutePattern = m.Route.Pattern
		ctx.RouteTags = m.Route.Tags
		var completed bool
		resp, completed = s.execute(ctx, m.Route.Handler, parent)
		if completed {
			ctx.Release()
		}
	}

	resp.WriteTo(w, isHead)

	metrics.FrontendRequestStatus.WithLabelValues(r.Method, pattern,
		strconv.Itoa(resp.StatusCode)).Inc()
	metrics.FrontendRequestDuration.WithLabelValues(r.Method, pattern).
		Observe(time.Since(start).Seconds())
}

// execute runs the chain for the request. Handlers marked Blocking run on
// the worker pool while the serving goroutine waits with the deadline; when
// the pool is saturated the handler degrades to inline execution. completed
// is false when the deadline fired first, in which case the Context is still
// owned by the abandoned worker and must not be recycled.
func (s *Server) execute(ctx *request.Context, h handlers.Handler,
	parent context.Context) (resp *request.Response, completed bool) {

	if b, ok := h.(Blocking); !ok || !b.Blocking() {
		return s.chain.Execute(ctx, h), true
	}

	done := make(chan *request.Response, 1)
	if !s.pool.Submit(func() { done <- s.chain.Execute(ctx, h) }) {
		return s.chain.Execute(ctx, h), true
	}
	select {
	case resp = <-done:
		return resp, true
	case <-parent.Done():
		logger.Warn("blocking handler abandoned at deadline",
			logging.Pairs{"pattern": ctx.RoutePattern})
		return handlers.GatewayTimeout(), false
	}
}

func (s *Server) pingHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set(headers.NameContentType, headers.ValueTextPlain)
	w.Header().Set(headers.NameCacheControl, headers.ValueNoCache)
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("pong"))
}

func (s *Server) configHandler(w http.ResponseWriter, r *http.Request) {
	data, err := s.conf.ToYAML()
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set(headers.NameContentType, "application/yaml")
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}
