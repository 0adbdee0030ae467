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

// Package daemon boots the Halyard process: it loads the configuration,
// stands up the ambient stack (logging, metrics, tracing, caches), assembles
// the middleware chain, and runs the front end server until an exit signal
// arrives
package daemon

import (
	"context"
	"fmt"
	goruntime "runtime"
	"sync"
	"time"

	"github.com/halyardhttp/halyard/pkg/appinfo"
	"github.com/halyardhttp/halyard/pkg/cache"
	"github.com/halyardhttp/halyard/pkg/cache/registry"
	"github.com/halyardhttp/halyard/pkg/config"
	"github.com/halyardhttp/halyard/pkg/daemon/signaling"
	"github.com/halyardhttp/halyard/pkg/errors"
	"github.com/halyardhttp/halyard/pkg/middleware"
	"github.com/halyardhttp/halyard/pkg/middleware/breaker"
	"github.com/halyardhttp/halyard/pkg/middleware/compression"
	"github.com/halyardhttp/halyard/pkg/middleware/httpcache"
	"github.com/halyardhttp/halyard/pkg/middleware/ratelimit"
	tmw "github.com/halyardhttp/halyard/pkg/middleware/tracing"
	"github.com/halyardhttp/halyard/pkg/observability/logging"
	"github.com/halyardhttp/halyard/pkg/observability/logging/logger"
	"github.com/halyardhttp/halyard/pkg/observability/metrics"
	"github.com/halyardhttp/halyard/pkg/observability/tracing"
	"github.com/halyardhttp/halyard/pkg/router"
	"github.com/halyardhttp/halyard/pkg/server"

	"go.opentelemetry.io/otel/trace"
)

// DrainTimeout bounds the graceful shutdown of in-flight requests
const DrainTimeout = 30 * time.Second

var mtx sync.Mutex
var wasStarted bool

// Start runs the daemon with the provided route table until SIGINT or
// SIGTERM. It returns nil immediately for -version and -validate-config
// invocations.
func Start(rtr router.Router, args []string) error {
	mtx.Lock()
	if wasStarted {
		mtx.Unlock()
		return errors.ErrServerAlreadyStarted
	}
	wasStarted = true
	mtx.Unlock()

	conf, flags, err := config.Load(appinfo.Name, appinfo.Version, args)
	if err != nil {
		return err
	}

	if flags.PrintVersion {
		fmt.Println(version())
		return nil
	}
	if flags.ValidateConfig {
		fmt.Println("halyard configuration validation succeeded.")
		return nil
	}

	log := logging.New(conf.Logging)
	logger.SetLogger(log)
	defer log.Close()

	metrics.BuildInfo.WithLabelValues(goruntime.Version(),
		appinfo.GitCommitID, appinfo.Version).Set(1)

	tracer := tracing.NoopTracer()
	var flush tracing.FlushFunc
	if conf.Tracing != nil && conf.Tracing.Enabled {
		tracer, flush, err = tracing.New(conf.Tracing)
		if err != nil {
			return err
		}
	}

	caches, err := registry.LoadCachesFromConfig(conf.Caches)
	if err != nil {
		return err
	}
	defer registry.CloseCaches(caches)

	chain, err := assembleChain(conf, caches, tracer)
	if err != nil {
		return err
	}

	srv := server.New(conf, rtr, chain)
	if err = srv.Start(); err != nil {
		return err
	}

	logger.Info("halyard started", logging.Pairs{
		"name":    appinfo.Name,
		"version": appinfo.Version,
		"server":  conf.Main.ServerName,
	})

	signaling.Wait(context.Background())

	ctx, cancel := context.WithTimeout(context.Background(), DrainTimeout)
	defer cancel()
	err = srv.Shutdown(ctx)
	if flush != nil {
		flush(context.Background())
	}
	return err
}

// assembleChain builds the middleware chain described by the configuration.
// Sections left nil in the configuration leave their middleware out of the
// chain entirely.
func assembleChain(conf *config.Config, caches map[string]cache.Client,
	tracer trace.Tracer) (*middleware.Chain, error) {

	var descriptors []*middleware.Descriptor

	if conf.Tracing != nil && conf.Tracing.Enabled {
		descriptors = append(descriptors, tmw.Descriptor(tracer))
	}

	if conf.RateLimiter != nil {
		rl, err := ratelimit.New(conf.RateLimiter)
		if err != nil {
			return nil, err
		}
		descriptors = append(descriptors, rl.Descriptor())
	}

	if conf.Breaker != nil {
		b, err := breaker.New(conf.Breaker)
		if err != nil {
			return nil, err
		}
		descriptors = append(descriptors, b.Descriptor())
	}

	descriptors = append(descriptors, compression.Descriptor())

	if conf.ResponseCache != nil {
		client, ok := caches[conf.ResponseCache.CacheName]
		if !ok {
			return nil, fmt.Errorf("response cache references unknown cache: %s",
				conf.ResponseCache.CacheName)
		}
		rc, err := httpcache.New(conf.ResponseCache, client)
		if err != nil {
			return nil, err
		}
		descriptors = append(descriptors, rc.Descriptor())
	}

	return middleware.NewChain(descriptors...), nil
}

func version() string {
	return fmt.Sprintf("%s version: %s, buildInfo: %s %s, goVersion: %s",
		appinfo.Name, appinfo.Version, appinfo.BuildTime, appinfo.GitCommitID,
		goruntime.Version())
}
