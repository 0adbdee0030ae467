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

// Package signaling blocks the daemon until an exit signal arrives
package signaling

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/halyardhttp/halyard/pkg/observability/logging"
	"github.com/halyardhttp/halyard/pkg/observability/logging/logger"
)

// Wait blocks until SIGINT or SIGTERM is delivered, or until the provided
// context is canceled
func Wait(ctx context.Context) {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)
	defer signal.Stop(sigs)
	for {
		select {
		case <-ctx.Done():
			return
		case sig := <-sigs:
			switch sig {
			case syscall.SIGHUP:
				logger.Warn("configuration reload is not supported; "+
					"restart the process to apply changes",
					logging.Pairs{"signal": "SIGHUP"})
			case syscall.SIGINT, syscall.SIGTERM:
				logger.Info("exit signal received",
					logging.Pairs{"signal": sig.String()})
				return
			}
		}
	}
}
