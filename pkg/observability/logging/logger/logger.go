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

// Package logger provides the process-wide default Logger so packages can
// log without threading a Logger through every call site
package logger

import (
	"sync/atomic"

	"github.com/halyardhttp/halyard/pkg/observability/logging"
	"github.com/halyardhttp/halyard/pkg/observability/logging/level"
)

var current atomic.Pointer[holder]

type holder struct{ l logging.Logger }

func init() {
	current.Store(&holder{l: logging.ConsoleLogger(level.Info)})
}

// SetLogger replaces the process-wide default Logger
func SetLogger(l logging.Logger) {
	if l != nil {
		current.Store(&holder{l: l})
	}
}

// Logger returns the process-wide default Logger
func Logger() logging.Logger {
	return current.Load().l
}

// Debug logs a Debug event to the default Logger
func Debug(event string, detail logging.Pairs) {
	Logger().Debug(event, detail)
}

// Info logs an Info event to the default Logger
func Info(event string, detail logging.Pairs) {
	Logger().Info(event, detail)
}

// Warn logs a Warn event to the default Logger
func Warn(event string, detail logging.Pairs) {
	Logger().Warn(event, detail)
}

// Error logs an Error event to the default Logger
func Error(event string, detail logging.Pairs) {
	Logger().Error(event, detail)
}

// Fatal logs a Fatal event to the default Logger and exits with code
func Fatal(code int, event string, detail logging.Pairs) {
	Logger().Fatal(code, event, detail)
}

// WarnOnce logs a Warn event only the first time key is seen
func WarnOnce(key, event string, detail logging.Pairs) bool {
	return Logger().WarnOnce(key, event, detail)
}
