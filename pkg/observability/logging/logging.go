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

// Package logging provides the leveled key/value logger used throughout the
// request pipeline, writing to the console or to a size-managed rolling
// log file
package logging

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/halyardhttp/halyard/pkg/observability/logging/level"
	lumberjack "gopkg.in/natefinch/lumberjack.v2"
)

var (
	_ Logger = &logger{}
)

// Pairs represents key=value pairs that describe a log event
type Pairs map[string]any

// Logger is the pipeline's logging interface
type Logger interface {
	SetLogLevel(level.Level)
	Level() level.Level
	Close()
	Log(logLevel level.Level, event string, detail Pairs)
	Debug(event string, detail Pairs)
	Info(event string, detail Pairs)
	Warn(event string, detail Pairs)
	Error(event string, detail Pairs)
	Fatal(code int, event string, detail Pairs)
	WarnOnce(key, event string, detail Pairs) bool
}

// Options specifies where and how verbosely a Logger writes
type Options struct {
	// LogFile is the path to the log file; empty logs to the console
	LogFile string `yaml:"log_file,omitempty"`
	// LogLevel is the most granular level to log (debug, info, warn, error)
	LogLevel string `yaml:"log_level,omitempty"`
}

// NewOptions returns Options with default values
func NewOptions() *Options {
	return &Options{LogLevel: string(level.Info)}
}

// New returns a Logger for the provided options
func New(o *Options) Logger {
	if o == nil {
		o = NewOptions()
	}
	l := &logger{now: time.Now}
	if o.LogFile == "" {
		l.writer = os.Stdout
	} else {
		l.writer = &lumberjack.Logger{
			Filename:   o.LogFile,
			MaxSize:    256, // megabytes
			MaxBackups: 24,
			MaxAge:     7, // days
			Compress:   true,
		}
	}
	if c, ok := l.writer.(io.Closer); ok {
		l.closer = c
	}
	l.SetLogLevel(level.Level(o.LogLevel))
	return l
}

// NoopLogger returns a Logger that discards everything
func NoopLogger() Logger {
	return &logger{levelID: level.FatalID + 1, lvl: level.Level("none"),
		now: time.Now, writer: io.Discard}
}

// ConsoleLogger returns a Logger that writes to stdout at the given level
func ConsoleLogger(logLevel level.Level) Logger {
	l := &logger{now: time.Now, writer: os.Stdout}
	l.SetLogLevel(logLevel)
	return l
}

type logger struct {
	mtx     sync.Mutex
	writer  io.Writer
	closer  io.Closer
	lvl     level.Level
	levelID level.ID
	onceMtx sync.Mutex
	once    map[string]bool
	now     func() time.Time
}

func (l *logger) SetLogLevel(logLevel level.Level) {
	id := level.GetLevelID(logLevel)
	if id == 0 {
		logLevel, id = level.Info, level.InfoID
	}
	l.mtx.Lock()
	l.lvl, l.levelID = logLevel, id
	l.mtx.Unlock()
}

func (l *logger) Level() level.Level {
	l.mtx.Lock()
	defer l.mtx.Unlock()
	return l.lvl
}

func (l *logger) Close() {
	if l.closer != nil {
		l.closer.Close()
	}
}

func (l *logger) Log(logLevel level.Level, event string, detail Pairs) {
	id := level.GetLevelID(logLevel)
	if id == 0 || id < l.levelID {
		return
	}
	l.write(logLevel, event, detail)
}

func (l *logger) Debug(event string, detail Pairs) { l.Log(level.Debug, event, detail) }
func (l *logger) Info(event string, detail Pairs)  { l.Log(level.Info, event, detail) }
func (l *logger) Warn(event string, detail Pairs)  { l.Log(level.Warn, event, detail) }
func (l *logger) Error(event string, detail Pairs) { l.Log(level.Error, event, detail) }

func (l *logger) Fatal(code int, event string, detail Pairs) {
	l.write(level.Fatal, event, detail)
	l.Close()
	if code >= 0 {
		os.Exit(code)
	}
}

// WarnOnce logs the event only the first time key is seen, and reports
// whether it logged
func (l *logger) WarnOnce(key, event string, detail Pairs) bool {
	l.onceMtx.Lock()
	if l.once == nil {
		l.once = make(map[string]bool)
	}
	if l.once[key] {
		l.onceMtx.Unlock()
		return false
	}
	l.once[key] = true
	l.onceMtx.Unlock()
	l.Warn(event, detail)
	return true
}

func (l *logger) write(logLevel level.Level, event string, detail Pairs) {
	sb := &strings.Builder{}
	sb.WriteString("time=" + l.now().UTC().Format(time.RFC3339Nano))
	sb.WriteString(" app=halyard level=" + string(logLevel))
	sb.WriteString(" event=" + quoteIfNeeded(event))
	if len(detail) > 0 {
		keys := make([]string, 0, len(detail))
		for k := range detail {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			sb.WriteString(" " + k + "=" + formatValue(detail[k]))
		}
	}
	sb.WriteString("\n")
	l.mtx.Lock()
	l.writer.Write([]byte(sb.String()))
	l.mtx.Unlock()
}

func formatValue(v any) string {
	switch t := v.(type) {
	case string:
		return quoteIfNeeded(t)
	case error:
		return quoteIfNeeded(t.Error())
	case time.Duration:
		return t.String()
	default:
		return quoteIfNeeded(fmt.Sprintf("%v", t))
	}
}

func quoteIfNeeded(s string) string {
	if strings.ContainsAny(s, " \t\"=") {
		return strconv.Quote(s)
	}
	return s
}
