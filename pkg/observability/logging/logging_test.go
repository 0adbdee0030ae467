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

package logging

import (
	"strings"
	"testing"
	"time"

	"github.com/halyardhttp/halyard/pkg/observability/logging/level"
)

type captureWriter struct{ lines []string }

func (w *captureWriter) Write(p []byte) (int, error) {
	w.lines = append(w.lines, string(p))
	return len(p), nil
}

func newCaptureLogger(lvl level.Level) (*logger, *captureWriter) {
	w := &captureWriter{}
	l := &logger{writer: w, now: func() time.Time {
		return time.Unix(1700000000, 0)
	}}
	l.SetLogLevel(lvl)
	return l, w
}

func TestLevelFiltering(t *testing.T) {
	l, w := newCaptureLogger(level.Warn)
	l.Debug("too quiet", nil)
	l.Info("also quiet", nil)
	l.Warn("heard", nil)
	l.Error("also heard", nil)
	if len(w.lines) != 2 {
		t.Errorf("expected 2 lines, got %d", len(w.lines))
	}
}

func TestPairFormatting(t *testing.T) {
	l, w := newCaptureLogger(level.Info)
	l.Info("served request", Pairs{
		"status": 200,
		"detail": "has spaces",
		"elapsedMS": 12,
	})
	if len(w.lines) != 1 {
		t.Fatalf("expected 1 line, got %d", len(w.lines))
	}
	line := w.lines[0]
	if !strings.Contains(line, "app=halyard") ||
		!strings.Contains(line, "level=info") ||
		!strings.Contains(line, "event=\"served request\"") {
		t.Errorf("unexpected line: %s", line)
	}
	// pairs are sorted by key
	if strings.Index(line, "detail=") > strings.Index(line, "status=") {
		t.Errorf("pairs not sorted: %s", line)
	}
	if !strings.Contains(line, "detail=\"has spaces\"") {
		t.Errorf("value not quoted: %s", line)
	}
}

func TestWarnOnce(t *testing.T) {
	l, w := newCaptureLogger(level.Info)
	if !l.WarnOnce("k1", "warned", nil) {
		t.Error("expected first WarnOnce to log")
	}
	if l.WarnOnce("k1", "warned", nil) {
		t.Error("expected second WarnOnce to be suppressed")
	}
	if len(w.lines) != 1 {
		t.Errorf("expected 1 line, got %d", len(w.lines))
	}
}

func TestSetLogLevelFallback(t *testing.T) {
	l, _ := newCaptureLogger(level.Info)
	l.SetLogLevel(level.Level("bogus"))
	if l.Level() != level.Info {
		t.Errorf("expected fallback to info, got %s", l.Level())
	}
}
