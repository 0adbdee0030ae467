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

// Package level describes the supported logging levels
package level

import "strings"

// Level is the string name of a logging level
type Level string

// ID is the numeric weight of a logging level, ordered by verbosity
type ID int

const (
	// Debug is the Debug log level
	Debug Level = "debug"
	// Info is the Info log level
	Info Level = "info"
	// Warn is the Warn log level
	Warn Level = "warn"
	// Error is the Error log level
	Error Level = "error"
	// Fatal is the Fatal log level
	Fatal Level = "fatal"
)

const (
	// DebugID is the numeric ID for the Debug log level
	DebugID ID = iota + 1
	// InfoID is the numeric ID for the Info log level
	InfoID
	// WarnID is the numeric ID for the Warn log level
	WarnID
	// ErrorID is the numeric ID for the Error log level
	ErrorID
	// FatalID is the numeric ID for the Fatal log level
	FatalID
)

var names = map[Level]ID{
	Debug: DebugID,
	Info:  InfoID,
	Warn:  WarnID,
	Error: ErrorID,
	Fatal: FatalID,
}

// GetLevelID returns the ID for the provided Level name, or 0 when unknown
func GetLevelID(logLevel Level) ID {
	if id, ok := names[Level(strings.ToLower(string(logLevel)))]; ok {
		return id
	}
	return 0
}
