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

// Package main is the main package for the Halyard application
package main

import (
	"fmt"
	"os"

	"github.com/halyardhttp/halyard/pkg/appinfo"
	"github.com/halyardhttp/halyard/pkg/daemon"
	"github.com/halyardhttp/halyard/pkg/router/radix"
)

var (
	applicationGitCommitID string
	applicationBuildTime   string
)

const (
	applicationName    = "halyard"
	applicationVersion = "0.9.0"
)

func main() {
	appinfo.Set(applicationName, applicationVersion,
		applicationBuildTime, applicationGitCommitID)
	if err := daemon.Start(radix.NewRouter(), os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, "ERROR: "+err.Error())
		os.Exit(1)
	}
}
