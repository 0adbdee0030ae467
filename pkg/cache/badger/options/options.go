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

package options

// DefaultDirectory is the default badger data directory
const DefaultDirectory = "/tmp/halyard"

// Options is a collection of badger cache configurations
type Options struct {
	// Directory is the path where badger keeps its LSM tree
	Directory string `yaml:"directory,omitempty"`
	// ValueDirectory is the path where badger keeps its value log
	ValueDirectory string `yaml:"value_directory,omitempty"`
}

// New returns a new badger Options with default values
func New() *Options {
	return &Options{Directory: DefaultDirectory, ValueDirectory: DefaultDirectory}
}
