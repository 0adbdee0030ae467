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

const (
	// DefaultBBoltFile is the default bbolt database file
	DefaultBBoltFile = "halyard.db"
	// DefaultBBoltBucket is the default bbolt bucket name
	DefaultBBoltBucket = "halyard"
)

// Options is a collection of bbolt cache configurations
type Options struct {
	// Filename is the path to the bbolt database file
	Filename string `yaml:"filename,omitempty"`
	// Bucket is the name of the bucket holding the cached objects
	Bucket string `yaml:"bucket,omitempty"`
}

// New returns a new bbolt Options with default values
func New() *Options {
	return &Options{Filename: DefaultBBoltFile, Bucket: DefaultBBoltBucket}
}
