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

// Package options defines the configuration of a named cache
package options

import (
	"errors"
	"fmt"

	badger "github.com/halyardhttp/halyard/pkg/cache/badger/options"
	bbolt "github.com/halyardhttp/halyard/pkg/cache/bbolt/options"
	index "github.com/halyardhttp/halyard/pkg/cache/index/options"
	redis "github.com/halyardhttp/halyard/pkg/cache/redis/options"

	"gopkg.in/yaml.v3"
)

const (
	// ProviderMemory is the name of the in-process memory cache provider
	ProviderMemory = "memory"
	// ProviderBBolt is the name of the bbolt cache provider
	ProviderBBolt = "bbolt"
	// ProviderBadger is the name of the badger cache provider
	ProviderBadger = "badger"
	// ProviderRedis is the name of the redis cache provider
	ProviderRedis = "redis"

	// DefaultProvider is the cache provider used when none is configured
	DefaultProvider = ProviderMemory
)

// ErrInvalidName is returned when a cache is configured with a restricted name
var ErrInvalidName = errors.New("invalid cache name")

// Lookup is a map of Options keyed by cache name
type Lookup map[string]*Options

// Options defines the behavior of a named cache
type Options struct {
	// Name is the name of the cache, taken from the key in the caches map
	Name string `yaml:"-"`
	// Provider is the type of cache to use ("memory", "bbolt", "badger", "redis")
	Provider string `yaml:"provider,omitempty"`
	// Index configures the cache index for providers without native expiration
	Index *index.Options `yaml:"index,omitempty"`
	// Redis configures the redis cache provider
	Redis *redis.Options `yaml:"redis,omitempty"`
	// BBolt configures the bbolt cache provider
	BBolt *bbolt.Options `yaml:"bbolt,omitempty"`
	// Badger configures the badger cache provider
	Badger *badger.Options `yaml:"badger,omitempty"`
}

// New returns a new cache Options with default values
func New() *Options {
	return &Options{
		Provider: DefaultProvider,
		Index:    index.New(),
		Redis:    redis.New(),
		BBolt:    bbolt.New(),
		Badger:   badger.New(),
	}
}

// UnmarshalYAML decodes the Options over the default values, so omitted
// fields keep their defaults
func (o *Options) UnmarshalYAML(node *yaml.Node) error {
	type raw Options
	*o = *New()
	return node.Decode((*raw)(o))
}

// Clone returns a copy of the subject Options
func (o *Options) Clone() *Options {
	out := New()
	out.Name = o.Name
	out.Provider = o.Provider
	*out.Index = *o.Index
	*out.BBolt = *o.BBolt
	*out.Badger = *o.Badger
	r := *o.Redis
	r.Endpoints = append([]string(nil), o.Redis.Endpoints...)
	out.Redis = &r
	return out
}

// Validate returns an error if the Options would not produce a usable cache
func (o *Options) Validate() error {
	if o.Name == "" || o.Name == "none" {
		return ErrInvalidName
	}
	switch o.Provider {
	case ProviderMemory, ProviderBBolt, ProviderBadger, ProviderRedis:
	default:
		return fmt.Errorf("invalid cache provider name: %s", o.Provider)
	}
	return nil
}

// Validate validates each Options in the Lookup
func (l Lookup) Validate() error {
	for k, o := range l {
		o.Name = k
		if err := o.Validate(); err != nil {
			return err
		}
	}
	return nil
}
