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

package httpcache

import "sync"

// tagIndex is an inverted index from tag to cache keys, with the reverse
// mapping kept for cleanup, so invalidation touches only the keys sharing a
// tag rather than scanning the cache
type tagIndex struct {
	mtx   sync.Mutex
	byTag map[string]map[string]struct{}
	byKey map[string][]string
}

func newTagIndex() *tagIndex {
	return &tagIndex{
		byTag: make(map[string]map[string]struct{}),
		byKey: make(map[string][]string),
	}
}

// add associates the cache key with the provided tags
func (t *tagIndex) add(key string, tags []string) {
	if len(tags) == 0 {
		return
	}
	t.mtx.Lock()
	t.removeLocked(key)
	t.byKey[key] = append([]string(nil), tags...)
	for _, tag := range tags {
		keys, ok := t.byTag[tag]
		if !ok {
			keys = make(map[string]struct{})
			t.byTag[tag] = keys
		}
		keys[key] = struct{}{}
	}
	t.mtx.Unlock()
}

// remove drops the cache key from the index
func (t *tagIndex) remove(key string) {
	t.mtx.Lock()
	t.removeLocked(key)
	t.mtx.Unlock()
}

func (t *tagIndex) removeLocked(key string) {
	for _, tag := range t.byKey[key] {
		if keys, ok := t.byTag[tag]; ok {
			delete(keys, key)
			if len(keys) == 0 {
				delete(t.byTag, tag)
			}
		}
	}
	delete(t.byKey, key)
}

// take returns and removes all keys sharing any of the provided tags
func (t *tagIndex) take(tags []string) []string {
	t.mtx.Lock()
	seen := make(map[string]struct{})
	for _, tag := range tags {
		for key := range t.byTag[tag] {
			seen[key] = struct{}{}
		}
	}
	out := make([]string, 0, len(seen))
	for key := range seen {
		t.removeLocked(key)
		out = append(out, key)
	}
	t.mtx.Unlock()
	return out
}
