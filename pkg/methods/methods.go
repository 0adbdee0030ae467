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

// Package methods provides functionality for handling HTTP methods
package methods

import (
	"net/http"
	"strings"
)

const (
	get uint16 = 1 << iota
	head
	post
	put
	patch
	del
	options
	connect
	trace
)

const (
	cacheableMethods = get + head
	bodyMethods      = post + put + patch
)

func methodLogicalID(method string) uint16 {
	switch strings.ToUpper(method) {
	case http.MethodGet:
		return get
	case http.MethodHead:
		return head
	case http.MethodPost:
		return post
	case http.MethodPut:
		return put
	case http.MethodOptions:
		return options
	case http.MethodPatch:
		return patch
	case http.MethodDelete:
		return del
	case http.MethodConnect:
		return connect
	case http.MethodTrace:
		return trace
	}
	return 0
}

// AllHTTPMethods returns a list of all known HTTP methods
func AllHTTPMethods() []string {
	return []string{http.MethodGet, http.MethodHead, http.MethodPost, http.MethodPut,
		http.MethodDelete, http.MethodConnect, http.MethodOptions, http.MethodTrace,
		http.MethodPatch}
}

// CacheableHTTPMethods returns the list of methods eligible for response caching
// by default (idempotent and side-effect free)
func CacheableHTTPMethods() []string {
	return []string{http.MethodGet, http.MethodHead}
}

// IsValidMethod returns true if the provided method is a known HTTP method
func IsValidMethod(method string) bool {
	return methodLogicalID(method) > 0
}

// IsCacheable returns true if the provided method is defaulted as cacheable
func IsCacheable(method string) bool {
	return methodLogicalID(method)&cacheableMethods > 0
}

// HasBody returns true if the provided method typically carries a request body
func HasBody(method string) bool {
	return methodLogicalID(method)&bodyMethods > 0
}
