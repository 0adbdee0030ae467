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

// Package headers provides HTTP Header names and values used by the
// request pipeline beyond those in the builtin net/http package
package headers

import "net/http"

const (
	// Common HTTP Header Names

	// NameAccept represents the HTTP Header Name of "Accept"
	NameAccept = "Accept"
	// NameAcceptEncoding represents the HTTP Header Name of "Accept-Encoding"
	NameAcceptEncoding = "Accept-Encoding"
	// NameAllow represents the HTTP Header Name of "Allow"
	NameAllow = "Allow"
	// NameCacheControl represents the HTTP Header Name of "Cache-Control"
	NameCacheControl = "Cache-Control"
	// NameConnection represents the HTTP Header Name of "Connection"
	NameConnection = "Connection"
	// NameContentEncoding represents the HTTP Header Name of "Content-Encoding"
	NameContentEncoding = "Content-Encoding"
	// NameContentLength represents the HTTP Header Name of "Content-Length"
	NameContentLength = "Content-Length"
	// NameContentType represents the HTTP Header Name of "Content-Type"
	NameContentType = "Content-Type"
	// NameDate represents the HTTP Header Name of "Date"
	NameDate = "Date"
	// NameETag represents the HTTP Header Name of "Etag"
	NameETag = "Etag"
	// NameIfModifiedSince represents the HTTP Header Name of "If-Modified-Since"
	NameIfModifiedSince = "If-Modified-Since"
	// NameIfNoneMatch represents the HTTP Header Name of "If-None-Match"
	NameIfNoneMatch = "If-None-Match"
	// NameRetryAfter represents the HTTP Header Name of "Retry-After"
	NameRetryAfter = "Retry-After"
	// NameVary represents the HTTP Header Name of "Vary"
	NameVary = "Vary"
	// NameXForwardedFor represents the HTTP Header Name of "X-Forwarded-For"
	NameXForwardedFor = "X-Forwarded-For"

	// Pipeline Result Header Names

	// NameXCache represents the HTTP Header Name of "X-Cache"
	NameXCache = "X-Cache"
	// NameXRateLimitLimit represents the HTTP Header Name of "X-RateLimit-Limit"
	NameXRateLimitLimit = "X-RateLimit-Limit"
	// NameXRateLimitRemaining represents the HTTP Header Name of "X-RateLimit-Remaining"
	NameXRateLimitRemaining = "X-RateLimit-Remaining"
	// NameXRateLimitReset represents the HTTP Header Name of "X-RateLimit-Reset"
	NameXRateLimitReset = "X-RateLimit-Reset"

	// Common HTTP Header Values

	// ValueApplicationJSON represents the HTTP Header Value of "application/json"
	ValueApplicationJSON = "application/json"
	// ValueCacheHit represents the X-Cache Header Value of "HIT"
	ValueCacheHit = "HIT"
	// ValueCacheMiss represents the X-Cache Header Value of "MISS"
	ValueCacheMiss = "MISS"
	// ValueClose represents the HTTP Header Value of "close"
	ValueClose = "close"
	// ValueMaxAge represents the HTTP Header Value of "max-age"
	ValueMaxAge = "max-age"
	// ValueNoCache represents the HTTP Header Value of "no-cache"
	ValueNoCache = "no-cache"
	// ValueNoStore represents the HTTP Header Value of "no-store"
	ValueNoStore = "no-store"
	// ValueTextPlain represents the HTTP Header Value of "text/plain"
	ValueTextPlain = "text/plain"

	// Content Encoding Values

	// ValueBrotli represents the Content-Encoding Value of "br"
	ValueBrotli = "br"
	// ValueGzip represents the Content-Encoding Value of "gzip"
	ValueGzip = "gzip"
	// ValueZstd represents the Content-Encoding Value of "zstd"
	ValueZstd = "zstd"
)

// Clone returns an exact copy of the provided headers
func Clone(h http.Header) http.Header {
	if h == nil {
		return nil
	}
	h2 := make(http.Header, len(h))
	for k, v := range h {
		v2 := make([]string, len(v))
		copy(v2, v)
		h2[k] = v2
	}
	return h2
}

// Merge merges the source headers into the destination headers, overwriting
// any existing values for the same name
func Merge(dst, src http.Header) {
	for k, v := range src {
		dst[k] = v
	}
}
