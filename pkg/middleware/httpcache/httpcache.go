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

// Package httpcache provides the response cache middleware, serving
// eligible requests from a cache.Client with ETag revalidation and
// tag-based invalidation
package httpcache

import (
	"bytes"
	"crypto/md5"
	"encoding/gob"
	"encoding/hex"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/halyardhttp/halyard/pkg/cache"
	"github.com/halyardhttp/halyard/pkg/headers"
	"github.com/halyardhttp/halyard/pkg/middleware"
	"github.com/halyardhttp/halyard/pkg/middleware/httpcache/options"
	"github.com/halyardhttp/halyard/pkg/observability/logging"
	"github.com/halyardhttp/halyard/pkg/observability/logging/logger"
	"github.com/halyardhttp/halyard/pkg/observability/metrics"
	"github.com/halyardhttp/halyard/pkg/request"
)

// Document is the serialized form of a cached response
type Document struct {
	StatusCode int
	Header     http.Header
	Body       []byte
	ETag       string
	StoredAt   time.Time
	Tags       []string
}

// ResponseCache serves eligible requests from a cache.Client
type ResponseCache struct {
	opts    *options.Options
	client  cache.Client
	methods map[string]bool
	tags    *tagIndex
}

// New returns a ResponseCache backed by the provided cache client
func New(o *options.Options, client cache.Client) (*ResponseCache, error) {
	if o == nil {
		o = options.New()
	}
	if err := o.Validate(); err != nil {
		return nil, err
	}
	rc := &ResponseCache{
		opts:    o,
		client:  client,
		methods: make(map[string]bool, len(o.Methods)),
		tags:    newTagIndex(),
	}
	for _, m := range o.Methods {
		rc.methods[strings.ToUpper(m)] = true
	}
	return rc, nil
}

// Key derives the cache key from the request's method, path, sorted query
// and any configured vary headers
func (rc *ResponseCache) Key(ctx *request.Context) string {
	sb := &strings.Builder{}
	sb.WriteString(ctx.Method)
	sb.WriteByte(' ')
	sb.WriteString(ctx.Path)

	if q := ctx.RawQuery(); q != "" {
		parts := strings.Split(q, "&")
		sort.Strings(parts)
		sb.WriteByte('?')
		sb.WriteString(strings.Join(parts, "&"))
	}
	for _, h := range rc.opts.VaryHeaders {
		sb.WriteByte('|')
		sb.WriteString(h)
		sb.WriteByte('=')
		sb.WriteString(ctx.Header(h))
	}

	sum := md5.Sum([]byte(sb.String()))
	return "halyard.response." + hex.EncodeToString(sum[:])
}

// Lookup retrieves the cached Document for the key, dropping entries the
// backing store returned but no longer vouches for
func (rc *ResponseCache) Lookup(key string) (*Document, bool) {
	data, _, err := rc.client.Retrieve(key)
	if err != nil {
		return nil, false
	}
	doc := &Document{}
	if err = gob.NewDecoder(bytes.NewReader(data)).Decode(doc); err != nil {
		logger.Warn("discarding undecodable cache document",
			logging.Pairs{"key": key, "detail": err})
		rc.client.Remove(key)
		rc.tags.remove(key)
		return nil, false
	}
	return doc, true
}

// Store caches the Document under the key with the configured TTL and
// indexes its tags
func (rc *ResponseCache) Store(key string, doc *Document) error {
	buf := &bytes.Buffer{}
	if err := gob.NewEncoder(buf).Encode(doc); err != nil {
		return err
	}
	nl, err := rc.client.Locker().Acquire(key)
	if err != nil {
		return err
	}
	defer nl.Release()
	if err = rc.client.Store(key, buf.Bytes(), rc.opts.TTL()); err != nil {
		return err
	}
	rc.tags.add(key, doc.Tags)
	return nil
}

// Invalidate removes every cached response sharing any of the provided tags
// and returns the number of entries removed
func (rc *ResponseCache) Invalidate(tags ...string) int {
	keys := rc.tags.take(tags)
	if len(keys) == 0 {
		return 0
	}
	if err := rc.client.Remove(keys...); err != nil {
		logger.Error("cache invalidation remove failed",
			logging.Pairs{"tags": strings.Join(tags, ","), "detail": err})
	}
	metrics.CacheEvents.WithLabelValues(rc.opts.CacheName,
		rc.client.Configuration().Provider, "invalidation").Add(float64(len(keys)))
	return len(keys)
}

const (
	storeKey    = "httpcache.store"
	cacheKeyKey = "httpcache.key"
)

// Priority places the cache after the limiter and breaker so denied
// requests never touch the cache
const Priority = 30

// Descriptor returns the chain descriptor for the ResponseCache
func (rc *ResponseCache) Descriptor() *middleware.Descriptor {
	return &middleware.Descriptor{
		Name:     "httpcache",
		Priority: Priority,
		Pre:      rc.pre,
		Post:     rc.post,
	}
}

func (rc *ResponseCache) pre(ctx *request.Context) (*request.Response, error) {
	if !rc.methods[ctx.Method] {
		return nil, nil
	}
	key := rc.Key(ctx)
	ctx.SetValue(cacheKeyKey, key)

	doc, ok := rc.Lookup(key)
	if !ok {
		ctx.SetValue(storeKey, true)
		return nil, nil
	}

	if etagMatches(ctx.Header(headers.NameIfNoneMatch), doc.ETag) {
		resp := request.NewResponse(http.StatusNotModified)
		resp.Header.Set(headers.NameETag, doc.ETag)
		resp.Header.Set(headers.NameXCache, headers.ValueCacheHit)
		return resp, nil
	}

	resp := request.NewResponse(doc.StatusCode)
	resp.Header = headers.Clone(doc.Header)
	resp.Body = doc.Body
	resp.Header.Set(headers.NameXCache, headers.ValueCacheHit)
	return resp, nil
}

func (rc *ResponseCache) post(ctx *request.Context, resp *request.Response) {
	v, ok := ctx.Value(storeKey)
	if !ok || v != true {
		return
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return
	}
	if strings.Contains(resp.Header.Get(headers.NameCacheControl), headers.ValueNoStore) {
		return
	}
	key, _ := ctx.Value(cacheKeyKey)

	etag := strongETag(resp.Body)
	resp.Header.Set(headers.NameETag, etag)
	resp.Header.Set(headers.NameXCache, headers.ValueCacheMiss)
	if resp.Header.Get(headers.NameCacheControl) == "" {
		resp.Header.Set(headers.NameCacheControl,
			headers.ValueMaxAge+"="+strconv.Itoa(rc.opts.TTLSecs))
	}

	doc := &Document{
		StatusCode: resp.StatusCode,
		Header:     headers.Clone(resp.Header),
		Body:       resp.Body,
		ETag:       etag,
		StoredAt:   time.Now(),
		Tags:       ctx.RouteTags,
	}
	// the stored copy never carries the per-request cache outcome
	doc.Header.Del(headers.NameXCache)
	if err := rc.Store(key.(string), doc); err != nil {
		logger.Error("response cache store failed",
			logging.Pairs{"key": key, "detail": err})
	}
}

func strongETag(body []byte) string {
	sum := md5.Sum(body)
	return `"` + hex.EncodeToString(sum[:]) + `"`
}

func etagMatches(ifNoneMatch, etag string) bool {
	if ifNoneMatch == "" || etag == "" {
		return false
	}
	if ifNoneMatch == "*" {
		return true
	}
	for _, candidate := range strings.Split(ifNoneMatch, ",") {
		candidate = strings.TrimPrefix(strings.TrimSpace(candidate), "W/")
		if candidate == etag {
			return true
		}
	}
	return false
}
