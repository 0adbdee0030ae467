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

// Package compression negotiates and applies response body compression
// from the request's Accept-Encoding header
package compression

import (
	"bytes"
	"net/http"
	"strings"

	"github.com/andybalholm/brotli"
	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"

	"github.com/halyardhttp/halyard/pkg/headers"
	"github.com/halyardhttp/halyard/pkg/middleware"
	"github.com/halyardhttp/halyard/pkg/request"
)

// MinSize is the smallest body the middleware bothers to compress
const MinSize = 512

// Priority places compression between the breaker and the response cache,
// so cached documents hold the uncompressed body
const Priority = 25

var zstdEncoder, _ = zstd.NewWriter(nil)

// Descriptor returns the chain descriptor applying negotiated compression
// in the post phase
func Descriptor() *middleware.Descriptor {
	return &middleware.Descriptor{
		Name:     "compression",
		Priority: Priority,
		Post:     compress,
	}
}

func compress(ctx *request.Context, resp *request.Response) {
	if len(resp.Body) < MinSize ||
		resp.StatusCode == http.StatusNoContent ||
		resp.StatusCode == http.StatusNotModified ||
		resp.Header.Get(headers.NameContentEncoding) != "" {
		return
	}

	encoding := negotiate(ctx.Header(headers.NameAcceptEncoding))
	if encoding == "" {
		return
	}

	var encoded []byte
	switch encoding {
	case headers.ValueZstd:
		encoded = zstdEncoder.EncodeAll(resp.Body, nil)
	case headers.ValueBrotli:
		buf := &bytes.Buffer{}
		w := brotli.NewWriterLevel(buf, brotli.DefaultCompression)
		w.Write(resp.Body)
		if w.Close() != nil {
			return
		}
		encoded = buf.Bytes()
	case headers.ValueGzip:
		buf := &bytes.Buffer{}
		w := gzip.NewWriter(buf)
		w.Write(resp.Body)
		if w.Close() != nil {
			return
		}
		encoded = buf.Bytes()
	}

	if len(encoded) == 0 || len(encoded) >= len(resp.Body) {
		return
	}
	resp.Body = encoded
	resp.Header.Set(headers.NameContentEncoding, encoding)
	resp.Header.Add(headers.NameVary, headers.NameAcceptEncoding)
}

// negotiate returns the preferred supported encoding from an
// Accept-Encoding header value, preferring zstd, then brotli, then gzip
func negotiate(acceptEncoding string) string {
	if acceptEncoding == "" {
		return ""
	}
	var zstdOK, brOK, gzipOK bool
	for _, token := range strings.Split(acceptEncoding, ",") {
		token = strings.TrimSpace(token)
		if i := strings.IndexByte(token, ';'); i >= 0 {
			// a zero qvalue refuses the encoding
			if strings.TrimSpace(token[i+1:]) == "q=0" {
				continue
			}
			token = strings.TrimSpace(token[:i])
		}
		switch token {
		case headers.ValueZstd:
			zstdOK = true
		case headers.ValueBrotli:
			brOK = true
		case headers.ValueGzip:
			gzipOK = true
		}
	}
	switch {
	case zstdOK:
		return headers.ValueZstd
	case brOK:
		return headers.ValueBrotli
	case gzipOK:
		return headers.ValueGzip
	}
	return ""
}
