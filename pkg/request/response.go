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

package request

import (
	"net/http"
	"strconv"

	"github.com/halyardhttp/halyard/pkg/headers"
)

// Response is the in-pipeline representation of an outgoing response. It is
// produced by the handler bridge or synthesized by a middleware, mutated by
// post phases, and finally written to the transport by the server.
type Response struct {
	// StatusCode is the HTTP status code of the Response
	StatusCode int
	// Header holds the Response headers
	Header http.Header
	// Body holds the fully rendered Response body
	Body []byte
}

// NewResponse returns a Response with the provided status code, an empty
// body and initialized headers
func NewResponse(statusCode int) *Response {
	return &Response{
		StatusCode: statusCode,
		Header:     make(http.Header),
	}
}

// SetBody sets the Response body and Content-Type
func (p *Response) SetBody(body []byte, contentType string) *Response {
	p.Body = body
	if contentType != "" {
		p.Header.Set(headers.NameContentType, contentType)
	}
	return p
}

// WriteTo writes the Response to the provided http.ResponseWriter, omitting
// the body for HEAD requests
func (p *Response) WriteTo(w http.ResponseWriter, isHead bool) {
	h := w.Header()
	for k, v := range p.Header {
		h[k] = v
	}
	if len(p.Body) > 0 {
		h.Set(headers.NameContentLength, strconv.Itoa(len(p.Body)))
	}
	sc := p.StatusCode
	if sc == 0 {
		sc = http.StatusOK
	}
	w.WriteHeader(sc)
	if !isHead && len(p.Body) > 0 {
		w.Write(p.Body)
	}
}

// Clone returns a deep copy of the Response
func (p *Response) Clone() *Response {
	p2 := &Response{
		StatusCode: p.StatusCode,
		Header:     headers.Clone(p.Header),
	}
	if p.Body != nil {
		p2.Body = make([]byte, len(p.Body))
		copy(p2.Body, p.Body)
	}
	return p2
}
