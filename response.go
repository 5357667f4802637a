// Copyright 2025 The Rivaas Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package httpengine

import "net/http"

// Response is the concrete shape of spec's Response: opaque to the exchange
// core except for status, headers, trailers, and body — the framer
// (package framer) is the only component that rewrites it.
type Response struct {
	StatusCode int
	Reason     string // empty uses the standard net/http reason phrase

	Header  http.Header
	Trailer http.Header // declared via the "Trailer" header, populated after the body

	Body BodySource

	// Final marks this as the response that ends the exchange (as opposed
	// to an interim 1xx). The framer's auto-close and connection-close
	// propagation transformations (spec §4.E.1, .3) only apply to it.
	Final bool
}

// NewResponse builds a Final response with an in-memory body.
func NewResponse(status int, body []byte) *Response {
	return &Response{
		StatusCode: status,
		Header:     make(http.Header),
		Body:       BytesBody(body),
		Final:      true,
	}
}

// NewStreamResponse builds a Final response whose body is read from body.
// A known body.Len is declared with Content-Length; an unknown one gets
// chunked framing on an HTTP/1.1 connection.
func NewStreamResponse(status int, body BodySource) *Response {
	return &Response{
		StatusCode: status,
		Header:     make(http.Header),
		Body:       body,
		Final:      true,
	}
}

// ReasonPhrase returns Reason if set, else the standard net/http phrase for
// StatusCode, else "status code N".
func (r *Response) ReasonPhrase() string {
	if r.Reason != "" {
		return r.Reason
	}
	if p := http.StatusText(r.StatusCode); p != "" {
		return p
	}
	return "status code " + itoa(r.StatusCode)
}

// IsInformational reports whether StatusCode is in the 1xx range.
func (r *Response) IsInformational() bool { return r.StatusCode >= 100 && r.StatusCode < 200 }

// Continue100 builds the interim "100 Continue" response used to answer an
// Expect: 100-continue request (spec §4.G.6, §4.F.3).
func Continue100() *Response {
	return &Response{StatusCode: 100, Header: make(http.Header), Body: EmptyBody, Final: false}
}
