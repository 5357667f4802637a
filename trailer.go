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

// BodySourceTrailer renders a response's Trailer header as the
// "name: value\r\n" block that follows a chunked body's terminal chunk
// (RFC 7230 §4.1.2).
type BodySourceTrailer struct {
	h http.Header
}

// NewBodySourceTrailer wraps h for rendering. A nil or empty h renders to
// nothing.
func NewBodySourceTrailer(h http.Header) BodySourceTrailer { return BodySourceTrailer{h: h} }

// Render returns the trailer block bytes, or nil if there is nothing to
// render.
func (t BodySourceTrailer) Render() []byte {
	if len(t.h) == 0 {
		return nil
	}
	var out []byte
	for name, values := range t.h {
		for _, v := range values {
			out = append(out, name...)
			out = append(out, ':', ' ')
			out = append(out, v...)
			out = append(out, '\r', '\n')
		}
	}
	return out
}
