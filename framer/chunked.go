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

package framer

import (
	"io"

	"github.com/inboundhq/httpengine"
)

// rawWindowSize is the size of the scratch buffer rawBodyIterator reads
// into per Next call.
const rawWindowSize = 32 * 1024

// rawBodyIterator is the unframed BodyIterator over a BodySource, used
// when Content-Length framing applies (no chunked wrapping needed).
type rawBodyIterator struct {
	src httpengine.BodySource
	buf []byte
	eof bool
}

func newRawBodyIterator(src httpengine.BodySource) *rawBodyIterator {
	return &rawBodyIterator{src: src, buf: make([]byte, rawWindowSize)}
}

func (it *rawBodyIterator) Next() ([]byte, error) {
	if it.eof {
		return nil, io.EOF
	}
	n, err := it.src.Read(it.buf)
	if n > 0 {
		if err != nil {
			it.eof = true
		}
		return it.buf[:n], nil
	}
	if err == nil {
		return it.Next()
	}
	it.eof = true
	if err == io.EOF {
		return nil, io.EOF
	}
	return nil, err
}

func (it *rawBodyIterator) Close() error {
	if c, ok := it.src.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

// chunkedIterator wraps an inner BodyIterator, emitting RFC 7230 §4.1
// chunked framing: "<hex-size>\r\n<bytes>\r\n" per window, then
// "0\r\n<trailers>\r\n" once the inner iterator is exhausted.
type chunkedIterator struct {
	inner   BodyIterator
	trailer httpengine.BodySourceTrailer
	done    bool
	final   []byte
}

func newChunkedIterator(inner BodyIterator, trailer httpengine.BodySourceTrailer) *chunkedIterator {
	return &chunkedIterator{inner: inner, trailer: trailer}
}

func (it *chunkedIterator) Next() ([]byte, error) {
	if it.final != nil {
		b := it.final
		it.final = nil
		return b, nil
	}
	if it.done {
		return nil, io.EOF
	}
	window, err := it.inner.Next()
	if err == io.EOF {
		it.done = true
		trailerBlock := it.trailer.Render()
		it.final = append([]byte("0\r\n"), trailerBlock...)
		it.final = append(it.final, '\r', '\n')
		return it.Next()
	}
	if err != nil {
		return nil, err
	}
	if len(window) == 0 {
		return it.Next()
	}
	framed := make([]byte, 0, len(window)+16)
	framed = append(framed, []byte(hexSize(len(window)))...)
	framed = append(framed, '\r', '\n')
	framed = append(framed, window...)
	framed = append(framed, '\r', '\n')
	return framed, nil
}

func (it *chunkedIterator) Close() error { return it.inner.Close() }

func hexSize(n int) string {
	if n == 0 {
		return "0"
	}
	const digits = "0123456789abcdef"
	var buf [16]byte
	i := len(buf)
	for n > 0 {
		i--
		buf[i] = digits[n&0xf]
		n >>= 4
	}
	return string(buf[i:])
}

// newBodyIterator selects between the raw and chunked iterators based on
// whether the Apply call decided on chunked Transfer-Encoding.
func newBodyIterator(resp *httpengine.Response, version httpengine.ProtocolVersion) (BodyIterator, error) {
	src := resp.Body
	if src == nil {
		src = httpengine.EmptyBody
	}
	raw := newRawBodyIterator(src)
	if resp.Header.Get("Transfer-Encoding") == "chunked" {
		return newChunkedIterator(raw, httpengine.NewBodySourceTrailer(resp.Trailer)), nil
	}
	return raw, nil
}
