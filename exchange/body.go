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

package exchange

import (
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/inboundhq/httpengine"
	"github.com/inboundhq/httpengine/channel"
)

// requestBody builds the httpengine.BodySource for a request, per spec
// §4.G.4: a declared Content-Length yields a length-known body read
// directly off the connection's reader under a matching Limit; a
// Transfer-Encoding: chunked header yields a decoded, length-unknown
// body; the absence of both yields the shared EmptyBody (request bodies
// are never connection-close-delimited per RFC 7230 §3.3).
func requestBody(r *channel.Reader, h http.Header) (httpengine.BodySource, error) {
	te := h.Get("Transfer-Encoding")
	cl := h.Get("Content-Length")

	switch {
	case strings.EqualFold(te, "chunked"):
		return newChunkedReaderBody(r), nil
	case te != "":
		return nil, httpengine.NewError(httpengine.KindIllegalHeader, errors.New("unsupported Transfer-Encoding"))
	case cl != "":
		n, err := strconv.ParseInt(cl, 10, 64)
		if err != nil || n < 0 {
			return nil, httpengine.NewError(httpengine.KindParseError, errors.New("invalid Content-Length"))
		}
		if err := r.Limit(n); err != nil {
			return nil, httpengine.NewError(httpengine.KindReadFailed, err)
		}
		if n == 0 {
			return httpengine.EmptyBody, nil
		}
		return newLimitedReaderBody(r, n), nil
	default:
		if err := r.Limit(0); err != nil {
			return nil, httpengine.NewError(httpengine.KindReadFailed, err)
		}
		return httpengine.EmptyBody, nil
	}
}

// byteCursor pulls one byte at a time off a channel.Reader, crossing
// channel.View boundaries transparently — the same idiom headparse's
// unexported cursor uses, duplicated here since that type isn't exported
// and a line-oriented chunk decoder needs the identical shape.
type byteCursor struct {
	r    *channel.Reader
	view channel.View
	have bool
}

func (c *byteCursor) next() (byte, error) {
	for {
		if c.have {
			if c.view.Remaining() == 0 {
				c.have = false
				continue
			}
			return c.view.ReadByte()
		}
		v, err := c.r.Next()
		if err != nil {
			return 0, err
		}
		if v.EOS() {
			return 0, io.EOF
		}
		c.view = v
		c.have = true
	}
}

// limitedReaderBody is a BodySource reading directly off a channel.Reader
// that has already been placed under a matching byte Limit.
type limitedReaderBody struct {
	r      *channel.Reader
	length int64
	view   channel.View
	have   bool
}

func newLimitedReaderBody(r *channel.Reader, length int64) *limitedReaderBody {
	return &limitedReaderBody{r: r, length: length}
}

func (b *limitedReaderBody) Len() (int64, bool) { return b.length, true }

func (b *limitedReaderBody) Read(p []byte) (int, error) {
	for {
		if b.have {
			if b.view.Remaining() == 0 {
				b.have = false
				continue
			}
			n := min(len(p), b.view.Remaining())
			copy(p, b.view.Peek(n))
			if err := b.view.Advance(n); err != nil {
				return n, err
			}
			return n, nil
		}
		v, err := b.r.Next()
		if err != nil {
			if errors.Is(err, channel.ErrExhausted) {
				return 0, io.EOF
			}
			return 0, httpengine.NewError(httpengine.KindReadFailed, err)
		}
		if v.EOS() {
			return 0, io.EOF
		}
		b.view = v
		b.have = true
	}
}

// chunkedReaderBody decodes a chunked-transfer-encoded request body read
// directly off the connection's channel.Reader (RFC 7230 §4.1), exposing
// it as a BodySource of unknown declared length.
type chunkedReaderBody struct {
	c         byteCursor
	remaining int64
	done      bool
	trailer   http.Header
}

func newChunkedReaderBody(r *channel.Reader) *chunkedReaderBody {
	return &chunkedReaderBody{c: byteCursor{r: r}}
}

func (b *chunkedReaderBody) Len() (int64, bool) { return 0, false }

// Trailer returns the trailer fields observed after the terminating
// zero-length chunk, or nil before EOF is reached.
func (b *chunkedReaderBody) Trailer() http.Header { return b.trailer }

func (b *chunkedReaderBody) Read(p []byte) (int, error) {
	if b.done {
		return 0, io.EOF
	}
	if b.remaining == 0 {
		size, err := b.readChunkSizeLine()
		if err != nil {
			return 0, err
		}
		if size == 0 {
			trailer, err := b.readTrailer()
			if err != nil {
				return 0, err
			}
			b.trailer = trailer
			b.done = true
			return 0, io.EOF
		}
		b.remaining = size
	}

	n := len(p)
	if int64(n) > b.remaining {
		n = int(b.remaining)
	}
	for i := 0; i < n; i++ {
		by, err := b.c.next()
		if err != nil {
			return i, mapChunkedErr(err)
		}
		p[i] = by
	}
	b.remaining -= int64(n)
	if b.remaining == 0 {
		if err := b.readCRLF(); err != nil {
			return n, err
		}
	}
	return n, nil
}

func (b *chunkedReaderBody) readChunkSizeLine() (int64, error) {
	var hex []byte
	sawExt := false
	for {
		by, err := b.c.next()
		if err != nil {
			return 0, mapChunkedErr(err)
		}
		switch by {
		case '\r':
			nb, err := b.c.next()
			if err != nil {
				return 0, mapChunkedErr(err)
			}
			if nb != '\n' {
				return 0, httpengine.NewError(httpengine.KindParseError, errors.New("malformed chunk size line"))
			}
			return parseChunkSize(hex)
		case '\n':
			return parseChunkSize(hex)
		case ';':
			sawExt = true
		default:
			if !sawExt {
				hex = append(hex, by)
			}
		}
	}
}

func parseChunkSize(hex []byte) (int64, error) {
	if len(hex) == 0 {
		return 0, httpengine.NewError(httpengine.KindParseError, errors.New("empty chunk size"))
	}
	n, err := strconv.ParseInt(string(hex), 16, 64)
	if err != nil || n < 0 {
		return 0, httpengine.NewError(httpengine.KindParseError, errors.New("invalid chunk size"))
	}
	return n, nil
}

func (b *chunkedReaderBody) readCRLF() error {
	cr, err := b.c.next()
	if err != nil {
		return mapChunkedErr(err)
	}
	if cr != '\r' {
		if cr == '\n' {
			return nil
		}
		return httpengine.NewError(httpengine.KindParseError, errors.New("malformed chunk terminator"))
	}
	lf, err := b.c.next()
	if err != nil {
		return mapChunkedErr(err)
	}
	if lf != '\n' {
		return httpengine.NewError(httpengine.KindParseError, errors.New("malformed chunk terminator"))
	}
	return nil
}

func (b *chunkedReaderBody) readTrailer() (http.Header, error) {
	h := make(http.Header)
	var line []byte
	for {
		by, err := b.c.next()
		if err != nil {
			return nil, mapChunkedErr(err)
		}
		if by == '\n' {
			if len(line) == 0 {
				return h, nil
			}
			name, value, ok := strings.Cut(string(line), ":")
			if ok {
				h.Set(strings.TrimSpace(name), strings.TrimSpace(value))
			}
			line = nil
			continue
		}
		if by != '\r' {
			line = append(line, by)
		}
	}
}

func mapChunkedErr(err error) error {
	if errors.Is(err, channel.ErrExhausted) || errors.Is(err, io.EOF) {
		return httpengine.NewError(httpengine.KindEndOfStream, nil)
	}
	return httpengine.NewError(httpengine.KindReadFailed, err)
}
