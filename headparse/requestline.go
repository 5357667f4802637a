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

package headparse

import (
	"strconv"
	"strings"
	"time"

	"github.com/inboundhq/httpengine"
	"github.com/inboundhq/httpengine/channel"
)

// RequestLine is the result of parsing one request-line: "method SP target
// SP version CRLF".
type RequestLine struct {
	Method      string
	Target      string
	HTTPVersion httpengine.ProtocolVersion
	Length      int       // bytes consumed, including the terminator
	StartedAt   time.Time // time the first byte of the line was observed
}

type lineState int

const (
	stateMethod lineState = iota
	stateTarget
	stateVersion
)

// ParseRequestLine reads one request-line off r, charging every byte
// against budget. A bare CR inside the request-line is a parse error.
//
// End-of-stream before any byte has been observed is returned as a
// KindClientAborted *Error rather than KindParseError, since it represents
// a client that closed an idle connection rather than one that sent a
// malformed line; end-of-stream later in the line is a KindParseError.
func ParseRequestLine(r *channel.Reader, budget *Budget) (RequestLine, error) {
	c := newCursor(r)
	var method, target, version strings.Builder
	state := stateMethod
	length := 0
	var startedAt time.Time

	for {
		b, err := c.next()
		if err != nil {
			if err == errEOS && length == 0 {
				return RequestLine{}, httpengine.NewError(httpengine.KindClientAborted, nil)
			}
			if err == errEOS {
				return RequestLine{}, httpengine.NewError(httpengine.KindParseError, nil)
			}
			return RequestLine{}, err
		}
		if length == 0 {
			startedAt = time.Now()
		}
		length++
		if err := budget.Consume(1); err != nil {
			return RequestLine{}, err
		}

		switch state {
		case stateMethod:
			switch b {
			case ' ':
				if method.Len() == 0 {
					return RequestLine{}, httpengine.NewError(httpengine.KindParseError, nil)
				}
				state = stateTarget
			case '\r', '\n', '\t':
				return RequestLine{}, httpengine.NewError(httpengine.KindParseError, nil)
			default:
				method.WriteByte(b)
			}
		case stateTarget:
			switch b {
			case ' ':
				if target.Len() == 0 {
					return RequestLine{}, httpengine.NewError(httpengine.KindParseError, nil)
				}
				state = stateVersion
			case '\r', '\n', '\t':
				return RequestLine{}, httpengine.NewError(httpengine.KindParseError, nil)
			default:
				target.WriteByte(b)
			}
		case stateVersion:
			switch b {
			case '\n':
				return finishRequestLine(method.String(), target.String(), version.String(), length, startedAt)
			case '\r':
				// Accepted only when immediately followed by LF; consumed here
				// (length/budget already charged) and verified on the next byte.
				nb, err := c.next()
				if err != nil {
					return RequestLine{}, httpengine.NewError(httpengine.KindParseError, nil)
				}
				length++
				if err := budget.Consume(1); err != nil {
					return RequestLine{}, err
				}
				if nb != '\n' {
					return RequestLine{}, httpengine.NewError(httpengine.KindParseError, nil)
				}
				return finishRequestLine(method.String(), target.String(), version.String(), length, startedAt)
			case ' ', '\t':
				return RequestLine{}, httpengine.NewError(httpengine.KindParseError, nil)
			default:
				version.WriteByte(b)
			}
		}
	}
}

func finishRequestLine(method, target, version string, length int, startedAt time.Time) (RequestLine, error) {
	if method == "" || target == "" {
		return RequestLine{}, httpengine.NewError(httpengine.KindParseError, nil)
	}
	v, err := parseHTTPVersion(version)
	if err != nil {
		return RequestLine{}, err
	}
	return RequestLine{Method: method, Target: target, HTTPVersion: v, Length: length, StartedAt: startedAt}, nil
}

func parseHTTPVersion(s string) (httpengine.ProtocolVersion, error) {
	const prefix = "HTTP/"
	if !strings.HasPrefix(s, prefix) {
		return httpengine.ProtocolVersion{}, httpengine.NewError(httpengine.KindParseError, nil)
	}
	rest := s[len(prefix):]
	dot := strings.IndexByte(rest, '.')
	if dot < 0 {
		return httpengine.ProtocolVersion{}, httpengine.NewError(httpengine.KindParseError, nil)
	}
	major, err1 := strconv.Atoi(rest[:dot])
	minor, err2 := strconv.Atoi(rest[dot+1:])
	if err1 != nil || err2 != nil || major < 0 || minor < 0 {
		return httpengine.ProtocolVersion{}, httpengine.NewError(httpengine.KindParseError, nil)
	}
	return httpengine.ProtocolVersion{Major: major, Minor: minor}, nil
}
