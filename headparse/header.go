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
	"net/http"

	"github.com/inboundhq/httpengine"
	"github.com/inboundhq/httpengine/channel"
)

// ParseHeaders reads header lines off r until an empty line (two
// successive terminators) is observed, folding continuation lines into the
// previous header's value, charging every byte against budget.
func ParseHeaders(r *channel.Reader, budget *Budget) (http.Header, error) {
	c := newCursor(r)
	h := make(http.Header)
	var lastKey string
	haveLast := false

	for {
		line, err := readLine(c, budget)
		if err != nil {
			return nil, err
		}
		if len(line) == 0 {
			return h, nil
		}
		if line[0] == ' ' || line[0] == '\t' {
			if !haveLast {
				return nil, httpengine.NewError(httpengine.KindParseError, nil)
			}
			foldContinuation(h, lastKey, line)
			continue
		}

		colon := -1
		for i, b := range line {
			if b == ':' {
				colon = i
				break
			}
			if b == ' ' || b == '\t' {
				return nil, httpengine.NewError(httpengine.KindParseError, nil)
			}
		}
		if colon <= 0 {
			return nil, httpengine.NewError(httpengine.KindParseError, nil)
		}
		name := string(line[:colon])
		value := trimOWS(line[colon+1:])
		key := http.CanonicalHeaderKey(name)
		h[key] = append(h[key], string(value))
		lastKey = key
		haveLast = true
	}
}

// foldContinuation appends a folded continuation line to the most recent
// value of key: a single intervening space unless the previous value
// already ends in whitespace (spec §4.D).
func foldContinuation(h http.Header, key string, line []byte) {
	cont := trimOWS(line)
	values := h[key]
	if len(values) == 0 {
		h[key] = append(values, string(cont))
		return
	}
	prev := values[len(values)-1]
	if prev != "" && isOWS(prev[len(prev)-1]) {
		values[len(values)-1] = prev + string(cont)
	} else if len(cont) == 0 {
		// nothing to append
	} else {
		values[len(values)-1] = prev + " " + string(cont)
	}
}

func isOWS(b byte) bool { return b == ' ' || b == '\t' }

func trimOWS(b []byte) []byte {
	start := 0
	for start < len(b) && isOWS(b[start]) {
		start++
	}
	end := len(b)
	for end > start && isOWS(b[end-1]) {
		end--
	}
	return b[start:end]
}

// readLine reads one CRLF- or LF-terminated line (terminator excluded),
// discarding a bare CR that is not followed by LF rather than treating it
// as the line terminator (spec §4.D: "a bare CR is discarded unless
// followed by LF").
func readLine(c *cursor, budget *Budget) ([]byte, error) {
	var line []byte
	for {
		b, err := c.next()
		if err != nil {
			if err == errEOS {
				return nil, httpengine.NewError(httpengine.KindParseError, nil)
			}
			return nil, err
		}
		if err := budget.Consume(1); err != nil {
			return nil, err
		}
		switch b {
		case '\n':
			return line, nil
		case '\r':
			nb, err := c.next()
			if err != nil {
				return nil, httpengine.NewError(httpengine.KindParseError, nil)
			}
			if err := budget.Consume(1); err != nil {
				return nil, err
			}
			if nb == '\n' {
				return line, nil
			}
			// Bare CR: discarded, byte re-enters the line as ordinary data.
			line = append(line, nb)
		default:
			line = append(line, b)
		}
	}
}
