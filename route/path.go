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

package route

import (
	"net/url"
	"strings"
)

// splitSegments splits a path on "/", dropping empty leading/trailing
// segments produced by a leading or trailing slash, so "/a/b/" and "a/b"
// both yield ["a", "b"].
func splitSegments(path string) []string {
	path = strings.Trim(path, "/")
	if path == "" {
		return nil
	}
	return strings.Split(path, "/")
}

// patternKind classifies one pattern segment.
type patternKind uint8

const (
	kindStatic patternKind = iota
	kindParam
	kindCatchAll
)

func classify(seg string) (patternKind, string) {
	switch {
	case strings.HasPrefix(seg, ":") && len(seg) > 1:
		return kindParam, seg[1:]
	case strings.HasPrefix(seg, "*") && len(seg) > 1:
		return kindCatchAll, seg[1:]
	default:
		return kindStatic, seg
	}
}

// Fixed trie child labels for the two dynamic segment kinds: there is
// exactly one parameter slot and one catch-all slot per parent node,
// regardless of the parameter's declared name (spec §4.B: two routes
// cannot occupy the same position).
const (
	paramLabel    = ":"
	catchAllLabel = "*"
)

// nodeLabel returns the trie child label a pattern segment occupies: the
// literal for a static segment, or the fixed sentinel label for parameter
// and catch-all segments.
func nodeLabel(seg string) string {
	kind, _ := classify(seg)
	switch kind {
	case kindParam:
		return paramLabel
	case kindCatchAll:
		return catchAllLabel
	default:
		return seg
	}
}

// decodeSegment percent-decodes a raw path segment for parameter binding;
// an invalid escape falls back to the raw segment rather than failing the
// whole lookup (spec §6: "percent-decoding is applied to path segments on
// lookup, never to raw match parameters").
func decodeSegment(raw string) string {
	decoded, err := url.PathUnescape(raw)
	if err != nil {
		return raw
	}
	return decoded
}
