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
	"sort"
	"strings"

	"github.com/inboundhq/httpengine/trie"
)

// Match is the outcome of a successful lookup: the matched handler, its
// bound path parameters, and the before/after actions collected along the
// matched path, already sorted into their run order (spec §4.B).
type Match struct {
	Handler   HandlerFunc
	Pattern   string
	Name      string
	Params    map[string]string
	RawParams map[string]string
	Before    []BeforeAction
	After     []AfterAction
}

// Match looks up method and path, walking the trie with static children
// preferred over a param child, which is in turn preferred over a
// catch-all child (spec §4.B). A catch-all is exclusive with every
// sibling at its parent, but a static child and a param child may sit
// side by side; the walk commits to the static child whenever one exists
// and does not backtrack to the param child if the static branch later
// fails to match.
func (r *Registry) Match(method, path string) (*Match, bool) {
	// A miss here is a definite 404 only when every registered route is
	// fully static (no param/catch-all route could ever match it): the
	// bloom filter was only ever populated with static method+pattern
	// keys (HandleNamed), so a negative bloom test against a registry
	// holding dynamic routes proves nothing and must still fall through
	// to the trie walk below.
	if r.useBloom.Load() && !r.hasDynamic.Load() && !r.bloom.Test(bloomKey(method, path)) {
		return nil, false
	}

	segments := splitSegments(path)

	var befores []actionEntry
	var afters []actionEntry
	collect := func(b *binding) {
		if b == nil {
			return
		}
		b.mu.Lock()
		befores = append(befores, b.before...)
		afters = append(afters, b.after...)
		b.mu.Unlock()
	}

	params := make(map[string]string)
	rawParams := make(map[string]string)

	cur := r.tr.Read()
	if v, ok := cur.Value(); ok {
		collect(v.(*binding))
	}

	for i, seg := range segments {
		next, ok := cur.Next(seg)
		if ok {
			cur = next
			if v, vok := cur.Value(); vok {
				collect(v.(*binding))
			}
			continue
		}

		next, ok = cur.Next(paramLabel)
		if ok {
			cur = next
			b, hasVal := cur.Value()
			if hasVal {
				bd := b.(*binding)
				bd.mu.Lock()
				name := bd.paramName
				bd.mu.Unlock()
				if name != "" {
					rawParams[name] = seg
					params[name] = decodeSegment(seg)
				}
				collect(bd)
			}
			continue
		}

		next, ok = cur.Next(catchAllLabel)
		if ok {
			cur = next
			b, hasVal := cur.Value()
			if hasVal {
				bd := b.(*binding)
				bd.mu.Lock()
				name := bd.catchAllName
				bd.mu.Unlock()
				rest := strings.Join(segments[i:], "/")
				if name != "" {
					rawParams[name] = rest
					params[name] = decodeSegment(rest)
				}
				collect(bd)
			}
			// catch-all consumes the remainder of the path at once.
			return finalizeMatch(cur, method, params, rawParams, befores, afters)
		}

		return nil, false
	}

	return matchAtOrCatchAll(cur, method, params, rawParams, befores, afters, collect)
}

// matchAtOrCatchAll finalizes a match at cur, the node reached after the
// last path segment. If cur itself has no route for method, but has a
// catch-all child, the path was exhausted with no trailing segment to
// consume (e.g. "/files" against a "/files/*path" route): spec §4.B binds
// the catch-all parameter to "/" in that case rather than failing the
// match.
func matchAtOrCatchAll(cur trie.Cursor, method string, params, rawParams map[string]string, befores, afters []actionEntry, collect func(*binding)) (*Match, bool) {
	if m, ok := finalizeMatch(cur, method, params, rawParams, befores, afters); ok {
		return m, ok
	}

	next, ok := cur.Next(catchAllLabel)
	if !ok {
		return nil, false
	}
	b, hasVal := next.Value()
	if hasVal {
		bd := b.(*binding)
		bd.mu.Lock()
		name := bd.catchAllName
		bd.mu.Unlock()
		if name != "" {
			rawParams[name] = "/"
			params[name] = "/"
		}
		collect(bd)
	}
	return finalizeMatch(next, method, params, rawParams, befores, afters)
}

func finalizeMatch(cur trie.Cursor, method string, params, rawParams map[string]string, befores, afters []actionEntry) (*Match, bool) {
	v, ok := cur.Value()
	if !ok {
		return nil, false
	}
	b := v.(*binding)
	b.mu.Lock()
	entry, ok := b.routes[method]
	b.mu.Unlock()
	if !ok {
		return nil, false
	}

	sortBefore(befores)
	sortAfter(afters)

	m := &Match{
		Handler:   entry.Handler,
		Pattern:   entry.Pattern,
		Name:      entry.Name,
		Params:    params,
		RawParams: rawParams,
		Before:    make([]BeforeAction, 0, len(befores)),
		After:     make([]AfterAction, 0, len(afters)),
	}
	for _, a := range befores {
		m.Before = append(m.Before, a.before)
	}
	for _, a := range afters {
		m.After = append(m.After, a.after)
	}
	return m, true
}

// sortBefore orders before-actions by ascending path-compressed key (so
// actions registered nearer the root run first), then by ascending
// insertion order within the same key (spec §4.B).
func sortBefore(entries []actionEntry) {
	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].key != entries[j].key {
			return entries[i].key < entries[j].key
		}
		return entries[i].seq < entries[j].seq
	})
}

// sortAfter orders after-actions by descending path-compressed key (so
// actions registered nearer the handler run first, unwinding outward like
// a stack), then by ascending insertion order within the same key (spec
// §4.B).
func sortAfter(entries []actionEntry) {
	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].key != entries[j].key {
			return entries[i].key > entries[j].key
		}
		return entries[i].seq < entries[j].seq
	})
}
