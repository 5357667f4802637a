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
	"context"
	"errors"
	"sort"
	"sync"
	"sync/atomic"

	"github.com/inboundhq/httpengine"
	"github.com/inboundhq/httpengine/trie"
)

// HandlerFunc is the application logic that answers a matched request.
type HandlerFunc func(ctx context.Context, req *httpengine.Request) (*httpengine.Response, error)

// BeforeAction runs ahead of the handler and may short-circuit the
// exchange by returning a non-nil response (spec §4.G.7).
type BeforeAction func(ctx context.Context, req *httpengine.Request) (*httpengine.Response, error)

// AfterAction runs against the handler's response and may substitute a
// new one (spec §4.F.4). Has the same shape as channel.AfterAction; the
// exchange orchestrator converts between them at the call boundary so
// this package does not need to import httpengine/channel.
type AfterAction func(resp *httpengine.Response) (*httpengine.Response, error)

var (
	// ErrRouteExists is returned by Handle when a route already occupies
	// the given method and pattern.
	ErrRouteExists = errors.New("route: route already registered at this method and position")
	// ErrCatchAllConflict is returned when a catch-all registration
	// collides with an existing value or sibling at the same position,
	// or vice versa (spec §4.B collision rules).
	ErrCatchAllConflict = errors.New("route: catch-all collides with a value or sibling at this position")
	// ErrParamNameConflict is returned when two routes declare different
	// parameter names at the same trie position.
	ErrParamNameConflict = errors.New("route: conflicting parameter name at this position")
)

// staticBloomThreshold mirrors the teacher's >10-static-routes threshold
// for enabling the bloom-filter accelerator (router/radix.go,
// CompiledRouteTable.getRoute).
const staticBloomThreshold = 10

type routeEntry struct {
	Pattern string
	Handler HandlerFunc
	Name    string
	seq     int64
}

type actionEntry struct {
	seq    int64
	key    string // path-compressed key: the pattern prefix the action was registered under
	before BeforeAction
	after  AfterAction
}

// binding is the value stored at a trie node: the routes (by method) that
// terminate exactly here, and the before/after actions registered at this
// position, which apply to every request whose matched path passes
// through here (spec §4.B: "many actions can fire per request").
type binding struct {
	mu            sync.Mutex
	routes        map[string]*routeEntry
	before        []actionEntry
	after         []actionEntry
	paramName     string
	catchAllName  string
	hasParam      bool
	hasCatchAll   bool
	hasStaticSibl bool // true once any static child has been created at this position
}

// Registry is a concurrent route, before-action, and after-action store
// built on httpengine/trie.
type Registry struct {
	tr         *trie.Trie
	seq        int64
	mu         sync.Mutex // serializes registration bookkeeping (not lookup)
	bloom      *trie.BloomFilter
	static     int32 // count of fully-static route patterns registered
	useBloom   atomic.Bool
	hasDynamic atomic.Bool // true once any param or catch-all segment has been registered

	metrics atomic.Pointer[httpengine.Metrics]
}

// NewRegistry constructs an empty Registry.
func NewRegistry() *Registry {
	return &Registry{tr: trie.New()}
}

// SetMetrics attaches the meter the registry reports trie insert/prune
// counts to (spec's Metrics component, httpengine/trie mutation counter).
// Server calls this once at startup with its Config.Metrics; nil is a
// valid no-op meter.
func (r *Registry) SetMetrics(m *httpengine.Metrics) { r.metrics.Store(m) }

// recordTrieMutation reports to the attached meter, if any; Metrics'
// methods are nil-safe, so a registry with no meter attached is a no-op.
func (r *Registry) recordTrieMutation(kind string) {
	r.metrics.Load().RecordTrieMutation(context.Background(), kind)
}

func (r *Registry) nextSeq() int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seq++
	return r.seq
}

// Handle registers handler to answer method requests matching pattern
// (e.g. "/users/:id/*rest"). Returns ErrRouteExists, ErrCatchAllConflict,
// or ErrParamNameConflict on a collision.
func (r *Registry) Handle(method, pattern string, handler HandlerFunc) error {
	return r.HandleNamed(method, pattern, "", handler)
}

// HandleNamed is Handle with an optional name for introspection (Info.Name).
func (r *Registry) HandleNamed(method, pattern, name string, handler HandlerFunc) error {
	segments := splitSegments(pattern)
	b, err := r.walkCreate(segments)
	if err != nil {
		return err
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.routes == nil {
		b.routes = make(map[string]*routeEntry)
	}
	if _, exists := b.routes[method]; exists {
		return ErrRouteExists
	}
	if b.hasCatchAll {
		return ErrCatchAllConflict
	}
	b.routes[method] = &routeEntry{Pattern: pattern, Handler: handler, Name: name, seq: r.nextSeq()}
	r.recordTrieMutation("insert")

	if isStaticPattern(segments) {
		r.addToBloom(bloomKey(method, pattern))
		if n := atomic.AddInt32(&r.static, 1); n > staticBloomThreshold {
			r.useBloom.Store(true)
		}
	}
	return nil
}

// addToBloom records key in the bloom filter, allocating it on first use.
// Every static route is recorded from the first registration on, so the
// filter already holds all of them when useBloom switches it on.
func (r *Registry) addToBloom(key []byte) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.bloom == nil {
		r.bloom = trie.NewBloomFilter(4096, 3)
	}
	r.bloom.Add(key)
}

func isStaticPattern(segments []string) bool {
	for _, seg := range segments {
		kind, _ := classify(seg)
		if kind != kindStatic {
			return false
		}
	}
	return true
}

func bloomKey(method, pattern string) []byte {
	return []byte(method + " " + pattern)
}

// Before registers a before-action at pattern, applying to every request
// whose matched path passes through this position.
func (r *Registry) Before(pattern string, action BeforeAction) error {
	b, err := r.walkCreate(splitSegments(pattern))
	if err != nil {
		return err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.before = append(b.before, actionEntry{seq: r.nextSeq(), key: pattern, before: action})
	return nil
}

// After registers an after-action at pattern, same applicability as Before.
func (r *Registry) After(pattern string, action AfterAction) error {
	b, err := r.walkCreate(splitSegments(pattern))
	if err != nil {
		return err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.after = append(b.after, actionEntry{seq: r.nextSeq(), key: pattern, after: action})
	return nil
}

// walkCreate walks/creates the trie path for segments, enforcing the
// collision rules of spec §4.B along the way, and returns the binding at
// the terminal node (creating one if this is the first registration
// there).
func (r *Registry) walkCreate(segments []string) (*binding, error) {
	var result *binding
	var walkErr error
	r.tr.Write(func(c trie.WriteCursor) {
		for _, seg := range segments {
			kind, name := classify(seg)
			label := nodeLabel(seg)

			if kind != kindStatic {
				r.hasDynamic.Store(true)
			}

			// The parent's own binding carries the sibling-exclusivity
			// flags for this position (created eagerly: an intermediate
			// node such as "/files" above a lone "/files/*path" catch-all
			// would otherwise never get one at all). The bound
			// parameter/catch-all name itself is carried on the CHILD
			// node's binding below, since that is what a lookup walk
			// has in hand when it needs the name to bind against.
			parentBinding := bindingAtCreate(c)
			parentBinding.mu.Lock()
			switch kind {
			case kindCatchAll:
				if parentBinding.hasParam || parentBinding.hasStaticSibl || len(parentBinding.routes) > 0 {
					parentBinding.mu.Unlock()
					walkErr = ErrCatchAllConflict
					return
				}
				parentBinding.hasCatchAll = true
			case kindParam:
				if parentBinding.hasCatchAll {
					parentBinding.mu.Unlock()
					walkErr = ErrCatchAllConflict
					return
				}
				parentBinding.hasParam = true
			default:
				if parentBinding.hasCatchAll {
					parentBinding.mu.Unlock()
					walkErr = ErrCatchAllConflict
					return
				}
				parentBinding.hasStaticSibl = true
			}
			parentBinding.mu.Unlock()

			c = c.NextOrCreate(label)

			if kind == kindParam || kind == kindCatchAll {
				childBinding := bindingAtCreate(c)
				childBinding.mu.Lock()
				switch kind {
				case kindParam:
					if childBinding.paramName == "" {
						childBinding.paramName = name
					} else if childBinding.paramName != name {
						childBinding.mu.Unlock()
						walkErr = ErrParamNameConflict
						return
					}
				case kindCatchAll:
					if childBinding.catchAllName == "" {
						childBinding.catchAllName = name
					} else if childBinding.catchAllName != name {
						childBinding.mu.Unlock()
						walkErr = ErrParamNameConflict
						return
					}
				}
				childBinding.mu.Unlock()
			}
		}
		result = bindingAtCreate(c)
	})
	if walkErr != nil {
		return nil, walkErr
	}
	return result, nil
}

func bindingAtCreate(c trie.WriteCursor) *binding {
	b := &binding{}
	c.SetIfAbsent(b, func(old any) { b = old.(*binding) })
	return b
}

// Info describes a registered route for introspection.
type Info struct {
	Method     string
	Pattern    string
	Name       string
	ParamCount int
}

// Routes returns every registered route, sorted by pattern, then method.
func (r *Registry) Routes() []Info {
	var out []Info
	var walk func(c trie.Cursor)
	walk = func(c trie.Cursor) {
		if v, ok := c.Value(); ok {
			b := v.(*binding)
			b.mu.Lock()
			for method, e := range b.routes {
				out = append(out, Info{
					Method:     method,
					Pattern:    e.Pattern,
					Name:       e.Name,
					ParamCount: countParams(e.Pattern),
				})
			}
			b.mu.Unlock()
		}
		c.Children(func(_ string, child trie.Cursor) { walk(child) })
	}
	walk(r.tr.Read())
	sort.Slice(out, func(i, j int) bool {
		if out[i].Pattern != out[j].Pattern {
			return out[i].Pattern < out[j].Pattern
		}
		return out[i].Method < out[j].Method
	})
	return out
}

func countParams(pattern string) int {
	n := 0
	for _, seg := range splitSegments(pattern) {
		if kind, _ := classify(seg); kind != kindStatic {
			n++
		}
	}
	return n
}

// Prune runs one pruning pass over the underlying trie (spec §4.A). It
// runs only when a caller invokes it: there is no background goroutine
// inside this package, and package server does not call it.
func (r *Registry) Prune() {
	r.tr.Prune()
	r.recordTrieMutation("prune")
}
