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

package trie

import (
	"errors"
	"sync"
	"sync/atomic"
)

// ErrStaleBranch is returned by a reservation attempt on a node a
// concurrent Prune has already orphaned; the walker must retry from the
// node's parent (spec §4.A, "reservation protocol").
var ErrStaleBranch = errors.New("trie: stale branch, retry from parent")

// valueBox boxes a stored value so a nil *valueBox unambiguously means "no
// value", distinguishing it from a stored nil interface.
type valueBox struct{ v any }

// node is one position in the segment trie: an optional value, a
// concurrent map of children keyed by segment label, and the reservation
// lock that arbitrates between walkers and Prune.
type node struct {
	mu       sync.RWMutex // reservation lock: RLock to walk/create, Lock (try) to prune
	orphan   atomic.Bool
	value    atomic.Pointer[valueBox]
	children sync.Map // string -> *node
}

func newNode() *node { return &node{} }

// reserve takes the shared reservation lock and checks the node hasn't
// been orphaned out from under the caller by a concurrent Prune pass. The
// caller must call the returned release function exactly once.
func (n *node) reserve() (release func(), err error) {
	n.mu.RLock()
	if n.orphan.Load() {
		n.mu.RUnlock()
		return nil, ErrStaleBranch
	}
	return n.mu.RUnlock, nil
}

// child returns the existing child labeled seg, or nil.
func (n *node) child(seg string) *node {
	v, ok := n.children.Load(seg)
	if !ok {
		return nil
	}
	return v.(*node)
}

// childOrCreate returns the child labeled seg, creating and storing a new
// one if absent. Safe under only a shared reservation on n, since
// sync.Map tolerates concurrent LoadOrStore.
func (n *node) childOrCreate(seg string) *node {
	actual, _ := n.children.LoadOrStore(seg, newNode())
	return actual.(*node)
}

// loadValue returns the stored value and whether one is present.
func (n *node) loadValue() (any, bool) {
	b := n.value.Load()
	if b == nil {
		return nil, false
	}
	return b.v, true
}

// setIfAbsent atomically stores value if none is present, otherwise
// invokes otherwise (if non-nil) with the existing value. Returns true if
// value was stored.
func (n *node) setIfAbsent(value any, otherwise func(old any)) bool {
	box := &valueBox{v: value}
	if n.value.CompareAndSwap(nil, box) {
		return true
	}
	if otherwise != nil {
		if old := n.value.Load(); old != nil {
			otherwise(old.v)
		}
	}
	return false
}

// clearIf clears the value if predicate accepts it (or unconditionally
// when predicate is nil), returning the cleared value and whether a clear
// happened.
func (n *node) clearIf(predicate func(v any) bool) (any, bool) {
	for {
		old := n.value.Load()
		if old == nil {
			return nil, false
		}
		if predicate != nil && !predicate(old.v) {
			return nil, false
		}
		if n.value.CompareAndSwap(old, nil) {
			return old.v, true
		}
	}
}

// isEmpty reports whether n has no value and no children — the orphan
// condition Prune checks (spec §4.A).
func (n *node) isEmpty() bool {
	if n.value.Load() != nil {
		return false
	}
	empty := true
	n.children.Range(func(_, _ any) bool {
		empty = false
		return false
	})
	return empty
}
