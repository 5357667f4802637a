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

// Cursor is a read-only traversal handle. Reads never block and may race
// harmlessly with a concurrent Prune pass.
type Cursor struct{ n *node }

// Next returns the child labeled seg and whether it exists.
func (c Cursor) Next(seg string) (Cursor, bool) {
	child := c.n.child(seg)
	if child == nil {
		return Cursor{}, false
	}
	return Cursor{n: child}, true
}

// NextIfPresent feeds the child's value into sink if the child and a
// value on it both exist, reporting whether sink was called.
func (c Cursor) NextIfPresent(seg string, sink func(value any)) bool {
	child := c.n.child(seg)
	if child == nil {
		return false
	}
	v, ok := child.loadValue()
	if !ok {
		return false
	}
	sink(v)
	return true
}

// Value returns the value stored at this position, if any.
func (c Cursor) Value() (any, bool) { return c.n.loadValue() }

// Children invokes fn for every currently-live child label. Safe to call
// concurrently with mutation; may or may not observe children inserted or
// removed during the call.
func (c Cursor) Children(fn func(label string, child Cursor)) {
	c.n.children.Range(func(key, val any) bool {
		fn(key.(string), Cursor{n: val.(*node)})
		return true
	})
}

// WriteCursor is the mutating traversal handle passed to Trie.Write. Every
// node it visits is reserved against concurrent pruning for the duration
// of the Write call that produced it.
type WriteCursor struct{ n *node }

// NextOrCreate advances to (creating if absent) the child labeled seg.
func (c WriteCursor) NextOrCreate(seg string) WriteCursor {
	return WriteCursor{n: stepCreate(c.n, seg)}
}

// SetIfAbsent sets value at the cursor's current position if none is
// present, otherwise invokes otherwise with the existing value. Reports
// whether value was stored.
func (c WriteCursor) SetIfAbsent(value any, otherwise func(old any)) bool {
	return c.n.setIfAbsent(value, otherwise)
}

// Value returns the value stored at this position, if any.
func (c WriteCursor) Value() (any, bool) { return c.n.loadValue() }
