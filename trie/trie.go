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

// Trie is a concurrent segment-keyed store. The zero value is not usable;
// construct with New.
type Trie struct {
	root *node
}

// New constructs an empty Trie.
func New() *Trie { return &Trie{root: newNode()} }

// SetIfAbsent walks (creating as needed) the path addressed by segments
// and sets value if no value is currently stored there; if one is, calls
// otherwise with the existing value instead. Reports whether value was
// stored.
func (t *Trie) SetIfAbsent(segments []string, value any, otherwise func(old any)) bool {
	n := t.walkCreate(segments)
	return n.setIfAbsent(value, otherwise)
}

// Clear removes any value at the path addressed by segments.
func (t *Trie) Clear(segments []string) (any, bool) {
	return t.ClearIf(segments, nil)
}

// ClearIf removes the value at the path addressed by segments if
// predicate accepts it (or unconditionally when predicate is nil).
func (t *Trie) ClearIf(segments []string, predicate func(v any) bool) (any, bool) {
	n, ok := t.walkExisting(segments)
	if !ok {
		return nil, false
	}
	return n.clearIf(predicate)
}

// Read returns a Cursor positioned at the root, for read-only traversal.
// Reads never block and may race harmlessly with a concurrent Prune.
func (t *Trie) Read() Cursor { return Cursor{n: t.root} }

// Write hands fn a Cursor positioned at the root with which it may
// traverse, create, and set values; every node visited along the way is
// reserved against concurrent pruning until Write returns.
func (t *Trie) Write(fn func(WriteCursor)) {
	fn(WriteCursor{n: t.root})
}

// Prune runs one serialized, depth-first, background-free pruning pass:
// orphans (and unlinks from their parent) every node with no value and no
// children, recursively. A node whose reservation lock is currently held
// by a concurrent walker is skipped for this pass (spec §4.A).
func (t *Trie) Prune() {
	pruneChildren(t.root)
}

func pruneChildren(n *node) {
	n.children.Range(func(key, val any) bool {
		child := val.(*node)
		pruneChildren(child)
		if child.isEmpty() {
			if child.mu.TryLock() {
				if child.isEmpty() {
					child.orphan.Store(true)
					n.children.Delete(key)
				}
				child.mu.Unlock()
			}
		}
		return true
	})
}

// walkCreate walks segments from the root, creating children as needed.
// Every parent is reserved while childOrCreate runs, so Prune's try-lock
// cannot orphan it mid-mutation; the freshly created child is additionally
// reserved once to confirm it wasn't orphaned in the narrow window between
// being linked and being handed to the next iteration, retrying via the
// (still-live) parent if it was (spec §4.A reservation protocol).
func (t *Trie) walkCreate(segments []string) *node {
	cur := t.root
	for _, seg := range segments {
		cur = stepCreate(cur, seg)
	}
	return cur
}

func stepCreate(parent *node, seg string) *node {
	for {
		release, err := parent.reserve()
		if err != nil {
			// parent is only ever a node this function itself just
			// confirmed live, or the trie root, which is never pruned.
			panic("trie: unreachable stale parent in walkCreate")
		}
		child := parent.childOrCreate(seg)
		release()

		crelease, cerr := child.reserve()
		if cerr == ErrStaleBranch {
			continue
		}
		crelease()
		return child
	}
}

// walkExisting walks segments from the root without creating, returning
// (nil, false) on the first missing segment.
func (t *Trie) walkExisting(segments []string) (*node, bool) {
	cur := t.root
	for _, seg := range segments {
		next := cur.child(seg)
		if next == nil {
			return nil, false
		}
		cur = next
	}
	return cur, true
}
