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

// Package trie implements a concurrent segment-keyed store with on-demand
// growth and background-free pruning, the structure httpengine/route builds
// routes, before-actions, and after-actions on top of.
//
// Reads never block: a lookup walks the children map without taking any
// lock and may pass through a node that a concurrent Prune is about to
// unlink, in which case it simply finds no value. Mutating walks (Write
// and its WriteCursor) reserve each visited node with a shared lock so many
// can proceed concurrently; Prune takes an exclusive try-lock per node and
// skips (rather than blocks on) contention, running to completion in one
// depth-first pass with no background goroutine of its own.
package trie
