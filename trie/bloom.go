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

import "hash/fnv"

// BloomFilter is a probabilistic negative-lookup accelerator: it can say
// "definitely not in the set" with certainty, or "possibly in the set"
// with some false-positive rate. httpengine/route places one in front of
// a registry's static routes once it holds more than a handful, so a miss
// on an unregistered path avoids a full trie walk.
//
// Implemented with FNV-1a hashed against a small set of seeds, one bit
// array shared across all seeds.
type BloomFilter struct {
	bits  []uint64
	size  uint64
	seeds []uint64
}

// NewBloomFilter builds a filter with size bits and numHashFuncs seeds.
func NewBloomFilter(size uint64, numHashFuncs int) *BloomFilter {
	bf := &BloomFilter{
		bits:  make([]uint64, (size+63)/64),
		size:  size,
		seeds: make([]uint64, numHashFuncs),
	}
	for i := range numHashFuncs {
		bf.seeds[i] = uint64(i + 1)
	}
	return bf
}

func (bf *BloomFilter) hashWithSeed(baseHash, seed uint64) uint64 {
	return (baseHash ^ seed) % bf.size
}

// Add records data as present.
func (bf *BloomFilter) Add(data []byte) {
	h := fnv.New64a()
	h.Write(data)
	baseHash := h.Sum64()
	for _, seed := range bf.seeds {
		pos := bf.hashWithSeed(baseHash, seed)
		bf.bits[pos/64] |= 1 << (pos % 64)
	}
}

// Test reports whether data might be present; false is a definite answer,
// true may be a false positive.
func (bf *BloomFilter) Test(data []byte) bool {
	h := fnv.New64a()
	h.Write(data)
	return bf.TestHash(h.Sum64())
}

// TestHash is Test for a caller that already has data's FNV-1a hash, to
// avoid rehashing a route key computed elsewhere during lookup.
func (bf *BloomFilter) TestHash(baseHash uint64) bool {
	for _, seed := range bf.seeds {
		pos := bf.hashWithSeed(baseHash, seed)
		if bf.bits[pos/64]&(1<<(pos%64)) == 0 {
			return false
		}
	}
	return true
}
