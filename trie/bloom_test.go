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
	"hash/fnv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBloomFilterAddAndTest(t *testing.T) {
	bf := NewBloomFilter(1000, 3)
	items := [][]byte{[]byte("GET/users"), []byte("POST/users"), []byte("GET/posts")}
	for _, item := range items {
		bf.Add(item)
	}
	for _, item := range items {
		assert.True(t, bf.Test(item), "added item should test positive")
	}
	assert.False(t, bf.Test([]byte("DELETE/users")), "unadded item should usually test negative")
}

func TestBloomFilterEmptyFilter(t *testing.T) {
	bf := NewBloomFilter(1000, 3)
	assert.False(t, bf.Test([]byte("anything")))
	assert.False(t, bf.Test(nil))
}

func TestBloomFilterFalsePositivesAreBounded(t *testing.T) {
	bf := NewBloomFilter(100, 3)
	for i := range 50 {
		bf.Add([]byte("/route" + string(rune('0'+i%10))))
	}
	falsePositives := 0
	const testCount = 100
	for i := range testCount {
		if bf.Test([]byte("/nonexistent" + string(rune('0'+i%10)) + string(rune('a'+i%26)))) {
			falsePositives++
		}
	}
	assert.Less(t, falsePositives, testCount, "should have some true negatives")
}

func TestBloomFilterTestHashMatchesTest(t *testing.T) {
	bf := NewBloomFilter(1000, 3)
	data := []byte("GET/users/42")
	bf.Add(data)
	require.True(t, bf.Test(data))

	h := fnv.New64a()
	h.Write(data)
	require.Equal(t, bf.Test(data), bf.TestHash(h.Sum64()))
}
