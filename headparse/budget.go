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
	"github.com/inboundhq/httpengine"
)

// Budget tracks bytes consumed against a configured maximum, shared across
// the request-line parser and the header parser for one exchange (spec
// §4.D: "count bytes against the configured head-size budget").
type Budget struct {
	Max  int
	used int
}

// NewBudget constructs a Budget with the given maximum.
func NewBudget(max int) *Budget { return &Budget{Max: max} }

// Consume charges n bytes against the budget, returning KindHeadTooLarge
// once exceeded.
func (b *Budget) Consume(n int) error {
	b.used += n
	if b.Max > 0 && b.used > b.Max {
		return httpengine.NewError(httpengine.KindHeadTooLarge, nil)
	}
	return nil
}

// Used reports bytes consumed so far.
func (b *Budget) Used() int { return b.used }

// Remaining reports bytes left before the budget is exceeded; it is not
// meaningful (returns a large sentinel) when Max is 0 (unbounded).
func (b *Budget) Remaining() int {
	if b.Max <= 0 {
		return int(^uint(0) >> 1)
	}
	if b.used >= b.Max {
		return 0
	}
	return b.Max - b.used
}

// TrailersBudget is the analogous budget type for the separate trailers
// size limit; the chunked request-body decoder in package exchange does
// not use it.
type TrailersBudget = Budget

// NewTrailersBudget constructs the trailers budget.
func NewTrailersBudget(max int) *TrailersBudget { return NewBudget(max) }
