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
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/inboundhq/httpengine"
)

func TestBudgetConsumeWithinMax(t *testing.T) {
	b := NewBudget(10)
	require.NoError(t, b.Consume(5))
	require.Equal(t, 5, b.Used())
	require.Equal(t, 5, b.Remaining())
}

func TestBudgetConsumeExceedsMax(t *testing.T) {
	b := NewBudget(4)
	require.NoError(t, b.Consume(4))
	err := b.Consume(1)
	require.Error(t, err)

	var herr *httpengine.Error
	require.ErrorAs(t, err, &herr)
	require.Equal(t, httpengine.KindHeadTooLarge, herr.Kind)
}

func TestBudgetUnboundedWhenMaxZero(t *testing.T) {
	b := NewBudget(0)
	require.NoError(t, b.Consume(1<<20))
	require.Equal(t, 0, b.Max)
}
