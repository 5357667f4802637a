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

package channel

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestViewPeekDoesNotAdvance(t *testing.T) {
	r := NewReaderSize(newStaticSource("hello"), 64)
	view, err := r.Next()
	require.NoError(t, err)

	require.Equal(t, "he", string(view.Peek(2)))
	require.Equal(t, 5, view.Remaining())
}

func TestViewReadByteAdvances(t *testing.T) {
	r := NewReaderSize(newStaticSource("ab"), 64)
	view, err := r.Next()
	require.NoError(t, err)

	b, err := view.ReadByte()
	require.NoError(t, err)
	require.Equal(t, byte('a'), b)
	require.Equal(t, 1, view.Remaining())

	b, err = view.ReadByte()
	require.NoError(t, err)
	require.Equal(t, byte('b'), b)

	_, err = view.ReadByte()
	require.ErrorIs(t, err, ErrEmptyView)
}

func TestViewAdvanceBeyondRemainingFails(t *testing.T) {
	r := NewReaderSize(newStaticSource("ab"), 64)
	view, err := r.Next()
	require.NoError(t, err)

	require.ErrorIs(t, view.Advance(3), ErrEmptyView)
}

func TestZeroValueViewIsEmpty(t *testing.T) {
	var view View
	require.Equal(t, 0, view.Remaining())
	require.Nil(t, view.Bytes())
	require.False(t, view.EOS())
}
