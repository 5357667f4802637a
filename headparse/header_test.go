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

	"github.com/inboundhq/httpengine/channel"
)

func TestParseHeadersBasic(t *testing.T) {
	r := channel.NewReaderSize(newStringSource("Host: example.com\r\nContent-Length: 5\r\n\r\n"), 64)
	h, err := ParseHeaders(r, NewBudget(0))
	require.NoError(t, err)
	require.Equal(t, "example.com", h.Get("Host"))
	require.Equal(t, "5", h.Get("Content-Length"))
}

func TestParseHeadersFoldsContinuationLine(t *testing.T) {
	r := channel.NewReaderSize(newStringSource("X-Thing: first\r\n second\r\n\r\n"), 64)
	h, err := ParseHeaders(r, NewBudget(0))
	require.NoError(t, err)
	require.Equal(t, "first second", h.Get("X-Thing"))
}

func TestParseHeadersRejectsContinuationBeforeAnyHeader(t *testing.T) {
	r := channel.NewReaderSize(newStringSource(" leading continuation\r\n\r\n"), 64)
	_, err := ParseHeaders(r, NewBudget(0))
	require.Error(t, err)
}

func TestParseHeadersRejectsMissingColon(t *testing.T) {
	r := channel.NewReaderSize(newStringSource("NoColonHere\r\n\r\n"), 64)
	_, err := ParseHeaders(r, NewBudget(0))
	require.Error(t, err)
}

func TestParseHeadersRejectsSpaceBeforeColon(t *testing.T) {
	r := channel.NewReaderSize(newStringSource("Host : example.com\r\n\r\n"), 64)
	_, err := ParseHeaders(r, NewBudget(0))
	require.Error(t, err)
}

func TestParseHeadersAllowsRepeatedHeaderName(t *testing.T) {
	r := channel.NewReaderSize(newStringSource("X-Multi: one\r\nX-Multi: two\r\n\r\n"), 64)
	h, err := ParseHeaders(r, NewBudget(0))
	require.NoError(t, err)
	require.Equal(t, []string{"one", "two"}, h.Values("X-Multi"))
}

func TestParseHeadersEmptyBlockReturnsNoHeaders(t *testing.T) {
	r := channel.NewReaderSize(newStringSource("\r\n"), 64)
	h, err := ParseHeaders(r, NewBudget(0))
	require.NoError(t, err)
	require.Empty(t, h)
}
