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

package framer

import (
	"bytes"
	"io"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/inboundhq/httpengine"
)

func drainIterator(t *testing.T, it BodyIterator) []byte {
	t.Helper()
	var out bytes.Buffer
	for {
		window, err := it.Next()
		if err == io.EOF {
			break
		}
		require.NoError(t, err)
		out.Write(window)
	}
	return out.Bytes()
}

func TestRawBodyIteratorYieldsAllBytes(t *testing.T) {
	it := newRawBodyIterator(httpengine.BytesBody([]byte("hello world")))
	require.Equal(t, "hello world", string(drainIterator(t, it)))
}

func TestChunkedIteratorFramesEachWindow(t *testing.T) {
	inner := newRawBodyIterator(httpengine.BytesBody([]byte("hi")))
	it := newChunkedIterator(inner, httpengine.NewBodySourceTrailer(nil))

	got := drainIterator(t, it)
	require.Equal(t, "2\r\nhi\r\n0\r\n\r\n", string(got))
}

func TestNewBodyIteratorPicksChunkedWhenHeaderSet(t *testing.T) {
	resp := httpengine.NewResponse(200, []byte("x"))
	resp.Header.Set("Transfer-Encoding", "chunked")

	it, err := newBodyIterator(resp, httpengine.ProtocolVersion{Major: 1, Minor: 1})
	require.NoError(t, err)

	got := drainIterator(t, it)
	require.Equal(t, "1\r\nx\r\n0\r\n\r\n", string(got))
}

func TestNewBodyIteratorPicksRawByDefault(t *testing.T) {
	resp := httpengine.NewResponse(200, []byte("x"))

	it, err := newBodyIterator(resp, httpengine.ProtocolVersion{Major: 1, Minor: 1})
	require.NoError(t, err)
	require.Equal(t, "x", string(drainIterator(t, it)))
}
