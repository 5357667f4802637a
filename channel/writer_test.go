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
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/inboundhq/httpengine"
	"github.com/inboundhq/httpengine/framer"
)

type bufferSink struct {
	buf bytes.Buffer
}

func (s *bufferSink) Write(p []byte) (int, error) { return s.buf.Write(p) }
func (s *bufferSink) ShutdownWrite() error         { return nil }

func v11() httpengine.ProtocolVersion { return httpengine.ProtocolVersion{Major: 1, Minor: 1} }

func TestWriterWritesStatusLineAndBody(t *testing.T) {
	sink := &bufferSink{}
	w := NewWriter(sink, framer.Config{}, false)

	resp := httpengine.NewResponse(200, []byte("hi"))
	result, err := w.Write(resp, "GET", false, v11(), nil)
	require.NoError(t, err)
	require.False(t, result.CloseConnection)
	require.Contains(t, sink.buf.String(), "HTTP/1.1 200 OK\r\n")
	require.Contains(t, sink.buf.String(), "hi")
	require.True(t, w.WroteFinal())
	require.EqualValues(t, w.BytesWritten(), sink.buf.Len())
}

func TestWriterRejectsSecondFinalWrite(t *testing.T) {
	sink := &bufferSink{}
	w := NewWriter(sink, framer.Config{}, false)

	_, err := w.Write(httpengine.NewResponse(200, []byte("a")), "GET", false, v11(), nil)
	require.NoError(t, err)

	_, err = w.Write(httpengine.NewResponse(200, []byte("b")), "GET", false, v11(), nil)
	require.Error(t, err)
}

func TestWriterRunsAfterActions(t *testing.T) {
	sink := &bufferSink{}
	w := NewWriter(sink, framer.Config{}, false)

	action := AfterAction(func(resp *httpengine.Response) (*httpengine.Response, error) {
		return httpengine.NewResponse(201, []byte("created")), nil
	})

	_, err := w.Write(httpengine.NewResponse(200, []byte("a")), "GET", false, v11(), []AfterAction{action})
	require.NoError(t, err)
	require.Contains(t, sink.buf.String(), "HTTP/1.1 201 Created\r\n")
}

func TestWriterDropsRepeatedContinue(t *testing.T) {
	sink := &bufferSink{}
	w := NewWriter(sink, framer.Config{}, false)

	result, err := w.Write(httpengine.Continue100(), "GET", false, v11(), nil)
	require.NoError(t, err)
	require.False(t, result.CloseConnection)

	result, err = w.Write(httpengine.Continue100(), "GET", false, v11(), nil)
	require.NoError(t, err)
	require.False(t, result.CloseConnection)
	require.False(t, w.WroteFinal())
}

func TestWriterRejectsInformationalOnHTTP10WhenConfigured(t *testing.T) {
	sink := &bufferSink{}
	w := NewWriter(sink, framer.Config{}, true)

	_, err := w.Write(httpengine.Continue100(), "GET", false, httpengine.ProtocolVersion{Major: 1, Minor: 0}, nil)
	require.Error(t, err)
}

func TestWriterDiscardsInformationalOnHTTP10WhenNotConfigured(t *testing.T) {
	sink := &bufferSink{}
	w := NewWriter(sink, framer.Config{}, false)

	result, err := w.Write(httpengine.Continue100(), "GET", false, httpengine.ProtocolVersion{Major: 1, Minor: 0}, nil)
	require.NoError(t, err)
	require.False(t, result.CloseConnection)
	require.Zero(t, sink.buf.Len())
}

func TestWriterByteCounterObservesWrites(t *testing.T) {
	sink := &bufferSink{}
	w := NewWriter(sink, framer.Config{}, false)
	counter := &countingCounter{}
	w.SetByteCounter(counter)

	_, err := w.Write(httpengine.NewResponse(200, []byte("hello")), "GET", false, v11(), nil)
	require.NoError(t, err)
	require.Equal(t, int(w.BytesWritten()), counter.total)
}
