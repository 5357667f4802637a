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
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/inboundhq/httpengine"
	"github.com/inboundhq/httpengine/channel"
)

type stringSource struct{ r *strings.Reader }

func newStringSource(s string) channel.Source { return &stringSource{r: strings.NewReader(s)} }

func (s *stringSource) Read(p []byte) (int, error) { return s.r.Read(p) }
func (s *stringSource) ShutdownRead() error         { return nil }

func TestParseRequestLineSimpleGET(t *testing.T) {
	r := channel.NewReaderSize(newStringSource("GET /hello HTTP/1.1\r\n"), 64)
	line, err := ParseRequestLine(r, NewBudget(0))
	require.NoError(t, err)
	require.Equal(t, "GET", line.Method)
	require.Equal(t, "/hello", line.Target)
	require.Equal(t, httpengine.ProtocolVersion{Major: 1, Minor: 1}, line.HTTPVersion)
}

func TestParseRequestLineAcceptsBareLF(t *testing.T) {
	r := channel.NewReaderSize(newStringSource("GET / HTTP/1.0\n"), 64)
	line, err := ParseRequestLine(r, NewBudget(0))
	require.NoError(t, err)
	require.Equal(t, httpengine.ProtocolVersion{Major: 1, Minor: 0}, line.HTTPVersion)
}

func TestParseRequestLineRejectsMissingMethod(t *testing.T) {
	r := channel.NewReaderSize(newStringSource(" / HTTP/1.1\r\n"), 64)
	_, err := ParseRequestLine(r, NewBudget(0))
	require.Error(t, err)
}

func TestParseRequestLineRejectsMalformedVersion(t *testing.T) {
	r := channel.NewReaderSize(newStringSource("GET / bogus\r\n"), 64)
	_, err := ParseRequestLine(r, NewBudget(0))
	require.Error(t, err)

	var herr *httpengine.Error
	require.ErrorAs(t, err, &herr)
	require.Equal(t, httpengine.KindParseError, herr.Kind)
}

func TestParseRequestLineEmptyStreamIsClientAborted(t *testing.T) {
	r := channel.NewReaderSize(newStringSource(""), 64)
	_, err := ParseRequestLine(r, NewBudget(0))
	require.Error(t, err)

	var herr *httpengine.Error
	require.ErrorAs(t, err, &herr)
	require.Equal(t, httpengine.KindClientAborted, herr.Kind)
}

func TestParseRequestLineExceedsBudget(t *testing.T) {
	r := channel.NewReaderSize(newStringSource("GET /aaaaaaaaaaaaaaaaaaaa HTTP/1.1\r\n"), 64)
	_, err := ParseRequestLine(r, NewBudget(5))
	require.Error(t, err)

	var herr *httpengine.Error
	require.ErrorAs(t, err, &herr)
	require.Equal(t, httpengine.KindHeadTooLarge, herr.Kind)
}
