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

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func writeYAML(t *testing.T, contents string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "httpengine.yaml")
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))
	return path
}

func TestLoadOverlaysOnlySetFields(t *testing.T) {
	path := writeYAML(t, `
maxRequestHeadSize: 4096
timeoutIdleConnection: 30s
rejectClientsUsingHTTP1_0: true
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	require.Equal(t, 4096, cfg.MaxRequestHeadSize)
	require.Equal(t, 30*time.Second, cfg.TimeoutIdleConnection)
	require.True(t, cfg.RejectClientsUsingHTTP1_0)

	// Fields the document never mentioned keep httpengine.NewConfig's
	// defaults rather than zeroing out.
	require.Equal(t, 8000, cfg.MaxRequestTrailersSize)
	require.Equal(t, 25, cfg.MaxUnsuccessfulResponses)
}

func TestLoadEmptyDocumentKeepsDefaults(t *testing.T) {
	path := writeYAML(t, "")

	cfg, err := Load(path)
	require.NoError(t, err)

	require.Equal(t, 8000, cfg.MaxRequestHeadSize)
	require.Equal(t, 60*time.Second, cfg.TimeoutIdleConnection)
}

func TestLoadRejectsUnknownKey(t *testing.T) {
	path := writeYAML(t, "maxRequstHeadSize: 1\n")

	_, err := Load(path)
	require.Error(t, err)
}

func TestLoadRejectsBadDuration(t *testing.T) {
	path := writeYAML(t, "timeoutIdleConnection: not-a-duration\n")

	_, err := Load(path)
	require.Error(t, err)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
}
