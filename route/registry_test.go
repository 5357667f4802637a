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

package route

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inboundhq/httpengine"
)

func noopHandler(context.Context, *httpengine.Request) (*httpengine.Response, error) {
	return httpengine.NewResponse(200, nil), nil
}

func TestHandleAndMatchStatic(t *testing.T) {
	t.Parallel()
	r := NewRegistry()
	require.NoError(t, r.Handle("GET", "/users", noopHandler))

	m, ok := r.Match("GET", "/users")
	require.True(t, ok)
	assert.Equal(t, "/users", m.Pattern)
	assert.Empty(t, m.Params)

	_, ok = r.Match("POST", "/users")
	assert.False(t, ok)
	_, ok = r.Match("GET", "/nope")
	assert.False(t, ok)
}

func TestMatchBindsParam(t *testing.T) {
	t.Parallel()
	r := NewRegistry()
	require.NoError(t, r.Handle("GET", "/users/:id", noopHandler))

	m, ok := r.Match("GET", "/users/42")
	require.True(t, ok)
	assert.Equal(t, "42", m.Params["id"])
	assert.Equal(t, "42", m.RawParams["id"])
}

func TestMatchBindsPercentDecodedParam(t *testing.T) {
	t.Parallel()
	r := NewRegistry()
	require.NoError(t, r.Handle("GET", "/search/:term", noopHandler))

	m, ok := r.Match("GET", "/search/a%2Fb")
	require.True(t, ok)
	assert.Equal(t, "a/b", m.Params["term"])
	assert.Equal(t, "a%2Fb", m.RawParams["term"])
}

func TestMatchBindsCatchAll(t *testing.T) {
	t.Parallel()
	r := NewRegistry()
	require.NoError(t, r.Handle("GET", "/files/*path", noopHandler))

	m, ok := r.Match("GET", "/files/a/b/c.txt")
	require.True(t, ok)
	assert.Equal(t, "a/b/c.txt", m.Params["path"])
}

func TestMatchCatchAllBindsSlashWhenNoTrailingSegment(t *testing.T) {
	t.Parallel()
	r := NewRegistry()
	require.NoError(t, r.Handle("GET", "/files/*path", noopHandler))

	m, ok := r.Match("GET", "/files")
	require.True(t, ok)
	assert.Equal(t, "/", m.Params["path"])
}

func TestStaticPreferredOverParam(t *testing.T) {
	t.Parallel()
	r := NewRegistry()
	require.NoError(t, r.Handle("GET", "/users/:id", noopHandler))
	require.NoError(t, r.Handle("GET", "/users/me", noopHandler))

	m, ok := r.Match("GET", "/users/me")
	require.True(t, ok)
	assert.Equal(t, "/users/me", m.Pattern)

	m, ok = r.Match("GET", "/users/7")
	require.True(t, ok)
	assert.Equal(t, "/users/:id", m.Pattern)
}

func TestCatchAllBindsMultiSegmentRemainder(t *testing.T) {
	t.Parallel()
	r := NewRegistry()
	require.NoError(t, r.Handle("GET", "/a/*rest", noopHandler))

	m, ok := r.Match("GET", "/a/b/c")
	require.True(t, ok)
	assert.Equal(t, "b/c", m.Params["rest"])
}

func TestConflictingParamNameAtSamePosition(t *testing.T) {
	t.Parallel()
	r := NewRegistry()
	require.NoError(t, r.Handle("GET", "/users/:id", noopHandler))
	err := r.Handle("GET", "/users/:slug", noopHandler)
	assert.ErrorIs(t, err, ErrParamNameConflict)
}

func TestCatchAllExclusiveWithStaticSibling(t *testing.T) {
	t.Parallel()
	r := NewRegistry()
	require.NoError(t, r.Handle("GET", "/files/*path", noopHandler))
	err := r.Handle("GET", "/files/readme", noopHandler)
	assert.ErrorIs(t, err, ErrCatchAllConflict)
}

func TestStaticSiblingExclusiveWithExistingCatchAll(t *testing.T) {
	t.Parallel()
	r := NewRegistry()
	require.NoError(t, r.Handle("GET", "/files/readme", noopHandler))
	err := r.Handle("GET", "/files/*path", noopHandler)
	assert.ErrorIs(t, err, ErrCatchAllConflict)
}

func TestDuplicateRouteRejected(t *testing.T) {
	t.Parallel()
	r := NewRegistry()
	require.NoError(t, r.Handle("GET", "/users", noopHandler))
	err := r.Handle("GET", "/users", noopHandler)
	assert.ErrorIs(t, err, ErrRouteExists)
}

func TestBeforeAfterOrdering(t *testing.T) {
	t.Parallel()
	r := NewRegistry()
	var order []string

	require.NoError(t, r.Before("/api", func(ctx context.Context, req *httpengine.Request) (*httpengine.Response, error) {
		order = append(order, "before:/api")
		return nil, nil
	}))
	require.NoError(t, r.Before("/api/users", func(ctx context.Context, req *httpengine.Request) (*httpengine.Response, error) {
		order = append(order, "before:/api/users")
		return nil, nil
	}))
	require.NoError(t, r.After("/api", func(resp *httpengine.Response) (*httpengine.Response, error) {
		order = append(order, "after:/api")
		return resp, nil
	}))
	require.NoError(t, r.After("/api/users", func(resp *httpengine.Response) (*httpengine.Response, error) {
		order = append(order, "after:/api/users")
		return resp, nil
	}))
	require.NoError(t, r.Handle("GET", "/api/users", noopHandler))

	m, ok := r.Match("GET", "/api/users")
	require.True(t, ok)
	require.Len(t, m.Before, 2)
	require.Len(t, m.After, 2)

	for _, b := range m.Before {
		_, _ = b(context.Background(), nil)
	}
	for _, a := range m.After {
		_, _ = a(nil)
	}

	assert.Equal(t, []string{
		"before:/api", "before:/api/users",
		"after:/api/users", "after:/api",
	}, order)
}

func TestGroupPrefixesRoutesAndActions(t *testing.T) {
	t.Parallel()
	r := NewRegistry()
	api := r.Group("/api/v1")
	called := false
	require.NoError(t, api.Before(func(ctx context.Context, req *httpengine.Request) (*httpengine.Response, error) {
		called = true
		return nil, nil
	}))
	require.NoError(t, api.GET("/ping", noopHandler))

	m, ok := r.Match("GET", "/api/v1/ping")
	require.True(t, ok)
	require.Len(t, m.Before, 1)
	_, _ = m.Before[0](context.Background(), nil)
	assert.True(t, called)
}

func TestRoutesIntrospection(t *testing.T) {
	t.Parallel()
	r := NewRegistry()
	require.NoError(t, r.Handle("GET", "/users/:id", noopHandler))
	require.NoError(t, r.Handle("POST", "/users", noopHandler))

	infos := r.Routes()
	require.Len(t, infos, 2)
	assert.Equal(t, "POST", infos[0].Method)
	assert.Equal(t, "/users", infos[0].Pattern)
	assert.Equal(t, "GET", infos[1].Method)
	assert.Equal(t, 1, infos[1].ParamCount)
}

func registerStaticRoutes(t *testing.T, r *Registry, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		require.NoError(t, r.Handle("GET", fmt.Sprintf("/static%d", i), noopHandler))
	}
}

func TestBloomFilterEnablesAfterThreshold(t *testing.T) {
	t.Parallel()
	r := NewRegistry()
	registerStaticRoutes(t, r, staticBloomThreshold)
	require.False(t, r.useBloom.Load(), "bloom should stay off at exactly the threshold")

	require.NoError(t, r.Handle("GET", "/onemore", noopHandler))
	require.True(t, r.useBloom.Load(), "bloom should switch on once past the threshold")
}

func TestMatchBloomShortCircuitsDefiniteMissWhenAllStatic(t *testing.T) {
	t.Parallel()
	r := NewRegistry()
	registerStaticRoutes(t, r, staticBloomThreshold+1)
	require.True(t, r.useBloom.Load())
	require.False(t, r.hasDynamic.Load())

	_, ok := r.Match("GET", "/nonexistent")
	require.False(t, ok)

	m, ok := r.Match("GET", "/static0")
	require.True(t, ok)
	assert.Equal(t, "/static0", m.Pattern)
}

func TestMatchBloomDoesNotShortCircuitWhenRegistryHasDynamicRoutes(t *testing.T) {
	t.Parallel()
	r := NewRegistry()
	registerStaticRoutes(t, r, staticBloomThreshold+1)
	require.NoError(t, r.Handle("GET", "/users/:id", noopHandler))
	require.True(t, r.useBloom.Load())
	require.True(t, r.hasDynamic.Load())

	m, ok := r.Match("GET", "/users/42")
	require.True(t, ok, "a dynamic route must still match even though the bloom filter never saw it")
	assert.Equal(t, "42", m.Params["id"])
}

func TestRegistryRecordsTrieMutationsWhenMetricsAttached(t *testing.T) {
	t.Parallel()
	r := NewRegistry()
	metrics, err := httpengine.NewMetrics("test-service", "v0.0.1", httpengine.WithMetricsServerDisabled())
	require.NoError(t, err)
	defer metrics.Shutdown()
	r.SetMetrics(metrics)

	require.NotPanics(t, func() {
		require.NoError(t, r.Handle("GET", "/hello", noopHandler))
		r.Prune()
	})
}

func TestRegistryWithoutMetricsIsSafe(t *testing.T) {
	t.Parallel()
	r := NewRegistry()
	require.NotPanics(t, func() {
		require.NoError(t, r.Handle("GET", "/hello", noopHandler))
		r.Prune()
	})
}
