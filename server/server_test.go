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

package server

import (
	"bufio"
	"context"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/inboundhq/httpengine"
	"github.com/inboundhq/httpengine/route"
)

func newTestRegistry(t *testing.T) *route.Registry {
	t.Helper()
	reg := route.NewRegistry()
	require.NoError(t, reg.Handle("GET", "/hello", func(_ context.Context, _ *httpengine.Request) (*httpengine.Response, error) {
		return httpengine.NewResponse(200, []byte("world")), nil
	}))
	return reg
}

func startTestServer(t *testing.T, opts ...httpengine.Option) *Server {
	t.Helper()
	srv := New(newTestRegistry(t), opts...)

	started := make(chan struct{})
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start("127.0.0.1:0")
	}()

	require.Eventually(t, func() bool {
		return srv.Addr() != nil
	}, time.Second, time.Millisecond)
	close(started)

	t.Cleanup(func() {
		_ = srv.StopNow()
		select {
		case <-errCh:
		case <-time.After(time.Second):
			t.Fatal("server did not exit after StopNow")
		}
	})

	return srv
}

func TestServerServesHTTP11Request(t *testing.T) {
	srv := startTestServer(t)

	conn, err := net.Dial("tcp", srv.Addr().String())
	require.NoError(t, err)
	defer conn.Close()

	_, err = conn.Write([]byte("GET /hello HTTP/1.1\r\nHost: example.com\r\n\r\n"))
	require.NoError(t, err)

	reader := bufio.NewReader(conn)
	status, err := reader.ReadString('\n')
	require.NoError(t, err)
	require.Contains(t, status, "200")
}

func TestServerServesPipelinedRequestsOnOneConnection(t *testing.T) {
	srv := startTestServer(t)

	conn, err := net.Dial("tcp", srv.Addr().String())
	require.NoError(t, err)
	defer conn.Close()

	req := "GET /hello HTTP/1.1\r\nHost: example.com\r\n\r\n"
	_, err = conn.Write([]byte(req + req))
	require.NoError(t, err)

	reader := bufio.NewReader(conn)
	for i := 0; i < 2; i++ {
		status, err := reader.ReadString('\n')
		require.NoError(t, err)
		require.Contains(t, status, "200")
		for {
			line, err := reader.ReadString('\n')
			require.NoError(t, err)
			if line == "\r\n" {
				break
			}
		}
	}
}

func TestServerStopGracefulClosesListener(t *testing.T) {
	reg := newTestRegistry(t)
	srv := New(reg)

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Start("127.0.0.1:0") }()

	require.Eventually(t, func() bool { return srv.Addr() != nil }, time.Second, time.Millisecond)

	require.NoError(t, srv.StopGraceful())
	select {
	case err := <-errCh:
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("Start did not return after StopGraceful")
	}

	_, err := net.Dial("tcp", srv.Addr().String())
	require.Error(t, err)
}

func TestServerStopAfterForceClosesSlowConnections(t *testing.T) {
	srv := startTestServer(t)

	conn, err := net.Dial("tcp", srv.Addr().String())
	require.NoError(t, err)
	defer conn.Close()

	// Never sends a request, so the connection's exchange is blocked
	// reading the request line when Stop's deadline fires.
	require.NoError(t, srv.StopAfter(50*time.Millisecond))
}

func TestServerStopWithCanceledContextForceCloses(t *testing.T) {
	reg := newTestRegistry(t)
	srv := New(reg)

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Start("127.0.0.1:0") }()
	require.Eventually(t, func() bool { return srv.Addr() != nil }, time.Second, time.Millisecond)

	conn, err := net.Dial("tcp", srv.Addr().String())
	require.NoError(t, err)
	defer conn.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.NoError(t, srv.Stop(ctx))

	select {
	case err := <-errCh:
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("Start did not return after Stop")
	}
}
