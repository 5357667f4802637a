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

// Package server binds a socket and drives one goroutine per accepted
// connection, each running a sequential loop of httpengine/exchange
// Exchanges over a shared httpengine/channel Reader/Writer pair (spec
// §5's "one lightweight thread per connection, blocking on I/O").
//
// It is a separate package from the root httpengine, rather than a
// method on some httpengine type, because exchange (and therefore
// anything that drives it) imports httpengine for the Request/Response
// types; a root-package Server would close that into an import cycle.
package server

import (
	"context"
	"log/slog"
	"net"
	"sync"
	"time"

	"github.com/inboundhq/httpengine"
	"github.com/inboundhq/httpengine/channel"
	"github.com/inboundhq/httpengine/exchange"
	"github.com/inboundhq/httpengine/framer"
	"github.com/inboundhq/httpengine/route"
)

// Server binds one listening socket and serves every accepted connection
// against registry, per the engine-wide Config.
type Server struct {
	cfg      httpengine.Config
	registry *route.Registry

	mu        sync.Mutex
	listener  net.Listener
	closing   chan struct{}
	startedAt time.Time
	conns     map[net.Conn]struct{}
	wg        sync.WaitGroup

	requestPool *httpengine.RequestPool
	errorChain  []exchange.ErrorHandler
}

// New builds a Server that has not yet bound a socket. Binding happens in
// Start, so construction itself never fails or performs I/O.
func New(registry *route.Registry, opts ...httpengine.Option) *Server {
	cfg := httpengine.NewConfig(opts...)
	registry.SetMetrics(cfg.Metrics)
	return &Server{
		cfg:         cfg,
		registry:    registry,
		conns:       make(map[net.Conn]struct{}),
		requestPool: httpengine.NewRequestPool(),
	}
}

// WithErrorChain sets the application error-recovery chain the exchange
// orchestrator consults before falling back to its default error response
// (spec §4.G.8). Chained after New, since ErrorHandler is defined in
// package exchange and importing it from the root httpengine Config would
// close an import cycle (exchange already imports httpengine).
func (s *Server) WithErrorChain(handlers ...exchange.ErrorHandler) *Server {
	s.errorChain = handlers
	return s
}

// Start binds addr and accepts connections until Stop closes the
// listener, dispatching a log line for HttpServerStarted. It blocks for
// the life of the server; run it in its own goroutine to retain control
// of the calling one.
func (s *Server) Start(addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.listener = ln
	s.startedAt = time.Now()
	s.closing = make(chan struct{})
	s.mu.Unlock()

	s.logger().Info("httpengine: server started", "addr", ln.Addr().String(), "started_at", s.startedAt)

	for {
		conn, err := ln.Accept()
		if err != nil {
			select {
			case <-s.closing:
				return nil
			default:
				return err
			}
		}

		s.trackConn(conn)
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			defer s.untrackConn(conn)
			s.serveConn(conn)
		}()
	}
}

// Addr returns the address Start bound to. Valid only once Start has begun
// listening; useful for recovering the actual port after binding an
// ephemeral one ("127.0.0.1:0"), as tests do.
func (s *Server) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

func (s *Server) trackConn(c net.Conn) {
	s.mu.Lock()
	s.conns[c] = struct{}{}
	s.mu.Unlock()
}

func (s *Server) untrackConn(c net.Conn) {
	s.mu.Lock()
	delete(s.conns, c)
	s.mu.Unlock()
	_ = c.Close()
}

// StopGraceful closes the listening socket and blocks, unbounded, until
// every in-flight connection finishes its current exchange and exits
// (spec §6's "unbounded" stop variant).
func (s *Server) StopGraceful() error {
	err := s.closeListener()
	s.wg.Wait()
	s.emitStopped()
	return err
}

// Stop closes the listening socket and waits for connections to drain
// until ctx is done, then force-closes whatever remains (the "deadline"
// stop variant).
func (s *Server) Stop(ctx context.Context) error {
	err := s.closeListener()

	drained := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(drained)
	}()

	select {
	case <-drained:
	case <-ctx.Done():
		s.forceCloseConns()
		<-drained
	}
	s.emitStopped()
	return err
}

// StopAfter is Stop with a duration-bounded deadline (the "duration" stop
// variant).
func (s *Server) StopAfter(d time.Duration) error {
	ctx, cancel := context.WithTimeout(context.Background(), d)
	defer cancel()
	return s.Stop(ctx)
}

// StopNow closes the listener and force-closes every connection
// immediately, not waiting for in-flight exchanges to finish (the
// "force" stop variant).
func (s *Server) StopNow() error {
	err := s.closeListener()
	s.forceCloseConns()
	s.wg.Wait()
	s.emitStopped()
	return err
}

func (s *Server) closeListener() error {
	s.mu.Lock()
	ln := s.listener
	closing := s.closing
	s.mu.Unlock()
	if ln == nil {
		return nil
	}
	select {
	case <-closing:
	default:
		close(closing)
	}
	return ln.Close()
}

func (s *Server) forceCloseConns() {
	s.mu.Lock()
	conns := make([]net.Conn, 0, len(s.conns))
	for c := range s.conns {
		conns = append(conns, c)
	}
	s.mu.Unlock()
	for _, c := range conns {
		_ = c.Close()
	}
}

func (s *Server) emitStopped() {
	s.mu.Lock()
	startedAt := s.startedAt
	s.mu.Unlock()
	s.logger().Info("httpengine: server stopped", "started_at", startedAt, "stopped_at", time.Now(), "uptime", time.Since(startedAt))
}

func (s *Server) logger() *slog.Logger {
	if s.cfg.Logger != nil {
		return s.cfg.Logger
	}
	return slog.Default()
}

// serveConn runs exchanges sequentially on one connection until one
// reports CloseConnection, then tears the connection down. Pipelined
// requests are served off the successor reader the previous exchange
// handed back (spec §4.C, §8.1); there is never more than one exchange
// in flight per connection.
func (s *Server) serveConn(conn net.Conn) {
	writer := channel.NewWriter(channel.NewConnSink(conn), s.framerConfig(), !s.cfg.DiscardRejectedInformational)
	reader := channel.NewReaderSize(channel.NewConnSource(conn), s.readerBufferSize())

	exCfg := s.exchangeConfig()
	remoteAddr := conn.RemoteAddr().String()

	for {
		if s.cfg.TimeoutIdleConnection > 0 {
			_ = conn.SetReadDeadline(time.Now().Add(s.cfg.TimeoutIdleConnection))
		}

		ex := exchange.New(exCfg, reader, writer, s.registry, remoteAddr)
		outcome := ex.Run(context.Background())
		if outcome.CloseConnection {
			return
		}
		reader = outcome.NextReader
	}
}

func (s *Server) framerConfig() framer.Config {
	return framer.Config{
		MaxUnsuccessfulResponses: s.cfg.MaxUnsuccessfulResponses,
		Logger:                   s.cfg.Logger,
	}
}

func (s *Server) readerBufferSize() int {
	if s.cfg.ReaderBufferSize > 0 {
		return s.cfg.ReaderBufferSize
	}
	return channel.DefaultBufferSize
}

func (s *Server) exchangeConfig() exchange.Config {
	return exchange.Config{
		MaxRequestHeadSize:           s.cfg.MaxRequestHeadSize,
		MaxRequestTrailersSize:       s.cfg.MaxRequestTrailersSize,
		IdleTimeout:                  s.cfg.TimeoutIdleConnection,
		MaxErrorRecoveryAttempts:     s.cfg.MaxErrorRecoveryAttempts,
		RejectClientsUsingHTTP10:     s.cfg.RejectClientsUsingHTTP1_0,
		ImmediatelyContinueExpect100: s.cfg.ImmediatelyContinueExpect100,
		FramerConfig:                 s.framerConfig(),
		ErrorChain:                   s.errorChain,
		Logger:                       s.cfg.Logger,
		Metrics:                      s.cfg.Metrics,
		Tracer:                       s.cfg.Tracer,
		RequestPool:                  s.requestPool,
	}
}
