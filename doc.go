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

// Package httpengine implements the per-connection exchange machinery of an
// HTTP/1.1 server engine: parsing a request off a byte stream, running it
// through a matched route's before/handler/after chain, and framing a
// response back onto the stream.
//
// # Subsystems
//
// The hard engineering lives in these collaborating packages:
//
//   - httpengine/channel: a bounded, re-usable byte source (Reader) that
//     hands out read-only buffer windows, and a sequential byte sink
//     (Writer) that applies the response framer before writing.
//   - httpengine/headparse: request-line and header parsers that consume
//     the channel reader one byte at a time under a head-size budget.
//   - httpengine/framer: decides message delimiting (Content-Length vs.
//     chunked vs. connection-close) and rejects illegal combinations.
//   - httpengine/trie and httpengine/route: a concurrent segment trie and
//     the route/before-action/after-action registry built on top of it.
//   - httpengine/exchange: the orchestrator that drives one exchange
//     through parse, before-actions, handler, after-actions, and write.
//   - httpengine/server: binds a socket and runs one exchange loop per
//     accepted connection.
//
// # Quick start
//
//	reg := route.NewRegistry()
//	reg.Handle("GET", "/hello", func(ctx context.Context, req *httpengine.Request) (*httpengine.Response, error) {
//	    return httpengine.NewResponse(200, []byte("world")), nil
//	})
//	srv := server.New(reg)
//	log.Fatal(srv.Start(":8080"))
//
// # Constructor pattern
//
// server.New and route.NewRegistry never fail: they allocate memory and
// apply functional options, with no I/O performed during construction.
// Start does not validate the configuration values either. All options use the "With" prefix, following the
// go.opentelemetry.io/otel and rivaas.dev/router conventions this module
// is built from.
//
// # Observability
//
// Every exchange is wrapped in an OpenTelemetry span and feeds an
// OpenTelemetry meter (exported via Prometheus or stdout), configured with
// WithTracer and WithMetrics.
//
// # Non-goals
//
// HTTP/2, HTTP/0.9, TLS termination, pipelining concurrency (one exchange
// in flight per connection at a time), buffering HEAD response bodies, and
// WebSocket upgrade are explicitly out of scope.
package httpengine
