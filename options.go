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

package httpengine

import (
	"log/slog"
	"time"
)

// Config is the server-wide configuration, covering every field spec.md §6
// enumerates. It is built with functional options (Option), the same
// pattern the teacher's router/options.go uses for *Router.
type Config struct {
	MaxRequestHeadSize           int
	MaxRequestTrailersSize       int
	TimeoutIdleConnection        time.Duration
	MaxErrorRecoveryAttempts     int
	MaxUnsuccessfulResponses     int
	RejectClientsUsingHTTP1_0    bool
	ImmediatelyContinueExpect100 bool
	DiscardRejectedInformational bool

	BloomFilterSize         uint64
	BloomFilterHashFuncs    int
	ReaderBufferSize        int
	Logger                  *slog.Logger
	Metrics                 *Metrics
	Tracer                  *Tracer
}

// Option configures a Config. Apply with NewConfig.
type Option func(*Config)

// defaultConfig mirrors spec.md §6's defaults (maxRequestHeadSize: 8000)
// plus the teacher's bloom-filter and buffer-size defaults.
func defaultConfig() Config {
	return Config{
		MaxRequestHeadSize:       8000,
		MaxRequestTrailersSize:   8000,
		TimeoutIdleConnection:    60 * time.Second,
		MaxErrorRecoveryAttempts: 3,
		MaxUnsuccessfulResponses: 25,
		BloomFilterSize:          1000,
		BloomFilterHashFuncs:     3,
		ReaderBufferSize:         512,
		Logger:                   slog.Default(),
	}
}

// NewConfig builds a Config from the given options over the package
// defaults.
func NewConfig(opts ...Option) Config {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	return cfg
}

// WithMaxRequestHeadSize caps the combined request-line + header bytes
// counted against the head-size budget (spec §4.D). Default: 8000.
func WithMaxRequestHeadSize(n int) Option {
	return func(c *Config) { c.MaxRequestHeadSize = n }
}

// WithMaxRequestTrailersSize sets the trailers size limit carried in
// Config and exchange.Config. The chunked request-body decoder does not
// consult it, so request trailers are not size-limited.
func WithMaxRequestTrailersSize(n int) Option {
	return func(c *Config) { c.MaxRequestTrailersSize = n }
}

// WithTimeoutIdleConnection sets the idle-connection timeout (spec §6). The
// server arms it as the connection's read deadline at the start of each
// exchange, so it bounds that exchange's head parsing and body reads
// together; it is not re-armed between individual reads.
func WithTimeoutIdleConnection(d time.Duration) Option {
	return func(c *Config) { c.TimeoutIdleConnection = d }
}

// WithMaxErrorRecoveryAttempts caps how many application error handlers
// the exchange orchestrator tries before falling back to the default
// handler (spec §4.G.8). 0 means unlimited.
func WithMaxErrorRecoveryAttempts(n int) Option {
	return func(c *Config) { c.MaxErrorRecoveryAttempts = n }
}

// WithMaxUnsuccessfulResponses sets the consecutive 4xx/5xx threshold that
// forces the channel closed (spec §4.E.4). 0 disables the counter.
func WithMaxUnsuccessfulResponses(n int) Option {
	return func(c *Config) { c.MaxUnsuccessfulResponses = n }
}

// WithRejectClientsUsingHTTP1_0 rejects HTTP/1.0 requests outright
// (version-too-old) instead of serving them with auto-close framing.
func WithRejectClientsUsingHTTP1_0(reject bool) Option {
	return func(c *Config) { c.RejectClientsUsingHTTP1_0 = reject }
}

// WithImmediatelyContinueExpect100 sends "100 Continue" ahead of routing
// rather than lazily on the handler's first body read (spec §4.G.6).
func WithImmediatelyContinueExpect100(immediate bool) Option {
	return func(c *Config) { c.ImmediatelyContinueExpect100 = immediate }
}

// WithDiscardRejectedInformational silently drops a 1xx response destined
// for an HTTP/1.0 client instead of surfacing protocol-not-supported
// (spec §4.F.2).
func WithDiscardRejectedInformational(discard bool) Option {
	return func(c *Config) { c.DiscardRejectedInformational = discard }
}

// WithBloomFilterSize sets the bloom filter bit-array size stored in
// Config (also loadable through package config). route.Registry does not
// read it: a registry always sizes its static-lookup filter at 4096 bits
// with 3 hash functions.
//
// Default: 1000.
func WithBloomFilterSize(size uint64) Option {
	return func(c *Config) { c.BloomFilterSize = size }
}

// WithBloomFilterHashFunctions sets the bloom filter hash-function count
// stored in Config, clamped to [1, 10]. Like WithBloomFilterSize, it is
// not read by route.Registry.
func WithBloomFilterHashFunctions(n int) Option {
	return func(c *Config) { c.BloomFilterHashFuncs = max(1, min(n, 10)) }
}

// WithReaderBufferSize overrides channel.Reader's backing buffer capacity
// (channel.DefaultBufferSize otherwise).
func WithReaderBufferSize(n int) Option {
	return func(c *Config) { c.ReaderBufferSize = n }
}

// WithLogger attaches the structured logger the exchange orchestrator and
// its collaborators use for parse errors, framing violations, and recovery
// (spec's AMBIENT STACK logging section). Defaults to slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(c *Config) { c.Logger = logger }
}

// WithMetrics attaches the OTel/Prometheus metrics recorder (DOMAIN STACK).
func WithMetrics(m *Metrics) Option {
	return func(c *Config) { c.Metrics = m }
}

// WithTracer attaches the OTel tracer used to span each exchange (DOMAIN
// STACK).
func WithTracer(t *Tracer) Option {
	return func(c *Config) { c.Tracer = t }
}
