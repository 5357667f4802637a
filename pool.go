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
	"sync"
	"sync/atomic"
	"time"
)

// RequestPool recycles *Request values across exchanges (package server
// shares one pool among all of its connections),
// avoiding one allocation per request for the common case of a handful of
// route parameters and attributes. Unlike the teacher's size-tiered
// context pool, Request's Params/RawParams/Attributes are plain maps
// rather than fixed-size arrays, so there is no small/medium/large split
// to route on — one pool, cleared between uses, is enough.
type RequestPool struct {
	pool sync.Pool

	gets uint64
	puts uint64
}

// NewRequestPool creates an empty Request pool.
func NewRequestPool() *RequestPool {
	rp := &RequestPool{}
	rp.pool.New = func() any { return &Request{} }
	return rp
}

// Get returns a zeroed Request ready for the exchange orchestrator to
// populate.
func (rp *RequestPool) Get() *Request {
	atomic.AddUint64(&rp.gets, 1)
	req, ok := rp.pool.Get().(*Request)
	if !ok {
		panic("httpengine: pool corruption - RequestPool returned non-Request type")
	}
	return req
}

// Put clears req and returns it to the pool. Callers must not retain req,
// or any slice/map obtained from it, after calling Put.
func (rp *RequestPool) Put(req *Request) {
	if req == nil {
		return
	}
	atomic.AddUint64(&rp.puts, 1)
	resetRequest(req)
	rp.pool.Put(req)
}

// resetRequest clears req's fields for reuse, dropping references so the
// body, header, and param maps it held can be garbage collected.
func resetRequest(req *Request) {
	req.Method = ""
	req.Target = ""
	req.Path = ""
	req.RawPath = ""
	req.Query = ""
	req.HTTPVersion = ProtocolVersion{}
	req.Header = nil
	req.Body = nil
	req.Params = nil
	req.RawParams = nil
	req.RouteMethod = ""
	req.Attributes = nil
	req.RemoteAddr = ""
	req.ReceivedAt = time.Time{}
}

// PoolStats reports a RequestPool's effectiveness, useful for tuning the
// pool's warmup size and diagnosing leaks (a falling HitRate under steady
// traffic means callers are not calling Put).
type PoolStats struct {
	Gets    uint64
	Puts    uint64
	HitRate float64 // Puts/Gets: fraction of checked-out Requests returned
}

// Stats returns the current pool counters.
func (rp *RequestPool) Stats() PoolStats {
	gets := atomic.LoadUint64(&rp.gets)
	puts := atomic.LoadUint64(&rp.puts)
	var hitRate float64
	if gets > 0 {
		hitRate = float64(puts) / float64(gets)
	}
	return PoolStats{Gets: gets, Puts: puts, HitRate: hitRate}
}

// ResetStats zeroes the pool's counters, for measuring a specific window.
func (rp *RequestPool) ResetStats() {
	atomic.StoreUint64(&rp.gets, 0)
	atomic.StoreUint64(&rp.puts, 0)
}

// Warmup pre-populates the pool with n Requests, so the first burst of
// connections after startup doesn't pay allocation cost inline.
func (rp *RequestPool) Warmup(n int) {
	reqs := make([]*Request, 0, n)
	for i := 0; i < n; i++ {
		reqs = append(reqs, rp.Get())
	}
	for _, req := range reqs {
		rp.Put(req)
	}
}
