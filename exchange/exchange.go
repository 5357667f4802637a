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

package exchange

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/inboundhq/httpengine"
	"github.com/inboundhq/httpengine/channel"
	"github.com/inboundhq/httpengine/framer"
	"github.com/inboundhq/httpengine/headparse"
	"github.com/inboundhq/httpengine/route"
)

// ErrorHandler is one link of the application-supplied recovery chain
// (spec §4.G.8). It may answer the error with a response, or delegate to
// the next handler by returning a nil response — optionally replacing err
// with a more specific one for the handlers still to come. Returning a
// nil response and a nil error is equivalent to delegating with the
// original err unchanged.
type ErrorHandler func(ctx context.Context, req *httpengine.Request, err error) (*httpengine.Response, error)

// Config carries the per-exchange knobs the orchestrator needs. The
// server (package server) builds one from its functional-options
// Config and shares it across every connection.
type Config struct {
	MaxRequestHeadSize           int
	MaxRequestTrailersSize       int
	IdleTimeout                  time.Duration
	MaxErrorRecoveryAttempts     int
	RejectClientsUsingHTTP10     bool
	ImmediatelyContinueExpect100 bool

	FramerConfig framer.Config
	ErrorChain   []ErrorHandler
	Logger       *slog.Logger
	Metrics      *httpengine.Metrics
	Tracer       *httpengine.Tracer
	RequestPool  *httpengine.RequestPool
}

func (c Config) logger() *slog.Logger {
	if c.Logger != nil {
		return c.Logger
	}
	return slog.Default()
}

// Exchange drives exactly one request/response cycle over a connection's
// reader and writer (spec §3's Exchange state machine, §4.G's 9 steps).
type Exchange struct {
	cfg      Config
	reader   *channel.Reader
	writer   *channel.Writer
	registry *route.Registry

	remoteAddr string

	request      *httpengine.Request
	version      httpengine.ProtocolVersion
	pendingAfter []channel.AfterAction
	span         *httpengine.ExchangeSpan
	startedAt    time.Time
	bytesBefore  int64 // writer.BytesWritten() when Run started
	routePattern string
}

// New constructs an Exchange over reader/writer for one request/response
// cycle against registry.
func New(cfg Config, reader *channel.Reader, writer *channel.Writer, registry *route.Registry, remoteAddr string) *Exchange {
	return &Exchange{cfg: cfg, reader: reader, writer: writer, registry: registry, remoteAddr: remoteAddr}
}

// Outcome reports what the connection loop should do once Run returns.
type Outcome struct {
	// CloseConnection signals the connection must now be torn down.
	CloseConnection bool
	// NextReader is the successor reader to hand to the next pipelined
	// exchange (spec §4.C, §8.1), valid only when !CloseConnection.
	NextReader *channel.Reader
}

// Run executes the full exchange: parse, validate, route, invoke, write,
// and recover from any failure along the way, per spec §4.G.
func (e *Exchange) Run(ctx context.Context) Outcome {
	e.startedAt = time.Now()
	e.bytesBefore = e.writer.BytesWritten()
	e.cfg.Metrics.IncInFlight(ctx)
	defer e.cfg.Metrics.DecInFlight(ctx)

	resp, err := e.process(ctx)
	if err != nil {
		resp = e.recover(ctx, err)
	}
	return e.finish(resp)
}

// process runs steps 1 through 7 of spec §4.G and returns either a
// response ready for the writer, or the first classified error
// encountered.
func (e *Exchange) process(ctx context.Context) (*httpengine.Response, error) {
	headBudget := headparse.NewBudget(e.cfg.MaxRequestHeadSize)

	line, err := headparse.ParseRequestLine(e.reader, headBudget)
	if err != nil {
		return nil, err
	}
	e.version = line.HTTPVersion

	header, err := headparse.ParseHeaders(e.reader, headBudget)
	if err != nil {
		return nil, err
	}

	if err := e.validateVersion(line.HTTPVersion); err != nil {
		return nil, err
	}

	req, err := e.buildRequest(line, header)
	if err != nil {
		return nil, err
	}
	e.request = req
	e.span = e.cfg.Tracer.StartExchange(ctx, req.Method, req.Target, req.Header)
	ctx = e.span.Context()

	if req.Method == http.MethodTrace {
		if n, known := req.Body.Len(); !known || n != 0 {
			return nil, httpengine.NewError(httpengine.KindIllegalRequestBody, nil)
		}
	}

	if req.ExpectsContinue() {
		if e.cfg.ImmediatelyContinueExpect100 {
			if _, err := e.writer.Write(httpengine.Continue100(), req.Method, false, e.version, nil); err != nil {
				return nil, err
			}
		} else {
			req.Body = withLazyContinue(req.Body, func() error {
				_, err := e.writer.Write(httpengine.Continue100(), req.Method, false, e.version, nil)
				return err
			})
		}
	}

	match, ok := e.registry.Match(req.Method, req.Path)
	if !ok {
		return httpengine.NewResponse(http.StatusNotFound, nil), nil
	}
	req.Params = match.Params
	req.RawParams = match.RawParams
	req.RouteMethod = req.Method
	e.routePattern = match.Pattern
	e.span.AnnotateRoute(match.Pattern, match.Params, true)

	endHandlerSpan := e.span.StartChild("handler")
	defer endHandlerSpan()
	return e.invoke(ctx, req, match)
}

// invoke runs the matched before-actions, the handler, and the
// after-actions, stopping at the first before-action that produces a
// response (spec §4.G.7). After-actions are applied by channel.Writer at
// write time, not here, since they may rewrite headers the framer still
// needs to see raw.
func (e *Exchange) invoke(ctx context.Context, req *httpengine.Request, match *route.Match) (*httpengine.Response, error) {
	for _, before := range match.Before {
		resp, err := before(ctx, req)
		if err != nil {
			return nil, err
		}
		if resp != nil {
			return resp, nil
		}
	}

	resp, err := match.Handler(ctx, req)
	if err != nil {
		return nil, err
	}
	if resp == nil {
		return nil, httpengine.NewError(httpengine.KindResponseRejected, errors.New("handler returned a nil response"))
	}
	resp.Final = true
	e.pendingAfter = convertAfterActions(match.After)
	return resp, nil
}

func convertAfterActions(in []route.AfterAction) []channel.AfterAction {
	if len(in) == 0 {
		return nil
	}
	out := make([]channel.AfterAction, len(in))
	for i, a := range in {
		a := a
		out[i] = func(resp *httpengine.Response) (*httpengine.Response, error) { return a(resp) }
	}
	return out
}

func (e *Exchange) validateVersion(v httpengine.ProtocolVersion) error {
	if v.Major < 1 {
		return httpengine.NewError(httpengine.KindVersionTooOld, nil)
	}
	if v.Major == 1 && v.Minor == 0 {
		if e.cfg.RejectClientsUsingHTTP10 {
			return httpengine.NewError(httpengine.KindVersionTooOld, nil)
		}
		return nil
	}
	if v.Major == 1 && v.Minor == 1 {
		return nil
	}
	return httpengine.NewError(httpengine.KindVersionTooNew, nil)
}

func (e *Exchange) buildRequest(line headparse.RequestLine, header http.Header) (*httpengine.Request, error) {
	rawPath, query := splitTarget(line.Target)
	path, err := url.PathUnescape(rawPath)
	if err != nil {
		path = rawPath
	}

	body, err := requestBody(e.reader, header)
	if err != nil {
		return nil, err
	}

	var req *httpengine.Request
	if e.cfg.RequestPool != nil {
		req = e.cfg.RequestPool.Get()
	} else {
		req = &httpengine.Request{}
	}
	req.Method = line.Method
	req.Target = line.Target
	req.Path = path
	req.RawPath = rawPath
	req.Query = query
	req.HTTPVersion = line.HTTPVersion
	req.Header = header
	req.Body = body
	req.RemoteAddr = e.remoteAddr
	req.ReceivedAt = line.StartedAt
	return req, nil
}

func splitTarget(target string) (path, query string) {
	if i := strings.IndexByte(target, '?'); i >= 0 {
		return target[:i], target[i+1:]
	}
	return target, ""
}

// recover runs the application error-recovery chain (spec §4.G.8), up to
// MaxErrorRecoveryAttempts handlers, falling back to defaultErrorResponse.
func (e *Exchange) recover(ctx context.Context, err error) *httpengine.Response {
	attempts := 0
	for _, h := range e.cfg.ErrorChain {
		if e.cfg.MaxErrorRecoveryAttempts > 0 && attempts >= e.cfg.MaxErrorRecoveryAttempts {
			break
		}
		attempts++
		resp, herr := h(ctx, e.request, err)
		if resp != nil {
			resp.Final = true
			return resp
		}
		if herr != nil {
			err = herr
		}
	}
	return defaultErrorResponse(err, e.cfg.logger())
}

func defaultErrorResponse(err error, logger *slog.Logger) *httpengine.Response {
	var herr *httpengine.Error
	kind := httpengine.KindParseError
	if errors.As(err, &herr) {
		kind = herr.Kind
	}
	logger.Warn("exchange failed", "kind", kind, "error", err)
	resp := httpengine.NewResponse(kind.StatusCode(), nil)
	resp.Final = true
	return resp
}

// finish writes resp (unless the connection has already been torn down by
// an earlier write, e.g. a rejected 100-continue), and decides whether the
// connection stays open for the next pipelined exchange (spec §4.G.9).
func (e *Exchange) finish(resp *httpengine.Response) Outcome {
	reqMethod := ""
	carriesClose := false
	if e.request != nil {
		reqMethod = e.request.Method
		carriesClose = requestCarriesClose(e.request)
	}
	defer e.releaseRequest()

	result, err := e.writer.Write(resp, reqMethod, carriesClose, e.version, e.pendingAfter)
	if err != nil {
		e.cfg.logger().Warn("failed to write response", "error", err)
		e.span.Finish(0, err)
		return Outcome{CloseConnection: true}
	}

	e.recordCompletion(resp)

	if result.CloseConnection || result.CloseChannel {
		return Outcome{CloseConnection: true}
	}

	if err := e.reader.Dismiss(); err != nil {
		e.cfg.logger().Warn("reader not empty at exchange end", "error", err)
		return Outcome{CloseConnection: true}
	}
	next, err := e.reader.NewReader()
	if err != nil {
		return Outcome{CloseConnection: true}
	}
	return Outcome{NextReader: next}
}

// recordCompletion feeds the metrics recorder and closes the trace span
// once resp has actually been written (spec §4.G.9).
func (e *Exchange) recordCompletion(resp *httpengine.Response) {
	method := ""
	path := e.routePattern
	if e.request != nil {
		method = e.request.Method
		if path == "" {
			path = e.request.Path
		}
	}

	var reqBytes int64
	if e.request != nil {
		if n, known := e.request.Body.Len(); known {
			reqBytes = n
		}
	}

	e.cfg.Metrics.RecordExchange(context.Background(), method, path, resp.StatusCode, time.Since(e.startedAt), reqBytes, e.writer.BytesWritten()-e.bytesBefore)
	e.span.Finish(resp.StatusCode, nil)
}

// releaseRequest returns e.request to the configured RequestPool, if any.
// Safe to call once finish's write has completed: nothing downstream still
// needs the request (after-actions close over the response, not it).
func (e *Exchange) releaseRequest() {
	if e.cfg.RequestPool == nil || e.request == nil {
		return
	}
	e.cfg.RequestPool.Put(e.request)
	e.request = nil
}

// requestCarriesClose reports whether the request itself demands the
// connection close after the response: an explicit Connection: close
// token, or an HTTP/1.0 request that did not ask for keep-alive.
func requestCarriesClose(req *httpengine.Request) bool {
	conn := req.Header.Get("Connection")
	tokens := strings.Split(conn, ",")
	hasToken := func(name string) bool {
		for _, t := range tokens {
			if strings.EqualFold(strings.TrimSpace(t), name) {
				return true
			}
		}
		return false
	}
	if hasToken("close") {
		return true
	}
	if !req.HTTPVersion.AtLeast(1, 1) {
		return !hasToken("keep-alive")
	}
	return false
}
