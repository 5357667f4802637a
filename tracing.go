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
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/propagation"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
)

// Tracer spans one exchange, from the parsed request head to the final
// write, with one child span around handler dispatch; head parsing and
// the write get no child spans of their own. Exchanges on the same
// connection each get their own root span; there is no connection-level
// span, since HTTP/1.1 pipelining makes "connection" a poor unit of
// observability once multiple exchanges interleave on one channel.
type Tracer struct {
	enabled        bool
	serviceName    string
	serviceVersion string
	tracer         trace.Tracer
	propagator     propagation.TextMapPropagator
	sampleRate     float64
	recordParams   bool
	recordHeaders  []string
}

// NewTracer builds a Tracer using the globally registered OTel tracer
// provider (otel.SetTracerProvider), mirroring the teacher's WithTracing
// default of deferring provider setup to the application.
func NewTracer(serviceName, serviceVersion string) *Tracer {
	return &Tracer{
		enabled:        true,
		serviceName:    serviceName,
		serviceVersion: serviceVersion,
		tracer:         otel.Tracer("github.com/inboundhq/httpengine"),
		propagator:     otel.GetTextMapPropagator(),
		sampleRate:     1.0,
		recordParams:   true,
	}
}

// WithRecordedHeaders records the named request headers as span attributes.
func (t *Tracer) WithRecordedHeaders(headers ...string) *Tracer {
	t.recordHeaders = headers
	return t
}

// WithRecordParams toggles recording matched route parameters as span
// attributes. Enabled by default.
func (t *Tracer) WithRecordParams(record bool) *Tracer {
	t.recordParams = record
	return t
}

// WithStdoutExporter builds and globally registers a stdout-backed
// TracerProvider, for local development without a collector, instead of
// leaving provider setup to the application (the teacher's sibling
// tracing module's initStdoutProvider, generalized from gRPC/HTTP OTLP
// provider selection down to the one exporter this engine wires).
func (t *Tracer) WithStdoutExporter() (*Tracer, error) {
	exporter, err := stdouttrace.New(stdouttrace.WithPrettyPrint())
	if err != nil {
		return nil, fmt.Errorf("httpengine: failed to create stdout trace exporter: %w", err)
	}
	tp := sdktrace.NewTracerProvider(sdktrace.WithBatcher(exporter))
	otel.SetTracerProvider(tp)
	t.tracer = tp.Tracer("github.com/inboundhq/httpengine")
	return t, nil
}

// ExchangeSpan is the handle an Exchange holds open across process/invoke.
type ExchangeSpan struct {
	ctx          context.Context
	span         trace.Span
	recordParams bool // the owning Tracer's WithRecordParams setting
}

// Context returns the span-carrying context, for propagation into handler
// invocation.
func (s *ExchangeSpan) Context() context.Context {
	if s == nil {
		return context.Background()
	}
	return s.ctx
}

// StartExchange opens the root span for one exchange. method/target come
// from the parsed request line; header is the inbound request header, used
// both to extract an upstream trace context and to pull recordHeaders
// values. Nothing is injected into the response headers.
func (t *Tracer) StartExchange(ctx context.Context, method, target string, header fetchHeader) *ExchangeSpan {
	if t == nil || !t.enabled {
		return nil
	}

	ctx = t.propagator.Extract(ctx, propagation.HeaderCarrier(header))
	spanName := fmt.Sprintf("%s %s", method, target)
	ctx, span := t.tracer.Start(ctx, spanName, trace.WithSpanKind(trace.SpanKindServer))

	span.SetAttributes(
		attribute.String("http.method", method),
		attribute.String("http.target", target),
		attribute.String("service.name", t.serviceName),
		attribute.String("service.version", t.serviceVersion),
	)
	for _, name := range t.recordHeaders {
		if v := header.Get(name); v != "" {
			span.SetAttributes(attribute.String("http.request.header."+name, v))
		}
	}

	return &ExchangeSpan{ctx: ctx, span: span, recordParams: t.recordParams}
}

// fetchHeader is the minimal header-reading surface StartExchange needs;
// http.Header satisfies it without this package importing net/http here.
type fetchHeader interface {
	Get(string) string
}

// AnnotateRoute records the matched route pattern and path parameters once
// routing completes (spec §4.G.7's before the handler runs).
func (s *ExchangeSpan) AnnotateRoute(pattern string, params map[string]string, recordParams bool) {
	if s == nil {
		return
	}
	s.span.SetAttributes(attribute.String("http.route", pattern))
	if !recordParams || !s.recordParams {
		return
	}
	for k, v := range params {
		s.span.SetAttributes(attribute.String("http.route.param."+k, v))
	}
}

// StartChild opens a child span for one orchestrator stage (e.g.
// "parse_head", "handler", "write") and returns the function to end it.
func (s *ExchangeSpan) StartChild(name string) func() {
	if s == nil {
		return func() {}
	}
	_, child := trace.SpanFromContext(s.ctx).TracerProvider().Tracer("github.com/inboundhq/httpengine").Start(s.ctx, name)
	return func() { child.End() }
}

// Finish records the final response status and closes the root span
// (spec §4.G.9, once the write completes).
func (s *ExchangeSpan) Finish(statusCode int, err error) {
	if s == nil {
		return
	}
	defer s.span.End()

	s.span.SetAttributes(attribute.Int("http.status_code", statusCode))
	switch {
	case err != nil:
		s.span.RecordError(err)
		s.span.SetStatus(codes.Error, err.Error())
	case statusCode >= 400:
		s.span.SetStatus(codes.Error, fmt.Sprintf("HTTP %d", statusCode))
	default:
		s.span.SetStatus(codes.Ok, "")
	}
}
