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
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func newTestTracer(t *testing.T) (*Tracer, *tracetest.InMemoryExporter) {
	t.Helper()
	exporter := tracetest.NewInMemoryExporter()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exporter))
	prevTP := otel.GetTracerProvider()
	otel.SetTracerProvider(tp)
	t.Cleanup(func() { otel.SetTracerProvider(prevTP) })

	return NewTracer("test-service", "v1.0.0"), exporter
}

func TestTracerStartExchangeRecordsAttributes(t *testing.T) {
	tracer, exporter := newTestTracer(t)

	header := make(http.Header)
	header.Set("X-Request-Id", "req-1")
	tracer.WithRecordedHeaders("X-Request-Id")

	span := tracer.StartExchange(context.Background(), "GET", "/hello", header)
	require.NotNil(t, span)
	span.Finish(200, nil)

	spans := exporter.GetSpans()
	require.Len(t, spans, 1)
	require.Equal(t, "GET /hello", spans[0].Name)

	attrs := map[string]string{}
	for _, kv := range spans[0].Attributes {
		attrs[string(kv.Key)] = kv.Value.Emit()
	}
	require.Equal(t, "GET", attrs["http.method"])
	require.Equal(t, "req-1", attrs["http.request.header.X-Request-Id"])
}

func TestTracerDisabledStartExchangeReturnsNil(t *testing.T) {
	tracer, _ := newTestTracer(t)
	tracer.enabled = false

	span := tracer.StartExchange(context.Background(), "GET", "/x", make(http.Header))
	require.Nil(t, span)
}

func TestExchangeSpanAnnotateRouteRecordsParams(t *testing.T) {
	tracer, exporter := newTestTracer(t)

	span := tracer.StartExchange(context.Background(), "GET", "/hello/alice", make(http.Header))
	span.AnnotateRoute("/hello/{name}", map[string]string{"name": "alice"}, true)
	span.Finish(200, nil)

	spans := exporter.GetSpans()
	require.Len(t, spans, 1)

	attrs := map[string]string{}
	for _, kv := range spans[0].Attributes {
		attrs[string(kv.Key)] = kv.Value.Emit()
	}
	require.Equal(t, "/hello/{name}", attrs["http.route"])
	require.Equal(t, "alice", attrs["http.route.param.name"])
}

func TestExchangeSpanFinishRecordsError(t *testing.T) {
	tracer, exporter := newTestTracer(t)

	span := tracer.StartExchange(context.Background(), "GET", "/boom", make(http.Header))
	span.Finish(500, errors.New("boom"))

	spans := exporter.GetSpans()
	require.Len(t, spans, 1)
	require.NotEmpty(t, spans[0].Events)
}

func TestExchangeSpanStartChildEndsChild(t *testing.T) {
	tracer, exporter := newTestTracer(t)

	span := tracer.StartExchange(context.Background(), "GET", "/hello", make(http.Header))
	end := span.StartChild("handler")
	end()
	span.Finish(200, nil)

	spans := exporter.GetSpans()
	require.Len(t, spans, 2)
}

// A nil *ExchangeSpan is what the exchange orchestrator holds when no
// Tracer is configured; every method must no-op rather than panic.
func TestNilExchangeSpanIsSafe(t *testing.T) {
	var span *ExchangeSpan
	require.Equal(t, context.Background(), span.Context())
	require.NotPanics(t, func() {
		span.AnnotateRoute("/x", nil, true)
		span.StartChild("stage")()
		span.Finish(200, nil)
	})
}

func TestNilTracerStartExchangeIsSafe(t *testing.T) {
	var tracer *Tracer
	require.Nil(t, tracer.StartExchange(context.Background(), "GET", "/x", make(http.Header)))
}

func TestTracerWithStdoutExporterRegistersProvider(t *testing.T) {
	prevTP := otel.GetTracerProvider()
	t.Cleanup(func() { otel.SetTracerProvider(prevTP) })

	tracer := NewTracer("test-service", "v1.0.0")
	updated, err := tracer.WithStdoutExporter()
	require.NoError(t, err)
	require.Same(t, tracer, updated)

	span := tracer.StartExchange(context.Background(), "GET", "/hello", make(http.Header))
	require.NotNil(t, span)
	require.NotPanics(t, func() { span.Finish(200, nil) })
}
