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
	"log"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	promclient "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/exporters/stdout/stdoutmetric"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
)

// MetricsProvider selects which OTel metric exporter backs a Metrics
// instance, mirroring the teacher's router/metrics.go three-way choice.
type MetricsProvider string

const (
	PrometheusProvider MetricsProvider = "prometheus"
	OTLPProvider       MetricsProvider = "otlp"
	StdoutProvider     MetricsProvider = "stdout"
)

// Metrics records the instruments the exchange orchestrator and its
// collaborators (channel.Reader/Writer byte counters, trie mutation
// counters) feed, per spec's DOMAIN STACK. One Metrics is shared across
// every connection on a server.
type Metrics struct {
	provider       MetricsProvider
	endpoint       string
	exportInterval time.Duration
	serviceName    string
	serviceVersion string

	meter         metric.Meter
	meterProvider metric.MeterProvider

	prometheusRegistry *promclient.Registry
	prometheusHandler  http.Handler
	metricsPort        string
	metricsPath        string
	autoStartServer    bool
	metricsServer      *http.Server
	serverMutex        sync.Mutex

	requestDuration     metric.Float64Histogram
	requestSize         metric.Int64Histogram
	responseSize        metric.Int64Histogram
	inFlight            metric.Int64UpDownCounter
	unsuccessfulCount   metric.Int64Counter
	trieMutationCount   metric.Int64Counter
}

// MetricsOption configures a Metrics instance before its provider
// initializes, mirroring the teacher's router/metrics.go RouterOption
// variants for provider selection.
type MetricsOption func(*Metrics)

// WithMetricsProviderOTLP switches to OTLP export against endpoint
// (host:port, or http://.../https://... to select transport security).
func WithMetricsProviderOTLP(endpoint string) MetricsOption {
	return func(m *Metrics) { m.provider = OTLPProvider; m.endpoint = endpoint }
}

// WithMetricsProviderStdout switches to logging metrics to stdout, useful
// for local development without a collector.
func WithMetricsProviderStdout() MetricsOption {
	return func(m *Metrics) { m.provider = StdoutProvider }
}

// WithMetricsExportInterval sets the periodic-reader export interval used
// by the OTLP and stdout providers (ignored by Prometheus, which is
// pull-based). Default: 15s.
func WithMetricsExportInterval(d time.Duration) MetricsOption {
	return func(m *Metrics) { m.exportInterval = d }
}

// WithMetricsPort sets the Prometheus scrape server's listen port.
// Default: ":9090".
func WithMetricsPort(port string) MetricsOption {
	return func(m *Metrics) { m.metricsPort = port }
}

// WithMetricsPath sets the Prometheus scrape server's path. Default:
// "/metrics".
func WithMetricsPath(path string) MetricsOption {
	return func(m *Metrics) { m.metricsPath = path }
}

// WithMetricsServerDisabled skips starting the dedicated Prometheus HTTP
// server; use Metrics.Handler to mount the scrape handler on an
// application-owned mux instead.
func WithMetricsServerDisabled() MetricsOption {
	return func(m *Metrics) { m.autoStartServer = false }
}

// NewMetrics builds and initializes a Metrics instance. By default it is
// Prometheus-backed, serving on ":9090/metrics" with the server
// auto-started; apply the With* options to select OTLP or stdout export
// instead, or to disable the auto-started server.
func NewMetrics(serviceName, serviceVersion string, opts ...MetricsOption) (*Metrics, error) {
	m := &Metrics{
		provider:        PrometheusProvider,
		serviceName:     serviceName,
		serviceVersion:  serviceVersion,
		metricsPort:     ":9090",
		metricsPath:     "/metrics",
		autoStartServer: true,
		exportInterval:  15 * time.Second,
	}
	for _, opt := range opts {
		opt(m)
	}
	if err := m.initializeProvider(); err != nil {
		return nil, err
	}
	return m, nil
}

// Shutdown stops the metrics HTTP server, if one was started. A nil
// Metrics (the zero value of an unset Config.Metrics) is a safe no-op.
func (m *Metrics) Shutdown() {
	if m == nil {
		return
	}
	m.stopMetricsServer()
}

// Handler returns the Prometheus scrape handler, for embedding in an
// application's own mux instead of the auto-started server
// (WithMetricsServerDisabled). Returns nil for a nil Metrics, or one using a
// non-Prometheus provider.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return nil
	}
	return m.prometheusHandler
}

func (m *Metrics) initializeProvider() error {
	switch m.provider {
	case OTLPProvider:
		return m.initOTLPProvider()
	case StdoutProvider:
		return m.initStdoutProvider()
	default:
		return m.initPrometheusProvider()
	}
}

func (m *Metrics) initPrometheusProvider() error {
	m.prometheusRegistry = promclient.NewRegistry()

	exporter, err := prometheus.New(prometheus.WithRegisterer(m.prometheusRegistry))
	if err != nil {
		return fmt.Errorf("httpengine: failed to create Prometheus exporter: %w", err)
	}

	m.meterProvider = sdkmetric.NewMeterProvider(sdkmetric.WithReader(exporter))
	m.prometheusHandler = promhttp.HandlerFor(m.prometheusRegistry, promhttp.HandlerOpts{})
	otel.SetMeterProvider(m.meterProvider)
	m.meter = m.meterProvider.Meter("github.com/inboundhq/httpengine")

	if err := m.initializeInstruments(); err != nil {
		return err
	}
	if m.autoStartServer {
		m.startMetricsServer()
	}
	return nil
}

func (m *Metrics) initOTLPProvider() error {
	var opts []otlpmetrichttp.Option
	if m.endpoint != "" {
		endpoint := m.endpoint
		insecure := false
		switch {
		case strings.HasPrefix(endpoint, "http://"):
			endpoint = strings.TrimPrefix(endpoint, "http://")
			insecure = true
		case strings.HasPrefix(endpoint, "https://"):
			endpoint = strings.TrimPrefix(endpoint, "https://")
		}
		if idx := strings.Index(endpoint, "/"); idx != -1 {
			endpoint = endpoint[:idx]
		}
		opts = append(opts, otlpmetrichttp.WithEndpoint(endpoint))
		if insecure {
			opts = append(opts, otlpmetrichttp.WithInsecure())
		}
	}

	exporter, err := otlpmetrichttp.New(context.Background(), opts...)
	if err != nil {
		return fmt.Errorf("httpengine: failed to create OTLP exporter: %w", err)
	}
	reader := sdkmetric.NewPeriodicReader(exporter, sdkmetric.WithInterval(m.exportInterval))
	m.meterProvider = sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	otel.SetMeterProvider(m.meterProvider)
	m.meter = m.meterProvider.Meter("github.com/inboundhq/httpengine")
	return m.initializeInstruments()
}

func (m *Metrics) initStdoutProvider() error {
	exporter, err := stdoutmetric.New()
	if err != nil {
		return fmt.Errorf("httpengine: failed to create stdout exporter: %w", err)
	}
	reader := sdkmetric.NewPeriodicReader(exporter, sdkmetric.WithInterval(m.exportInterval))
	m.meterProvider = sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	otel.SetMeterProvider(m.meterProvider)
	m.meter = m.meterProvider.Meter("github.com/inboundhq/httpengine")
	return m.initializeInstruments()
}

func (m *Metrics) initializeInstruments() error {
	var err error

	m.requestDuration, err = m.meter.Float64Histogram(
		"httpengine.exchange.duration",
		metric.WithDescription("Duration of one exchange, request-line to final write"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return fmt.Errorf("httpengine: failed to create exchange duration histogram: %w", err)
	}

	m.requestSize, err = m.meter.Int64Histogram(
		"httpengine.request.size",
		metric.WithDescription("Request body size in bytes"),
		metric.WithUnit("By"),
	)
	if err != nil {
		return fmt.Errorf("httpengine: failed to create request size histogram: %w", err)
	}

	m.responseSize, err = m.meter.Int64Histogram(
		"httpengine.response.size",
		metric.WithDescription("Response size in bytes, status line and headers included"),
		metric.WithUnit("By"),
	)
	if err != nil {
		return fmt.Errorf("httpengine: failed to create response size histogram: %w", err)
	}

	m.inFlight, err = m.meter.Int64UpDownCounter(
		"httpengine.exchange.in_flight",
		metric.WithDescription("Exchanges currently being processed"),
	)
	if err != nil {
		return fmt.Errorf("httpengine: failed to create in-flight gauge: %w", err)
	}

	m.unsuccessfulCount, err = m.meter.Int64Counter(
		"httpengine.response.unsuccessful_total",
		metric.WithDescription("Final responses with a 4xx or 5xx status"),
	)
	if err != nil {
		return fmt.Errorf("httpengine: failed to create unsuccessful-response counter: %w", err)
	}

	m.trieMutationCount, err = m.meter.Int64Counter(
		"httpengine.route.trie_mutations_total",
		metric.WithDescription("Trie inserts and prunes performed by the route registry"),
	)
	if err != nil {
		return fmt.Errorf("httpengine: failed to create trie mutation counter: %w", err)
	}

	return nil
}

// RecordExchange records one completed exchange's duration, sizes, and
// status outcome. method/path/status provide low-cardinality attributes;
// callers should pass the matched route pattern as path, not the raw
// request target, to avoid attribute explosion from path parameters.
func (m *Metrics) RecordExchange(ctx context.Context, method, path string, status int, duration time.Duration, reqBytes, respBytes int64) {
	if m == nil {
		return
	}
	attrs := metric.WithAttributes(
		attribute.String("http.method", method),
		attribute.String("http.route", path),
		attribute.Int("http.status_code", status),
	)
	m.requestDuration.Record(ctx, duration.Seconds(), attrs)
	if reqBytes > 0 {
		m.requestSize.Record(ctx, reqBytes, attrs)
	}
	if respBytes > 0 {
		m.responseSize.Record(ctx, respBytes, attrs)
	}
	if status >= 400 {
		m.unsuccessfulCount.Add(ctx, 1, attrs)
	}
}

// IncInFlight/DecInFlight bracket one exchange's processing.
func (m *Metrics) IncInFlight(ctx context.Context) {
	if m != nil {
		m.inFlight.Add(ctx, 1)
	}
}

func (m *Metrics) DecInFlight(ctx context.Context) {
	if m != nil {
		m.inFlight.Add(ctx, -1)
	}
}

// RecordTrieMutation records one insert or prune performed against the
// route registry's underlying trie (httpengine/trie).
func (m *Metrics) RecordTrieMutation(ctx context.Context, kind string) {
	if m == nil {
		return
	}
	m.trieMutationCount.Add(ctx, 1, metric.WithAttributes(attribute.String("kind", kind)))
}

func (m *Metrics) startMetricsServer() {
	if m.prometheusHandler == nil {
		return
	}
	actualPort, err := findAvailablePort(m.metricsPort)
	if err != nil {
		log.Printf("httpengine: failed to find available port for metrics server: %v", err)
		return
	}
	originalPort := m.metricsPort
	m.metricsPort = actualPort

	mux := http.NewServeMux()
	mux.Handle(m.metricsPath, m.prometheusHandler)

	server := &http.Server{
		Addr:         actualPort,
		Handler:      mux,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	m.serverMutex.Lock()
	m.metricsServer = server
	m.serverMutex.Unlock()

	go func() {
		if actualPort != originalPort {
			log.Printf("httpengine: metrics server starting on %s (auto-discovered from %s)", actualPort, originalPort)
		} else {
			log.Printf("httpengine: metrics server starting on %s", actualPort)
		}
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			m.serverMutex.Lock()
			m.metricsServer = nil
			m.serverMutex.Unlock()
			log.Printf("httpengine: metrics server error: %v", err)
		}
	}()
}

func (m *Metrics) stopMetricsServer() {
	m.serverMutex.Lock()
	server := m.metricsServer
	m.metricsServer = nil
	m.serverMutex.Unlock()

	if server != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := server.Shutdown(ctx); err != nil {
			log.Printf("httpengine: error shutting down metrics server: %v", err)
		}
	}
}

// findAvailablePort tries the preferred port, then increments until one
// is free, mirroring the teacher's auto-discovery so a second server in
// the same process doesn't fail to bind the default Prometheus port.
func findAvailablePort(preferredPort string) (string, error) {
	port := preferredPort
	if !strings.HasPrefix(port, ":") {
		port = ":" + port
	}
	portStr := strings.TrimPrefix(port, ":")
	portNum, err := strconv.Atoi(portStr)
	if err != nil {
		return "", fmt.Errorf("httpengine: invalid port format: %s", preferredPort)
	}

	for i := range 100 {
		testAddr := fmt.Sprintf(":%d", portNum+i)
		listener, err := net.Listen("tcp", testAddr)
		if err == nil {
			listener.Close()
			return testAddr, nil
		}
	}
	return "", fmt.Errorf("httpengine: no available port found starting from %s", preferredPort)
}
