// Package telemetry wires the reactive kernel's Metrics interface (see
// core/reactive.Metrics) to OpenTelemetry, exporting via OTLP/HTTP when a
// collector endpoint is configured and otherwise discarding every
// measurement through a no-op provider.
package telemetry

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	apimetric "go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"

	"github.com/konall/korhah/core/reactive"
)

// Providers groups the OTel handles Init produces, kept for callers that
// need the raw MeterProvider (e.g. to instrument something other than the
// kernel itself).
type Providers struct {
	MeterProvider apimetric.MeterProvider
}

// Init configures an OTLP/HTTP metrics exporter pointed at endpoint. An
// empty endpoint yields a no-op provider: Recorder still works, it simply
// discards every measurement instead of exporting it.
func Init(ctx context.Context, endpoint, serviceName string) (Providers, func(context.Context) error, error) {
	endpoint = strings.TrimSpace(endpoint)
	if serviceName == "" {
		serviceName = "korhah"
	}

	if endpoint == "" {
		mp := noop.NewMeterProvider()
		otel.SetMeterProvider(mp)
		return Providers{MeterProvider: mp}, func(context.Context) error { return nil }, nil
	}

	host, insecure, err := parseEndpoint(endpoint)
	if err != nil {
		return Providers{}, nil, err
	}

	opts := []otlpmetrichttp.Option{otlpmetrichttp.WithEndpoint(host)}
	if insecure {
		opts = append(opts, otlpmetrichttp.WithInsecure())
	}

	exp, err := otlpmetrichttp.New(ctx, opts...)
	if err != nil {
		return Providers{}, nil, fmt.Errorf("create otlp metric exporter: %w", err)
	}

	res, err := resource.New(ctx, resource.WithAttributes(semconv.ServiceName(serviceName)))
	if err != nil {
		return Providers{}, nil, fmt.Errorf("create resource: %w", err)
	}

	reader := sdkmetric.NewPeriodicReader(exp, sdkmetric.WithInterval(15*time.Second))
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader), sdkmetric.WithResource(res))
	otel.SetMeterProvider(mp)

	return Providers{MeterProvider: mp}, mp.Shutdown, nil
}

func parseEndpoint(raw string) (string, bool, error) {
	parsed, err := url.Parse(raw)
	if err != nil {
		return "", false, fmt.Errorf("parse otlp endpoint: %w", err)
	}
	host := parsed.Host
	if host == "" {
		host = raw
	}
	insecure := parsed.Scheme != "https"
	return host, insecure, nil
}

// Recorder satisfies reactive.Metrics on top of an OTel meter, lazily
// creating one instrument per distinct counter/gauge name the kernel
// reports (the kernel's own counter names are a small, fixed set, so this
// never grows unbounded in practice).
type Recorder struct {
	meter apimetric.Meter

	mu        sync.Mutex
	counters  map[string]apimetric.Int64Counter
	gauges    map[string]apimetric.Float64Gauge
	histogram apimetric.Int64Histogram
}

// NewRecorder builds a Recorder drawing instruments from mp (typically
// Init's Providers.MeterProvider, or otel.GetMeterProvider() if telemetry
// was configured elsewhere).
func NewRecorder(mp apimetric.MeterProvider) *Recorder {
	meter := mp.Meter("github.com/konall/korhah/core/reactive")
	hist, _ := meter.Int64Histogram(
		"reactive_votes",
		apimetric.WithDescription("tally of votes cast per cancellable dispatch"),
	)
	return &Recorder{
		meter:     meter,
		counters:  make(map[string]apimetric.Int64Counter),
		gauges:    make(map[string]apimetric.Float64Gauge),
		histogram: hist,
	}
}

var _ reactive.Metrics = (*Recorder)(nil)

func (r *Recorder) IncCounter(name string, delta int64, labels map[string]string) {
	c := r.counter(name)
	if c == nil {
		return
	}
	c.Add(context.Background(), delta, apimetric.WithAttributes(attrs(labels)...))
}

func (r *Recorder) ObserveVotes(eventType string, votes reactive.Votes, cancelled bool) {
	if r.histogram == nil {
		return
	}
	labels := map[string]string{"event_type": eventType, "cancelled": fmt.Sprintf("%t", cancelled)}
	r.histogram.Record(context.Background(), int64(votes.Total()), apimetric.WithAttributes(attrs(labels)...))
}

func (r *Recorder) SetGauge(name string, value float64, labels map[string]string) {
	g := r.gauge(name)
	if g == nil {
		return
	}
	g.Record(context.Background(), value, apimetric.WithAttributes(attrs(labels)...))
}

func (r *Recorder) counter(name string) apimetric.Int64Counter {
	r.mu.Lock()
	defer r.mu.Unlock()
	if c, ok := r.counters[name]; ok {
		return c
	}
	c, err := r.meter.Int64Counter(name)
	if err != nil {
		return nil
	}
	r.counters[name] = c
	return c
}

func (r *Recorder) gauge(name string) apimetric.Float64Gauge {
	r.mu.Lock()
	defer r.mu.Unlock()
	if g, ok := r.gauges[name]; ok {
		return g
	}
	g, err := r.meter.Float64Gauge(name)
	if err != nil {
		return nil
	}
	r.gauges[name] = g
	return g
}

func attrs(labels map[string]string) []attribute.KeyValue {
	out := make([]attribute.KeyValue, 0, len(labels))
	for k, v := range labels {
		out = append(out, attribute.String(k, v))
	}
	return out
}
