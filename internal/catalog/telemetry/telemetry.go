// Package telemetry wires the OpenTelemetry metric SDK to a Prometheus
// exporter and holds the application's instruments.
package telemetry

import (
	"context"
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/runtime"
	"go.opentelemetry.io/otel"
	otelprom "go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
)

// Metrics holds the instruments recorded by the HTTP layer and the bulk
// engine, plus the Prometheus registry backing /metrics.
type Metrics struct {
	Requests        metric.Int64Counter
	ErrorCount      metric.Int64Counter
	RequestDuration metric.Float64Histogram

	BulkBatches      metric.Int64Counter
	BulkItems        metric.Int64Counter
	BulkItemFailures metric.Int64Counter

	registry *prometheus.Registry
}

// PrometheusHandler returns the handler serving the /metrics endpoint.
func (m *Metrics) PrometheusHandler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// InitMetrics sets up the meter provider and creates all instruments. The
// returned shutdown function flushes the provider.
func InitMetrics(version string) (func(context.Context) error, *Metrics, error) {
	registry := prometheus.NewRegistry()

	exporter, err := otelprom.New(otelprom.WithRegisterer(registry))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create prometheus exporter: %w", err)
	}

	res := resource.NewWithAttributes(
		semconv.SchemaURL,
		semconv.ServiceName("medialib"),
		semconv.ServiceVersion(version),
	)

	provider := sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(exporter),
		sdkmetric.WithResource(res),
	)
	otel.SetMeterProvider(provider)

	if err := runtime.Start(runtime.WithMeterProvider(provider)); err != nil {
		return nil, nil, fmt.Errorf("failed to start runtime instrumentation: %w", err)
	}

	meter := provider.Meter("medialib")

	metrics := &Metrics{registry: registry}

	metrics.Requests, err = meter.Int64Counter("http_requests_total",
		metric.WithDescription("Total HTTP requests"))
	if err != nil {
		return nil, nil, err
	}
	metrics.ErrorCount, err = meter.Int64Counter("http_request_errors_total",
		metric.WithDescription("HTTP requests answered with a 4xx or 5xx status"))
	if err != nil {
		return nil, nil, err
	}
	metrics.RequestDuration, err = meter.Float64Histogram("http_request_duration_seconds",
		metric.WithDescription("HTTP request latency in seconds"))
	if err != nil {
		return nil, nil, err
	}

	metrics.BulkBatches, err = meter.Int64Counter("bulk_batches_total",
		metric.WithDescription("Bulk batches accepted"))
	if err != nil {
		return nil, nil, err
	}
	metrics.BulkItems, err = meter.Int64Counter("bulk_items_total",
		metric.WithDescription("Bulk items processed"))
	if err != nil {
		return nil, nil, err
	}
	metrics.BulkItemFailures, err = meter.Int64Counter("bulk_item_failures_total",
		metric.WithDescription("Bulk items that failed"))
	if err != nil {
		return nil, nil, err
	}

	return provider.Shutdown, metrics, nil
}
