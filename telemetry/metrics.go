package telemetry

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
)

// MetricsConfig holds metrics configuration.
type MetricsConfig struct {
	ServiceName    string
	ServiceVersion string
	Environment    string
	Endpoint       string // OTLP endpoint; empty keeps metrics in-process
	Insecure       bool
	ExportInterval time.Duration
}

// MetricsProvider provides metrics functionality.
type MetricsProvider struct {
	provider *sdkmetric.MeterProvider
	meter    metric.Meter
	config   MetricsConfig
}

// NewMetricsProvider creates a metrics provider, exporting over OTLP/HTTP
// when an endpoint is configured.
func NewMetricsProvider(ctx context.Context, config MetricsConfig) (*MetricsProvider, error) {
	res, err := newResource(ctx, config.ServiceName, config.ServiceVersion, config.Environment)
	if err != nil {
		return nil, err
	}

	opts := []sdkmetric.Option{sdkmetric.WithResource(res)}

	if config.Endpoint != "" {
		exporterOpts := []otlpmetrichttp.Option{otlpmetrichttp.WithEndpoint(config.Endpoint)}
		if config.Insecure {
			exporterOpts = append(exporterOpts, otlpmetrichttp.WithInsecure())
		}

		exporter, err := otlpmetrichttp.New(ctx, exporterOpts...)
		if err != nil {
			return nil, fmt.Errorf("failed to create metric exporter: %w", err)
		}

		interval := config.ExportInterval
		if interval <= 0 {
			interval = time.Minute
		}
		opts = append(opts, sdkmetric.WithReader(
			sdkmetric.NewPeriodicReader(exporter, sdkmetric.WithInterval(interval)),
		))
	}

	provider := sdkmetric.NewMeterProvider(opts...)
	otel.SetMeterProvider(provider)

	return &MetricsProvider{
		provider: provider,
		meter:    provider.Meter(config.ServiceName),
		config:   config,
	}, nil
}

// Meter returns the meter for creating instruments.
func (m *MetricsProvider) Meter() metric.Meter {
	return m.meter
}

// Shutdown shuts down the metrics provider.
func (m *MetricsProvider) Shutdown(ctx context.Context) error {
	return m.provider.Shutdown(ctx)
}

// HTTPMetrics provides BFF request metrics.
type HTTPMetrics struct {
	requestsTotal   metric.Int64Counter
	requestDuration metric.Float64Histogram
	activeRequests  metric.Int64UpDownCounter
}

// NewHTTPMetrics creates HTTP metrics.
func NewHTTPMetrics(meter metric.Meter) (*HTTPMetrics, error) {
	requestsTotal, err := meter.Int64Counter(
		"http_requests_total",
		metric.WithDescription("Total number of HTTP requests"),
		metric.WithUnit("{requests}"),
	)
	if err != nil {
		return nil, err
	}

	requestDuration, err := meter.Float64Histogram(
		"http_request_duration_seconds",
		metric.WithDescription("HTTP request duration in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10),
	)
	if err != nil {
		return nil, err
	}

	activeRequests, err := meter.Int64UpDownCounter(
		"http_active_requests",
		metric.WithDescription("Number of active HTTP requests"),
		metric.WithUnit("{requests}"),
	)
	if err != nil {
		return nil, err
	}

	return &HTTPMetrics{
		requestsTotal:   requestsTotal,
		requestDuration: requestDuration,
		activeRequests:  activeRequests,
	}, nil
}

// RecordRequest records HTTP request metrics.
func (m *HTTPMetrics) RecordRequest(ctx context.Context, method, path string, status int, duration time.Duration) {
	attrs := metric.WithAttributes(
		attribute.String("method", method),
		attribute.String("path", path),
		attribute.String("status_class", statusClass(status)),
	)

	m.requestsTotal.Add(ctx, 1, attrs)
	m.requestDuration.Record(ctx, duration.Seconds(), attrs)
}

func statusClass(status int) string {
	switch {
	case status >= 200 && status < 300:
		return "2xx"
	case status >= 300 && status < 400:
		return "3xx"
	case status >= 400 && status < 500:
		return "4xx"
	case status >= 500:
		return "5xx"
	default:
		return "unknown"
	}
}

// MapMetrics records provider traffic and map interaction outcomes. A nil
// *MapMetrics is valid and records nothing.
type MapMetrics struct {
	providerRequests metric.Int64Counter
	providerLatency  metric.Float64Histogram
	cacheLookups     metric.Int64Counter
	suggestFetches   metric.Int64Counter
	staleDiscarded   metric.Int64Counter
	routesComputed   metric.Int64Counter
}

// NewMapMetrics creates map metrics on meter.
func NewMapMetrics(meter metric.Meter) (*MapMetrics, error) {
	providerRequests, err := meter.Int64Counter(
		"places_provider_requests_total",
		metric.WithDescription("Requests sent to the geocoding/directions provider"),
		metric.WithUnit("{requests}"),
	)
	if err != nil {
		return nil, err
	}

	providerLatency, err := meter.Float64Histogram(
		"places_provider_request_duration_seconds",
		metric.WithDescription("Provider request duration in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10),
	)
	if err != nil {
		return nil, err
	}

	cacheLookups, err := meter.Int64Counter(
		"places_cache_lookups_total",
		metric.WithDescription("Provider cache lookups by result"),
	)
	if err != nil {
		return nil, err
	}

	suggestFetches, err := meter.Int64Counter(
		"search_suggestion_fetches_total",
		metric.WithDescription("Debounced suggestion fetches issued by search sessions"),
	)
	if err != nil {
		return nil, err
	}

	staleDiscarded, err := meter.Int64Counter(
		"map_stale_results_discarded_total",
		metric.WithDescription("Async results dropped because their request was superseded"),
	)
	if err != nil {
		return nil, err
	}

	routesComputed, err := meter.Int64Counter(
		"map_routes_computed_total",
		metric.WithDescription("Route computations by outcome"),
	)
	if err != nil {
		return nil, err
	}

	return &MapMetrics{
		providerRequests: providerRequests,
		providerLatency:  providerLatency,
		cacheLookups:     cacheLookups,
		suggestFetches:   suggestFetches,
		staleDiscarded:   staleDiscarded,
		routesComputed:   routesComputed,
	}, nil
}

// NewNoopMapMetrics returns metrics backed by a no-op meter.
func NewNoopMapMetrics() *MapMetrics {
	m, _ := NewMapMetrics(noop.NewMeterProvider().Meter("noop"))
	return m
}

// RecordProviderRequest records one provider call.
func (m *MapMetrics) RecordProviderRequest(ctx context.Context, operation string, duration time.Duration, err error) {
	if m == nil {
		return
	}
	outcome := "success"
	if err != nil {
		outcome = "error"
	}
	attrs := metric.WithAttributes(
		attribute.String("operation", operation),
		attribute.String("outcome", outcome),
	)
	m.providerRequests.Add(ctx, 1, attrs)
	m.providerLatency.Record(ctx, duration.Seconds(), attrs)
}

// RecordCacheLookup records a cache hit or miss for operation.
func (m *MapMetrics) RecordCacheLookup(ctx context.Context, operation string, hit bool) {
	if m == nil {
		return
	}
	m.cacheLookups.Add(ctx, 1, metric.WithAttributes(
		attribute.String("operation", operation),
		attribute.Bool("hit", hit),
	))
}

// RecordSuggestFetch records a suggestion fetch and how many results it returned.
func (m *MapMetrics) RecordSuggestFetch(ctx context.Context, results int) {
	if m == nil {
		return
	}
	m.suggestFetches.Add(ctx, 1, metric.WithAttributes(attribute.Bool("empty", results == 0)))
}

// RecordStaleResult records a discarded result from component.
func (m *MapMetrics) RecordStaleResult(ctx context.Context, component string) {
	if m == nil {
		return
	}
	m.staleDiscarded.Add(ctx, 1, metric.WithAttributes(attribute.String("component", component)))
}

// RecordRoute records a route computation outcome.
func (m *MapMetrics) RecordRoute(ctx context.Context, found bool) {
	if m == nil {
		return
	}
	m.routesComputed.Add(ctx, 1, metric.WithAttributes(attribute.Bool("found", found)))
}
