package places

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/gobusker/gobusker-map/geo"
)

// Tracer wraps an OpenTelemetry tracer for provider calls.
type Tracer struct {
	tracer trace.Tracer
}

// NewTracer creates a new Tracer. It returns nil for a nil tracer, which
// disables spans.
func NewTracer(tracer trace.Tracer) *Tracer {
	if tracer == nil {
		return nil
	}
	return &Tracer{tracer: tracer}
}

// Span wraps an OpenTelemetry span. The zero Span is a no-op.
type Span struct {
	span trace.Span
}

// End ends the span.
func (s *Span) End() {
	if s.span != nil {
		s.span.End()
	}
}

// RecordError records an error on the span.
func (s *Span) RecordError(err error) {
	if s.span != nil {
		s.span.RecordError(err)
		s.span.SetStatus(codes.Error, err.Error())
	}
}

// SetAttributes sets attributes on the span.
func (s *Span) SetAttributes(attrs ...attribute.KeyValue) {
	if s.span != nil {
		s.span.SetAttributes(attrs...)
	}
}

// StartSpan starts a client span for a provider operation.
func (t *Tracer) StartSpan(ctx context.Context, name string) (context.Context, *Span) {
	if t == nil || t.tracer == nil {
		return ctx, &Span{}
	}

	ctx, span := t.tracer.Start(ctx, name,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("places.provider", "mapbox"),
		),
	)

	return ctx, &Span{span: span}
}

// GeocodeAttributes describes a forward geocode.
func GeocodeAttributes(query string, autocomplete bool, results int) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String("places.operation", "geocode"),
		attribute.Int("places.query.length", len(query)),
		attribute.Bool("places.autocomplete", autocomplete),
		attribute.Int("places.results.count", results),
	}
}

// ReverseAttributes describes a reverse geocode.
func ReverseAttributes(c geo.Coordinate, found bool) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String("places.operation", "reverse_geocode"),
		attribute.Float64("places.location.lat", c.Lat),
		attribute.Float64("places.location.lng", c.Lng),
		attribute.Bool("places.found", found),
	}
}

// RouteAttributes describes a directions request.
func RouteAttributes(origin, destination geo.Coordinate, points int, distanceMeters float64) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String("places.operation", "route"),
		attribute.Float64("places.origin.lat", origin.Lat),
		attribute.Float64("places.origin.lng", origin.Lng),
		attribute.Float64("places.dest.lat", destination.Lat),
		attribute.Float64("places.dest.lng", destination.Lng),
		attribute.Int("places.route.points", points),
		attribute.Float64("places.route.distance_meters", distanceMeters),
	}
}
