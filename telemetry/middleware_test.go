package telemetry

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	"go.opentelemetry.io/otel/trace/noop"
)

func TestMetricsMiddleware_LabelsByRoutePattern(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	metrics, err := NewHTTPMetrics(provider.Meter("test"))
	if err != nil {
		t.Fatalf("NewHTTPMetrics: %v", err)
	}

	r := chi.NewRouter()
	r.Use(MetricsMiddleware(metrics))
	r.Get("/v1/events/{id}", func(w http.ResponseWriter, r *http.Request) {})

	for _, id := range []string{"ev-1", "ev-2"} {
		r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/v1/events/"+id, nil))
	}

	sum, ok := collect(t, reader)["http_requests_total"].Data.(metricdata.Sum[int64])
	if !ok {
		t.Fatal("http_requests_total missing")
	}
	if len(sum.DataPoints) != 1 {
		t.Fatalf("data points = %d, want 1", len(sum.DataPoints))
	}
	path, _ := sum.DataPoints[0].Attributes.Value("path")
	if path.AsString() != "/v1/events/{id}" {
		t.Errorf("path = %q", path.AsString())
	}
}

func TestRoutePattern_Unmatched(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/nowhere", nil)
	if got := routePattern(req); got != "unmatched" {
		t.Errorf("routePattern = %q", got)
	}
}

func TestTracingMiddleware_PassesThrough(t *testing.T) {
	tracer := noop.NewTracerProvider().Tracer("test")
	handler := TracingMiddleware(tracer)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/places/search", nil))
	if rec.Code != http.StatusBadGateway {
		t.Errorf("status = %d", rec.Code)
	}
}

func TestTraceQuery(t *testing.T) {
	boom := errors.New("boom")
	tracer := noop.NewTracerProvider().Tracer("test")

	for _, tr := range []struct {
		name string
		fn   func(context.Context) (int, error)
		want error
	}{
		{"ok", func(context.Context) (int, error) { return 3, nil }, nil},
		{"error", func(context.Context) (int, error) { return 0, boom }, boom},
	} {
		t.Run(tr.name, func(t *testing.T) {
			if err := TraceQuery(context.Background(), tracer, "events", tr.fn); !errors.Is(err, tr.want) {
				t.Errorf("err = %v, want %v", err, tr.want)
			}
			if err := TraceQuery(context.Background(), nil, "events", tr.fn); !errors.Is(err, tr.want) {
				t.Errorf("nil tracer: err = %v, want %v", err, tr.want)
			}
		})
	}
}
