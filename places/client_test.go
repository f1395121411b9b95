package places

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/goccy/go-json"

	apperrors "github.com/gobusker/gobusker-map/errors"
	"github.com/gobusker/gobusker-map/geo"
)

const stockholmResponse = `{
	"type": "FeatureCollection",
	"features": [
		{
			"id": "place.123",
			"center": [18.0686, 59.3293],
			"place_name": "Stockholm, Sweden",
			"place_type": ["place"],
			"bbox": [17.76, 59.22, 18.2, 59.45]
		},
		{
			"id": "poi.9",
			"center": [18.07, 59.33],
			"place_name": "Stockholm Central",
			"place_type": ["poi"]
		}
	]
}`

const routeResponse = `{
	"code": "Ok",
	"routes": [
		{
			"distance": 1234.5,
			"duration": 900,
			"geometry": {
				"type": "LineString",
				"coordinates": [[18.0686, 59.3293], [18.07, 59.331], [18.0721, 59.3326]]
			}
		}
	]
}`

func newTestClient(t *testing.T, handler http.HandlerFunc) (*Client, *httptest.Server) {
	t.Helper()

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	config := DefaultConfig("test-token")
	config.BaseURL = server.URL
	config.MaxRetries = 0
	config.Timeout = time.Second

	return NewClient(config, nil, nil, NewInMemoryCache(nil, 0), NewNoopRateLimiter()), server
}

func TestGeocode(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasPrefix(r.URL.Path, "/geocoding/v5/mapbox.places/") {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		q := r.URL.Query()
		if q.Get("access_token") != "test-token" {
			t.Errorf("missing access token")
		}
		if q.Get("proximity") != "18.000000,59.000000" {
			t.Errorf("proximity = %q", q.Get("proximity"))
		}
		if q.Get("country") != "se" {
			t.Errorf("country = %q", q.Get("country"))
		}
		if q.Get("autocomplete") != "true" {
			t.Errorf("autocomplete = %q", q.Get("autocomplete"))
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(stockholmResponse))
	})

	bias := geo.NewCoordinate(59, 18)
	results, err := client.Geocode(context.Background(), Query{Text: "Stockholm", Proximity: &bias}, true)
	if err != nil {
		t.Fatalf("Geocode: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}

	first := results[0]
	if first.Coordinate.Lat != 59.3293 || first.Coordinate.Lng != 18.0686 {
		t.Errorf("center not converted from [lng, lat]: %+v", first.Coordinate)
	}
	if first.PlaceType != geo.PlaceTypePlace {
		t.Errorf("place type = %s", first.PlaceType)
	}
	if first.BoundingBox == nil || first.BoundingBox.MinLng != 17.76 || first.BoundingBox.MaxLat != 59.45 {
		t.Errorf("bbox = %+v", first.BoundingBox)
	}
	if first.Zoom() != 11 {
		t.Errorf("zoom = %d, want 11", first.Zoom())
	}
	if results[1].BoundingBox != nil {
		t.Error("expected nil bbox for poi")
	}
}

func TestGeocode_EmptyQuery(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		t.Error("provider should not be called")
	})

	_, err := client.Geocode(context.Background(), Query{Text: "   "}, false)
	if !apperrors.IsValidation(err) {
		t.Errorf("expected validation error, got %v", err)
	}
}

func TestGeocode_Cached(t *testing.T) {
	var calls atomic.Int32
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		_, _ = w.Write([]byte(stockholmResponse))
	})

	for i := 0; i < 3; i++ {
		if _, err := client.Geocode(context.Background(), Query{Text: "Stockholm"}, false); err != nil {
			t.Fatalf("Geocode: %v", err)
		}
	}
	if calls.Load() != 1 {
		t.Errorf("expected 1 provider call, got %d", calls.Load())
	}
}

func TestSuggest(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("limit") != "5" {
			t.Errorf("limit = %q, want 5", r.URL.Query().Get("limit"))
		}
		_, _ = w.Write([]byte(stockholmResponse))
	})

	results := client.Suggest(context.Background(), Query{Text: "Stock"})
	if len(results) != 2 {
		t.Errorf("expected 2 suggestions, got %d", len(results))
	}
}

func TestSuggest_TransportErrorIsEmpty(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})

	results := client.Suggest(context.Background(), Query{Text: "Stock"})
	if results == nil || len(results) != 0 {
		t.Errorf("expected empty non-nil slice, got %#v", results)
	}
}

func TestSuggest_MalformedJSONIsEmpty(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"features": [`))
	})

	if results := client.Suggest(context.Background(), Query{Text: "Stock"}); len(results) != 0 {
		t.Errorf("expected no suggestions, got %d", len(results))
	}
}

func TestSearchTop(t *testing.T) {
	tests := []struct {
		name      string
		status    int
		body      string
		wantName  string
		wantCheck func(error) bool
	}{
		{
			name:     "found",
			status:   http.StatusOK,
			body:     stockholmResponse,
			wantName: "Stockholm, Sweden",
		},
		{
			name:      "no results",
			status:    http.StatusOK,
			body:      `{"features": []}`,
			wantCheck: apperrors.IsNotFound,
		},
		{
			name:      "provider down",
			status:    http.StatusBadGateway,
			body:      `oops`,
			wantCheck: apperrors.IsTransport,
		},
		{
			name:      "bad token",
			status:    http.StatusUnauthorized,
			body:      `{"message": "Not Authorized"}`,
			wantCheck: apperrors.IsTransport,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				if r.URL.Query().Get("limit") != "1" {
					t.Errorf("limit = %q, want 1", r.URL.Query().Get("limit"))
				}
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			})

			place, err := client.SearchTop(context.Background(), Query{Text: "Stockholm"})
			if tt.wantCheck != nil {
				if !tt.wantCheck(err) {
					t.Errorf("unexpected error %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("SearchTop: %v", err)
			}
			if place.DisplayName != tt.wantName {
				t.Errorf("DisplayName = %q, want %q", place.DisplayName, tt.wantName)
			}
		})
	}
}

func TestReverseGeocode(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "/18.068600,59.329300.json") {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		_, _ = w.Write([]byte(stockholmResponse))
	})

	name := client.ReverseGeocode(context.Background(), geo.NewCoordinate(59.3293, 18.0686))
	if name != "Stockholm, Sweden" {
		t.Errorf("name = %q", name)
	}
}

func TestReverseGeocode_Fallback(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{"server error", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusServiceUnavailable) }},
		{"no features", func(w http.ResponseWriter, r *http.Request) { _, _ = w.Write([]byte(`{"features": []}`)) }},
		{"garbage", func(w http.ResponseWriter, r *http.Request) { _, _ = w.Write([]byte(`<html>`)) }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client, _ := newTestClient(t, tt.handler)
			name := client.ReverseGeocode(context.Background(), geo.NewCoordinate(59.3293, 18.0686))
			if name != FallbackPlaceName {
				t.Errorf("name = %q, want %q", name, FallbackPlaceName)
			}
		})
	}
}

func TestReverse_InvalidCoordinate(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		t.Error("provider should not be called")
	})

	if _, err := client.Reverse(context.Background(), geo.NewCoordinate(91, 0)); !apperrors.IsValidation(err) {
		t.Errorf("expected validation error, got %v", err)
	}
}

func TestRoute(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		want := "/directions/v5/mapbox/walking/18.068600,59.329300;18.072100,59.332600"
		if r.URL.Path != want {
			t.Errorf("path = %s, want %s", r.URL.Path, want)
		}
		if r.URL.Query().Get("geometries") != "geojson" {
			t.Error("expected geojson geometries")
		}
		_, _ = w.Write([]byte(routeResponse))
	})

	route, err := client.Route(context.Background(),
		geo.NewCoordinate(59.3293, 18.0686),
		geo.NewCoordinate(59.3326, 18.0721))
	if err != nil {
		t.Fatalf("Route: %v", err)
	}

	if len(route.Geometry) != 3 {
		t.Fatalf("expected 3 points, got %d", len(route.Geometry))
	}
	if route.Geometry[2].Lat != 59.3326 || route.Geometry[2].Lng != 18.0721 {
		t.Errorf("last point = %+v", route.Geometry[2])
	}
	if route.DistanceMeters != 1234.5 || route.DurationSeconds != 900 {
		t.Errorf("distance/duration = %v/%v", route.DistanceMeters, route.DurationSeconds)
	}

	bb := route.BoundingBox()
	if bb.MinLat != 59.3293 || bb.MaxLng != 18.0721 {
		t.Errorf("bbox = %+v", bb)
	}
}

func TestRoute_FailuresAreNotFound(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{"server error", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusInternalServerError) }},
		{"no routes", func(w http.ResponseWriter, r *http.Request) { _, _ = w.Write([]byte(`{"code": "NoRoute", "routes": []}`)) }},
		{"point geometry", func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{"routes": [{"geometry": {"type": "Point", "coordinates": [18, 59]}}]}`))
		}},
		{"truncated", func(w http.ResponseWriter, r *http.Request) { _, _ = w.Write([]byte(`{"routes": [{`)) }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client, _ := newTestClient(t, tt.handler)
			_, err := client.Route(context.Background(), geo.NewCoordinate(59.3, 18), geo.NewCoordinate(59.4, 18.1))
			if err != ErrRouteNotFound {
				t.Errorf("expected ErrRouteNotFound, got %v", err)
			}
		})
	}
}

func TestRoute_CircuitOpensOnRepeatedFailures(t *testing.T) {
	var calls atomic.Int32
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	})

	for i := 0; i < 8; i++ {
		_, _ = client.Route(context.Background(), geo.NewCoordinate(59.3, 18), geo.NewCoordinate(59.4, 18.1))
	}

	if calls.Load() != 5 {
		t.Errorf("expected breaker to stop calls after 5 failures, got %d", calls.Load())
	}
	if client.CircuitBreaker().State().String() != "open" {
		t.Errorf("breaker state = %s", client.CircuitBreaker().State())
	}
}

func TestPlaceFeature_JSON(t *testing.T) {
	f := PlaceFeature{
		ID:          "place.1",
		Coordinate:  geo.NewCoordinate(59.3, 18.0),
		DisplayName: "Stockholm",
		PlaceType:   geo.PlaceTypePlace,
	}

	data, err := json.Marshal(f)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	if strings.Contains(string(data), "bbox") {
		t.Errorf("nil bbox should be omitted: %s", data)
	}
}
