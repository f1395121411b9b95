// Package places is a server-side client for a Mapbox-compatible geocoding
// and directions provider. It backs location search, reverse geocoding of
// dropped markers and routes to events.
package places

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"code.cloudfoundry.org/clock"
	"github.com/goccy/go-json"

	apperrors "github.com/gobusker/gobusker-map/errors"
	"github.com/gobusker/gobusker-map/geo"
	"github.com/gobusker/gobusker-map/logging"
	"github.com/gobusker/gobusker-map/resilience"
	"github.com/gobusker/gobusker-map/telemetry"
)

const (
	defaultBaseURL      = "https://api.mapbox.com"
	defaultTimeout      = 10 * time.Second
	defaultMaxRetries   = 2
	defaultRetryDelay   = 100 * time.Millisecond
	defaultCacheTTL     = 24 * time.Hour
	defaultSuggestLimit = 5
	defaultProfile      = "walking"

	// FallbackPlaceName is shown for a dropped marker when reverse geocoding fails.
	FallbackPlaceName = "Selected location"
)

// DefaultPlaceTypes are the feature types requested for searches.
var DefaultPlaceTypes = []geo.PlaceType{
	geo.PlaceTypeCountry,
	geo.PlaceTypeRegion,
	geo.PlaceTypePlace,
	geo.PlaceTypeLocality,
	geo.PlaceTypeNeighborhood,
	geo.PlaceTypeAddress,
	geo.PlaceTypePOI,
}

// ErrRouteNotFound is returned by Route for any failure.
var ErrRouteNotFound = apperrors.NotFound("route")

// Config holds provider client configuration.
type Config struct {
	// BaseURL of the provider API.
	BaseURL string

	// AccessToken is the server-side provider token. Never sent to browsers.
	AccessToken string

	// Country restricts results (comma-separated ISO 3166-1 alpha-2 codes).
	Country string

	// Language for display names.
	Language string

	// Profile is the directions profile (walking, cycling, driving).
	Profile string

	// SuggestLimit is the number of autocomplete suggestions returned.
	SuggestLimit int

	// Timeout for each HTTP attempt.
	Timeout time.Duration

	// MaxRetries for failed requests.
	MaxRetries int

	// RetryDelay between retries, multiplied by the attempt number.
	RetryDelay time.Duration

	// CacheTTL for cached responses.
	CacheTTL time.Duration
}

// DefaultConfig returns a configuration for Swedish searches.
func DefaultConfig(accessToken string) *Config {
	return &Config{
		BaseURL:      defaultBaseURL,
		AccessToken:  accessToken,
		Country:      "se",
		Language:     "sv",
		Profile:      defaultProfile,
		SuggestLimit: defaultSuggestLimit,
		Timeout:      defaultTimeout,
		MaxRetries:   defaultMaxRetries,
		RetryDelay:   defaultRetryDelay,
		CacheTTL:     defaultCacheTTL,
	}
}

// PlaceFeature is a geocoding result.
type PlaceFeature struct {
	ID          string           `json:"id"`
	Coordinate  geo.Coordinate   `json:"coordinate"`
	DisplayName string           `json:"display_name"`
	PlaceType   geo.PlaceType    `json:"place_type"`
	BoundingBox *geo.BoundingBox `json:"bbox,omitempty"`
}

// Zoom returns the fly-to zoom for the feature.
func (f PlaceFeature) Zoom() int {
	return geo.ZoomForPlaceType(f.PlaceType, f.BoundingBox)
}

// Route is a polyline between two points.
type Route struct {
	Geometry        []geo.Coordinate `json:"geometry"`
	DistanceMeters  float64          `json:"distance_meters"`
	DurationSeconds float64          `json:"duration_seconds"`
}

// BoundingBox returns the box around the route geometry.
func (r *Route) BoundingBox() geo.BoundingBox {
	return geo.BoundingBoxOf(r.Geometry...)
}

// Client talks to the geocoding/directions provider.
type Client struct {
	config   *Config
	http     *resilience.ResilientHTTPClient
	logger   *logging.Logger
	tracer   *Tracer
	cache    Cache
	limiter  RateLimiter
	metrics  *telemetry.MapMetrics
	insights *logging.Insights
	clock    clock.Clock
}

// NewClient creates a provider client. cache, limiter and tracer may be nil.
func NewClient(config *Config, logger *logging.Logger, tracer *Tracer, cache Cache, limiter RateLimiter) *Client {
	if config == nil {
		config = DefaultConfig("")
	}
	if config.BaseURL == "" {
		config.BaseURL = defaultBaseURL
	}
	if config.SuggestLimit <= 0 {
		config.SuggestLimit = defaultSuggestLimit
	}
	if config.Profile == "" {
		config.Profile = defaultProfile
	}
	if config.Timeout <= 0 {
		config.Timeout = defaultTimeout
	}
	if limiter == nil {
		limiter = NewNoopRateLimiter()
	}

	clk := clock.NewClock()

	return &Client{
		config: config,
		http: resilience.NewResilientHTTPClient(resilience.ResilientHTTPClientConfig{
			Name:       "places",
			Timeout:    config.Timeout,
			Retries:    config.MaxRetries,
			RetryDelay: config.RetryDelay,
			Clock:      clk,
		}),
		logger:  logging.OrNop(logger).WithComponent("places"),
		tracer:  tracer,
		cache:   cache,
		limiter: limiter,
		clock:   clk,
	}
}

// WithMetrics attaches map metrics.
func (c *Client) WithMetrics(m *telemetry.MapMetrics) *Client {
	c.metrics = m
	return c
}

// WithInsights attaches an Application Insights sink for dependency tracking.
func (c *Client) WithInsights(i *logging.Insights) *Client {
	c.insights = i
	return c
}

// Config returns the client configuration.
func (c *Client) Config() Config {
	return *c.config
}

// CircuitBreaker exposes the provider breaker for health checks.
func (c *Client) CircuitBreaker() *resilience.CircuitBreaker {
	return c.http.CircuitBreaker()
}

// getJSON performs a GET against path with params, decoding into out. The
// raw body is cached under cacheKey when one is given.
func (c *Client) getJSON(ctx context.Context, operation, path string, params url.Values, cacheKey string, out any) error {
	if cacheKey != "" && c.cache != nil {
		cached, err := c.cache.Get(ctx, cacheKey)
		if err != nil {
			c.logger.Warn("cache read failed", "operation", operation, "error", err)
		}
		c.metrics.RecordCacheLookup(ctx, operation, cached != nil)
		if cached != nil {
			if err := json.Unmarshal(cached, out); err == nil {
				return nil
			}
		}
	}

	if err := c.limiter.Wait(ctx, operation); err != nil {
		return apperrors.Wrap(err, apperrors.CodeRateLimited, "provider rate limit")
	}

	if params == nil {
		params = url.Values{}
	}
	params.Set("access_token", c.config.AccessToken)

	reqURL := strings.TrimRight(c.config.BaseURL, "/") + path + "?" + params.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return apperrors.Transport(err, "failed to create request")
	}
	req.Header.Set("Accept", "application/json")

	start := c.clock.Now()
	body, err := c.do(req)
	elapsed := c.clock.Since(start)

	c.metrics.RecordProviderRequest(ctx, operation, elapsed, err)
	c.insights.TrackDependency(operation, req.URL.Host, elapsed, err == nil)

	if err != nil {
		return err
	}

	if err := json.Unmarshal(body, out); err != nil {
		return apperrors.Transport(err, "failed to decode provider response")
	}

	if cacheKey != "" && c.cache != nil {
		if err := c.cache.Set(ctx, cacheKey, body, c.config.CacheTTL); err != nil {
			c.logger.Warn("cache write failed", "operation", operation, "error", err)
		}
	}

	return nil
}

func (c *Client) do(req *http.Request) ([]byte, error) {
	resp, err := c.http.Do(req)
	if err != nil {
		if req.Context().Err() != nil {
			return nil, req.Context().Err()
		}
		return nil, apperrors.Transport(err, "provider request failed")
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, apperrors.Transport(err, "failed to read provider response")
	}
	return body, nil
}

func formatLngLat(c geo.Coordinate) string {
	return fmt.Sprintf("%.6f,%.6f", c.Lng, c.Lat)
}
