// Package bootstrap wires the map service from its configuration.
package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net/http"
	"time"

	"code.cloudfoundry.org/clock"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/gobusker/gobusker-map/api"
	"github.com/gobusker/gobusker-map/config"
	"github.com/gobusker/gobusker-map/database"
	"github.com/gobusker/gobusker-map/events"
	"github.com/gobusker/gobusker-map/health"
	httpx "github.com/gobusker/gobusker-map/http"
	"github.com/gobusker/gobusker-map/logging"
	"github.com/gobusker/gobusker-map/places"
	"github.com/gobusker/gobusker-map/search"
	"github.com/gobusker/gobusker-map/telemetry"
	"github.com/gobusker/gobusker-map/theme"
)

// Service holds all initialized components of the map service.
type Service struct {
	Config     *config.Config
	Logger     *logging.Logger
	Insights   *logging.Insights
	Tracing    *telemetry.TracingProvider
	Metrics    *telemetry.MetricsProvider
	MapMetrics *telemetry.MapMetrics

	// Redis and Postgres are nil when not configured.
	Redis    *redis.Client
	Postgres *pgxpool.Pool

	Places *places.Client
	Events events.Source
	Health *health.Checker
	Router http.Handler
}

// Options tunes initialization.
type Options struct {
	// Clock drives limiter and health timing. Defaults to the real clock.
	Clock clock.Clock
	Retry database.RetryConfig
}

// DefaultOptions returns production options.
func DefaultOptions() Options {
	return Options{Retry: database.DefaultRetryConfig()}
}

// Initialize loads configuration (from Key Vault outside development) and
// builds every component. Redis and PostgreSQL are optional: without them
// provider responses are cached in memory and events come from an in-memory
// source.
func Initialize(ctx context.Context, serviceName string, opts Options) (*Service, error) {
	cfg, err := config.Load(serviceName)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	return New(ctx, cfg, opts)
}

// New builds the service from an already loaded configuration.
func New(ctx context.Context, cfg *config.Config, opts Options) (_ *Service, err error) {
	if opts.Clock == nil {
		opts.Clock = clock.NewClock()
	}
	opts.Retry.Clock = opts.Clock

	logger := logging.NewLogger(cfg.LogLevel).WithService(cfg.ServiceName)
	logger.Info("starting service",
		"environment", cfg.Environment,
		"version", cfg.Version,
		"key_vault", valueOrNone(cfg.KeyVaultName),
	)

	svc := &Service{
		Config:   cfg,
		Logger:   logger,
		Insights: logging.NewInsights(cfg.AppInsightsKey),
	}
	defer func() {
		if err != nil {
			svc.Close(context.WithoutCancel(ctx))
		}
	}()

	if svc.Tracing, err = telemetry.NewTracingProvider(ctx, telemetry.TracingConfig{
		ServiceName:    cfg.ServiceName,
		ServiceVersion: cfg.Version,
		Environment:    cfg.Environment,
		Endpoint:       cfg.OTLPEndpoint,
		SampleRate:     1.0,
		Insecure:       cfg.IsDevelopment(),
	}); err != nil {
		return nil, err
	}

	if svc.Metrics, err = telemetry.NewMetricsProvider(ctx, telemetry.MetricsConfig{
		ServiceName:    cfg.ServiceName,
		ServiceVersion: cfg.Version,
		Environment:    cfg.Environment,
		Endpoint:       cfg.OTLPEndpoint,
		Insecure:       cfg.IsDevelopment(),
	}); err != nil {
		return nil, err
	}
	if svc.MapMetrics, err = telemetry.NewMapMetrics(svc.Metrics.Meter()); err != nil {
		return nil, fmt.Errorf("failed to create map metrics: %w", err)
	}
	httpMetrics, err := telemetry.NewHTTPMetrics(svc.Metrics.Meter())
	if err != nil {
		return nil, fmt.Errorf("failed to create http metrics: %w", err)
	}

	svc.Health = health.NewChecker(cfg.Version, opts.Clock)

	if cfg.RedisAddr != "" {
		if svc.Redis, err = database.NewRedis(ctx, database.RedisConfigFrom(cfg), opts.Retry); err != nil {
			return nil, err
		}
		svc.Health.AddCheck("redis", health.RedisCheck(svc.Redis, 2*time.Second), false)
		logger.Info("redis connected", "addr", cfg.RedisAddr)
	}

	if cfg.DatabaseURL != "" {
		if svc.Postgres, err = database.NewPostgres(ctx, database.DefaultPostgresConfig(cfg.DatabaseURL), opts.Retry); err != nil {
			return nil, err
		}
		svc.Health.AddCheck("postgres", health.PostgresCheck(svc.Postgres, 2*time.Second), true)
		svc.Events = events.NewPostgresSource(svc.Postgres, svc.Tracing.Tracer(), logger)
		logger.Info("postgres connected")
	} else {
		svc.Events = events.NewMemorySource()
	}

	svc.Places = newPlacesClient(cfg, svc, opts.Clock)
	svc.Health.AddCheck("places", health.CircuitCheck(svc.Places.CircuitBreaker()), false)

	var limiter *httpx.RateLimiter
	if cfg.RateLimitEnabled {
		limiter = httpx.NewRateLimiter(httpx.RateLimiterConfig{
			RequestsPerSecond: cfg.RateLimitRPS,
			BurstSize:         cfg.RateLimitBurst,
			Clock:             opts.Clock,
		})
	}

	handler := api.NewHandler(svc.Places, svc.Events, logger, svc.Insights).
		WithSettings(api.NewClientSettings(search.ConfigFrom(cfg), theme.StylesFrom(cfg)))
	svc.Router = api.NewRouter(handler, api.RouterConfig{
		Logger:      logger,
		CORSOrigins: cfg.CORSAllowedOrigins,
		RateLimiter: limiter,
		Tracer:      svc.Tracing.Tracer(),
		HTTPMetrics: httpMetrics,
		Health:      svc.Health,
	})

	return svc, nil
}

func newPlacesClient(cfg *config.Config, svc *Service, clk clock.Clock) *places.Client {
	pc := places.DefaultConfig(cfg.MapboxAccessToken)
	pc.BaseURL = cfg.PlacesBaseURL
	pc.Country = cfg.PlacesCountry
	pc.Language = cfg.PlacesLanguage
	pc.Profile = cfg.PlacesProfile
	pc.Timeout = cfg.PlacesTimeout
	pc.CacheTTL = cfg.PlacesCacheTTL

	var (
		cache   places.Cache
		limiter places.RateLimiter
	)
	if svc.Redis != nil {
		cache = places.NewRedisCache(svc.Redis, "places:")
		limiter = places.NewRedisRateLimiter(svc.Redis, &places.RateLimiterConfig{
			KeyPrefix: "places:ratelimit:",
			Limit:     max(1, int(math.Ceil(cfg.PlacesRPS))),
			Window:    time.Second,
		})
	} else {
		cache = places.NewInMemoryCache(clk, cfg.PlacesCacheEntries)
		limiter = places.NewLocalRateLimiter(cfg.PlacesRPS, max(1, int(math.Ceil(cfg.PlacesRPS))))
	}

	tracer := places.NewTracer(svc.Tracing.Tracer())
	return places.NewClient(pc, svc.Logger, tracer, cache, limiter).
		WithMetrics(svc.MapMetrics).
		WithInsights(svc.Insights)
}

// Close releases every component that was created.
func (s *Service) Close(ctx context.Context) {
	var errs []error
	if s.Postgres != nil {
		s.Postgres.Close()
	}
	if s.Redis != nil {
		errs = append(errs, s.Redis.Close())
	}
	if s.Metrics != nil {
		errs = append(errs, s.Metrics.Shutdown(ctx))
	}
	if s.Tracing != nil {
		errs = append(errs, s.Tracing.Shutdown(ctx))
	}
	s.Insights.Close()

	if err := errors.Join(errs...); err != nil {
		s.Logger.Warn("shutdown incomplete", "error", err)
	}
}

func valueOrNone(s string) string {
	if s == "" {
		return "(none, using env vars)"
	}
	return s
}
