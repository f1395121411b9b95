package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.opentelemetry.io/otel/trace"

	"github.com/gobusker/gobusker-map/health"
	httpx "github.com/gobusker/gobusker-map/http"
	"github.com/gobusker/gobusker-map/logging"
	"github.com/gobusker/gobusker-map/telemetry"
)

// RequestTimeout bounds every /v1 request.
const RequestTimeout = 15 * time.Second

// RouterConfig carries the cross-cutting pieces of the router. Nil fields
// are skipped.
type RouterConfig struct {
	Logger         *logging.Logger
	CORSOrigins    []string
	RateLimiter    *httpx.RateLimiter
	Tracer         trace.Tracer
	HTTPMetrics    *telemetry.HTTPMetrics
	Health         *health.Checker
	RequestTimeout time.Duration
}

// NewRouter mounts the handler and health endpoints behind the middleware stack.
func NewRouter(h *Handler, cfg RouterConfig) http.Handler {
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = RequestTimeout
	}

	r := chi.NewRouter()
	r.Use(httpx.RequestID(cfg.Logger))
	r.Use(middleware.RealIP)
	r.Use(httpx.Logger(cfg.Logger))
	r.Use(httpx.Recoverer(cfg.Logger))
	r.Use(httpx.SecurityHeaders)
	r.Use(httpx.CORS(cfg.CORSOrigins))

	if cfg.Health != nil {
		r.Get("/healthz", cfg.Health.LivenessHandler())
		r.Get("/readyz", cfg.Health.ReadinessHandler())
	}

	r.Route("/v1", func(r chi.Router) {
		if cfg.Tracer != nil {
			r.Use(telemetry.TracingMiddleware(cfg.Tracer))
		}
		if cfg.HTTPMetrics != nil {
			r.Use(telemetry.MetricsMiddleware(cfg.HTTPMetrics))
		}
		if cfg.RateLimiter != nil {
			r.Use(cfg.RateLimiter.Middleware)
		}
		r.Use(middleware.Timeout(cfg.RequestTimeout))

		r.Get("/config", h.Settings)
		r.Get("/places/suggest", h.Suggest)
		r.Get("/places/search", h.Search)
		r.Get("/places/reverse", h.Reverse)
		r.Post("/routes", h.Route)
		r.Get("/geo/circle", h.Circle)
		r.Get("/geo/zoom", h.Zoom)
		r.Get("/events/nearby", h.Nearby)
	})

	return r
}
