package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/capitalize-ai/commerce-assistant/internal/middleware"
	"github.com/capitalize-ai/commerce-assistant/pkg/logger"
)

// RouterConfig wires the handlers into a router. Turns is optional.
type RouterConfig struct {
	Chat    *ChatHandler
	Catalog *CatalogHandler
	Health  *HealthHandler
	Turns   *TurnHandler

	Logger      *logger.Logger
	AuthEnabled bool
	JWTSecret   string
	RateLimits  middleware.RateLimits
	CORSOrigins []string
}

// NewRouter builds the HTTP routes of the assistant.
func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.Logging(cfg.Logger))
	r.Use(middleware.SecurityHeaders)
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.CORS(cfg.CORSOrigins))

	// Health endpoints (no auth required)
	r.Get("/health", cfg.Health.Health)
	r.Get("/ready", cfg.Health.Ready)

	// Metrics endpoint
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		if cfg.AuthEnabled {
			r.Use(middleware.Auth(cfg.JWTSecret))
		} else {
			r.Use(middleware.TenantFromHeader)
		}
		if cfg.RateLimits.Window > 0 {
			r.Use(middleware.RateLimit(cfg.RateLimits))
		}

		r.Post("/chat", cfg.Chat.Chat)
		r.Get("/stats", cfg.Chat.Stats)

		r.Route("/sessions/{id}", func(r chi.Router) {
			r.Get("/", cfg.Chat.GetSession)
			r.Delete("/", cfg.Chat.DeleteSession)
		})

		r.With(middleware.RequireScope(middleware.ScopeCatalogWrite)).
			Post("/catalog/reload", cfg.Catalog.Reload)

		if cfg.Turns != nil {
			r.Get("/turns", cfg.Turns.List)
		}
	})

	return r
}
