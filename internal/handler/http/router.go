package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/Shahil0511/OakMirror/internal/domain"
	"github.com/Shahil0511/OakMirror/internal/service"
	"github.com/Shahil0511/OakMirror/pkg/health"
	"github.com/Shahil0511/OakMirror/pkg/middleware"
)

// RouterConfig carries everything NewRouter needs.
type RouterConfig struct {
	AuthService   *service.AuthService
	PostService   *service.PostService
	Health        *health.Handler
	Logger        *slog.Logger
	CORS          middleware.CORSConfig
	GlobalLimit   middleware.RateLimitConfig
	RegisterLimit middleware.RateLimitConfig
	LoginLimit    middleware.RateLimitConfig
	// PprofAllowedCIDRs mounts /debug/pprof when non-empty.
	PprofAllowedCIDRs []string
}

// NewRouter creates a chi router with all OakMirror routes registered.
func NewRouter(cfg RouterConfig) http.Handler {
	logger := cfg.Logger
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.Recovery(logger))
	r.Use(middleware.SecurityHeaders)
	r.Use(middleware.CORS(cfg.CORS))
	r.Use(middleware.RequestLogging(logger))
	r.Use(middleware.Tracing)
	r.Use(middleware.RequestLogger(logger))
	r.Use(middleware.PrometheusMetrics)

	// Health check endpoints
	r.Get("/health/live", cfg.Health.LivenessHandler())
	r.Get("/health/ready", cfg.Health.ReadinessHandler())
	r.Get("/health", cfg.Health.ReadinessHandler())
	r.Handle("/metrics", promhttp.Handler())

	if len(cfg.PprofAllowedCIDRs) > 0 {
		middleware.RegisterPprof(r, cfg.PprofAllowedCIDRs, logger)
	}

	authenticate := middleware.Authenticate(cfg.AuthService.ValidateAccessToken, cfg.AuthService.ResolveIdentity)
	authHandler := NewAuthHandler(cfg.AuthService, logger)
	userHandler := NewUserHandler(cfg.AuthService, logger)
	postHandler := NewPostHandler(cfg.PostService, logger)

	r.Route("/api", func(r chi.Router) {
		r.Use(middleware.RateLimit(cfg.GlobalLimit, logger))

		// Auth endpoints (public)
		r.Route("/auth", func(r chi.Router) {
			r.Use(middleware.NoStore)
			r.Use(ContentTypeJSON)

			r.With(middleware.RateLimit(cfg.RegisterLimit, logger)).Post("/register", authHandler.Register)
			r.With(middleware.RateLimit(cfg.LoginLimit, logger)).Post("/login", authHandler.Login)
			r.Post("/refresh-token", authHandler.RefreshToken)
			r.Post("/logout", authHandler.Logout)
		})

		// The gate runs before body checks so anonymous callers always see 401.
		r.Route("/users", func(r chi.Router) {
			r.Use(authenticate)
			r.Use(ContentTypeJSON)

			r.Get("/me", userHandler.Me)
			r.With(middleware.RequireRole(domain.RoleAdmin)).Get("/", userHandler.List)
		})

		r.Route("/posts", func(r chi.Router) {
			r.Use(authenticate)
			r.Use(ContentTypeJSON)

			r.Post("/", postHandler.Create)
			r.Get("/", postHandler.List)
			r.Get("/{id}", postHandler.Get)
			r.Put("/{id}", postHandler.Update)
			r.Delete("/{id}", postHandler.Delete)
		})
	})

	return r
}
