package threadforge

import (
	"log/slog"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	httpSwagger "github.com/swaggo/http-swagger"
	"golang.org/x/time/rate"

	"github.com/magabrotheeeer/thread-forge/internal/config"
	"github.com/magabrotheeeer/thread-forge/internal/http/handlers/auth/login"
	"github.com/magabrotheeeer/thread-forge/internal/http/handlers/auth/register"
	"github.com/magabrotheeeer/thread-forge/internal/http/handlers/entitlementwebhook"
	"github.com/magabrotheeeer/thread-forge/internal/http/handlers/health"
	"github.com/magabrotheeeer/thread-forge/internal/http/handlers/thread/generate"
	"github.com/magabrotheeeer/thread-forge/internal/http/handlers/thread/list"
	"github.com/magabrotheeeer/thread-forge/internal/http/handlers/usage/read"
	"github.com/magabrotheeeer/thread-forge/internal/http/middlewarectx"
	authservice "github.com/magabrotheeeer/thread-forge/internal/services/auth"
	entservice "github.com/magabrotheeeer/thread-forge/internal/services/entitlement"
	genservice "github.com/magabrotheeeer/thread-forge/internal/services/generation"
	quotaservice "github.com/magabrotheeeer/thread-forge/internal/services/quota"
)

// RegisterRoutes регистрирует все маршруты приложения.
func RegisterRoutes(r chi.Router, logger *slog.Logger, cfg *config.Config,
	authService *authservice.AuthService,
	generationService *genservice.GenerationService,
	quotaService *quotaservice.QuotaService,
	entitlementService *entservice.EntitlementService,
) {
	// Глобальные middleware
	r.Use(
		middleware.RequestID,
		middleware.Logger,
		middleware.Recoverer,
		middleware.URLFormat,
	)

	limiter := rate.NewLimiter(rate.Limit(10), 20)

	r.Route("/api/v1", func(r chi.Router) {
		// Открытые конечные точки
		r.Post("/register", register.New(logger, authService).ServeHTTP)
		r.Post("/login", login.New(logger, authService).ServeHTTP)
		r.Get("/health", health.New(logger).ServeHTTP)

		// Группа с JWT аутентификацией
		r.Group(func(r chi.Router) {
			r.Use(middlewarectx.JWTMiddleware(authService, logger))
			r.Use(middlewarectx.RateLimitMiddleware(logger, limiter))
			r.Post("/threads", generate.New(logger, generationService).ServeHTTP)
			r.Get("/threads/list", list.New(logger, generationService).ServeHTTP)
			r.Get("/usage", read.New(logger, quotaService).ServeHTTP)
		})

		// Webhook endpoint (без аутентификации)
		r.Post("/entitlements/webhook",
			entitlementwebhook.New(logger, entitlementService, cfg.WebhookSecret).ServeHTTP)
	})

	r.Handle("/metrics", promhttp.Handler())
	// Swagger docs endpoint
	r.Get("/docs/*", httpSwagger.WrapHandler)
}
