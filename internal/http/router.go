package http

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	httpSwagger "github.com/swaggo/http-swagger"

	"github.com/redmonkez12/eventflow/internal/auth"
	"github.com/redmonkez12/eventflow/internal/config"
	"github.com/redmonkez12/eventflow/internal/engagement"
	"github.com/redmonkez12/eventflow/internal/event"
	"github.com/redmonkez12/eventflow/internal/httputil"
	"github.com/redmonkez12/eventflow/internal/logging"
	"github.com/redmonkez12/eventflow/internal/registration"
	"github.com/redmonkez12/eventflow/internal/user"
)

// Handlers groups the HTTP handlers the router mounts.
type Handlers struct {
	Auth         *auth.Handler
	Events       *event.Handler
	Registration *registration.Handler
	Engagement   *engagement.Handler
}

// HealthCheck reports whether a dependency is reachable.
type HealthCheck func(ctx context.Context) error

// NewRouter creates and configures the HTTP router
func NewRouter(cfg *config.Config, h Handlers, authMiddleware *auth.Middleware, checks map[string]HealthCheck, logger *logging.Logger) *chi.Mux {
	r := chi.NewRouter()

	// CORS - must be first
	if len(cfg.Server.TrustedOrigins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: cfg.Server.TrustedOrigins,
			AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
			AllowedHeaders: []string{"Accept", "Authorization", "Content-Type"},
			ExposedHeaders: []string{"Content-Length"},
			MaxAge:         300, // 5 minutes
		}))
	}

	r.Use(SecurityHeaders(cfg.Server.IsDevelopment()))
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(logging.RequestLogger(logger))
	r.Use(middleware.Compress(5))

	r.Get("/health", handleHealth(checks))

	// Swagger UI - only in development
	if cfg.Server.IsDevelopment() {
		logger.Info("Swagger UI enabled at /swagger/*")
		r.Get("/swagger/*", httpSwagger.WrapHandler)
	}

	r.Route("/auth", func(r chi.Router) {
		r.Post("/register", h.Auth.Register)
		r.Post("/login", h.Auth.Login)
		r.Get("/verify-email", h.Auth.VerifyEmail)
		r.Post("/forgot-password", h.Auth.ForgotPassword)
		r.Post("/reset-password", h.Auth.ResetPassword)
		r.Post("/resend-verification", h.Auth.ResendVerificationEmail)

		r.Group(func(r chi.Router) {
			r.Use(authMiddleware.RequireAuth)
			r.Post("/logout", h.Auth.Logout)
			r.Get("/me", h.Auth.Me)
			r.Post("/change-password", h.Auth.ChangePassword)
		})
	})

	r.Route("/events", func(r chi.Router) {
		r.Use(authMiddleware.RequireAuth)

		r.Get("/", h.Events.List)
		r.With(auth.RequireRole(user.RoleOrganizer)).Post("/", h.Events.Create)

		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", h.Events.Get)
			r.Put("/", h.Events.Update)
			r.Delete("/", h.Events.Delete)

			r.Post("/registrations", h.Registration.Register)
			r.Delete("/registrations", h.Registration.Unregister)
			r.Get("/registrations", h.Registration.List)
			r.Post("/registrations/{userID}/confirm", h.Registration.Confirm)
			r.Post("/feedback", h.Registration.Feedback)

			r.Get("/engagement", h.Engagement.Get)
			r.Post("/engagement/recompute", h.Engagement.Recompute)
		})
	})

	return r
}

type healthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

// handleHealth runs the dependency checks
// @Summary      Health check
// @Description  Reports the API and its dependencies
// @Tags         health
// @Produce      json
// @Success      200 {object} healthResponse
// @Failure      503 {object} healthResponse
// @Router       /health [get]
func handleHealth(checks map[string]HealthCheck) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		resp := healthResponse{Status: "ok", Checks: make(map[string]string, len(checks))}
		status := http.StatusOK
		for name, check := range checks {
			if err := check(ctx); err != nil {
				logging.GetLoggerFromContext(r.Context()).Warn("health check failed", "check", name, "error", err)
				resp.Checks[name] = "unavailable"
				resp.Status = "degraded"
				status = http.StatusServiceUnavailable
				continue
			}
			resp.Checks[name] = "ok"
		}

		httputil.RespondJSON(w, resp, status)
	}
}
