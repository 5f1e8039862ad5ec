package httpserver

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	appauth "github.com/bryanwahyu/copyguard/internal/application/auth"
	appdashboard "github.com/bryanwahyu/copyguard/internal/application/dashboard"
	appintegrations "github.com/bryanwahyu/copyguard/internal/application/integrations"
	appreviews "github.com/bryanwahyu/copyguard/internal/application/reviews"
	appsettings "github.com/bryanwahyu/copyguard/internal/application/settings"
	"github.com/bryanwahyu/copyguard/internal/application/worker"
	"github.com/bryanwahyu/copyguard/internal/domain/integrations"
	"github.com/bryanwahyu/copyguard/internal/domain/reviews"
	"github.com/bryanwahyu/copyguard/internal/domain/sources"
	"github.com/bryanwahyu/copyguard/internal/domain/users"
	"github.com/bryanwahyu/copyguard/internal/middleware"
)

const maxBodyBytes = 1 << 20

// Deps is everything the HTTP layer calls into.
type Deps struct {
	Auth         *appauth.Service
	Tokens       middleware.TokenParser
	Reviews      *appreviews.Service
	Settings     *appsettings.Service
	Integrations *appintegrations.Service
	Dashboard    *appdashboard.Service

	Metrics     *middleware.Metrics
	Checks      map[string]middleware.HealthChecker
	CORSOrigins []string
	Log         *zap.Logger
}

type Router struct {
	Deps
}

func NewRouter(d Deps) http.Handler {
	if d.Log == nil {
		d.Log = zap.NewNop()
	}
	if d.Metrics == nil {
		d.Metrics = middleware.NewMetrics()
	}
	r := &Router{Deps: d}
	mux := chi.NewRouter()

	mux.Use(chimw.RequestID)
	mux.Use(chimw.RealIP)
	mux.Use(middleware.Logging(d.Log))
	mux.Use(d.Metrics.Middleware)
	mux.Use(cors.Handler(cors.Options{
		AllowedOrigins:   d.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	mux.Get("/health", middleware.HealthHandler(d.Checks))
	mux.Get("/health/ready", middleware.ReadinessHandler)
	mux.Get("/health/live", middleware.LivenessHandler)
	mux.Get("/metrics", d.Metrics.Handler)

	mux.Route("/api", func(api chi.Router) {
		api.Post("/auth/register", r.wrap(r.handleRegister))
		api.Post("/auth/login", r.wrap(r.handleLogin))

		api.Group(func(rt chi.Router) {
			rt.Use(middleware.JWTAuth(d.Tokens, d.Auth))

			rt.Get("/auth/me", r.wrap(r.handleMe))
			rt.Put("/auth/me", r.wrap(r.handleUpdateMe))

			rt.Post("/reviews", r.wrap(r.handleSubmitReview))
			rt.Get("/reviews", r.wrap(r.handleListReviews))
			rt.Get("/reviews/{id}", r.wrap(r.handleGetReview))
			rt.Delete("/reviews/{id}", r.wrap(r.handleDeleteReview))

			rt.Get("/settings/guidelines", r.wrap(r.handleGetGuidelines))

			rt.Get("/integrations/status", r.wrap(r.handleIntegrationStatus))
			rt.Get("/integrations/slack/channels", r.wrap(r.handleSlackChannels))
			rt.Post("/integrations/slack/fetch", r.wrap(r.handleSlackFetch))
			rt.Get("/integrations/notion/databases", r.wrap(r.handleNotionDatabases))
			rt.Post("/integrations/notion/fetch", r.wrap(r.handleNotionFetch))

			rt.Get("/dashboard/stats", r.wrap(r.handleDashboardStats))

			rt.Group(func(adm chi.Router) {
				adm.Use(middleware.RequireAdmin)

				adm.Get("/auth/users", r.wrap(r.handleListUsers))
				adm.Post("/auth/users", r.wrap(r.handleCreateUser))
				adm.Put("/auth/users/{id}", r.wrap(r.handleUpdateUser))
				adm.Delete("/auth/users/{id}", r.wrap(r.handleDeactivateUser))

				adm.Put("/settings/guidelines", r.wrap(r.handleUpdateGuidelines))
				adm.Post("/integrations/slack/config", r.wrap(r.handleSlackConfig))
				adm.Post("/integrations/notion/config", r.wrap(r.handleNotionConfig))
			})
		})
	})

	return mux
}

type handlerFunc func(http.ResponseWriter, *http.Request) error

// errBadRequest marks malformed request input.
var errBadRequest = errors.New("bad request")

func badRequest(format string, args ...any) error {
	return fmt.Errorf("%w: %s", errBadRequest, fmt.Sprintf(format, args...))
}

func (r *Router) wrap(h handlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		err := h(w, req)
		if err == nil {
			return
		}
		status, msg := r.classify(err)
		if status >= http.StatusInternalServerError {
			r.Log.Error("request failed",
				zap.String("path", req.URL.Path),
				zap.String("request_id", chimw.GetReqID(req.Context())),
				zap.Error(err))
		}
		middleware.WriteDetail(w, status, msg)
	}
}

func (r *Router) classify(err error) (int, string) {
	var adapterErr *sources.AdapterError
	switch {
	case errors.Is(err, reviews.ErrNotFound):
		return http.StatusNotFound, "Review not found"
	case errors.Is(err, users.ErrNotFound):
		return http.StatusNotFound, "User not found"
	case errors.Is(err, integrations.ErrNotConfigured):
		return http.StatusNotFound, err.Error()
	case errors.Is(err, reviews.ErrForbidden):
		return http.StatusForbidden, "Access denied"
	case errors.Is(err, users.ErrForbidden):
		return http.StatusForbidden, "Admin access required"
	case errors.Is(err, users.ErrInvalidLogin):
		return http.StatusUnauthorized, "Invalid email or password"
	case errors.Is(err, users.ErrInactive):
		return http.StatusForbidden, "Account is disabled"
	case errors.Is(err, users.ErrSelfDeactivate):
		return http.StatusBadRequest, "Cannot deactivate yourself"
	case errors.Is(err, users.ErrEmailTaken):
		return http.StatusConflict, "Email already registered"
	case errors.Is(err, reviews.ErrNotPending):
		return http.StatusConflict, err.Error()
	case errors.As(err, &adapterErr):
		return http.StatusBadRequest, err.Error()
	case errors.Is(err, errBadRequest),
		errors.Is(err, reviews.ErrInvalidInput),
		errors.Is(err, users.ErrInvalidInput),
		errors.Is(err, integrations.ErrInvalidInput):
		return http.StatusBadRequest, err.Error()
	case errors.Is(err, worker.ErrQueueFull), errors.Is(err, worker.ErrClosed):
		return http.StatusServiceUnavailable, "analysis queue is unavailable, try again later"
	}
	return http.StatusInternalServerError, "internal server error"
}

// decode reads a JSON body into dst, rejecting unknown shapes.
func decode(req *http.Request, dst any) error {
	dec := json.NewDecoder(io.LimitReader(req.Body, maxBodyBytes))
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return badRequest("request body is empty")
		}
		return badRequest("invalid JSON body: %v", err)
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, v any) error {
	middleware.WriteJSON(w, status, v)
	return nil
}

func currentUser(req *http.Request) *users.User {
	return middleware.UserFromContext(req.Context())
}

// Server wraps http.Server with the timeouts used in production.
func Server(addr string, h http.Handler) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           h,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
}
