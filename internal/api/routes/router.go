package routes

import (
	"net/http"

	"github.com/searchiq/storefront/internal/api/handlers"
	"github.com/searchiq/storefront/internal/api/middleware"
	"github.com/searchiq/storefront/internal/application/services"
	"github.com/searchiq/storefront/internal/infrastructure/observability"
	"github.com/searchiq/storefront/internal/presentation"
	"github.com/searchiq/storefront/pkg/config"
)

// Router holds all route handlers
type Router struct {
	mux *http.ServeMux

	healthHandler       *handlers.HealthHandler
	authHandler         *handlers.AuthHandler
	pageHandler         *handlers.PageHandler
	searchHandler       *handlers.SearchHandler
	sparePartsHandler   *handlers.SparePartsHandler
	analysisHandler     *handlers.AnalysisHandler
	notificationHandler *handlers.NotificationHandler

	auth    *services.AuthSessionService
	server  config.ServerConfig
	session config.SessionConfig
	metrics *observability.Metrics
}

// Handlers groups the handlers mounted by the router.
type Handlers struct {
	Health       *handlers.HealthHandler
	Auth         *handlers.AuthHandler
	Page         *handlers.PageHandler
	Search       *handlers.SearchHandler
	SpareParts   *handlers.SparePartsHandler
	Analysis     *handlers.AnalysisHandler
	Notification *handlers.NotificationHandler
}

// NewRouter creates a new router
func NewRouter(h Handlers, auth *services.AuthSessionService, cfg *config.Config, metrics *observability.Metrics) *Router {
	return &Router{
		mux: http.NewServeMux(),

		healthHandler:       h.Health,
		authHandler:         h.Auth,
		pageHandler:         h.Page,
		searchHandler:       h.Search,
		sparePartsHandler:   h.SpareParts,
		analysisHandler:     h.Analysis,
		notificationHandler: h.Notification,

		auth:    auth,
		server:  cfg.Server,
		session: cfg.Session,
		metrics: metrics,
	}
}

// SetupRoutes configures all application routes
func (r *Router) SetupRoutes() http.Handler {
	protect := middleware.RequireAuth(r.auth, r.session.RememberMeTTL())
	authed := func(fn http.HandlerFunc) http.Handler {
		return protect(fn)
	}

	r.mux.HandleFunc("GET /health", r.healthHandler.Health)
	r.mux.Handle("GET /static/", http.StripPrefix("/static/", http.FileServerFS(presentation.StaticFS())))

	// Authentication
	r.mux.HandleFunc("GET /login", r.authHandler.LoginPage)
	r.mux.HandleFunc("POST /login", r.authHandler.Login)
	r.mux.HandleFunc("GET /signup", r.authHandler.SignupPage)
	r.mux.HandleFunc("POST /signup", r.authHandler.Signup)
	r.mux.HandleFunc("POST /logout", r.authHandler.Logout)

	// Pages
	r.mux.Handle("GET /{$}", authed(r.pageHandler.Home))
	r.mux.Handle("POST /ui/tab", authed(r.pageHandler.SelectTab))

	// Product search
	r.mux.Handle("POST /ui/search", authed(r.searchHandler.Search))
	r.mux.Handle("GET /ui/history", authed(r.searchHandler.History))
	r.mux.Handle("DELETE /ui/history", authed(r.searchHandler.ClearHistory))
	r.mux.Handle("GET /ui/analytics/zero-result-queries", authed(r.searchHandler.GetZeroResultQueries))

	// Spare parts and assistant
	r.mux.Handle("POST /ui/spare-parts", authed(r.sparePartsHandler.Recommend))
	r.mux.Handle("GET /ui/spare-parts/models/{brand}", authed(r.sparePartsHandler.DeviceModels))
	r.mux.Handle("POST /ui/recommendations", authed(r.sparePartsHandler.Recommendations))
	r.mux.Handle("POST /ui/analysis/draft", authed(r.analysisHandler.Draft))
	r.mux.Handle("GET /ui/analysis/stream", authed(r.analysisHandler.Stream))

	// Notifications are drained on the login page too.
	r.mux.HandleFunc("GET /ui/notifications", r.notificationHandler.Drain)

	// Apply middleware in reverse order (last middleware wraps first)
	var handler http.Handler = r.mux
	handler = middleware.LoggingMiddleware(handler)
	handler = middleware.Session(r.session)(handler)
	handler = middleware.ObservabilityMiddleware(r.metrics)(handler)
	handler = middleware.ResponseOptimization(handler)
	handler = middleware.CORSMiddleware(r.server.AllowedOrigins)(handler)

	return handler
}
