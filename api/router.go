package api

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/igorsal/commit-bridge/api/handlers"
	"github.com/igorsal/commit-bridge/api/middleware"
	"github.com/igorsal/commit-bridge/internal/interfaces"
	"github.com/igorsal/commit-bridge/internal/models"
)

// RouterDeps holds everything the HTTP surface needs
type RouterDeps struct {
	Dispatcher     interfaces.WebhookDispatcher
	Mappings       interfaces.StatusMappingSource
	Limiter        middleware.Limiter // nil disables rate limiting
	AdminToken     string             // empty leaves the admin routes unregistered
	MetricsHandler http.Handler
	Logger         interfaces.Logger
	Metrics        interfaces.MetricsCollector
}

// NewRouter registers every route and the global middleware chain
func NewRouter(deps RouterDeps) *mux.Router {
	healthHandler := handlers.NewHealthHandler(deps.Mappings, deps.Logger, deps.Metrics)
	githubHandler := handlers.NewWebhookHandler(models.ProviderGitHub, deps.Dispatcher, deps.Logger, deps.Metrics)
	gitlabHandler := handlers.NewWebhookHandler(models.ProviderGitLab, deps.Dispatcher, deps.Logger, deps.Metrics)

	router := mux.NewRouter()

	// Apply global middleware in order
	router.Use(middleware.PanicRecoveryMiddleware(deps.Logger))
	router.Use(middleware.MetricsMiddleware(deps.Metrics))
	router.Use(middleware.LoggingMiddleware(deps.Logger))

	// Public endpoints
	router.HandleFunc("/health", healthHandler.Handle).Methods("GET")
	if deps.MetricsHandler != nil {
		router.Handle("/metrics", deps.MetricsHandler).Methods("GET")
	}

	// Webhooks authenticate themselves inside the dispatcher
	router.Handle("/github-webhook", limited(deps, models.ProviderGitHub, githubHandler.Handle)).Methods("POST")
	router.Handle("/gitlab-webhook", limited(deps, models.ProviderGitLab, gitlabHandler.Handle)).Methods("POST")

	if deps.AdminToken != "" {
		reloadHandler := handlers.NewStatusMappingReloadHandler(deps.Mappings, deps.Logger)

		adminRouter := router.PathPrefix("/admin").Subrouter()
		adminRouter.Use(middleware.AdminTokenAuth(deps.AdminToken, deps.Logger))
		adminRouter.HandleFunc("/status-mapping/reload", reloadHandler.Handle).Methods("POST")
	}

	return router
}

func limited(deps RouterDeps, provider models.Provider, h http.HandlerFunc) http.Handler {
	if deps.Limiter == nil {
		return h
	}
	return middleware.RateLimitMiddleware(deps.Limiter, string(provider), deps.Logger)(h)
}
