package rest

import (
	"net/http"

	"kujisan/application/ports"
	"kujisan/infrastructure/config"
	"kujisan/interfaces/http/rest/handlers"
	"kujisan/interfaces/http/rest/middleware"
	pkgerrors "kujisan/pkg/errors"
	"kujisan/pkg/observability"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"
)

// Router creates and configures the HTTP router
type Router struct {
	sessions  handlers.TreeSessions
	fetcher   ports.BranchFetcher
	directory ports.DirectoryReader
	checkers  map[string]ports.HealthChecker
	features  config.FeaturesConfig
	metrics   *observability.Collector
	errors    *pkgerrors.ErrorHandler
	logger    *zap.Logger
}

// NewRouter creates a new router instance
func NewRouter(
	sessions handlers.TreeSessions,
	fetcher ports.BranchFetcher,
	directory ports.DirectoryReader,
	checkers map[string]ports.HealthChecker,
	features config.FeaturesConfig,
	metrics *observability.Collector,
	errHandler *pkgerrors.ErrorHandler,
	logger *zap.Logger,
) *Router {
	if logger == nil {
		logger = zap.NewNop()
	}
	if errHandler == nil {
		errHandler = pkgerrors.NewErrorHandler(logger, false)
	}
	return &Router{
		sessions:  sessions,
		fetcher:   fetcher,
		directory: directory,
		checkers:  checkers,
		features:  features,
		metrics:   metrics,
		errors:    errHandler,
		logger:    logger,
	}
}

// Setup configures all routes and middleware
func (rt *Router) Setup() http.Handler {
	router := chi.NewRouter()

	router.Use(chimiddleware.RequestID)
	router.Use(chimiddleware.RealIP)
	router.Use(chimiddleware.Recoverer)
	router.Use(middleware.Logger(rt.logger))
	if rt.features.EnableMetrics {
		router.Use(middleware.Metrics(rt.metrics))
	}
	router.Use(rt.errors.Middleware)

	if rt.features.EnableCORS {
		origins := rt.features.CORSOrigins
		if len(origins) == 0 {
			origins = []string{"http://localhost:3000"}
		}
		router.Use(cors.Handler(cors.Options{
			AllowedOrigins:   origins,
			AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
			AllowedHeaders:   []string{"Accept", "Content-Type", "X-Request-ID"},
			ExposedHeaders:   []string{"X-Request-ID", "Location"},
			AllowCredentials: false,
			MaxAge:           300,
		}))
	}

	health := handlers.NewHealthHandler(rt.checkers, rt.logger)
	router.Get("/health", health.Health)
	router.Get("/ready", health.Ready)
	if rt.features.EnableMetrics && rt.metrics != nil {
		router.Method(http.MethodGet, "/metrics", rt.metrics.Handler())
	}

	router.Route("/api/v1", func(r chi.Router) {
		r.Route("/tree", func(r chi.Router) {
			treeHandler := handlers.NewTreeHandler(rt.sessions, rt.errors, rt.logger)
			r.Post("/sessions", treeHandler.CreateSession)
			r.Get("/sessions/{sessionID}", treeHandler.GetSession)
			r.Delete("/sessions/{sessionID}", treeHandler.CloseSession)
			r.Post("/sessions/{sessionID}/reload", treeHandler.ReloadSession)
			r.Post("/sessions/{sessionID}/nodes/{personID}/toggle", treeHandler.ToggleNode)

			r.Get("/roots", handlers.NewBranchHandler(rt.fetcher, rt.errors, rt.logger).GetRoots)
		})

		r.Get("/people/{personID}/branch", handlers.NewBranchHandler(rt.fetcher, rt.errors, rt.logger).GetBranch)

		directory := handlers.NewDirectoryHandler(rt.directory, rt.errors, rt.logger)
		r.Get("/people", directory.ListPeople)
		r.Get("/profiles/{slug}", directory.GetProfile)
		r.Get("/families", directory.ListFamilies)
		r.Get("/families/{slug}", directory.GetFamily)
		r.Get("/stats", directory.GetStats)
	})

	router.NotFound(func(w http.ResponseWriter, r *http.Request) {
		rt.errors.Handle(w, r, pkgerrors.NewNotFoundError("route"))
	})

	return router
}
