package api

import (
	"log/slog"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/mcoot/treason-stats/internal/api/handler"
	"github.com/mcoot/treason-stats/internal/api/middleware"
	"github.com/mcoot/treason-stats/internal/services/identity"
	"github.com/mcoot/treason-stats/internal/services/ranking"
	"github.com/mcoot/treason-stats/internal/services/readiness"
	"github.com/mcoot/treason-stats/internal/services/recorder"
)

// RouterConfig holds configuration for the API router
type RouterConfig struct {
	Logger          *slog.Logger
	Gate            *readiness.Gate
	StorageType     string
	IdentityService *identity.Service
	RecorderService *recorder.Service
	RankingService  *ranking.Service
}

// NewRouter creates a new API router with all routes configured
func NewRouter(cfg RouterConfig) http.Handler {
	r := mux.NewRouter()
	r.NotFoundHandler = middleware.NotFound()
	r.MethodNotAllowedHandler = middleware.MethodNotAllowed()

	// Create handlers
	playerHandler := handler.NewPlayerHandler(cfg.IdentityService, cfg.RankingService)
	gameHandler := handler.NewGameHandler(cfg.RecorderService, cfg.RankingService)
	healthHandler := handler.NewHealthHandler(cfg.Gate, cfg.StorageType)

	// API subrouter with common middleware. Logging wraps recovery so that
	// recovered panics are logged with their final status.
	api := r.PathPrefix("/api/v1").Subrouter()
	api.Use(middleware.Logging(cfg.Logger))
	api.Use(middleware.Recovery(cfg.Logger))

	// Player routes
	api.HandleFunc("/players/register", playerHandler.Register).Methods(http.MethodPost)
	api.HandleFunc("/players", playerHandler.List).Methods(http.MethodGet)
	api.HandleFunc("/players/{id}/wins", playerHandler.Wins).Methods(http.MethodGet)

	// Game routes
	api.HandleFunc("/games", gameHandler.Record).Methods(http.MethodPost)
	api.HandleFunc("/games", gameHandler.List).Methods(http.MethodGet)
	api.HandleFunc("/rankings", gameHandler.Rankings).Methods(http.MethodGet)

	// Health check endpoint
	api.HandleFunc("/health", healthHandler.Get).Methods(http.MethodGet)

	return r
}
