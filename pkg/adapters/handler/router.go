package handler

import (
	"encoding/json"
	"net/http"

	"github.com/wadjakorntonsri/limitlink/pkg/config"
	"github.com/wadjakorntonsri/limitlink/pkg/metrics"
	"github.com/wadjakorntonsri/limitlink/pkg/ports"
	"go.uber.org/zap"
)

// Dependencies are the services the router dispatches to
type Dependencies struct {
	Links   ports.LinkService
	Store   LinkDumper
	Sweeper ports.SweepService
	Metrics *metrics.Metrics
	Logger  *zap.Logger
}

// NewRouter creates and configures the main application router
func NewRouter(cfg *config.Config, deps Dependencies) http.Handler {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	// Initialize Handlers
	h := NewHTTPHandler(deps.Links, cfg.BaseURL, logger)
	ah := NewAdminHandler(deps.Store, deps.Sweeper, logger)

	// Initialize Middleware
	mw := NewMiddleware(cfg, logger, deps.Metrics)

	// Setup Router
	mux := http.NewServeMux()

	// Public Routes
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		res := map[string]string{
			"message": "ok",
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(&res)
	})
	if deps.Metrics != nil {
		mux.Handle("GET /metrics", deps.Metrics.Handler())
	}

	mux.HandleFunc("POST /shorten", h.Create)
	mux.HandleFunc("GET /{code}", h.Redirect)
	mux.HandleFunc("PUT /{code}", h.Update)
	mux.HandleFunc("DELETE /{code}", h.Delete)
	mux.HandleFunc("GET /{code}/events", h.Events)

	// Admin Routes
	adminMux := http.NewServeMux()
	adminMux.HandleFunc("GET /api/v1/admin/links", ah.ListLinks)
	adminMux.HandleFunc("POST /api/v1/admin/sweep", ah.Sweep)

	mux.Handle("/api/v1/admin/", mw.AuthMiddleware(adminMux))

	return mw.Observe(mux)
}
