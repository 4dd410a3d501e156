package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/stokku/stokku/internal/catalog"
	"github.com/stokku/stokku/internal/dashboard"
	"github.com/stokku/stokku/internal/movement"
	"github.com/stokku/stokku/internal/scan"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger           *slog.Logger
	Config           *Config
	ScanHandler      *scan.Handler
	CatalogHandler   *catalog.Handler
	MovementHandler  *movement.Handler
	DashboardHandler *dashboard.Handler
}

// NewRouter constructs the chi.Router with the service defaults.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger: params.Logger,
		Config: params.Config,
	}) {
		r.Use(mw)
	}

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	r.Route("/webhooks/scan", params.ScanHandler.MountRoutes)
	if params.CatalogHandler != nil {
		r.Route("/products", params.CatalogHandler.MountRoutes)
	}
	if params.MovementHandler != nil {
		r.Route("/movements", params.MovementHandler.MountRoutes)
	}
	if params.DashboardHandler != nil {
		r.Route("/dashboard", params.DashboardHandler.MountRoutes)
	}

	return r
}
