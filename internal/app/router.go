package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	accesshttp "github.com/vigil-ops/vigil/internal/access/http"
	audithttp "github.com/vigil-ops/vigil/internal/audit/http"
	"github.com/vigil-ops/vigil/internal/catalog"
	"github.com/vigil-ops/vigil/internal/directory"
	"github.com/vigil-ops/vigil/internal/observability"
	"github.com/vigil-ops/vigil/jobs"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger           *slog.Logger
	Config           *Config
	AccessHandler    *accesshttp.Handler
	CatalogHandler   *catalog.Handler
	DirectoryHandler *directory.Handler
	AuditHandler     *audithttp.Handler
	JobHandler       *jobs.Handler
	Metrics          *observability.Metrics
}

// NewRouter constructs the chi.Router with Vigil defaults.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger:  params.Logger,
		Config:  params.Config,
		Metrics: params.Metrics,
	}) {
		r.Use(mw)
	}

	r.Use(chimw.Logger)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	r.Route("/api", func(r chi.Router) {
		r.Route("/access", func(r chi.Router) {
			if params.AccessHandler != nil {
				params.AccessHandler.MountRoutes(r)
			}
			if params.CatalogHandler != nil {
				params.CatalogHandler.MountRoutes(r)
			}
		})
		if params.DirectoryHandler != nil {
			r.Route("/directory", params.DirectoryHandler.MountRoutes)
		}
		if params.AuditHandler != nil {
			r.Route("/audit", params.AuditHandler.MountRoutes)
		}
		if params.JobHandler != nil {
			r.Route("/jobs", params.JobHandler.MountRoutes)
		}
	})

	if params.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", params.Metrics.Handler())
	}

	return r
}
