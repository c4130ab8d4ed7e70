// Package server assembles the HTTP surface of the service.
package server

import (
	"context"
	"net/http"
	"time"

	"github.com/18061718791/AITestCraft-sub000/internal/catalog"
	"github.com/18061718791/AITestCraft-sub000/internal/export"
	"github.com/18061718791/AITestCraft-sub000/internal/generation"
	"github.com/18061718791/AITestCraft-sub000/internal/httpx"
	"github.com/18061718791/AITestCraft-sub000/internal/ingestion"
	"github.com/18061718791/AITestCraft-sub000/internal/metrics"
	"github.com/18061718791/AITestCraft-sub000/internal/middleware"
	"github.com/18061718791/AITestCraft-sub000/internal/notify"
	"github.com/18061718791/AITestCraft-sub000/internal/repository"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/cors"
	"github.com/sirupsen/logrus"
)

// Deps are the services exposed over HTTP. Generation and Hub are optional.
type Deps struct {
	Logger      logrus.FieldLogger
	Store       repository.Store
	Catalog     *catalog.Service
	Ingestion   *ingestion.Service
	Export      *export.Service
	Generation  *generation.Service
	Hub         *notify.Hub
	Metrics     *metrics.Registry
	CORSOrigins []string
	// Health reports backend readiness for /healthz; nil means always ready.
	Health func(context.Context) error
}

// NewRouter wires every handler behind CORS, request logging and panic
// recovery.
func NewRouter(deps Deps) http.Handler {
	var httpMetrics *metrics.HTTP
	if deps.Metrics != nil {
		httpMetrics = deps.Metrics.HTTP
	}

	r := chi.NewRouter()
	r.Use(chimw.Recoverer)
	r.Use(middleware.Logging(deps.Logger, httpMetrics))

	r.Get("/healthz", healthHandler(deps.Health))
	if deps.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", deps.Metrics.Handler())
	}
	if deps.Hub != nil {
		deps.Hub.Register(r)
	}

	r.Group(func(r chi.Router) {
		r.Use(middleware.HierarchyLoaders(deps.Store))
		catalog.NewHTTPHandler(deps.Catalog).Register(r)
		export.NewHTTPHandler(deps.Export).Register(r)
	})
	ingestion.NewHTTPHandler(deps.Ingestion).Register(r)
	if deps.Generation != nil {
		generation.NewHTTPHandler(deps.Generation).Register(r)
	}

	corsHandler := cors.New(cors.Options{
		AllowedOrigins:   deps.CORSOrigins,
		AllowCredentials: true,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"*"},
		ExposedHeaders:   []string{"Content-Disposition"},
	})
	return corsHandler.Handler(r)
}

func healthHandler(check func(context.Context) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if check != nil {
			ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
			defer cancel()
			if err := check(ctx); err != nil {
				httpx.WriteError(w, http.StatusServiceUnavailable, err)
				return
			}
		}
		httpx.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}
