// internal/app/bootstrap/routes.go
package bootstrap

import (
	"net/http"
	"time"

	administrationsfeature "github.com/dalemusser/cohorthub/internal/app/features/administrations"
	healthfeature "github.com/dalemusser/cohorthub/internal/app/features/health"
	statsfeature "github.com/dalemusser/cohorthub/internal/app/features/stats"
	"github.com/dalemusser/cohorthub/internal/app/system/metrics"
	"github.com/dalemusser/cohorthub/internal/app/system/ratelimit"
	"github.com/dalemusser/waffle/config"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
)

// BuildHandler constructs the root HTTP handler (router) for this WAFFLE app.
//
// WAFFLE calls this after configuration, DB connections, schema setup, and
// any Startup hooks have completed. The HTTP surface is intentionally small:
// administration CRUD, completion stats, health, and Prometheus metrics.
// Assignment fan-out is not triggered over HTTP; it rides the change streams
// started by the Startup hook.
func BuildHandler(coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) (http.Handler, error) {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	// Health check endpoint for load balancers and orchestrators
	healthHandler := healthfeature.NewHandler(deps.CohortHubMongoClient, logger)
	r.Mount("/health", healthfeature.Routes(healthHandler))

	r.Handle("/metrics", metrics.Handler())

	// Mutation endpoints get a per-IP write limit; reads pass through.
	writeLimit := ratelimit.Middleware(ratelimit.New(60, time.Minute))

	adminHandler := administrationsfeature.NewHandler(deps.CohortHubMongoDatabase, logger)
	r.With(writeLimit).Mount("/administrations", administrationsfeature.Routes(adminHandler))

	statsHandler := statsfeature.NewHandler(deps.CohortHubMongoDatabase, logger)
	r.Mount("/administrations/{administrationID}/stats", statsfeature.Routes(statsHandler))

	return r, nil
}
