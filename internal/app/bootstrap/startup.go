// internal/app/bootstrap/startup.go
package bootstrap

import (
	"context"

	adminstore "github.com/dalemusser/cohorthub/internal/app/store/administrations"
	assignmentstore "github.com/dalemusser/cohorthub/internal/app/store/assignments"
	orgstore "github.com/dalemusser/cohorthub/internal/app/store/orgs"
	runstore "github.com/dalemusser/cohorthub/internal/app/store/runs"
	statsstore "github.com/dalemusser/cohorthub/internal/app/store/stats"
	userstore "github.com/dalemusser/cohorthub/internal/app/store/users"
	"github.com/dalemusser/cohorthub/internal/app/sync/bestrun"
	"github.com/dalemusser/cohorthub/internal/app/sync/engine"
	"github.com/dalemusser/cohorthub/internal/app/sync/orggraph"
	"github.com/dalemusser/cohorthub/internal/app/sync/reconcile"
	syncstats "github.com/dalemusser/cohorthub/internal/app/sync/stats"
	"github.com/dalemusser/cohorthub/internal/app/system/changes"
	"github.com/dalemusser/cohorthub/internal/app/system/metrics"
	"github.com/dalemusser/cohorthub/internal/app/system/queue"
	"github.com/dalemusser/cohorthub/internal/domain/models"
	"github.com/dalemusser/waffle/config"
	"go.uber.org/zap"
)

// services is the running sync machinery, kept for Shutdown.
type services struct {
	adminWatcher      *changes.Watcher[models.Administration]
	userWatcher       *changes.Watcher[models.User]
	assignmentWatcher *changes.Watcher[models.Assignment]
	runWatcher        *changes.Watcher[models.Run]
	workers           *queue.Workers
}

var running *services

// Startup builds and starts the sync engine: change-stream watchers on the
// four trigger collections and the fan-out worker pool. It runs after DB
// connections and schema setup, before the HTTP handler is built.
func Startup(ctx context.Context, coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) error {
	metrics.Init()

	db := deps.CohortHubMongoDatabase
	admins := adminstore.New(db)
	users := userstore.New(db)
	assignments := assignmentstore.New(db)
	runs := runstore.New(db)
	stats := statsstore.New(db)
	resolver := orggraph.New(orgstore.New(db))
	rec := reconcile.New(reconcile.Policy(appCfg.DeletePolicy))

	retry := queue.RetryPolicy{
		MaxAttempts: appCfg.SyncMaxAttempts,
		BaseBackoff: appCfg.SyncBackoff,
		MaxBackoff:  queue.DefaultRetryPolicy.MaxBackoff,
		Deadline:    appCfg.SyncDeadline,
	}
	q := queue.New(db, logger)

	eng := engine.New(deps.CohortHubMongoClient, admins, users, assignments, resolver, q, rec,
		engine.Options{
			RestrictToOpen: appCfg.RestrictToOpen,
			ChunkSize:      appCfg.OrgChunkSize,
			Retry:          retry,
		}, logger)
	aggregator := syncstats.New(stats, logger)
	selector := bestrun.New(runs, assignments, logger)

	running = &services{
		adminWatcher: changes.NewWatcher(db.Collection("administrations"),
			eng.HandleAdministrationWrite, logger),
		userWatcher: changes.NewWatcher(db.Collection("users"),
			eng.HandleUserWrite, logger),
		assignmentWatcher: changes.NewWatcher(db.Collection("assignments"),
			aggregator.HandleAssignmentWrite, logger),
		runWatcher: changes.NewWatcher(db.Collection("runs"),
			selector.HandleRunWrite, logger),
		workers: queue.NewWorkers(q, eng.ProcessTask, retry,
			appCfg.SyncWorkers, appCfg.SyncPoll, logger),
	}

	running.workers.Start()
	running.adminWatcher.Start()
	running.userWatcher.Start()
	running.assignmentWatcher.Start()
	running.runWatcher.Start()

	logger.Info("sync engine started",
		zap.Int("workers", appCfg.SyncWorkers),
		zap.String("delete_policy", appCfg.DeletePolicy),
		zap.Bool("restrict_to_open", appCfg.RestrictToOpen))
	return nil
}
