// internal/app/bootstrap/shutdown.go
package bootstrap

import (
	"context"

	"github.com/dalemusser/waffle/config"
	"go.uber.org/zap"
)

// Shutdown stops the watchers and worker pool, then disconnects MongoDB.
// Watchers go first so no new work arrives while in-flight tasks drain.
func Shutdown(ctx context.Context, coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) error {
	if running != nil {
		running.adminWatcher.Stop()
		running.userWatcher.Stop()
		running.assignmentWatcher.Stop()
		running.runWatcher.Stop()
		running.workers.Stop()
		running = nil
	}

	if deps.CohortHubMongoClient != nil {
		logger.Info("disconnecting CohortHub MongoDB client")
		if err := deps.CohortHubMongoClient.Disconnect(ctx); err != nil {
			logger.Error("MongoDB disconnect failed", zap.Error(err))
			return err
		}
	}
	return nil
}
