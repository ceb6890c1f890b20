// internal/app/bootstrap/config.go
package bootstrap

import (
	"fmt"
	"time"

	"github.com/dalemusser/cohorthub/internal/app/sync/reconcile"
	"github.com/dalemusser/cohorthub/internal/app/system/limits"
	"github.com/dalemusser/waffle/config"
	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"go.uber.org/zap"
)

// appConfigKeys defines the configuration keys for CohortHub.
// These are loaded via WAFFLE's config system with support for:
//   - Config files: mongo_uri, sync_workers, etc.
//   - Environment variables: COHORTHUB_MONGO_URI, COHORTHUB_SYNC_WORKERS, etc.
//   - Command-line flags: --mongo_uri, --sync_workers, etc.
var appConfigKeys = []config.AppKey{
	{Name: "mongo_uri", Default: "mongodb://localhost:27017", Desc: "MongoDB connection URI"},
	{Name: "mongo_database", Default: "cohort_hub", Desc: "MongoDB database name"},
	{Name: "mongo_max_pool_size", Default: 100, Desc: "MongoDB max connection pool size"},
	{Name: "mongo_min_pool_size", Default: 10, Desc: "MongoDB min connection pool size"},

	// Fan-out worker pool
	{Name: "sync_workers", Default: 4, Desc: "Concurrent sync queue workers"},
	{Name: "sync_poll", Default: "2s", Desc: "Idle sleep between empty queue claims (e.g., 2s, 500ms)"},

	// Sync task retry/dispatch policy
	{Name: "sync_max_attempts", Default: 8, Desc: "Deliveries before a sync task is marked failed"},
	{Name: "sync_backoff", Default: "5s", Desc: "Base retry backoff; doubles per attempt"},
	{Name: "sync_deadline", Default: "30m", Desc: "Dispatch window for a sync task from enqueue"},

	{Name: "org_chunk_size", Default: limits.OrgChunkSize, Desc: "Org references per fan-out sync task"},

	// Reconciliation policy
	{Name: "delete_policy", Default: "delete", Desc: "Assignments of ineligible users: 'delete' or 'archive'"},
	{Name: "restrict_to_open", Default: true, Desc: "Only reconcile enrollment changes against open administrations"},
}

// LoadConfig loads WAFFLE core config and app-specific config.
//
// WAFFLE's config.LoadWithAppConfig handles:
//   - Loading from .env files
//   - Loading from config.yaml/json/toml files
//   - Reading environment variables (WAFFLE_* for core, COHORTHUB_* for app)
//   - Parsing command-line flags
//   - Merging with precedence: flags > env > files > defaults
func LoadConfig(logger *zap.Logger) (*config.CoreConfig, AppConfig, error) {
	coreCfg, appValues, err := config.LoadWithAppConfig(logger, "COHORTHUB", appConfigKeys)
	if err != nil {
		return nil, AppConfig{}, err
	}

	appCfg := AppConfig{
		MongoURI:         appValues.String("mongo_uri"),
		MongoDatabase:    appValues.String("mongo_database"),
		MongoMaxPoolSize: uint64(appValues.Int("mongo_max_pool_size")),
		MongoMinPoolSize: uint64(appValues.Int("mongo_min_pool_size")),

		SyncWorkers: appValues.Int("sync_workers"),
		SyncPoll:    appValues.Duration("sync_poll", 2*time.Second),

		SyncMaxAttempts: appValues.Int("sync_max_attempts"),
		SyncBackoff:     appValues.Duration("sync_backoff", 5*time.Second),
		SyncDeadline:    appValues.Duration("sync_deadline", 30*time.Minute),

		OrgChunkSize: appValues.Int("org_chunk_size"),

		DeletePolicy:   appValues.String("delete_policy"),
		RestrictToOpen: appValues.Bool("restrict_to_open"),
	}

	return coreCfg, appCfg, nil
}

// ValidateConfig performs app-specific config validation.
//
// CohortHub validates the MongoDB URI format and the reconciliation policy
// early, before attempting to connect or start workers.
func ValidateConfig(coreCfg *config.CoreConfig, appCfg AppConfig, logger *zap.Logger) error {
	if err := wafflemongo.ValidateURI(appCfg.MongoURI); err != nil {
		logger.Error("invalid MongoDB URI", zap.Error(err))
		return fmt.Errorf("invalid MongoDB URI: %w", err)
	}
	if !reconcile.ValidPolicy(reconcile.Policy(appCfg.DeletePolicy)) {
		return fmt.Errorf("delete_policy must be 'delete' or 'archive', got %q", appCfg.DeletePolicy)
	}
	if appCfg.SyncWorkers < 1 {
		return fmt.Errorf("sync_workers must be at least 1, got %d", appCfg.SyncWorkers)
	}
	if appCfg.OrgChunkSize < 1 {
		return fmt.Errorf("org_chunk_size must be at least 1, got %d", appCfg.OrgChunkSize)
	}
	return nil
}
