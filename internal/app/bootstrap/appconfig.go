// internal/app/bootstrap/appconfig.go
package bootstrap

import "time"

// AppConfig holds service-specific configuration for this WAFFLE app.
//
// WAFFLE's CoreConfig handles framework-level settings (ports, TLS, logging,
// CORS); AppConfig is everything specific to CohortHub: the MongoDB
// connection, sync worker tuning, and reconciliation policy.
type AppConfig struct {
	// MongoDB connection configuration
	MongoURI         string // MongoDB connection string (e.g., mongodb://localhost:27017)
	MongoDatabase    string // Database name within MongoDB
	MongoMaxPoolSize uint64
	MongoMinPoolSize uint64

	// Fan-out worker pool
	SyncWorkers int           // concurrent queue workers
	SyncPoll    time.Duration // idle sleep between empty queue claims

	// Sync task retry/dispatch policy
	SyncMaxAttempts int
	SyncBackoff     time.Duration // base backoff, doubles per attempt
	SyncDeadline    time.Duration // dispatch window from enqueue

	// OrgChunkSize caps the org refs per fan-out task.
	OrgChunkSize int

	// DeletePolicy controls what happens to assignments of users who lose
	// eligibility: "delete" or "archive".
	DeletePolicy string

	// RestrictToOpen limits enrollment-triggered reconciliation to
	// administrations that have not closed.
	RestrictToOpen bool
}
