// Package timeouts centralizes timeout values for store and handler
// operations so they stay consistent across the app.
//
// Guidelines:
//   - Ping: health checks and connectivity probes
//   - Short: single-document reads
//   - Medium: list queries and moderate writes
//   - Long: multi-collection transactions and closure resolution
//   - Batch: full fan-out chunks (many users, several transactions)
package timeouts

import "time"

const (
	Ping   = 2 * time.Second
	Short  = 5 * time.Second
	Medium = 10 * time.Second
	Long   = 30 * time.Second
	Batch  = 2 * time.Minute
)
