// internal/domain/models/stats.go
package models

import "time"

// StatsTotalOrg is the pseudo-org key under which administration-wide
// totals are accumulated alongside the per-org stats documents.
const StatsTotalOrg = "total"

// CompletionStats is one stats document per (administration, org-or-total).
// Counters live under dotted paths and are only ever touched through $inc,
// never read-modify-written; that is the invariant keeping them drift-free
// under concurrent assignment writes.
//
// Assignment maps status -> count for whole assignments; Tasks maps
// taskID -> status -> count.
type CompletionStats struct {
	ID               string                      `bson:"_id" json:"id"` // adminID:orgID
	AdministrationID string                      `bson:"administration_id" json:"administration_id"`
	OrgID            string                      `bson:"org_id" json:"org_id"`
	Assignment       map[string]int64            `bson:"assignment,omitempty" json:"assignment,omitempty"`
	Tasks            map[string]map[string]int64 `bson:"tasks,omitempty" json:"tasks,omitempty"`
	UpdatedAt        time.Time                   `bson:"updated_at" json:"updated_at"`
}

// StatsID builds the composite _id for a stats document: the conceptual
// administrations/{id}/stats/{orgIdOrTotal} path.
func StatsID(adminID, orgID string) string {
	return adminID + ":" + orgID
}
