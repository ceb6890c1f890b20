// internal/domain/models/synctask.go
package models

import "time"

// Sync task modes. Add is the initial fan-out after an administration is
// created; Update re-reconciles existing assignments after an edit.
const (
	SyncModeAdd    = "add"
	SyncModeUpdate = "update"
)

// Sync task lifecycle states.
const (
	TaskPending = "pending"
	TaskDone    = "done"
	TaskFailed  = "failed"
)

// SyncTask is one asynchronous fan-out work item: reconcile every user
// reachable from OrgChunk against one administration. Tasks are delivered
// at least once; processing is idempotent per user, so redelivery is safe.
type SyncTask struct {
	ID               string         `bson:"_id" json:"id"`
	AdministrationID string         `bson:"administration_id" json:"administration_id"`
	Administration   Administration `bson:"administration" json:"administration"`
	OrgChunk         OrgRefSet      `bson:"org_chunk" json:"org_chunk"`
	Mode             string         `bson:"mode" json:"mode"`

	Status      string    `bson:"status" json:"status"`
	Attempts    int       `bson:"attempts" json:"attempts"`
	MaxAttempts int       `bson:"max_attempts" json:"max_attempts"`
	NotBefore   time.Time `bson:"not_before" json:"not_before"`
	Deadline    time.Time `bson:"deadline" json:"deadline"`
	LeaseUntil  time.Time `bson:"lease_until,omitempty" json:"lease_until,omitempty"`
	LastError   string    `bson:"last_error,omitempty" json:"last_error,omitempty"`

	EnqueuedAt time.Time `bson:"enqueued_at" json:"enqueued_at"`
	UpdatedAt  time.Time `bson:"updated_at" json:"updated_at"`
}
