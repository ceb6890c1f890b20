// internal/domain/models/run.go
package models

import "time"

// Run is one attempt at one task within one assignment. The best-run
// selector marks exactly one run per (user, assignment, task) as BestRun.
type Run struct {
	ID               string                 `bson:"_id" json:"id"`
	UserID           string                 `bson:"user_id" json:"user_id"`
	AssignmentID     string                 `bson:"assignment_id" json:"assignment_id"`
	AdministrationID string                 `bson:"administration_id,omitempty" json:"administration_id,omitempty"`
	TaskID           string                 `bson:"task_id" json:"task_id"`
	Completed        bool                   `bson:"completed" json:"completed"`
	TimeStarted      time.Time              `bson:"time_started" json:"time_started"`
	TimeFinished     *time.Time             `bson:"time_finished,omitempty" json:"time_finished,omitempty"`
	Scores           RunScores              `bson:"scores,omitempty" json:"scores,omitempty"`
	BestRun          bool                   `bson:"best_run" json:"best_run"`
	Params           map[string]interface{} `bson:"params,omitempty" json:"params,omitempty"`

	// LastSynced is stamped when the selector flips BestRun flags so the run
	// watcher can ignore its own writes.
	LastSynced time.Time `bson:"last_synced,omitempty" json:"last_synced,omitempty"`
}

// RunScores carries the raw and computed scoring signals the selector and
// downstream reporting read. ThetaSE is the adaptive-test standard error;
// lower means a more reliable estimate.
type RunScores struct {
	NumAttempted int                    `bson:"num_attempted,omitempty" json:"num_attempted,omitempty"`
	NumCorrect   int                    `bson:"num_correct,omitempty" json:"num_correct,omitempty"`
	Theta        *float64               `bson:"theta,omitempty" json:"theta,omitempty"`
	ThetaSE      *float64               `bson:"theta_se,omitempty" json:"theta_se,omitempty"`
	Computed     map[string]interface{} `bson:"computed,omitempty" json:"computed,omitempty"`
}

// OnlyRunSyncMarkerChanged reports whether prev and cur differ in nothing
// the selector needs to re-process: a BestRun flip or LastSynced stamp only.
func OnlyRunSyncMarkerChanged(prev, cur Run) bool {
	prev.LastSynced = time.Time{}
	cur.LastSynced = time.Time{}
	prev.BestRun = false
	cur.BestRun = false
	return prev.ID == cur.ID &&
		prev.Completed == cur.Completed &&
		prev.TimeStarted.Equal(cur.TimeStarted) &&
		timePtrEqual(prev.TimeFinished, cur.TimeFinished) &&
		prev.Scores.NumAttempted == cur.Scores.NumAttempted &&
		floatPtrEqual(prev.Scores.ThetaSE, cur.Scores.ThetaSE)
}

func floatPtrEqual(a, b *float64) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}
