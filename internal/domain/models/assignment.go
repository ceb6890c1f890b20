// internal/domain/models/assignment.go
package models

import "time"

// Task progress states kept per assignment in the Progress map.
const (
	ProgressAssigned  = "assigned"
	ProgressStarted   = "started"
	ProgressCompleted = "completed"
)

// AssignmentID builds the composite _id for an assignment: the conceptual
// users/{userID}/assignments/{administrationID} path flattened into one
// collection.
func AssignmentID(userID, administrationID string) string {
	return userID + ":" + administrationID
}

// Assignment is one user's personalized view of an administration. It is
// created when the user first becomes eligible, rewritten on administration
// or membership changes, and deleted when no assigning orgs remain.
type Assignment struct {
	ID               string       `bson:"_id" json:"id"`
	UserID           string       `bson:"user_id" json:"user_id"`
	AdministrationID string       `bson:"administration_id" json:"administration_id"`
	Summary          AdminSummary `bson:"summary" json:"summary"`

	// AssigningOrgs is the intersection of the user's current orgs with the
	// administration's exhaustive org closure; ReadOrgs is that set expanded
	// to ancestors.
	AssigningOrgs OrgRefSet `bson:"assigning_orgs" json:"assigning_orgs"`
	ReadOrgs      OrgRefSet `bson:"read_orgs" json:"read_orgs"`

	Assessments []AssignedAssessment `bson:"assessments" json:"assessments"`
	Progress    map[string]string    `bson:"progress" json:"progress"`
	Started     bool                 `bson:"started" json:"started"`
	Completed   bool                 `bson:"completed" json:"completed"`

	// Archived marks an assignment the user is no longer eligible for, kept
	// instead of deleted when the archive policy is configured.
	Archived bool `bson:"archived,omitempty" json:"archived,omitempty"`

	User UserSnapshot `bson:"user" json:"user"`

	CreatedAt time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time `bson:"updated_at" json:"updated_at"`

	// LastSynced is stamped by handlers that write back into the assignments
	// collection they watch (best-run propagation, stats echo suppression).
	LastSynced time.Time `bson:"last_synced,omitempty" json:"last_synced,omitempty"`
}

// AssignedAssessment is one task instance inside an assignment.
type AssignedAssessment struct {
	TaskID      string                 `bson:"task_id" json:"taskId"`
	Optional    bool                   `bson:"optional" json:"optional"`
	VariantID   string                 `bson:"variant_id,omitempty" json:"variantId,omitempty"`
	VariantName string                 `bson:"variant_name,omitempty" json:"variantName,omitempty"`
	Params      map[string]interface{} `bson:"params,omitempty" json:"params,omitempty"`
	StartedOn   *time.Time             `bson:"started_on,omitempty" json:"startedOn,omitempty"`
	CompletedOn *time.Time             `bson:"completed_on,omitempty" json:"completedOn,omitempty"`
	RunID       string                 `bson:"run_id,omitempty" json:"runId,omitempty"`
	AllRunIDs   []string               `bson:"all_run_ids,omitempty" json:"allRunIds,omitempty"`
}

// InProgress reports whether any work has been recorded against the task.
// In-progress assessments survive administration edits untouched.
func (a AssignedAssessment) InProgress() bool {
	return a.StartedOn != nil || a.RunID != ""
}

// Assessment returns a pointer to the assessment for taskID, or nil.
func (a *Assignment) Assessment(taskID string) *AssignedAssessment {
	for i := range a.Assessments {
		if a.Assessments[i].TaskID == taskID {
			return &a.Assessments[i]
		}
	}
	return nil
}

// RecomputeCompletion derives the assignment-level Started/Completed flags
// from the Progress map: started when any task moved past "assigned",
// completed when every task reached "completed".
func (a *Assignment) RecomputeCompletion() {
	started := false
	completed := len(a.Progress) > 0
	for _, p := range a.Progress {
		if p != ProgressAssigned {
			started = true
		}
		if p != ProgressCompleted {
			completed = false
		}
	}
	a.Started = started
	a.Completed = completed
}

// OnlySyncMarkerChanged reports whether prev and cur differ in nothing but
// the LastSynced stamp (and UpdatedAt, which rides along with every write).
// Handlers use this to ignore writes they caused themselves.
func OnlySyncMarkerChanged(prev, cur Assignment) bool {
	prev.LastSynced = time.Time{}
	cur.LastSynced = time.Time{}
	prev.UpdatedAt = time.Time{}
	cur.UpdatedAt = time.Time{}
	return assignmentsEquivalent(prev, cur)
}

// assignmentsEquivalent compares the fields handlers care about. A bson
// round-trip can reorder map keys, so Progress is compared entry-wise.
func assignmentsEquivalent(a, b Assignment) bool {
	if a.ID != b.ID || a.UserID != b.UserID || a.AdministrationID != b.AdministrationID ||
		a.Started != b.Started || a.Completed != b.Completed || a.Archived != b.Archived ||
		len(a.Assessments) != len(b.Assessments) || len(a.Progress) != len(b.Progress) {
		return false
	}
	if !a.AssigningOrgs.Equal(b.AssigningOrgs) || !a.ReadOrgs.Equal(b.ReadOrgs) {
		return false
	}
	for k, v := range a.Progress {
		if b.Progress[k] != v {
			return false
		}
	}
	for i := range a.Assessments {
		x, y := a.Assessments[i], b.Assessments[i]
		if x.TaskID != y.TaskID || x.Optional != y.Optional || x.RunID != y.RunID ||
			!timePtrEqual(x.StartedOn, y.StartedOn) || !timePtrEqual(x.CompletedOn, y.CompletedOn) ||
			len(x.AllRunIDs) != len(y.AllRunIDs) {
			return false
		}
	}
	return true
}

func timePtrEqual(a, b *time.Time) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.Equal(*b)
}
