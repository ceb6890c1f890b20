// internal/app/sync/reconcile/reconcile.go

// Package reconcile computes the target state of one user's assignment for
// one administration. Decide is pure: it takes the current documents and
// returns what should be written, so the same inputs always produce the same
// outcome no matter how many times a fan-out task is redelivered.
package reconcile

import (
	"reflect"
	"time"

	"github.com/dalemusser/cohorthub/internal/app/sync/conditions"
	"github.com/dalemusser/cohorthub/internal/domain/models"
)

// Policy selects what happens to an assignment when the user is no longer
// eligible for the administration.
type Policy string

const (
	PolicyDelete  Policy = "delete"  // remove the assignment document
	PolicyArchive Policy = "archive" // keep it, flagged archived
)

// ValidPolicy reports whether p names a known policy.
func ValidPolicy(p Policy) bool {
	return p == PolicyDelete || p == PolicyArchive
}

// Action is the write Decide selected.
type Action int

const (
	ActionNone Action = iota
	ActionUpsert
	ActionDelete
)

// Decision is the outcome of reconciling one (user, administration) pair.
type Decision struct {
	Action     Action
	Assignment models.Assignment // populated for ActionUpsert
	ID         string            // populated for ActionDelete
}

// Reconciler holds the ineligibility policy; everything else arrives per
// call.
type Reconciler struct {
	policy Policy
}

func New(policy Policy) *Reconciler {
	if !ValidPolicy(policy) {
		policy = PolicyDelete
	}
	return &Reconciler{policy: policy}
}

// Decide reconciles one user against one administration.
//
// assigning is the intersection of the user's current orgs with the
// administration's exhaustive closure; read is that set expanded to
// ancestors. An empty assigning set means the user is not (or no longer)
// eligible and the policy applies. Otherwise the assignment is created or
// updated in place, preserving any assessment the user already has work
// recorded against.
func (r *Reconciler) Decide(existing *models.Assignment, user models.User, admin models.Administration, assigning, read models.OrgRefSet, now time.Time) Decision {
	if assigning.IsEmpty() {
		if existing == nil {
			return Decision{Action: ActionNone}
		}
		return r.retire(existing)
	}

	in := conditions.InputOf(user)
	desired := assessmentsFor(in, admin, now)

	if existing == nil {
		// No assessment applies to this user; an assignment with an empty
		// task list would only inflate the assigned counters.
		if len(desired) == 0 {
			return Decision{Action: ActionNone}
		}
		a := models.Assignment{
			ID:               models.AssignmentID(user.ID, admin.ID),
			UserID:           user.ID,
			AdministrationID: admin.ID,
			Summary:          models.SummaryOf(admin),
			AssigningOrgs:    assigning,
			ReadOrgs:         read,
			Assessments:      desired,
			Progress:         make(map[string]string, len(desired)),
			User:             models.SnapshotOf(user),
		}
		for _, as := range desired {
			a.Progress[as.TaskID] = models.ProgressAssigned
		}
		a.RecomputeCompletion()
		return Decision{Action: ActionUpsert, Assignment: a}
	}

	updated := *existing
	updated.Summary = models.SummaryOf(admin)
	updated.AssigningOrgs = assigning
	updated.ReadOrgs = read
	updated.User = models.SnapshotOf(user)
	updated.Archived = false
	updated.Assessments = mergeAssessments(existing, desired)

	// Conditions stopped matching and no task has recorded work; the
	// assignment has nothing left to offer and the ineligibility policy
	// applies.
	if len(updated.Assessments) == 0 {
		return r.retire(existing)
	}

	progress := make(map[string]string, len(updated.Assessments))
	for _, as := range updated.Assessments {
		if p, ok := existing.Progress[as.TaskID]; ok {
			progress[as.TaskID] = p
		} else {
			progress[as.TaskID] = models.ProgressAssigned
		}
	}
	updated.Progress = progress
	updated.RecomputeCompletion()

	if equivalent(*existing, updated) {
		return Decision{Action: ActionNone}
	}
	return Decision{Action: ActionUpsert, Assignment: updated}
}

// retire applies the ineligibility policy to an assignment the user should
// no longer hold.
func (r *Reconciler) retire(existing *models.Assignment) Decision {
	if r.policy == PolicyDelete {
		return Decision{Action: ActionDelete, ID: existing.ID}
	}
	if existing.Archived && existing.AssigningOrgs.IsEmpty() {
		return Decision{Action: ActionNone}
	}
	archived := *existing
	archived.Archived = true
	archived.AssigningOrgs = models.OrgRefSet{}
	archived.ReadOrgs = models.OrgRefSet{}
	return Decision{Action: ActionUpsert, Assignment: archived}
}

// assessmentsFor evaluates each administration assessment's conditions
// against the user and returns the instances that apply, in administration
// order.
func assessmentsFor(in conditions.Input, admin models.Administration, now time.Time) []models.AssignedAssessment {
	var out []models.AssignedAssessment
	for _, def := range admin.Assessments {
		assigned := true
		optional := false
		if def.Conditions != nil {
			if def.Conditions.Assigned != nil {
				assigned = conditions.EvaluateAt(in, *def.Conditions.Assigned, now)
			}
			if def.Conditions.Optional != nil {
				optional = conditions.EvaluateAt(in, *def.Conditions.Optional, now)
			}
		}
		if !assigned {
			continue
		}
		out = append(out, models.AssignedAssessment{
			TaskID:      def.TaskID,
			Optional:    optional,
			VariantID:   def.VariantID,
			VariantName: def.VariantName,
			Params:      def.Params,
		})
	}
	return out
}

// mergeAssessments reconciles the existing assessment list against the newly
// desired one. Tasks with recorded work keep their run state (only variant,
// params, and the optional flag refresh); tasks without work are replaced
// outright. A task dropped from the administration stays only if the user
// already started it.
func mergeAssessments(existing *models.Assignment, desired []models.AssignedAssessment) []models.AssignedAssessment {
	out := make([]models.AssignedAssessment, 0, len(desired))
	wanted := make(map[string]bool, len(desired))
	for _, d := range desired {
		wanted[d.TaskID] = true
		if prev := existing.Assessment(d.TaskID); prev != nil && prev.InProgress() {
			kept := *prev
			kept.Optional = d.Optional
			kept.VariantID = d.VariantID
			kept.VariantName = d.VariantName
			kept.Params = d.Params
			out = append(out, kept)
			continue
		}
		out = append(out, d)
	}
	for _, prev := range existing.Assessments {
		if !wanted[prev.TaskID] && prev.InProgress() {
			out = append(out, prev)
		}
	}
	return out
}

// equivalent reports whether writing updated over existing would change
// anything a reader cares about. OnlySyncMarkerChanged covers the sync
// fields; the denormalized summary and user snapshot are checked on top so
// renames and date edits propagate.
func equivalent(existing, updated models.Assignment) bool {
	if !models.OnlySyncMarkerChanged(existing, updated) {
		return false
	}
	if existing.Summary.Name != updated.Summary.Name ||
		existing.Summary.PublicName != updated.Summary.PublicName ||
		existing.Summary.Sequential != updated.Summary.Sequential ||
		!existing.Summary.DateOpened.Equal(updated.Summary.DateOpened) ||
		!existing.Summary.DateClosed.Equal(updated.Summary.DateClosed) {
		return false
	}
	if existing.User.UserType != updated.User.UserType ||
		existing.User.Name != updated.User.Name ||
		existing.User.Grade != updated.User.Grade ||
		!existing.User.Orgs.Equal(updated.User.Orgs) {
		return false
	}
	for i := range existing.Assessments {
		x, y := existing.Assessments[i], updated.Assessments[i]
		if x.VariantID != y.VariantID || x.VariantName != y.VariantName ||
			!reflect.DeepEqual(x.Params, y.Params) {
			return false
		}
	}
	return true
}
