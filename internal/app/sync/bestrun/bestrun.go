// internal/app/sync/bestrun/bestrun.go

// Package bestrun picks the representative run among a user's attempts at
// one task and propagates it onto the assignment.
//
// The pick is deterministic over the sibling set, so re-evaluating after any
// run write always converges: a completed run beats an incomplete one, the
// earliest-started completed run beats later ones, and among incomplete runs
// a lower score standard error wins, then more attempted items.
package bestrun

import (
	"context"
	"errors"
	"sort"
	"time"

	assignmentstore "github.com/dalemusser/cohorthub/internal/app/store/assignments"
	runstore "github.com/dalemusser/cohorthub/internal/app/store/runs"
	"github.com/dalemusser/cohorthub/internal/app/system/changes"
	"github.com/dalemusser/cohorthub/internal/app/system/metrics"
	"github.com/dalemusser/cohorthub/internal/domain/models"
	"go.uber.org/zap"
)

// Selector owns the runs change-stream handler.
type Selector struct {
	runs        *runstore.Store
	assignments *assignmentstore.Store
	log         *zap.Logger
}

func New(runs *runstore.Store, assignments *assignmentstore.Store, log *zap.Logger) *Selector {
	return &Selector{runs: runs, assignments: assignments, log: log}
}

// HandleRunWrite re-evaluates the best run for the written run's
// (user, assignment, task) triple and propagates the result onto the
// assignment. Writes that only flipped the best-run flag or sync marker are
// this selector's own echoes and are skipped.
func (s *Selector) HandleRunWrite(ctx context.Context, ev changes.Event[models.Run]) error {
	defer metrics.ObserveHandler("bestrun", time.Now())

	if ev.Kind() == changes.Updated && models.OnlyRunSyncMarkerChanged(*ev.Previous, *ev.Current) {
		return nil
	}

	run := ev.Current
	if run == nil {
		run = ev.Previous
	}
	if run == nil || run.UserID == "" || run.AssignmentID == "" || run.TaskID == "" {
		return nil
	}

	siblings, err := s.runs.ByTask(ctx, run.UserID, run.AssignmentID, run.TaskID)
	if err != nil {
		return err
	}

	best := PickBestRun(siblings)
	bestID := ""
	if best != nil {
		bestID = best.ID
	}
	if err := s.runs.SetBestRun(ctx, run.UserID, run.AssignmentID, run.TaskID, bestID); err != nil {
		if !errors.Is(err, runstore.ErrNotFound) {
			return err
		}
		// The winner vanished between query and flag write; the delete event
		// will re-trigger us.
	}

	return s.propagate(ctx, run.AssignmentID, run.TaskID, best, siblings)
}

// propagate copies the best run's state into the assignment's assessment
// entry and recomputes completion. The write stamps the sync marker so the
// assignment handlers skip the echo.
func (s *Selector) propagate(ctx context.Context, assignmentID, taskID string, best *models.Run, siblings []models.Run) error {
	a, err := s.assignments.GetByID(ctx, assignmentID)
	if err != nil {
		if errors.Is(err, assignmentstore.ErrNotFound) {
			s.log.Debug("run without assignment, skipping propagation",
				zap.String("assignment_id", assignmentID),
				zap.String("task_id", taskID))
			return nil
		}
		return err
	}
	as := a.Assessment(taskID)
	if as == nil {
		s.log.Debug("run for task not on assignment, skipping propagation",
			zap.String("assignment_id", assignmentID),
			zap.String("task_id", taskID))
		return nil
	}

	if best == nil {
		as.RunID = ""
		as.AllRunIDs = nil
		as.StartedOn = nil
		as.CompletedOn = nil
		a.Progress[taskID] = models.ProgressAssigned
	} else {
		ordered := make([]models.Run, len(siblings))
		copy(ordered, siblings)
		sort.Slice(ordered, func(i, j int) bool {
			if !ordered[i].TimeStarted.Equal(ordered[j].TimeStarted) {
				return ordered[i].TimeStarted.Before(ordered[j].TimeStarted)
			}
			return ordered[i].ID < ordered[j].ID
		})
		ids := make([]string, len(ordered))
		for i, r := range ordered {
			ids[i] = r.ID
		}

		as.RunID = best.ID
		as.AllRunIDs = ids
		first := ordered[0].TimeStarted
		as.StartedOn = &first
		if best.Completed {
			as.CompletedOn = best.TimeFinished
			a.Progress[taskID] = models.ProgressCompleted
		} else {
			as.CompletedOn = nil
			a.Progress[taskID] = models.ProgressStarted
		}
	}
	a.RecomputeCompletion()
	return s.assignments.UpsertSynced(ctx, a)
}

// PickBestRun returns the winner among a set of sibling runs, or nil for an
// empty set.
func PickBestRun(runs []models.Run) *models.Run {
	var best *models.Run
	for i := range runs {
		if best == nil || better(runs[i], *best) {
			best = &runs[i]
		}
	}
	return best
}

// better reports whether a should be preferred over b.
func better(a, b models.Run) bool {
	if a.Completed != b.Completed {
		return a.Completed
	}
	if a.Completed {
		// Earliest completed attempt is the one that counted.
		if !a.TimeStarted.Equal(b.TimeStarted) {
			return a.TimeStarted.Before(b.TimeStarted)
		}
		return a.ID < b.ID
	}
	// Both incomplete: prefer the more reliable partial estimate.
	ase, bse := a.Scores.ThetaSE, b.Scores.ThetaSE
	switch {
	case ase != nil && bse == nil:
		return true
	case ase == nil && bse != nil:
		return false
	case ase != nil && bse != nil && *ase != *bse:
		return *ase < *bse
	}
	if a.Scores.NumAttempted != b.Scores.NumAttempted {
		return a.Scores.NumAttempted > b.Scores.NumAttempted
	}
	if !a.TimeStarted.Equal(b.TimeStarted) {
		return a.TimeStarted.Before(b.TimeStarted)
	}
	return a.ID < b.ID
}
