// internal/app/sync/stats/stats.go

// Package stats maintains completion counters per administration and org.
//
// Counters are cumulative: assignment.assigned counts every live assignment,
// assignment.started those whose user has begun any task, and
// assignment.completed those fully finished, so assigned >= started >=
// completed always holds. Task counters follow the same shape under
// tasks.<taskID>. The aggregator never reads counters back; it derives a
// delta from the before/after assignment snapshots and applies it with $inc,
// which keeps the totals exact under concurrent writers.
package stats

import (
	"context"
	"time"

	statsstore "github.com/dalemusser/cohorthub/internal/app/store/stats"
	"github.com/dalemusser/cohorthub/internal/app/system/changes"
	"github.com/dalemusser/cohorthub/internal/app/system/metrics"
	"github.com/dalemusser/cohorthub/internal/domain/models"
	"go.uber.org/zap"
)

// Aggregator applies assignment-write deltas to the stats store.
type Aggregator struct {
	stats *statsstore.Store
	log   *zap.Logger
}

func New(stats *statsstore.Store, log *zap.Logger) *Aggregator {
	return &Aggregator{stats: stats, log: log}
}

// HandleAssignmentWrite is the assignments change-stream handler. Writes
// that only touched the sync marker are echoes of this service's own
// propagation and are skipped.
func (g *Aggregator) HandleAssignmentWrite(ctx context.Context, ev changes.Event[models.Assignment]) error {
	defer metrics.ObserveHandler("stats", time.Now())

	if ev.Kind() == changes.Updated && models.OnlySyncMarkerChanged(*ev.Previous, *ev.Current) {
		return nil
	}

	adminID := administrationID(ev)
	if adminID == "" {
		return nil
	}

	deltas := Deltas(ev.Previous, ev.Current)
	for orgID, d := range deltas {
		if err := g.stats.Increment(ctx, adminID, orgID, d); err != nil {
			return err
		}
	}
	if len(deltas) > 0 {
		g.log.Debug("completion stats updated",
			zap.String("administration_id", adminID),
			zap.Int("orgs", len(deltas)))
	}
	return nil
}

func administrationID(ev changes.Event[models.Assignment]) string {
	if ev.Current != nil {
		return ev.Current.AdministrationID
	}
	if ev.Previous != nil {
		return ev.Previous.AdministrationID
	}
	return ""
}

// Deltas computes the counter changes implied by one assignment write, keyed
// by org ID (the pseudo-org "total" included). Either snapshot may be nil:
// a creation contributes +current, a deletion -previous, and an update the
// difference, org by org, so counters stay conserved across org membership
// changes.
func Deltas(prev, cur *models.Assignment) map[string]map[string]int64 {
	out := make(map[string]map[string]int64)

	apply := func(a *models.Assignment, sign int64) {
		if a == nil || a.Archived {
			return
		}
		counts := contribution(*a)
		for _, org := range statsOrgs(*a) {
			d, ok := out[org]
			if !ok {
				d = make(map[string]int64)
				out[org] = d
			}
			for path, n := range counts {
				d[path] += sign * n
			}
		}
	}
	apply(prev, -1)
	apply(cur, +1)

	for org, d := range out {
		for path, n := range d {
			if n == 0 {
				delete(d, path)
			}
		}
		if len(d) == 0 {
			delete(out, org)
		}
	}
	return out
}

// statsOrgs lists the org buckets an assignment counts toward: every
// assigning org plus the administration-wide total.
func statsOrgs(a models.Assignment) []string {
	orgs := []string{models.StatsTotalOrg}
	for _, kind := range models.OrgKinds {
		orgs = append(orgs, a.AssigningOrgs.Of(kind)...)
	}
	return orgs
}

// contribution is the counter vector of one live assignment.
func contribution(a models.Assignment) map[string]int64 {
	c := map[string]int64{"assignment.assigned": 1}
	if a.Started {
		c["assignment.started"] = 1
	}
	if a.Completed {
		c["assignment.completed"] = 1
	}
	for taskID, p := range a.Progress {
		c["tasks."+taskID+".assigned"] = 1
		if p == models.ProgressStarted || p == models.ProgressCompleted {
			c["tasks."+taskID+".started"] = 1
		}
		if p == models.ProgressCompleted {
			c["tasks."+taskID+".completed"] = 1
		}
	}
	return c
}
