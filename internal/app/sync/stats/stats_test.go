package stats_test

import (
	"testing"

	"github.com/dalemusser/cohorthub/internal/app/sync/stats"
	"github.com/dalemusser/cohorthub/internal/domain/models"
)

func assignment(orgs models.OrgRefSet, progress map[string]string) models.Assignment {
	a := models.Assignment{
		ID:               "u1:adm1",
		UserID:           "u1",
		AdministrationID: "adm1",
		AssigningOrgs:    orgs,
		Progress:         progress,
	}
	a.RecomputeCompletion()
	return a
}

func TestDeltas_Created(t *testing.T) {
	a := assignment(models.OrgRefSet{Classes: []string{"c1"}},
		map[string]string{"swr": models.ProgressAssigned, "sre": models.ProgressAssigned})

	got := stats.Deltas(nil, &a)

	for _, org := range []string{"c1", models.StatsTotalOrg} {
		d := got[org]
		if d == nil {
			t.Fatalf("missing delta for org %s", org)
		}
		if d["assignment.assigned"] != 1 {
			t.Errorf("%s assignment.assigned = %d, want 1", org, d["assignment.assigned"])
		}
		if d["assignment.started"] != 0 || d["assignment.completed"] != 0 {
			t.Errorf("%s should not count started/completed: %v", org, d)
		}
		if d["tasks.swr.assigned"] != 1 || d["tasks.sre.assigned"] != 1 {
			t.Errorf("%s task assigned counts wrong: %v", org, d)
		}
	}
}

func TestDeltas_Deleted(t *testing.T) {
	a := assignment(models.OrgRefSet{Classes: []string{"c1"}},
		map[string]string{"swr": models.ProgressCompleted})

	got := stats.Deltas(&a, nil)
	d := got[models.StatsTotalOrg]
	if d["assignment.assigned"] != -1 || d["assignment.completed"] != -1 {
		t.Errorf("deletion must decrement: %v", d)
	}
	if d["tasks.swr.assigned"] != -1 || d["tasks.swr.started"] != -1 || d["tasks.swr.completed"] != -1 {
		t.Errorf("deletion must decrement task counters: %v", d)
	}
}

func TestDeltas_ProgressTransition(t *testing.T) {
	before := assignment(models.OrgRefSet{Classes: []string{"c1"}},
		map[string]string{"swr": models.ProgressAssigned, "sre": models.ProgressAssigned})
	after := assignment(models.OrgRefSet{Classes: []string{"c1"}},
		map[string]string{"swr": models.ProgressCompleted, "sre": models.ProgressAssigned})

	got := stats.Deltas(&before, &after)
	d := got["c1"]
	if d["assignment.started"] != 1 {
		t.Errorf("assignment should become started: %v", d)
	}
	if d["tasks.swr.started"] != 1 || d["tasks.swr.completed"] != 1 {
		t.Errorf("swr should gain started and completed: %v", d)
	}
	if d["tasks.swr.assigned"] != 0 {
		t.Errorf("swr assigned count must not change: %v", d)
	}
	if _, ok := d["tasks.sre.started"]; ok {
		t.Errorf("untouched task must contribute no delta: %v", d)
	}
}

func TestDeltas_OrgMembershipChange(t *testing.T) {
	before := assignment(models.OrgRefSet{Classes: []string{"c1", "c2"}},
		map[string]string{"swr": models.ProgressStarted})
	after := assignment(models.OrgRefSet{Classes: []string{"c2", "c3"}},
		map[string]string{"swr": models.ProgressStarted})

	got := stats.Deltas(&before, &after)

	if got["c1"]["assignment.assigned"] != -1 {
		t.Errorf("removed org must be decremented: %v", got["c1"])
	}
	if got["c3"]["assignment.assigned"] != 1 {
		t.Errorf("added org must be incremented: %v", got["c3"])
	}
	if _, ok := got["c2"]; ok {
		t.Errorf("unchanged org must have no delta: %v", got["c2"])
	}
	if _, ok := got[models.StatsTotalOrg]; ok {
		t.Errorf("total must be unchanged by an org move: %v", got[models.StatsTotalOrg])
	}
}

func TestDeltas_NoChangeNoDelta(t *testing.T) {
	a := assignment(models.OrgRefSet{Classes: []string{"c1"}},
		map[string]string{"swr": models.ProgressStarted})
	b := a

	if got := stats.Deltas(&a, &b); len(got) != 0 {
		t.Errorf("identical snapshots must produce no deltas: %v", got)
	}
}

func TestDeltas_ArchivedCountsAsGone(t *testing.T) {
	live := assignment(models.OrgRefSet{Classes: []string{"c1"}},
		map[string]string{"swr": models.ProgressAssigned})
	archived := live
	archived.Archived = true
	archived.AssigningOrgs = models.OrgRefSet{}

	got := stats.Deltas(&live, &archived)
	if got["c1"]["assignment.assigned"] != -1 || got[models.StatsTotalOrg]["assignment.assigned"] != -1 {
		t.Errorf("archiving must decrement like a delete: %v", got)
	}

	if got := stats.Deltas(nil, &archived); len(got) != 0 {
		t.Errorf("an archived assignment contributes nothing: %v", got)
	}
}

// Counter conservation: the sum of deltas over a create/update/delete
// lifecycle is zero for every counter.
func TestDeltas_Conservation(t *testing.T) {
	s1 := assignment(models.OrgRefSet{Classes: []string{"c1"}},
		map[string]string{"swr": models.ProgressAssigned})
	s2 := assignment(models.OrgRefSet{Classes: []string{"c1", "c2"}},
		map[string]string{"swr": models.ProgressStarted})
	s3 := assignment(models.OrgRefSet{Classes: []string{"c2"}},
		map[string]string{"swr": models.ProgressCompleted})

	sum := make(map[string]map[string]int64)
	add := func(deltas map[string]map[string]int64) {
		for org, d := range deltas {
			if sum[org] == nil {
				sum[org] = make(map[string]int64)
			}
			for path, n := range d {
				sum[org][path] += n
			}
		}
	}
	add(stats.Deltas(nil, &s1))
	add(stats.Deltas(&s1, &s2))
	add(stats.Deltas(&s2, &s3))
	add(stats.Deltas(&s3, nil))

	for org, d := range sum {
		for path, n := range d {
			if n != 0 {
				t.Errorf("counter %s/%s not conserved: %d", org, path, n)
			}
		}
	}
}
