package statsstore_test

import (
	"errors"
	"testing"

	statsstore "github.com/dalemusser/cohorthub/internal/app/store/stats"
	"github.com/dalemusser/cohorthub/internal/testutil"
)

func TestIncrement_UpsertsAndAccumulates(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx := testutil.TestContext(t)
	s := statsstore.New(db)

	deltas := map[string]int64{
		"assignment.assigned": 1,
		"tasks.swr.assigned":  1,
		"tasks.swr.started":   0, // zero deltas are dropped
	}
	if err := s.Increment(ctx, "a1", "c1", deltas); err != nil {
		t.Fatalf("first increment: %v", err)
	}
	if err := s.Increment(ctx, "a1", "c1", map[string]int64{"assignment.assigned": 1}); err != nil {
		t.Fatalf("second increment: %v", err)
	}

	st, err := s.Get(ctx, "a1", "c1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if st.AdministrationID != "a1" || st.OrgID != "c1" {
		t.Errorf("identity fields = %q/%q", st.AdministrationID, st.OrgID)
	}
	if got := st.Assignment["assigned"]; got != 2 {
		t.Errorf("assignment.assigned = %d, want 2", got)
	}
	if got := st.Tasks["swr"]["assigned"]; got != 1 {
		t.Errorf("tasks.swr.assigned = %d, want 1", got)
	}
	if got, ok := st.Tasks["swr"]["started"]; ok || got != 0 {
		t.Errorf("tasks.swr.started = %d (present=%v), want absent", got, ok)
	}
}

func TestIncrement_NegativeDeltas(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx := testutil.TestContext(t)
	s := statsstore.New(db)

	if err := s.Increment(ctx, "a1", "total", map[string]int64{"assignment.assigned": 3}); err != nil {
		t.Fatalf("increment: %v", err)
	}
	if err := s.Increment(ctx, "a1", "total", map[string]int64{"assignment.assigned": -1}); err != nil {
		t.Fatalf("decrement: %v", err)
	}

	st, err := s.Get(ctx, "a1", "total")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got := st.Assignment["assigned"]; got != 2 {
		t.Errorf("assignment.assigned = %d, want 2", got)
	}
}

func TestForAdministration_And_Delete(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx := testutil.TestContext(t)
	s := statsstore.New(db)

	for _, org := range []string{"c1", "c2", "total"} {
		if err := s.Increment(ctx, "a1", org, map[string]int64{"assignment.assigned": 1}); err != nil {
			t.Fatalf("increment %s: %v", org, err)
		}
	}
	if err := s.Increment(ctx, "other", "c9", map[string]int64{"assignment.assigned": 1}); err != nil {
		t.Fatalf("increment other: %v", err)
	}

	docs, err := s.ForAdministration(ctx, "a1")
	if err != nil {
		t.Fatalf("for administration: %v", err)
	}
	if len(docs) != 3 {
		t.Errorf("docs = %d, want 3", len(docs))
	}

	if err := s.DeleteForAdministration(ctx, "a1"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := s.Get(ctx, "a1", "c1"); !errors.Is(err, statsstore.ErrNotFound) {
		t.Errorf("get after delete = %v, want ErrNotFound", err)
	}
	// Other administrations are untouched.
	if _, err := s.Get(ctx, "other", "c9"); err != nil {
		t.Errorf("other administration stats lost: %v", err)
	}
}
