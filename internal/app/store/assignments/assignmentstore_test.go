package assignmentstore_test

import (
	"errors"
	"fmt"
	"testing"
	"time"

	assignmentstore "github.com/dalemusser/cohorthub/internal/app/store/assignments"
	"github.com/dalemusser/cohorthub/internal/domain/models"
	"github.com/dalemusser/cohorthub/internal/testutil"
)

func seedAssignment(uid, adminID string, closed time.Time) models.Assignment {
	return models.Assignment{
		ID:               models.AssignmentID(uid, adminID),
		UserID:           uid,
		AdministrationID: adminID,
		Summary:          models.AdminSummary{Name: "Administration " + adminID, DateClosed: closed},
		Progress:         map[string]string{"swr": models.ProgressAssigned},
	}
}

func TestUpsertGetDelete(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx := testutil.TestContext(t)
	s := assignmentstore.New(db)

	open := time.Now().UTC().Add(24 * time.Hour)
	if err := s.Upsert(ctx, seedAssignment("u1", "a1", open)); err != nil {
		t.Fatalf("upsert: %v", err)
	}

	got, err := s.Get(ctx, "u1", "a1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.ID != "u1:a1" || got.CreatedAt.IsZero() {
		t.Errorf("got %+v", got)
	}

	if err := s.Delete(ctx, got.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := s.Get(ctx, "u1", "a1"); !errors.Is(err, assignmentstore.ErrNotFound) {
		t.Errorf("get after delete = %v, want ErrNotFound", err)
	}
}

func TestApplyBatch_MixedWrites(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx := testutil.TestContext(t)
	s := assignmentstore.New(db)

	open := time.Now().UTC().Add(24 * time.Hour)
	doomed := seedAssignment("u1", "a1", open)
	if err := s.Upsert(ctx, doomed); err != nil {
		t.Fatalf("seed: %v", err)
	}

	fresh := seedAssignment("u2", "a1", open)
	muts := []assignmentstore.Mutation{
		{Delete: doomed.ID},
		{Upsert: &fresh},
	}
	if err := s.ApplyBatch(ctx, muts); err != nil {
		t.Fatalf("apply batch: %v", err)
	}

	if _, err := s.Get(ctx, "u1", "a1"); !errors.Is(err, assignmentstore.ErrNotFound) {
		t.Errorf("deleted assignment still present: %v", err)
	}
	if _, err := s.Get(ctx, "u2", "a1"); err != nil {
		t.Errorf("upserted assignment missing: %v", err)
	}
}

func TestForEachByAdministration_Paginates(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx := testutil.TestContext(t)
	s := assignmentstore.New(db)

	open := time.Now().UTC().Add(24 * time.Hour)
	const n = 7
	for i := 0; i < n; i++ {
		uid := fmt.Sprintf("u%03d", i)
		if err := s.Upsert(ctx, seedAssignment(uid, "a1", open)); err != nil {
			t.Fatalf("seed %s: %v", uid, err)
		}
	}
	if err := s.Upsert(ctx, seedAssignment("u999", "other", open)); err != nil {
		t.Fatalf("seed other: %v", err)
	}

	seen := map[string]bool{}
	err := s.ForEachByAdministration(ctx, "a1", func(a models.Assignment) error {
		if seen[a.ID] {
			t.Errorf("duplicate visit: %s", a.ID)
		}
		seen[a.ID] = true
		return nil
	})
	if err != nil {
		t.Fatalf("for each: %v", err)
	}
	if len(seen) != n {
		t.Errorf("visited %d assignments, want %d", len(seen), n)
	}
}

func TestForUser_OpenFilter(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx := testutil.TestContext(t)
	s := assignmentstore.New(db)

	now := time.Now().UTC()
	if err := s.Upsert(ctx, seedAssignment("u1", "open", now.Add(24*time.Hour))); err != nil {
		t.Fatalf("seed open: %v", err)
	}
	if err := s.Upsert(ctx, seedAssignment("u1", "closed", now.Add(-24*time.Hour))); err != nil {
		t.Fatalf("seed closed: %v", err)
	}

	all, err := s.ForUser(ctx, "u1", false, now)
	if err != nil {
		t.Fatalf("for user all: %v", err)
	}
	if len(all) != 2 {
		t.Errorf("all = %d, want 2", len(all))
	}

	open, err := s.ForUser(ctx, "u1", true, now)
	if err != nil {
		t.Fatalf("for user open: %v", err)
	}
	if len(open) != 1 || open[0].AdministrationID != "open" {
		t.Errorf("open = %+v", open)
	}
}
