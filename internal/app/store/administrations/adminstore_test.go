package adminstore_test

import (
	"fmt"
	"testing"
	"time"

	adminstore "github.com/dalemusser/cohorthub/internal/app/store/administrations"
	"github.com/dalemusser/cohorthub/internal/app/system/limits"
	"github.com/dalemusser/cohorthub/internal/domain/models"
	"github.com/dalemusser/cohorthub/internal/testutil"
)

func TestOpenIDsForOrgs_ChunksLargeOrgSets(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx := testutil.TestContext(t)
	s := adminstore.New(db)

	now := time.Now().UTC()
	open := models.AdminSummary{Name: "Open", DateClosed: now.Add(24 * time.Hour)}
	closed := models.AdminSummary{Name: "Closed", DateClosed: now.Add(-24 * time.Hour)}

	// Enough classes to span several $in chunks, with a partial tail.
	n := 3*limits.MaxInQuery + 5
	classes := make([]string, n)
	for i := range classes {
		classes[i] = fmt.Sprintf("c%03d", i)
	}
	set := models.OrgRefSet{Classes: classes}

	if err := s.ReplaceOrgDocs(ctx, "adm-open", models.ScopeAssigned, set, open); err != nil {
		t.Fatalf("seed open: %v", err)
	}
	if err := s.ReplaceOrgDocs(ctx, "adm-closed", models.ScopeAssigned, set, closed); err != nil {
		t.Fatalf("seed closed: %v", err)
	}

	ids, err := s.OpenIDsForOrgs(ctx, set, now)
	if err != nil {
		t.Fatalf("open ids: %v", err)
	}
	if len(ids) != 1 || ids[0] != "adm-open" {
		t.Errorf("ids = %v, want [adm-open]", ids)
	}

	// An org in the final partial chunk must still be reachable.
	tail := models.OrgRefSet{Classes: classes[n-1:]}
	ids, err = s.OpenIDsForOrgs(ctx, tail, now)
	if err != nil {
		t.Fatalf("tail ids: %v", err)
	}
	if len(ids) != 1 || ids[0] != "adm-open" {
		t.Errorf("tail ids = %v, want [adm-open]", ids)
	}
}
