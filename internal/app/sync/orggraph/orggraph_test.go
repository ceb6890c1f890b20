package orggraph_test

import (
	"context"
	"testing"

	"github.com/dalemusser/cohorthub/internal/app/sync/orggraph"
	"github.com/dalemusser/cohorthub/internal/domain/models"
)

// memSource is an in-memory org tree for resolver tests.
type memSource struct {
	districts map[string]models.District
	schools   map[string]models.School
	classes   map[string]models.Class
	groups    map[string]models.Group
	families  map[string]models.Family
}

func (m *memSource) Districts(_ context.Context, ids []string) ([]models.District, error) {
	var out []models.District
	for _, id := range ids {
		if d, ok := m.districts[id]; ok {
			out = append(out, d)
		}
	}
	return out, nil
}

func (m *memSource) Schools(_ context.Context, ids []string) ([]models.School, error) {
	var out []models.School
	for _, id := range ids {
		if s, ok := m.schools[id]; ok {
			out = append(out, s)
		}
	}
	return out, nil
}

func (m *memSource) Classes(_ context.Context, ids []string) ([]models.Class, error) {
	var out []models.Class
	for _, id := range ids {
		if c, ok := m.classes[id]; ok {
			out = append(out, c)
		}
	}
	return out, nil
}

func (m *memSource) Groups(_ context.Context, ids []string) ([]models.Group, error) {
	var out []models.Group
	for _, id := range ids {
		if g, ok := m.groups[id]; ok {
			out = append(out, g)
		}
	}
	return out, nil
}

func (m *memSource) Families(_ context.Context, ids []string) ([]models.Family, error) {
	var out []models.Family
	for _, id := range ids {
		if f, ok := m.families[id]; ok {
			out = append(out, f)
		}
	}
	return out, nil
}

func (m *memSource) GroupsByParent(_ context.Context, kind models.OrgKind, parentIDs []string) ([]models.Group, error) {
	var out []models.Group
	for _, g := range m.groups {
		if g.ParentOrgKind != kind {
			continue
		}
		for _, pid := range parentIDs {
			if g.ParentOrgID == pid {
				out = append(out, g)
				break
			}
		}
	}
	return out, nil
}

func (m *memSource) ExistingIDs(_ context.Context, kind models.OrgKind, ids []string) ([]string, error) {
	var out []string
	for _, id := range ids {
		var ok bool
		switch kind {
		case models.KindDistrict:
			_, ok = m.districts[id]
		case models.KindSchool:
			_, ok = m.schools[id]
		case models.KindClass:
			_, ok = m.classes[id]
		case models.KindGroup:
			_, ok = m.groups[id]
		case models.KindFamily:
			_, ok = m.families[id]
		}
		if ok {
			out = append(out, id)
		}
	}
	return out, nil
}

// testTree builds:
//
//	d1 ── s1 ── c1, c2
//	   └─ s2 ── c3
//	d2 ── s3 (archived) ── c4
//	g1 (parent s1) ── g2 ── g3
//	f1 ── g4
func testTree() *memSource {
	return &memSource{
		districts: map[string]models.District{
			"d1": {ID: "d1", Schools: []string{"s1", "s2"}},
			"d2": {ID: "d2", Schools: []string{"s3"}},
		},
		schools: map[string]models.School{
			"s1": {ID: "s1", DistrictID: "d1", Classes: []string{"c1", "c2"}},
			"s2": {ID: "s2", DistrictID: "d1", Classes: []string{"c3"}},
			"s3": {ID: "s3", DistrictID: "d2", Classes: []string{"c4"}, Archived: true},
		},
		classes: map[string]models.Class{
			"c1": {ID: "c1", SchoolID: "s1", DistrictID: "d1"},
			"c2": {ID: "c2", SchoolID: "s1", DistrictID: "d1"},
			"c3": {ID: "c3", SchoolID: "s2", DistrictID: "d1"},
			"c4": {ID: "c4", SchoolID: "s3", DistrictID: "d2"},
		},
		groups: map[string]models.Group{
			"g1": {ID: "g1", ParentOrgKind: models.KindSchool, ParentOrgID: "s1", SubGroups: []string{"g2"}},
			"g2": {ID: "g2", SubGroups: []string{"g3"}},
			"g3": {ID: "g3"},
			"g4": {ID: "g4", FamilyID: "f1"},
		},
		families: map[string]models.Family{
			"f1": {ID: "f1", SubGroups: []string{"g4"}},
		},
	}
}

func TestExhaustive_DistrictClosure(t *testing.T) {
	r := orggraph.New(testTree())
	ctx := context.Background()

	got, err := r.Exhaustive(ctx, models.OrgRefSet{Districts: []string{"d1"}}, false)
	if err != nil {
		t.Fatalf("Exhaustive failed: %v", err)
	}

	want := models.OrgRefSet{
		Districts: []string{"d1"},
		Schools:   []string{"s1", "s2"},
		Classes:   []string{"c1", "c2", "c3"},
		Groups:    []string{"g1", "g2", "g3"},
	}
	if !got.Equal(want) {
		t.Errorf("closure mismatch:\n got  %+v\n want %+v", got, want)
	}
}

func TestExhaustive_ArchivedFiltering(t *testing.T) {
	r := orggraph.New(testTree())
	ctx := context.Background()
	in := models.OrgRefSet{Districts: []string{"d2"}}

	got, err := r.Exhaustive(ctx, in, false)
	if err != nil {
		t.Fatalf("Exhaustive failed: %v", err)
	}
	// s3 itself is pulled in by d2's children list, but being archived it
	// contributes no classes.
	if got.Has(models.KindClass, "c4") {
		t.Error("archived school's classes should be excluded")
	}

	got, err = r.Exhaustive(ctx, in, true)
	if err != nil {
		t.Fatalf("Exhaustive(includeArchived) failed: %v", err)
	}
	if !got.Has(models.KindClass, "c4") {
		t.Error("includeArchived should expand through archived schools")
	}
}

func TestExhaustive_Idempotent(t *testing.T) {
	r := orggraph.New(testTree())
	ctx := context.Background()

	sets := []models.OrgRefSet{
		{Districts: []string{"d1"}},
		{Schools: []string{"s1"}, Groups: []string{"g1"}},
		{Families: []string{"f1"}},
		{Districts: []string{"d1", "d2"}, Classes: []string{"c4"}},
		{},
	}
	for _, in := range sets {
		once, err := r.Exhaustive(ctx, in, true)
		if err != nil {
			t.Fatalf("Exhaustive failed: %v", err)
		}
		twice, err := r.Exhaustive(ctx, once, true)
		if err != nil {
			t.Fatalf("Exhaustive (second application) failed: %v", err)
		}
		if !once.Equal(twice) {
			t.Errorf("not a fixed point for %+v:\n once  %+v\n twice %+v", in, once, twice)
		}
	}
}

func TestMinimal_RemovesImpliedOrgs(t *testing.T) {
	r := orggraph.New(testTree())
	ctx := context.Background()

	in := models.OrgRefSet{
		Districts: []string{"d1"},
		Schools:   []string{"s1"},       // implied by d1
		Classes:   []string{"c3", "c4"}, // c3 implied by d1; c4 is not
	}
	got, err := r.Minimal(ctx, in)
	if err != nil {
		t.Fatalf("Minimal failed: %v", err)
	}
	want := models.OrgRefSet{
		Districts: []string{"d1"},
		Classes:   []string{"c4"},
	}
	if !got.Equal(want) {
		t.Errorf("minimal mismatch:\n got  %+v\n want %+v", got, want)
	}
}

func TestMinimal_ClassImpliedByDroppedSchool(t *testing.T) {
	r := orggraph.New(testTree())
	ctx := context.Background()

	// s1 is dropped as implied by d1, but c1 is still implied through s1.
	in := models.OrgRefSet{
		Districts: []string{"d1"},
		Schools:   []string{"s1"},
		Classes:   []string{"c1"},
	}
	got, err := r.Minimal(ctx, in)
	if err != nil {
		t.Fatalf("Minimal failed: %v", err)
	}
	want := models.OrgRefSet{Districts: []string{"d1"}}
	if !got.Equal(want) {
		t.Errorf("minimal mismatch:\n got  %+v\n want %+v", got, want)
	}
}

func TestMinimalExhaustiveInverse(t *testing.T) {
	r := orggraph.New(testTree())
	ctx := context.Background()

	sets := []models.OrgRefSet{
		{Districts: []string{"d1"}, Schools: []string{"s1", "s2"}, Classes: []string{"c1"}},
		{Schools: []string{"s1"}, Classes: []string{"c1", "c2"}},
		{Districts: []string{"d1", "d2"}},
	}
	for _, in := range sets {
		direct, err := r.Exhaustive(ctx, in, true)
		if err != nil {
			t.Fatalf("Exhaustive failed: %v", err)
		}
		minimal, err := r.Minimal(ctx, in)
		if err != nil {
			t.Fatalf("Minimal failed: %v", err)
		}
		viaMinimal, err := r.Exhaustive(ctx, minimal, true)
		if err != nil {
			t.Fatalf("Exhaustive(Minimal) failed: %v", err)
		}
		if !direct.Equal(viaMinimal) {
			t.Errorf("minimal lost membership for %+v:\n direct      %+v\n via minimal %+v",
				in, direct, viaMinimal)
		}
	}
}

func TestRead_AddsAncestors(t *testing.T) {
	r := orggraph.New(testTree())
	ctx := context.Background()

	got, err := r.Read(ctx, models.OrgRefSet{Classes: []string{"c1"}})
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	want := models.OrgRefSet{
		Districts: []string{"d1"},
		Schools:   []string{"s1"},
		Classes:   []string{"c1"},
	}
	if !got.Equal(want) {
		t.Errorf("read closure mismatch:\n got  %+v\n want %+v", got, want)
	}
}

func TestRead_GroupAncestorsTransitive(t *testing.T) {
	r := orggraph.New(testTree())
	ctx := context.Background()

	// g1 is parented by s1, so its read set must also reach d1.
	got, err := r.Read(ctx, models.OrgRefSet{Groups: []string{"g1"}})
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	if !got.Has(models.KindSchool, "s1") || !got.Has(models.KindDistrict, "d1") {
		t.Errorf("expected s1 and d1 in read closure, got %+v", got)
	}

	// g4 reaches its family.
	got, err = r.Read(ctx, models.OrgRefSet{Groups: []string{"g4"}})
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	if !got.Has(models.KindFamily, "f1") {
		t.Errorf("expected f1 in read closure, got %+v", got)
	}
}

func TestOnlyExisting_FiltersSilently(t *testing.T) {
	r := orggraph.New(testTree())
	ctx := context.Background()

	got, err := r.OnlyExisting(ctx, models.OrgRefSet{
		Districts: []string{"d1", "ghost"},
		Groups:    []string{"g1", "gone"},
	})
	if err != nil {
		t.Fatalf("OnlyExisting failed: %v", err)
	}
	want := models.OrgRefSet{Districts: []string{"d1"}, Groups: []string{"g1"}}
	if !got.Equal(want) {
		t.Errorf("mismatch:\n got  %+v\n want %+v", got, want)
	}
}
