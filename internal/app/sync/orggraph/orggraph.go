// internal/app/sync/orggraph/orggraph.go

// Package orggraph resolves organization reference sets against the
// district/school/class/group/family tree: expanding to all descendants,
// contracting to a minimal root set, or expanding to ancestors for read
// access.
package orggraph

import (
	"context"

	"github.com/dalemusser/cohorthub/internal/domain/models"
)

// Source supplies the org documents the resolver walks. orgstore.Store is
// the production implementation; tests supply an in-memory one.
type Source interface {
	Districts(ctx context.Context, ids []string) ([]models.District, error)
	Schools(ctx context.Context, ids []string) ([]models.School, error)
	Classes(ctx context.Context, ids []string) ([]models.Class, error)
	Groups(ctx context.Context, ids []string) ([]models.Group, error)
	Families(ctx context.Context, ids []string) ([]models.Family, error)
	GroupsByParent(ctx context.Context, kind models.OrgKind, parentIDs []string) ([]models.Group, error)
	ExistingIDs(ctx context.Context, kind models.OrgKind, ids []string) ([]string, error)
}

// Resolver is a pure reader over a Source; it never mutates the store.
type Resolver struct {
	src Source
}

func New(src Source) *Resolver {
	return &Resolver{src: src}
}

// OnlyExisting drops references whose target document does not exist.
// Missing refs are filtered silently, never errored: deleted orgs routinely
// linger in administration definitions.
func (r *Resolver) OnlyExisting(ctx context.Context, orgs models.OrgRefSet) (models.OrgRefSet, error) {
	var out models.OrgRefSet
	for _, kind := range models.OrgKinds {
		ids := orgs.Of(kind)
		if len(ids) == 0 {
			continue
		}
		existing, err := r.src.ExistingIDs(ctx, kind, ids)
		if err != nil {
			return models.OrgRefSet{}, err
		}
		out.Add(kind, existing...)
	}
	out.Normalize()
	return out, nil
}

// Exhaustive expands orgs to their full descendant closure: districts pull
// in schools, classes, and descendant groups; schools pull in classes and
// groups; groups and families pull in sub-groups recursively. The result is
// a fixed point: Exhaustive(Exhaustive(S)) == Exhaustive(S).
//
// includeArchived controls whether archived descendants are expanded;
// deletion flows pass true because users may still hold assignments through
// orgs that were archived after assignment.
func (r *Resolver) Exhaustive(ctx context.Context, orgs models.OrgRefSet, includeArchived bool) (models.OrgRefSet, error) {
	out := orgs.Clone()
	out.Normalize()

	// districts -> schools
	districts, err := r.src.Districts(ctx, out.Districts)
	if err != nil {
		return models.OrgRefSet{}, err
	}
	for _, d := range districts {
		if d.Archived && !includeArchived {
			continue
		}
		out.Add(models.KindSchool, d.Schools...)
	}

	// schools -> classes (covers schools pulled in from districts too)
	schools, err := r.src.Schools(ctx, out.Schools)
	if err != nil {
		return models.OrgRefSet{}, err
	}
	for _, s := range schools {
		if s.Archived && !includeArchived {
			continue
		}
		out.Add(models.KindClass, s.Classes...)
	}

	// districts/schools/classes -> directly parented groups
	for _, kind := range []models.OrgKind{models.KindDistrict, models.KindSchool, models.KindClass} {
		ids := out.Of(kind)
		if len(ids) == 0 {
			continue
		}
		groups, err := r.src.GroupsByParent(ctx, kind, ids)
		if err != nil {
			return models.OrgRefSet{}, err
		}
		for _, g := range groups {
			if g.Archived && !includeArchived {
				continue
			}
			out.Add(models.KindGroup, g.ID)
		}
	}

	// families -> sub-groups
	families, err := r.src.Families(ctx, out.Families)
	if err != nil {
		return models.OrgRefSet{}, err
	}
	for _, f := range families {
		if f.Archived && !includeArchived {
			continue
		}
		out.Add(models.KindGroup, f.SubGroups...)
	}

	// groups -> sub-groups, to a fixed point
	seen := make(map[string]bool, len(out.Groups))
	frontier := append([]string(nil), out.Groups...)
	for len(frontier) > 0 {
		var next []string
		groups, err := r.src.Groups(ctx, frontier)
		if err != nil {
			return models.OrgRefSet{}, err
		}
		for _, id := range frontier {
			seen[id] = true
		}
		for _, g := range groups {
			if g.Archived && !includeArchived {
				continue
			}
			for _, sub := range g.SubGroups {
				if !seen[sub] && !out.Has(models.KindGroup, sub) {
					out.Add(models.KindGroup, sub)
					next = append(next, sub)
				}
			}
		}
		frontier = next
	}

	out.Normalize()
	return out, nil
}

// Minimal removes descendants already implied by a present ancestor: a
// school whose district is in the set, and a class whose school or district
// is in the set. It leaves only the roots a human actually assigned.
func (r *Resolver) Minimal(ctx context.Context, orgs models.OrgRefSet) (models.OrgRefSet, error) {
	out := orgs.Clone()
	out.Normalize()

	if len(out.Schools) > 0 && len(out.Districts) > 0 {
		schools, err := r.src.Schools(ctx, out.Schools)
		if err != nil {
			return models.OrgRefSet{}, err
		}
		var kept []string
		byID := make(map[string]models.School, len(schools))
		for _, s := range schools {
			byID[s.ID] = s
		}
		for _, id := range out.Schools {
			s, ok := byID[id]
			if ok && out.Has(models.KindDistrict, s.DistrictID) {
				continue
			}
			kept = append(kept, id)
		}
		out.Schools = kept
	}

	// A class is implied by its school being assigned, or by its district —
	// even when that school was itself dropped as district-implied above.
	if len(out.Classes) > 0 && (len(orgs.Schools) > 0 || len(out.Districts) > 0) {
		classes, err := r.src.Classes(ctx, out.Classes)
		if err != nil {
			return models.OrgRefSet{}, err
		}
		byID := make(map[string]models.Class, len(classes))
		for _, c := range classes {
			byID[c.ID] = c
		}
		var kept []string
		for _, id := range out.Classes {
			c, ok := byID[id]
			if ok && (orgs.Has(models.KindSchool, c.SchoolID) || out.Has(models.KindDistrict, c.DistrictID)) {
				continue
			}
			kept = append(kept, id)
		}
		out.Classes = kept
	}

	out.Normalize()
	return out, nil
}

// Read expands orgs upward to every ancestor: a class contributes its school
// and district, a school its district, a group its parent org and family.
// Runs to a fixed point so a group under a class also contributes that
// class's school and district.
func (r *Resolver) Read(ctx context.Context, orgs models.OrgRefSet) (models.OrgRefSet, error) {
	out := orgs.Clone()
	out.Normalize()

	// The tree is at most a handful of levels deep; iterate until stable.
	for i := 0; i < len(models.OrgKinds)+1; i++ {
		before := out.Len()

		classes, err := r.src.Classes(ctx, out.Classes)
		if err != nil {
			return models.OrgRefSet{}, err
		}
		for _, c := range classes {
			out.Add(models.KindSchool, c.SchoolID)
			out.Add(models.KindDistrict, c.DistrictID)
		}

		schools, err := r.src.Schools(ctx, out.Schools)
		if err != nil {
			return models.OrgRefSet{}, err
		}
		for _, s := range schools {
			out.Add(models.KindDistrict, s.DistrictID)
		}

		groups, err := r.src.Groups(ctx, out.Groups)
		if err != nil {
			return models.OrgRefSet{}, err
		}
		for _, g := range groups {
			if g.ParentOrgID != "" && models.ValidOrgKind(string(g.ParentOrgKind)) {
				out.Add(g.ParentOrgKind, g.ParentOrgID)
			}
			if g.FamilyID != "" {
				out.Add(models.KindFamily, g.FamilyID)
			}
		}

		if out.Len() == before {
			break
		}
	}

	out.Normalize()
	return out, nil
}
