// internal/domain/models/orgref.go
package models

import "sort"

// OrgKind identifies one of the five organization collections.
type OrgKind string

const (
	KindDistrict OrgKind = "districts"
	KindSchool   OrgKind = "schools"
	KindClass    OrgKind = "classes"
	KindGroup    OrgKind = "groups"
	KindFamily   OrgKind = "families"
)

// OrgKinds lists every kind in canonical order. Iteration over an OrgRefSet
// should use this slice so results are deterministic.
var OrgKinds = []OrgKind{KindDistrict, KindSchool, KindClass, KindGroup, KindFamily}

// ValidOrgKind reports whether s names one of the org collections.
func ValidOrgKind(s string) bool {
	switch OrgKind(s) {
	case KindDistrict, KindSchool, KindClass, KindGroup, KindFamily:
		return true
	}
	return false
}

// OrgRefSet maps an organization kind to a set of organization IDs.
// IDs within a kind are unique; order carries no meaning.
type OrgRefSet struct {
	Districts []string `bson:"districts,omitempty" json:"districts,omitempty"`
	Schools   []string `bson:"schools,omitempty" json:"schools,omitempty"`
	Classes   []string `bson:"classes,omitempty" json:"classes,omitempty"`
	Groups    []string `bson:"groups,omitempty" json:"groups,omitempty"`
	Families  []string `bson:"families,omitempty" json:"families,omitempty"`
}

// Of returns the ID slice for the given kind.
func (s OrgRefSet) Of(kind OrgKind) []string {
	switch kind {
	case KindDistrict:
		return s.Districts
	case KindSchool:
		return s.Schools
	case KindClass:
		return s.Classes
	case KindGroup:
		return s.Groups
	case KindFamily:
		return s.Families
	}
	return nil
}

// Set replaces the ID slice for the given kind.
func (s *OrgRefSet) Set(kind OrgKind, ids []string) {
	switch kind {
	case KindDistrict:
		s.Districts = ids
	case KindSchool:
		s.Schools = ids
	case KindClass:
		s.Classes = ids
	case KindGroup:
		s.Groups = ids
	case KindFamily:
		s.Families = ids
	}
}

// Add inserts ids under kind, skipping duplicates.
func (s *OrgRefSet) Add(kind OrgKind, ids ...string) {
	have := make(map[string]bool, len(s.Of(kind)))
	for _, id := range s.Of(kind) {
		have[id] = true
	}
	out := s.Of(kind)
	for _, id := range ids {
		if id == "" || have[id] {
			continue
		}
		have[id] = true
		out = append(out, id)
	}
	s.Set(kind, out)
}

// Has reports whether id is present under kind.
func (s OrgRefSet) Has(kind OrgKind, id string) bool {
	for _, v := range s.Of(kind) {
		if v == id {
			return true
		}
	}
	return false
}

// IsEmpty reports whether no kind holds any ID.
func (s OrgRefSet) IsEmpty() bool {
	return s.Len() == 0
}

// Len returns the total number of references across all kinds.
func (s OrgRefSet) Len() int {
	n := 0
	for _, k := range OrgKinds {
		n += len(s.Of(k))
	}
	return n
}

// Clone returns a deep copy.
func (s OrgRefSet) Clone() OrgRefSet {
	var out OrgRefSet
	for _, k := range OrgKinds {
		ids := s.Of(k)
		if len(ids) == 0 {
			continue
		}
		cp := make([]string, len(ids))
		copy(cp, ids)
		out.Set(k, cp)
	}
	return out
}

// Normalize sorts each kind's IDs and drops duplicates, so two sets with the
// same membership compare equal field by field.
func (s *OrgRefSet) Normalize() {
	for _, k := range OrgKinds {
		ids := s.Of(k)
		if len(ids) == 0 {
			s.Set(k, nil)
			continue
		}
		sort.Strings(ids)
		out := ids[:1]
		for _, id := range ids[1:] {
			if id != out[len(out)-1] {
				out = append(out, id)
			}
		}
		s.Set(k, out)
	}
}

// Union returns a new set containing every reference in s or other.
func (s OrgRefSet) Union(other OrgRefSet) OrgRefSet {
	out := s.Clone()
	for _, k := range OrgKinds {
		out.Add(k, other.Of(k)...)
	}
	return out
}

// Intersect returns the references present in both s and other.
func (s OrgRefSet) Intersect(other OrgRefSet) OrgRefSet {
	var out OrgRefSet
	for _, k := range OrgKinds {
		for _, id := range s.Of(k) {
			if other.Has(k, id) {
				out.Add(k, id)
			}
		}
	}
	return out
}

// Subtract returns the references present in s but not in other.
func (s OrgRefSet) Subtract(other OrgRefSet) OrgRefSet {
	var out OrgRefSet
	for _, k := range OrgKinds {
		for _, id := range s.Of(k) {
			if !other.Has(k, id) {
				out.Add(k, id)
			}
		}
	}
	return out
}

// Equal reports whether both sets hold exactly the same references.
func (s OrgRefSet) Equal(other OrgRefSet) bool {
	return s.Subtract(other).IsEmpty() && other.Subtract(s).IsEmpty()
}

// Chunk partitions the set into pieces whose total reference count does not
// exceed size, keeping each piece grouped by kind. Store query and
// transaction limits drive the size (see limits.OrgChunkSize).
func (s OrgRefSet) Chunk(size int) []OrgRefSet {
	if size <= 0 || s.IsEmpty() {
		if s.IsEmpty() {
			return nil
		}
		return []OrgRefSet{s.Clone()}
	}
	var chunks []OrgRefSet
	cur := OrgRefSet{}
	room := size
	for _, k := range OrgKinds {
		ids := s.Of(k)
		for len(ids) > 0 {
			if room == 0 {
				chunks = append(chunks, cur)
				cur = OrgRefSet{}
				room = size
			}
			n := len(ids)
			if n > room {
				n = room
			}
			cur.Add(k, ids[:n]...)
			ids = ids[n:]
			room -= n
		}
	}
	if !cur.IsEmpty() {
		chunks = append(chunks, cur)
	}
	return chunks
}
