// internal/domain/models/organization.go
package models

import "time"

// The five organization collections form a tree: districts contain schools,
// schools contain classes, and groups/families hold sub-groups. IDs are the
// roster identifiers issued by the upstream SIS, stored as string _id.

// District is a top-level organization.
type District struct {
	ID        string    `bson:"_id" json:"id"`
	Name      string    `bson:"name" json:"name"`
	Schools   []string  `bson:"schools,omitempty" json:"schools,omitempty"`
	Archived  bool      `bson:"archived" json:"archived"`
	CreatedAt time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time `bson:"updated_at" json:"updated_at"`
}

// School belongs to a district and lists its classes.
type School struct {
	ID         string    `bson:"_id" json:"id"`
	Name       string    `bson:"name" json:"name"`
	DistrictID string    `bson:"district_id" json:"district_id"`
	Classes    []string  `bson:"classes,omitempty" json:"classes,omitempty"`
	Archived   bool      `bson:"archived" json:"archived"`
	CreatedAt  time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt  time.Time `bson:"updated_at" json:"updated_at"`
}

// Class belongs to a school and carries the district reference as well so
// read-closure expansion does not need a second lookup.
type Class struct {
	ID         string    `bson:"_id" json:"id"`
	Name       string    `bson:"name" json:"name"`
	SchoolID   string    `bson:"school_id" json:"school_id"`
	DistrictID string    `bson:"district_id" json:"district_id"`
	Archived   bool      `bson:"archived" json:"archived"`
	CreatedAt  time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt  time.Time `bson:"updated_at" json:"updated_at"`
}

// Group hangs off a parent org of any kind and may nest sub-groups.
type Group struct {
	ID            string    `bson:"_id" json:"id"`
	Name          string    `bson:"name" json:"name"`
	ParentOrgKind OrgKind   `bson:"parent_org_kind,omitempty" json:"parent_org_kind,omitempty"`
	ParentOrgID   string    `bson:"parent_org_id,omitempty" json:"parent_org_id,omitempty"`
	FamilyID      string    `bson:"family_id,omitempty" json:"family_id,omitempty"`
	SubGroups     []string  `bson:"sub_groups,omitempty" json:"sub_groups,omitempty"`
	Archived      bool      `bson:"archived" json:"archived"`
	CreatedAt     time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt     time.Time `bson:"updated_at" json:"updated_at"`
}

// Family has no parent; it only holds sub-groups.
type Family struct {
	ID        string    `bson:"_id" json:"id"`
	Name      string    `bson:"name" json:"name"`
	SubGroups []string  `bson:"sub_groups,omitempty" json:"sub_groups,omitempty"`
	Archived  bool      `bson:"archived" json:"archived"`
	CreatedAt time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time `bson:"updated_at" json:"updated_at"`
}
