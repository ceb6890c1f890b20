// internal/domain/models/administration.go
package models

import (
	"reflect"
	"time"
)

// Administration is a globally defined bundle of assessment tasks assigned
// to one or more organizations. The assigned OrgRefSet is what an admin
// entered; MinimalOrgs is the non-redundant form the sync engine derives
// from it, and the exhaustive/read closures are denormalized into the
// administration_orgs collection.
type Administration struct {
	ID          string       `bson:"_id" json:"id"`
	Name        string       `bson:"name" json:"name"`
	PublicName  string       `bson:"public_name,omitempty" json:"public_name,omitempty"`
	Orgs        OrgRefSet    `bson:"orgs" json:"orgs"`
	MinimalOrgs OrgRefSet    `bson:"minimal_orgs,omitempty" json:"minimal_orgs,omitempty"`
	Assessments []Assessment `bson:"assessments" json:"assessments"`
	DateOpened  time.Time    `bson:"date_opened" json:"date_opened"`
	DateClosed  time.Time    `bson:"date_closed" json:"date_closed"`
	DateCreated time.Time    `bson:"date_created" json:"date_created"`
	Sequential  bool         `bson:"sequential" json:"sequential"`
	TestData    bool         `bson:"test_data,omitempty" json:"test_data,omitempty"`
	DemoData    bool         `bson:"demo_data,omitempty" json:"demo_data,omitempty"`
	Legal       *Legal       `bson:"legal,omitempty" json:"legal,omitempty"`
	CreatedBy   string       `bson:"created_by" json:"created_by"`
	UpdatedAt   time.Time    `bson:"updated_at" json:"updated_at"`

	// LastSynced is stamped by the sync engine on every write it makes back
	// into this collection, so the administration watcher can ignore its own
	// echoes.
	LastSynced time.Time `bson:"last_synced,omitempty" json:"last_synced,omitempty"`
}

// IsOpen reports whether the administration accepts work at the given time.
func (a Administration) IsOpen(now time.Time) bool {
	return !now.Before(a.DateOpened) && now.Before(a.DateClosed)
}

// OnlyDerivedChanged reports whether prev and cur differ in nothing but the
// fields the sync engine writes back itself (minimal orgs and the sync
// marker). The administration watcher uses it to ignore its own echoes.
func OnlyDerivedChanged(prev, cur Administration) bool {
	prev.MinimalOrgs = OrgRefSet{}
	cur.MinimalOrgs = OrgRefSet{}
	prev.LastSynced = time.Time{}
	cur.LastSynced = time.Time{}
	prev.UpdatedAt = time.Time{}
	cur.UpdatedAt = time.Time{}
	return prev.ID == cur.ID &&
		prev.Name == cur.Name &&
		prev.PublicName == cur.PublicName &&
		prev.Sequential == cur.Sequential &&
		prev.DateOpened.Equal(cur.DateOpened) &&
		prev.DateClosed.Equal(cur.DateClosed) &&
		prev.Orgs.Equal(cur.Orgs) &&
		reflect.DeepEqual(prev.Assessments, cur.Assessments)
}

// Assessment is one task definition inside an administration.
type Assessment struct {
	TaskID      string                 `bson:"task_id" json:"taskId"`
	VariantID   string                 `bson:"variant_id,omitempty" json:"variantId,omitempty"`
	VariantName string                 `bson:"variant_name,omitempty" json:"variantName,omitempty"`
	Params      map[string]interface{} `bson:"params,omitempty" json:"params,omitempty"`
	Conditions  *AssessmentConditions  `bson:"conditions,omitempty" json:"conditions,omitempty"`
}

// Legal captures consent/assent metadata attached to an administration.
type Legal struct {
	Consent  []map[string]string `bson:"consent,omitempty" json:"consent,omitempty"`
	Assent   []map[string]string `bson:"assent,omitempty" json:"assent,omitempty"`
	Amount   string              `bson:"amount,omitempty" json:"amount,omitempty"`
	Expected string              `bson:"expected_time,omitempty" json:"expectedTime,omitempty"`
}

// OrgScope distinguishes the two denormalized closures kept per
// administration in administration_orgs.
type OrgScope string

const (
	ScopeAssigned OrgScope = "assigned" // exhaustive descendant closure
	ScopeRead     OrgScope = "read"     // exhaustive plus ancestor closure
)

// AdministrationOrg is one document of the administration_orgs collection:
// the conceptual administrations/{id}/{assignedOrgs|readOrgs}/{orgId} path.
// It carries a denormalized summary of the administration so org-scoped
// queries never need a join.
type AdministrationOrg struct {
	ID               string       `bson:"_id" json:"id"` // adminID:scope:kind:orgID
	AdministrationID string       `bson:"administration_id" json:"administration_id"`
	Scope            OrgScope     `bson:"scope" json:"scope"`
	OrgKind          OrgKind      `bson:"org_kind" json:"org_kind"`
	OrgID            string       `bson:"org_id" json:"org_id"`
	Summary          AdminSummary `bson:"summary" json:"summary"`
	UpdatedAt        time.Time    `bson:"updated_at" json:"updated_at"`
}

// AdministrationOrgID builds the composite _id for an AdministrationOrg doc.
func AdministrationOrgID(adminID string, scope OrgScope, kind OrgKind, orgID string) string {
	return adminID + ":" + string(scope) + ":" + string(kind) + ":" + orgID
}

// AdminSummary is the projection of Administration metadata copied onto
// assignments and administration_orgs documents.
type AdminSummary struct {
	Name        string    `bson:"name" json:"name"`
	PublicName  string    `bson:"public_name,omitempty" json:"public_name,omitempty"`
	DateOpened  time.Time `bson:"date_opened" json:"date_opened"`
	DateClosed  time.Time `bson:"date_closed" json:"date_closed"`
	DateCreated time.Time `bson:"date_created" json:"date_created"`
	Sequential  bool      `bson:"sequential" json:"sequential"`
	TestData    bool      `bson:"test_data,omitempty" json:"test_data,omitempty"`
	DemoData    bool      `bson:"demo_data,omitempty" json:"demo_data,omitempty"`
	Legal       *Legal    `bson:"legal,omitempty" json:"legal,omitempty"`
	CreatedBy   string    `bson:"created_by" json:"created_by"`
}

// SummaryOf projects the denormalized administration metadata. Keeping the
// projection in one named function makes the denormalization contract
// testable on its own.
func SummaryOf(a Administration) AdminSummary {
	return AdminSummary{
		Name:        a.Name,
		PublicName:  a.PublicName,
		DateOpened:  a.DateOpened,
		DateClosed:  a.DateClosed,
		DateCreated: a.DateCreated,
		Sequential:  a.Sequential,
		TestData:    a.TestData,
		DemoData:    a.DemoData,
		Legal:       a.Legal,
		CreatedBy:   a.CreatedBy,
	}
}
