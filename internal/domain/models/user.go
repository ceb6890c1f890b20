// internal/domain/models/user.go
package models

import "time"

// User types recognized by the condition evaluator. Only students get an
// age derived from birth month/year.
const (
	UserTypeStudent = "student"
	UserTypeParent  = "parent"
	UserTypeTeacher = "teacher"
	UserTypeAdmin   = "admin"
	UserTypeGuest   = "guest"
)

// EnrollmentDates records when a user entered and (possibly) left an org.
type EnrollmentDates struct {
	From time.Time  `bson:"from" json:"from"`
	To   *time.Time `bson:"to,omitempty" json:"to,omitempty"`
}

// OrgMembership tracks a user's relationship to one org kind. Current holds
// the orgs the user is enrolled in right now; All additionally keeps orgs
// the user has left; Dates records the from/to window per org.
type OrgMembership struct {
	Current []string                   `bson:"current,omitempty" json:"current,omitempty"`
	All     []string                   `bson:"all,omitempty" json:"all,omitempty"`
	Dates   map[string]EnrollmentDates `bson:"dates,omitempty" json:"dates,omitempty"`
}

// User is one person in the roster. Assignment documents hang off the user
// by composite key (see AssignmentID).
type User struct {
	ID         string                 `bson:"_id" json:"id"`
	UserType   string                 `bson:"user_type" json:"user_type"`
	Name       string                 `bson:"name,omitempty" json:"name,omitempty"`
	Grade      string                 `bson:"grade,omitempty" json:"grade,omitempty"`
	BirthMonth int                    `bson:"birth_month,omitempty" json:"birth_month,omitempty"`
	BirthYear  int                    `bson:"birth_year,omitempty" json:"birth_year,omitempty"`
	Districts  OrgMembership          `bson:"districts,omitempty" json:"districts,omitempty"`
	Schools    OrgMembership          `bson:"schools,omitempty" json:"schools,omitempty"`
	Classes    OrgMembership          `bson:"classes,omitempty" json:"classes,omitempty"`
	Groups     OrgMembership          `bson:"groups,omitempty" json:"groups,omitempty"`
	Families   OrgMembership          `bson:"families,omitempty" json:"families,omitempty"`
	Extra      map[string]interface{} `bson:"extra,omitempty" json:"extra,omitempty"`
	Archived   bool                   `bson:"archived" json:"archived"`
	CreatedAt  time.Time              `bson:"created_at" json:"created_at"`
	UpdatedAt  time.Time              `bson:"updated_at" json:"updated_at"`
}

// Membership returns the membership record for the given org kind.
func (u User) Membership(kind OrgKind) OrgMembership {
	switch kind {
	case KindDistrict:
		return u.Districts
	case KindSchool:
		return u.Schools
	case KindClass:
		return u.Classes
	case KindGroup:
		return u.Groups
	case KindFamily:
		return u.Families
	}
	return OrgMembership{}
}

// CurrentOrgs collects the user's current memberships into an OrgRefSet.
func (u User) CurrentOrgs() OrgRefSet {
	var s OrgRefSet
	for _, k := range OrgKinds {
		s.Add(k, u.Membership(k).Current...)
	}
	return s
}

// AllOrgs collects every org the user has ever belonged to.
func (u User) AllOrgs() OrgRefSet {
	var s OrgRefSet
	for _, k := range OrgKinds {
		m := u.Membership(k)
		s.Add(k, m.All...)
		s.Add(k, m.Current...)
	}
	return s
}

// UserSnapshot is the projection of user profile fields denormalized onto
// each assignment for fast querying.
type UserSnapshot struct {
	UserType   string    `bson:"user_type" json:"user_type"`
	Name       string    `bson:"name,omitempty" json:"name,omitempty"`
	Grade      string    `bson:"grade,omitempty" json:"grade,omitempty"`
	BirthMonth int       `bson:"birth_month,omitempty" json:"birth_month,omitempty"`
	BirthYear  int       `bson:"birth_year,omitempty" json:"birth_year,omitempty"`
	Orgs       OrgRefSet `bson:"orgs" json:"orgs"`
}

// SnapshotOf projects the user fields copied onto assignments.
func SnapshotOf(u User) UserSnapshot {
	return UserSnapshot{
		UserType:   u.UserType,
		Name:       u.Name,
		Grade:      u.Grade,
		BirthMonth: u.BirthMonth,
		BirthYear:  u.BirthYear,
		Orgs:       u.CurrentOrgs(),
	}
}
