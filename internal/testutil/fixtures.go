// internal/testutil/fixtures.go
package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/dalemusser/cohorthub/internal/domain/models"
	"go.mongodb.org/mongo-driver/mongo"
)

// Fixtures provides helper methods for seeding test data.
type Fixtures struct {
	db *mongo.Database
	t  *testing.T
}

// NewFixtures creates a Fixtures instance for the given test database.
func NewFixtures(t *testing.T, db *mongo.Database) *Fixtures {
	t.Helper()
	return &Fixtures{db: db, t: t}
}

// DB returns the underlying database for direct access in tests.
func (f *Fixtures) DB() *mongo.Database {
	return f.db
}

func (f *Fixtures) insert(ctx context.Context, coll string, doc interface{}) {
	f.t.Helper()
	if _, err := f.db.Collection(coll).InsertOne(ctx, doc); err != nil {
		f.t.Fatalf("failed to insert %s fixture: %v", coll, err)
	}
}

// CreateDistrict creates a district referencing the given school IDs.
func (f *Fixtures) CreateDistrict(ctx context.Context, id string, schools ...string) models.District {
	f.t.Helper()
	now := time.Now().UTC()
	d := models.District{ID: id, Name: "District " + id, Schools: schools, CreatedAt: now, UpdatedAt: now}
	f.insert(ctx, "districts", d)
	return d
}

// CreateSchool creates a school in a district referencing the given classes.
func (f *Fixtures) CreateSchool(ctx context.Context, id, districtID string, classes ...string) models.School {
	f.t.Helper()
	now := time.Now().UTC()
	s := models.School{ID: id, Name: "School " + id, DistrictID: districtID, Classes: classes, CreatedAt: now, UpdatedAt: now}
	f.insert(ctx, "schools", s)
	return s
}

// CreateClass creates a class in a school and district.
func (f *Fixtures) CreateClass(ctx context.Context, id, schoolID, districtID string) models.Class {
	f.t.Helper()
	now := time.Now().UTC()
	c := models.Class{ID: id, Name: "Class " + id, SchoolID: schoolID, DistrictID: districtID, CreatedAt: now, UpdatedAt: now}
	f.insert(ctx, "classes", c)
	return c
}

// CreateStudent creates a student enrolled in the given classes.
func (f *Fixtures) CreateStudent(ctx context.Context, id string, classes ...string) models.User {
	f.t.Helper()
	now := time.Now().UTC()
	u := models.User{
		ID:        id,
		UserType:  models.UserTypeStudent,
		Name:      "Student " + id,
		Classes:   models.OrgMembership{Current: classes, All: classes},
		CreatedAt: now,
		UpdatedAt: now,
	}
	f.insert(ctx, "users", u)
	return u
}

// CreateAdministration creates an open administration assigned to the given
// orgs with one unconditioned assessment per task ID.
func (f *Fixtures) CreateAdministration(ctx context.Context, id string, orgs models.OrgRefSet, taskIDs ...string) models.Administration {
	f.t.Helper()
	now := time.Now().UTC()
	a := models.Administration{
		ID:          id,
		Name:        "Administration " + id,
		Orgs:        orgs,
		DateOpened:  now.Add(-time.Hour),
		DateClosed:  now.Add(30 * 24 * time.Hour),
		DateCreated: now,
		CreatedBy:   "fixtures",
		UpdatedAt:   now,
	}
	for _, taskID := range taskIDs {
		a.Assessments = append(a.Assessments, models.Assessment{TaskID: taskID})
	}
	f.insert(ctx, "administrations", a)
	return a
}

// CreateRun creates a run for one task of an assignment.
func (f *Fixtures) CreateRun(ctx context.Context, id, userID, assignmentID, taskID string, started time.Time, completed bool) models.Run {
	f.t.Helper()
	r := models.Run{
		ID:           id,
		UserID:       userID,
		AssignmentID: assignmentID,
		TaskID:       taskID,
		TimeStarted:  started,
		Completed:    completed,
	}
	if completed {
		finished := started.Add(10 * time.Minute)
		r.TimeFinished = &finished
	}
	f.insert(ctx, "runs", r)
	return r
}
