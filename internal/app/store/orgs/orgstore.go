// internal/app/store/orgs/orgstore.go
package orgstore

import (
	"context"
	"errors"
	"fmt"

	"github.com/dalemusser/cohorthub/internal/app/system/limits"
	"github.com/dalemusser/cohorthub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// ErrNotFound is returned by the single-org getters when the target
// document does not exist. Bulk getters filter missing refs silently.
var ErrNotFound = errors.New("organization not found")

// Store reads the five organization collections. This service never writes
// them; the upstream roster importer owns org CRUD.
type Store struct {
	districts *mongo.Collection
	schools   *mongo.Collection
	classes   *mongo.Collection
	groups    *mongo.Collection
	families  *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{
		districts: db.Collection("districts"),
		schools:   db.Collection("schools"),
		classes:   db.Collection("classes"),
		groups:    db.Collection("groups"),
		families:  db.Collection("families"),
	}
}

// fetchByIDs loads documents by _id in chunks of limits.MaxInQuery.
// Missing IDs are simply absent from the result.
func fetchByIDs[T any](ctx context.Context, c *mongo.Collection, ids []string) ([]T, error) {
	var out []T
	for start := 0; start < len(ids); start += limits.MaxInQuery {
		end := start + limits.MaxInQuery
		if end > len(ids) {
			end = len(ids)
		}
		cur, err := c.Find(ctx, bson.M{"_id": bson.M{"$in": ids[start:end]}})
		if err != nil {
			return nil, fmt.Errorf("%s find: %w", c.Name(), err)
		}
		var page []T
		if err := cur.All(ctx, &page); err != nil {
			return nil, fmt.Errorf("%s decode: %w", c.Name(), err)
		}
		out = append(out, page...)
	}
	return out, nil
}

func getByID[T any](ctx context.Context, c *mongo.Collection, id string) (T, error) {
	var doc T
	err := c.FindOne(ctx, bson.M{"_id": id}).Decode(&doc)
	if err == mongo.ErrNoDocuments {
		return doc, fmt.Errorf("%s %q: %w", c.Name(), id, ErrNotFound)
	}
	if err != nil {
		return doc, err
	}
	return doc, nil
}

func (s *Store) District(ctx context.Context, id string) (models.District, error) {
	return getByID[models.District](ctx, s.districts, id)
}

func (s *Store) School(ctx context.Context, id string) (models.School, error) {
	return getByID[models.School](ctx, s.schools, id)
}

func (s *Store) Class(ctx context.Context, id string) (models.Class, error) {
	return getByID[models.Class](ctx, s.classes, id)
}

func (s *Store) Group(ctx context.Context, id string) (models.Group, error) {
	return getByID[models.Group](ctx, s.groups, id)
}

func (s *Store) Family(ctx context.Context, id string) (models.Family, error) {
	return getByID[models.Family](ctx, s.families, id)
}

func (s *Store) Districts(ctx context.Context, ids []string) ([]models.District, error) {
	return fetchByIDs[models.District](ctx, s.districts, ids)
}

func (s *Store) Schools(ctx context.Context, ids []string) ([]models.School, error) {
	return fetchByIDs[models.School](ctx, s.schools, ids)
}

func (s *Store) Classes(ctx context.Context, ids []string) ([]models.Class, error) {
	return fetchByIDs[models.Class](ctx, s.classes, ids)
}

func (s *Store) Groups(ctx context.Context, ids []string) ([]models.Group, error) {
	return fetchByIDs[models.Group](ctx, s.groups, ids)
}

func (s *Store) Families(ctx context.Context, ids []string) ([]models.Family, error) {
	return fetchByIDs[models.Family](ctx, s.families, ids)
}

// ExistingIDs returns the subset of ids that exist under kind, in chunks of
// limits.MaxInQuery, without decoding whole documents.
func (s *Store) ExistingIDs(ctx context.Context, kind models.OrgKind, ids []string) ([]string, error) {
	c := s.collection(kind)
	if c == nil {
		return nil, fmt.Errorf("invalid org kind %q", kind)
	}
	var out []string
	for start := 0; start < len(ids); start += limits.MaxInQuery {
		end := start + limits.MaxInQuery
		if end > len(ids) {
			end = len(ids)
		}
		cur, err := c.Find(ctx,
			bson.M{"_id": bson.M{"$in": ids[start:end]}},
			options.Find().SetProjection(bson.M{"_id": 1}),
		)
		if err != nil {
			return nil, fmt.Errorf("%s find: %w", c.Name(), err)
		}
		var docs []struct {
			ID string `bson:"_id"`
		}
		if err := cur.All(ctx, &docs); err != nil {
			return nil, fmt.Errorf("%s decode: %w", c.Name(), err)
		}
		for _, d := range docs {
			out = append(out, d.ID)
		}
	}
	return out, nil
}

// GroupsByParent finds groups directly parented by any of the given orgs,
// chunking parentIDs to respect the $in limit.
func (s *Store) GroupsByParent(ctx context.Context, kind models.OrgKind, parentIDs []string) ([]models.Group, error) {
	var out []models.Group
	for start := 0; start < len(parentIDs); start += limits.MaxInQuery {
		end := start + limits.MaxInQuery
		if end > len(parentIDs) {
			end = len(parentIDs)
		}
		cur, err := s.groups.Find(ctx, bson.M{
			"parent_org_kind": kind,
			"parent_org_id":   bson.M{"$in": parentIDs[start:end]},
		})
		if err != nil {
			return nil, fmt.Errorf("groups by parent: %w", err)
		}
		var page []models.Group
		if err := cur.All(ctx, &page); err != nil {
			return nil, fmt.Errorf("groups by parent decode: %w", err)
		}
		out = append(out, page...)
	}
	return out, nil
}

func (s *Store) collection(kind models.OrgKind) *mongo.Collection {
	switch kind {
	case models.KindDistrict:
		return s.districts
	case models.KindSchool:
		return s.schools
	case models.KindClass:
		return s.classes
	case models.KindGroup:
		return s.groups
	case models.KindFamily:
		return s.families
	}
	return nil
}
