// internal/app/store/users/userstore.go
package userstore

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

// ErrNotFound is returned when a user document does not exist. The
// reconciler treats it as "skip this user", not as a failure.
var ErrNotFound = errors.New("user not found")

type Store struct {
	c *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("users")}
}

func (s *Store) GetByID(ctx context.Context, id string) (models.User, error) {
	var u models.User
	err := s.c.FindOne(ctx, bson.M{"_id": id}).Decode(&u)
	if err == mongo.ErrNoDocuments {
		return models.User{}, fmt.Errorf("user %q: %w", id, ErrNotFound)
	}
	if err != nil {
		return models.User{}, err
	}
	return u, nil
}

// membershipField maps an org kind to the bson path of its current-orgs
// array on the user document.
func membershipField(kind models.OrgKind) string {
	return string(kind) + ".current"
}

// ForEachInOrgs streams every non-archived user currently enrolled in any
// org of the given set, calling fn exactly once per user. Queries are
// chunked to limits.MaxInQuery IDs and paginated by _id cursor in pages of
// limits.QueryPage; users reachable through multiple orgs are deduplicated.
func (s *Store) ForEachInOrgs(ctx context.Context, orgs models.OrgRefSet, fn func(models.User) error) error {
	seen := make(map[string]bool)

	for _, kind := range models.OrgKinds {
		ids := orgs.Of(kind)
		for start := 0; start < len(ids); start += limits.MaxInQuery {
			end := start + limits.MaxInQuery
			if end > len(ids) {
				end = len(ids)
			}
			if err := s.forEachPage(ctx, kind, ids[start:end], seen, fn); err != nil {
				return err
			}
		}
	}
	return nil
}

func (s *Store) forEachPage(ctx context.Context, kind models.OrgKind, ids []string, seen map[string]bool, fn func(models.User) error) error {
	cursor := ""
	for {
		filter := bson.M{
			membershipField(kind): bson.M{"$in": ids},
			"archived":            bson.M{"$ne": true},
		}
		if cursor != "" {
			filter["_id"] = bson.M{"$gt": cursor}
		}
		opts := options.Find().
			SetSort(bson.D{{Key: "_id", Value: 1}}).
			SetLimit(int64(limits.QueryPage))

		cur, err := s.c.Find(ctx, filter, opts)
		if err != nil {
			return fmt.Errorf("users in %s: %w", kind, err)
		}
		var page []models.User
		if err := cur.All(ctx, &page); err != nil {
			return fmt.Errorf("users in %s decode: %w", kind, err)
		}

		for _, u := range page {
			cursor = u.ID
			if seen[u.ID] {
				continue
			}
			seen[u.ID] = true
			if err := fn(u); err != nil {
				return err
			}
		}

		if len(page) < limits.QueryPage {
			return nil
		}
	}
}

// IDsInOrgs collects the IDs of users currently enrolled in the set.
func (s *Store) IDsInOrgs(ctx context.Context, orgs models.OrgRefSet) ([]string, error) {
	var out []string
	err := s.ForEachInOrgs(ctx, orgs, func(u models.User) error {
		out = append(out, u.ID)
		return nil
	})
	return out, err
}
