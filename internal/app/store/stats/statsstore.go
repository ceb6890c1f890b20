// internal/app/store/stats/statsstore.go
package statsstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dalemusser/cohorthub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

var ErrNotFound = errors.New("stats not found")

type Store struct {
	c *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("completion_stats")}
}

// Increment applies a set of counter deltas to one stats document with a
// single $inc upsert. Keys are dotted counter paths relative to the document
// ("assignment.completed", "tasks.swr.started"). Atomicity of $inc is what
// keeps counts exact under concurrent writers; zero deltas are dropped so an
// empty map is a no-op.
func (s *Store) Increment(ctx context.Context, adminID, orgID string, deltas map[string]int64) error {
	inc := bson.M{}
	for path, d := range deltas {
		if d != 0 {
			inc[path] = d
		}
	}
	if len(inc) == 0 {
		return nil
	}
	_, err := s.c.UpdateByID(ctx, models.StatsID(adminID, orgID),
		bson.M{
			"$inc": inc,
			"$set": bson.M{"updated_at": time.Now().UTC()},
			"$setOnInsert": bson.M{
				"administration_id": adminID,
				"org_id":            orgID,
			},
		},
		options.Update().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("stats increment %s/%s: %w", adminID, orgID, err)
	}
	return nil
}

func (s *Store) Get(ctx context.Context, adminID, orgID string) (models.CompletionStats, error) {
	var st models.CompletionStats
	err := s.c.FindOne(ctx, bson.M{"_id": models.StatsID(adminID, orgID)}).Decode(&st)
	if err == mongo.ErrNoDocuments {
		return models.CompletionStats{}, fmt.Errorf("stats %s/%s: %w", adminID, orgID, ErrNotFound)
	}
	if err != nil {
		return models.CompletionStats{}, err
	}
	return st, nil
}

// ForAdministration returns every stats document for an administration,
// the per-org docs plus the total.
func (s *Store) ForAdministration(ctx context.Context, adminID string) ([]models.CompletionStats, error) {
	cur, err := s.c.Find(ctx, bson.M{"administration_id": adminID})
	if err != nil {
		return nil, err
	}
	var out []models.CompletionStats
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// DeleteForAdministration removes an administration's stats documents.
func (s *Store) DeleteForAdministration(ctx context.Context, adminID string) error {
	_, err := s.c.DeleteMany(ctx, bson.M{"administration_id": adminID})
	return err
}
