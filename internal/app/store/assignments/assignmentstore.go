// internal/app/store/assignments/assignmentstore.go
package assignmentstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dalemusser/cohorthub/internal/app/system/limits"
	"github.com/dalemusser/cohorthub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

var ErrNotFound = errors.New("assignment not found")

type Store struct {
	c *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("assignments")}
}

func (s *Store) Get(ctx context.Context, userID, administrationID string) (models.Assignment, error) {
	return s.GetByID(ctx, models.AssignmentID(userID, administrationID))
}

func (s *Store) GetByID(ctx context.Context, id string) (models.Assignment, error) {
	var a models.Assignment
	err := s.c.FindOne(ctx, bson.M{"_id": id}).Decode(&a)
	if err == mongo.ErrNoDocuments {
		return models.Assignment{}, fmt.Errorf("assignment %q: %w", id, ErrNotFound)
	}
	if err != nil {
		return models.Assignment{}, err
	}
	return a, nil
}

// Upsert writes the full assignment document, creating it when absent.
func (s *Store) Upsert(ctx context.Context, a models.Assignment) error {
	now := time.Now().UTC()
	if a.CreatedAt.IsZero() {
		a.CreatedAt = now
	}
	a.UpdatedAt = now
	_, err := s.c.ReplaceOne(ctx, bson.M{"_id": a.ID}, a, options.Replace().SetUpsert(true))
	return err
}

// UpsertSynced is Upsert with the sync marker stamped, for writes made by
// handlers that also watch this collection.
func (s *Store) UpsertSynced(ctx context.Context, a models.Assignment) error {
	a.LastSynced = time.Now().UTC()
	return s.Upsert(ctx, a)
}

func (s *Store) Delete(ctx context.Context, id string) error {
	_, err := s.c.DeleteOne(ctx, bson.M{"_id": id})
	return err
}

// ForEachByAdministration streams every assignment for an administration in
// _id order, paginated so a large administration never materializes at once.
func (s *Store) ForEachByAdministration(ctx context.Context, administrationID string, fn func(models.Assignment) error) error {
	cursor := ""
	for {
		filter := bson.M{"administration_id": administrationID}
		if cursor != "" {
			filter["_id"] = bson.M{"$gt": cursor}
		}
		opts := options.Find().
			SetSort(bson.D{{Key: "_id", Value: 1}}).
			SetLimit(int64(limits.QueryPage))

		cur, err := s.c.Find(ctx, filter, opts)
		if err != nil {
			return err
		}
		var page []models.Assignment
		if err := cur.All(ctx, &page); err != nil {
			return err
		}
		for _, a := range page {
			cursor = a.ID
			if err := fn(a); err != nil {
				return err
			}
		}
		if len(page) < limits.QueryPage {
			return nil
		}
	}
}

// Mutation is one pending assignment write collected by the reconciler.
type Mutation struct {
	Upsert *models.Assignment
	Delete string // assignment _id
}

// ApplyBatch executes mutations in chunks of at most limits.MaxTxnWrites,
// each chunk as one unordered bulk write. Callers wanting transactional
// chunks wrap this in txn.Run.
func (s *Store) ApplyBatch(ctx context.Context, muts []Mutation) error {
	now := time.Now().UTC()
	for start := 0; start < len(muts); start += limits.MaxTxnWrites {
		end := start + limits.MaxTxnWrites
		if end > len(muts) {
			end = len(muts)
		}
		var ops []mongo.WriteModel
		for _, m := range muts[start:end] {
			switch {
			case m.Upsert != nil:
				a := *m.Upsert
				if a.CreatedAt.IsZero() {
					a.CreatedAt = now
				}
				a.UpdatedAt = now
				ops = append(ops, mongo.NewReplaceOneModel().
					SetFilter(bson.M{"_id": a.ID}).
					SetReplacement(a).
					SetUpsert(true))
			case m.Delete != "":
				ops = append(ops, mongo.NewDeleteOneModel().
					SetFilter(bson.M{"_id": m.Delete}))
			}
		}
		if len(ops) == 0 {
			continue
		}
		if _, err := s.c.BulkWrite(ctx, ops, options.BulkWrite().SetOrdered(false)); err != nil {
			return fmt.Errorf("assignment batch: %w", err)
		}
	}
	return nil
}

// IDsByAdministration returns every assignment _id for an administration.
// Used by the delete flow, which must reach users who have since left the
// administration's orgs.
func (s *Store) IDsByAdministration(ctx context.Context, administrationID string) ([]string, error) {
	opts := options.Find().SetProjection(bson.M{"_id": 1})
	cur, err := s.c.Find(ctx, bson.M{"administration_id": administrationID}, opts)
	if err != nil {
		return nil, err
	}
	var docs []struct {
		ID string `bson:"_id"`
	}
	if err := cur.All(ctx, &docs); err != nil {
		return nil, err
	}
	out := make([]string, len(docs))
	for i, d := range docs {
		out[i] = d.ID
	}
	return out, nil
}

// ForUser returns a user's assignments, optionally only those whose
// administration is still open at now.
func (s *Store) ForUser(ctx context.Context, userID string, openOnly bool, now time.Time) ([]models.Assignment, error) {
	filter := bson.M{"user_id": userID}
	if openOnly {
		filter["summary.date_closed"] = bson.M{"$gt": now}
	}
	cur, err := s.c.Find(ctx, filter)
	if err != nil {
		return nil, err
	}
	var out []models.Assignment
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}
