// internal/app/store/runs/runstore.go
package runstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dalemusser/cohorthub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

var ErrNotFound = errors.New("run not found")

type Store struct {
	c *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("runs")}
}

func (s *Store) GetByID(ctx context.Context, id string) (models.Run, error) {
	var r models.Run
	err := s.c.FindOne(ctx, bson.M{"_id": id}).Decode(&r)
	if err == mongo.ErrNoDocuments {
		return models.Run{}, fmt.Errorf("run %q: %w", id, ErrNotFound)
	}
	if err != nil {
		return models.Run{}, err
	}
	return r, nil
}

// ByTask returns every run for one (user, assignment, task) triple. The
// selector re-evaluates the whole sibling set on each run write.
func (s *Store) ByTask(ctx context.Context, userID, assignmentID, taskID string) ([]models.Run, error) {
	cur, err := s.c.Find(ctx, bson.M{
		"user_id":       userID,
		"assignment_id": assignmentID,
		"task_id":       taskID,
	})
	if err != nil {
		return nil, err
	}
	var out []models.Run
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// SetBestRun flips the BestRun flag on the winner and clears it on every
// sibling in one pass, stamping last_synced so the run watcher skips the
// resulting change events.
func (s *Store) SetBestRun(ctx context.Context, userID, assignmentID, taskID, bestRunID string) error {
	now := time.Now().UTC()
	sibling := bson.M{
		"user_id":       userID,
		"assignment_id": assignmentID,
		"task_id":       taskID,
	}

	clear := bson.M{}
	for k, v := range sibling {
		clear[k] = v
	}
	clear["_id"] = bson.M{"$ne": bestRunID}
	clear["best_run"] = true
	if _, err := s.c.UpdateMany(ctx, clear, bson.M{
		"$set": bson.M{"best_run": false, "last_synced": now},
	}); err != nil {
		return fmt.Errorf("clear best run: %w", err)
	}

	if bestRunID == "" {
		return nil
	}
	res, err := s.c.UpdateByID(ctx, bestRunID, bson.M{
		"$set": bson.M{"best_run": true, "last_synced": now},
	})
	if err != nil {
		return fmt.Errorf("set best run: %w", err)
	}
	if res.MatchedCount == 0 {
		return fmt.Errorf("run %q: %w", bestRunID, ErrNotFound)
	}
	return nil
}

func (s *Store) Insert(ctx context.Context, r models.Run) error {
	_, err := s.c.InsertOne(ctx, r)
	return err
}
