// internal/app/system/queue/queue.go

// Package queue is a Mongo-backed work queue for fan-out sync tasks.
//
// Delivery is at least once: a worker leases a pending task with an atomic
// FindOneAndUpdate, and a crashed worker's lease simply expires and the task
// is claimed again. Task processing must therefore be idempotent, which the
// reconciler guarantees per user.
package queue

import (
	"context"
	"time"

	"github.com/dalemusser/cohorthub/internal/domain/models"
	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

// RetryPolicy controls redelivery of a task after handler failure.
type RetryPolicy struct {
	MaxAttempts int           // give up after this many deliveries
	BaseBackoff time.Duration // first retry delay; doubles each attempt
	MaxBackoff  time.Duration // cap on the delay
	Deadline    time.Duration // max dispatch window from enqueue time
}

// DefaultRetryPolicy suits large administration fan-outs: a generous
// dispatch window with quickly-growing backoff.
var DefaultRetryPolicy = RetryPolicy{
	MaxAttempts: 8,
	BaseBackoff: 5 * time.Second,
	MaxBackoff:  5 * time.Minute,
	Deadline:    30 * time.Minute,
}

// Backoff returns the delay before redelivering a task that has been
// attempted `attempt` times already.
func (p RetryPolicy) Backoff(attempt int) time.Duration {
	d := p.BaseBackoff
	for i := 1; i < attempt; i++ {
		d *= 2
		if d >= p.MaxBackoff {
			return p.MaxBackoff
		}
	}
	if d > p.MaxBackoff {
		d = p.MaxBackoff
	}
	return d
}

// Queue persists sync tasks in the sync_tasks collection.
type Queue struct {
	c   *mongo.Collection
	log *zap.Logger
}

// New builds a Queue over db's sync_tasks collection.
func New(db *mongo.Database, log *zap.Logger) *Queue {
	return &Queue{c: db.Collection("sync_tasks"), log: log}
}

// Enqueue persists one task for asynchronous processing. A zero task ID is
// assigned a fresh UUID; callers that pass their own ID get de-duplication
// on redundant dispatch (duplicate key errors are ignored).
func (q *Queue) Enqueue(ctx context.Context, task models.SyncTask, policy RetryPolicy) error {
	now := time.Now().UTC()
	if task.ID == "" {
		task.ID = uuid.NewString()
	}
	task.Status = models.TaskPending
	task.Attempts = 0
	task.MaxAttempts = policy.MaxAttempts
	if task.NotBefore.IsZero() {
		task.NotBefore = now
	}
	task.Deadline = now.Add(policy.Deadline)
	task.EnqueuedAt = now
	task.UpdatedAt = now

	_, err := q.c.InsertOne(ctx, task)
	if mongo.IsDuplicateKeyError(err) {
		q.log.Debug("sync task already enqueued", zap.String("task_id", task.ID))
		return nil
	}
	return err
}

// Claim leases the oldest runnable pending task for the given duration.
// Returns (nil, nil) when nothing is runnable.
func (q *Queue) Claim(ctx context.Context, lease time.Duration) (*models.SyncTask, error) {
	now := time.Now().UTC()
	filter := bson.M{
		"status":     models.TaskPending,
		"not_before": bson.M{"$lte": now},
		"$or": []bson.M{
			{"lease_until": bson.M{"$lte": now}},
			{"lease_until": bson.M{"$exists": false}},
		},
	}
	update := bson.M{
		"$set": bson.M{"lease_until": now.Add(lease), "updated_at": now},
		"$inc": bson.M{"attempts": 1},
	}
	opts := options.FindOneAndUpdate().
		SetSort(bson.D{{Key: "not_before", Value: 1}}).
		SetReturnDocument(options.After)

	var task models.SyncTask
	err := q.c.FindOneAndUpdate(ctx, filter, update, opts).Decode(&task)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &task, nil
}

// Done marks a task as successfully processed.
func (q *Queue) Done(ctx context.Context, id string) error {
	now := time.Now().UTC()
	_, err := q.c.UpdateByID(ctx, id, bson.M{
		"$set": bson.M{"status": models.TaskDone, "updated_at": now},
	})
	return err
}

// Retry schedules a failed task for redelivery after the policy backoff, or
// marks it permanently failed when attempts or the dispatch deadline are
// exhausted.
func (q *Queue) Retry(ctx context.Context, task models.SyncTask, policy RetryPolicy, cause error) error {
	now := time.Now().UTC()
	next := now.Add(policy.Backoff(task.Attempts))

	exhausted := task.Attempts >= task.MaxAttempts || next.After(task.Deadline)
	set := bson.M{
		"updated_at": now,
		"last_error": cause.Error(),
	}
	if exhausted {
		set["status"] = models.TaskFailed
		q.log.Error("sync task permanently failed",
			zap.String("task_id", task.ID),
			zap.String("administration_id", task.AdministrationID),
			zap.Int("attempts", task.Attempts),
			zap.Error(cause))
	} else {
		set["not_before"] = next
		set["lease_until"] = now
	}
	_, err := q.c.UpdateByID(ctx, task.ID, bson.M{"$set": set})
	return err
}

// PendingCount reports how many tasks are still pending for an
// administration; useful in tests and the stats endpoint.
func (q *Queue) PendingCount(ctx context.Context, administrationID string) (int64, error) {
	return q.c.CountDocuments(ctx, bson.M{
		"administration_id": administrationID,
		"status":            models.TaskPending,
	})
}
