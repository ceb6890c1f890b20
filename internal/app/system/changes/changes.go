// internal/app/system/changes/changes.go

// Package changes turns document writes into typed lifecycle events.
//
// A Watcher tails one collection's change stream and invokes a handler with
// an Event carrying the before/after snapshots. Handlers dispatch on which
// side is present: created (no previous), updated (both), deleted (no
// current). Capturing the before image requires the collection to have
// changeStreamPreAndPostImages enabled; without it, updates arrive with a
// nil Previous and deletes with neither side, and handlers that need the
// previous state must tolerate that.
package changes

import (
	"context"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

// Kind classifies a document lifecycle event.
type Kind int

const (
	Created Kind = iota
	Updated
	Deleted
)

// Event is one document write with its before/after snapshots. Either side
// may be absent.
type Event[T any] struct {
	Key      string
	Previous *T
	Current  *T
}

// Kind reports the three-way classification of the event.
func (e Event[T]) Kind() Kind {
	switch {
	case e.Previous == nil:
		return Created
	case e.Current == nil:
		return Deleted
	default:
		return Updated
	}
}

// Handler processes one event. A returned error is retried in place with
// backoff; an event that still fails after handlerAttempts is logged and
// skipped.
type Handler[T any] func(ctx context.Context, ev Event[T]) error

// handlerAttempts bounds the in-place retries of a failing handler. Store
// blips recover well before the cap; a handler still failing on the last
// attempt has its event dropped rather than wedging the stream.
const handlerAttempts = 5

// Watcher tails one collection and feeds events to a handler. The resume
// token advances only past handled events, so a restart replays anything
// interrupted mid-handle.
type Watcher[T any] struct {
	coll    *mongo.Collection
	handler Handler[T]
	backoff time.Duration
	log     *zap.Logger

	stopCh chan struct{}
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewWatcher builds a watcher over coll. Call Start to begin tailing.
func NewWatcher[T any](coll *mongo.Collection, handler Handler[T], log *zap.Logger) *Watcher[T] {
	return &Watcher[T]{
		coll:    coll,
		handler: handler,
		backoff: 2 * time.Second,
		log:     log.With(zap.String("collection", coll.Name())),
		stopCh:  make(chan struct{}),
	}
}

// Start begins tailing the change stream in a background goroutine.
func (w *Watcher[T]) Start() {
	ctx, cancel := context.WithCancel(context.Background())
	w.cancel = cancel
	w.wg.Add(1)
	go w.run(ctx)
	w.log.Info("change watcher started")
}

// Stop signals the watcher to stop and waits for it to finish.
func (w *Watcher[T]) Stop() {
	close(w.stopCh)
	if w.cancel != nil {
		w.cancel()
	}
	w.wg.Wait()
	w.log.Info("change watcher stopped")
}

// changeDoc is the raw change-stream document shape we decode.
type changeDoc[T any] struct {
	OperationType string `bson:"operationType"`
	DocumentKey   struct {
		ID string `bson:"_id"`
	} `bson:"documentKey"`
	FullDocument             *T `bson:"fullDocument,omitempty"`
	FullDocumentBeforeChange *T `bson:"fullDocumentBeforeChange,omitempty"`
}

func (w *Watcher[T]) run(ctx context.Context) {
	defer w.wg.Done()

	var resumeToken bson.Raw
	for {
		select {
		case <-w.stopCh:
			return
		default:
		}

		opts := options.ChangeStream().
			SetFullDocument(options.UpdateLookup).
			SetFullDocumentBeforeChange(options.WhenAvailable)
		if resumeToken != nil {
			opts.SetResumeAfter(resumeToken)
		}
		pipeline := mongo.Pipeline{
			bson.D{{Key: "$match", Value: bson.M{
				"operationType": bson.M{"$in": []string{"insert", "update", "replace", "delete"}},
			}}},
		}

		cs, err := w.coll.Watch(ctx, pipeline, opts)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			w.log.Error("change stream open failed, retrying", zap.Error(err))
			// A stale resume token (dropped oplog window) cannot recover;
			// restart from now.
			resumeToken = nil
			select {
			case <-w.stopCh:
				return
			case <-time.After(5 * time.Second):
			}
			continue
		}

		for cs.Next(ctx) {
			var doc changeDoc[T]
			if err := cs.Decode(&doc); err != nil {
				w.log.Error("change event decode failed", zap.Error(err))
				continue
			}

			ev := Event[T]{Key: doc.DocumentKey.ID}
			switch doc.OperationType {
			case "insert":
				ev.Current = doc.FullDocument
			case "delete":
				ev.Previous = doc.FullDocumentBeforeChange
			default:
				ev.Previous = doc.FullDocumentBeforeChange
				ev.Current = doc.FullDocument
			}
			if ev.Previous == nil && ev.Current == nil {
				// Delete without a pre-image; nothing a handler can do.
				w.log.Warn("change event with no snapshots", zap.String("key", ev.Key))
				resumeToken = cs.ResumeToken()
				continue
			}

			if err := w.handle(ctx, ev, doc.OperationType); err != nil {
				if ctx.Err() != nil {
					// Interrupted mid-handle; the unsaved token replays the
					// event on restart.
					return
				}
				w.log.Error("change handler gave up, skipping event",
					zap.String("key", ev.Key),
					zap.String("op", doc.OperationType),
					zap.Error(err))
			}
			resumeToken = cs.ResumeToken()
		}
		if err := cs.Err(); err != nil && ctx.Err() == nil {
			w.log.Warn("change stream interrupted, resuming", zap.Error(err))
		}
		_ = cs.Close(context.Background())

		if ctx.Err() != nil {
			return
		}
	}
}

// handle invokes the handler, retrying transient failures with linear
// backoff up to handlerAttempts.
func (w *Watcher[T]) handle(ctx context.Context, ev Event[T], op string) error {
	var err error
	for attempt := 1; ; attempt++ {
		if err = w.handler(ctx, ev); err == nil {
			return nil
		}
		if attempt == handlerAttempts || ctx.Err() != nil {
			return err
		}
		w.log.Warn("change handler failed, retrying",
			zap.String("key", ev.Key),
			zap.String("op", op),
			zap.Int("attempt", attempt),
			zap.Error(err))
		select {
		case <-w.stopCh:
			return err
		case <-time.After(time.Duration(attempt) * w.backoff):
		}
	}
}
