// internal/app/system/txn/txn.go
package txn

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// MaxAttempts bounds how many times Run retries a conflicting transaction.
// Sibling transactions frequently touch the same stats documents, so the
// bound is deliberately generous.
const MaxAttempts = 256

// Run executes fn inside a multi-document transaction with bounded,
// conflict-driven retries. On servers without transaction support
// (standalone mongod, some DocumentDB deployments) it falls back to running
// fn directly; every store mutation is individually safe, so the fallback
// only loses atomicity across documents, not correctness of single writes.
func Run(ctx context.Context, client *mongo.Client, log *zap.Logger, fn func(ctx context.Context) error) error {
	sess, err := client.StartSession()
	if err != nil {
		if IsNotSupported(err) {
			return fn(ctx)
		}
		return err
	}
	defer sess.EndSession(ctx)

	for attempt := 1; ; attempt++ {
		_, err = sess.WithTransaction(ctx, func(sc mongo.SessionContext) (interface{}, error) {
			return nil, fn(sc)
		})
		if err == nil {
			return nil
		}
		if IsNotSupported(err) {
			log.Debug("transactions unsupported, running without one", zap.Error(err))
			return fn(ctx)
		}
		if !IsTransient(err) {
			return err
		}
		if attempt >= MaxAttempts {
			return fmt.Errorf("transaction retries exhausted after %d attempts: %w", MaxAttempts, err)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff(attempt)):
		}
	}
}

// backoff returns a capped, jittered delay for the given attempt.
func backoff(attempt int) time.Duration {
	d := time.Duration(attempt) * 2 * time.Millisecond
	if d > 250*time.Millisecond {
		d = 250 * time.Millisecond
	}
	return d + time.Duration(rand.Int63n(int64(2*time.Millisecond)))
}

// IsTransient reports whether the error is a retryable transaction conflict.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	var ce mongo.CommandError
	if errors.As(err, &ce) {
		if ce.HasErrorLabel("TransientTransactionError") {
			return true
		}
		// 112 = WriteConflict, 251 = NoSuchTransaction
		if ce.Code == 112 || ce.Code == 251 {
			return true
		}
	}
	var we mongo.WriteException
	if errors.As(err, &we) {
		for _, label := range we.Labels {
			if label == "TransientTransactionError" {
				return true
			}
		}
	}
	return false
}

// IsNotSupported reports whether the error indicates the server cannot run
// multi-document transactions at all (not a replica set, or the command is
// unavailable on this deployment).
func IsNotSupported(err error) bool {
	if err == nil {
		return false
	}
	var ce mongo.CommandError
	if errors.As(err, &ce) {
		// 20 = IllegalOperation on standalones, 51 = illegal op variant,
		// 263 = operation not permitted in transaction
		switch ce.Code {
		case 20, 51, 263:
			return true
		}
	}
	msg := strings.ToLower(err.Error())
	pairs := [][2]string{
		{"transaction", "replica set"},
		{"session", "not supported"},
		{"transaction", "session"},
		{"illegal operation", "transaction"},
	}
	for _, p := range pairs {
		if strings.Contains(msg, p[0]) && strings.Contains(msg, p[1]) {
			return true
		}
	}
	return false
}
