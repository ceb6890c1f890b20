package txn

import (
	"errors"
	"testing"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
)

func TestIsNotSupported(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil error", nil, false},
		{"generic error", errors.New("boom"), false},
		{
			"command error code 20",
			mongo.CommandError{Code: 20, Message: "Transaction numbers are only allowed on a replica set member"},
			true,
		},
		{
			"command error code 51",
			mongo.CommandError{Code: 51, Message: "Illegal operation"},
			true,
		},
		{
			"command error code 263",
			mongo.CommandError{Code: 263, Message: "Cannot run in a multi-document transaction"},
			true,
		},
		{
			"unrelated command error code",
			mongo.CommandError{Code: 11600, Message: "interrupted at shutdown"},
			false,
		},
		{
			"replica set keyword match",
			errors.New("transaction failed: this node is not a replica set member"),
			true,
		},
		{
			"session unsupported keyword match",
			errors.New("session operations are not supported on this server"),
			true,
		},
		{
			"single keyword is not enough",
			errors.New("transaction aborted"),
			false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsNotSupported(tt.err); got != tt.want {
				t.Errorf("IsNotSupported(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}

func TestIsTransient(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil error", nil, false},
		{"generic error", errors.New("boom"), false},
		{
			"transient label",
			mongo.CommandError{Code: 24, Labels: []string{"TransientTransactionError"}},
			true,
		},
		{
			"write conflict code",
			mongo.CommandError{Code: 112, Message: "WriteConflict"},
			true,
		},
		{
			"no such transaction code",
			mongo.CommandError{Code: 251, Message: "NoSuchTransaction"},
			true,
		},
		{
			"permanent command error",
			mongo.CommandError{Code: 13, Message: "Unauthorized"},
			false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsTransient(tt.err); got != tt.want {
				t.Errorf("IsTransient(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}

func TestBackoffIsCapped(t *testing.T) {
	for attempt := 1; attempt <= MaxAttempts; attempt++ {
		d := backoff(attempt)
		if d <= 0 {
			t.Fatalf("attempt %d: backoff %v not positive", attempt, d)
		}
		if d > 300*time.Millisecond {
			t.Fatalf("attempt %d: backoff %v exceeds cap", attempt, d)
		}
	}
}
