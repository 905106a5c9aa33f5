package domain

import (
	"context"
	"time"
)

// JobRepository defines persistence for prediction jobs.
type JobRepository interface {
	// FindOrCreate returns the canonical job for the fingerprint (state
	// PENDING or COMPLETE) if one exists, otherwise persists job and
	// returns it. The lookup and insert must be atomic with respect to
	// concurrent submissions of the same fingerprint. The boolean reports
	// whether a new job was created.
	FindOrCreate(ctx context.Context, fp Fingerprint, job *PredictionJob) (*PredictionJob, bool, error)
	// GetByID fetches a job with its log lines. Returns ErrNotFound when
	// no job has that id.
	GetByID(ctx context.Context, id string) (*PredictionJob, error)
	// ListPublicComplete returns public COMPLETE jobs, newest first.
	ListPublicComplete(ctx context.Context) ([]JobSummary, error)
	// ClaimPending atomically claims one PENDING job, transitioning it to
	// RUNNING. Returns ErrNotFound when no job is claimable.
	ClaimPending(ctx context.Context) (*PredictionJob, error)
	// Complete marks a RUNNING job COMPLETE with its probability and cost.
	Complete(ctx context.Context, id string, probability, creditCost int) error
	// Fail marks a job ERROR with a user-facing message.
	Fail(ctx context.Context, id string, message string) error
	// AppendLog adds one log line to a job's ordered log.
	AppendLog(ctx context.Context, id string, line string) error
	// CountCompletedDemo counts COMPLETE zero-cost jobs created since the
	// cutoff; used to cap free demo runs.
	CountCompletedDemo(ctx context.Context, since time.Time) (int, error)
}

// UserRepository defines the credit ledger.
type UserRepository interface {
	// Upsert creates the user on first sight and returns the current row
	// either way.
	Upsert(ctx context.Context, id string) (*User, error)
	// GetByID returns ErrNotFound for unknown users.
	GetByID(ctx context.Context, id string) (*User, error)
	// ChargeCredits atomically decrements the balance by amount. The
	// balance never goes below zero.
	ChargeCredits(ctx context.Context, id string, amount int) error
	// RecordPurchase applies one payment event in a single transaction:
	// remembers the event id, upserts the user, increments credits and
	// credits_purchased by amount, and stores the buyer's email. Returns
	// ErrDuplicateEvent when the event id was already reconciled, leaving
	// the ledger untouched. The increment must be race-safe under
	// concurrent deliveries targeting the same user.
	RecordPurchase(ctx context.Context, eventID, eventType, userID string, amount int, email string) error
}
