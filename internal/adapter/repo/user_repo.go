package repo

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"oracle/internal/domain"
)

// UserRepositoryPG implements domain.UserRepository backed by PostgreSQL.
type UserRepositoryPG struct {
	pool *pgxpool.Pool
	// startingCredits is granted once when a user row is first created.
	startingCredits int
}

// NewUserRepository creates a new UserRepositoryPG.
func NewUserRepository(pool *pgxpool.Pool, startingCredits int) *UserRepositoryPG {
	return &UserRepositoryPG{pool: pool, startingCredits: startingCredits}
}

const userColumns = `id, email, credits, credits_purchased, created_at, updated_at`

// Upsert creates the user on first sight and returns the current row.
func (r *UserRepositoryPG) Upsert(ctx context.Context, id string) (*domain.User, error) {
	row := r.pool.QueryRow(ctx, `
INSERT INTO users (id, credits)
VALUES ($1, $2)
ON CONFLICT (id) DO UPDATE SET updated_at = now()
RETURNING `+userColumns+`;
`, id, r.startingCredits)
	return scanUser(row)
}

// GetByID fetches a user by identifier.
func (r *UserRepositoryPG) GetByID(ctx context.Context, id string) (*domain.User, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id)
	return scanUser(row)
}

// ChargeCredits decrements the balance, clamping at zero.
func (r *UserRepositoryPG) ChargeCredits(ctx context.Context, id string, amount int) error {
	tag, err := r.pool.Exec(ctx, `
UPDATE users
SET credits = GREATEST(credits - $2, 0), updated_at = now()
WHERE id = $1;
`, id, amount)
	if err != nil {
		return fmt.Errorf("charge credits: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// RecordPurchase applies one payment event exactly once. The event id insert
// and the credit increment commit together; a replayed event id aborts the
// transaction before any ledger change.
func (r *UserRepositoryPG) RecordPurchase(ctx context.Context, eventID, eventType, userID string, amount int, email string) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin purchase tx: %w", err)
	}
	defer tx.Rollback(ctx)

	tag, err := tx.Exec(ctx, `
INSERT INTO webhook_events (id, type)
VALUES ($1, $2)
ON CONFLICT (id) DO NOTHING;
`, eventID, eventType)
	if err != nil {
		return fmt.Errorf("record webhook event: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrDuplicateEvent
	}

	// Single-statement upsert-and-increment keeps concurrent grants for
	// the same user from losing updates.
	if _, err := tx.Exec(ctx, `
INSERT INTO users (id, credits, credits_purchased, email)
VALUES ($1, $2, $2, $3)
ON CONFLICT (id) DO UPDATE SET
    credits = users.credits + EXCLUDED.credits,
    credits_purchased = users.credits_purchased + EXCLUDED.credits_purchased,
    email = EXCLUDED.email,
    updated_at = now();
`, userID, amount, email); err != nil {
		return fmt.Errorf("grant credits: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit purchase tx: %w", err)
	}
	return nil
}

func scanUser(row pgx.Row) (*domain.User, error) {
	var u domain.User
	if err := row.Scan(&u.ID, &u.Email, &u.Credits, &u.CreditsPurchased, &u.CreatedAt, &u.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return &u, nil
}
