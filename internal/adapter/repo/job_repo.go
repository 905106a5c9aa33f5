package repo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"oracle/internal/domain"
)

// JobRepositoryPG implements domain.JobRepository.
type JobRepositoryPG struct {
	pool *pgxpool.Pool
}

// NewJobRepository creates a new job repository backed by PostgreSQL.
func NewJobRepository(pool *pgxpool.Pool) *JobRepositoryPG {
	return &JobRepositoryPG{pool: pool}
}

const jobColumns = `id, user_id, question, model_name, model_temperature, public, state, result_probability, error_message, credit_cost, created_at, updated_at`

// FindOrCreate returns the canonical PENDING/COMPLETE job for the
// fingerprint, inserting job when none exists. Lookup and insert run in one
// transaction under a per-fingerprint advisory lock, so two concurrent
// submissions of the same question cannot both insert.
func (r *JobRepositoryPG) FindOrCreate(ctx context.Context, fp domain.Fingerprint, job *domain.PredictionJob) (*domain.PredictionJob, bool, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, false, fmt.Errorf("begin dedup tx: %w", err)
	}
	defer tx.Rollback(ctx)

	lockKey := fmt.Sprintf("%s|%s|%d", fp.Question, fp.ModelName, fp.ModelTemperature)
	if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtext($1))`, lockKey); err != nil {
		return nil, false, fmt.Errorf("acquire fingerprint lock: %w", err)
	}

	row := tx.QueryRow(ctx, `
SELECT `+jobColumns+`
FROM prediction_jobs
WHERE question = $1
  AND model_name = $2
  AND model_temperature = $3
  AND state IN ('PENDING', 'COMPLETE')
ORDER BY created_at ASC
LIMIT 1;
`, fp.Question, fp.ModelName, fp.ModelTemperature)

	existing, err := scanJob(row)
	switch {
	case err == nil:
		if err := tx.Commit(ctx); err != nil {
			return nil, false, fmt.Errorf("commit dedup tx: %w", err)
		}
		return existing, false, nil
	case !errors.Is(err, domain.ErrNotFound):
		return nil, false, err
	}

	row = tx.QueryRow(ctx, `
INSERT INTO prediction_jobs (id, user_id, question, model_name, model_temperature, public, state, result_probability)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
RETURNING `+jobColumns+`;
`,
		job.ID,
		job.UserID,
		fp.Question,
		fp.ModelName,
		fp.ModelTemperature,
		job.Public,
		domain.JobStatePending,
		domain.DefaultProbability,
	)
	created, err := scanJob(row)
	if err != nil {
		return nil, false, fmt.Errorf("insert job: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, false, fmt.Errorf("commit dedup tx: %w", err)
	}
	return created, true, nil
}

// GetByID fetches a job and its ordered log lines.
func (r *JobRepositoryPG) GetByID(ctx context.Context, id string) (*domain.PredictionJob, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+jobColumns+` FROM prediction_jobs WHERE id = $1`, id)
	job, err := scanJob(row)
	if err != nil {
		return nil, err
	}

	rows, err := r.pool.Query(ctx, `SELECT log_text FROM prediction_job_logs WHERE job_id = $1 ORDER BY id ASC`, id)
	if err != nil {
		return nil, fmt.Errorf("load job logs: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var line string
		if err := rows.Scan(&line); err != nil {
			return nil, fmt.Errorf("scan job log: %w", err)
		}
		job.Logs = append(job.Logs, line)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate job logs: %w", err)
	}
	return job, nil
}

// ListPublicComplete returns public COMPLETE jobs, newest first.
func (r *JobRepositoryPG) ListPublicComplete(ctx context.Context) ([]domain.JobSummary, error) {
	rows, err := r.pool.Query(ctx, `
SELECT id, state, question, result_probability, model_name, credit_cost
FROM prediction_jobs
WHERE public AND state = 'COMPLETE'
ORDER BY created_at DESC;
`)
	if err != nil {
		return nil, fmt.Errorf("list public jobs: %w", err)
	}
	defer rows.Close()

	var summaries []domain.JobSummary
	for rows.Next() {
		var s domain.JobSummary
		if err := rows.Scan(&s.ID, &s.State, &s.Question, &s.ResultProbability, &s.ModelName, &s.CreditCost); err != nil {
			return nil, fmt.Errorf("scan job summary: %w", err)
		}
		summaries = append(summaries, s)
	}
	return summaries, rows.Err()
}

// ClaimPending atomically flips the oldest PENDING job to RUNNING and
// returns it. SKIP LOCKED keeps concurrent workers off the same row.
func (r *JobRepositoryPG) ClaimPending(ctx context.Context) (*domain.PredictionJob, error) {
	row := r.pool.QueryRow(ctx, `
WITH next_job AS (
    SELECT id
    FROM prediction_jobs
    WHERE state = 'PENDING'
    ORDER BY created_at ASC
    FOR UPDATE SKIP LOCKED
    LIMIT 1
),
updated AS (
    UPDATE prediction_jobs
    SET state = 'RUNNING', updated_at = now()
    WHERE id IN (SELECT id FROM next_job)
    RETURNING `+jobColumns+`
)
SELECT * FROM updated;
`)
	return scanJob(row)
}

// Complete marks a RUNNING job COMPLETE with its probability and charge.
func (r *JobRepositoryPG) Complete(ctx context.Context, id string, probability, creditCost int) error {
	tag, err := r.pool.Exec(ctx, `
UPDATE prediction_jobs
SET state = 'COMPLETE', result_probability = $2, credit_cost = $3, updated_at = now()
WHERE id = $1 AND state = 'RUNNING';
`, id, probability, creditCost)
	if err != nil {
		return fmt.Errorf("complete job: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// Fail marks a non-terminal job ERROR with a user-facing message.
func (r *JobRepositoryPG) Fail(ctx context.Context, id string, message string) error {
	tag, err := r.pool.Exec(ctx, `
UPDATE prediction_jobs
SET state = 'ERROR', error_message = $2, updated_at = now()
WHERE id = $1 AND state IN ('PENDING', 'RUNNING');
`, id, message)
	if err != nil {
		return fmt.Errorf("fail job: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// AppendLog adds one line to a job's ordered log.
func (r *JobRepositoryPG) AppendLog(ctx context.Context, id string, line string) error {
	_, err := r.pool.Exec(ctx, `INSERT INTO prediction_job_logs (job_id, log_text) VALUES ($1, $2)`, id, line)
	if err != nil {
		return fmt.Errorf("append job log: %w", err)
	}
	return nil
}

// CountCompletedDemo counts zero-cost COMPLETE jobs created since the cutoff.
func (r *JobRepositoryPG) CountCompletedDemo(ctx context.Context, since time.Time) (int, error) {
	var count int
	err := r.pool.QueryRow(ctx, `
SELECT COUNT(*)
FROM prediction_jobs
WHERE credit_cost = 0 AND state = 'COMPLETE' AND created_at >= $1;
`, since).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count demo jobs: %w", err)
	}
	return count, nil
}

func scanJob(row pgx.Row) (*domain.PredictionJob, error) {
	var job domain.PredictionJob
	if err := row.Scan(
		&job.ID,
		&job.UserID,
		&job.Question,
		&job.ModelName,
		&job.ModelTemperature,
		&job.Public,
		&job.State,
		&job.ResultProbability,
		&job.ErrorMessage,
		&job.CreditCost,
		&job.CreatedAt,
		&job.UpdatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return &job, nil
}
