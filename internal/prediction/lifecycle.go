// Package prediction implements the job lifecycle: deduplicated submission,
// status reads for polling, and the public listing.
package prediction

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"oracle/internal/domain"
	"oracle/internal/infra"
)

// Controller coordinates prediction job creation and reads against the
// job store. It holds no mutable state of its own; all shared state lives
// in the store.
type Controller struct {
	jobs   domain.JobRepository
	logger infra.Logger
}

// NewController creates a Controller.
func NewController(jobs domain.JobRepository, logger infra.Logger) *Controller {
	return &Controller{jobs: jobs, logger: logger}
}

// SubmitRequest carries raw submission input. Temperature arrives as the
// raw query string value; parsing it is part of the submission contract.
type SubmitRequest struct {
	Question    string
	ModelName   string
	Temperature string
	Public      bool
	UserID      string
}

// Submit deduplicates against the canonical PENDING/COMPLETE job for the
// request's fingerprint and returns it, creating a new PENDING job when no
// match exists. A dedup hit returns the existing job unchanged: no new
// charge, no state reset.
func (c *Controller) Submit(ctx context.Context, req SubmitRequest) (*domain.PredictionJob, error) {
	if strings.TrimSpace(req.UserID) == "" {
		return nil, fmt.Errorf("%w: userId is required", domain.ErrValidation)
	}
	temperature, err := strconv.Atoi(strings.TrimSpace(req.Temperature))
	if err != nil {
		return nil, fmt.Errorf("%w: temperature must be an integer", domain.ErrValidation)
	}

	fp := domain.NewFingerprint(req.Question, req.ModelName, temperature)
	job, created, err := c.jobs.FindOrCreate(ctx, fp, &domain.PredictionJob{
		ID:     uuid.NewString(),
		UserID: req.UserID,
		Public: req.Public,
	})
	if err != nil {
		return nil, fmt.Errorf("submit prediction: %w", err)
	}

	if created {
		c.logger.Info().
			Str("job_id", job.ID).
			Str("user_id", job.UserID).
			Str("model", job.ModelName).
			Msg("prediction job created")
	} else {
		c.logger.Debug().
			Str("job_id", job.ID).
			Str("state", string(job.State)).
			Msg("submission deduplicated to existing job")
	}
	return job, nil
}

// GetStatus returns the full current job record. It has no side effects
// and is safe to call repeatedly from the polling client.
func (c *Controller) GetStatus(ctx context.Context, jobID string) (*domain.PredictionJob, error) {
	return c.jobs.GetByID(ctx, jobID)
}

// ListPublicComplete returns summaries of all public COMPLETE jobs.
func (c *Controller) ListPublicComplete(ctx context.Context) ([]domain.JobSummary, error) {
	return c.jobs.ListPublicComplete(ctx)
}
