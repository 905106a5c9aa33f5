// Package worker runs the prediction loop: it claims PENDING jobs, drives
// them through the RUNNING state, and writes terminal results back to the
// job store. The HTTP layer never observes these transitions directly;
// clients see them through polling reads.
package worker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"oracle/internal/domain"
	"oracle/internal/infra"
	"oracle/internal/predictor"
)

// Worker claims and executes prediction jobs one at a time.
type Worker struct {
	jobs             domain.JobRepository
	users            domain.UserRepository
	runner           predictor.Runner
	logger           infra.Logger
	pollInterval     time.Duration
	maxDailyDemoUses int
	now              func() time.Time
}

// New creates a Worker.
func New(jobs domain.JobRepository, users domain.UserRepository, runner predictor.Runner, logger infra.Logger, pollInterval time.Duration, maxDailyDemoUses int) *Worker {
	return &Worker{
		jobs:             jobs,
		users:            users,
		runner:           runner,
		logger:           logger,
		pollInterval:     pollInterval,
		maxDailyDemoUses: maxDailyDemoUses,
		now:              time.Now,
	}
}

// Run loops until the context is cancelled, sleeping between claim
// attempts when no job is available.
func (w *Worker) Run(ctx context.Context) error {
	w.logger.Info().Msg("worker: started")
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		job, err := w.jobs.ClaimPending(ctx)
		if err != nil {
			if !errors.Is(err, domain.ErrNotFound) {
				w.logger.Error().Err(err).Msg("worker: failed to claim job")
			}
			if err := w.sleep(ctx); err != nil {
				return err
			}
			continue
		}

		w.runJob(ctx, job)
	}
}

func (w *Worker) sleep(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(w.pollInterval):
		return nil
	}
}

// runJob executes one claimed job to a terminal state. The job is already
// RUNNING when it arrives here.
func (w *Worker) runJob(ctx context.Context, job *domain.PredictionJob) {
	user, err := w.users.Upsert(ctx, job.UserID)
	if err != nil {
		w.logger.Error().Err(err).Str("job_id", job.ID).Msg("worker: load user failed")
		w.fail(ctx, job.ID, "Internal error loading user account.")
		return
	}

	w.logger.Info().
		Str("job_id", job.ID).
		Str("user_id", user.ID).
		Int("credits", user.Credits).
		Str("question", job.Question).
		Msg("worker: picked job")

	model, ok := predictor.Lookup(job.ModelName)
	if !ok {
		w.fail(ctx, job.ID, fmt.Sprintf("Model %s is not supported.", job.ModelName))
		return
	}

	isDemo := user.Credits < model.Cost
	if isDemo {
		if !model.DemoSupported {
			w.fail(ctx, job.ID, fmt.Sprintf("Sorry, model `%s` is not supported in demo mode, change models or buy predictions and retry.", job.ModelName))
			return
		}
		demoUses, err := w.jobs.CountCompletedDemo(ctx, w.now().Add(-24*time.Hour))
		if err != nil {
			w.logger.Error().Err(err).Str("job_id", job.ID).Msg("worker: count demo uses failed")
			w.fail(ctx, job.ID, "Internal error checking demo quota.")
			return
		}
		if demoUses > w.maxDailyDemoUses {
			w.fail(ctx, job.ID, "The daily limit of free uses has run out, buy more predictions or try again tomorrow.")
			return
		}
		w.logger.Info().Int("demo_uses", demoUses).Int("max", w.maxDailyDemoUses).Msg("worker: running in demo mode")
	}

	logf := func(line string) {
		if err := w.jobs.AppendLog(ctx, job.ID, line); err != nil {
			w.logger.Warn().Err(err).Str("job_id", job.ID).Msg("worker: append log failed")
		}
	}

	probability, err := w.runner.Run(ctx, float64(job.ModelTemperature)/100, job.Question, logf)
	if err != nil {
		w.logger.Error().Err(err).Str("job_id", job.ID).Msg("worker: run failed")
		w.fail(ctx, job.ID, fmt.Sprintf("Exception: %v", err))
		return
	}

	creditCost := model.Cost
	if isDemo {
		creditCost = 0
	}
	if err := w.jobs.Complete(ctx, job.ID, probability, creditCost); err != nil {
		w.logger.Error().Err(err).Str("job_id", job.ID).Msg("worker: complete job failed")
		return
	}
	if !isDemo {
		if err := w.users.ChargeCredits(ctx, user.ID, model.Cost); err != nil {
			w.logger.Error().Err(err).Str("job_id", job.ID).Str("user_id", user.ID).Msg("worker: charge credits failed")
		}
	}

	w.logger.Info().
		Str("job_id", job.ID).
		Int("probability", probability).
		Int("credit_cost", creditCost).
		Msg("worker: job complete")
}

func (w *Worker) fail(ctx context.Context, jobID, message string) {
	if err := w.jobs.Fail(ctx, jobID, message); err != nil {
		w.logger.Error().Err(err).Str("job_id", jobID).Msg("worker: mark job failed errored")
	}
}
