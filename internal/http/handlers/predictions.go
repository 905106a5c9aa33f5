package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"oracle/internal/domain"
	"oracle/internal/prediction"
)

// snapshotTTL bounds how long a terminal snapshot may live in the cache.
// Terminal jobs never change, so the TTL only limits cache growth.
const snapshotTTL = 24 * time.Hour

type jobSnapshot struct {
	ID                string          `json:"id"`
	State             domain.JobState `json:"state"`
	Question          string          `json:"question"`
	ModelName         string          `json:"modelName"`
	ResultProbability int             `json:"resultProbability"`
	ErrorMessage      string          `json:"errorMessage"`
	Logs              []string        `json:"logs"`
	CreditCost        *int            `json:"creditCost"`
	CreatedAt         time.Time       `json:"createdAt"`
}

func newJobSnapshot(job *domain.PredictionJob) jobSnapshot {
	logs := job.Logs
	if logs == nil {
		logs = []string{}
	}
	return jobSnapshot{
		ID:                job.ID,
		State:             job.State,
		Question:          job.Question,
		ModelName:         job.ModelName,
		ResultProbability: job.ResultProbability,
		ErrorMessage:      job.ErrorMessage,
		Logs:              logs,
		CreditCost:        job.CreditCost,
		CreatedAt:         job.CreatedAt,
	}
}

// SubmitPrediction accepts a submission via query parameters and redirects
// to the results view for the canonical job.
func (a *App) SubmitPrediction(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	job, err := a.Predictions.Submit(r.Context(), prediction.SubmitRequest{
		Question:    q.Get("question"),
		ModelName:   q.Get("model"),
		Temperature: q.Get("temperature"),
		Public:      q.Get("isPublic") == "true",
		UserID:      q.Get("userId"),
	})
	if err != nil {
		if errors.Is(err, domain.ErrValidation) {
			a.error(w, http.StatusBadRequest, "bad_request", err.Error())
			return
		}
		a.Logger.Error().Err(err).Msg("submit prediction failed")
		a.error(w, http.StatusInternalServerError, "internal", "failed to submit prediction")
		return
	}

	http.Redirect(w, r, "/results/"+job.ID, http.StatusFound)
}

// GetPrediction returns the job snapshot for polling. Terminal snapshots
// are served from the cache when available.
func (a *App) GetPrediction(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	if a.Cache != nil {
		if cached, ok, err := a.Cache.GetJobSnapshot(r.Context(), id); err == nil && ok {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write(cached)
			return
		}
	}

	job, err := a.Predictions.GetStatus(r.Context(), id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			a.error(w, http.StatusNotFound, "not_found", "no job with that id")
			return
		}
		a.Logger.Error().Err(err).Str("job_id", id).Msg("get prediction failed")
		a.error(w, http.StatusInternalServerError, "internal", "failed to load job")
		return
	}

	snapshot := newJobSnapshot(job)
	if a.Cache != nil && job.State.Terminal() {
		if body, err := json.Marshal(snapshot); err == nil {
			if err := a.Cache.SetJobSnapshot(r.Context(), id, body, snapshotTTL); err != nil {
				a.Logger.Warn().Err(err).Str("job_id", id).Msg("cache snapshot failed")
			}
		}
	}
	a.json(w, http.StatusOK, snapshot)
}

type jobSummaryJSON struct {
	ID                string          `json:"id"`
	State             domain.JobState `json:"state"`
	Question          string          `json:"question"`
	ResultProbability int             `json:"resultProbability"`
	ModelName         string          `json:"modelName"`
	CreditCost        *int            `json:"creditCost"`
}

// ListPublicPredictions returns all public COMPLETE jobs.
func (a *App) ListPublicPredictions(w http.ResponseWriter, r *http.Request) {
	summaries, err := a.Predictions.ListPublicComplete(r.Context())
	if err != nil {
		a.Logger.Error().Err(err).Msg("list public predictions failed")
		a.error(w, http.StatusInternalServerError, "internal", "failed to list jobs")
		return
	}

	items := make([]jobSummaryJSON, 0, len(summaries))
	for _, s := range summaries {
		items = append(items, jobSummaryJSON{
			ID:                s.ID,
			State:             s.State,
			Question:          s.Question,
			ResultProbability: s.ResultProbability,
			ModelName:         s.ModelName,
			CreditCost:        s.CreditCost,
		})
	}
	a.json(w, http.StatusOK, items)
}
