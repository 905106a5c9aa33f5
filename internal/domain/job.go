package domain

import (
	"strings"
	"time"

	"golang.org/x/text/unicode/norm"
)

// JobState enumerates prediction job lifecycle states.
type JobState string

const (
	JobStatePending  JobState = "PENDING"
	JobStateRunning  JobState = "RUNNING"
	JobStateComplete JobState = "COMPLETE"
	JobStateError    JobState = "ERROR"
)

// Terminal reports whether the state admits no further transitions.
func (s JobState) Terminal() bool {
	return s == JobStateComplete || s == JobStateError
}

// Valid reports whether s is one of the four known states.
func (s JobState) Valid() bool {
	switch s {
	case JobStatePending, JobStateRunning, JobStateComplete, JobStateError:
		return true
	}
	return false
}

// CanTransition reports whether the state machine allows s -> next.
// PENDING -> RUNNING -> {COMPLETE, ERROR}; terminal states are final.
func (s JobState) CanTransition(next JobState) bool {
	switch s {
	case JobStatePending:
		return next == JobStateRunning
	case JobStateRunning:
		return next == JobStateComplete || next == JobStateError
	}
	return false
}

// DefaultProbability is the neutral placeholder stored until a job completes.
const DefaultProbability = 50

// PredictionJob is a single probability-estimate request and its outcome.
type PredictionJob struct {
	ID               string
	UserID           string
	Question         string
	ModelName        string
	ModelTemperature int
	Public           bool
	State            JobState
	// ResultProbability is an integer percentage 0-100; meaningful only
	// once State is COMPLETE.
	ResultProbability int
	ErrorMessage      string
	Logs              []string
	CreditCost        *int
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// Fingerprint identifies a computation for deduplication. Submissions with
// an equal fingerprint share one canonical job while that job is PENDING or
// COMPLETE; RUNNING and ERROR jobs never match, so resubmission after a
// failure starts a fresh job.
type Fingerprint struct {
	Question         string
	ModelName        string
	ModelTemperature int
}

// NewFingerprint canonicalizes the question (trim + NFC) so that visually
// identical submissions dedup against each other.
func NewFingerprint(question, modelName string, temperature int) Fingerprint {
	return Fingerprint{
		Question:         norm.NFC.String(strings.TrimSpace(question)),
		ModelName:        modelName,
		ModelTemperature: temperature,
	}
}

// JobSummary is the projection returned by the public listing.
type JobSummary struct {
	ID                string
	State             JobState
	Question          string
	ResultProbability int
	ModelName         string
	CreditCost        *int
}

// Summary projects the job to its public listing shape.
func (j *PredictionJob) Summary() JobSummary {
	return JobSummary{
		ID:                j.ID,
		State:             j.State,
		Question:          j.Question,
		ResultProbability: j.ResultProbability,
		ModelName:         j.ModelName,
		CreditCost:        j.CreditCost,
	}
}
