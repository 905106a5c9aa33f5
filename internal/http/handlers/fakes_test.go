package handlers

import (
	"context"
	"sync"
	"time"

	"oracle/internal/domain"
)

// In-memory repository fakes shared by the handler tests.

type fakeJobRepo struct {
	mu   sync.Mutex
	jobs map[string]*domain.PredictionJob
}

func newFakeJobRepo() *fakeJobRepo {
	return &fakeJobRepo{jobs: make(map[string]*domain.PredictionJob)}
}

func (f *fakeJobRepo) put(job *domain.PredictionJob) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.jobs[job.ID] = job
}

func (f *fakeJobRepo) FindOrCreate(_ context.Context, fp domain.Fingerprint, job *domain.PredictionJob) (*domain.PredictionJob, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, existing := range f.jobs {
		if existing.Question == fp.Question &&
			existing.ModelName == fp.ModelName &&
			existing.ModelTemperature == fp.ModelTemperature &&
			(existing.State == domain.JobStatePending || existing.State == domain.JobStateComplete) {
			copied := *existing
			return &copied, false, nil
		}
	}
	created := &domain.PredictionJob{
		ID:                job.ID,
		UserID:            job.UserID,
		Question:          fp.Question,
		ModelName:         fp.ModelName,
		ModelTemperature:  fp.ModelTemperature,
		Public:            job.Public,
		State:             domain.JobStatePending,
		ResultProbability: domain.DefaultProbability,
		CreatedAt:         time.Now(),
	}
	f.jobs[created.ID] = created
	copied := *created
	return &copied, true, nil
}

func (f *fakeJobRepo) GetByID(_ context.Context, id string) (*domain.PredictionJob, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	job, ok := f.jobs[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	copied := *job
	return &copied, nil
}

func (f *fakeJobRepo) ListPublicComplete(_ context.Context) ([]domain.JobSummary, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var summaries []domain.JobSummary
	for _, job := range f.jobs {
		if job.Public && job.State == domain.JobStateComplete {
			summaries = append(summaries, job.Summary())
		}
	}
	return summaries, nil
}

func (f *fakeJobRepo) ClaimPending(_ context.Context) (*domain.PredictionJob, error) {
	return nil, domain.ErrNotFound
}

func (f *fakeJobRepo) Complete(_ context.Context, id string, probability, creditCost int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	job, ok := f.jobs[id]
	if !ok {
		return domain.ErrNotFound
	}
	job.State = domain.JobStateComplete
	job.ResultProbability = probability
	job.CreditCost = &creditCost
	return nil
}

func (f *fakeJobRepo) Fail(_ context.Context, id, message string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	job, ok := f.jobs[id]
	if !ok {
		return domain.ErrNotFound
	}
	job.State = domain.JobStateError
	job.ErrorMessage = message
	return nil
}

func (f *fakeJobRepo) AppendLog(_ context.Context, id, line string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	job, ok := f.jobs[id]
	if !ok {
		return domain.ErrNotFound
	}
	job.Logs = append(job.Logs, line)
	return nil
}

func (f *fakeJobRepo) CountCompletedDemo(_ context.Context, _ time.Time) (int, error) {
	return 0, nil
}

type fakeUserRepo struct {
	mu        sync.Mutex
	users     map[string]*domain.User
	processed map[string]bool
	failWith  error
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{
		users:     make(map[string]*domain.User),
		processed: make(map[string]bool),
	}
}

func (f *fakeUserRepo) Upsert(_ context.Context, id string) (*domain.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failWith != nil {
		return nil, f.failWith
	}
	if u, ok := f.users[id]; ok {
		copied := *u
		return &copied, nil
	}
	u := &domain.User{ID: id, Credits: 0}
	f.users[id] = u
	copied := *u
	return &copied, nil
}

func (f *fakeUserRepo) GetByID(_ context.Context, id string) (*domain.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	copied := *u
	return &copied, nil
}

func (f *fakeUserRepo) ChargeCredits(_ context.Context, id string, amount int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[id]
	if !ok {
		return domain.ErrNotFound
	}
	u.Credits -= amount
	if u.Credits < 0 {
		u.Credits = 0
	}
	return nil
}

func (f *fakeUserRepo) RecordPurchase(_ context.Context, eventID, _, userID string, amount int, email string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failWith != nil {
		return f.failWith
	}
	if f.processed[eventID] {
		return domain.ErrDuplicateEvent
	}
	f.processed[eventID] = true
	u, ok := f.users[userID]
	if !ok {
		u = &domain.User{ID: userID}
		f.users[userID] = u
	}
	u.Credits += amount
	u.CreditsPurchased += amount
	u.Email = email
	return nil
}

type fakeCache struct {
	mu        sync.Mutex
	snapshots map[string][]byte
	sets      int
}

func newFakeCache() *fakeCache {
	return &fakeCache{snapshots: make(map[string][]byte)}
}

func (f *fakeCache) GetJobSnapshot(_ context.Context, jobID string) ([]byte, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	b, ok := f.snapshots[jobID]
	return b, ok, nil
}

func (f *fakeCache) SetJobSnapshot(_ context.Context, jobID string, snapshot []byte, _ time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.snapshots[jobID] = snapshot
	f.sets++
	return nil
}

func (f *fakeCache) Ping(_ context.Context) error { return nil }
