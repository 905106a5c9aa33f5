package prediction

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"oracle/internal/domain"
)

func newController(t *testing.T) (*Controller, *fakeJobRepo) {
	t.Helper()
	repo := newFakeJobRepo()
	return NewController(repo, zerolog.Nop()), repo
}

func TestSubmitCreatesPendingJob(t *testing.T) {
	c, _ := newController(t)

	job, err := c.Submit(context.Background(), SubmitRequest{
		Question:    "Will it rain tomorrow?",
		ModelName:   "gpt",
		Temperature: "70",
		Public:      true,
		UserID:      "u1",
	})
	if err != nil {
		t.Fatalf("Submit returned error: %v", err)
	}
	if job.State != domain.JobStatePending {
		t.Fatalf("state mismatch: got %s want PENDING", job.State)
	}
	if job.ResultProbability != domain.DefaultProbability {
		t.Fatalf("probability mismatch: got %d want %d", job.ResultProbability, domain.DefaultProbability)
	}
	if job.ModelTemperature != 70 {
		t.Fatalf("temperature mismatch: got %d", job.ModelTemperature)
	}
	if !job.Public {
		t.Fatal("expected job to be public")
	}
}

func TestSubmitDedupsPendingAndComplete(t *testing.T) {
	c, repo := newController(t)
	req := SubmitRequest{Question: "q", ModelName: "gpt", Temperature: "70", UserID: "u1"}

	first, err := c.Submit(context.Background(), req)
	if err != nil {
		t.Fatalf("first Submit returned error: %v", err)
	}
	second, err := c.Submit(context.Background(), req)
	if err != nil {
		t.Fatalf("second Submit returned error: %v", err)
	}
	if first.ID != second.ID {
		t.Fatalf("dedup failed on PENDING: %s vs %s", first.ID, second.ID)
	}

	repo.setState(first.ID, domain.JobStateComplete)
	third, err := c.Submit(context.Background(), req)
	if err != nil {
		t.Fatalf("third Submit returned error: %v", err)
	}
	if third.ID != first.ID {
		t.Fatalf("dedup failed on COMPLETE: %s vs %s", third.ID, first.ID)
	}
	if third.State != domain.JobStateComplete {
		t.Fatalf("dedup must not reset state: got %s", third.State)
	}
}

func TestSubmitAfterErrorCreatesNewJob(t *testing.T) {
	c, repo := newController(t)
	req := SubmitRequest{Question: "q", ModelName: "gpt", Temperature: "70", UserID: "u1"}

	first, err := c.Submit(context.Background(), req)
	if err != nil {
		t.Fatalf("Submit returned error: %v", err)
	}
	repo.setState(first.ID, domain.JobStateError)

	second, err := c.Submit(context.Background(), req)
	if err != nil {
		t.Fatalf("resubmit returned error: %v", err)
	}
	if second.ID == first.ID {
		t.Fatal("ERROR jobs must be excluded from dedup")
	}
	if second.State != domain.JobStatePending {
		t.Fatalf("resubmit state mismatch: got %s", second.State)
	}
}

func TestSubmitRunningExcludedFromDedup(t *testing.T) {
	c, repo := newController(t)
	req := SubmitRequest{Question: "q", ModelName: "gpt", Temperature: "70", UserID: "u1"}

	first, err := c.Submit(context.Background(), req)
	if err != nil {
		t.Fatalf("Submit returned error: %v", err)
	}
	repo.setState(first.ID, domain.JobStateRunning)

	second, err := c.Submit(context.Background(), req)
	if err != nil {
		t.Fatalf("resubmit returned error: %v", err)
	}
	if second.ID == first.ID {
		t.Fatal("RUNNING jobs must be excluded from dedup")
	}
}

func TestSubmitRequiresUserID(t *testing.T) {
	c, _ := newController(t)

	_, err := c.Submit(context.Background(), SubmitRequest{
		Question:    "q",
		ModelName:   "gpt",
		Temperature: "70",
		UserID:      "  ",
	})
	if !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
}

func TestSubmitRejectsNonNumericTemperature(t *testing.T) {
	c, _ := newController(t)

	_, err := c.Submit(context.Background(), SubmitRequest{
		Question:    "q",
		ModelName:   "gpt",
		Temperature: "warm",
		UserID:      "u1",
	})
	if !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
}

func TestSubmitDedupsNormalizedQuestions(t *testing.T) {
	c, _ := newController(t)

	first, err := c.Submit(context.Background(), SubmitRequest{
		Question: "  Will it rain tomorrow?", ModelName: "gpt", Temperature: "70", UserID: "u1",
	})
	if err != nil {
		t.Fatalf("Submit returned error: %v", err)
	}
	second, err := c.Submit(context.Background(), SubmitRequest{
		Question: "Will it rain tomorrow?  ", ModelName: "gpt", Temperature: "70", UserID: "u2",
	})
	if err != nil {
		t.Fatalf("Submit returned error: %v", err)
	}
	if first.ID != second.ID {
		t.Fatal("whitespace variants of a question must dedup")
	}
}

func TestGetStatusNotFound(t *testing.T) {
	c, _ := newController(t)

	_, err := c.GetStatus(context.Background(), "missing")
	if !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestListPublicCompleteFilters(t *testing.T) {
	c, repo := newController(t)

	pub, _ := c.Submit(context.Background(), SubmitRequest{Question: "a", ModelName: "gpt", Temperature: "70", Public: true, UserID: "u1"})
	repo.setState(pub.ID, domain.JobStateComplete)
	priv, _ := c.Submit(context.Background(), SubmitRequest{Question: "b", ModelName: "gpt", Temperature: "70", Public: false, UserID: "u1"})
	repo.setState(priv.ID, domain.JobStateComplete)
	_, _ = c.Submit(context.Background(), SubmitRequest{Question: "c", ModelName: "gpt", Temperature: "70", Public: true, UserID: "u1"})

	summaries, err := c.ListPublicComplete(context.Background())
	if err != nil {
		t.Fatalf("ListPublicComplete returned error: %v", err)
	}
	if len(summaries) != 1 {
		t.Fatalf("expected 1 summary, got %d", len(summaries))
	}
	if summaries[0].ID != pub.ID {
		t.Fatalf("wrong job listed: got %s want %s", summaries[0].ID, pub.ID)
	}
}

// fakeJobRepo is an in-memory domain.JobRepository for controller tests.
type fakeJobRepo struct {
	mu   sync.Mutex
	jobs map[string]*domain.PredictionJob
}

func newFakeJobRepo() *fakeJobRepo {
	return &fakeJobRepo{jobs: make(map[string]*domain.PredictionJob)}
}

func (f *fakeJobRepo) setState(id string, state domain.JobState) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.jobs[id].State = state
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
