// Package pollclient implements the client side of the polling contract:
// read job status at a fixed interval until a terminal state, a bounded
// poll ceiling, or cancellation.
package pollclient

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"oracle/internal/domain"
)

const (
	// DefaultInterval matches the reference UI's 10 second poll cadence.
	DefaultInterval = 10 * time.Second
	// DefaultMaxPolls bounds a poll session to roughly 66 minutes.
	DefaultMaxPolls = 400
)

// ErrPollLimit is returned when the poll ceiling is reached before the job
// turns terminal.
var ErrPollLimit = errors.New("poll limit reached before job finished")

// Snapshot is the status endpoint's response shape.
type Snapshot struct {
	ID                string          `json:"id"`
	State             domain.JobState `json:"state"`
	Question          string          `json:"question"`
	ModelName         string          `json:"modelName"`
	ResultProbability int             `json:"resultProbability"`
	ErrorMessage      string          `json:"errorMessage"`
	Logs              []string        `json:"logs"`
	CreditCost        *int            `json:"creditCost"`
}

// Client polls the status endpoint of a running API server.
type Client struct {
	// BaseURL is the API root, e.g. "http://localhost:8080".
	BaseURL string
	// HTTPClient defaults to http.DefaultClient.
	HTTPClient *http.Client
	// Interval between polls; defaults to DefaultInterval.
	Interval time.Duration
	// MaxPolls caps the number of status reads; defaults to DefaultMaxPolls.
	MaxPolls int
	// OnUpdate, when set, observes every snapshot as it arrives.
	OnUpdate func(Snapshot)
}

// Poll reads the job's status until it reaches COMPLETE or ERROR, the poll
// ceiling is hit (ErrPollLimit, with the last snapshot), or ctx is
// cancelled. The ticker is always released; abandoning a poll leaks
// nothing.
func (c *Client) Poll(ctx context.Context, jobID string) (*Snapshot, error) {
	interval := c.Interval
	if interval <= 0 {
		interval = DefaultInterval
	}
	maxPolls := c.MaxPolls
	if maxPolls <= 0 {
		maxPolls = DefaultMaxPolls
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	var last *Snapshot
	for polls := 0; polls < maxPolls; polls++ {
		snapshot, err := c.fetch(ctx, jobID)
		if err != nil {
			return last, err
		}
		last = snapshot
		if c.OnUpdate != nil {
			c.OnUpdate(*snapshot)
		}
		if snapshot.State.Terminal() {
			return snapshot, nil
		}

		select {
		case <-ctx.Done():
			return last, ctx.Err()
		case <-ticker.C:
		}
	}
	return last, ErrPollLimit
}

func (c *Client) fetch(ctx context.Context, jobID string) (*Snapshot, error) {
	url := fmt.Sprintf("%s/api/jobs/%s", strings.TrimRight(c.BaseURL, "/"), jobID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("build status request: %w", err)
	}

	client := c.HTTPClient
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("read job status: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, domain.ErrNotFound
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("status endpoint returned %d", resp.StatusCode)
	}

	var snapshot Snapshot
	if err := json.NewDecoder(resp.Body).Decode(&snapshot); err != nil {
		return nil, fmt.Errorf("decode job status: %w", err)
	}
	return &snapshot, nil
}
