// Command predict submits a question to a running API server and polls
// until the prediction finishes.
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"path"
	"strconv"
	"strings"
	"syscall"
	"time"

	"oracle/pkg/pollclient"
)

func main() {
	baseURL := flag.String("url", "http://localhost:8080", "API base URL")
	userID := flag.String("user", "", "user id (required)")
	question := flag.String("question", "", "yes/no question to predict (required)")
	model := flag.String("model", "gpt", "model name")
	temperature := flag.Int("temperature", 70, "model temperature, 0-100")
	public := flag.Bool("public", false, "make the prediction publicly listed")
	interval := flag.Duration("interval", pollclient.DefaultInterval, "poll interval")
	flag.Parse()

	if *userID == "" || *question == "" {
		flag.Usage()
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	jobID, err := submit(ctx, *baseURL, *userID, *question, *model, *temperature, *public)
	if err != nil {
		fmt.Fprintln(os.Stderr, "submit failed:", err)
		os.Exit(1)
	}
	fmt.Println("job:", jobID)

	client := &pollclient.Client{
		BaseURL:  *baseURL,
		Interval: *interval,
		OnUpdate: func(s pollclient.Snapshot) {
			if len(s.Logs) > 0 {
				fmt.Println(" ", s.Logs[len(s.Logs)-1])
			}
			fmt.Println("state:", s.State)
		},
	}

	snapshot, err := client.Poll(ctx, jobID)
	if err != nil {
		fmt.Fprintln(os.Stderr, "poll failed:", err)
		os.Exit(1)
	}
	if snapshot.ErrorMessage != "" {
		fmt.Fprintln(os.Stderr, "prediction failed:", snapshot.ErrorMessage)
		os.Exit(1)
	}
	fmt.Printf("%s -> %d%%\n", snapshot.Question, snapshot.ResultProbability)
}

// submit issues the submission request and extracts the job id from the
// redirect target without following it.
func submit(ctx context.Context, baseURL, userID, question, model string, temperature int, public bool) (string, error) {
	endpoint, err := url.Parse(strings.TrimRight(baseURL, "/") + "/api/predict")
	if err != nil {
		return "", err
	}
	q := endpoint.Query()
	q.Set("userId", userID)
	q.Set("question", question)
	q.Set("model", model)
	q.Set("temperature", strconv.Itoa(temperature))
	q.Set("isPublic", strconv.FormatBool(public))
	endpoint.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint.String(), nil)
	if err != nil {
		return "", err
	}

	client := &http.Client{
		Timeout: 30 * time.Second,
		CheckRedirect: func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
	resp, err := client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusFound {
		return "", fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	location := resp.Header.Get("Location")
	if location == "" {
		return "", fmt.Errorf("no redirect location in response")
	}
	return path.Base(location), nil
}
