package predictor

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"
)

const openAIDefaultTimeout = 120 * time.Second

const estimateSystemPrompt = "You are a forecasting assistant. Given a yes/no question, " +
	"estimate the probability that the answer is yes. Respond only with valid JSON " +
	`of the form {"probability": <integer 0-100>, "reasoning": "<one sentence>"}.`

// OpenAIOptions configures an OpenAIRunner.
type OpenAIOptions struct {
	APIKey     string
	BaseURL    string
	Model      string
	HTTPClient *http.Client
}

// OpenAIRunner estimates probabilities with an OpenAI chat completion.
type OpenAIRunner struct {
	apiKey  string
	baseURL string
	model   string
	client  *http.Client
}

type openAIChatRequest struct {
	Model          string          `json:"model"`
	Messages       []openAIMessage `json:"messages"`
	Temperature    float64         `json:"temperature,omitempty"`
	ResponseFormat *openAIFormat   `json:"response_format,omitempty"`
}

type openAIMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type openAIFormat struct {
	Type string `json:"type"`
}

type openAIChatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// NewOpenAIRunner creates an OpenAIRunner.
func NewOpenAIRunner(opts OpenAIOptions) (*OpenAIRunner, error) {
	if strings.TrimSpace(opts.APIKey) == "" {
		return nil, errors.New("openai api key is required")
	}
	baseURL := strings.TrimRight(opts.BaseURL, "/")
	if baseURL == "" {
		baseURL = "https://api.openai.com/v1"
	}
	model := strings.TrimSpace(opts.Model)
	if model == "" {
		model = "gpt-4o-mini"
	}
	client := opts.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: openAIDefaultTimeout}
	}
	return &OpenAIRunner{
		apiKey:  strings.TrimSpace(opts.APIKey),
		baseURL: baseURL,
		model:   model,
		client:  client,
	}, nil
}

// Run asks the model for a probability estimate.
func (o *OpenAIRunner) Run(ctx context.Context, temperature float64, question string, logf func(string)) (int, error) {
	logf("Consulting the model...")

	payload := openAIChatRequest{
		Model:       o.model,
		Temperature: temperature,
		ResponseFormat: &openAIFormat{
			Type: "json_object",
		},
		Messages: []openAIMessage{
			{Role: "system", Content: estimateSystemPrompt},
			{Role: "user", Content: question},
		},
	}
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(payload); err != nil {
		return 0, fmt.Errorf("encode request: %w", err)
	}

	endpoint := fmt.Sprintf("%s/chat/completions", o.baseURL)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, &buf)
	if err != nil {
		return 0, fmt.Errorf("build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+o.apiKey)

	resp, err := o.client.Do(httpReq)
	if err != nil {
		return 0, fmt.Errorf("call openai: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("openai returned status %d", resp.StatusCode)
	}

	var chatResp openAIChatResponse
	if err := json.NewDecoder(resp.Body).Decode(&chatResp); err != nil {
		return 0, fmt.Errorf("decode response: %w", err)
	}
	if len(chatResp.Choices) == 0 {
		return 0, errors.New("openai returned no choices")
	}

	var estimate struct {
		Probability int    `json:"probability"`
		Reasoning   string `json:"reasoning"`
	}
	if err := json.Unmarshal([]byte(chatResp.Choices[0].Message.Content), &estimate); err != nil {
		return 0, fmt.Errorf("decode estimate: %w", err)
	}
	if estimate.Probability < 0 || estimate.Probability > 100 {
		return 0, fmt.Errorf("estimate %d out of range", estimate.Probability)
	}
	if estimate.Reasoning != "" {
		logf(estimate.Reasoning)
	}
	return estimate.Probability, nil
}
