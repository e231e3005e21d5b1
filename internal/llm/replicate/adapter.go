package replicate

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/nulzo/prism-copy/internal/config"
	"github.com/nulzo/prism-copy/internal/httpclient"
	"github.com/nulzo/prism-copy/internal/llm"
)

func init() {
	llm.Register(llm.Replicate, NewAdapter)
}

const (
	StatusStarting   = "starting"
	StatusProcessing = "processing"
	StatusSucceeded  = "succeeded"
	StatusFailed     = "failed"
	StatusCanceled   = "canceled"
)

// Adapter submits a prediction and polls its status endpoint until the job
// reaches a terminal state or the attempt budget runs out.
type Adapter struct {
	cfg          config.ProviderConfig
	client       httpclient.HTTPClient
	statusURL    string
	interval     time.Duration
	maxAttempts  int
	maxNewTokens int
}

func NewAdapter(cfg config.ProviderConfig, opts llm.Options) (llm.Adapter, error) {
	if opts.Client == nil {
		opts.Client = &http.Client{Timeout: 30 * time.Second}
	}
	if opts.PollInterval <= 0 {
		opts.PollInterval = time.Second
	}
	if opts.PollMaxAttempts <= 0 {
		opts.PollMaxAttempts = 60
	}

	statusURL := cfg.Config["status_url"]
	if statusURL == "" {
		statusURL = "https://api.replicate.com/v1/predictions"
	}

	return &Adapter{
		cfg:          cfg,
		client:       opts.Client,
		statusURL:    strings.TrimRight(statusURL, "/"),
		interval:     opts.PollInterval,
		maxAttempts:  opts.PollMaxAttempts,
		maxNewTokens: llm.IntOption(cfg, "max_new_tokens", 500),
	}, nil
}

func (a *Adapter) Kind() llm.Kind { return llm.Replicate }

type Input struct {
	Prompt       string `json:"prompt"`
	SystemPrompt string `json:"system_prompt,omitempty"`
	MaxNewTokens int    `json:"max_new_tokens,omitempty"`
}

type Request struct {
	Version string `json:"version,omitempty"`
	Input   Input  `json:"input"`
}

// Prediction is the job handle returned by both the create and status calls.
type Prediction struct {
	ID     string          `json:"id"`
	Status string          `json:"status"`
	Output json.RawMessage `json:"output"`
	Error  interface{}     `json:"error"`
	URLs   struct {
		Get string `json:"get"`
	} `json:"urls"`
}

func (a *Adapter) BuildRequest(prompt llm.Prompt) (interface{}, error) {
	return &Request{
		Version: a.cfg.Config["version"],
		Input: Input{
			Prompt:       prompt.Text,
			SystemPrompt: prompt.System,
			MaxNewTokens: a.maxNewTokens,
		},
	}, nil
}

func (a *Adapter) ExtractContent(ctx context.Context, body []byte) (string, error) {
	var job Prediction
	if err := json.Unmarshal(body, &job); err != nil {
		return "", fmt.Errorf("failed to decode prediction: %w", err)
	}

	if done, text, err := settle(&job); done {
		return text, err
	}
	if job.ID == "" && job.URLs.Get == "" {
		return "", fmt.Errorf("prediction response carried no job handle")
	}

	return a.poll(ctx, job)
}

func (a *Adapter) poll(ctx context.Context, job Prediction) (string, error) {
	pollURL := job.URLs.Get
	if pollURL == "" {
		pollURL = fmt.Sprintf("%s/%s", a.statusURL, job.ID)
	}
	headers := map[string]string{"Authorization": llm.AuthorizationHeader(a.cfg)}

	ticker := time.NewTicker(a.interval)
	defer ticker.Stop()

	for attempt := 0; attempt < a.maxAttempts; attempt++ {
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-ticker.C:
		}

		var status Prediction
		if err := httpclient.SendRequest(ctx, a.client, http.MethodGet, pollURL, headers, nil, &status); err != nil {
			return "", fmt.Errorf("polling failed: %w", err)
		}

		if done, text, err := settle(&status); done {
			return text, err
		}
	}

	return "", fmt.Errorf("%w: %s after %d polls", llm.ErrPollTimeout, job.ID, a.maxAttempts)
}

// settle reports whether the job is terminal and, if so, its outcome.
func settle(job *Prediction) (bool, string, error) {
	switch job.Status {
	case StatusSucceeded:
		text, err := joinOutput(job.Output)
		if err != nil {
			return true, "", err
		}
		if text == "" {
			return true, "", llm.ErrEmptyContent
		}
		return true, text, nil
	case StatusFailed, StatusCanceled:
		return true, "", fmt.Errorf("%w: %s %s: %v", llm.ErrJobFailed, job.ID, job.Status, job.Error)
	default:
		return false, "", nil
	}
}

// joinOutput handles both streamed token lists and a single string.
func joinOutput(raw json.RawMessage) (string, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return "", nil
	}

	var tokens []string
	if err := json.Unmarshal(raw, &tokens); err == nil {
		return strings.TrimSpace(strings.Join(tokens, "")), nil
	}

	var text string
	if err := json.Unmarshal(raw, &text); err != nil {
		return "", fmt.Errorf("unexpected prediction output: %w", err)
	}
	return strings.TrimSpace(text), nil
}
