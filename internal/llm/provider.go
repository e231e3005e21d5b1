package llm

import (
	"context"
	"errors"
	"time"

	"github.com/nulzo/prism-copy/internal/config"
	"github.com/nulzo/prism-copy/internal/httpclient"
)

type Kind string

const (
	Chat      Kind = "chat"      // OpenAI-style chat completions
	Inference Kind = "inference" // Hugging Face text-generation inference
	Replicate Kind = "replicate" // async prediction job, polled until terminal
)

var (
	ErrEmptyContent = errors.New("provider returned no content")
	ErrJobFailed    = errors.New("generation job failed")
	ErrPollTimeout  = errors.New("generation job did not finish in time")
)

// Prompt is the input to a single generation.
type Prompt struct {
	Text   string
	System string
}

// Adapter converts between a prompt and one provider's wire format. The
// caller performs the initial HTTP call; ExtractContent may issue follow-up
// requests of its own.
type Adapter interface {
	Kind() Kind
	BuildRequest(prompt Prompt) (interface{}, error)
	ExtractContent(ctx context.Context, body []byte) (string, error)
}

// Options carries the runtime dependencies an adapter may need.
type Options struct {
	Client          httpclient.HTTPClient
	PollInterval    time.Duration
	PollMaxAttempts int
}

// AuthorizationHeader renders "<scheme> <key>", defaulting the scheme to Bearer.
func AuthorizationHeader(cfg config.ProviderConfig) string {
	scheme := cfg.AuthScheme
	if scheme == "" {
		scheme = "Bearer"
	}
	return scheme + " " + cfg.APIKey
}
