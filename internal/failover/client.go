package failover

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/nulzo/prism-copy/internal/httpclient"
	"github.com/nulzo/prism-copy/internal/llm"
	"github.com/nulzo/prism-copy/internal/metrics"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

var (
	// ErrUnavailable is the single condition callers check for.
	ErrUnavailable = errors.New("ai providers unavailable")

	ErrNoProvidersAvailable = fmt.Errorf("%w: no providers available", ErrUnavailable)
	ErrAllProvidersFailed   = fmt.Errorf("%w: all providers failed", ErrUnavailable)
)

type FailureReason string

const (
	ReasonNone         FailureReason = ""
	ReasonBuild        FailureReason = "request_build"
	ReasonHTTPStatus   FailureReason = "http_status"
	ReasonTransport    FailureReason = "transport"
	ReasonExtraction   FailureReason = "extraction"
	ReasonEmptyContent FailureReason = "empty_content"
	ReasonPollFailed   FailureReason = "poll_failed"
	ReasonPollTimeout  FailureReason = "poll_timeout"
)

// Response is the content produced by the first provider that succeeded.
type Response struct {
	Content      string `json:"content"`
	ProviderName string `json:"provider"`
	ModelName    string `json:"model"`
}

// Status is the observability view of one pool entry.
type Status struct {
	Eligible             bool   `json:"eligible"`
	Model                string `json:"model"`
	LastSuccessTimestamp *int64 `json:"last_success_timestamp,omitempty"`
	CooldownUntil        *int64 `json:"cooldown_until,omitempty"`
}

// attempt is the outcome of calling one provider once.
type attempt struct {
	content string
	reason  FailureReason
	status  int
	err     error
}

func (a attempt) ok() bool { return a.reason == ReasonNone }

// Client tries providers in priority order, skipping those in cooldown,
// and returns the first content produced.
type Client struct {
	providers []*Provider
	cooldown  *Cooldown
	http      httpclient.HTTPClient
	logger    *zap.Logger
	tracer    trace.Tracer
}

func NewClient(providers []*Provider, cooldown *Cooldown, client httpclient.HTTPClient, logger *zap.Logger) *Client {
	if client == nil {
		client = &http.Client{Timeout: 60 * time.Second}
	}
	if cooldown == nil {
		cooldown = NewCooldown(DefaultCooldownWindow, nil)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		providers: providers,
		cooldown:  cooldown,
		http:      client,
		logger:    logger,
		tracer:    otel.Tracer("github.com/nulzo/prism-copy/internal/failover"),
	}
}

// GetResponse returns content from the first eligible provider that
// succeeds. The call is detached from ctx cancellation: a caller that goes
// away does not abort an attempt already in flight.
func (c *Client) GetResponse(ctx context.Context, prompt, systemPrompt string) (*Response, error) {
	ctx = context.WithoutCancel(ctx)

	eligible := c.eligible()
	if len(eligible) == 0 {
		metrics.FailoverExhausted.WithLabelValues("no_providers").Inc()
		c.logger.Warn("No eligible providers", zap.Int("pool_size", len(c.providers)))
		return nil, ErrNoProvidersAvailable
	}

	input := llm.Prompt{Text: prompt, System: systemPrompt}

	for _, p := range eligible {
		res := c.attempt(ctx, p, input)
		if res.ok() {
			c.cooldown.RecordSuccess(p.Name)
			metrics.ProviderCoolingDown.WithLabelValues(p.Name).Set(0)
			return &Response{Content: res.content, ProviderName: p.Name, ModelName: p.Model}, nil
		}

		c.cooldown.RecordFailure(p.Name)
		metrics.ProviderCoolingDown.WithLabelValues(p.Name).Set(1)

		fields := []zap.Field{
			zap.String("provider", p.Name),
			zap.String("model", p.Model),
			zap.String("reason", string(res.reason)),
			zap.Error(res.err),
		}
		if res.status != 0 {
			fields = append(fields, zap.Int("status", res.status))
		}
		c.logger.Warn("Provider attempt failed, trying next", fields...)
	}

	metrics.FailoverExhausted.WithLabelValues("all_failed").Inc()
	c.logger.Error("All providers failed", zap.Int("attempted", len(eligible)))
	return nil, ErrAllProvidersFailed
}

func (c *Client) eligible() []*Provider {
	out := make([]*Provider, 0, len(c.providers))
	for _, p := range c.providers {
		if c.cooldown.Eligible(p.Name) {
			out = append(out, p)
		}
	}
	return out
}

func (c *Client) attempt(ctx context.Context, p *Provider, prompt llm.Prompt) (res attempt) {
	ctx, span := c.tracer.Start(ctx, "failover.attempt", trace.WithAttributes(
		attribute.String("provider", p.Name),
		attribute.String("model", p.Model),
		attribute.String("adapter", string(p.Kind)),
	))
	start := time.Now()

	defer func() {
		outcome := "success"
		if !res.ok() {
			outcome = string(res.reason)
			span.RecordError(res.err)
			span.SetStatus(codes.Error, outcome)
		}
		span.SetAttributes(attribute.String("outcome", outcome))
		span.End()

		metrics.ProviderAttempts.WithLabelValues(p.Name, outcome).Inc()
		metrics.ProviderLatency.WithLabelValues(p.Name).Observe(time.Since(start).Seconds())
	}()

	payload, err := p.adapter.BuildRequest(prompt)
	if err != nil {
		return attempt{reason: ReasonBuild, err: err}
	}

	body, err := httpclient.Send(ctx, c.http, http.MethodPost, p.Endpoint, p.Headers(), payload)
	if err != nil {
		if status := httpclient.StatusCode(err); status != 0 {
			return attempt{reason: ReasonHTTPStatus, status: status, err: err}
		}
		return attempt{reason: ReasonTransport, err: err}
	}

	content, err := p.adapter.ExtractContent(ctx, body)
	if err != nil {
		return attempt{reason: classifyExtraction(err), status: httpclient.StatusCode(err), err: err}
	}

	return attempt{content: content}
}

func classifyExtraction(err error) FailureReason {
	switch {
	case errors.Is(err, llm.ErrPollTimeout):
		return ReasonPollTimeout
	case errors.Is(err, llm.ErrJobFailed):
		return ReasonPollFailed
	case errors.Is(err, llm.ErrEmptyContent):
		return ReasonEmptyContent
	default:
		return ReasonExtraction
	}
}

// ProviderStatus reports every pool member, failed or not.
func (c *Client) ProviderStatus() map[string]Status {
	out := make(map[string]Status, len(c.providers))
	for _, p := range c.providers {
		e := c.cooldown.Entry(p.Name)
		s := Status{Eligible: e.Eligible, Model: p.Model}
		if !e.LastSuccess.IsZero() {
			ms := e.LastSuccess.UnixMilli()
			s.LastSuccessTimestamp = &ms
		}
		if !e.Eligible {
			ms := e.CooldownUntil.UnixMilli()
			s.CooldownUntil = &ms
		}
		out[p.Name] = s
	}
	return out
}

// ResetFailedProviders clears every cooldown entry unconditionally.
func (c *Client) ResetFailedProviders() {
	c.cooldown.Reset()
	for _, p := range c.providers {
		metrics.ProviderCoolingDown.WithLabelValues(p.Name).Set(0)
	}
	c.logger.Info("Cooldown registry cleared", zap.Int("providers", len(c.providers)))
}

// Sweep prunes expired cooldown entries and refreshes the cooldown gauge.
func (c *Client) Sweep() int {
	removed := c.cooldown.Prune()
	for _, p := range c.providers {
		v := 0.0
		if !c.cooldown.Eligible(p.Name) {
			v = 1
		}
		metrics.ProviderCoolingDown.WithLabelValues(p.Name).Set(v)
	}
	return removed
}

// RunSweeper calls Sweep several times per cooldown window until ctx is
// done, so the cooling-down gauge clears soon after a window lapses.
func (c *Client) RunSweeper(ctx context.Context) {
	ticker := time.NewTicker(sweepInterval(c.cooldown.Window()))
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := c.Sweep(); n > 0 {
				c.logger.Debug("Expired cooldown entries pruned", zap.Int("count", n))
			}
		}
	}
}

const sweepsPerWindow = 10

func sweepInterval(window time.Duration) time.Duration {
	if d := window / sweepsPerWindow; d > 0 {
		return d
	}
	return window
}
