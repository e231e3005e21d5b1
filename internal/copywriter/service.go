package copywriter

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/nulzo/prism-copy/internal/failover"
	"github.com/nulzo/prism-copy/internal/metrics"
	"github.com/nulzo/prism-copy/internal/quota"
	"go.uber.org/zap"
)

var (
	ErrUnknownFeature = errors.New("unknown feature")
	ErrMissingInput   = errors.New("missing required input")
	ErrQuotaExceeded  = errors.New("daily quota exceeded")
)

// Generator is the part of failover.Client the features need.
type Generator interface {
	GetResponse(ctx context.Context, prompt, systemPrompt string) (*failover.Response, error)
}

// Result is a generated piece of copy plus the quota state after the call.
type Result struct {
	Feature  string     `json:"feature"`
	Content  string     `json:"content"`
	Provider string     `json:"provider"`
	Model    string     `json:"model"`
	Quota    quota.Info `json:"quota"`
}

type Service struct {
	generator Generator
	gate      *quota.Gate
	logger    *zap.Logger
}

func NewService(generator Generator, gate *quota.Gate, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{generator: generator, gate: gate, logger: logger}
}

// Run executes a quota-gated feature. Quota is consumed only when a provider
// returned content.
func (s *Service) Run(ctx context.Context, feature string, req Request) (*Result, error) {
	tpl, ok := templates[feature]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownFeature, feature)
	}
	if missing(tpl.requires, req) {
		return nil, fmt.Errorf("%w: %s", ErrMissingInput, tpl.requires)
	}

	allowed, err := s.gate.Reserve(ctx)
	if err != nil {
		return nil, fmt.Errorf("quota check: %w", err)
	}
	if !allowed {
		metrics.FeatureRequests.WithLabelValues(feature, "quota_exceeded").Inc()
		return nil, ErrQuotaExceeded
	}

	resp, err := s.generator.GetResponse(ctx, tpl.build(req), tpl.system)
	if err != nil {
		s.gate.Release()
		metrics.FeatureRequests.WithLabelValues(feature, "unavailable").Inc()
		return nil, err
	}

	info, err := s.gate.Commit(ctx)
	if err != nil {
		// The content was produced; losing one count is preferable to
		// discarding it.
		s.logger.Error("failed to record quota usage", zap.String("feature", feature), zap.Error(err))
		info, _ = s.gate.Info(ctx)
	}

	metrics.FeatureRequests.WithLabelValues(feature, "success").Inc()
	s.logger.Debug("feature served",
		zap.String("feature", feature),
		zap.String("provider", resp.ProviderName),
		zap.Int("daily_used", info.DailyUsed),
	)

	return &Result{
		Feature:  feature,
		Content:  resp.Content,
		Provider: resp.ProviderName,
		Model:    resp.ModelName,
		Quota:    info,
	}, nil
}

func missing(field string, req Request) bool {
	switch field {
	case "topic":
		return strings.TrimSpace(req.Topic) == ""
	case "text":
		return strings.TrimSpace(req.Text) == ""
	default:
		return false
	}
}
