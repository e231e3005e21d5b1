package failover

import (
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/nulzo/prism-copy/internal/cli"
	"github.com/nulzo/prism-copy/internal/config"
	"github.com/nulzo/prism-copy/internal/llm"
	"go.uber.org/zap"
)

// Provider is an immutable, ready-to-call entry of the pool.
type Provider struct {
	Name     string
	Model    string
	Endpoint string
	Kind     llm.Kind

	headers map[string]string
	adapter llm.Adapter
}

// NewProvider binds a provider definition to its adapter.
func NewProvider(cfg config.ProviderConfig, adapter llm.Adapter) *Provider {
	headers := map[string]string{"Authorization": llm.AuthorizationHeader(cfg)}
	for k, v := range cfg.Headers {
		headers[k] = v
	}

	return &Provider{
		Name:     cfg.ID,
		Model:    cfg.Model,
		Endpoint: cfg.Endpoint,
		Kind:     adapter.Kind(),
		headers:  headers,
		adapter:  adapter,
	}
}

// Headers returns a copy of the request headers, credentials included.
func (p *Provider) Headers() map[string]string {
	out := make(map[string]string, len(p.headers))
	for k, v := range p.headers {
		out[k] = v
	}
	return out
}

// NewPool builds the ordered provider list from definitions. Definitions
// that are disabled, lack a real key, fail validation, or name an unknown
// adapter are skipped; an empty pool is not an error here.
func NewPool(defs []config.ProviderConfig, opts llm.Options, log *zap.Logger) []*Provider {
	if log == nil {
		log = zap.NewNop()
	}
	validate := validator.New()
	seen := make(map[string]bool)
	pool := make([]*Provider, 0, len(defs))

	for _, def := range defs {
		if def.Disabled {
			continue
		}

		if config.IsPlaceholderKey(def.APIKey) {
			log.Info(cli.ProviderLine(cli.WarningSign(), def.ID, "skipped, no API key configured"))
			continue
		}

		if err := validate.Struct(&def); err != nil {
			log.Warn(cli.ProviderLine(cli.CrossMark(), def.ID, "skipped, invalid definition"), zap.Error(err))
			continue
		}

		if seen[def.ID] {
			log.Warn(cli.ProviderLine(cli.CrossMark(), def.ID, "skipped, duplicate provider id"))
			continue
		}

		adapter, err := llm.New(def, opts)
		if err != nil {
			log.Error("Failed to initialize provider",
				zap.String("provider", def.ID),
				zap.String("type", def.Type),
				zap.Any("known_types", llm.Kinds()),
				zap.Error(err),
			)
			continue
		}

		seen[def.ID] = true
		pool = append(pool, NewProvider(def, adapter))
		log.Info(cli.ProviderLine(cli.CheckMark(), def.DisplayName(), fmt.Sprintf("%s (%s)", def.Model, def.Type)))
	}

	if len(pool) == 0 {
		log.Warn("No AI providers configured. Generation requests will fail until a key is set.")
	}

	return pool
}
