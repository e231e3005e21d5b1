package llm

import (
	"strconv"

	"github.com/nulzo/prism-copy/internal/config"
)

// FloatOption reads a numeric provider option, returning nil when unset or malformed.
func FloatOption(cfg config.ProviderConfig, key string) *float64 {
	raw, ok := cfg.Config[key]
	if !ok {
		return nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return nil
	}
	return &v
}

// IntOption reads an integer provider option with a fallback.
func IntOption(cfg config.ProviderConfig, key string, fallback int) int {
	raw, ok := cfg.Config[key]
	if !ok {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return v
}
