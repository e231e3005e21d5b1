package config

import "strings"

// DefaultProviders is the built-in priority list used when no providers are configured.
func DefaultProviders() []ProviderConfig {
	return []ProviderConfig{
		{
			ID:        "openrouter",
			Type:      "chat",
			Name:      "OpenRouter",
			APIKeyEnv: "OPENROUTER_API_KEY",
			Endpoint:  "https://openrouter.ai/api/v1/chat/completions",
			Model:     "meta-llama/llama-3.1-8b-instruct:free",
			Headers: map[string]string{
				"HTTP-Referer": "https://prism-copy.app",
				"X-Title":      "Prism Copy",
			},
		},
		{
			ID:        "groq",
			Type:      "chat",
			Name:      "Groq",
			APIKeyEnv: "GROQ_API_KEY",
			Endpoint:  "https://api.groq.com/openai/v1/chat/completions",
			Model:     "llama-3.1-8b-instant",
		},
		{
			ID:        "huggingface",
			Type:      "inference",
			Name:      "Hugging Face",
			APIKeyEnv: "HUGGINGFACE_API_KEY",
			Endpoint:  "https://api-inference.huggingface.co/models/mistralai/Mistral-7B-Instruct-v0.2",
			Model:     "mistralai/Mistral-7B-Instruct-v0.2",
		},
		{
			ID:         "replicate",
			Type:       "replicate",
			Name:       "Replicate",
			APIKeyEnv:  "REPLICATE_API_TOKEN",
			Endpoint:   "https://api.replicate.com/v1/models/meta/meta-llama-3-8b-instruct/predictions",
			Model:      "meta/meta-llama-3-8b-instruct",
			AuthScheme: "Token",
			Config: map[string]string{
				"status_url": "https://api.replicate.com/v1/predictions",
			},
		},
		{
			ID:        "together",
			Type:      "chat",
			Name:      "Together AI",
			APIKeyEnv: "TOGETHER_API_KEY",
			Endpoint:  "https://api.together.xyz/v1/chat/completions",
			Model:     "meta-llama/Llama-3-8b-chat-hf",
		},
	}
}

var placeholderKeys = map[string]struct{}{
	"your-api-key":        {},
	"your_api_key_here":   {},
	"your-openrouter-key": {},
	"sk-xxx":              {},
	"changeme":            {},
	"placeholder":         {},
}

// IsPlaceholderKey reports whether a credential is missing or a template value.
func IsPlaceholderKey(key string) bool {
	k := strings.ToLower(strings.TrimSpace(key))
	if k == "" {
		return true
	}
	if _, ok := placeholderKeys[k]; ok {
		return true
	}
	return strings.HasPrefix(k, "your_") || strings.HasPrefix(k, "your-")
}

// DisplayName falls back to the ID when no name is configured.
func (p ProviderConfig) DisplayName() string {
	if p.Name != "" {
		return p.Name
	}
	return p.ID
}
