package chat

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/nulzo/prism-copy/internal/config"
	"github.com/nulzo/prism-copy/internal/llm"
)

func init() {
	llm.Register(llm.Chat, NewAdapter)
}

// Adapter speaks the OpenAI chat-completions shape shared by OpenRouter,
// Groq, Together and most hosted gateways.
type Adapter struct {
	model       string
	temperature *float64
	maxTokens   int
}

func NewAdapter(cfg config.ProviderConfig, _ llm.Options) (llm.Adapter, error) {
	if cfg.Model == "" {
		return nil, fmt.Errorf("chat provider %s: model is required", cfg.ID)
	}
	return &Adapter{
		model:       cfg.Model,
		temperature: llm.FloatOption(cfg, "temperature"),
		maxTokens:   llm.IntOption(cfg, "max_tokens", 0),
	}, nil
}

func (a *Adapter) Kind() llm.Kind { return llm.Chat }

type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type Request struct {
	Model       string    `json:"model"`
	Messages    []Message `json:"messages"`
	Temperature *float64  `json:"temperature,omitempty"`
	MaxTokens   int       `json:"max_tokens,omitempty"`
	Stream      bool      `json:"stream"`
}

type Response struct {
	ID      string `json:"id"`
	Choices []struct {
		Message      Message `json:"message"`
		FinishReason string  `json:"finish_reason"`
	} `json:"choices"`
	Error *struct {
		Message string      `json:"message"`
		Code    interface{} `json:"code"`
	} `json:"error,omitempty"`
}

func (a *Adapter) BuildRequest(prompt llm.Prompt) (interface{}, error) {
	messages := make([]Message, 0, 2)
	if prompt.System != "" {
		messages = append(messages, Message{Role: "system", Content: prompt.System})
	}
	messages = append(messages, Message{Role: "user", Content: prompt.Text})

	return &Request{
		Model:       a.model,
		Messages:    messages,
		Temperature: a.temperature,
		MaxTokens:   a.maxTokens,
	}, nil
}

func (a *Adapter) ExtractContent(_ context.Context, body []byte) (string, error) {
	var resp Response
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", fmt.Errorf("failed to decode chat response: %w", err)
	}

	// some gateways report upstream errors inside a 200 body
	if resp.Error != nil {
		return "", fmt.Errorf("upstream error: %s", resp.Error.Message)
	}

	if len(resp.Choices) == 0 {
		return "", llm.ErrEmptyContent
	}

	content := strings.TrimSpace(resp.Choices[0].Message.Content)
	if content == "" {
		return "", llm.ErrEmptyContent
	}
	return content, nil
}
