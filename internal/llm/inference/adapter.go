package inference

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/nulzo/prism-copy/internal/config"
	"github.com/nulzo/prism-copy/internal/llm"
)

func init() {
	llm.Register(llm.Inference, NewAdapter)
}

// Adapter targets a hosted text-generation inference endpoint. The prompt
// is rendered into a single instruction string.
type Adapter struct {
	maxNewTokens int
	temperature  *float64
}

func NewAdapter(cfg config.ProviderConfig, _ llm.Options) (llm.Adapter, error) {
	return &Adapter{
		maxNewTokens: llm.IntOption(cfg, "max_new_tokens", 500),
		temperature:  llm.FloatOption(cfg, "temperature"),
	}, nil
}

func (a *Adapter) Kind() llm.Kind { return llm.Inference }

type Parameters struct {
	MaxNewTokens   int      `json:"max_new_tokens"`
	Temperature    *float64 `json:"temperature,omitempty"`
	ReturnFullText bool     `json:"return_full_text"`
}

type Request struct {
	Inputs     string     `json:"inputs"`
	Parameters Parameters `json:"parameters"`
	Options    struct {
		WaitForModel bool `json:"wait_for_model"`
	} `json:"options"`
}

type generation struct {
	GeneratedText string `json:"generated_text"`
}

func (a *Adapter) BuildRequest(prompt llm.Prompt) (interface{}, error) {
	req := &Request{
		Inputs: RenderInstruction(prompt),
		Parameters: Parameters{
			MaxNewTokens: a.maxNewTokens,
			Temperature:  a.temperature,
		},
	}
	req.Options.WaitForModel = true
	return req, nil
}

// RenderInstruction formats a prompt in the [INST] template instruct models expect.
func RenderInstruction(prompt llm.Prompt) string {
	if prompt.System == "" {
		return fmt.Sprintf("<s>[INST] %s [/INST]", prompt.Text)
	}
	return fmt.Sprintf("<s>[INST] %s\n\n%s [/INST]", prompt.System, prompt.Text)
}

// ExtractContent accepts both the list form and the single object form, and
// surfaces {"error": "..."} bodies as failures.
func (a *Adapter) ExtractContent(_ context.Context, body []byte) (string, error) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 {
		return "", llm.ErrEmptyContent
	}

	var text string
	switch trimmed[0] {
	case '[':
		var out []generation
		if err := json.Unmarshal(trimmed, &out); err != nil {
			return "", fmt.Errorf("failed to decode inference response: %w", err)
		}
		if len(out) == 0 {
			return "", llm.ErrEmptyContent
		}
		text = out[0].GeneratedText
	case '{':
		var out struct {
			generation
			Error string `json:"error"`
		}
		if err := json.Unmarshal(trimmed, &out); err != nil {
			return "", fmt.Errorf("failed to decode inference response: %w", err)
		}
		if out.Error != "" {
			return "", fmt.Errorf("inference error: %s", out.Error)
		}
		text = out.GeneratedText
	default:
		return "", fmt.Errorf("unexpected inference response: %.64s", trimmed)
	}

	text = strings.TrimSpace(text)
	if text == "" {
		return "", llm.ErrEmptyContent
	}
	return text, nil
}
