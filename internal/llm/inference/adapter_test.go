package inference_test

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/nulzo/prism-copy/internal/config"
	"github.com/nulzo/prism-copy/internal/llm"
	"github.com/nulzo/prism-copy/internal/llm/inference"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildRequest(t *testing.T) {
	a, err := inference.NewAdapter(config.ProviderConfig{ID: "huggingface", Type: "inference"}, llm.Options{})
	require.NoError(t, err)

	payload, err := a.BuildRequest(llm.Prompt{Text: "Suggest hashtags", System: "Be brief"})
	require.NoError(t, err)

	raw, err := json.Marshal(payload)
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"inputs": "<s>[INST] Be brief\n\nSuggest hashtags [/INST]",
		"parameters": {"max_new_tokens": 500, "return_full_text": false},
		"options": {"wait_for_model": true}
	}`, string(raw))
}

func TestRenderInstruction_NoSystem(t *testing.T) {
	assert.Equal(t, "<s>[INST] hi [/INST]", inference.RenderInstruction(llm.Prompt{Text: "hi"}))
}

func TestExtractContent(t *testing.T) {
	a, err := inference.NewAdapter(config.ProviderConfig{ID: "huggingface", Type: "inference"}, llm.Options{})
	require.NoError(t, err)
	ctx := context.Background()

	text, err := a.ExtractContent(ctx, []byte(`[{"generated_text":"  #travel #sunset "}]`))
	require.NoError(t, err)
	assert.Equal(t, "#travel #sunset", text)

	text, err = a.ExtractContent(ctx, []byte(`{"generated_text":"single"}`))
	require.NoError(t, err)
	assert.Equal(t, "single", text)

	_, err = a.ExtractContent(ctx, []byte(`{"error":"Model is currently loading"}`))
	assert.ErrorContains(t, err, "currently loading")

	_, err = a.ExtractContent(ctx, []byte(`[]`))
	assert.ErrorIs(t, err, llm.ErrEmptyContent)

	_, err = a.ExtractContent(ctx, []byte(`  `))
	assert.ErrorIs(t, err, llm.ErrEmptyContent)

	_, err = a.ExtractContent(ctx, []byte(`Service Unavailable`))
	assert.Error(t, err)
}
