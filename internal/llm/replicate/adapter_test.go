package replicate_test

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/nulzo/prism-copy/internal/config"
	"github.com/nulzo/prism-copy/internal/llm"
	"github.com/nulzo/prism-copy/internal/llm/replicate"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newAdapter(t *testing.T, statusURL string, client *http.Client, maxAttempts int) llm.Adapter {
	t.Helper()
	a, err := replicate.NewAdapter(config.ProviderConfig{
		ID:         "replicate",
		Type:       "replicate",
		APIKey:     "r8_test",
		AuthScheme: "Token",
		Model:      "meta/meta-llama-3-8b-instruct",
		Config:     map[string]string{"status_url": statusURL},
	}, llm.Options{
		Client:          client,
		PollInterval:    time.Millisecond,
		PollMaxAttempts: maxAttempts,
	})
	require.NoError(t, err)
	return a
}

func TestBuildRequest(t *testing.T) {
	a := newAdapter(t, "http://unused", http.DefaultClient, 1)

	payload, err := a.BuildRequest(llm.Prompt{Text: "ideas for a bakery", System: "be playful"})
	require.NoError(t, err)

	raw, err := json.Marshal(payload)
	require.NoError(t, err)
	assert.JSONEq(t, `{"input":{"prompt":"ideas for a bakery","system_prompt":"be playful","max_new_tokens":500}}`, string(raw))
}

func TestExtractContent_PollsUntilSucceeded(t *testing.T) {
	var polls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/v1/predictions/job-1", r.URL.Path)
		assert.Equal(t, "Token r8_test", r.Header.Get("Authorization"))

		if atomic.AddInt32(&polls, 1) < 3 {
			_, _ = w.Write([]byte(`{"id":"job-1","status":"processing"}`))
			return
		}
		_, _ = w.Write([]byte(`{"id":"job-1","status":"succeeded","output":["Fresh ","bread ","daily"]}`))
	}))
	defer server.Close()

	a := newAdapter(t, server.URL+"/v1/predictions", server.Client(), 10)

	text, err := a.ExtractContent(context.Background(), []byte(`{"id":"job-1","status":"starting"}`))
	require.NoError(t, err)
	assert.Equal(t, "Fresh bread daily", text)
	assert.Equal(t, int32(3), atomic.LoadInt32(&polls))
}

func TestExtractContent_UsesJobURL(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/custom/job-2", r.URL.Path)
		_, _ = w.Write([]byte(`{"id":"job-2","status":"succeeded","output":"done"}`))
	}))
	defer server.Close()

	a := newAdapter(t, "http://unused", server.Client(), 3)

	body := fmt.Sprintf(`{"id":"job-2","status":"starting","urls":{"get":"%s/custom/job-2"}}`, server.URL)
	text, err := a.ExtractContent(context.Background(), []byte(body))
	require.NoError(t, err)
	assert.Equal(t, "done", text)
}

func TestExtractContent_ImmediateSuccess(t *testing.T) {
	a := newAdapter(t, "http://unused", http.DefaultClient, 1)

	text, err := a.ExtractContent(context.Background(), []byte(`{"id":"j","status":"succeeded","output":["ok"]}`))
	require.NoError(t, err)
	assert.Equal(t, "ok", text)
}

func TestExtractContent_JobFailed(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"id":"job-3","status":"failed","error":"CUDA out of memory"}`))
	}))
	defer server.Close()

	a := newAdapter(t, server.URL, server.Client(), 5)

	_, err := a.ExtractContent(context.Background(), []byte(`{"id":"job-3","status":"starting"}`))
	assert.ErrorIs(t, err, llm.ErrJobFailed)
}

func TestExtractContent_PollTimeout(t *testing.T) {
	var polls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&polls, 1)
		_, _ = w.Write([]byte(`{"id":"job-4","status":"processing"}`))
	}))
	defer server.Close()

	a := newAdapter(t, server.URL, server.Client(), 4)

	_, err := a.ExtractContent(context.Background(), []byte(`{"id":"job-4","status":"starting"}`))
	assert.ErrorIs(t, err, llm.ErrPollTimeout)
	assert.Equal(t, int32(4), atomic.LoadInt32(&polls))
}

func TestExtractContent_PollHTTPError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	a := newAdapter(t, server.URL, server.Client(), 5)

	_, err := a.ExtractContent(context.Background(), []byte(`{"id":"job-5","status":"starting"}`))
	assert.ErrorContains(t, err, "polling failed")
}

func TestExtractContent_NoHandle(t *testing.T) {
	a := newAdapter(t, "http://unused", http.DefaultClient, 1)

	_, err := a.ExtractContent(context.Background(), []byte(`{"status":"starting"}`))
	assert.Error(t, err)
}
