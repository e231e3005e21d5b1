package httpclient

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSendRequest_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.Equal(t, "Bearer k", r.Header.Get("Authorization"))

		body, _ := io.ReadAll(r.Body)
		assert.JSONEq(t, `{"prompt":"hi"}`, string(body))

		_, _ = w.Write([]byte(`{"content":"hello"}`))
	}))
	defer server.Close()

	var out struct {
		Content string `json:"content"`
	}
	err := SendRequest(context.Background(), server.Client(), http.MethodPost, server.URL,
		map[string]string{"Authorization": "Bearer k"},
		map[string]string{"prompt": "hi"}, &out)

	require.NoError(t, err)
	assert.Equal(t, "hello", out.Content)
}

func TestSend_NonSuccessStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error":{"message":"slow down"}}`))
	}))
	defer server.Close()

	_, err := Send(context.Background(), server.Client(), http.MethodGet, server.URL, nil, nil)
	require.Error(t, err)

	var upstreamErr *UpstreamError
	require.True(t, errors.As(err, &upstreamErr))
	assert.Equal(t, http.StatusTooManyRequests, upstreamErr.StatusCode)
	assert.Contains(t, string(upstreamErr.Body), "slow down")
	assert.Equal(t, http.StatusTooManyRequests, StatusCode(err))
}

func TestSendRequest_DecodeFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`not json`))
	}))
	defer server.Close()

	var out map[string]interface{}
	err := SendRequest(context.Background(), server.Client(), http.MethodGet, server.URL, nil, nil, &out)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to decode response")
	assert.Equal(t, 0, StatusCode(err))
}

func TestStatusCode_Wrapped(t *testing.T) {
	err := fmt.Errorf("attempt: %w", &UpstreamError{StatusCode: 502, URL: "x"})
	assert.Equal(t, 502, StatusCode(err))
}
