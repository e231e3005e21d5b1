package server

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/nulzo/prism-copy/internal/config"
	"github.com/nulzo/prism-copy/internal/copywriter"
	"github.com/nulzo/prism-copy/internal/failover"
	"github.com/nulzo/prism-copy/internal/kv/memory"
	"github.com/nulzo/prism-copy/internal/llm"
	_ "github.com/nulzo/prism-copy/internal/llm/chat"
	"github.com/nulzo/prism-copy/internal/quota"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const apiKey = "sk-dashboard-test"

func chatUpstream(t *testing.T, status int, content string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(status)
		if status == http.StatusOK {
			_, _ = fmt.Fprintf(w, `{"choices":[{"message":{"role":"assistant","content":%q}}]}`, content)
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func newTestServer(t *testing.T, dailyLimit int, upstreams ...config.ProviderConfig) *Server {
	t.Helper()
	gin.SetMode(gin.TestMode)
	cfg := &config.Config{
		Server: config.ServerConfig{
			Port:      "0",
			Env:       "test",
			APIKeys:   []string{apiKey},
			RateLimit: config.RateLimitConfig{RequestsPerSecond: 1000, Burst: 1000},
		},
	}

	pool := failover.NewPool(upstreams, llm.Options{}, zap.NewNop())
	client := failover.NewClient(pool, failover.NewCooldown(time.Minute, nil), &http.Client{Timeout: 5 * time.Second}, zap.NewNop())
	gate := quota.NewGate(memory.New(), dailyLimit)

	return New(cfg, zap.NewNop(), Deps{
		Failover: client,
		Quota:    gate,
		Features: copywriter.NewService(client, gate, zap.NewNop()),
		Version:  "test",
	})
}

func call(s *Server, method, path string, body interface{}) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+apiKey)
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)
	return w
}

func TestServer_FailoverEndToEnd(t *testing.T) {
	broken := chatUpstream(t, http.StatusInternalServerError, "")
	healthy := chatUpstream(t, http.StatusOK, "hello")

	s := newTestServer(t, 5,
		config.ProviderConfig{ID: "openrouter", Type: "chat", APIKey: "sk-or", Endpoint: broken.URL, Model: "or-model"},
		config.ProviderConfig{ID: "groq", Type: "chat", APIKey: "sk-groq", Endpoint: healthy.URL, Model: "groq-model"},
		config.ProviderConfig{ID: "huggingface", Type: "inference", APIKey: "", Endpoint: healthy.URL, Model: "hf-model"},
	)

	w := call(s, http.MethodPost, "/v1/generate", map[string]string{"prompt": "hi"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"content":"hello","provider":"groq","model":"groq-model"}`, w.Body.String())

	w = call(s, http.MethodGet, "/v1/providers", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var status map[string]failover.Status
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &status))
	assert.Len(t, status, 2)
	assert.False(t, status["openrouter"].Eligible)
	assert.True(t, status["groq"].Eligible)
	assert.NotContains(t, status, "huggingface")

	w = call(s, http.MethodPost, "/v1/providers/reset", nil)
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = call(s, http.MethodGet, "/v1/providers", nil)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &status))
	assert.True(t, status["openrouter"].Eligible)
}

func TestServer_FeatureQuota(t *testing.T) {
	healthy := chatUpstream(t, http.StatusOK, "#coffee #morning")
	s := newTestServer(t, 2,
		config.ProviderConfig{ID: "groq", Type: "chat", APIKey: "sk-groq", Endpoint: healthy.URL, Model: "groq-model"},
	)

	for i := 1; i <= 2; i++ {
		w := call(s, http.MethodPost, "/v1/features/hashtags", map[string]string{"topic": "coffee"})
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	}

	w := call(s, http.MethodPost, "/v1/features/hashtags", map[string]string{"topic": "coffee"})
	assert.Equal(t, http.StatusTooManyRequests, w.Code)

	w = call(s, http.MethodGet, "/v1/quota", nil)
	assert.JSONEq(t, `{"daily_used":2,"daily_limit":2,"can_use_feature":false}`, w.Body.String())

	w = call(s, http.MethodPost, "/v1/quota/reset", nil)
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = call(s, http.MethodGet, "/v1/quota", nil)
	assert.JSONEq(t, `{"daily_used":0,"daily_limit":2,"can_use_feature":true}`, w.Body.String())
}

func TestServer_FeatureExhaustionKeepsQuota(t *testing.T) {
	broken := chatUpstream(t, http.StatusBadGateway, "")
	s := newTestServer(t, 2,
		config.ProviderConfig{ID: "groq", Type: "chat", APIKey: "sk-groq", Endpoint: broken.URL, Model: "groq-model"},
	)

	w := call(s, http.MethodPost, "/v1/features/caption", map[string]string{"topic": "coffee"})
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)

	w = call(s, http.MethodGet, "/v1/quota", nil)
	assert.JSONEq(t, `{"daily_used":0,"daily_limit":2,"can_use_feature":true}`, w.Body.String())
}

func TestServer_PublicEndpointsAndAuth(t *testing.T) {
	s := newTestServer(t, 2)

	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"degraded"`)

	w = httptest.NewRecorder()
	s.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.True(t, strings.Contains(w.Body.String(), "go_goroutines"))

	w = httptest.NewRecorder()
	s.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/v1/quota", nil))
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))
}

func TestServer_UnknownRouteIsProblem(t *testing.T) {
	s := newTestServer(t, 1)

	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/v2/generate", nil))

	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "application/problem+json", w.Header().Get("Content-Type"))
	assert.Contains(t, w.Body.String(), `"instance":"/v2/generate"`)
}

func TestHTTPServer_WriteTimeoutCoversWholePool(t *testing.T) {
	gin.SetMode(gin.TestMode)
	hanging := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	t.Cleanup(hanging.Close)
	healthy := chatUpstream(t, http.StatusOK, "late but fine")

	defs := []config.ProviderConfig{
		{ID: "openrouter", Type: "chat", APIKey: "sk-1", Endpoint: hanging.URL, Model: "m1"},
		{ID: "groq", Type: "chat", APIKey: "sk-2", Endpoint: hanging.URL, Model: "m2"},
		{ID: "together", Type: "chat", APIKey: "sk-3", Endpoint: hanging.URL, Model: "m3"},
		{ID: "mistral", Type: "chat", APIKey: "sk-4", Endpoint: healthy.URL, Model: "m4"},
	}
	cfg := &config.Config{
		Server:   config.ServerConfig{Port: "0", Env: "test", RateLimit: config.RateLimitConfig{RequestsPerSecond: 100, Burst: 100}},
		Failover: config.FailoverConfig{RequestTimeout: 100 * time.Millisecond},
	}
	pool := failover.NewPool(defs, llm.Options{}, zap.NewNop())
	client := failover.NewClient(pool, failover.NewCooldown(time.Minute, nil),
		&http.Client{Timeout: cfg.Failover.RequestTimeout}, zap.NewNop())
	gate := quota.NewGate(memory.New(), 5)
	s := New(cfg, zap.NewNop(), Deps{
		Failover: client,
		Quota:    gate,
		Features: copywriter.NewService(client, gate, zap.NewNop()),
		PoolSize: func() int { return len(pool) },
		Version:  "test",
	})

	srv := s.HTTPServer()
	assert.GreaterOrEqual(t, srv.WriteTimeout, 4*cfg.Failover.RequestTimeout)

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	go func() { _ = srv.Serve(ln) }()
	t.Cleanup(func() { _ = srv.Close() })

	resp, err := http.Post("http://"+ln.Addr().String()+"/v1/generate", "application/json",
		strings.NewReader(`{"prompt":"hi"}`))
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	var body map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "late but fine", body["content"])
	assert.Equal(t, "mistral", body["provider"])
}

func TestHTTPServer_NoRequestBudgetDisablesWriteTimeout(t *testing.T) {
	s := newTestServer(t, 1)
	assert.Zero(t, s.HTTPServer().WriteTimeout)
}
