package server_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentforge/agentforge/internal/agent"
	"github.com/agentforge/agentforge/internal/config"
	"github.com/agentforge/agentforge/internal/llm"
	"github.com/agentforge/agentforge/internal/registry"
	"github.com/agentforge/agentforge/internal/server"
	"github.com/agentforge/agentforge/internal/tools"
)

type noResults struct{}

func (noResults) Search(context.Context, string) ([]string, error) { return nil, nil }

func newHandler(t *testing.T, cfg *config.Config) http.Handler {
	t.Helper()
	reg := registry.New(nil, llm.Disabled{}, registry.Options{})
	for _, spec := range tools.Builtins(llm.Disabled{}, noResults{}) {
		require.NoError(t, reg.RegisterNative(spec))
	}
	srv, err := server.New(cfg, server.Deps{
		Registry: reg,
		Emitter:  agent.NewEmitter(agent.NewPipeline(reg)),
	})
	require.NoError(t, err)
	return srv.Handler()
}

func baseConfig() *config.Config {
	return &config.Config{
		Host:         "127.0.0.1",
		Port:         8000,
		APIPrefix:    "/api/v1",
		APIKeyHeader: "X-API-Key",
		StoreBackend: "file",
		LLMProvider:  "anthropic",
	}
}

func TestNewRequiresRegistry(t *testing.T) {
	_, err := server.New(baseConfig(), server.Deps{})
	assert.Error(t, err)
}

func TestRoutes(t *testing.T) {
	h := newHandler(t, baseConfig())

	tests := []struct {
		method string
		path   string
		body   string
		want   int
	}{
		{http.MethodGet, "/health", "", http.StatusOK},
		{http.MethodGet, "/", "", http.StatusOK},
		{http.MethodGet, "/api/v1/tools", "", http.StatusOK},
		{http.MethodPost, "/api/v1/tools/register_llm", `{"name":"poet_one","description":"Writes short poems"}`, http.StatusCreated},
		{http.MethodPost, "/api/v1/tools/register_llm/", `{"name":"poet_two","description":"Writes short poems"}`, http.StatusCreated},
		{http.MethodPost, "/api/v1/tools/register-llm", `{"name":"poet_three","description":"Writes short poems"}`, http.StatusCreated},
		{http.MethodPost, "/api/v1/tools/register_source", `{}`, http.StatusForbidden},
		{http.MethodPost, "/api/v1/tools/execute", `{"tool_type":"calculator","parameters":{"expression":"3*3"}}`, http.StatusOK},
		{http.MethodGet, "/api/v1/stream?query=hi", "", http.StatusOK},
		{http.MethodGet, "/api/v1/agents", "", http.StatusOK},
		{http.MethodGet, "/api/v1/agents/unknown", "", http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, tt.path, strings.NewReader(tt.body))
			rr := httptest.NewRecorder()
			h.ServeHTTP(rr, req)
			assert.Equal(t, tt.want, rr.Code, rr.Body.String())
			assert.NotEmpty(t, rr.Header().Get("X-Request-ID"))
			assert.Equal(t, "nosniff", rr.Header().Get("X-Content-Type-Options"))
		})
	}
}

func TestAuthGuardsAPIRoutes(t *testing.T) {
	cfg := baseConfig()
	cfg.EnableAuth = true
	cfg.APIKeys = []string{"k1"}
	h := newHandler(t, cfg)

	serve := func(path, key string) int {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		if key != "" {
			req.Header.Set("X-API-Key", key)
		}
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, req)
		return rr.Code
	}

	assert.Equal(t, http.StatusOK, serve("/health", ""))
	assert.Equal(t, http.StatusUnauthorized, serve("/api/v1/tools", ""))
	assert.Equal(t, http.StatusForbidden, serve("/api/v1/tools", "nope"))
	assert.Equal(t, http.StatusOK, serve("/api/v1/tools", "k1"))
}
