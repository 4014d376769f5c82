package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/quanta/internal/common"
	"github.com/ternarybob/quanta/internal/interfaces"
)

func newOllamaTestService(t *testing.T, handler http.HandlerFunc) (*OllamaService, *httptest.Server) {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	service := NewOllamaService(&common.OllamaConfig{
		Host:    server.URL,
		Model:   "mistral:instruct",
		Timeout: "5s",
	}, arbor.NewLogger())
	return service, server
}

func TestOllamaGenerateSendsOptions(t *testing.T) {
	var captured ollamaGenerateRequest
	service, _ := newOllamaTestService(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/generate", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&captured))
		json.NewEncoder(w).Encode(ollamaGenerateResponse{Response: "  hello  ", Done: true})
	})

	text, err := service.Generate(context.Background(), "say hello", interfaces.GenerateOptions{
		Temperature: 0.05,
		MaxTokens:   50,
		TopK:        10,
		TopP:        0.8,
	})
	require.NoError(t, err)

	assert.Equal(t, "hello", text)
	assert.Equal(t, "mistral:instruct", captured.Model)
	assert.False(t, captured.Stream)
	assert.Equal(t, 0.05, captured.Options["temperature"])
	assert.Equal(t, float64(50), captured.Options["num_predict"])
	assert.Equal(t, float64(10), captured.Options["top_k"])
	assert.Equal(t, 0.8, captured.Options["top_p"])
}

func TestOllamaGenerateZeroOptionsOmitted(t *testing.T) {
	var captured ollamaGenerateRequest
	service, _ := newOllamaTestService(t, func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&captured))
		json.NewEncoder(w).Encode(ollamaGenerateResponse{Response: "ok", Done: true})
	})

	_, err := service.Generate(context.Background(), "prompt", interfaces.GenerateOptions{})
	require.NoError(t, err)

	assert.Empty(t, captured.Options)
}

func TestOllamaGenerateServerError(t *testing.T) {
	service, _ := newOllamaTestService(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model not found", http.StatusNotFound)
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		// Abort retries quickly; the client backs off between attempts.
		cancel()
	}()

	_, err := service.Generate(ctx, "prompt", interfaces.GenerateOptions{})
	assert.Error(t, err)
}

func TestOllamaHealthCheck(t *testing.T) {
	service, _ := newOllamaTestService(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/api/version" {
			json.NewEncoder(w).Encode(map[string]string{"version": "0.5.0"})
			return
		}
		http.NotFound(w, r)
	})

	assert.NoError(t, service.HealthCheck(context.Background()))
}

func TestOllamaHealthCheckFailure(t *testing.T) {
	service, server := newOllamaTestService(t, func(w http.ResponseWriter, r *http.Request) {})
	server.Close()

	assert.Error(t, service.HealthCheck(context.Background()))
}

func TestOllamaProviderName(t *testing.T) {
	service, _ := newOllamaTestService(t, func(w http.ResponseWriter, r *http.Request) {})
	assert.Equal(t, "ollama", service.ProviderName())
}
