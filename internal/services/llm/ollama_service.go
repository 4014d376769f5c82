package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/quanta/internal/common"
	"github.com/ternarybob/quanta/internal/interfaces"
)

// OllamaService generates completions against a local Ollama daemon using
// the non-streaming /api/generate endpoint.
type OllamaService struct {
	host   string
	model  string
	client *http.Client
	logger arbor.ILogger
}

type ollamaGenerateRequest struct {
	Model   string                 `json:"model"`
	Prompt  string                 `json:"prompt"`
	Options map[string]interface{} `json:"options,omitempty"`
	Stream  bool                   `json:"stream"`
}

type ollamaGenerateResponse struct {
	Response string `json:"response"`
	Done     bool   `json:"done"`
}

func NewOllamaService(config *common.OllamaConfig, logger arbor.ILogger) *OllamaService {
	return &OllamaService{
		host:  strings.TrimRight(config.Host, "/"),
		model: config.Model,
		client: &http.Client{
			Timeout: common.Duration(config.Timeout, 30*time.Second),
		},
		logger: logger,
	}
}

var _ interfaces.LLMService = (*OllamaService)(nil)

// Generate produces a completion via the Ollama generate API.
func (s *OllamaService) Generate(ctx context.Context, prompt string, opts interfaces.GenerateOptions) (string, error) {
	options := map[string]interface{}{}
	if opts.Temperature > 0 {
		options["temperature"] = opts.Temperature
	}
	if opts.MaxTokens > 0 {
		options["num_predict"] = opts.MaxTokens
	}
	if opts.TopK > 0 {
		options["top_k"] = opts.TopK
	}
	if opts.TopP > 0 {
		options["top_p"] = opts.TopP
	}

	payload := ollamaGenerateRequest{
		Model:   s.model,
		Prompt:  prompt,
		Options: options,
		Stream:  false,
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("failed to marshal ollama request: %w", err)
	}

	retryConfig := NewDefaultRetryConfig()
	var text string
	var lastErr error

	for attempt := 0; attempt <= retryConfig.MaxRetries; attempt++ {
		text, lastErr = s.generateOnce(ctx, body)
		if lastErr == nil {
			break
		}
		if attempt == retryConfig.MaxRetries {
			break
		}

		backoff := retryConfig.CalculateBackoff(attempt, 0)
		s.logger.Warn().
			Int("attempt", attempt+1).
			Dur("backoff", backoff).
			Err(lastErr).
			Msg("Retrying Ollama API call")

		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(backoff):
		}
	}
	if lastErr != nil {
		return "", fmt.Errorf("ollama generation failed after %d retries: %w", retryConfig.MaxRetries, lastErr)
	}

	s.logger.Debug().
		Str("model", s.model).
		Int("prompt_length", len(prompt)).
		Int("response_length", len(text)).
		Msg("Ollama generation completed")

	return text, nil
}

func (s *OllamaService) generateOnce(ctx context.Context, body []byte) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.host+"/api/generate", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("ollama request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", fmt.Errorf("ollama returned status %d: %s", resp.StatusCode, string(respBody))
	}

	var parsed ollamaGenerateResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", fmt.Errorf("failed to parse ollama response: %w", err)
	}

	return strings.TrimSpace(parsed.Response), nil
}

// HealthCheck confirms the daemon answers on its version endpoint.
func (s *OllamaService) HealthCheck(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.host+"/api/version", nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("ollama not reachable at %s: %w", s.host, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("ollama health check returned status %d", resp.StatusCode)
	}
	return nil
}

func (s *OllamaService) ProviderName() string {
	return string(common.ProviderOllama)
}

func (s *OllamaService) Close() error {
	s.client.CloseIdleConnections()
	return nil
}
