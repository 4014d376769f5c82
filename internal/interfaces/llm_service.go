package interfaces

import (
	"context"
)

// GenerateOptions tunes a single completion call. Zero values mean provider
// defaults; classification and synthesis use deliberately tight settings to
// keep outputs short and stable.
type GenerateOptions struct {
	Temperature float64
	MaxTokens   int
	TopK        int
	TopP        float64
}

// LLMService defines the interface for single-turn language model completions.
// Implementations exist for Ollama, Gemini and Claude; the pipeline never
// depends on which provider is behind it.
type LLMService interface {
	// Generate produces a completion for the given prompt.
	//
	// Parameters:
	//   - ctx: Context for cancellation and timeout control
	//   - prompt: Fully rendered prompt text
	//   - opts: Sampling options for this call
	//
	// Returns:
	//   - string: Generated completion text
	//   - error: Error if the provider call fails
	Generate(ctx context.Context, prompt string, opts GenerateOptions) (string, error)

	// HealthCheck verifies the provider is reachable and can handle requests.
	HealthCheck(ctx context.Context) error

	// ProviderName returns the configured provider identifier ("ollama",
	// "gemini" or "claude").
	ProviderName() string

	// Close releases resources held by the provider client.
	Close() error
}
