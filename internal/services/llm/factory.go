package llm

import (
	"context"
	"fmt"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/quanta/internal/common"
	"github.com/ternarybob/quanta/internal/interfaces"
	"golang.org/x/time/rate"
)

// NewLLMService creates the configured provider service, wrapped with a
// client-side rate limiter and an audit recorder.
func NewLLMService(ctx context.Context, cfg *common.LLMConfig, audit interfaces.AuditStorage, logger arbor.ILogger) (interfaces.LLMService, error) {
	logger.Info().Str("provider", string(cfg.Provider)).Msg("Initializing LLM service")

	var service interfaces.LLMService
	var err error

	switch cfg.Provider {
	case common.ProviderOllama:
		service = NewOllamaService(&cfg.Ollama, logger)
	case common.ProviderGemini:
		service, err = NewGeminiService(ctx, &cfg.Gemini, logger)
	case common.ProviderClaude:
		service, err = NewClaudeService(&cfg.Claude, logger)
	default:
		return nil, fmt.Errorf("unsupported LLM provider: %s", cfg.Provider)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create %s service: %w", cfg.Provider, err)
	}

	if cfg.RateLimit > 0 {
		service = newRateLimitedService(service, cfg.RateLimit, cfg.RateBurst)
	}

	if audit != nil {
		service = NewAuditedService(service, audit, logger)
	}

	return service, nil
}

// rateLimitedService throttles Generate calls so provider quotas are not
// exhausted by bursts of uncached queries.
type rateLimitedService struct {
	interfaces.LLMService
	limiter *rate.Limiter
}

func newRateLimitedService(inner interfaces.LLMService, perSecond float64, burst int) *rateLimitedService {
	if burst < 1 {
		burst = 1
	}
	return &rateLimitedService{
		LLMService: inner,
		limiter:    rate.NewLimiter(rate.Limit(perSecond), burst),
	}
}

func (s *rateLimitedService) Generate(ctx context.Context, prompt string, opts interfaces.GenerateOptions) (string, error) {
	if err := s.limiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("rate limit wait: %w", err)
	}
	return s.LLMService.Generate(ctx, prompt, opts)
}
