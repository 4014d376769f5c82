package llm

import (
	"context"
	"strings"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/quanta/internal/common"
	"github.com/ternarybob/quanta/internal/interfaces"
	"github.com/ternarybob/quanta/internal/models"
)

// promptPrefixChars bounds how much prompt text is persisted per call.
const promptPrefixChars = 200

// AuditedService wraps a provider service and records every Generate call.
// Recording failures are logged but never fail the generation itself.
type AuditedService struct {
	inner   interfaces.LLMService
	storage interfaces.AuditStorage
	logger  arbor.ILogger
}

func NewAuditedService(inner interfaces.LLMService, storage interfaces.AuditStorage, logger arbor.ILogger) *AuditedService {
	return &AuditedService{
		inner:   inner,
		storage: storage,
		logger:  logger,
	}
}

var _ interfaces.LLMService = (*AuditedService)(nil)

func (s *AuditedService) Generate(ctx context.Context, prompt string, opts interfaces.GenerateOptions) (string, error) {
	start := time.Now()
	response, err := s.inner.Generate(ctx, prompt, opts)

	record := &models.LLMAuditRecord{
		ID:            common.NewAuditID(),
		Provider:      s.inner.ProviderName(),
		Purpose:       classifyPurpose(prompt),
		PromptPrefix:  truncatePrompt(prompt),
		ResponseChars: len(response),
		DurationMs:    time.Since(start).Milliseconds(),
		Status:        "success",
		CreatedAt:     time.Now().UTC(),
	}
	if err != nil {
		record.Status = "failed"
		record.Error = err.Error()
	}

	if saveErr := s.storage.SaveRecord(record); saveErr != nil {
		s.logger.Warn().Err(saveErr).Msg("Failed to save LLM audit record")
	}

	return response, err
}

func (s *AuditedService) HealthCheck(ctx context.Context) error {
	return s.inner.HealthCheck(ctx)
}

func (s *AuditedService) ProviderName() string {
	return s.inner.ProviderName()
}

func (s *AuditedService) Close() error {
	return s.inner.Close()
}

// classifyPurpose tags the call by the prompt it carries. The pipeline has
// three fixed prompt shapes, each with a distinctive opening line.
func classifyPurpose(prompt string) string {
	switch {
	case strings.Contains(prompt, "Classify the user's query"):
		return "classification"
	case strings.Contains(prompt, "comprehensive ETF holdings data"):
		return "comprehensive"
	default:
		return "synthesis"
	}
}

func truncatePrompt(prompt string) string {
	if len(prompt) <= promptPrefixChars {
		return prompt
	}
	return prompt[:promptPrefixChars]
}
