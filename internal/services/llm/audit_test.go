package llm

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/quanta/internal/interfaces"
	"github.com/ternarybob/quanta/internal/models"
)

type memoryAuditStorage struct {
	records []models.LLMAuditRecord
	saveErr error
}

func (m *memoryAuditStorage) SaveRecord(record *models.LLMAuditRecord) error {
	if m.saveErr != nil {
		return m.saveErr
	}
	m.records = append(m.records, *record)
	return nil
}

func (m *memoryAuditStorage) ListRecent(limit int) ([]models.LLMAuditRecord, error) {
	if limit > len(m.records) {
		limit = len(m.records)
	}
	return m.records[:limit], nil
}

func (m *memoryAuditStorage) Count() (int, error) { return len(m.records), nil }

type stubProvider struct {
	response string
	err      error
}

func (p *stubProvider) Generate(ctx context.Context, prompt string, opts interfaces.GenerateOptions) (string, error) {
	if p.err != nil {
		return "", p.err
	}
	return p.response, nil
}
func (p *stubProvider) HealthCheck(ctx context.Context) error { return nil }
func (p *stubProvider) ProviderName() string                  { return "stub" }
func (p *stubProvider) Close() error                          { return nil }

func TestAuditedServiceRecordsSuccess(t *testing.T) {
	storage := &memoryAuditStorage{}
	service := NewAuditedService(&stubProvider{response: "fine answer"}, storage, arbor.NewLogger())

	response, err := service.Generate(context.Background(), "Classify the user's query into ONE intent", interfaces.GenerateOptions{})
	require.NoError(t, err)
	assert.Equal(t, "fine answer", response)

	require.Len(t, storage.records, 1)
	record := storage.records[0]
	assert.Equal(t, "stub", record.Provider)
	assert.Equal(t, "classification", record.Purpose)
	assert.Equal(t, "success", record.Status)
	assert.Equal(t, len("fine answer"), record.ResponseChars)
	assert.NotEmpty(t, record.ID)
}

func TestAuditedServiceRecordsFailure(t *testing.T) {
	storage := &memoryAuditStorage{}
	service := NewAuditedService(&stubProvider{err: errors.New("quota exceeded")}, storage, arbor.NewLogger())

	_, err := service.Generate(context.Background(), "some prompt", interfaces.GenerateOptions{})
	require.Error(t, err)

	require.Len(t, storage.records, 1)
	assert.Equal(t, "failed", storage.records[0].Status)
	assert.Contains(t, storage.records[0].Error, "quota exceeded")
}

func TestAuditedServiceStorageFailureDoesNotBreakGeneration(t *testing.T) {
	storage := &memoryAuditStorage{saveErr: errors.New("disk full")}
	service := NewAuditedService(&stubProvider{response: "still works"}, storage, arbor.NewLogger())

	response, err := service.Generate(context.Background(), "prompt", interfaces.GenerateOptions{})
	require.NoError(t, err)
	assert.Equal(t, "still works", response)
}

func TestAuditedServiceTruncatesPrompt(t *testing.T) {
	storage := &memoryAuditStorage{}
	service := NewAuditedService(&stubProvider{response: "ok"}, storage, arbor.NewLogger())

	long := strings.Repeat("x", 1000)
	_, err := service.Generate(context.Background(), long, interfaces.GenerateOptions{})
	require.NoError(t, err)

	assert.Len(t, storage.records[0].PromptPrefix, promptPrefixChars)
}

func TestClassifyPurpose(t *testing.T) {
	assert.Equal(t, "classification", classifyPurpose("... Classify the user's query into ONE of ..."))
	assert.Equal(t, "comprehensive", classifyPurpose("... using the provided comprehensive ETF holdings data ..."))
	assert.Equal(t, "synthesis", classifyPurpose("You are a financial data analyst."))
}
