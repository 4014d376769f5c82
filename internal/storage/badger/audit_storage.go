package badger

import (
	"fmt"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/quanta/internal/interfaces"
	"github.com/ternarybob/quanta/internal/models"
	"github.com/timshannon/badgerhold/v4"
)

// AuditStorage implements the AuditStorage interface for Badger
type AuditStorage struct {
	db     *BadgerDB
	logger arbor.ILogger
}

// NewAuditStorage creates a new AuditStorage instance
func NewAuditStorage(db *BadgerDB, logger arbor.ILogger) interfaces.AuditStorage {
	return &AuditStorage{
		db:     db,
		logger: logger,
	}
}

// SaveRecord persists one LLM call record keyed by its ID
func (s *AuditStorage) SaveRecord(record *models.LLMAuditRecord) error {
	if record == nil || record.ID == "" {
		return fmt.Errorf("audit record requires an ID")
	}

	if err := s.db.Store().Upsert(record.ID, record); err != nil {
		return fmt.Errorf("failed to save audit record: %w", err)
	}
	return nil
}

// ListRecent returns the newest records first
func (s *AuditStorage) ListRecent(limit int) ([]models.LLMAuditRecord, error) {
	var records []models.LLMAuditRecord
	query := (&badgerhold.Query{}).SortBy("CreatedAt").Reverse()
	if limit > 0 {
		query = query.Limit(limit)
	}

	if err := s.db.Store().Find(&records, query); err != nil {
		return nil, fmt.Errorf("failed to list audit records: %w", err)
	}
	return records, nil
}

// Count returns the number of stored audit records
func (s *AuditStorage) Count() (int, error) {
	count, err := s.db.Store().Count(&models.LLMAuditRecord{}, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to count audit records: %w", err)
	}
	return int(count), nil
}
