package badger

import (
	"fmt"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/quanta/internal/interfaces"
	"github.com/ternarybob/quanta/internal/models"
	"github.com/timshannon/badgerhold/v4"
)

// SnapshotStorage implements the SnapshotStorage interface for Badger
type SnapshotStorage struct {
	db     *BadgerDB
	logger arbor.ILogger
}

// NewSnapshotStorage creates a new SnapshotStorage instance
func NewSnapshotStorage(db *BadgerDB, logger arbor.ILogger) interfaces.SnapshotStorage {
	return &SnapshotStorage{
		db:     db,
		logger: logger,
	}
}

// SaveSnapshot persists one ingest run keyed by its ID
func (s *SnapshotStorage) SaveSnapshot(snapshot *models.IngestSnapshot) error {
	if snapshot == nil || snapshot.ID == "" {
		return fmt.Errorf("snapshot requires an ID")
	}

	if err := s.db.Store().Upsert(snapshot.ID, snapshot); err != nil {
		return fmt.Errorf("failed to save snapshot: %w", err)
	}
	return nil
}

// LatestSnapshot returns the most recent run, or nil when none exist
func (s *SnapshotStorage) LatestSnapshot() (*models.IngestSnapshot, error) {
	var snapshots []models.IngestSnapshot
	query := (&badgerhold.Query{}).SortBy("StartedAt").Reverse().Limit(1)

	if err := s.db.Store().Find(&snapshots, query); err != nil {
		return nil, fmt.Errorf("failed to load latest snapshot: %w", err)
	}
	if len(snapshots) == 0 {
		return nil, nil
	}
	return &snapshots[0], nil
}

// ListSnapshots returns the newest runs first
func (s *SnapshotStorage) ListSnapshots(limit int) ([]models.IngestSnapshot, error) {
	var snapshots []models.IngestSnapshot
	query := (&badgerhold.Query{}).SortBy("StartedAt").Reverse()
	if limit > 0 {
		query = query.Limit(limit)
	}

	if err := s.db.Store().Find(&snapshots, query); err != nil {
		return nil, fmt.Errorf("failed to list snapshots: %w", err)
	}
	return snapshots, nil
}
