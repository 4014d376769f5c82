package interfaces

import "github.com/ternarybob/quanta/internal/models"

// AuditStorage persists LLM call audit records.
type AuditStorage interface {
	SaveRecord(record *models.LLMAuditRecord) error
	ListRecent(limit int) ([]models.LLMAuditRecord, error)
	Count() (int, error)
}

// SnapshotStorage persists ingest run snapshots.
type SnapshotStorage interface {
	SaveSnapshot(snapshot *models.IngestSnapshot) error
	LatestSnapshot() (*models.IngestSnapshot, error)
	ListSnapshots(limit int) ([]models.IngestSnapshot, error)
}

// StorageManager owns the embedded store and hands out typed sub-stores.
type StorageManager interface {
	Audit() AuditStorage
	Snapshots() SnapshotStorage

	// RunValueLogGC triggers one round of value log garbage collection.
	RunValueLogGC() error

	Close() error
}
