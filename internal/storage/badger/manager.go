package badger

import (
	"errors"

	badgerdb "github.com/dgraph-io/badger/v4"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/quanta/internal/common"
	"github.com/ternarybob/quanta/internal/interfaces"
)

// Manager implements the StorageManager interface for Badger
type Manager struct {
	db        *BadgerDB
	audit     interfaces.AuditStorage
	snapshots interfaces.SnapshotStorage
	logger    arbor.ILogger
}

// NewManager creates a new Badger storage manager
func NewManager(logger arbor.ILogger, config *common.BadgerConfig) (interfaces.StorageManager, error) {
	db, err := NewBadgerDB(logger, config)
	if err != nil {
		return nil, err
	}

	manager := &Manager{
		db:        db,
		audit:     NewAuditStorage(db, logger),
		snapshots: NewSnapshotStorage(db, logger),
		logger:    logger,
	}

	logger.Info().Msg("Badger storage manager initialized")

	return manager, nil
}

// Audit returns the LLM audit storage interface
func (m *Manager) Audit() interfaces.AuditStorage {
	return m.audit
}

// Snapshots returns the ingest snapshot storage interface
func (m *Manager) Snapshots() interfaces.SnapshotStorage {
	return m.snapshots
}

// RunValueLogGC reclaims space in the value log. Badger rewrites at most one
// file per call, so keep invoking it until there is nothing left to rewrite.
func (m *Manager) RunValueLogGC() error {
	if m.db == nil {
		return nil
	}

	rewritten := 0
	for {
		err := m.db.Store().Badger().RunValueLogGC(0.5)
		if errors.Is(err, badgerdb.ErrNoRewrite) {
			break
		}
		if err != nil {
			return err
		}
		rewritten++
	}

	m.logger.Debug().Int("files_rewritten", rewritten).Msg("Badger value log GC completed")
	return nil
}

// Close closes the database connection
func (m *Manager) Close() error {
	if m.db != nil {
		return m.db.Close()
	}
	return nil
}
