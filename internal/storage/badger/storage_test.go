package badger

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/quanta/internal/common"
	"github.com/ternarybob/quanta/internal/models"
)

func openTestManager(t *testing.T) *Manager {
	t.Helper()

	logger := arbor.NewLogger()
	mgr, err := NewManager(logger, &common.BadgerConfig{Path: t.TempDir()})
	require.NoError(t, err)
	t.Cleanup(func() { mgr.Close() })

	return mgr.(*Manager)
}

func auditRecord(id string, createdAt time.Time) *models.LLMAuditRecord {
	return &models.LLMAuditRecord{
		ID:            id,
		Provider:      "ollama",
		Model:         "llama3.2",
		Purpose:       "synthesis",
		PromptPrefix:  "You are a financial assistant",
		ResponseChars: 240,
		DurationMs:    1200,
		Status:        "success",
		CreatedAt:     createdAt,
	}
}

func TestAuditStorageRoundTrip(t *testing.T) {
	mgr := openTestManager(t)

	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	require.NoError(t, mgr.Audit().SaveRecord(auditRecord("audit-1", base)))
	require.NoError(t, mgr.Audit().SaveRecord(auditRecord("audit-2", base.Add(time.Minute))))
	require.NoError(t, mgr.Audit().SaveRecord(auditRecord("audit-3", base.Add(2*time.Minute))))

	records, err := mgr.Audit().ListRecent(2)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "audit-3", records[0].ID)
	assert.Equal(t, "audit-2", records[1].ID)
	assert.Equal(t, "ollama", records[0].Provider)
	assert.Equal(t, "synthesis", records[0].Purpose)

	count, err := mgr.Audit().Count()
	require.NoError(t, err)
	assert.Equal(t, 3, count)
}

func TestAuditStorageRejectsMissingID(t *testing.T) {
	mgr := openTestManager(t)

	err := mgr.Audit().SaveRecord(&models.LLMAuditRecord{})
	assert.Error(t, err)
}

func TestAuditStorageUpsertOverwrites(t *testing.T) {
	mgr := openTestManager(t)

	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	record := auditRecord("audit-1", base)
	require.NoError(t, mgr.Audit().SaveRecord(record))

	record.Status = "failed"
	record.Error = "context deadline exceeded"
	require.NoError(t, mgr.Audit().SaveRecord(record))

	records, err := mgr.Audit().ListRecent(10)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "failed", records[0].Status)
	assert.Equal(t, "context deadline exceeded", records[0].Error)
}

func snapshot(id string, startedAt time.Time, status string) *models.IngestSnapshot {
	return &models.IngestSnapshot{
		ID:          id,
		RunID:       "run-" + id,
		Trigger:     "manual",
		StartedAt:   startedAt,
		CompletedAt: startedAt.Add(30 * time.Second),
		DurationMs:  30000,
		Status:      status,
		ETFs: []models.ETFLoadStats{
			{Ticker: "SPY", Holdings: 503, Companies: 500, Sectors: 11},
			{Ticker: "QQQ", Holdings: 101, Companies: 100, Sectors: 9},
		},
	}
}

func TestSnapshotStorageRoundTrip(t *testing.T) {
	mgr := openTestManager(t)

	base := time.Date(2025, 6, 1, 5, 30, 0, 0, time.UTC)
	require.NoError(t, mgr.Snapshots().SaveSnapshot(snapshot("snap-1", base, "success")))
	require.NoError(t, mgr.Snapshots().SaveSnapshot(snapshot("snap-2", base.Add(24*time.Hour), "partial")))

	latest, err := mgr.Snapshots().LatestSnapshot()
	require.NoError(t, err)
	require.NotNil(t, latest)
	assert.Equal(t, "snap-2", latest.ID)
	assert.Equal(t, "partial", latest.Status)
	require.Len(t, latest.ETFs, 2)
	assert.Equal(t, "SPY", latest.ETFs[0].Ticker)
	assert.Equal(t, 503, latest.ETFs[0].Holdings)

	all, err := mgr.Snapshots().ListSnapshots(0)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "snap-2", all[0].ID)
	assert.Equal(t, "snap-1", all[1].ID)
}

func TestLatestSnapshotEmpty(t *testing.T) {
	mgr := openTestManager(t)

	latest, err := mgr.Snapshots().LatestSnapshot()
	require.NoError(t, err)
	assert.Nil(t, latest)
}

func TestRunValueLogGCOnEmptyStore(t *testing.T) {
	mgr := openTestManager(t)

	assert.NoError(t, mgr.RunValueLogGC())
}
