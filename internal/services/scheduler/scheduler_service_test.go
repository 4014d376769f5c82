package scheduler

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/quanta/internal/common"
	"github.com/ternarybob/quanta/internal/interfaces"
	"github.com/ternarybob/quanta/internal/models"
)

type fakeIngest struct {
	refreshes int
	triggers  []string
	err       error
}

var _ interfaces.IngestService = (*fakeIngest)(nil)

func (f *fakeIngest) Refresh(ctx context.Context, tickers []string, force bool, trigger string) (*models.IngestSnapshot, error) {
	f.refreshes++
	f.triggers = append(f.triggers, trigger)
	return &models.IngestSnapshot{Status: "success"}, f.err
}

func (f *fakeIngest) LastSnapshot() (*models.IngestSnapshot, error) { return nil, nil }

type fakeStorage struct {
	gcRuns int
	gcErr  error
}

var _ interfaces.StorageManager = (*fakeStorage)(nil)

func (f *fakeStorage) Audit() interfaces.AuditStorage        { return nil }
func (f *fakeStorage) Snapshots() interfaces.SnapshotStorage { return nil }
func (f *fakeStorage) Close() error                          { return nil }
func (f *fakeStorage) RunValueLogGC() error {
	f.gcRuns++
	return f.gcErr
}

func testConfig() *common.SchedulerConfig {
	return &common.SchedulerConfig{
		Enabled:         true,
		RefreshSchedule: "30 5 * * *",
		GCSchedule:      "15 * * * *",
	}
}

func TestStartRegistersJobs(t *testing.T) {
	service := NewService(testConfig(), &fakeIngest{}, &fakeStorage{}, arbor.NewLogger())
	require.NoError(t, service.Start())
	defer service.Stop()

	statuses := service.JobStatuses()
	require.Len(t, statuses, 2)
	assert.Equal(t, JobHoldingsRefresh, statuses[0].Name)
	assert.Equal(t, "30 5 * * *", statuses[0].Schedule)
	require.NotNil(t, statuses[0].NextRun)
	assert.True(t, statuses[0].NextRun.After(time.Now()))
	assert.Equal(t, JobStoreGC, statuses[1].Name)
}

func TestStartTwiceFails(t *testing.T) {
	service := NewService(testConfig(), &fakeIngest{}, &fakeStorage{}, arbor.NewLogger())
	require.NoError(t, service.Start())
	defer service.Stop()

	assert.Error(t, service.Start())
}

func TestStartRejectsBadSchedule(t *testing.T) {
	cfg := testConfig()
	cfg.RefreshSchedule = "not a cron spec"

	service := NewService(cfg, &fakeIngest{}, &fakeStorage{}, arbor.NewLogger())
	assert.Error(t, service.Start())
}

func TestMissingDependenciesSkipJobs(t *testing.T) {
	service := NewService(testConfig(), nil, nil, arbor.NewLogger())
	require.NoError(t, service.Start())
	defer service.Stop()

	assert.Empty(t, service.JobStatuses())
}

func TestExecuteJobRunsHandlerAndRecordsStatus(t *testing.T) {
	ingestSvc := &fakeIngest{}
	storage := &fakeStorage{}
	service := NewService(testConfig(), ingestSvc, storage, arbor.NewLogger())
	require.NoError(t, service.Start())
	defer service.Stop()

	service.executeJob(JobHoldingsRefresh)
	assert.Equal(t, 1, ingestSvc.refreshes)
	assert.Equal(t, []string{"scheduled"}, ingestSvc.triggers)

	service.executeJob(JobStoreGC)
	assert.Equal(t, 1, storage.gcRuns)

	statuses := service.JobStatuses()
	require.Len(t, statuses, 2)
	for _, status := range statuses {
		assert.NotNil(t, status.LastRun)
		assert.False(t, status.IsRunning)
		assert.Empty(t, status.LastError)
	}
}

func TestExecuteJobRecordsError(t *testing.T) {
	ingestSvc := &fakeIngest{err: fmt.Errorf("provider unreachable")}
	service := NewService(testConfig(), ingestSvc, &fakeStorage{}, arbor.NewLogger())
	require.NoError(t, service.Start())
	defer service.Stop()

	service.executeJob(JobHoldingsRefresh)

	statuses := service.JobStatuses()
	require.NotEmpty(t, statuses)
	assert.Equal(t, "provider unreachable", statuses[0].LastError)

	// A following success clears the recorded error
	ingestSvc.err = nil
	service.executeJob(JobHoldingsRefresh)
	assert.Empty(t, service.JobStatuses()[0].LastError)
}

func TestStopIsIdempotent(t *testing.T) {
	service := NewService(testConfig(), &fakeIngest{}, &fakeStorage{}, arbor.NewLogger())
	require.NoError(t, service.Start())

	service.Stop()
	service.Stop()
}
