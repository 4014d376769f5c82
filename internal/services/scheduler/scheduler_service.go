package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/quanta/internal/common"
	"github.com/ternarybob/quanta/internal/interfaces"
	"github.com/ternarybob/quanta/internal/services/ingest"
)

// Registered job names.
const (
	JobHoldingsRefresh = "holdings_refresh"
	JobStoreGC         = "store_gc"
)

// jobEntry represents a registered job with metadata
type jobEntry struct {
	name      string
	schedule  string
	handler   func() error
	cronID    cron.EntryID
	lastRun   *time.Time
	isRunning bool
	lastError string
}

// Service implements SchedulerService with two fixed jobs: the periodic
// holdings refresh and badger value log garbage collection.
type Service struct {
	config  *common.SchedulerConfig
	ingest  interfaces.IngestService
	storage interfaces.StorageManager
	cron    *cron.Cron
	logger  arbor.ILogger

	jobMu    sync.Mutex // Protects jobs map
	globalMu sync.Mutex // Prevents concurrent job execution
	jobs     map[string]*jobEntry
	running  bool
}

var _ interfaces.SchedulerService = (*Service)(nil)

// NewService creates a new scheduler service
func NewService(cfg *common.SchedulerConfig, ingestService interfaces.IngestService, storage interfaces.StorageManager, logger arbor.ILogger) *Service {
	return &Service{
		config:  cfg,
		ingest:  ingestService,
		storage: storage,
		cron:    cron.New(),
		logger:  logger,
		jobs:    make(map[string]*jobEntry),
	}
}

// Start registers the configured jobs and begins the cron loop
func (s *Service) Start() error {
	if s.running {
		return fmt.Errorf("scheduler already running")
	}

	if s.ingest != nil && s.config.RefreshSchedule != "" {
		if err := s.registerJob(JobHoldingsRefresh, s.config.RefreshSchedule, s.runHoldingsRefresh); err != nil {
			return err
		}
	}
	if s.storage != nil && s.config.GCSchedule != "" {
		if err := s.registerJob(JobStoreGC, s.config.GCSchedule, s.runStoreGC); err != nil {
			return err
		}
	}

	s.cron.Start()
	s.running = true

	s.logger.Info().Int("jobs", len(s.jobs)).Msg("Scheduler started")
	return nil
}

// Stop halts the cron loop and waits for running jobs to finish
func (s *Service) Stop() {
	if !s.running {
		return
	}

	ctx := s.cron.Stop()
	select {
	case <-ctx.Done():
	case <-time.After(30 * time.Second):
		s.logger.Warn().Msg("Scheduler jobs did not finish within shutdown timeout")
	}
	s.running = false

	s.logger.Info().Msg("Scheduler stopped")
}

// JobStatuses reports every registered job for diagnostics
func (s *Service) JobStatuses() []interfaces.JobStatus {
	s.jobMu.Lock()
	defer s.jobMu.Unlock()

	statuses := make([]interfaces.JobStatus, 0, len(s.jobs))
	for _, name := range []string{JobHoldingsRefresh, JobStoreGC} {
		entry, exists := s.jobs[name]
		if !exists {
			continue
		}

		var nextRun *time.Time
		for _, cronEntry := range s.cron.Entries() {
			if cronEntry.ID == entry.cronID {
				next := cronEntry.Next
				nextRun = &next
				break
			}
		}

		statuses = append(statuses, interfaces.JobStatus{
			Name:      entry.name,
			Schedule:  entry.schedule,
			LastRun:   entry.lastRun,
			NextRun:   nextRun,
			IsRunning: entry.isRunning,
			LastError: entry.lastError,
		})
	}

	return statuses
}

func (s *Service) registerJob(name string, schedule string, handler func() error) error {
	s.jobMu.Lock()
	defer s.jobMu.Unlock()

	if _, exists := s.jobs[name]; exists {
		return fmt.Errorf("job %s already registered", name)
	}

	entry := &jobEntry{
		name:     name,
		schedule: schedule,
		handler:  handler,
	}

	cronID, err := s.cron.AddFunc(schedule, func() {
		s.executeJob(name)
	})
	if err != nil {
		return fmt.Errorf("failed to add job %s to cron: %w", name, err)
	}

	entry.cronID = cronID
	s.jobs[name] = entry

	s.logger.Info().
		Str("job_name", name).
		Str("schedule", schedule).
		Msg("Job registered")

	return nil
}

// executeJob wraps job execution with mutex, panic recovery, and status tracking
func (s *Service) executeJob(name string) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error().
				Str("job_name", name).
				Str("panic", fmt.Sprintf("%v", r)).
				Msg("PANIC RECOVERED in job execution")

			s.jobMu.Lock()
			if entry, exists := s.jobs[name]; exists {
				entry.isRunning = false
				entry.lastError = fmt.Sprintf("panic: %v", r)
			}
			s.jobMu.Unlock()
		}
	}()

	// One job at a time keeps the refresh and GC from competing for the store
	s.globalMu.Lock()
	defer s.globalMu.Unlock()

	s.jobMu.Lock()
	entry, exists := s.jobs[name]
	if !exists {
		s.jobMu.Unlock()
		s.logger.Warn().Str("job_name", name).Msg("Job not found")
		return
	}
	entry.isRunning = true
	handler := entry.handler
	s.jobMu.Unlock()

	s.logger.Info().Str("job_name", name).Msg("Job execution started")
	started := time.Now()

	err := handler()

	completionTime := time.Now()
	s.jobMu.Lock()
	entry.isRunning = false
	entry.lastRun = &completionTime
	if err != nil {
		entry.lastError = err.Error()
	} else {
		entry.lastError = ""
	}
	s.jobMu.Unlock()

	if err != nil {
		s.logger.Error().
			Str("job_name", name).
			Err(err).
			Dur("duration", time.Since(started)).
			Msg("Job execution failed")
	} else {
		s.logger.Info().
			Str("job_name", name).
			Dur("duration", time.Since(started)).
			Msg("Job execution completed")
	}
}

func (s *Service) runHoldingsRefresh() error {
	_, err := s.ingest.Refresh(context.Background(), nil, false, ingest.TriggerScheduled)
	return err
}

func (s *Service) runStoreGC() error {
	return s.storage.RunValueLogGC()
}
