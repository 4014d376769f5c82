package interfaces

import "time"

// JobStatus represents the current status of a scheduled job.
type JobStatus struct {
	Name      string     `json:"name"`
	Schedule  string     `json:"schedule"`
	LastRun   *time.Time `json:"last_run,omitempty"`
	NextRun   *time.Time `json:"next_run,omitempty"`
	IsRunning bool       `json:"is_running"`
	LastError string     `json:"last_error,omitempty"`
}

// SchedulerService manages cron-based background jobs: the nightly holdings
// refresh and periodic store garbage collection.
type SchedulerService interface {
	// Start registers the configured jobs and begins the cron loop.
	Start() error

	// Stop halts the cron loop and waits for running jobs to finish.
	Stop()

	// JobStatuses reports every registered job for diagnostics.
	JobStatuses() []JobStatus
}
