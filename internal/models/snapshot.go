package models

import "time"

// ETFLoadStats summarizes what a single ETF contributed to a load run.
type ETFLoadStats struct {
	Ticker    string `json:"ticker"`
	Holdings  int    `json:"holdings"`
	Companies int    `json:"companies"`
	Sectors   int    `json:"sectors"`
	Skipped   int    `json:"skipped"`
	Error     string `json:"error,omitempty"`
}

// IngestSnapshot records one holdings refresh run end to end.
type IngestSnapshot struct {
	ID          string         `json:"id" badgerhold:"key"`
	RunID       string         `json:"run_id"`
	Trigger     string         `json:"trigger"` // "manual", "scheduled", "startup"
	StartedAt   time.Time      `json:"started_at" badgerhold:"index"`
	CompletedAt time.Time      `json:"completed_at"`
	DurationMs  int64          `json:"duration_ms"`
	ETFs        []ETFLoadStats `json:"etfs"`
	Status      string         `json:"status"` // "success", "partial", "failed"
	Error       string         `json:"error,omitempty"`
}
