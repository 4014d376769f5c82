package models

import "time"

// LLMAuditRecord captures a single provider call for post-hoc inspection.
// Prompts are truncated before storage so the audit log stays bounded.
type LLMAuditRecord struct {
	ID            string    `json:"id" badgerhold:"key"`
	RequestID     string    `json:"request_id,omitempty"`
	Provider      string    `json:"provider"`
	Model         string    `json:"model"`
	Purpose       string    `json:"purpose"` // "classification", "synthesis", "comprehensive"
	PromptPrefix  string    `json:"prompt_prefix"`
	ResponseChars int       `json:"response_chars"`
	DurationMs    int64     `json:"duration_ms"`
	Status        string    `json:"status"` // "success" or "failed"
	Error         string    `json:"error,omitempty"`
	CreatedAt     time.Time `json:"created_at" badgerhold:"index"`
}
