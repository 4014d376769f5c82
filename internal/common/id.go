package common

import (
	"github.com/google/uuid"
)

// NewRequestID generates a unique request ID with the "req_" prefix
// Format: req_<uuid>
func NewRequestID() string {
	return "req_" + uuid.New().String()
}

// NewRunID generates a unique ingest run ID with the "run_" prefix
// Format: run_<uuid>
func NewRunID() string {
	return "run_" + uuid.New().String()
}

// NewAuditID generates a unique audit record ID with the "llm_" prefix
// Format: llm_<uuid>
func NewAuditID() string {
	return "llm_" + uuid.New().String()
}
