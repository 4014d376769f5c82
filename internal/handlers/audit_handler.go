package handlers

import (
	"net/http"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/quanta/internal/interfaces"
)

// AuditHandler serves the persisted LLM call audit trail.
type AuditHandler struct {
	audit  interfaces.AuditStorage
	logger arbor.ILogger
}

func NewAuditHandler(audit interfaces.AuditStorage, logger arbor.ILogger) *AuditHandler {
	return &AuditHandler{
		audit:  audit,
		logger: logger,
	}
}

// RecentHandler handles GET /api/audit/llm?limit=50
func (h *AuditHandler) RecentHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	limit := QueryInt(r, "limit", 50)
	if limit < 1 || limit > 500 {
		WriteError(w, http.StatusBadRequest, "limit must be between 1 and 500")
		return
	}

	records, err := h.audit.ListRecent(limit)
	if err != nil {
		h.logger.Error().Err(err).Msg("Failed to list audit records")
		WriteError(w, http.StatusInternalServerError, "failed to list audit records")
		return
	}
	total, err := h.audit.Count()
	if err != nil {
		h.logger.Error().Err(err).Msg("Failed to count audit records")
		WriteError(w, http.StatusInternalServerError, "failed to count audit records")
		return
	}

	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"records": records,
		"count":   len(records),
		"total":   total,
	})
}
