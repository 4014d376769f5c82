package handlers

import (
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/quanta/internal/interfaces"
	"github.com/ternarybob/quanta/internal/models"
	"github.com/ternarybob/quanta/internal/services/ingest"
)

// IngestHandler exposes the holdings refresh path over HTTP.
type IngestHandler struct {
	ingest    interfaces.IngestService
	scheduler interfaces.SchedulerService
	validate  *validator.Validate
	logger    arbor.ILogger
}

func NewIngestHandler(ingestSvc interfaces.IngestService, scheduler interfaces.SchedulerService, logger arbor.ILogger) *IngestHandler {
	return &IngestHandler{
		ingest:    ingestSvc,
		scheduler: scheduler,
		validate:  validator.New(),
		logger:    logger,
	}
}

// RefreshHandler handles POST /api/ingest. The refresh runs
// synchronously; the snapshot of the completed run is the response body.
func (h *IngestHandler) RefreshHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodPost) {
		return
	}

	req := models.IngestRequest{}
	if r.ContentLength > 0 {
		if !DecodeJSON(w, r, &req) {
			return
		}
	}
	for i, t := range req.Tickers {
		req.Tickers[i] = strings.ToUpper(strings.TrimSpace(t))
	}
	if err := h.validate.Struct(&req); err != nil {
		WriteError(w, http.StatusBadRequest, "tickers must be 2-5 character uppercase symbols")
		return
	}

	h.logger.Info().
		Strs("tickers", req.Tickers).
		Bool("force", req.Force).
		Msg("Manual holdings refresh requested")

	snapshot, err := h.ingest.Refresh(r.Context(), req.Tickers, req.Force, ingest.TriggerManual)
	if err != nil {
		if snapshot != nil {
			// Complete failure still produces a snapshot worth returning.
			WriteJSON(w, http.StatusBadGateway, snapshot)
			return
		}
		WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	WriteJSON(w, http.StatusOK, snapshot)
}

// StatusHandler handles GET /api/ingest/status, reporting the latest
// refresh snapshot and the scheduled job states.
func (h *IngestHandler) StatusHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	snapshot, err := h.ingest.LastSnapshot()
	if err != nil {
		h.logger.Error().Err(err).Msg("Failed to load last ingest snapshot")
		WriteError(w, http.StatusInternalServerError, "failed to load ingest status")
		return
	}

	status := map[string]interface{}{
		"last_run": snapshot,
	}
	if h.scheduler != nil {
		status["jobs"] = h.scheduler.JobStatuses()
	}

	WriteJSON(w, http.StatusOK, status)
}
