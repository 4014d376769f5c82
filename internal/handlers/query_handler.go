package handlers

import (
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/quanta/internal/common"
	"github.com/ternarybob/quanta/internal/interfaces"
	"github.com/ternarybob/quanta/internal/models"
)

// QueryHandler serves the question answering endpoints.
type QueryHandler struct {
	pipeline interfaces.PipelineService
	validate *validator.Validate
	logger   arbor.ILogger
}

func NewQueryHandler(pipeline interfaces.PipelineService, logger arbor.ILogger) *QueryHandler {
	return &QueryHandler{
		pipeline: pipeline,
		validate: validator.New(),
		logger:   logger,
	}
}

// AskHandler handles POST /api/ask. The pipeline never returns an error;
// failures come back as an error-intent envelope with HTTP 200.
func (h *QueryHandler) AskHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodPost) {
		return
	}

	var req models.AskRequest
	if !DecodeJSON(w, r, &req) {
		return
	}
	req.Query = common.SanitizeInput(req.Query)
	if err := h.validate.Struct(&req); err != nil {
		WriteError(w, http.StatusBadRequest, "query must be between 3 and 512 characters")
		return
	}

	start := time.Now()
	response := h.pipeline.Answer(r.Context(), req.Query)

	h.logger.Info().
		Str("intent", response.Metadata.Intent).
		Bool("cache_hit", response.Metadata.CacheHit).
		Dur("duration", time.Since(start)).
		Msg("Question answered")

	WriteJSON(w, http.StatusOK, response)
}

// ClassifyHandler handles POST /api/classify. It runs the pipeline up to
// fulfilment and reports the classification without touching the graph.
func (h *QueryHandler) ClassifyHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodPost) {
		return
	}

	var req models.ClassifyRequest
	if !DecodeJSON(w, r, &req) {
		return
	}
	req.Query = common.SanitizeInput(req.Query)
	if err := h.validate.Struct(&req); err != nil {
		WriteError(w, http.StatusBadRequest, "query must be between 3 and 512 characters")
		return
	}

	report, err := h.pipeline.Classify(r.Context(), req.Query)
	if err != nil {
		h.logger.Warn().Err(err).Msg("Classification failed")
		WriteError(w, http.StatusInternalServerError, "classification failed: "+err.Error())
		return
	}

	WriteJSON(w, http.StatusOK, report)
}
