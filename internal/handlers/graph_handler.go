package handlers

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/quanta/internal/common"
	"github.com/ternarybob/quanta/internal/interfaces"
	"github.com/ternarybob/quanta/internal/models"
)

// GraphHandler serves read-only graph views.
type GraphHandler struct {
	pipeline interfaces.PipelineService
	validate *validator.Validate
	logger   arbor.ILogger
}

func NewGraphHandler(pipeline interfaces.PipelineService, logger arbor.ILogger) *GraphHandler {
	return &GraphHandler{
		pipeline: pipeline,
		validate: validator.New(),
		logger:   logger,
	}
}

// SubgraphHandler handles GET /api/graph/subgraph?ticker=SPY&top_n=10&min_weight=0.01
func (h *GraphHandler) SubgraphHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	ticker, err := common.ValidateTicker(r.URL.Query().Get("ticker"))
	if err != nil {
		WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	req := models.SubgraphRequest{
		Ticker:    ticker,
		TopN:      QueryInt(r, "top_n", 10),
		MinWeight: QueryFloat(r, "min_weight", 0),
	}
	if err := h.validate.Struct(&req); err != nil {
		WriteError(w, http.StatusBadRequest, "top_n must be 1-50 and min_weight must be 0-1")
		return
	}

	subgraph, err := h.pipeline.Subgraph(r.Context(), req.Ticker, req.TopN, req.MinWeight)
	if err != nil {
		h.logger.Error().Err(err).Str("ticker", req.Ticker).Msg("Subgraph query failed")
		WriteError(w, http.StatusInternalServerError, "subgraph query failed")
		return
	}

	WriteJSON(w, http.StatusOK, subgraph)
}
