package handlers

import (
	"net/http"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/quanta/internal/interfaces"
)

// CacheHandler exposes the pipeline caches for inspection and clearing.
type CacheHandler struct {
	pipeline interfaces.PipelineService
	logger   arbor.ILogger
}

func NewCacheHandler(pipeline interfaces.PipelineService, logger arbor.ILogger) *CacheHandler {
	return &CacheHandler{
		pipeline: pipeline,
		logger:   logger,
	}
}

// StatsHandler handles GET /api/cache/stats with entry counts per cache.
func (h *CacheHandler) StatsHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}
	WriteJSON(w, http.StatusOK, h.pipeline.CacheStats())
}

// ClearHandler handles DELETE /api/cache, dropping all three caches.
func (h *CacheHandler) ClearHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodDelete) {
		return
	}
	h.pipeline.ClearCaches()
	h.logger.Info().Msg("Pipeline caches cleared")
	WriteSuccess(w, "caches cleared")
}
