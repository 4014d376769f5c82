package handlers

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/arbor/services/logviewer"
	"github.com/ternarybob/quanta/internal/common"
	"github.com/ternarybob/quanta/internal/interfaces"
)

const healthCheckTimeout = 5 * time.Second

// SystemHandler serves version, health and log diagnostics.
type SystemHandler struct {
	graph   interfaces.GraphService
	llm     interfaces.LLMService
	storage interfaces.StorageManager
	logs    *logviewer.Service
	logger  arbor.ILogger
}

func NewSystemHandler(graph interfaces.GraphService, llm interfaces.LLMService, storage interfaces.StorageManager, logs *logviewer.Service, logger arbor.ILogger) *SystemHandler {
	return &SystemHandler{
		graph:   graph,
		llm:     llm,
		storage: storage,
		logs:    logs,
		logger:  logger,
	}
}

// VersionHandler handles GET /api/version
func (h *SystemHandler) VersionHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}
	WriteJSON(w, http.StatusOK, map[string]string{
		"version": common.GetVersion(),
		"build":   common.GetBuild(),
		"commit":  common.GetGitCommit(),
	})
}

// HealthHandler handles GET /api/health. The graph is the critical
// dependency: without it the service cannot answer anything, so a graph
// failure reports unhealthy with 503. An unreachable LLM provider or a
// broken audit store degrade the service but rule-based classification
// and cached responses still work.
func (h *SystemHandler) HealthHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), healthCheckTimeout)
	defer cancel()

	checks := map[string]string{}
	overall := "healthy"

	if err := h.graph.HealthCheck(ctx); err != nil {
		checks["graph"] = "unhealthy: " + err.Error()
		overall = "unhealthy"
	} else {
		checks["graph"] = "healthy"
	}

	if h.llm != nil {
		if err := h.llm.HealthCheck(ctx); err != nil {
			checks["llm"] = "unhealthy: " + err.Error()
			if overall == "healthy" {
				overall = "degraded"
			}
		} else {
			checks["llm"] = "healthy (" + h.llm.ProviderName() + ")"
		}
	}

	if h.storage != nil {
		if _, err := h.storage.Audit().Count(); err != nil {
			checks["storage"] = "unhealthy: " + err.Error()
			if overall == "healthy" {
				overall = "degraded"
			}
		} else {
			checks["storage"] = "healthy"
		}
	}

	statusCode := http.StatusOK
	if overall == "unhealthy" {
		statusCode = http.StatusServiceUnavailable
	}

	WriteJSON(w, statusCode, map[string]interface{}{
		"status":     overall,
		"checks":     checks,
		"goroutines": common.GetGoroutineCount(),
	})
}

// RecentLogsHandler handles GET /api/logs/recent?limit=100&level=warn,error
func (h *SystemHandler) RecentLogsHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}
	if h.logs == nil {
		WriteError(w, http.StatusServiceUnavailable, "file logging is not enabled")
		return
	}

	limit := QueryInt(r, "limit", 100)
	var levels []string
	if raw := r.URL.Query().Get("level"); raw != "" {
		levels = strings.Split(raw, ",")
	}

	entries, err := h.logs.GetLogContent("quanta.log", limit, levels)
	if err != nil {
		h.logger.Error().Err(err).Msg("Failed to read log file")
		WriteError(w, http.StatusInternalServerError, "failed to read log file")
		return
	}

	WriteJSON(w, http.StatusOK, entries)
}

// NotFoundHandler handles unmatched API routes with a JSON body instead of
// the default text response.
func (h *SystemHandler) NotFoundHandler(w http.ResponseWriter, r *http.Request) {
	WriteError(w, http.StatusNotFound, "route not found: "+r.URL.Path)
}
