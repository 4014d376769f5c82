package server

import "net/http"

// setupRoutes configures all HTTP routes
func (s *Server) setupRoutes() *http.ServeMux {
	mux := http.NewServeMux()

	// API routes - Query pipeline
	mux.HandleFunc("/api/ask", s.app.QueryHandler.AskHandler)           // POST - answer a question
	mux.HandleFunc("/api/classify", s.app.QueryHandler.ClassifyHandler) // POST - classify without executing

	// API routes - Graph views
	mux.HandleFunc("/api/graph/subgraph", s.app.GraphHandler.SubgraphHandler) // GET - top holdings of one ETF

	// API routes - Holdings ingestion
	mux.HandleFunc("/api/ingest", func(w http.ResponseWriter, r *http.Request) {
		RouteByMethod(w, r, MethodRouter{
			http.MethodPost: s.app.IngestHandler.RefreshHandler,
		})
	})
	mux.HandleFunc("/api/ingest/status", s.app.IngestHandler.StatusHandler) // GET - last run + job states

	// API routes - Pipeline caches
	mux.HandleFunc("/api/cache/stats", s.app.CacheHandler.StatsHandler) // GET - entry counts
	mux.HandleFunc("/api/cache/response", func(w http.ResponseWriter, r *http.Request) {
		RouteByMethod(w, r, MethodRouter{
			http.MethodDelete: s.app.CacheHandler.ClearHandler,
		})
	})

	// API routes - Audit
	mux.HandleFunc("/api/audit/llm", s.app.AuditHandler.RecentHandler) // GET - recent provider calls

	// MCP (Model Context Protocol) endpoints
	mux.HandleFunc("/mcp", s.app.MCPHandler.HandleRPC)
	mux.HandleFunc("/mcp/info", s.app.MCPHandler.InfoHandler)

	// API routes - System
	mux.HandleFunc("/api/version", s.app.SystemHandler.VersionHandler)
	mux.HandleFunc("/api/health", s.app.SystemHandler.HealthHandler)
	mux.HandleFunc("/api/logs/recent", s.app.SystemHandler.RecentLogsHandler)

	// 404 handler for unmatched API routes
	mux.HandleFunc("/api/", s.app.SystemHandler.NotFoundHandler)

	return mux
}
