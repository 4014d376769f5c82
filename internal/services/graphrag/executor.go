package graphrag

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/quanta/internal/interfaces"
	"github.com/ternarybob/quanta/internal/models"
)

// SecurityError marks a template that failed the read-only guardrails.
// It is checked at execution time, not load time, so a tampered catalogue
// cannot slip a write past a stale validation pass.
type SecurityError struct {
	Reason string
}

func (e *SecurityError) Error() string {
	return "cypher security violation: " + e.Reason
}

// Dangerous constructs rejected even in otherwise read-only templates.
var dangerousPatterns = []string{
	"CALL APOC", "CALL DB.", "CALL DBMS.", "LOAD CSV", "PERIODIC COMMIT",
	"USING PERIODIC COMMIT", "CALL { CREATE", "CALL { MERGE", "CALL { DELETE",
	"CALL { SET", "CALL { REMOVE", "CALL { DROP",
}

// CypherExecutor runs catalogued templates against the graph. User input
// only ever flows through the parameter map; the query text is fixed.
type CypherExecutor struct {
	graph  interfaces.GraphService
	logger arbor.ILogger
}

func NewCypherExecutor(graph interfaces.GraphService, logger arbor.ILogger) *CypherExecutor {
	return &CypherExecutor{graph: graph, logger: logger}
}

// Execute runs the template bound to intent with the given parameters.
func (x *CypherExecutor) Execute(ctx context.Context, intent string, parameters map[string]interface{}) (*models.QueryResult, error) {
	start := time.Now()

	template, err := GetTemplate(intent)
	if err != nil {
		return nil, err
	}

	if err := validateTemplateSecurity(template); err != nil {
		x.logger.Error().Err(err).Str("intent", intent).Msg("Template failed security validation")
		return nil, err
	}

	if missing := template.MissingParams(parameters); len(missing) > 0 {
		return nil, fmt.Errorf("missing required parameters: %v", missing)
	}

	paramNames := make([]string, 0, len(parameters))
	for k := range parameters {
		paramNames = append(paramNames, k)
	}
	x.logger.Debug().
		Str("intent", intent).
		Strs("parameters", paramNames).
		Msg("Executing Cypher query")

	rows, err := x.graph.ExecuteRead(ctx, template.Query, parameters)
	if err != nil {
		x.logger.Error().Err(err).Str("intent", intent).Msg("Cypher execution failed")
		return nil, err
	}

	nodeCount, edgeCount := countGraphElements(rows, intent)
	elapsedMs := time.Since(start).Milliseconds()

	x.logger.Info().
		Str("intent", intent).
		Int64("execution_time_ms", elapsedMs).
		Int("row_count", len(rows)).
		Int("node_count", nodeCount).
		Int("edge_count", edgeCount).
		Msg("Cypher execution completed")

	if rows == nil {
		rows = []map[string]interface{}{}
	}

	return &models.QueryResult{
		Intent:          intent,
		Rows:            rows,
		QueryText:       template.Query,
		Parameters:      parameters,
		ExecutionTimeMs: elapsedMs,
		NodeCount:       nodeCount,
		EdgeCount:       edgeCount,
	}, nil
}

// validateTemplateSecurity enforces the read-only guardrails: a LIMIT clause,
// no write keywords, no admin or bulk-load constructs.
func validateTemplateSecurity(template CypherTemplate) error {
	if !template.HasLimit() {
		return &SecurityError{Reason: "query must have LIMIT clause"}
	}
	if !template.IsReadOnly() {
		return &SecurityError{Reason: "only read-only queries are allowed"}
	}

	upper := strings.ToUpper(template.Query)
	for _, pattern := range dangerousPatterns {
		if strings.Contains(upper, pattern) {
			return &SecurityError{Reason: "dangerous pattern detected: " + pattern}
		}
	}
	return nil
}

// countGraphElements counts distinct nodes and HOLDS edges in subgraph rows.
// Only the top_holdings_subgraph intent renders results as a graph, so other
// intents report zero.
func countGraphElements(rows []map[string]interface{}, intent string) (int, int) {
	if intent != models.IntentTopHoldingsSubgraph || len(rows) == 0 {
		return 0, 0
	}

	nodes := map[string]struct{}{}
	edges := 0

	for _, row := range rows {
		if e, ok := row["e"].(map[string]interface{}); ok {
			nodes[fmt.Sprintf("ETF:%v", e["ticker"])] = struct{}{}
		}
		if c, ok := row["c"].(map[string]interface{}); ok {
			nodes[fmt.Sprintf("Company:%v", c["symbol"])] = struct{}{}
		}
		if s, ok := row["s"].(map[string]interface{}); ok {
			nodes[fmt.Sprintf("Sector:%v", s["name"])] = struct{}{}
		}
		if _, ok := row["h"]; ok {
			edges++
		}
	}

	return len(nodes), edges
}
