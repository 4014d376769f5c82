package graphrag

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/quanta/internal/models"
)

func TestExecutorRunsTemplate(t *testing.T) {
	fg := &fakeGraph{
		readFn: func(ctx context.Context, query string, params map[string]interface{}) ([]map[string]interface{}, error) {
			return []map[string]interface{}{
				{"etf_ticker": "SPY", "company": "Apple Inc.", "symbol": "AAPL", "weight": 0.07},
			}, nil
		},
	}
	x := NewCypherExecutor(fg, testLogger())

	result, err := x.Execute(context.Background(), models.IntentETFExposure,
		map[string]interface{}{"ticker": "SPY", "symbol": "AAPL"})
	require.NoError(t, err)

	assert.Equal(t, models.IntentETFExposure, result.Intent)
	assert.Len(t, result.Rows, 1)
	assert.False(t, result.IsFallback)
	require.Len(t, fg.queries, 1)
	assert.Contains(t, fg.queries[0], "HOLDS")

	// The result records what ran: the template text, the bound parameters
	// and the elapsed time.
	assert.Equal(t, fg.queries[0], result.QueryText)
	assert.Equal(t, "SPY", result.Parameters["ticker"])
	assert.GreaterOrEqual(t, result.ExecutionTimeMs, int64(0))
}

func TestExecutorEmptyResultRowsNotNil(t *testing.T) {
	fg := &fakeGraph{
		readFn: func(ctx context.Context, query string, params map[string]interface{}) ([]map[string]interface{}, error) {
			return nil, nil
		},
	}
	x := NewCypherExecutor(fg, testLogger())

	result, err := x.Execute(context.Background(), models.IntentETFExposure,
		map[string]interface{}{"ticker": "SPY", "symbol": "AAPL"})
	require.NoError(t, err)
	assert.NotNil(t, result.Rows)
	assert.Empty(t, result.Rows)
}

func TestExecutorRejectsUnknownIntent(t *testing.T) {
	x := NewCypherExecutor(&fakeGraph{}, testLogger())

	_, err := x.Execute(context.Background(), "drop_everything", nil)
	assert.Error(t, err)
}

func TestExecutorRejectsMissingParameters(t *testing.T) {
	x := NewCypherExecutor(&fakeGraph{}, testLogger())

	_, err := x.Execute(context.Background(), models.IntentETFExposure,
		map[string]interface{}{"ticker": "SPY"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "symbol")
}

func TestExecutorAcceptsNilParameterValue(t *testing.T) {
	// company_rankings passes etf_tickers as an explicit nil for the
	// unfiltered branch; presence counts, not the value.
	fg := &fakeGraph{}
	x := NewCypherExecutor(fg, testLogger())

	_, err := x.Execute(context.Background(), models.IntentCompanyRankings,
		map[string]interface{}{"symbol": "AAPL", "etf_tickers": nil})
	assert.NoError(t, err)
}

func TestExecutorPropagatesGraphError(t *testing.T) {
	fg := &fakeGraph{
		readFn: func(ctx context.Context, query string, params map[string]interface{}) ([]map[string]interface{}, error) {
			return nil, errors.New("neo4j unavailable")
		},
	}
	x := NewCypherExecutor(fg, testLogger())

	_, err := x.Execute(context.Background(), models.IntentComprehensive, map[string]interface{}{})
	assert.Error(t, err)
}

func TestValidateTemplateSecurity(t *testing.T) {
	tests := []struct {
		name    string
		query   string
		wantErr string
	}{
		{
			name:    "missing limit",
			query:   "MATCH (n) RETURN n",
			wantErr: "LIMIT",
		},
		{
			name:    "write keyword",
			query:   "MATCH (n) DELETE n RETURN count(n) LIMIT 1",
			wantErr: "read-only",
		},
		{
			name:    "apoc call",
			query:   "CALL apoc.export.csv.all('x', {}) YIELD file RETURN file LIMIT 1",
			wantErr: "dangerous pattern",
		},
		{
			name:    "load csv",
			query:   "LOAD CSV FROM 'file:///x.csv' AS row RETURN row LIMIT 1",
			wantErr: "dangerous pattern",
		},
		{
			name:  "read only with limit",
			query: "MATCH (e:ETF) RETURN e.ticker LIMIT 10",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validateTemplateSecurity(CypherTemplate{Query: tt.query})
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			var secErr *SecurityError
			assert.ErrorAs(t, err, &secErr)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestCountGraphElementsSubgraphOnly(t *testing.T) {
	rows := []map[string]interface{}{
		{
			"e": map[string]interface{}{"ticker": "SPY"},
			"c": map[string]interface{}{"symbol": "AAPL"},
			"s": map[string]interface{}{"name": "Technology"},
			"h": map[string]interface{}{"weight": 0.07},
		},
		{
			"e": map[string]interface{}{"ticker": "SPY"},
			"c": map[string]interface{}{"symbol": "MSFT"},
			"s": map[string]interface{}{"name": "Technology"},
			"h": map[string]interface{}{"weight": 0.06},
		},
	}

	nodes, edges := countGraphElements(rows, models.IntentTopHoldingsSubgraph)
	assert.Equal(t, 4, nodes) // SPY, AAPL, MSFT, Technology
	assert.Equal(t, 2, edges)

	nodes, edges = countGraphElements(rows, models.IntentSectorExposure)
	assert.Equal(t, 0, nodes)
	assert.Equal(t, 0, edges)
}
