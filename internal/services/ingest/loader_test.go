package ingest

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/quanta/internal/interfaces"
	"github.com/ternarybob/quanta/internal/models"
)

// fakeGraph records write statements and answers reads with canned rows.
type fakeGraph struct {
	writes     []string
	writeParam []map[string]interface{}
	readRows   []map[string]interface{}
	writeErr   error
}

var _ interfaces.GraphService = (*fakeGraph)(nil)

func (g *fakeGraph) ExecuteRead(ctx context.Context, query string, params map[string]interface{}) ([]map[string]interface{}, error) {
	return g.readRows, nil
}

func (g *fakeGraph) ExecuteWrite(ctx context.Context, query string, params map[string]interface{}) error {
	if g.writeErr != nil {
		return g.writeErr
	}
	g.writes = append(g.writes, query)
	g.writeParam = append(g.writeParam, params)
	return nil
}

func (g *fakeGraph) HealthCheck(ctx context.Context) error { return nil }
func (g *fakeGraph) Close(ctx context.Context) error       { return nil }

func sampleHoldings() []models.Holding {
	return []models.Holding{
		{Symbol: "AAPL", Name: "Apple Inc.", Sector: "Technology", Weight: 0.0725},
		{Symbol: "MSFT", Name: "Microsoft Corp", Sector: "Technology", Weight: 0.068},
		{Symbol: "JPM", Name: "JPMorgan Chase", Sector: "Financials", Weight: 0.012},
	}
}

func TestLoadHoldings(t *testing.T) {
	graph := &fakeGraph{readRows: []map[string]interface{}{{"total_weight": 0.99, "total_holdings": int64(3)}}}
	loader := NewLoader(graph, arbor.NewLogger())

	source := models.HoldingsSource{Ticker: "SPY", Name: "SPDR S&P 500 ETF"}
	stats, err := loader.LoadHoldings(context.Background(), source, sampleHoldings())
	require.NoError(t, err)

	assert.Equal(t, "SPY", stats.Ticker)
	assert.Equal(t, 3, stats.Holdings)
	assert.Equal(t, 3, stats.Companies)
	assert.Equal(t, 2, stats.Sectors)

	// ETF upsert, HOLDS clear, then one batch
	require.Len(t, graph.writes, 3)
	assert.Contains(t, graph.writes[0], "MERGE (e:ETF {ticker: $ticker})")
	assert.Contains(t, graph.writes[1], "DELETE h")
	assert.Contains(t, graph.writes[2], "UNWIND $rows AS row")

	assert.Equal(t, "SPDR S&P 500 ETF", graph.writeParam[0]["name"])
	rows := graph.writeParam[2]["rows"].([]map[string]interface{})
	require.Len(t, rows, 3)
	assert.Equal(t, "AAPL", rows[0]["symbol"])
	assert.Equal(t, 0.0725, rows[0]["weight"])
}

func TestLoadHoldingsBatches(t *testing.T) {
	holdings := make([]models.Holding, 450)
	for i := range holdings {
		holdings[i] = models.Holding{
			Symbol: "S" + strings.Repeat("X", 2) + string(rune('A'+i%26)),
			Name:   "Company",
			Sector: "Industrials",
			Weight: 0.001,
		}
	}

	graph := &fakeGraph{}
	loader := NewLoader(graph, arbor.NewLogger())

	stats, err := loader.LoadHoldings(context.Background(), models.HoldingsSource{Ticker: "IWM"}, holdings)
	require.NoError(t, err)
	assert.Equal(t, 450, stats.Holdings)

	// 2 setup writes plus ceil(450/200) = 3 batches
	assert.Len(t, graph.writes, 5)
}

func TestLoadHoldingsPropagatesWriteErrors(t *testing.T) {
	graph := &fakeGraph{writeErr: context.DeadlineExceeded}
	loader := NewLoader(graph, arbor.NewLogger())

	_, err := loader.LoadHoldings(context.Background(), models.HoldingsSource{Ticker: "SPY"}, sampleHoldings())
	assert.Error(t, err)
}

func TestEnsureConstraints(t *testing.T) {
	graph := &fakeGraph{}
	loader := NewLoader(graph, arbor.NewLogger())

	require.NoError(t, loader.EnsureConstraints(context.Background()))
	require.Len(t, graph.writes, 3)
	for _, query := range graph.writes {
		assert.Contains(t, query, "CREATE CONSTRAINT")
		assert.Contains(t, query, "IF NOT EXISTS")
	}
}
