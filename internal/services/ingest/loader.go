package ingest

import (
	"context"
	"fmt"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/quanta/internal/interfaces"
	"github.com/ternarybob/quanta/internal/models"
)

// loadBatchSize bounds the rows sent per UNWIND statement
const loadBatchSize = 200

var constraintStatements = []string{
	"CREATE CONSTRAINT etf_ticker IF NOT EXISTS FOR (e:ETF) REQUIRE e.ticker IS UNIQUE",
	"CREATE CONSTRAINT company_symbol IF NOT EXISTS FOR (c:Company) REQUIRE c.symbol IS UNIQUE",
	"CREATE CONSTRAINT sector_name IF NOT EXISTS FOR (s:Sector) REQUIRE s.name IS UNIQUE",
}

const mergeETFQuery = `
MERGE (e:ETF {ticker: $ticker})
SET e.name = $name,
    e.last_updated = datetime()`

// Old HOLDS edges are cleared before each load so delisted holdings drop out
const clearHoldsQuery = `
MATCH (e:ETF {ticker: $ticker})-[h:HOLDS]->()
DELETE h`

const loadHoldingsQuery = `
UNWIND $rows AS row
MERGE (c:Company {symbol: row.symbol})
SET c.name = row.name,
    c.last_updated = datetime()
MERGE (s:Sector {name: row.sector})
ON CREATE SET s.last_updated = datetime()
WITH row, c, s
OPTIONAL MATCH (c)-[old:IN_SECTOR]->(other:Sector)
WHERE other <> s
DELETE old
MERGE (c)-[:IN_SECTOR]->(s)
WITH row, c
MATCH (e:ETF {ticker: $ticker})
MERGE (e)-[h:HOLDS]->(c)
SET h.weight = row.weight,
    h.last_updated = datetime()`

const weightCheckQuery = `
MATCH (e:ETF {ticker: $ticker})-[h:HOLDS]->()
RETURN sum(h.weight) AS total_weight, count(h) AS total_holdings`

// Loader writes parsed holdings into the graph
type Loader struct {
	graph  interfaces.GraphService
	logger arbor.ILogger
}

// NewLoader creates a Loader instance
func NewLoader(graph interfaces.GraphService, logger arbor.ILogger) *Loader {
	return &Loader{
		graph:  graph,
		logger: logger,
	}
}

// EnsureConstraints creates the uniqueness constraints the loader relies on
func (l *Loader) EnsureConstraints(ctx context.Context) error {
	for _, statement := range constraintStatements {
		if err := l.graph.ExecuteWrite(ctx, statement, nil); err != nil {
			return fmt.Errorf("failed to create constraint: %w", err)
		}
	}
	return nil
}

// LoadHoldings replaces one ETF's holdings in the graph and returns per-ETF
// load statistics.
func (l *Loader) LoadHoldings(ctx context.Context, source models.HoldingsSource, holdings []models.Holding) (models.ETFLoadStats, error) {
	stats := models.ETFLoadStats{Ticker: source.Ticker}

	if err := l.graph.ExecuteWrite(ctx, mergeETFQuery, map[string]interface{}{
		"ticker": source.Ticker,
		"name":   source.Name,
	}); err != nil {
		return stats, fmt.Errorf("failed to upsert ETF node: %w", err)
	}

	if err := l.graph.ExecuteWrite(ctx, clearHoldsQuery, map[string]interface{}{
		"ticker": source.Ticker,
	}); err != nil {
		return stats, fmt.Errorf("failed to clear existing holdings: %w", err)
	}

	companies := make(map[string]struct{}, len(holdings))
	sectors := make(map[string]struct{})

	for start := 0; start < len(holdings); start += loadBatchSize {
		end := start + loadBatchSize
		if end > len(holdings) {
			end = len(holdings)
		}

		rows := make([]map[string]interface{}, 0, end-start)
		for _, holding := range holdings[start:end] {
			rows = append(rows, map[string]interface{}{
				"symbol": holding.Symbol,
				"name":   holding.Name,
				"sector": holding.Sector,
				"weight": holding.Weight,
			})
			companies[holding.Symbol] = struct{}{}
			sectors[holding.Sector] = struct{}{}
		}

		if err := l.graph.ExecuteWrite(ctx, loadHoldingsQuery, map[string]interface{}{
			"ticker": source.Ticker,
			"rows":   rows,
		}); err != nil {
			return stats, fmt.Errorf("failed to load holdings batch: %w", err)
		}
	}

	stats.Holdings = len(holdings)
	stats.Companies = len(companies)
	stats.Sectors = len(sectors)

	l.checkTotalWeight(ctx, source.Ticker)

	l.logger.Info().
		Str("ticker", source.Ticker).
		Int("holdings", stats.Holdings).
		Int("companies", stats.Companies).
		Int("sectors", stats.Sectors).
		Msg("Holdings loaded into graph")

	return stats, nil
}

// checkTotalWeight warns when an ETF's weights do not sum to roughly 100%
func (l *Loader) checkTotalWeight(ctx context.Context, ticker string) {
	rows, err := l.graph.ExecuteRead(ctx, weightCheckQuery, map[string]interface{}{"ticker": ticker})
	if err != nil || len(rows) == 0 {
		return
	}

	total, ok := rows[0]["total_weight"].(float64)
	if !ok {
		return
	}
	if total < 0.95 || total > 1.05 {
		l.logger.Warn().
			Str("ticker", ticker).
			Float64("total_weight", total).
			Msg("ETF weights do not sum to ~100%, data quality may be degraded")
	}
}
