package graphrag

import (
	"fmt"
	"strings"
)

// CypherTemplate is a parameterized, read-only Cypher statement bound to one
// intent. User input never reaches the query text, only the parameter map.
type CypherTemplate struct {
	Query          string
	RequiredParams []string
	Description    string
}

// MissingParams returns the required parameters absent from params.
func (t CypherTemplate) MissingParams(params map[string]interface{}) []string {
	missing := []string{}
	for _, p := range t.RequiredParams {
		if _, ok := params[p]; !ok {
			missing = append(missing, p)
		}
	}
	return missing
}

// HasLimit reports whether the query carries a LIMIT clause.
func (t CypherTemplate) HasLimit() bool {
	return strings.Contains(strings.ToUpper(t.Query), "LIMIT")
}

// IsReadOnly reports whether the query contains no write operations.
func (t CypherTemplate) IsReadOnly() bool {
	upper := strings.ToUpper(t.Query)
	for _, op := range writeOperations {
		if strings.Contains(upper, op) {
			return false
		}
	}
	return true
}

var writeOperations = []string{"CREATE", "DELETE", "SET", "MERGE", "DROP", "REMOVE"}

// cypherTemplates is the closed catalogue of executable intents. Every graph
// read the pipeline can perform is one of these statements.
var cypherTemplates = map[string]CypherTemplate{
	"etf_exposure_to_company": {
		Query: `
			MATCH (e:ETF {ticker: $ticker})-[h:HOLDS]->(c:Company {symbol: $symbol})
			RETURN e.ticker as etf_ticker, e.name as etf_name,
			       c.symbol, c.name as company_name,
			       round(h.weight * 100, 3) as exposure_percent
			ORDER BY h.weight DESC
			LIMIT 50
		`,
		RequiredParams: []string{"ticker", "symbol"},
		Description:    "Find ETF exposure to specific company",
	},

	"etf_overlap_weighted": {
		Query: `
			MATCH (e1:ETF {ticker: $ticker1})-[h1:HOLDS]->(c:Company)<-[h2:HOLDS]-(e2:ETF {ticker: $ticker2})
			RETURN c.symbol, c.name as company_name,
			       round(h1.weight * 100, 3) as percent_etf1,
			       round(h2.weight * 100, 3) as percent_etf2,
			       round((h1.weight + h2.weight) * 100, 3) as combined_percent,
			       round(abs(h1.weight - h2.weight) * 100, 3) as difference_percent
			ORDER BY (h1.weight + h2.weight) DESC
			LIMIT 50
		`,
		RequiredParams: []string{"ticker1", "ticker2"},
		Description:    "Calculate weighted overlap between two ETFs",
	},

	"etf_overlap_jaccard": {
		Query: `
			MATCH (e1:ETF {ticker: $ticker1})-[:HOLDS]->(c:Company)<-[:HOLDS]-(e2:ETF {ticker: $ticker2})
			WITH count(c) as intersection
			MATCH (e1:ETF {ticker: $ticker1})-[:HOLDS]->(c1:Company)
			WITH intersection, count(c1) as count1
			MATCH (e2:ETF {ticker: $ticker2})-[:HOLDS]->(c2:Company)
			WITH intersection, count1, count(c2) as count2
			RETURN intersection, count1, count2,
			       toFloat(intersection) / (count1 + count2 - intersection) as jaccard_similarity,
			       toFloat(intersection) / count1 as overlap_ratio_etf1,
			       toFloat(intersection) / count2 as overlap_ratio_etf2,
			       round(toFloat(intersection) / (count1 + count2 - intersection) * 100, 2) as jaccard_percent
			LIMIT 1
		`,
		RequiredParams: []string{"ticker1", "ticker2"},
		Description:    "Calculate Jaccard overlap coefficient between ETFs",
	},

	"sector_exposure": {
		Query: `
			MATCH (e:ETF {ticker: $ticker})-[h:HOLDS]->(c:Company)-[:IN_SECTOR]->(s:Sector)
			WITH s.name as sector,
			     count(c) as company_count,
			     sum(h.weight) as total_weight,
			     avg(h.weight) as avg_weight,
			     max(h.weight) as max_weight
			RETURN sector,
			       company_count,
			       round(total_weight * 100, 2) as exposure_percent,
			       round(avg_weight * 100, 3) as avg_exposure_percent,
			       round(max_weight * 100, 3) as max_exposure_percent
			ORDER BY total_weight DESC
			LIMIT 50
		`,
		RequiredParams: []string{"ticker"},
		Description:    "Show sector distribution for ETF",
	},

	"etfs_by_sector_threshold": {
		Query: `
			// Start from sector to use the name index efficiently
			MATCH (s:Sector)
			WHERE s.name = $sector OR s.name CONTAINS $sector
			WITH s
			MATCH (s)<-[:IN_SECTOR]-(c:Company)<-[h:HOLDS]-(e:ETF)
			WITH e, sum(h.weight) as sector_exposure
			WHERE sector_exposure >= $threshold
			RETURN e.ticker, e.name as etf_name,
			       round(sector_exposure * 100, 2) as exposure_percent
			ORDER BY sector_exposure DESC
			LIMIT 50
		`,
		RequiredParams: []string{"sector", "threshold"},
		Description:    "Find ETFs with minimum sector exposure",
	},

	"top_holdings_subgraph": {
		Query: `
			MATCH (e:ETF {ticker: $ticker})-[h:HOLDS]->(c:Company)-[:IN_SECTOR]->(s:Sector)
			RETURN c.symbol, c.name as company_name, s.name as sector,
			       round(h.weight * 100, 3) as exposure_percent
			ORDER BY h.weight DESC
			LIMIT $top_n
		`,
		RequiredParams: []string{"ticker", "top_n"},
		Description:    "Get top holdings with weights and sectors",
	},

	"company_rankings": {
		Query: `
			MATCH (c:Company {symbol: $symbol})<-[h:HOLDS]-(e:ETF)
			WHERE ($etf_tickers IS NULL OR e.ticker IN $etf_tickers)
			RETURN e.ticker, e.name as etf_name,
			       round(h.weight * 100, 3) as exposure_percent
			ORDER BY h.weight DESC
			LIMIT 50
		`,
		RequiredParams: []string{"symbol"},
		Description:    "Rank ETFs by exposure to specific company (optionally filtered by ETF list)",
	},

	// No Cypher query; answered from model knowledge alone.
	"general_llm": {
		Query:          "",
		RequiredParams: []string{},
		Description:    "Handle general questions with LLM knowledge",
	},

	"comprehensive_data": {
		Query: `
			// Get all ETF holdings with comprehensive data
			MATCH (e:ETF)-[h:HOLDS]->(c:Company)-[:IN_SECTOR]->(s:Sector)
			WITH e, c, s, h
			ORDER BY e.ticker, h.weight DESC
			WITH e,
			     collect({
			         symbol: c.symbol,
			         name: c.name,
			         sector: s.name,
			         weight: h.weight,
			         shares: h.shares,
			         exposure_percent: round(h.weight * 100, 3)
			     })[0..50] as holdings,
			     count(c) as total_holdings,
			     sum(h.weight) as total_weight

			// Get sector distributions
			MATCH (e)-[h2:HOLDS]->(c2:Company)-[:IN_SECTOR]->(s2:Sector)
			WITH e, holdings, total_holdings, total_weight,
			     s2.name as sector,
			     sum(h2.weight) as sector_weight,
			     count(c2) as sector_count
			WITH e, holdings, total_holdings, total_weight,
			     collect({
			         sector: sector,
			         weight: round(sector_weight * 100, 2),
			         count: sector_count
			     }) as sectors

			RETURN e.ticker as etf_ticker,
			       e.name as etf_name,
			       total_holdings,
			       holdings,
			       sectors
			ORDER BY e.ticker
			LIMIT 10
		`,
		RequiredParams: []string{},
		Description:    "Get comprehensive ETF holdings and sector data for all ETFs",
	},
}

// GetTemplate returns the Cypher template for an intent key.
func GetTemplate(intent string) (CypherTemplate, error) {
	tmpl, ok := cypherTemplates[intent]
	if !ok {
		return CypherTemplate{}, fmt.Errorf("unknown intent: %s", intent)
	}
	return tmpl, nil
}

// AvailableIntents lists all catalogued intent keys.
func AvailableIntents() []string {
	keys := make([]string, 0, len(cypherTemplates))
	for k := range cypherTemplates {
		keys = append(keys, k)
	}
	return keys
}
