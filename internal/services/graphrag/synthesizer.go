package graphrag

import (
	"context"
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/quanta/internal/interfaces"
	"github.com/ternarybob/quanta/internal/models"
)

const synthesisPrompt = `You are a financial data analyst. Provide a concise, accurate response using ONLY the provided data.

User Query: {query}
Intent: {intent}
Results Summary: {results_summary}

CRITICAL RULES:
- Use ONLY the data from Results Summary - never invent ticker names, percentages, or ETF names
- Include specific numbers from the actual results
- For ETF holdings: 1-3% is small, 3-7% is significant, 7%+ is very large/top holding
- Keep responses between 60-150 words
- If Results Summary says "No data found", state this clearly
- Never fabricate or guess information not in the Results Summary

Answer:`

const comprehensivePrompt = `You are an ETF investment analyst with access to comprehensive market data. Answer the user's question using the provided comprehensive ETF holdings data.

User Query: {query}
Intent: {intent} (confidence: {confidence})
Entities Mentioned: {entity_context}

Comprehensive ETF Data:
{comprehensive_summary}

INSTRUCTIONS:
- Answer the specific question using the comprehensive data provided
- Include relevant numerical data (percentages, holdings counts, etc.)
- Compare across multiple ETFs when relevant to the query
- Provide insights based on sector distributions and holdings overlap
- Keep response concise but informative (100-200 words)
- If the query can't be fully answered, explain what data is available
- Focus on the most relevant ETFs and holdings for the user's question

Answer:`

const noResultsResponse = "No matching data found. Ensure you're using valid ticker symbols from our supported ETFs: SPY, QQQ, IWM, IJH, IVE, IVW."

const generalUnavailableResponse = "I'm unable to process general questions at the moment. Please try asking about ETF analysis instead."

var synthesisOptions = interfaces.GenerateOptions{
	Temperature: 0.15,
	MaxTokens:   200,
	TopK:        20,
	TopP:        0.85,
}

var comprehensiveOptions = interfaces.GenerateOptions{
	Temperature: 0.12,
	MaxTokens:   250,
	TopK:        15,
	TopP:        0.85,
}

// Word caps per synthesis path. Analyst mode allows longer answers for
// clients that want narrative detail.
const (
	standardWordLimit      = 150
	analystWordLimit       = 400
	comprehensiveWordLimit = 250
)

var numberPatterns = []*regexp.Regexp{
	regexp.MustCompile(`\d+\.?\d*%`),     // percentages
	regexp.MustCompile(`\$[\d,]+\.?\d*`), // dollar amounts
	regexp.MustCompile(`\b\d+\.\d+\b`),   // decimal numbers
	regexp.MustCompile(`\b\d+\b`),        // whole numbers
}

// Synthesizer turns query results into a natural language answer. Every
// data-driven answer is guaranteed to contain at least one concrete number;
// when the LLM fails, a deterministic summary is returned instead.
type Synthesizer struct {
	llm    interfaces.LLMService
	mode   string // "standard" or "analyst"
	logger arbor.ILogger
}

func NewSynthesizer(llm interfaces.LLMService, mode string, logger arbor.ILogger) *Synthesizer {
	if mode != "analyst" {
		mode = "standard"
	}
	return &Synthesizer{llm: llm, mode: mode, logger: logger}
}

func (s *Synthesizer) wordLimit() int {
	if s.mode == "analyst" {
		return analystWordLimit
	}
	return standardWordLimit
}

// Synthesize generates the answer for a completed query. It never returns an
// error: LLM failures degrade to a deterministic summary of the rows.
func (s *Synthesizer) Synthesize(ctx context.Context, query string, result *models.QueryResult, intent models.IntentResult) string {
	s.logger.Debug().
		Str("intent", intent.Intent).
		Int("row_count", len(result.Rows)).
		Str("query_preview", truncate(query, 100)).
		Msg("Starting LLM synthesis")

	if len(result.Rows) == 0 && intent.Intent != models.IntentGeneralLLM {
		return noResultsResponse
	}

	summary := resultsSummary(result.Rows, intent.Intent)

	prompt := strings.NewReplacer(
		"{query}", query,
		"{intent}", intent.Intent,
		"{results_summary}", summary,
	).Replace(synthesisPrompt)

	response, err := s.llm.Generate(ctx, prompt, synthesisOptions)
	if err != nil {
		s.logger.Warn().Err(err).Str("intent", intent.Intent).Msg("LLM synthesis failed, using deterministic summary")
		return fallbackResponse(result.Rows, intent.Intent)
	}

	if intent.Intent != models.IntentGeneralLLM && !containsConcreteNumber(response) {
		response = addConcreteNumber(response, result.Rows)
	}
	response = enforceWordLimit(response, s.wordLimit())

	s.logger.Info().
		Int("response_length", len(response)).
		Str("intent", intent.Intent).
		Bool("has_concrete_number", containsConcreteNumber(response)).
		Msg("LLM synthesis completed")

	return strings.TrimSpace(response)
}

// SynthesizeComprehensive answers from the full-catalogue dataset, used when
// the specific pipeline path could not serve the query.
func (s *Synthesizer) SynthesizeComprehensive(ctx context.Context, query string, result *models.QueryResult, intent models.IntentResult, entities []models.GroundedEntity) string {
	prompt := strings.NewReplacer(
		"{query}", query,
		"{intent}", intent.Intent,
		"{confidence}", fmt.Sprintf("%.2f", intent.Confidence),
		"{entity_context}", entityContext(entities),
		"{comprehensive_summary}", comprehensiveSummary(result.Rows),
	).Replace(comprehensivePrompt)

	response, err := s.llm.Generate(ctx, prompt, comprehensiveOptions)
	if err != nil {
		s.logger.Warn().Err(err).Str("intent", intent.Intent).Msg("Comprehensive synthesis failed, using standard path")
		return s.Synthesize(ctx, query, result, intent)
	}

	if !containsConcreteNumber(response) {
		response = addComprehensiveNumber(response, result.Rows)
	}
	response = enforceWordLimit(response, comprehensiveWordLimit)

	s.logger.Info().
		Int("response_length", len(response)).
		Str("intent", intent.Intent).
		Float64("confidence", intent.Confidence).
		Msg("Comprehensive LLM synthesis completed")

	return strings.TrimSpace(response)
}

// resultsSummary renders the top rows into the compact per-intent form the
// synthesis prompt expects.
func resultsSummary(rows []map[string]interface{}, intent string) string {
	if intent == models.IntentGeneralLLM {
		return "No data query needed. Respond using your knowledge."
	}
	if len(rows) == 0 {
		return "No data found."
	}

	top := rows
	if len(top) > 5 {
		top = top[:5]
	}

	switch intent {
	case models.IntentETFExposure:
		return summarizeExposure(top)
	case models.IntentOverlapWeighted:
		return summarizeOverlap(top)
	case models.IntentOverlapJaccard:
		return summarizeJaccard(top)
	case models.IntentSectorExposure:
		return summarizeSectors(top)
	case models.IntentETFsBySectorThreshold:
		return summarizeSectorETFs(top)
	case models.IntentCompanyRankings:
		return summarizeCompanyRankings(rows)
	case models.IntentTopHoldingsSubgraph:
		return summarizeTopHoldings(top)
	}

	preview := top
	if len(preview) > 3 {
		preview = preview[:3]
	}
	return fmt.Sprintf("Query returned %d results. Top results: %v", len(rows), preview)
}

func summarizeExposure(rows []map[string]interface{}) string {
	row := rows[0]
	exposure := numOf(row["exposure_percent"])
	etf := strOr(row["etf_ticker"], "ETF")
	company := strOr(row["company_name"], strOr(row["c.symbol"], "company"))
	return fmt.Sprintf("ETF %s holds %.2f%% in %s.", etf, exposure, company)
}

func summarizeOverlap(rows []map[string]interface{}) string {
	top := rows[0]
	combined := numOf(top["combined_percent"])
	company := strOr(top["company_name"], "Unknown")

	totalCombined := 0.0
	for i, row := range rows {
		if i >= 10 {
			break
		}
		totalCombined += numOf(row["combined_percent"])
	}

	return fmt.Sprintf("Found %d overlapping holdings with total combined exposure of %.2f%%. Top overlap: %s with %.2f%% combined exposure.",
		len(rows), totalCombined, company, combined)
}

func summarizeJaccard(rows []map[string]interface{}) string {
	row := rows[0]
	jaccard := numOf(row["jaccard_similarity"])
	jaccardPercent := numOf(row["jaccard_percent"])
	if _, ok := row["jaccard_percent"]; !ok {
		jaccardPercent = jaccard * 100
	}
	return fmt.Sprintf("Jaccard similarity: %.4f (%.2f%%). Intersection: %d companies. ETF1 holdings: %d, ETF2 holdings: %d",
		jaccard, jaccardPercent, intOf(row["intersection"]), intOf(row["count1"]), intOf(row["count2"]))
}

func summarizeSectors(rows []map[string]interface{}) string {
	top := rows[0]
	return fmt.Sprintf("ETF has exposure to %d sectors. Largest sector exposure: %s at %.2f%% with %d companies.",
		len(rows), strOr(top["sector"], "Unknown"), numOf(top["exposure_percent"]), intOf(top["company_count"]))
}

func summarizeSectorETFs(rows []map[string]interface{}) string {
	top := rows[0]
	return fmt.Sprintf("Found %d ETFs meeting sector criteria. Highest exposure: %s at %.2f%%.",
		len(rows), strOr(top["e.ticker"], "Unknown"), numOf(top["exposure_percent"]))
}

func summarizeCompanyRankings(rows []map[string]interface{}) string {
	holdings := []string{}
	for i, row := range rows {
		if i >= 3 {
			break
		}
		holdings = append(holdings, fmt.Sprintf("%s (%s): %.2f%%",
			strOr(row["e.ticker"], "Unknown"), strOr(row["etf_name"], "Unknown ETF"), numOf(row["exposure_percent"])))
	}
	list := strings.Join(holdings, ", ")
	if len(rows) > 3 {
		list += fmt.Sprintf(" and %d more", len(rows)-3)
	}
	return fmt.Sprintf("Company held by %d ETFs. Rankings: %s.", len(rows), list)
}

func summarizeTopHoldings(rows []map[string]interface{}) string {
	total := 0.0
	max := 0.0
	for _, row := range rows {
		p := numOf(row["exposure_percent"])
		total += p
		if p > max {
			max = p
		}
	}
	topCompany := strOr(rows[0]["company_name"], strOr(rows[0]["c.symbol"], "Unknown"))
	return fmt.Sprintf("Top %d holdings include %s (%.2f%%), with total exposure of %.2f%%.",
		len(rows), topCompany, max, total)
}

// comprehensiveSummary renders the nested comprehensive_data rows, one block
// per ETF with top holdings and sector distribution.
func comprehensiveSummary(rows []map[string]interface{}) string {
	if len(rows) == 0 {
		return "No comprehensive data available."
	}

	parts := []string{fmt.Sprintf("Available ETFs: %d", len(rows))}

	for i, etf := range rows {
		if i >= 6 {
			break
		}
		ticker := strOr(etf["etf_ticker"], fmt.Sprintf("ETF_%d", i+1))
		name := strOr(etf["etf_name"], "Unknown ETF")
		totalHoldings := intOf(etf["total_holdings"])

		holdingParts := []string{}
		for j, h := range listOf(etf["holdings"]) {
			if j >= 5 {
				break
			}
			holdingParts = append(holdingParts, fmt.Sprintf("%s (%.1f%%)", strOr(h["symbol"], "UNK"), numOf(h["exposure_percent"])))
		}

		sectors := listOf(etf["sectors"])
		sort.SliceStable(sectors, func(a, b int) bool {
			return numOf(sectors[a]["weight"]) > numOf(sectors[b]["weight"])
		})
		sectorParts := []string{}
		for j, sec := range sectors {
			if j >= 3 {
				break
			}
			sectorParts = append(sectorParts, fmt.Sprintf("%s (%.1f%%)", strOr(sec["sector"], "Unknown"), numOf(sec["weight"])))
		}

		parts = append(parts, fmt.Sprintf("\n%s (%s): %d holdings. Top holdings: %s. Top sectors: %s.",
			ticker, name, totalHoldings, strings.Join(holdingParts, ", "), strings.Join(sectorParts, ", ")))
	}

	return strings.Join(parts, "\n")
}

func entityContext(entities []models.GroundedEntity) string {
	if len(entities) == 0 {
		return "None specified"
	}
	parts := []string{}
	for _, t := range []struct {
		typ   models.EntityType
		label string
	}{
		{models.EntityETF, "ETFs"},
		{models.EntityCompany, "Companies"},
		{models.EntitySector, "Sectors"},
	} {
		names := []string{}
		for _, e := range entities {
			if e.Type == t.typ {
				names = append(names, e.Name)
			}
		}
		if len(names) > 0 {
			parts = append(parts, t.label+": "+strings.Join(names, ", "))
		}
	}
	if len(parts) == 0 {
		return "None specified"
	}
	return strings.Join(parts, "; ")
}

func containsConcreteNumber(text string) bool {
	for _, pattern := range numberPatterns {
		if pattern.MatchString(text) {
			return true
		}
	}
	return false
}

// addConcreteNumber appends the first positive numeric field from the first
// row when the model produced prose without any figures. Keys are walked in
// sorted order so the appended value is deterministic.
func addConcreteNumber(response string, rows []map[string]interface{}) string {
	if len(rows) == 0 {
		return response
	}

	first := rows[0]
	keys := make([]string, 0, len(first))
	for k := range first {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, key := range keys {
		v := numOf(first[key])
		if v <= 0 {
			continue
		}
		lower := strings.ToLower(key)
		if strings.Contains(lower, "percent") {
			return response + fmt.Sprintf(" (%.2f%%)", v)
		}
		if strings.Contains(lower, "count") {
			return response + fmt.Sprintf(" (Count: %d)", int(v))
		}
	}
	return response
}

func addComprehensiveNumber(response string, rows []map[string]interface{}) string {
	if len(rows) == 0 {
		return response
	}
	first := rows[0]
	if holdings := listOf(first["holdings"]); len(holdings) > 0 {
		top := holdings[0]
		return response + fmt.Sprintf(" (Top holding: %s at %.2f%%)", strOr(top["symbol"], "top holding"), numOf(top["exposure_percent"]))
	}
	return response + fmt.Sprintf(" (Total holdings analyzed: %d)", intOf(first["total_holdings"]))
}

// enforceWordLimit trims responses above the cap, preferring to cut at the
// last sentence boundary inside the window.
func enforceWordLimit(response string, maxWords int) string {
	words := strings.Fields(response)
	if len(words) <= maxWords {
		return response
	}
	truncated := strings.Join(words[:maxWords], " ")
	if idx := strings.LastIndexAny(truncated, ".!?"); idx > 0 {
		return truncated[:idx+1]
	}
	return truncated + "..."
}

// fallbackResponse is the deterministic answer used when the LLM is down.
func fallbackResponse(rows []map[string]interface{}, intent string) string {
	if intent == models.IntentGeneralLLM {
		return generalUnavailableResponse
	}
	if len(rows) == 0 {
		return "No results found for this query."
	}

	intentReadable := titleCaseWords(strings.ReplaceAll(intent, "_", " "))

	first := rows[0]
	keys := make([]string, 0, len(first))
	for k := range first {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	keyNumber := ""
	for _, key := range keys {
		v := numOf(first[key])
		if v <= 0 {
			continue
		}
		lower := strings.ToLower(key)
		if strings.Contains(lower, "weight") {
			keyNumber = fmt.Sprintf(" with key weight of %.4f (%.2f%%)", v, v*100)
			break
		}
		if strings.Contains(lower, "count") {
			keyNumber = fmt.Sprintf(" showing %d items", int(v))
			break
		}
	}

	return fmt.Sprintf("Query completed successfully with %d results for %s%s. The data shows relevant investment information based on your query parameters.",
		len(rows), intentReadable, keyNumber)
}

func titleCaseWords(s string) string {
	words := strings.Fields(s)
	for i, w := range words {
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}

// numOf coerces the numeric types the graph driver produces to float64.
func numOf(v interface{}) float64 {
	switch n := v.(type) {
	case float64:
		return n
	case float32:
		return float64(n)
	case int:
		return float64(n)
	case int64:
		return float64(n)
	}
	return 0
}

func intOf(v interface{}) int {
	return int(numOf(v))
}

func strOr(v interface{}, fallback string) string {
	if s, ok := v.(string); ok && s != "" {
		return s
	}
	return fallback
}

// listOf normalizes a collected list of maps from the driver.
func listOf(v interface{}) []map[string]interface{} {
	switch items := v.(type) {
	case []map[string]interface{}:
		return items
	case []interface{}:
		out := make([]map[string]interface{}, 0, len(items))
		for _, item := range items {
			if m, ok := item.(map[string]interface{}); ok {
				out = append(out, m)
			}
		}
		return out
	}
	return nil
}
