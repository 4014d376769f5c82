package graphrag

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"encoding/json"
	"sort"
	"strings"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/quanta/internal/interfaces"
	"github.com/ternarybob/quanta/internal/models"
)

const classificationPrompt = `You are an ETF investment analysis assistant. Classify the user's query into ONE of the following intents. Return ONLY a JSON object with the intent key and confidence score.

Available intents:
- etf_exposure_to_company: Questions about how much a SPECIFIC ETF holds of a SPECIFIC COMPANY (e.g., "SPY's exposure to AAPL", "What percent of QQQ is Microsoft?")
- etf_overlap_weighted: Questions about weighted overlap, combined weights, or top shared holdings between TWO ETFs
- etf_overlap_jaccard: Questions about Jaccard similarity, count-based overlap, or percentage of shared holdings between ETFs
- sector_exposure: Questions about sector distribution within a SPECIFIC ETF (e.g., "SPY's tech sector exposure", "QQQ's sector breakdown") - NOT for individual companies
- etfs_by_sector_threshold: Questions asking WHICH ETFs meet sector exposure criteria (like "Which ETFs have 20% tech exposure?")
- top_holdings_subgraph: Questions about top holdings for visualization
- company_rankings: Questions about which ETFs hold a specific company
- general_llm: General questions, financial advice, or topics outside ETF analysis

User Query: "{query}"

Grounded Entities: {entities}

Return JSON format:
{"intent": "intent_key", "confidence": 0.95}

Guidelines:
- CRITICAL: If query asks about ONE ETF's exposure to ONE company (e.g., "SPY's exposure to AAPL") → use "etf_exposure_to_company"
- CRITICAL: If query asks "which ETFs" or "what ETFs" with sector criteria → use "etfs_by_sector_threshold"
- CRITICAL: If query asks about a specific ETF's sector exposure (e.g., "SPY's tech exposure") → use "sector_exposure"
- Company symbols like AAPL, MSFT, GOOGL should trigger "etf_exposure_to_company" when paired with an ETF
- Use entity information to improve classification accuracy
- Confidence should be 0.3-1.0 (relaxed threshold for better coverage)
- If multiple intents could apply, choose the most specific one
- Consider the presence of ETF tickers, company symbols, and sector names`

// classificationOptions keeps the LLM fast and near-deterministic.
var classificationOptions = interfaces.GenerateOptions{
	Temperature: 0.05,
	MaxTokens:   50,
	TopK:        10,
	TopP:        0.8,
}

// IntentClassifier turns a query plus its grounded entities into an intent.
// LLM classification is attempted first; unknown or implausible intents, and
// provider failures, drop to the deterministic rule ladder.
type IntentClassifier struct {
	llm    interfaces.LLMService
	cache  *ttlCache[models.IntentResult]
	logger arbor.ILogger
}

func NewIntentClassifier(llm interfaces.LLMService, cacheTTL time.Duration, cacheSize int, logger arbor.ILogger) *IntentClassifier {
	return &IntentClassifier{
		llm:    llm,
		cache:  newTTLCache[models.IntentResult](cacheTTL, cacheSize),
		logger: logger,
	}
}

// Classify determines the intent for a query. The cache key covers both the
// query text and the grounded entity names, so the same words grounded
// differently never share a classification.
func (c *IntentClassifier) Classify(ctx context.Context, query string, entities []models.GroundedEntity) models.IntentResult {
	cacheKey := classificationCacheKey(query, entities)
	if cached, ok := c.cache.Get(cacheKey); ok {
		cached.Source = models.SourceCache
		c.logger.Debug().Str("intent", cached.Intent).Msg("Using cached intent classification")
		return cached
	}

	prompt := strings.NewReplacer(
		"{query}", query,
		"{entities}", entitySummary(entities),
	).Replace(classificationPrompt)

	response, err := c.llm.Generate(ctx, prompt, classificationOptions)
	if err != nil {
		c.logger.Warn().Err(err).Str("query", truncate(query, 100)).Msg("Intent classification failed, using rules")
		return c.ruleClassify(query, entities)
	}

	intent, confidence, ok := parseClassification(response)
	if !ok {
		c.logger.Warn().Str("response", truncate(response, 200)).Msg("Failed to parse LLM classification, using rules")
		return c.ruleClassify(query, entities)
	}

	if _, err := GetTemplate(intent); err != nil {
		c.logger.Warn().Str("intent", intent).Msg("LLM returned unknown intent, using rules")
		return c.ruleClassify(query, entities)
	}

	if !intentMatchesEntities(intent, entities, query) {
		c.logger.Warn().Str("intent", intent).Msg("LLM intent doesn't match available entities, using rules")
		return c.ruleClassify(query, entities)
	}

	result := models.IntentResult{
		Intent:     intent,
		Confidence: confidence,
		Source:     models.SourceLLM,
	}

	c.logger.Info().
		Str("intent", result.Intent).
		Float64("confidence", result.Confidence).
		Msg("Intent classified")

	// Only validated LLM classifications are worth caching; the rule ladder
	// is cheaper than a cache lookup.
	c.cache.Put(cacheKey, result)

	return result
}

// ClearCache drops all cached classifications.
func (c *IntentClassifier) ClearCache() {
	c.cache.Clear()
}

// CacheLen reports the number of cached classifications.
func (c *IntentClassifier) CacheLen() int {
	return c.cache.Len()
}

func classificationCacheKey(query string, entities []models.GroundedEntity) string {
	names := make([]string, 0, len(entities))
	for _, e := range entities {
		names = append(names, e.Name)
	}
	sort.Strings(names)
	input := strings.ToLower(strings.TrimSpace(query)) + "|" + strings.Join(names, ",")
	sum := md5.Sum([]byte(input))
	return hex.EncodeToString(sum[:])
}

func entitySummary(entities []models.GroundedEntity) string {
	if len(entities) == 0 {
		return "No entities found"
	}

	byType := func(types ...models.EntityType) []string {
		names := []string{}
		for _, e := range entities {
			for _, t := range types {
				if e.Type == t {
					names = append(names, e.Name)
				}
			}
		}
		return names
	}

	parts := []string{}
	if etfs := byType(models.EntityETF); len(etfs) > 0 {
		parts = append(parts, "ETFs: "+strings.Join(etfs, ", "))
	}
	if companies := byType(models.EntityCompany); len(companies) > 0 {
		parts = append(parts, "Companies: "+strings.Join(companies, ", "))
	}
	if sectors := byType(models.EntitySector); len(sectors) > 0 {
		parts = append(parts, "Sectors: "+strings.Join(sectors, ", "))
	}
	if numbers := byType(models.EntityPercent, models.EntityCount); len(numbers) > 0 {
		parts = append(parts, "Numbers: "+strings.Join(numbers, ", "))
	}
	if len(parts) == 0 {
		return "No specific entities"
	}
	return strings.Join(parts, "; ")
}

// parseClassification extracts {"intent": ..., "confidence": ...} from a
// model response, tolerating prose around the JSON object.
func parseClassification(response string) (string, float64, bool) {
	start := strings.Index(response, "{")
	end := strings.LastIndex(response, "}")
	if start != -1 && end > start {
		var parsed struct {
			Intent     string  `json:"intent"`
			Confidence float64 `json:"confidence"`
		}
		if err := json.Unmarshal([]byte(response[start:end+1]), &parsed); err == nil && parsed.Intent != "" {
			return parsed.Intent, parsed.Confidence, true
		}
	}

	// Last resort: look for a known intent key mentioned in plain text.
	lower := strings.ToLower(response)
	for _, intent := range AvailableIntents() {
		if strings.Contains(lower, intent) {
			return intent, 0.7, true
		}
	}
	return "", 0, false
}

// entityCounts tallies the entity types the predicate and rules care about.
func entityCounts(entities []models.GroundedEntity) (etfs, companies, sectors int, hasPercent, hasCount bool) {
	for _, e := range entities {
		switch e.Type {
		case models.EntityETF:
			etfs++
		case models.EntityCompany:
			companies++
		case models.EntitySector:
			sectors++
		case models.EntityPercent:
			hasPercent = true
		case models.EntityCount:
			hasCount = true
		}
	}
	return
}

// intentMatchesEntities rejects LLM classifications that cannot possibly be
// fulfilled with the entities actually present in the query.
func intentMatchesEntities(intent string, entities []models.GroundedEntity, query string) bool {
	queryLower := strings.ToLower(query)
	etfs, companies, sectors, hasPercent, _ := entityCounts(entities)

	switch intent {
	case models.IntentETFExposure:
		return etfs == 1 && companies == 1
	case models.IntentOverlapJaccard:
		return etfs >= 2
	case models.IntentOverlapWeighted:
		// Queries naming Jaccard must land on the Jaccard template even when
		// the model prefers the weighted one.
		return etfs >= 2 && !strings.Contains(queryLower, "jaccard")
	case models.IntentSectorExposure:
		// With both an ETF and a company present the right intent is
		// etf_exposure_to_company, never sector analysis.
		return etfs >= 1 && companies == 0
	case models.IntentETFsBySectorThreshold:
		return sectors >= 1 && companies == 0 &&
			(strings.Contains(queryLower, "which etf") || strings.Contains(queryLower, "what etf") || hasPercent)
	case models.IntentCompanyRankings:
		return companies >= 1 && etfs == 0
	case models.IntentGeneralLLM:
		return true
	}
	return true
}

// ruleClassify is the deterministic ladder used when the LLM is unavailable
// or produced an implausible intent. Order matters: more specific patterns
// are tried first.
func (c *IntentClassifier) ruleClassify(query string, entities []models.GroundedEntity) models.IntentResult {
	queryLower := strings.ToLower(query)
	etfs, companies, sectors, hasPercent, hasCount := entityCounts(entities)

	asksWhichETF := strings.Contains(queryLower, "which etf") || strings.Contains(queryLower, "what etf")
	mentionsOverlap := strings.Contains(queryLower, "overlap") ||
		strings.Contains(queryLower, "similar") ||
		strings.Contains(queryLower, "jaccard")

	var intent string
	var confidence float64

	switch {
	case etfs == 1 && companies == 1 &&
		(strings.Contains(queryLower, "exposure") || strings.Contains(queryLower, "hold") || strings.Contains(queryLower, "position")):
		intent = models.IntentETFExposure
		confidence = 0.95

	case asksWhichETF && companies >= 1:
		intent = models.IntentCompanyRankings
		confidence = 0.9

	case asksWhichETF && sectors >= 1:
		intent = models.IntentETFsBySectorThreshold
		confidence = 0.9

	case etfs >= 2 && companies == 1:
		intent = models.IntentCompanyRankings
		confidence = 0.85

	case etfs == 1 && companies == 1:
		intent = models.IntentETFExposure
		confidence = 0.85

	case etfs >= 2 && mentionsOverlap:
		if strings.Contains(queryLower, "jaccard") || strings.Contains(queryLower, "count") || strings.Contains(queryLower, "percentage") {
			intent = models.IntentOverlapJaccard
		} else {
			intent = models.IntentOverlapWeighted
		}
		confidence = 0.8

	case etfs == 1 && sectors >= 1:
		intent = models.IntentSectorExposure
		confidence = 0.8

	case sectors >= 1 && hasPercent:
		intent = models.IntentETFsBySectorThreshold
		confidence = 0.75

	case companies == 1 && etfs == 0:
		intent = models.IntentCompanyRankings
		confidence = 0.8

	case hasCount && (strings.Contains(queryLower, "top") || strings.Contains(queryLower, "holdings")):
		intent = models.IntentTopHoldingsSubgraph
		confidence = 0.75

	case etfs == 1 && companies == 0 && sectors == 0 && !hasCount &&
		(strings.Contains(queryLower, "exposure") || strings.Contains(queryLower, "position")):
		// One ETF and exposure language but no target: keep the specific
		// intent so the caller can ask for the missing company symbol
		// instead of shrugging the query off to the general handler.
		intent = models.IntentETFExposure
		confidence = 0.7

	default:
		intent = models.IntentGeneralLLM
		confidence = 0.8
	}

	c.logger.Info().
		Str("intent", intent).
		Float64("confidence", confidence).
		Int("etf_count", etfs).
		Int("company_count", companies).
		Msg("Rule classification used")

	return models.IntentResult{
		Intent:     intent,
		Confidence: confidence,
		Source:     models.SourceRules,
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
