package graphrag

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/quanta/internal/models"
)

func etf(name string) models.GroundedEntity {
	return models.GroundedEntity{Type: models.EntityETF, Name: name, Confidence: 1.0}
}

func company(name string) models.GroundedEntity {
	return models.GroundedEntity{Type: models.EntityCompany, Name: name, Confidence: 1.0}
}

func sector(name string) models.GroundedEntity {
	return models.GroundedEntity{Type: models.EntitySector, Name: name, Confidence: 0.9}
}

func percent(name string) models.GroundedEntity {
	return models.GroundedEntity{Type: models.EntityPercent, Name: name, Confidence: 1.0}
}

func count(name string) models.GroundedEntity {
	return models.GroundedEntity{Type: models.EntityCount, Name: name, Confidence: 1.0}
}

func newTestClassifier(llm *fakeLLM) *IntentClassifier {
	return NewIntentClassifier(llm, time.Hour, 100, testLogger())
}

func TestClassifierAcceptsValidLLMResponse(t *testing.T) {
	llm := &fakeLLM{response: `{"intent": "etf_exposure_to_company", "confidence": 0.95}`}
	c := newTestClassifier(llm)

	result := c.Classify(context.Background(), "What is SPY's exposure to AAPL?",
		[]models.GroundedEntity{etf("SPY"), company("AAPL")})

	assert.Equal(t, models.IntentETFExposure, result.Intent)
	assert.Equal(t, 0.95, result.Confidence)
	assert.Equal(t, models.SourceLLM, result.Source)
}

func TestClassifierParsesJSONEmbeddedInProse(t *testing.T) {
	llm := &fakeLLM{response: `Sure! Here is the classification: {"intent": "sector_exposure", "confidence": 0.9} Hope that helps.`}
	c := newTestClassifier(llm)

	result := c.Classify(context.Background(), "SPY's tech exposure",
		[]models.GroundedEntity{etf("SPY"), sector("Technology")})

	assert.Equal(t, models.IntentSectorExposure, result.Intent)
	assert.Equal(t, models.SourceLLM, result.Source)
}

func TestClassifierTextScanFallback(t *testing.T) {
	llm := &fakeLLM{response: "The best match is etf_overlap_weighted for this query."}
	c := newTestClassifier(llm)

	result := c.Classify(context.Background(), "overlap between SPY and QQQ",
		[]models.GroundedEntity{etf("SPY"), etf("QQQ")})

	assert.Equal(t, models.IntentOverlapWeighted, result.Intent)
	assert.Equal(t, 0.7, result.Confidence)
}

func TestClassifierFallsToRulesOnLLMError(t *testing.T) {
	llm := &fakeLLM{err: errors.New("provider down")}
	c := newTestClassifier(llm)

	result := c.Classify(context.Background(), "What is SPY's exposure to AAPL?",
		[]models.GroundedEntity{etf("SPY"), company("AAPL")})

	assert.Equal(t, models.IntentETFExposure, result.Intent)
	assert.Equal(t, 0.95, result.Confidence)
	assert.Equal(t, models.SourceRules, result.Source)
}

func TestClassifierRejectsUnknownIntent(t *testing.T) {
	llm := &fakeLLM{response: `{"intent": "made_up_intent", "confidence": 0.99}`}
	c := newTestClassifier(llm)

	result := c.Classify(context.Background(), "SPY holdings", []models.GroundedEntity{etf("SPY")})

	assert.Equal(t, models.SourceRules, result.Source)
}

func TestClassifierRejectsImplausibleIntent(t *testing.T) {
	// Exposure needs exactly one ETF and one company; with two ETFs the LLM
	// answer cannot be fulfilled and the rules take over.
	llm := &fakeLLM{response: `{"intent": "etf_exposure_to_company", "confidence": 0.9}`}
	c := newTestClassifier(llm)

	result := c.Classify(context.Background(), "overlap of SPY and QQQ",
		[]models.GroundedEntity{etf("SPY"), etf("QQQ")})

	assert.Equal(t, models.SourceRules, result.Source)
	assert.Equal(t, models.IntentOverlapWeighted, result.Intent)
}

func TestClassifierJaccardQueryRejectsWeightedIntent(t *testing.T) {
	llm := &fakeLLM{response: `{"intent": "etf_overlap_weighted", "confidence": 0.9}`}
	c := newTestClassifier(llm)

	result := c.Classify(context.Background(), "Jaccard similarity of SPY and QQQ",
		[]models.GroundedEntity{etf("SPY"), etf("QQQ")})

	assert.Equal(t, models.IntentOverlapJaccard, result.Intent)
	assert.Equal(t, models.SourceRules, result.Source)
}

func TestClassifierCachesValidatedResults(t *testing.T) {
	llm := &fakeLLM{response: `{"intent": "sector_exposure", "confidence": 0.9}`}
	c := newTestClassifier(llm)
	entities := []models.GroundedEntity{etf("SPY"), sector("Technology")}

	first := c.Classify(context.Background(), "SPY tech exposure", entities)
	second := c.Classify(context.Background(), "SPY tech exposure", entities)

	assert.Equal(t, models.SourceLLM, first.Source)
	assert.Equal(t, models.SourceCache, second.Source)
	assert.Equal(t, first.Intent, second.Intent)
	assert.Equal(t, 1, llm.calls)
}

func TestClassifierDoesNotCacheRuleResults(t *testing.T) {
	llm := &fakeLLM{err: errors.New("provider down")}
	c := newTestClassifier(llm)

	c.Classify(context.Background(), "SPY holdings", []models.GroundedEntity{etf("SPY")})

	assert.Equal(t, 0, c.CacheLen())
}

func TestClassifierCacheKeyDependsOnEntities(t *testing.T) {
	a := classificationCacheKey("spy exposure", []models.GroundedEntity{etf("SPY")})
	b := classificationCacheKey("spy exposure", []models.GroundedEntity{etf("SPY"), company("AAPL")})
	c := classificationCacheKey("SPY exposure  ", []models.GroundedEntity{etf("SPY")})

	assert.NotEqual(t, a, b)
	assert.Equal(t, a, c)
}

func TestClassifierUsesTightSamplingOptions(t *testing.T) {
	llm := &fakeLLM{response: `{"intent": "general_llm", "confidence": 0.8}`}
	c := newTestClassifier(llm)

	c.Classify(context.Background(), "what is an ETF", nil)

	require.Len(t, llm.opts, 1)
	assert.Equal(t, 0.05, llm.opts[0].Temperature)
	assert.Equal(t, 50, llm.opts[0].MaxTokens)
}

func TestRuleLadder(t *testing.T) {
	llm := &fakeLLM{err: errors.New("down")}
	c := newTestClassifier(llm)

	tests := []struct {
		name       string
		query      string
		entities   []models.GroundedEntity
		intent     string
		confidence float64
	}{
		{
			name:       "exposure with keyword",
			query:      "SPY's exposure to AAPL",
			entities:   []models.GroundedEntity{etf("SPY"), company("AAPL")},
			intent:     models.IntentETFExposure,
			confidence: 0.95,
		},
		{
			name:       "which etf holds company",
			query:      "Which ETFs hold AAPL?",
			entities:   []models.GroundedEntity{company("AAPL")},
			intent:     models.IntentCompanyRankings,
			confidence: 0.9,
		},
		{
			name:       "which etf sector criteria",
			query:      "Which ETFs are heavy in technology?",
			entities:   []models.GroundedEntity{sector("Technology")},
			intent:     models.IntentETFsBySectorThreshold,
			confidence: 0.9,
		},
		{
			name:       "two etfs one company",
			query:      "Do SPY and QQQ include AAPL?",
			entities:   []models.GroundedEntity{etf("SPY"), etf("QQQ"), company("AAPL")},
			intent:     models.IntentCompanyRankings,
			confidence: 0.85,
		},
		{
			name:       "etf and company without keyword",
			query:      "SPY and AAPL",
			entities:   []models.GroundedEntity{etf("SPY"), company("AAPL")},
			intent:     models.IntentETFExposure,
			confidence: 0.85,
		},
		{
			name:       "weighted overlap",
			query:      "overlap between SPY and QQQ",
			entities:   []models.GroundedEntity{etf("SPY"), etf("QQQ")},
			intent:     models.IntentOverlapWeighted,
			confidence: 0.8,
		},
		{
			name:       "jaccard overlap",
			query:      "Jaccard overlap of SPY and QQQ",
			entities:   []models.GroundedEntity{etf("SPY"), etf("QQQ")},
			intent:     models.IntentOverlapJaccard,
			confidence: 0.8,
		},
		{
			name:       "etf sector",
			query:      "SPY technology breakdown",
			entities:   []models.GroundedEntity{etf("SPY"), sector("Technology")},
			intent:     models.IntentSectorExposure,
			confidence: 0.8,
		},
		{
			name:       "sector with percent",
			query:      "20% in technology",
			entities:   []models.GroundedEntity{sector("Technology"), percent("20.0%")},
			intent:     models.IntentETFsBySectorThreshold,
			confidence: 0.75,
		},
		{
			name:       "company only",
			query:      "Tell me about AAPL",
			entities:   []models.GroundedEntity{company("AAPL")},
			intent:     models.IntentCompanyRankings,
			confidence: 0.8,
		},
		{
			name:       "top holdings",
			query:      "top 10 holdings",
			entities:   []models.GroundedEntity{count("10")},
			intent:     models.IntentTopHoldingsSubgraph,
			confidence: 0.75,
		},
		{
			name:       "exposure with missing target",
			query:      "What is SPY's exposure?",
			entities:   []models.GroundedEntity{etf("SPY")},
			intent:     models.IntentETFExposure,
			confidence: 0.7,
		},
		{
			name:       "general fallthrough",
			query:      "Should I invest in index funds?",
			entities:   nil,
			intent:     models.IntentGeneralLLM,
			confidence: 0.8,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := c.Classify(context.Background(), tt.query, tt.entities)
			assert.Equal(t, tt.intent, result.Intent)
			assert.Equal(t, tt.confidence, result.Confidence)
			assert.Equal(t, models.SourceRules, result.Source)
		})
	}
}
