package graphrag

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPreprocessorNormalizesText(t *testing.T) {
	p := NewPreprocessor(testLogger())

	result := p.Process("  What is   SPY's exposure to AAPL?  ")

	assert.Equal(t, "  What is   SPY's exposure to AAPL?  ", result.Original)
	assert.Equal(t, "what is spy's exposure to aapl?", result.Normalized)
}

func TestPreprocessorExtractsTickers(t *testing.T) {
	p := NewPreprocessor(testLogger())

	result := p.Process("Compare SPY and QQQ holdings")

	assert.Equal(t, []string{"SPY", "QQQ"}, result.Tickers)
}

func TestPreprocessorUppercasesBeforeTickerExtraction(t *testing.T) {
	p := NewPreprocessor(testLogger())

	result := p.Process("does spy hold aapl")

	assert.Contains(t, result.Tickers, "SPY")
	assert.Contains(t, result.Tickers, "AAPL")
	assert.Contains(t, result.Tickers, "HOLD")
}

func TestPreprocessorFiltersStopWords(t *testing.T) {
	p := NewPreprocessor(testLogger())

	result := p.Process("WHAT ARE THE holdings FOR SPY")

	assert.Equal(t, []string{"SPY"}, result.Tickers)
}

func TestPreprocessorExtractsPercentages(t *testing.T) {
	p := NewPreprocessor(testLogger())

	result := p.Process("Which ETFs have more than 20% tech exposure?")

	assert.Equal(t, []float64{0.2}, result.Numbers.Percentages)
	assert.Equal(t, []float64{0.2}, result.Numbers.Thresholds)
}

func TestPreprocessorExtractsCounts(t *testing.T) {
	p := NewPreprocessor(testLogger())

	result := p.Process("Show me the top 15 holdings of QQQ")

	assert.Equal(t, []int{15}, result.Numbers.Counts)
}

func TestPreprocessorExtractsDecimals(t *testing.T) {
	p := NewPreprocessor(testLogger())

	result := p.Process("holdings above 0.05 weight")

	assert.Equal(t, []float64{0.05}, result.Numbers.Decimals)
}

func TestPreprocessorThresholdKeepsFractions(t *testing.T) {
	p := NewPreprocessor(testLogger())

	result := p.Process("ETFs with at least 0.5 weight")

	assert.Equal(t, []float64{0.5}, result.Numbers.Thresholds)
}

func TestPreprocessorTokenizesWithoutPunctuation(t *testing.T) {
	p := NewPreprocessor(testLogger())

	result := p.Process("What's SPY's tech exposure?")

	for _, tok := range result.Tokens {
		assert.GreaterOrEqual(t, len(tok), 2)
		assert.NotContains(t, tok, "?")
		assert.NotContains(t, tok, "'")
	}
	assert.Contains(t, result.Tokens, "exposure")
	assert.Contains(t, result.Tokens, "spy")
}
