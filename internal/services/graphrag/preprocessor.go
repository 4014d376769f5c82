package graphrag

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/quanta/internal/models"
)

// Preprocessor normalizes raw queries and extracts the tokens, candidate
// tickers and numeric values later stages key off.
type Preprocessor struct {
	logger arbor.ILogger
}

var (
	percentageRe = regexp.MustCompile(`(\d+(?:\.\d+)?)\s*%`)
	decimalRe    = regexp.MustCompile(`0\.\d+`)
	countRe      = regexp.MustCompile(`(?i)\b(top|first|best)\s+(\d+)\b`)
	thresholdRe  = regexp.MustCompile(`(?:>=|at least|minimum of|more than)\s*(\d+(?:\.\d+)?)\s*%?`)
	candidateRe  = regexp.MustCompile(`\b[A-Z]{2,5}\b`)
	punctRe      = regexp.MustCompile(`[^\w\s]`)
)

// Common English words that match the ticker pattern and must never be
// treated as symbols.
var tickerStopWords = map[string]struct{}{
	"THE": {}, "AND": {}, "FOR": {}, "ARE": {}, "BUT": {}, "NOT": {},
	"YOU": {}, "ALL": {}, "CAN": {}, "HER": {}, "WAS": {}, "ONE": {},
	"OUR": {}, "HAD": {}, "HIS": {}, "HAS": {}, "WHO": {}, "WITH": {},
	"FROM": {}, "THEY": {}, "KNOW": {}, "WANT": {}, "BEEN": {}, "GOOD": {},
	"MUCH": {}, "SOME": {}, "TIME": {}, "VERY": {}, "WHEN": {}, "COME": {},
	"HERE": {}, "HOW": {}, "JUST": {}, "LIKE": {}, "LONG": {}, "MAKE": {},
	"MANY": {}, "OVER": {}, "SUCH": {}, "TAKE": {}, "THAN": {}, "THEM": {},
	"WELL": {}, "WHAT": {}, "WHERE": {},
}

func NewPreprocessor(logger arbor.ILogger) *Preprocessor {
	return &Preprocessor{logger: logger}
}

// Process normalizes the query and extracts numbers, tickers and tokens.
// Ticker extraction uppercases the text first, so "spy" and "SPY" both
// surface as candidates; the stop word list keeps ordinary words out.
func (p *Preprocessor) Process(text string) models.PreprocessResult {
	normalized := normalizeText(text)
	numbers := extractNumbers(text)
	tickers := extractTickers(text)
	tokens := tokenize(normalized)

	p.logger.Debug().
		Int("text_length", len(text)).
		Int("numbers_found", len(numbers.Percentages)+len(numbers.Counts)).
		Int("tickers_found", len(tickers)).
		Int("tokens_count", len(tokens)).
		Msg("Text preprocessed")

	return models.PreprocessResult{
		Original:   text,
		Normalized: normalized,
		Tokens:     tokens,
		Tickers:    tickers,
		Numbers:    numbers,
	}
}

func normalizeText(text string) string {
	normalized := strings.ToLower(strings.TrimSpace(text))
	return whitespaceCollapseRe.ReplaceAllString(normalized, " ")
}

var whitespaceCollapseRe = regexp.MustCompile(`\s+`)

func extractNumbers(text string) models.ExtractedNumbers {
	numbers := models.ExtractedNumbers{}

	for _, m := range percentageRe.FindAllStringSubmatch(text, -1) {
		if v, err := strconv.ParseFloat(m[1], 64); err == nil {
			numbers.Percentages = append(numbers.Percentages, v/100)
		}
	}
	for _, m := range decimalRe.FindAllString(text, -1) {
		if v, err := strconv.ParseFloat(m, 64); err == nil {
			numbers.Decimals = append(numbers.Decimals, v)
		}
	}
	for _, m := range countRe.FindAllStringSubmatch(text, -1) {
		if v, err := strconv.Atoi(m[2]); err == nil {
			numbers.Counts = append(numbers.Counts, v)
		}
	}
	for _, m := range thresholdRe.FindAllStringSubmatch(text, -1) {
		if v, err := strconv.ParseFloat(m[1], 64); err == nil {
			// Values above 1 read as percentages, e.g. "at least 20%"
			if v > 1 {
				v /= 100
			}
			numbers.Thresholds = append(numbers.Thresholds, v)
		}
	}

	return numbers
}

func extractTickers(text string) []string {
	matches := candidateRe.FindAllString(strings.ToUpper(text), -1)
	tickers := []string{}
	for _, m := range matches {
		if _, stop := tickerStopWords[m]; !stop {
			tickers = append(tickers, m)
		}
	}
	return tickers
}

func tokenize(text string) []string {
	cleaned := punctRe.ReplaceAllString(text, " ")
	tokens := []string{}
	for _, tok := range strings.Fields(cleaned) {
		if len(tok) > 1 {
			tokens = append(tokens, tok)
		}
	}
	return tokens
}
