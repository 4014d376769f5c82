package common

import (
	"fmt"
	"regexp"
	"strings"
)

// AllowedTickers is the closed set of ETFs the graph is loaded with.
var AllowedTickers = []string{"SPY", "QQQ", "IWM", "IJH", "IVE", "IVW"}

// Query length bounds enforced before any pipeline work happens.
const (
	MinQueryLength = 3
	MaxQueryLength = 512
)

// Patterns stripped from user input before it reaches the pipeline. They
// target Cypher injection fragments and script-looking payloads; legitimate
// questions about ETFs never contain these.
var blockedInputPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)(#cypher|; *match|drop|delete|create|merge|set|remove)`),
	regexp.MustCompile(`(?i)(call\s+apoc|call\s+db\.|admin|auth)`),
	regexp.MustCompile(`(?i)(load\s+csv|periodic\s+commit)`),
	regexp.MustCompile(`[<>{}()\\]`),
	regexp.MustCompile(`(?i)(javascript|script|eval|function)`),
}

var (
	whitespaceRe = regexp.MustCompile(`\s+`)
	tickerRe     = regexp.MustCompile(`^[A-Z]{2,5}$`)
	symbolRe     = regexp.MustCompile(`^[A-Z0-9]{1,5}$`)
	sectorRe     = regexp.MustCompile(`^[A-Za-z\s\-]+$`)
)

// SanitizeInput removes blocked patterns from user text and truncates it to
// the maximum query length.
func SanitizeInput(text string) string {
	if text == "" {
		return ""
	}
	sanitized := text
	for _, pattern := range blockedInputPatterns {
		sanitized = pattern.ReplaceAllString(sanitized, "")
	}
	sanitized = strings.TrimSpace(sanitized)
	if len(sanitized) > MaxQueryLength {
		sanitized = sanitized[:MaxQueryLength]
	}
	return sanitized
}

// CleanQuery collapses whitespace and enforces the query length bounds.
func CleanQuery(query string) (string, error) {
	cleaned := whitespaceRe.ReplaceAllString(strings.TrimSpace(query), " ")
	if len(cleaned) < MinQueryLength {
		return "", fmt.Errorf("query too short, please provide a more detailed question")
	}
	if len(cleaned) > MaxQueryLength {
		return "", fmt.Errorf("query too long, maximum %d characters allowed", MaxQueryLength)
	}
	return cleaned, nil
}

// ValidTicker reports whether ticker is in the allowed ETF set.
func ValidTicker(ticker string) bool {
	upper := strings.ToUpper(strings.TrimSpace(ticker))
	for _, t := range AllowedTickers {
		if t == upper {
			return true
		}
	}
	return false
}

// ValidateTicker checks format and whitelist membership, returning the
// normalized ticker.
func ValidateTicker(ticker string) (string, error) {
	cleaned := strings.ToUpper(strings.TrimSpace(ticker))
	if cleaned == "" {
		return "", fmt.Errorf("ticker cannot be empty")
	}
	if !tickerRe.MatchString(cleaned) {
		return "", fmt.Errorf("invalid ticker format, use 2-5 uppercase letters")
	}
	if !ValidTicker(cleaned) {
		return "", fmt.Errorf("ticker not supported, allowed tickers: %s", strings.Join(AllowedTickers, ", "))
	}
	return cleaned, nil
}

// ValidateSymbol checks company symbol format (1-5 uppercase letters/digits).
func ValidateSymbol(symbol string) (string, error) {
	cleaned := strings.ToUpper(strings.TrimSpace(symbol))
	if cleaned == "" {
		return "", fmt.Errorf("company symbol cannot be empty")
	}
	if !symbolRe.MatchString(cleaned) {
		return "", fmt.Errorf("invalid company symbol format")
	}
	return cleaned, nil
}

// ValidateSector checks sector name format and returns it title-cased.
func ValidateSector(sector string) (string, error) {
	cleaned := strings.TrimSpace(sector)
	if cleaned == "" {
		return "", fmt.Errorf("sector name cannot be empty")
	}
	cleaned = titleCase(cleaned)
	if len(cleaned) < 2 || len(cleaned) > 50 {
		return "", fmt.Errorf("sector name must be 2-50 characters")
	}
	if !sectorRe.MatchString(cleaned) {
		return "", fmt.Errorf("sector name can only contain letters, spaces, and hyphens")
	}
	return cleaned, nil
}

// SanitizeParameters sanitizes string parameters, drops ticker parameters
// that fail the whitelist, and clamps numeric bounds for top_n and threshold.
func SanitizeParameters(params map[string]interface{}, maxTopN int) map[string]interface{} {
	sanitized := make(map[string]interface{}, len(params))
	for key, value := range params {
		switch v := value.(type) {
		case string:
			clean := SanitizeInput(v)
			if strings.Contains(strings.ToLower(key), "ticker") && !ValidTicker(clean) {
				continue
			}
			sanitized[key] = clean
		case []string:
			if strings.Contains(strings.ToLower(key), "ticker") {
				sanitized[key] = filterTickerList(v)
			} else {
				sanitized[key] = v
			}
		case []interface{}:
			if strings.Contains(strings.ToLower(key), "ticker") {
				items := make([]string, 0, len(v))
				for _, item := range v {
					if s, ok := item.(string); ok {
						items = append(items, s)
					}
				}
				sanitized[key] = filterTickerList(items)
			} else {
				sanitized[key] = v
			}
		case int:
			if key == "top_n" {
				sanitized[key] = clampInt(v, 1, maxTopN)
			} else {
				sanitized[key] = v
			}
		case float64:
			if key == "threshold" {
				sanitized[key] = clampFloat(v, 0.0, 1.0)
			} else {
				sanitized[key] = v
			}
		default:
			sanitized[key] = value
		}
	}
	return sanitized
}

// filterTickerList keeps only whitelisted tickers, normalized to uppercase.
// A list with no survivors becomes nil so templates that treat IS NULL as
// "no filter" do not end up with an impossible empty filter.
func filterTickerList(items []string) interface{} {
	valid := make([]string, 0, len(items))
	for _, item := range items {
		if ticker, err := ValidateTicker(item); err == nil {
			valid = append(valid, ticker)
		}
	}
	if len(valid) == 0 {
		return nil
	}
	return valid
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func clampFloat(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// titleCase uppercases the first letter of each space-separated word,
// matching how sector names are stored in the graph.
func titleCase(s string) string {
	words := strings.Fields(s)
	for i, w := range words {
		words[i] = strings.ToUpper(w[:1]) + strings.ToLower(w[1:])
	}
	return strings.Join(words, " ")
}
