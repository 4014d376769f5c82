package ingest

import (
	"bufio"
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/ternarybob/quanta/internal/models"
)

// Sector keyword table for classifying companies whose provider row carries
// no usable sector label. Highest keyword-hit count wins.
var sectorKeywords = map[string][]string{
	"Technology":             {"software", "tech", "computer", "internet", "semiconductor", "electronics", "digital", "cloud"},
	"Health Care":            {"health", "medical", "pharma", "biotech", "drug", "hospital", "therapeutic"},
	"Financials":             {"bank", "insurance", "financial", "credit", "investment", "capital", "securities"},
	"Consumer Discretionary": {"retail", "restaurant", "automotive", "entertainment", "media", "hotel", "apparel"},
	"Communication Services": {"telecom", "communication", "wireless", "broadcasting", "cable"},
	"Industrials":            {"industrial", "manufacturing", "aerospace", "defense", "transportation", "logistics"},
	"Consumer Staples":       {"food", "beverage", "household", "personal care", "tobacco", "grocery"},
	"Energy":                 {"oil", "gas", "energy", "petroleum", "renewable", "solar", "wind"},
	"Utilities":              {"utility", "electric", "power", "water", "gas utility"},
	"Materials":              {"chemical", "mining", "steel", "aluminum", "paper", "construction material"},
	"Real Estate":            {"real estate", "reit", "property", "mortgage", "commercial real estate"},
}

// defaultSector is assigned when the row has no sector and no keyword matches
const defaultSector = "Industrials"

// summaryPrefixes mark trailer rows that follow the holdings table
var summaryPrefixes = []string{"Total", "Fund", "Date", "#", "Past performance", "Portfolio holdings", "Before investing"}

// ParseHoldingsCSV reads one provider CSV per the source's parse hints and
// returns normalised holdings plus the count of skipped rows.
func ParseHoldingsCSV(r io.Reader, source models.HoldingsSource) ([]models.Holding, int, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	// Providers prepend metadata lines before the real header row
	for i := 0; i < source.Hints.SkipRows; i++ {
		if !scanner.Scan() {
			return nil, 0, fmt.Errorf("file for %s has fewer than %d lines", source.Ticker, source.Hints.SkipRows)
		}
	}

	var body strings.Builder
	for scanner.Scan() {
		body.WriteString(scanner.Text())
		body.WriteString("\n")
	}
	if err := scanner.Err(); err != nil {
		return nil, 0, fmt.Errorf("failed to read holdings file for %s: %w", source.Ticker, err)
	}

	reader := csv.NewReader(strings.NewReader(body.String()))
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		return nil, 0, fmt.Errorf("failed to read header row for %s: %w", source.Ticker, err)
	}
	header[0] = strings.TrimPrefix(header[0], "\uFEFF")

	columns := resolveColumns(header, source.Hints)
	if columns.symbol < 0 || columns.name < 0 {
		return nil, 0, fmt.Errorf("could not locate symbol and name columns for %s (header: %s)", source.Ticker, strings.Join(header, ","))
	}

	var holdings []models.Holding
	skipped := 0

	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			skipped++
			continue
		}
		holding, ok := extractHolding(record, columns)
		if !ok {
			skipped++
			continue
		}
		holdings = append(holdings, holding)
	}

	return holdings, skipped, nil
}

type columnIndexes struct {
	symbol int
	name   int
	sector int
	weight int

	// weightIsPercent is set when the weight column was hinted, meaning the
	// provider documents it as a percentage. Unhinted columns are
	// auto-detected per value.
	weightIsPercent bool
}

// resolveColumns maps hint names onto header positions, falling back to a
// keyword scan when a hinted column is absent from this file revision.
func resolveColumns(header []string, hints models.ParseHints) columnIndexes {
	columns := columnIndexes{symbol: -1, name: -1, sector: -1, weight: -1}

	find := func(exact string, keywords ...string) int {
		if exact != "" {
			for i, col := range header {
				if strings.EqualFold(strings.TrimSpace(col), exact) {
					return i
				}
			}
		}
		for i, col := range header {
			lower := strings.ToLower(col)
			for _, keyword := range keywords {
				if strings.Contains(lower, keyword) {
					return i
				}
			}
		}
		return -1
	}

	columns.symbol = find(hints.SymbolColumn, "ticker", "symbol", "identifier")
	columns.name = find(hints.NameColumn, "name", "holding", "description", "company")
	columns.sector = find(hints.SectorColumn, "sector", "industry", "classification", "gics")
	columns.weight = find(hints.WeightColumn, "weight", "allocation", "percent", "%")
	columns.weightIsPercent = hints.WeightColumn != ""

	// The fund ticker column on Invesco files also matches "ticker"; never
	// let symbol and name share a column with it.
	if columns.symbol >= 0 && strings.Contains(strings.ToLower(header[columns.symbol]), "fund") {
		columns.symbol = -1
	}

	return columns
}

func extractHolding(record []string, columns columnIndexes) (models.Holding, bool) {
	field := func(idx int) string {
		if idx < 0 || idx >= len(record) {
			return ""
		}
		return strings.TrimSpace(strings.ReplaceAll(record[idx], "\"", ""))
	}

	symbol := field(columns.symbol)
	name := field(columns.name)

	if symbol == "" || name == "" || isSummaryRow(symbol) || strings.EqualFold(symbol, "nan") {
		return models.Holding{}, false
	}

	symbol = strings.ToUpper(strings.ReplaceAll(symbol, " ", ""))
	if len(symbol) > 10 || strings.ContainsAny(symbol, "/\\()") {
		return models.Holding{}, false
	}

	sector := field(columns.sector)
	if sector == "" || sector == "-" || strings.EqualFold(sector, "nan") {
		sector = inferSector(name)
	}

	return models.Holding{
		Symbol: symbol,
		Name:   name,
		Sector: sector,
		Weight: normalizeWeight(field(columns.weight), columns.weightIsPercent),
	}, true
}

func isSummaryRow(first string) bool {
	for _, prefix := range summaryPrefixes {
		if strings.HasPrefix(first, prefix) {
			return true
		}
	}
	return false
}

// inferSector scores each sector by keyword hits against the company name
func inferSector(companyName string) string {
	lower := strings.ToLower(companyName)

	best := defaultSector
	bestScore := 0
	for sector, keywords := range sectorKeywords {
		score := 0
		for _, keyword := range keywords {
			if strings.Contains(lower, keyword) {
				score++
			}
		}
		if score > bestScore || (score == bestScore && score > 0 && sector < best) {
			best = sector
			bestScore = score
		}
	}
	return best
}

// normalizeWeight converts a provider weight cell to a fraction in [0,1].
// Catalogue-hinted columns are documented percentages (7.25 means 7.25%) and
// always divide by 100; otherwise values above 1 are assumed percentages.
// Unparseable or negative values become 0.
func normalizeWeight(raw string, percent bool) float64 {
	cleaned := strings.TrimSpace(strings.ReplaceAll(strings.ReplaceAll(raw, "%", ""), ",", ""))
	if cleaned == "" || cleaned == "-" || strings.EqualFold(cleaned, "nan") {
		return 0
	}

	weight, err := strconv.ParseFloat(cleaned, 64)
	if err != nil || weight < 0 {
		return 0
	}
	if percent || weight > 1 {
		weight = weight / 100
	}
	return weight
}
