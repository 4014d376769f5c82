package ingest

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/quanta/internal/models"
)

func isharesSource() models.HoldingsSource {
	return models.HoldingsSource{
		Ticker:     "IWM",
		Name:       "iShares Russell 2000 ETF",
		Format:     models.SourceFormatCSV,
		FundFamily: "iShares",
		Hints: models.ParseHints{
			SkipRows:     2,
			SymbolColumn: "Ticker",
			NameColumn:   "Name",
			SectorColumn: "Sector",
			WeightColumn: "Weight (%)",
		},
	}
}

func TestParseHoldingsCSV(t *testing.T) {
	file := strings.Join([]string{
		"iShares Russell 2000 ETF",
		"Holdings as of 2025-06-01",
		"Ticker,Name,Sector,Asset Class,Weight (%)",
		"AAPL,Apple Inc.,Information Technology,Equity,7.25",
		"SMCO,Small Co Holdings,Industrials,Equity,0.95",
		"MSFT,Microsoft Corp,Information Technology,Equity,6.80",
	}, "\n")

	holdings, skipped, err := ParseHoldingsCSV(strings.NewReader(file), isharesSource())
	require.NoError(t, err)
	assert.Equal(t, 0, skipped)
	require.Len(t, holdings, 3)

	assert.Equal(t, "AAPL", holdings[0].Symbol)
	assert.Equal(t, "Apple Inc.", holdings[0].Name)
	assert.Equal(t, "Information Technology", holdings[0].Sector)
	assert.InDelta(t, 0.0725, holdings[0].Weight, 1e-9)

	// Sub-1% hinted weights are still percentages
	assert.InDelta(t, 0.0095, holdings[1].Weight, 1e-9)
}

func TestParseSkipsSummaryAndMalformedRows(t *testing.T) {
	file := strings.Join([]string{
		"meta",
		"meta",
		"Ticker,Name,Sector,Asset Class,Weight (%)",
		"AAPL,Apple Inc.,Information Technology,Equity,7.25",
		"Total,,,100.00,",
		"Fund Holdings Subject To Change,,,,",
		"BRK/B,Berkshire Hathaway,Financials,Equity,1.50",
		",Nameless Co,Industrials,Equity,0.20",
		"nan,Not A Holding,Industrials,Equity,0.10",
	}, "\n")

	holdings, skipped, err := ParseHoldingsCSV(strings.NewReader(file), isharesSource())
	require.NoError(t, err)
	require.Len(t, holdings, 1)
	assert.Equal(t, "AAPL", holdings[0].Symbol)
	assert.Equal(t, 5, skipped)
}

func TestParseInfersMissingSector(t *testing.T) {
	file := strings.Join([]string{
		"meta",
		"meta",
		"Ticker,Name,Sector,Asset Class,Weight (%)",
		"ACME,Acme Software Inc,-,Equity,1.00",
		"MYST,Mystery Holdings Trust,,Equity,0.50",
	}, "\n")

	holdings, _, err := ParseHoldingsCSV(strings.NewReader(file), isharesSource())
	require.NoError(t, err)
	require.Len(t, holdings, 2)
	assert.Equal(t, "Technology", holdings[0].Sector)
	assert.Equal(t, "Industrials", holdings[1].Sector)
}

func TestParseHandlesQuotedFieldsAndBOM(t *testing.T) {
	file := "\uFEFFmeta\nmeta\n" + strings.Join([]string{
		`"Ticker","Name","Sector","Asset Class","Weight (%)"`,
		`"AAPL","Apple, Inc.","Information Technology","Equity","7.25"`,
	}, "\n")

	holdings, _, err := ParseHoldingsCSV(strings.NewReader(file), isharesSource())
	require.NoError(t, err)
	require.Len(t, holdings, 1)
	assert.Equal(t, "Apple, Inc.", holdings[0].Name)
}

func TestParseFallsBackToHeaderScan(t *testing.T) {
	source := isharesSource()
	source.Hints = models.ParseHints{SkipRows: 0}

	file := strings.Join([]string{
		"Holding Ticker,Company Name,GICS Sector,Allocation",
		"NVDA,NVIDIA Corp,Information Technology,8.90",
	}, "\n")

	holdings, _, err := ParseHoldingsCSV(strings.NewReader(file), source)
	require.NoError(t, err)
	require.Len(t, holdings, 1)
	assert.Equal(t, "NVDA", holdings[0].Symbol)
	assert.Equal(t, "NVIDIA Corp", holdings[0].Name)
	assert.Equal(t, "Information Technology", holdings[0].Sector)
	// Unhinted weight columns auto-detect percentage values
	assert.InDelta(t, 0.089, holdings[0].Weight, 1e-9)
}

func TestParseFailsWithoutSymbolColumn(t *testing.T) {
	source := isharesSource()
	source.Hints = models.ParseHints{SkipRows: 0}

	file := "Foo,Bar\n1,2\n"
	_, _, err := ParseHoldingsCSV(strings.NewReader(file), source)
	assert.Error(t, err)
}

func TestParseFailsOnShortFile(t *testing.T) {
	_, _, err := ParseHoldingsCSV(strings.NewReader("only one line"), isharesSource())
	assert.Error(t, err)
}

func TestInferSector(t *testing.T) {
	tests := []struct {
		name string
		want string
	}{
		{"Acme Software Corp", "Technology"},
		{"First National Bank", "Financials"},
		{"Sunrise Oil & Gas", "Energy"},
		{"Pinnacle Real Estate REIT", "Real Estate"},
		{"Plain Widgets Co", "Industrials"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, inferSector(tt.name), tt.name)
	}
}

func TestNormalizeWeight(t *testing.T) {
	assert.InDelta(t, 0.0725, normalizeWeight("7.25", true), 1e-9)
	assert.InDelta(t, 0.0095, normalizeWeight("0.95", true), 1e-9)
	assert.InDelta(t, 0.0125, normalizeWeight("1.25%", false), 1e-9)
	assert.InDelta(t, 0.5, normalizeWeight("0.5", false), 1e-9)
	assert.InDelta(t, 0.125, normalizeWeight("12.5%", true), 1e-9)
	assert.Equal(t, 0.0, normalizeWeight("", true))
	assert.Equal(t, 0.0, normalizeWeight("-", true))
	assert.Equal(t, 0.0, normalizeWeight("nan", true))
	assert.Equal(t, 0.0, normalizeWeight("-3.2", true))
	assert.Equal(t, 0.0, normalizeWeight("abc", true))
}
