package models

import (
	"fmt"
	"strings"
)

// Holdings file formats served by ETF providers.
const (
	SourceFormatCSV  = "csv"
	SourceFormatXLSX = "xlsx"
)

// ParseHints describes the layout quirks of one provider's holdings file.
type ParseHints struct {
	SkipRows     int    `yaml:"skip_rows" json:"skip_rows"`         // metadata lines before the header row
	SymbolColumn string `yaml:"symbol_column" json:"symbol_column"` // e.g. "Ticker" or "Holding Ticker"
	NameColumn   string `yaml:"name_column" json:"name_column"`
	SectorColumn string `yaml:"sector_column" json:"sector_column"`
	WeightColumn string `yaml:"weight_column" json:"weight_column"` // e.g. "Weight (%)"
}

// HoldingsSource is one entry in the provider catalogue.
type HoldingsSource struct {
	Ticker     string     `yaml:"ticker" json:"ticker"`
	Name       string     `yaml:"name" json:"name"` // full fund name, e.g. "SPDR S&P 500 ETF"
	URL        string     `yaml:"url" json:"url"`
	Format     string     `yaml:"format" json:"format"`
	FundFamily string     `yaml:"fund_family" json:"fund_family"`
	Hints      ParseHints `yaml:"hints" json:"hints"`
}

// Validate checks that a catalogue entry is usable.
func (s *HoldingsSource) Validate() error {
	if strings.TrimSpace(s.Ticker) == "" {
		return fmt.Errorf("source ticker is required")
	}
	if strings.TrimSpace(s.URL) == "" {
		return fmt.Errorf("source URL is required for %s", s.Ticker)
	}
	switch s.Format {
	case SourceFormatCSV, SourceFormatXLSX:
	default:
		return fmt.Errorf("unsupported format %q for %s", s.Format, s.Ticker)
	}
	return nil
}

// Holding is one parsed row from a provider holdings file, weight in [0,1].
type Holding struct {
	Symbol string  `json:"symbol"`
	Name   string  `json:"name"`
	Sector string  `json:"sector"`
	Weight float64 `json:"weight"`
}
