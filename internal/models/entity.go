package models

// EntityType identifies the kind of graph entity a query token was grounded to.
type EntityType string

const (
	EntityETF     EntityType = "ETF"
	EntityCompany EntityType = "Company"
	EntitySector  EntityType = "Sector"
	EntityPercent EntityType = "Percent"
	EntityCount   EntityType = "Count"
)

// GroundedEntity is a query token resolved against the graph (or extracted
// numerically) with a confidence score. Properties carries the matched node's
// flattened properties, or the parsed value for numeric entities.
type GroundedEntity struct {
	Type       EntityType             `json:"type"`
	Name       string                 `json:"name"`
	Confidence float64                `json:"confidence"`
	Properties map[string]interface{} `json:"properties,omitempty"`
}

// ExtractedNumbers holds the numeric values pulled out of a raw query before
// grounding. Percentages and thresholds are normalized to 0..1 fractions.
type ExtractedNumbers struct {
	Percentages []float64 `json:"percentages,omitempty"`
	Decimals    []float64 `json:"decimals,omitempty"`
	Counts      []int     `json:"counts,omitempty"`
	Thresholds  []float64 `json:"thresholds,omitempty"`
}

// PreprocessResult is the output of the query preprocessing stage.
type PreprocessResult struct {
	Original   string           `json:"original"`
	Normalized string           `json:"normalized"`
	Tokens     []string         `json:"tokens"`
	Tickers    []string         `json:"tickers"`
	Numbers    ExtractedNumbers `json:"numbers"`
}
