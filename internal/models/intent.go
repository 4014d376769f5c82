package models

// Intent keys understood by the query pipeline. Every key maps to a single
// read-only Cypher template in the catalogue, except IntentGeneralLLM which
// bypasses the graph entirely.
const (
	IntentETFExposure          = "etf_exposure_to_company"
	IntentOverlapWeighted      = "etf_overlap_weighted"
	IntentOverlapJaccard       = "etf_overlap_jaccard"
	IntentSectorExposure       = "sector_exposure"
	IntentETFsBySectorThreshold = "etfs_by_sector_threshold"
	IntentTopHoldingsSubgraph  = "top_holdings_subgraph"
	IntentCompanyRankings      = "company_rankings"
	IntentGeneralLLM           = "general_llm"
	IntentComprehensive        = "comprehensive_data"

	// IntentError marks an assembled error response; it is never classified.
	IntentError = "error"
)

// ClassificationSource records how an intent was determined.
type ClassificationSource string

const (
	SourceLLM   ClassificationSource = "llm"
	SourceRules ClassificationSource = "rules"
	SourceCache ClassificationSource = "cache"
)

// IntentResult is the outcome of the classification stage.
type IntentResult struct {
	Intent     string               `json:"intent"`
	Confidence float64              `json:"confidence"`
	Source     ClassificationSource `json:"source"`
}

// ClassificationReport exposes the first four pipeline stages without
// executing anything, for the /classify endpoint and diagnostics.
type ClassificationReport struct {
	Query          string                 `json:"query"`
	Intent         string                 `json:"intent"`
	Confidence     float64                `json:"confidence"`
	Source         ClassificationSource   `json:"source"`
	Entities       []GroundedEntity       `json:"entities"`
	Parameters     map[string]interface{} `json:"parameters"`
	RequiredParams []string               `json:"required_params"`
	MissingParams  []string               `json:"missing_params"`
	IsComplete     bool                   `json:"is_complete"`
}
