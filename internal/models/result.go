package models

// ParamFulfillment maps grounded entities onto a template's parameter slots
// and reports which required slots are still empty.
type ParamFulfillment struct {
	Intent        string                 `json:"intent"`
	Parameters    map[string]interface{} `json:"parameters"`
	MissingParams []string               `json:"missing_params"`
	IsComplete    bool                   `json:"is_complete"`
}

// QueryResult is the outcome of executing a Cypher template. QueryText and
// Parameters record exactly what ran so the envelope can surface it.
type QueryResult struct {
	Intent          string                   `json:"intent"`
	Rows            []map[string]interface{} `json:"rows"`
	QueryText       string                   `json:"query_text"`
	Parameters      map[string]interface{}   `json:"parameters,omitempty"`
	ExecutionTimeMs int64                    `json:"execution_time_ms"`
	NodeCount       int                      `json:"node_count"`
	EdgeCount       int                      `json:"edge_count"`
	IsFallback      bool                     `json:"is_fallback"`
}
