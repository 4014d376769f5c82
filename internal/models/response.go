package models

// PipelineVersion is stamped into every response envelope.
const PipelineVersion = "1.0.0"

// ResponseMetadata describes how an answer was produced.
type ResponseMetadata struct {
	RequestID       string           `json:"request_id,omitempty"`
	Intent          string           `json:"intent"`
	Confidence      float64          `json:"confidence"`
	Entities        []GroundedEntity `json:"entities,omitempty"`
	Source          string           `json:"source,omitempty"`
	CacheHit        bool             `json:"cache_hit"`
	IsFallback      bool             `json:"is_fallback"`
	NodeCount       int              `json:"node_count"`
	EdgeCount       int              `json:"edge_count"`
	RowCount        int              `json:"row_count"`
	QueryText       string           `json:"query_text,omitempty"`
	ExecutionTimeMs int64            `json:"execution_time_ms,omitempty"`
	StageTimingsMs  map[string]int64 `json:"stage_timings_ms,omitempty"`
	TotalMs         int64            `json:"total_ms"`
	PipelineVersion string           `json:"pipeline_version"`
}

// Response is the envelope returned for every query, including missing
// parameter prompts and error apologies. Rows carries the structured data
// behind the answer and is always present, empty when nothing executed.
type Response struct {
	Query    string                   `json:"query"`
	Answer   string                   `json:"answer"`
	Rows     []map[string]interface{} `json:"rows"`
	Metadata ResponseMetadata         `json:"metadata"`
}
