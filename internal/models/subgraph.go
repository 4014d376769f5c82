package models

// GraphNode is a visualization-ready node. IDs are namespaced by label,
// e.g. "ETF:SPY", "Company:AAPL", "Sector:Technology", so that the same
// company appearing under several ETFs deduplicates cleanly.
type GraphNode struct {
	ID         string                 `json:"id"`
	Label      string                 `json:"label"`
	Type       string                 `json:"type"`
	Properties map[string]interface{} `json:"properties,omitempty"`
}

// GraphEdge is a visualization-ready relationship between two GraphNodes.
type GraphEdge struct {
	ID         string                 `json:"id"`
	Source     string                 `json:"source"`
	Target     string                 `json:"target"`
	Type       string                 `json:"type"`
	Properties map[string]interface{} `json:"properties,omitempty"`
}

// Subgraph is the payload for the /graph/subgraph endpoint.
type Subgraph struct {
	Ticker    string      `json:"ticker"`
	Nodes     []GraphNode `json:"nodes"`
	Edges     []GraphEdge `json:"edges"`
	NodeCount int         `json:"node_count"`
	EdgeCount int         `json:"edge_count"`
}
