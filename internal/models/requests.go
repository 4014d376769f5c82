package models

// AskRequest is the body of POST /api/ask.
type AskRequest struct {
	Query string `json:"query" validate:"required,min=3,max=512"`
}

// ClassifyRequest is the body of POST /api/classify.
type ClassifyRequest struct {
	Query string `json:"query" validate:"required,min=3,max=512"`
}

// SubgraphRequest carries the parsed query parameters of GET /api/graph/subgraph.
type SubgraphRequest struct {
	Ticker    string  `json:"ticker" validate:"required,oneof=SPY QQQ IWM IJH IVE IVW"`
	TopN      int     `json:"top_n" validate:"min=1,max=50"`
	MinWeight float64 `json:"min_weight" validate:"min=0,max=1"`
}

// IngestRequest is the body of POST /api/ingest. An empty ticker
// list refreshes every catalogued ETF.
type IngestRequest struct {
	Tickers []string `json:"tickers,omitempty" validate:"omitempty,dive,min=2,max=5,uppercase"`
	Force   bool     `json:"force,omitempty"`
}
