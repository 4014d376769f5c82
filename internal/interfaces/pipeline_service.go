package interfaces

import (
	"context"

	"github.com/ternarybob/quanta/internal/models"
)

// PipelineService runs the staged question answering pipeline.
type PipelineService interface {
	// Answer runs the full pipeline for a raw user query and always returns
	// a response envelope; pipeline failures surface as an error-intent
	// envelope rather than an error return.
	Answer(ctx context.Context, query string) *models.Response

	// Classify runs only the preprocessing, grounding, classification and
	// fulfilment stages and reports the outcome without touching the graph
	// templates or the synthesizer.
	Classify(ctx context.Context, query string) (*models.ClassificationReport, error)

	// Subgraph returns the top holdings of one ETF as a renderable graph.
	Subgraph(ctx context.Context, ticker string, topN int, minWeight float64) (*models.Subgraph, error)

	// ClearCaches drops the classification, comprehensive and response caches.
	ClearCaches()

	// CacheStats reports entry counts per cache for the /api/cache endpoint.
	CacheStats() map[string]int
}
