package mcp

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/quanta/internal/interfaces"
	"github.com/ternarybob/quanta/internal/models"
)

type fakePipeline struct {
	answer      string
	report      *models.ClassificationReport
	subgraph    *models.Subgraph
	subgraphErr error

	lastQuery  string
	lastTicker string
	lastTopN   int
}

var _ interfaces.PipelineService = (*fakePipeline)(nil)

func (f *fakePipeline) Answer(ctx context.Context, query string) *models.Response {
	f.lastQuery = query
	return &models.Response{Query: query, Answer: f.answer}
}

func (f *fakePipeline) Classify(ctx context.Context, query string) (*models.ClassificationReport, error) {
	if f.report == nil {
		return nil, fmt.Errorf("no report")
	}
	return f.report, nil
}

func (f *fakePipeline) Subgraph(ctx context.Context, ticker string, topN int, minWeight float64) (*models.Subgraph, error) {
	f.lastTicker = ticker
	f.lastTopN = topN
	return f.subgraph, f.subgraphErr
}

func (f *fakePipeline) ClearCaches()              {}
func (f *fakePipeline) CacheStats() map[string]int { return map[string]int{} }

func testService(pipeline interfaces.PipelineService) *QueryService {
	return NewQueryService(pipeline, arbor.NewLogger())
}

func TestListTools(t *testing.T) {
	list, err := testService(&fakePipeline{}).ListTools(context.Background())
	require.NoError(t, err)
	require.Len(t, list.Tools, 3)

	names := []string{list.Tools[0].Name, list.Tools[1].Name, list.Tools[2].Name}
	assert.Equal(t, []string{ToolAskQuestion, ToolClassifyQuestion, ToolGetSubgraph}, names)
	for _, tool := range list.Tools {
		assert.NotEmpty(t, tool.Description)
		assert.Equal(t, "object", tool.InputSchema["type"])
	}
}

func TestCallAskQuestion(t *testing.T) {
	pipeline := &fakePipeline{answer: "SPY holds 7.25% in Apple Inc."}
	service := testService(pipeline)

	result, err := service.CallTool(context.Background(), ToolAskQuestion, map[string]interface{}{
		"question": "What is SPY's exposure to AAPL?",
	})
	require.NoError(t, err)
	assert.False(t, result.IsError)
	require.Len(t, result.Content, 1)
	assert.Equal(t, "SPY holds 7.25% in Apple Inc.", result.Content[0].Text)
	assert.Equal(t, "What is SPY's exposure to AAPL?", pipeline.lastQuery)
}

func TestCallAskQuestionRequiresQuestion(t *testing.T) {
	result, err := testService(&fakePipeline{}).CallTool(context.Background(), ToolAskQuestion, map[string]interface{}{})
	require.NoError(t, err)
	assert.True(t, result.IsError)
	assert.Contains(t, result.Content[0].Text, "question parameter is required")
}

func TestCallClassifyQuestion(t *testing.T) {
	pipeline := &fakePipeline{report: &models.ClassificationReport{
		Query:      "what is spy's exposure to aapl?",
		Intent:     "etf_exposure_to_company",
		Confidence: 0.95,
		IsComplete: true,
	}}

	result, err := testService(pipeline).CallTool(context.Background(), ToolClassifyQuestion, map[string]interface{}{
		"question": "What is SPY's exposure to AAPL?",
	})
	require.NoError(t, err)
	assert.False(t, result.IsError)
	assert.Contains(t, result.Content[0].Text, `"etf_exposure_to_company"`)
	assert.Contains(t, result.Content[0].Text, `"is_complete": true`)
}

func TestCallGetSubgraph(t *testing.T) {
	pipeline := &fakePipeline{subgraph: &models.Subgraph{
		Ticker:    "SPY",
		Nodes:     []models.GraphNode{{ID: "ETF:SPY", Label: "SPY", Type: "etf"}},
		NodeCount: 1,
	}}

	result, err := testService(pipeline).CallTool(context.Background(), ToolGetSubgraph, map[string]interface{}{
		"ticker": "SPY",
		"top_n":  float64(5),
	})
	require.NoError(t, err)
	assert.False(t, result.IsError)
	assert.Contains(t, result.Content[0].Text, `"ETF:SPY"`)
	assert.Equal(t, "SPY", pipeline.lastTicker)
	assert.Equal(t, 5, pipeline.lastTopN)
}

func TestCallGetSubgraphRejectsUnknownTicker(t *testing.T) {
	result, err := testService(&fakePipeline{}).CallTool(context.Background(), ToolGetSubgraph, map[string]interface{}{
		"ticker": "VTI",
	})
	require.NoError(t, err)
	assert.True(t, result.IsError)
}

func TestCallUnknownTool(t *testing.T) {
	_, err := testService(&fakePipeline{}).CallTool(context.Background(), "delete_everything", nil)
	assert.Error(t, err)
}
