package mcp

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/quanta/internal/common"
	"github.com/ternarybob/quanta/internal/interfaces"
)

// Tool names exposed over both the HTTP RPC endpoint and the stdio server.
const (
	ToolAskQuestion      = "ask_question"
	ToolClassifyQuestion = "classify_question"
	ToolGetSubgraph      = "get_subgraph"
)

// QueryService exposes the question pipeline as MCP tools
type QueryService struct {
	pipeline interfaces.PipelineService
	logger   arbor.ILogger
}

// NewQueryService creates a new QueryService instance
func NewQueryService(pipeline interfaces.PipelineService, logger arbor.ILogger) *QueryService {
	return &QueryService{
		pipeline: pipeline,
		logger:   logger,
	}
}

// ListTools returns the available MCP tools
func (s *QueryService) ListTools(ctx context.Context) (*ToolList, error) {
	return &ToolList{
		Tools: []Tool{
			{
				Name:        ToolAskQuestion,
				Description: "Answer a natural language question about ETF holdings, sector exposure, and fund overlap",
				InputSchema: map[string]interface{}{
					"type": "object",
					"properties": map[string]interface{}{
						"question": map[string]interface{}{
							"type":        "string",
							"description": "The question to answer, e.g. 'What is SPY's exposure to AAPL?'",
						},
					},
					"required": []string{"question"},
				},
			},
			{
				Name:        ToolClassifyQuestion,
				Description: "Classify a question into a query intent and report extracted entities and parameters without executing it",
				InputSchema: map[string]interface{}{
					"type": "object",
					"properties": map[string]interface{}{
						"question": map[string]interface{}{
							"type":        "string",
							"description": "The question to classify",
						},
					},
					"required": []string{"question"},
				},
			},
			{
				Name:        ToolGetSubgraph,
				Description: "Return the top holdings of one ETF as a renderable graph of ETF, company, and sector nodes",
				InputSchema: map[string]interface{}{
					"type": "object",
					"properties": map[string]interface{}{
						"ticker": map[string]interface{}{
							"type":        "string",
							"description": "ETF ticker: SPY, QQQ, IWM, IJH, IVE, or IVW",
						},
						"top_n": map[string]interface{}{
							"type":        "integer",
							"description": "Number of holdings to include (1-50, default 10)",
						},
						"min_weight": map[string]interface{}{
							"type":        "number",
							"description": "Minimum holding weight as a fraction (0-1, default 0)",
						},
					},
					"required": []string{"ticker"},
				},
			},
		},
	}, nil
}

// CallTool executes an MCP tool call
func (s *QueryService) CallTool(ctx context.Context, name string, args map[string]interface{}) (*ToolResult, error) {
	s.logger.Debug().Str("tool", name).Msg("MCP tool call")

	switch name {
	case ToolAskQuestion:
		return s.askQuestion(ctx, args)
	case ToolClassifyQuestion:
		return s.classifyQuestion(ctx, args)
	case ToolGetSubgraph:
		return s.getSubgraph(ctx, args)
	default:
		return nil, fmt.Errorf("unknown tool: %s", name)
	}
}

func (s *QueryService) askQuestion(ctx context.Context, args map[string]interface{}) (*ToolResult, error) {
	question, err := stringArg(args, "question")
	if err != nil {
		return errorResult(err.Error()), nil
	}

	response := s.pipeline.Answer(ctx, question)
	return textResult(response.Answer), nil
}

func (s *QueryService) classifyQuestion(ctx context.Context, args map[string]interface{}) (*ToolResult, error) {
	question, err := stringArg(args, "question")
	if err != nil {
		return errorResult(err.Error()), nil
	}

	report, err := s.pipeline.Classify(ctx, question)
	if err != nil {
		return errorResult(fmt.Sprintf("classification failed: %v", err)), nil
	}

	return jsonResult(report)
}

func (s *QueryService) getSubgraph(ctx context.Context, args map[string]interface{}) (*ToolResult, error) {
	ticker, err := stringArg(args, "ticker")
	if err != nil {
		return errorResult(err.Error()), nil
	}
	if _, err := common.ValidateTicker(ticker); err != nil {
		return errorResult(err.Error()), nil
	}

	topN := intArg(args, "top_n", 10)
	minWeight := floatArg(args, "min_weight", 0)

	subgraph, err := s.pipeline.Subgraph(ctx, ticker, topN, minWeight)
	if err != nil {
		return errorResult(fmt.Sprintf("subgraph query failed: %v", err)), nil
	}

	return jsonResult(subgraph)
}

func stringArg(args map[string]interface{}, key string) (string, error) {
	value, ok := args[key].(string)
	if !ok || value == "" {
		return "", fmt.Errorf("%s parameter is required", key)
	}
	return value, nil
}

// JSON numbers decode as float64, so integer args arrive that way
func intArg(args map[string]interface{}, key string, fallback int) int {
	switch v := args[key].(type) {
	case float64:
		return int(v)
	case int:
		return v
	default:
		return fallback
	}
}

func floatArg(args map[string]interface{}, key string, fallback float64) float64 {
	switch v := args[key].(type) {
	case float64:
		return v
	case int:
		return float64(v)
	default:
		return fallback
	}
}

func textResult(text string) *ToolResult {
	return &ToolResult{Content: []ContentBlock{{Type: "text", Text: text}}}
}

func errorResult(text string) *ToolResult {
	return &ToolResult{
		Content: []ContentBlock{{Type: "text", Text: text}},
		IsError: true,
	}
}

func jsonResult(value interface{}) (*ToolResult, error) {
	data, err := json.MarshalIndent(value, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to encode tool result: %w", err)
	}
	return textResult(string(data)), nil
}
