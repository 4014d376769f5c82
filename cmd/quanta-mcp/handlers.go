package main

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/quanta/internal/common"
	"github.com/ternarybob/quanta/internal/interfaces"
)

// handleAskQuestion implements the ask_question tool
func handleAskQuestion(pipeline interfaces.PipelineService, logger arbor.ILogger) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		question, err := request.RequireString("question")
		if err != nil || question == "" {
			return &mcp.CallToolResult{
				Content: []mcp.Content{
					mcp.NewTextContent("Error: question parameter is required"),
				},
			}, nil
		}

		response := pipeline.Answer(ctx, question)

		return &mcp.CallToolResult{
			Content: []mcp.Content{
				mcp.NewTextContent(formatAnswer(response)),
			},
		}, nil
	}
}

// handleClassifyQuestion implements the classify_question tool
func handleClassifyQuestion(pipeline interfaces.PipelineService, logger arbor.ILogger) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		question, err := request.RequireString("question")
		if err != nil || question == "" {
			return &mcp.CallToolResult{
				Content: []mcp.Content{
					mcp.NewTextContent("Error: question parameter is required"),
				},
			}, nil
		}

		report, err := pipeline.Classify(ctx, question)
		if err != nil {
			logger.Error().Err(err).Msg("Classification failed")
			return &mcp.CallToolResult{
				Content: []mcp.Content{
					mcp.NewTextContent(fmt.Sprintf("Classification error: %v", err)),
				},
			}, nil
		}

		return &mcp.CallToolResult{
			Content: []mcp.Content{
				mcp.NewTextContent(formatClassification(report)),
			},
		}, nil
	}
}

// handleGetSubgraph implements the get_subgraph tool
func handleGetSubgraph(pipeline interfaces.PipelineService, logger arbor.ILogger) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		rawTicker, err := request.RequireString("ticker")
		if err != nil || rawTicker == "" {
			return &mcp.CallToolResult{
				Content: []mcp.Content{
					mcp.NewTextContent("Error: ticker parameter is required"),
				},
			}, nil
		}

		ticker, err := common.ValidateTicker(rawTicker)
		if err != nil {
			return &mcp.CallToolResult{
				Content: []mcp.Content{
					mcp.NewTextContent(fmt.Sprintf("Error: %v", err)),
				},
			}, nil
		}

		topN := request.GetInt("top_n", 10)
		if topN < 1 {
			topN = 1
		}
		if topN > 50 {
			topN = 50
		}
		minWeight := request.GetFloat("min_weight", 0)

		subgraph, err := pipeline.Subgraph(ctx, ticker, topN, minWeight)
		if err != nil {
			logger.Error().Err(err).Str("ticker", ticker).Msg("Subgraph query failed")
			return &mcp.CallToolResult{
				Content: []mcp.Content{
					mcp.NewTextContent(fmt.Sprintf("Subgraph error: %v", err)),
				},
			}, nil
		}

		return &mcp.CallToolResult{
			Content: []mcp.Content{
				mcp.NewTextContent(formatSubgraph(subgraph)),
			},
		}, nil
	}
}
