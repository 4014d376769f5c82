package main

import (
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/ternarybob/quanta/internal/common"
)

// createAskQuestionTool returns the ask_question tool definition
func createAskQuestionTool() mcp.Tool {
	return mcp.NewTool("ask_question",
		mcp.WithDescription("Answer a natural language question about ETF holdings, overlaps and sector exposure using the knowledge graph"),
		mcp.WithString("question",
			mcp.Required(),
			mcp.Description("Question in plain English, e.g. 'What is SPY's exposure to AAPL?'"),
		),
	)
}

// createClassifyQuestionTool returns the classify_question tool definition
func createClassifyQuestionTool() mcp.Tool {
	return mcp.NewTool("classify_question",
		mcp.WithDescription("Classify a question into a query intent and extract its parameters without executing it"),
		mcp.WithString("question",
			mcp.Required(),
			mcp.Description("Question to classify"),
		),
	)
}

// createGetSubgraphTool returns the get_subgraph tool definition
func createGetSubgraphTool() mcp.Tool {
	return mcp.NewTool("get_subgraph",
		mcp.WithDescription("Return the top holdings of one ETF as a graph of nodes and weighted edges"),
		mcp.WithString("ticker",
			mcp.Required(),
			mcp.Description("ETF ticker, one of: "+strings.Join(common.AllowedTickers, ", ")),
		),
		mcp.WithNumber("top_n",
			mcp.Description("Number of holdings to include (default: 10, max: 50)"),
		),
		mcp.WithNumber("min_weight",
			mcp.Description("Minimum holding weight as a fraction, 0-1 (default: 0)"),
		),
	)
}
