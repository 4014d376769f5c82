package main

import (
	"context"
	"fmt"
	"os"

	"github.com/mark3labs/mcp-go/server"
	"github.com/ternarybob/arbor"
	arbor_models "github.com/ternarybob/arbor/models"
	"github.com/ternarybob/quanta/internal/common"
	"github.com/ternarybob/quanta/internal/services/graph"
	"github.com/ternarybob/quanta/internal/services/graphrag"
	"github.com/ternarybob/quanta/internal/services/llm"
)

func main() {
	// Load configuration
	configPath := os.Getenv("QUANTA_CONFIG")
	if configPath == "" {
		configPath = "quanta.toml"
	}

	config, err := common.LoadFromFile(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Initialize minimal logger for MCP server (console only, no file output)
	logger := arbor.NewLogger().WithConsoleWriter(arbor_models.WriterConfiguration{
		Type:             arbor_models.LogWriterTypeConsole,
		TimeFormat:       "15:04:05",
		DisableTimestamp: false,
	}).WithLevelFromString("warn") // Minimal logging to avoid cluttering MCP stdio

	ctx := context.Background()

	// Connect to the graph
	graphService, err := graph.NewNeo4jService(ctx, &config.Graph, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to connect to graph")
	}
	defer graphService.Close(context.Background())

	// Initialize the LLM provider. The stdio server skips the embedded
	// audit store so it can run next to the HTTP server without
	// contending for the Badger directory lock.
	llmService, err := llm.NewLLMService(ctx, &config.LLM, nil, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to initialize LLM service")
	}
	defer llmService.Close()

	pipeline := graphrag.NewPipeline(graphService, llmService, &config.Pipeline, logger)

	// Create MCP server
	mcpServer := server.NewMCPServer(
		"quanta",
		common.GetVersion(),
		server.WithToolCapabilities(true),
	)

	// Register query tools
	mcpServer.AddTool(createAskQuestionTool(), handleAskQuestion(pipeline, logger))
	mcpServer.AddTool(createClassifyQuestionTool(), handleClassifyQuestion(pipeline, logger))
	mcpServer.AddTool(createGetSubgraphTool(), handleGetSubgraph(pipeline, logger))

	// Start server (blocks on stdio)
	if err := server.ServeStdio(mcpServer); err != nil {
		logger.Fatal().Err(err).Msg("MCP server failed")
	}
}
