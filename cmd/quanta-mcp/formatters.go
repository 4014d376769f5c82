package main

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/ternarybob/quanta/internal/models"
)

// formatAnswer formats a pipeline response as markdown
func formatAnswer(response *models.Response) string {
	var sb strings.Builder
	sb.WriteString(response.Answer)
	sb.WriteString("\n\n---\n")
	sb.WriteString(fmt.Sprintf("**Intent:** %s (confidence %.2f)\n", response.Metadata.Intent, response.Metadata.Confidence))
	if response.Metadata.CacheHit {
		sb.WriteString("**Served from cache**\n")
	}
	if response.Metadata.IsFallback {
		sb.WriteString("**Answered via comprehensive fallback**\n")
	}
	sb.WriteString(fmt.Sprintf("**Total:** %d ms\n", response.Metadata.TotalMs))
	return sb.String()
}

// formatClassification formats a classification report as markdown with the
// raw report attached as JSON
func formatClassification(report *models.ClassificationReport) string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("## Classification: %s\n\n", report.Intent))
	sb.WriteString(fmt.Sprintf("**Confidence:** %.2f (%s)\n", report.Confidence, report.Source))
	if len(report.MissingParams) > 0 {
		sb.WriteString(fmt.Sprintf("**Missing parameters:** %s\n", strings.Join(report.MissingParams, ", ")))
	} else {
		sb.WriteString("**Ready to execute**\n")
	}

	raw, err := json.MarshalIndent(report, "", "  ")
	if err == nil {
		sb.WriteString("\n```json\n")
		sb.Write(raw)
		sb.WriteString("\n```\n")
	}
	return sb.String()
}

// formatSubgraph formats a subgraph as a markdown holdings table
func formatSubgraph(subgraph *models.Subgraph) string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("## %s holdings graph (%d nodes, %d edges)\n\n", subgraph.Ticker, subgraph.NodeCount, subgraph.EdgeCount))

	sb.WriteString("### Nodes\n")
	for _, node := range subgraph.Nodes {
		sb.WriteString(fmt.Sprintf("- `%s` (%s)\n", node.ID, node.Type))
	}

	sb.WriteString("\n### Edges\n")
	for _, edge := range subgraph.Edges {
		if weight, ok := edge.Properties["weight"]; ok {
			sb.WriteString(fmt.Sprintf("- %s -> %s (%s, weight %v)\n", edge.Source, edge.Target, edge.Type, weight))
		} else {
			sb.WriteString(fmt.Sprintf("- %s -> %s (%s)\n", edge.Source, edge.Target, edge.Type))
		}
	}

	return sb.String()
}
