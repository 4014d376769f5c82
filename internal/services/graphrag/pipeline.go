package graphrag

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/quanta/internal/common"
	"github.com/ternarybob/quanta/internal/interfaces"
	"github.com/ternarybob/quanta/internal/models"
)

const errorResponseAnswer = "Sorry, I encountered an error processing your query. Please try rephrasing your question or check that you're using valid ETF tickers and company symbols."

// Pipeline wires the staged query flow: preprocess, ground, classify,
// fulfil, execute, synthesise, assemble. It degrades instead of failing:
// incomplete parameters yield a hint, graph misses fall back to the
// comprehensive dataset, and any stage error yields an apology envelope.
type Pipeline struct {
	graph        interfaces.GraphService
	preprocessor *Preprocessor
	grounder     *EntityGrounder
	classifier   *IntentClassifier
	fulfiller    *ParameterFulfiller
	executor     *CypherExecutor
	synthesizer  *Synthesizer

	confidenceThreshold float64
	maxTopN             int

	comprehensiveCache *ttlCache[*models.QueryResult]
	responseCache      *ttlCache[models.Response]

	logger arbor.ILogger
}

// NewPipeline assembles the pipeline from its dependencies and cache settings.
func NewPipeline(graph interfaces.GraphService, llm interfaces.LLMService, cfg *common.PipelineConfig, logger arbor.ILogger) *Pipeline {
	return &Pipeline{
		graph:        graph,
		preprocessor: NewPreprocessor(logger),
		grounder:     NewEntityGrounder(graph, logger),
		classifier: NewIntentClassifier(llm,
			common.Duration(cfg.ClassificationCacheTTL, time.Hour), cfg.ClassificationCacheSize, logger),
		fulfiller:   NewParameterFulfiller(cfg.DefaultThreshold, cfg.DefaultTopN, cfg.MaxTopN, logger),
		executor:    NewCypherExecutor(graph, logger),
		synthesizer: NewSynthesizer(llm, cfg.SynthesisMode, logger),

		confidenceThreshold: cfg.ConfidenceThreshold,
		maxTopN:             cfg.MaxTopN,

		comprehensiveCache: newTTLCache[*models.QueryResult](common.Duration(cfg.ComprehensiveCacheTTL, 10*time.Hour), 1),
		responseCache:      newTTLCache[models.Response](common.Duration(cfg.ResponseCacheTTL, 5*time.Hour), cfg.ResponseCacheSize),

		logger: logger,
	}
}

var _ interfaces.PipelineService = (*Pipeline)(nil)

// Answer runs the full pipeline. It always returns an envelope; failures
// surface as an error-intent response rather than an error value.
func (p *Pipeline) Answer(ctx context.Context, query string) *models.Response {
	start := time.Now()
	timings := map[string]int64{}
	requestID := common.NewRequestID()

	p.logger.Info().Str("request_id", requestID).Str("query", truncate(query, 100)).Msg("Starting query pipeline")

	// Stage 1: preprocessing.
	stageStart := time.Now()
	pre := p.preprocessor.Process(query)
	timings["preprocessing"] = time.Since(stageStart).Milliseconds()

	// Stage 2: entity grounding.
	stageStart = time.Now()
	entities, err := p.grounder.Ground(ctx, pre)
	if err != nil {
		p.logger.Error().Err(err).Str("request_id", requestID).Msg("Entity grounding failed")
		return p.errorResponse(query, requestID, start)
	}
	timings["entity_grounding"] = time.Since(stageStart).Milliseconds()

	// Stage 3: intent classification.
	stageStart = time.Now()
	intent := p.classifier.Classify(ctx, query, entities)
	timings["intent_classification"] = time.Since(stageStart).Milliseconds()

	// Stage 4: parameter fulfilment.
	stageStart = time.Now()
	params := p.fulfiller.Fulfill(intent.Intent, entities)
	timings["parameter_fulfillment"] = time.Since(stageStart).Milliseconds()

	// The cache key is computed after classification so the same words
	// grounded or classified differently never collide.
	cacheKey := responseCacheKey(query, intent.Intent, entities, params.Parameters)
	if cached, ok := p.responseCache.Get(cacheKey); ok {
		cached.Metadata.CacheHit = true
		p.logger.Info().Str("request_id", requestID).Str("intent", intent.Intent).Msg("Using cached response")
		return &cached
	}

	// A confidently classified query that lacks required parameters gets a
	// targeted prompt instead of a shrug to the comprehensive dataset.
	if intent.Intent != models.IntentGeneralLLM && intent.Confidence > p.confidenceThreshold && !params.IsComplete {
		return p.missingParamsResponse(query, requestID, intent, entities, params, timings, start)
	}

	// Stage 5: execution.
	stageStart = time.Now()
	result, execErr := p.execute(ctx, intent, params)
	if execErr != nil {
		p.logger.Error().Err(execErr).Str("request_id", requestID).Msg("Query execution failed")
		return p.errorResponse(query, requestID, start)
	}
	timings["cypher_execution"] = time.Since(stageStart).Milliseconds()

	// Stage 6: synthesis.
	stageStart = time.Now()
	var answer string
	if result.IsFallback {
		answer = p.synthesizer.SynthesizeComprehensive(ctx, query, result, intent, entities)
	} else {
		answer = p.synthesizer.Synthesize(ctx, query, result, intent)
	}
	timings["llm_synthesis"] = time.Since(stageStart).Milliseconds()

	// Stage 7: assembly.
	totalMs := time.Since(start).Milliseconds()
	timings["total_pipeline"] = totalMs

	rows := result.Rows
	if rows == nil {
		rows = []map[string]interface{}{}
	}

	response := &models.Response{
		Query:  query,
		Answer: answer,
		Rows:   rows,
		Metadata: models.ResponseMetadata{
			RequestID:       requestID,
			Intent:          intent.Intent,
			Confidence:      intent.Confidence,
			Entities:        entities,
			Source:          string(intent.Source),
			CacheHit:        false,
			IsFallback:      result.IsFallback,
			NodeCount:       result.NodeCount,
			EdgeCount:       result.EdgeCount,
			RowCount:        len(rows),
			QueryText:       result.QueryText,
			ExecutionTimeMs: result.ExecutionTimeMs,
			StageTimingsMs:  timings,
			TotalMs:         totalMs,
			PipelineVersion: models.PipelineVersion,
		},
	}

	p.cacheResponse(ctx, cacheKey, response)

	p.logger.Info().
		Str("request_id", requestID).
		Str("intent", intent.Intent).
		Int64("total_ms", totalMs).
		Int("result_count", len(result.Rows)).
		Bool("used_fallback", result.IsFallback).
		Float64("confidence", intent.Confidence).
		Msg("Query pipeline completed")

	return response
}

// execute picks the data strategy: a general question skips the graph, a
// complete confident classification runs its template, and everything else
// (including template errors and empty results) uses the comprehensive set.
func (p *Pipeline) execute(ctx context.Context, intent models.IntentResult, params models.ParamFulfillment) (*models.QueryResult, error) {
	if intent.Intent == models.IntentGeneralLLM {
		return &models.QueryResult{Intent: models.IntentGeneralLLM, Rows: []map[string]interface{}{}}, nil
	}

	if params.IsComplete && intent.Confidence > p.confidenceThreshold {
		sanitized := common.SanitizeParameters(params.Parameters, p.maxTopN)
		specific, err := p.executor.Execute(ctx, intent.Intent, sanitized)
		if err != nil {
			p.logger.Warn().Err(err).Str("intent", intent.Intent).Msg("Specific query failed, falling back to comprehensive data")
		} else if len(specific.Rows) > 0 {
			return specific, nil
		} else {
			p.logger.Info().Str("intent", intent.Intent).Msg("Specific query returned no rows, falling back to comprehensive data")
		}
	}

	comprehensive, err := p.comprehensiveData(ctx)
	if err != nil {
		return nil, err
	}
	return comprehensive, nil
}

// comprehensiveData returns the full-catalogue dataset, cached for hours
// because it only changes when holdings are reloaded.
func (p *Pipeline) comprehensiveData(ctx context.Context) (*models.QueryResult, error) {
	if cached, ok := p.comprehensiveCache.Get("comprehensive"); ok {
		p.logger.Debug().Msg("Using cached comprehensive data")
		fallback := *cached
		fallback.IsFallback = true
		return &fallback, nil
	}

	result, err := p.executor.Execute(ctx, models.IntentComprehensive, map[string]interface{}{})
	if err != nil {
		return nil, fmt.Errorf("comprehensive data fetch: %w", err)
	}
	p.comprehensiveCache.Put("comprehensive", result)
	p.logger.Info().Int("rows_count", len(result.Rows)).Msg("Cached comprehensive data")

	fallback := *result
	fallback.IsFallback = true
	return &fallback, nil
}

// Classify runs the first four stages and reports the outcome.
func (p *Pipeline) Classify(ctx context.Context, query string) (*models.ClassificationReport, error) {
	pre := p.preprocessor.Process(query)

	entities, err := p.grounder.Ground(ctx, pre)
	if err != nil {
		return nil, err
	}

	intent := p.classifier.Classify(ctx, query, entities)
	params := p.fulfiller.Fulfill(intent.Intent, entities)

	required := []string{}
	if tmpl, err := GetTemplate(intent.Intent); err == nil {
		required = tmpl.RequiredParams
	}

	return &models.ClassificationReport{
		Query:          query,
		Intent:         intent.Intent,
		Confidence:     intent.Confidence,
		Source:         intent.Source,
		Entities:       entities,
		Parameters:     params.Parameters,
		RequiredParams: required,
		MissingParams:  params.MissingParams,
		IsComplete:     params.IsComplete,
	}, nil
}

const subgraphQuery = `
	MATCH (e:ETF {ticker: $ticker})-[h:HOLDS]->(c:Company)-[:IN_SECTOR]->(s:Sector)
	WHERE h.weight >= $threshold
	RETURN e, h, c, s
	ORDER BY h.weight DESC
	LIMIT $top_n
`

// Subgraph returns the top holdings of one ETF in renderable form. Node IDs
// are namespaced ("ETF:SPY", "Company:AAPL", "Sector:Technology") so shared
// companies and sectors deduplicate.
func (p *Pipeline) Subgraph(ctx context.Context, ticker string, topN int, minWeight float64) (*models.Subgraph, error) {
	validTicker, err := common.ValidateTicker(ticker)
	if err != nil {
		return nil, err
	}
	if topN < 1 {
		topN = 1
	}
	if topN > p.maxTopN {
		topN = p.maxTopN
	}
	if minWeight < 0 {
		minWeight = 0
	}
	if minWeight > 1 {
		minWeight = 1
	}

	rows, err := p.graph.ExecuteRead(ctx, subgraphQuery, map[string]interface{}{
		"ticker":    validTicker,
		"threshold": minWeight,
		"top_n":     topN,
	})
	if err != nil {
		return nil, fmt.Errorf("subgraph query for %s: %w", validTicker, err)
	}

	nodes, edges := convertToRenderableGraph(rows)

	return &models.Subgraph{
		Ticker:    validTicker,
		Nodes:     nodes,
		Edges:     edges,
		NodeCount: len(nodes),
		EdgeCount: len(edges),
	}, nil
}

func convertToRenderableGraph(rows []map[string]interface{}) ([]models.GraphNode, []models.GraphEdge) {
	nodes := []models.GraphNode{}
	edges := []models.GraphEdge{}
	seenNodes := map[string]struct{}{}
	seenEdges := map[string]struct{}{}

	addNode := func(id, label, typ string, props map[string]interface{}) {
		if _, ok := seenNodes[id]; ok {
			return
		}
		seenNodes[id] = struct{}{}
		nodes = append(nodes, models.GraphNode{ID: id, Label: label, Type: typ, Properties: props})
	}
	addEdge := func(id, source, target, typ string, props map[string]interface{}) {
		if _, ok := seenEdges[id]; ok {
			return
		}
		seenEdges[id] = struct{}{}
		edges = append(edges, models.GraphEdge{ID: id, Source: source, Target: target, Type: typ, Properties: props})
	}

	for _, row := range rows {
		etf := propsOf(row["e"])
		company := propsOf(row["c"])
		sector := propsOf(row["s"])
		holds := propsOf(row["h"])

		etfID := fmt.Sprintf("ETF:%v", etf["ticker"])
		companyID := fmt.Sprintf("Company:%v", company["symbol"])
		sectorID := fmt.Sprintf("Sector:%v", sector["name"])

		addNode(etfID, strOr(etf["ticker"], "ETF"), "ETF", etf)
		addNode(companyID, strOr(company["symbol"], "Company"), "Company", company)
		addNode(sectorID, strOr(sector["name"], "Sector"), "Sector", sector)

		addEdge(fmt.Sprintf("holds:%s:%s", etfID, companyID), etfID, companyID, "HOLDS", holds)
		addEdge(fmt.Sprintf("in_sector:%s:%s", companyID, sectorID), companyID, sectorID, "IN_SECTOR", nil)
	}

	return nodes, edges
}

// ClearCaches drops all three pipeline caches.
func (p *Pipeline) ClearCaches() {
	p.classifier.ClearCache()
	p.comprehensiveCache.Clear()
	cleared := p.responseCache.Len()
	p.responseCache.Clear()
	p.logger.Info().Int("previous_size", cleared).Msg("Pipeline caches cleared")
}

// CacheStats reports entry counts per cache.
func (p *Pipeline) CacheStats() map[string]int {
	return map[string]int{
		"classification": p.classifier.CacheLen(),
		"comprehensive":  p.comprehensiveCache.Len(),
		"response":       p.responseCache.Len(),
	}
}

func (p *Pipeline) cacheResponse(ctx context.Context, key string, response *models.Response) {
	// Error envelopes, empty answers and parameter prompts are transient;
	// a cancelled context may also have produced a partial answer.
	if response.Metadata.Intent == models.IntentError ||
		response.Answer == "" ||
		strings.HasPrefix(response.Answer, "To complete your query") ||
		ctx.Err() != nil {
		return
	}
	p.responseCache.Put(key, *response)
}

func (p *Pipeline) missingParamsResponse(query, requestID string, intent models.IntentResult, entities []models.GroundedEntity, params models.ParamFulfillment, timings map[string]int64, start time.Time) *models.Response {
	totalMs := time.Since(start).Milliseconds()
	timings["total_pipeline"] = totalMs

	return &models.Response{
		Query:  query,
		Answer: missingParamsMessage(params.MissingParams),
		Rows:   []map[string]interface{}{},
		Metadata: models.ResponseMetadata{
			RequestID:       requestID,
			Intent:          intent.Intent,
			Confidence:      intent.Confidence,
			Entities:        entities,
			Source:          string(intent.Source),
			StageTimingsMs:  timings,
			TotalMs:         totalMs,
			PipelineVersion: models.PipelineVersion,
		},
	}
}

func (p *Pipeline) errorResponse(query, requestID string, start time.Time) *models.Response {
	totalMs := time.Since(start).Milliseconds()
	return &models.Response{
		Query:  query,
		Answer: errorResponseAnswer,
		Rows:   []map[string]interface{}{},
		Metadata: models.ResponseMetadata{
			RequestID:       requestID,
			Intent:          models.IntentError,
			Confidence:      0,
			StageTimingsMs:  map[string]int64{"total_pipeline": totalMs},
			TotalMs:         totalMs,
			PipelineVersion: models.PipelineVersion,
		},
	}
}

var paramHints = map[string]string{
	"ticker":    "Please specify an ETF ticker (SPY, QQQ, IWM, IJH, IVE, IVW)",
	"ticker1":   "Please specify the first ETF ticker",
	"ticker2":   "Please specify the second ETF ticker for comparison",
	"symbol":    "Please specify a company ticker symbol (e.g., AAPL, MSFT, GOOGL)",
	"sector":    "Please specify a sector name (e.g., Technology, Healthcare, Financials)",
	"threshold": "Please specify a percentage threshold (e.g., 5%, 10%)",
	"top_n":     "Please specify how many top holdings to show",
}

func missingParamsMessage(missing []string) string {
	hints := make([]string, 0, len(missing))
	for _, param := range missing {
		if hint, ok := paramHints[param]; ok {
			hints = append(hints, hint)
		} else {
			hints = append(hints, "Please provide "+param)
		}
	}
	if len(hints) == 1 {
		return fmt.Sprintf("To complete your query, I need additional information: %s.", hints[0])
	}
	return fmt.Sprintf("To complete your query, I need additional information: %s, and %s.",
		strings.Join(hints[:len(hints)-1], ", "), hints[len(hints)-1])
}

// responseCacheKey includes the intent, entity signature and parameters so
// identical wording with different grounding never shares an answer.
func responseCacheKey(query, intent string, entities []models.GroundedEntity, params map[string]interface{}) string {
	normalized := strings.ToLower(strings.TrimSpace(query))

	signature := make([]string, 0, len(entities))
	for _, e := range entities {
		signature = append(signature, string(e.Type)+":"+e.Name)
	}
	sort.Strings(signature)

	paramKeys := make([]string, 0, len(params))
	for k := range params {
		paramKeys = append(paramKeys, k)
	}
	sort.Strings(paramKeys)
	paramSig := make([]string, 0, len(paramKeys))
	for _, k := range paramKeys {
		paramSig = append(paramSig, fmt.Sprintf("%s=%v", k, params[k]))
	}

	input := fmt.Sprintf("query:%s|intent:%s|entities:%s|params:%s",
		normalized, intent, strings.Join(signature, "|"), strings.Join(paramSig, "|"))
	sum := md5.Sum([]byte(input))
	return hex.EncodeToString(sum[:])
}
