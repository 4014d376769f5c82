package graphrag

import (
	"context"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/quanta/internal/interfaces"
)

func testLogger() arbor.ILogger {
	return arbor.NewLogger()
}

// fakeGraph scripts ExecuteRead per call and records every query it saw.
type fakeGraph struct {
	readFn  func(ctx context.Context, query string, params map[string]interface{}) ([]map[string]interface{}, error)
	queries []string
	params  []map[string]interface{}
}

func (g *fakeGraph) ExecuteRead(ctx context.Context, query string, params map[string]interface{}) ([]map[string]interface{}, error) {
	g.queries = append(g.queries, query)
	g.params = append(g.params, params)
	if g.readFn == nil {
		return nil, nil
	}
	return g.readFn(ctx, query, params)
}

func (g *fakeGraph) ExecuteWrite(ctx context.Context, query string, params map[string]interface{}) error {
	return nil
}

func (g *fakeGraph) HealthCheck(ctx context.Context) error { return nil }
func (g *fakeGraph) Close(ctx context.Context) error       { return nil }

var _ interfaces.GraphService = (*fakeGraph)(nil)

// fakeLLM returns a scripted response or error and records prompts and
// options. generateFn, when set, takes precedence and can branch on the
// prompt text.
type fakeLLM struct {
	response   string
	err        error
	generateFn func(prompt string) (string, error)
	calls      int
	prompts    []string
	opts       []interfaces.GenerateOptions
}

func (l *fakeLLM) Generate(ctx context.Context, prompt string, opts interfaces.GenerateOptions) (string, error) {
	l.calls++
	l.prompts = append(l.prompts, prompt)
	l.opts = append(l.opts, opts)
	if l.generateFn != nil {
		return l.generateFn(prompt)
	}
	if l.err != nil {
		return "", l.err
	}
	return l.response, nil
}

func (l *fakeLLM) HealthCheck(ctx context.Context) error { return nil }
func (l *fakeLLM) ProviderName() string                  { return "fake" }
func (l *fakeLLM) Close() error                          { return nil }

var _ interfaces.LLMService = (*fakeLLM)(nil)
