package graphrag

import (
	"context"
	"fmt"
	"strconv"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/quanta/internal/interfaces"
	"github.com/ternarybob/quanta/internal/models"
)

// EntityGrounder resolves preprocessed tokens against the graph. Tickers are
// tried as ETFs first, then as companies; sector tokens match directly by
// name or through the Term alias layer.
type EntityGrounder struct {
	graph  interfaces.GraphService
	logger arbor.ILogger
}

func NewEntityGrounder(graph interfaces.GraphService, logger arbor.ILogger) *EntityGrounder {
	return &EntityGrounder{graph: graph, logger: logger}
}

// Ground resolves all entity mentions in the preprocessed query.
func (g *EntityGrounder) Ground(ctx context.Context, pre models.PreprocessResult) ([]models.GroundedEntity, error) {
	entities := []models.GroundedEntity{}

	etfs, err := g.groundETFs(ctx, pre.Tickers)
	if err != nil {
		return nil, err
	}
	entities = append(entities, etfs...)

	// Tickers already matched as ETFs are not retried as companies.
	etfNames := map[string]struct{}{}
	for _, e := range etfs {
		etfNames[e.Name] = struct{}{}
	}
	remaining := []string{}
	for _, t := range pre.Tickers {
		if _, ok := etfNames[t]; !ok {
			remaining = append(remaining, t)
		}
	}
	companies, err := g.groundCompanies(ctx, remaining)
	if err != nil {
		return nil, err
	}
	entities = append(entities, companies...)

	sectors, err := g.groundSectors(ctx, pre.Tokens)
	if err != nil {
		return nil, err
	}
	entities = append(entities, sectors...)

	numbers := groundNumbers(pre.Numbers)
	entities = append(entities, numbers...)

	g.logger.Debug().
		Int("total_entities", len(entities)).
		Int("etfs", len(etfs)).
		Int("companies", len(companies)).
		Int("sectors", len(sectors)).
		Int("numbers", len(numbers)).
		Msg("Entity grounding completed")

	return entities, nil
}

func (g *EntityGrounder) groundETFs(ctx context.Context, tickers []string) ([]models.GroundedEntity, error) {
	entities := []models.GroundedEntity{}
	for _, ticker := range tickers {
		rows, err := g.graph.ExecuteRead(ctx, "MATCH (e:ETF {ticker: $ticker}) RETURN e", map[string]interface{}{"ticker": ticker})
		if err != nil {
			return nil, fmt.Errorf("etf lookup for %s: %w", ticker, err)
		}
		if len(rows) > 0 {
			entities = append(entities, models.GroundedEntity{
				Type:       models.EntityETF,
				Name:       ticker,
				Confidence: 1.0,
				Properties: propsOf(rows[0]["e"]),
			})
			g.logger.Debug().Str("ticker", ticker).Msg("ETF grounded")
		}
	}
	return entities, nil
}

func (g *EntityGrounder) groundCompanies(ctx context.Context, symbols []string) ([]models.GroundedEntity, error) {
	entities := []models.GroundedEntity{}
	for _, symbol := range symbols {
		rows, err := g.graph.ExecuteRead(ctx, "MATCH (c:Company {symbol: $symbol}) RETURN c", map[string]interface{}{"symbol": symbol})
		if err != nil {
			return nil, fmt.Errorf("company lookup for %s: %w", symbol, err)
		}
		if len(rows) > 0 {
			entities = append(entities, models.GroundedEntity{
				Type:       models.EntityCompany,
				Name:       symbol,
				Confidence: 1.0,
				Properties: propsOf(rows[0]["c"]),
			})
			g.logger.Debug().Str("symbol", symbol).Msg("Company grounded")
		}
	}
	return entities, nil
}

const sectorAliasQuery = `
	MATCH (t:Term {norm: $token})-[:ALIAS_OF]->(e:Entity)-[:REFERS_TO]->(s:Sector)
	RETURN s, e
`

func (g *EntityGrounder) groundSectors(ctx context.Context, tokens []string) ([]models.GroundedEntity, error) {
	candidates := []models.GroundedEntity{}

	// Direct name matches score lower than explicit aliases.
	for _, token := range tokens {
		if len(token) < 3 {
			continue
		}
		rows, err := g.graph.ExecuteRead(ctx, "MATCH (s:Sector) WHERE toLower(s.name) = $token RETURN s", map[string]interface{}{"token": token})
		if err != nil {
			return nil, fmt.Errorf("sector lookup for %q: %w", token, err)
		}
		for _, row := range rows {
			props := propsOf(row["s"])
			name, _ := props["name"].(string)
			candidates = append(candidates, models.GroundedEntity{
				Type:       models.EntitySector,
				Name:       name,
				Confidence: 0.8,
				Properties: props,
			})
			g.logger.Debug().Str("token", token).Str("sector", name).Msg("Sector grounded via direct match")
		}
	}

	for _, token := range tokens {
		if len(token) < 3 {
			continue
		}
		rows, err := g.graph.ExecuteRead(ctx, sectorAliasQuery, map[string]interface{}{"token": token})
		if err != nil {
			return nil, fmt.Errorf("sector alias lookup for %q: %w", token, err)
		}
		for _, row := range rows {
			props := propsOf(row["s"])
			name, _ := props["name"].(string)
			candidates = append(candidates, models.GroundedEntity{
				Type:       models.EntitySector,
				Name:       name,
				Confidence: 0.9,
				Properties: props,
			})
			g.logger.Debug().Str("token", token).Str("sector", name).Msg("Sector grounded via alias")
		}
	}

	// Dedupe by name, keeping the highest-confidence mention.
	best := map[string]models.GroundedEntity{}
	order := []string{}
	for _, c := range candidates {
		existing, seen := best[c.Name]
		if !seen {
			best[c.Name] = c
			order = append(order, c.Name)
		} else if c.Confidence > existing.Confidence {
			best[c.Name] = c
		}
	}
	unique := make([]models.GroundedEntity, 0, len(order))
	for _, name := range order {
		unique = append(unique, best[name])
	}
	return unique, nil
}

func groundNumbers(numbers models.ExtractedNumbers) []models.GroundedEntity {
	entities := []models.GroundedEntity{}

	values := append(append([]float64{}, numbers.Percentages...), numbers.Thresholds...)
	for _, v := range values {
		entities = append(entities, models.GroundedEntity{
			Type:       models.EntityPercent,
			Name:       fmt.Sprintf("%.1f%%", v*100),
			Confidence: 1.0,
			Properties: map[string]interface{}{"value": v},
		})
	}
	for _, c := range numbers.Counts {
		entities = append(entities, models.GroundedEntity{
			Type:       models.EntityCount,
			Name:       strconv.Itoa(c),
			Confidence: 1.0,
			Properties: map[string]interface{}{"value": c},
		})
	}
	return entities
}

// propsOf normalizes a flattened node value to a property map.
func propsOf(v interface{}) map[string]interface{} {
	if m, ok := v.(map[string]interface{}); ok {
		return m
	}
	return map[string]interface{}{}
}
