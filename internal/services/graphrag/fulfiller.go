package graphrag

import (
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/quanta/internal/models"
)

// ParameterFulfiller maps grounded entities onto the parameter slots of the
// classified intent. Missing required slots are reported rather than guessed;
// optional slots get documented defaults.
type ParameterFulfiller struct {
	defaultThreshold float64
	defaultTopN      int
	maxTopN          int
	logger           arbor.ILogger
}

func NewParameterFulfiller(defaultThreshold float64, defaultTopN, maxTopN int, logger arbor.ILogger) *ParameterFulfiller {
	return &ParameterFulfiller{
		defaultThreshold: defaultThreshold,
		defaultTopN:      defaultTopN,
		maxTopN:          maxTopN,
		logger:           logger,
	}
}

// Fulfill builds the parameter map for an intent from grounded entities.
func (f *ParameterFulfiller) Fulfill(intent string, entities []models.GroundedEntity) models.ParamFulfillment {
	parameters := map[string]interface{}{}
	missing := []string{}

	switch intent {
	case models.IntentETFExposure:
		if ticker := bestEntityName(entities, models.EntityETF); ticker != "" {
			parameters["ticker"] = ticker
		} else {
			missing = append(missing, "ticker")
		}
		if symbol := bestEntityName(entities, models.EntityCompany); symbol != "" {
			parameters["symbol"] = symbol
		} else {
			missing = append(missing, "symbol")
		}

	case models.IntentOverlapWeighted, models.IntentOverlapJaccard:
		etfs := allEntityNames(entities, models.EntityETF)
		switch {
		case len(etfs) >= 2:
			parameters["ticker1"] = etfs[0]
			parameters["ticker2"] = etfs[1]
		case len(etfs) == 1:
			parameters["ticker1"] = etfs[0]
			missing = append(missing, "ticker2")
		default:
			missing = append(missing, "ticker1", "ticker2")
		}

	case models.IntentSectorExposure:
		if ticker := bestEntityName(entities, models.EntityETF); ticker != "" {
			parameters["ticker"] = ticker
		} else {
			missing = append(missing, "ticker")
		}

	case models.IntentETFsBySectorThreshold:
		if sector := bestEntityName(entities, models.EntitySector); sector != "" {
			parameters["sector"] = sector
		} else {
			missing = append(missing, "sector")
		}
		if threshold, ok := bestEntityValue(entities, models.EntityPercent); ok {
			parameters["threshold"] = threshold
		} else {
			parameters["threshold"] = f.defaultThreshold
		}

	case models.IntentTopHoldingsSubgraph:
		if ticker := bestEntityName(entities, models.EntityETF); ticker != "" {
			parameters["ticker"] = ticker
		} else {
			missing = append(missing, "ticker")
		}
		if topN, ok := bestEntityValue(entities, models.EntityCount); ok {
			n := f.defaultTopN
			if i, isInt := topN.(int); isInt {
				n = i
			}
			if n > f.maxTopN {
				n = f.maxTopN
			}
			parameters["top_n"] = n
		} else {
			parameters["top_n"] = f.defaultTopN
		}

	case models.IntentCompanyRankings:
		if symbol := bestEntityName(entities, models.EntityCompany); symbol != "" {
			parameters["symbol"] = symbol
		} else {
			missing = append(missing, "symbol")
		}
		if etfs := allEntityNames(entities, models.EntityETF); len(etfs) > 0 {
			parameters["etf_tickers"] = etfs
		} else {
			// Explicit nil keeps the template's IS NULL branch working.
			parameters["etf_tickers"] = nil
		}

	case models.IntentGeneralLLM, models.IntentComprehensive:
		// No parameters needed.
	}

	result := models.ParamFulfillment{
		Intent:        intent,
		Parameters:    parameters,
		MissingParams: missing,
		IsComplete:    len(missing) == 0,
	}

	f.logger.Debug().
		Str("intent", intent).
		Int("parameters_found", len(parameters)).
		Int("missing_count", len(missing)).
		Bool("is_complete", result.IsComplete).
		Msg("Parameter fulfillment completed")

	return result
}

// bestEntityName picks the highest-confidence entity of the type, breaking
// ties toward the longer (more specific) name.
func bestEntityName(entities []models.GroundedEntity, t models.EntityType) string {
	var best *models.GroundedEntity
	for i := range entities {
		e := &entities[i]
		if e.Type != t {
			continue
		}
		if best == nil ||
			e.Confidence > best.Confidence ||
			(e.Confidence == best.Confidence && len(e.Name) > len(best.Name)) {
			best = e
		}
	}
	if best == nil {
		return ""
	}
	return best.Name
}

// bestEntityValue returns the numeric value carried by the best entity of a
// numeric type.
func bestEntityValue(entities []models.GroundedEntity, t models.EntityType) (interface{}, bool) {
	var best *models.GroundedEntity
	for i := range entities {
		e := &entities[i]
		if e.Type != t {
			continue
		}
		if best == nil ||
			e.Confidence > best.Confidence ||
			(e.Confidence == best.Confidence && len(e.Name) > len(best.Name)) {
			best = e
		}
	}
	if best == nil {
		return nil, false
	}
	if v, ok := best.Properties["value"]; ok {
		return v, true
	}
	return best.Name, true
}

func allEntityNames(entities []models.GroundedEntity, t models.EntityType) []string {
	names := []string{}
	for _, e := range entities {
		if e.Type == t {
			names = append(names, e.Name)
		}
	}
	return names
}
