package graphrag

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/quanta/internal/models"
)

func TestAllGraphTemplatesPassSecurity(t *testing.T) {
	for intent, tmpl := range cypherTemplates {
		if intent == models.IntentGeneralLLM {
			continue // no graph query behind it
		}
		t.Run(intent, func(t *testing.T) {
			assert.NoError(t, validateTemplateSecurity(tmpl))
		})
	}
}

func TestGetTemplateKnownIntents(t *testing.T) {
	for _, intent := range []string{
		models.IntentETFExposure,
		models.IntentOverlapWeighted,
		models.IntentOverlapJaccard,
		models.IntentSectorExposure,
		models.IntentETFsBySectorThreshold,
		models.IntentTopHoldingsSubgraph,
		models.IntentCompanyRankings,
		models.IntentGeneralLLM,
		models.IntentComprehensive,
	} {
		_, err := GetTemplate(intent)
		assert.NoError(t, err, intent)
	}
}

func TestGetTemplateUnknownIntent(t *testing.T) {
	_, err := GetTemplate("nonsense")
	assert.Error(t, err)
}

func TestAvailableIntentsCoversCatalogue(t *testing.T) {
	intents := AvailableIntents()
	assert.Len(t, intents, len(cypherTemplates))
	assert.Contains(t, intents, models.IntentComprehensive)
}

func TestMissingParamsCountsPresenceNotValue(t *testing.T) {
	tmpl, err := GetTemplate(models.IntentCompanyRankings)
	require.NoError(t, err)

	missing := tmpl.MissingParams(map[string]interface{}{"symbol": "AAPL"})
	assert.Empty(t, missing)

	missing = tmpl.MissingParams(map[string]interface{}{})
	assert.Equal(t, []string{"symbol"}, missing)
}

func TestOverlapTemplatesRequireBothTickers(t *testing.T) {
	tmpl, err := GetTemplate(models.IntentOverlapWeighted)
	require.NoError(t, err)

	missing := tmpl.MissingParams(map[string]interface{}{"ticker1": "SPY"})
	assert.Equal(t, []string{"ticker2"}, missing)
}
