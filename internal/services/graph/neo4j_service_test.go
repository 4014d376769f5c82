package graph

import (
	"testing"
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j/dbtype"
	"github.com/stretchr/testify/assert"
)

func TestFlattenRecordReducesNodesToProperties(t *testing.T) {
	record := map[string]interface{}{
		"e": dbtype.Node{
			Props: map[string]interface{}{"ticker": "SPY", "name": "SPDR S&P 500 ETF Trust"},
		},
		"h": dbtype.Relationship{
			Props: map[string]interface{}{"weight": 0.0725},
		},
		"count": int64(503),
	}

	flattened := flattenRecord(record)

	etf, ok := flattened["e"].(map[string]interface{})
	assert.True(t, ok)
	assert.Equal(t, "SPY", etf["ticker"])

	holds, ok := flattened["h"].(map[string]interface{})
	assert.True(t, ok)
	assert.Equal(t, 0.0725, holds["weight"])

	assert.Equal(t, int64(503), flattened["count"])
}

func TestFlattenValueHandlesNestedCollections(t *testing.T) {
	value := []interface{}{
		map[string]interface{}{
			"symbol": "AAPL",
			"node":   dbtype.Node{Props: map[string]interface{}{"name": "Apple Inc."}},
		},
	}

	flattened := flattenValue(value).([]interface{})
	item := flattened[0].(map[string]interface{})
	nested := item["node"].(map[string]interface{})
	assert.Equal(t, "Apple Inc.", nested["name"])
}

func TestFlattenValueFormatsTemporals(t *testing.T) {
	ts := time.Date(2025, 6, 1, 12, 30, 0, 0, time.UTC)

	flattened := flattenValue(ts)

	assert.Equal(t, "2025-06-01T12:30:00Z", flattened)
}

func TestTruncateQuery(t *testing.T) {
	short := "RETURN 1"
	assert.Equal(t, short, truncateQuery(short))

	long := ""
	for i := 0; i < 30; i++ {
		long += "MATCH (n) "
	}
	assert.Len(t, truncateQuery(long), 100)
}
