package interfaces

import "context"

// GraphService abstracts the Neo4j connection. Rows come back flattened:
// nodes and relationships are reduced to their property maps, temporal
// values to RFC 3339 strings, so callers never touch driver types.
type GraphService interface {
	// ExecuteRead runs a read-only Cypher statement with parameters.
	ExecuteRead(ctx context.Context, query string, params map[string]interface{}) ([]map[string]interface{}, error)

	// ExecuteWrite runs a mutating Cypher statement. Only the ingest loader
	// uses this; the query pipeline is read-only by construction.
	ExecuteWrite(ctx context.Context, query string, params map[string]interface{}) error

	// HealthCheck verifies connectivity with a trivial query.
	HealthCheck(ctx context.Context) error

	Close(ctx context.Context) error
}
