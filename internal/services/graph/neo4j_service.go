package graph

import (
	"context"
	"fmt"
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j/dbtype"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/quanta/internal/common"
	"github.com/ternarybob/quanta/internal/interfaces"
)

// Neo4jService implements interfaces.GraphService on the official driver.
// Result records are flattened before they leave this package: nodes and
// relationships become property maps, temporal values RFC 3339 strings.
type Neo4jService struct {
	driver     neo4j.DriverWithContext
	database   string
	timeout    time.Duration
	maxRetries int
	logger     arbor.ILogger
}

// NewNeo4jService connects to the graph and verifies connectivity.
func NewNeo4jService(ctx context.Context, config *common.GraphConfig, logger arbor.ILogger) (*Neo4jService, error) {
	driver, err := neo4j.NewDriverWithContext(config.URI, neo4j.BasicAuth(config.Username, config.Password, ""))
	if err != nil {
		return nil, fmt.Errorf("failed to create neo4j driver: %w", err)
	}

	service := &Neo4jService{
		driver:     driver,
		database:   config.Database,
		timeout:    common.Duration(config.Timeout, 30*time.Second),
		maxRetries: config.MaxRetries,
		logger:     logger,
	}

	if err := driver.VerifyConnectivity(ctx); err != nil {
		_ = driver.Close(ctx)
		return nil, fmt.Errorf("failed to connect to neo4j at %s: %w", config.URI, err)
	}

	logger.Info().Str("uri", config.URI).Str("database", config.Database).Msg("Neo4j connection established")
	return service, nil
}

var _ interfaces.GraphService = (*Neo4jService)(nil)

// ExecuteRead runs a read-only Cypher statement and returns flattened rows.
func (s *Neo4jService) ExecuteRead(ctx context.Context, query string, params map[string]interface{}) ([]map[string]interface{}, error) {
	start := time.Now()

	var rows []map[string]interface{}
	err := s.withRetry(ctx, func(ctx context.Context) error {
		session := s.driver.NewSession(ctx, neo4j.SessionConfig{
			AccessMode:   neo4j.AccessModeRead,
			DatabaseName: s.database,
		})
		defer session.Close(ctx)

		result, err := session.ExecuteRead(ctx, func(tx neo4j.ManagedTransaction) (interface{}, error) {
			res, err := tx.Run(ctx, query, params)
			if err != nil {
				return nil, err
			}
			records, err := res.Collect(ctx)
			if err != nil {
				return nil, err
			}
			collected := make([]map[string]interface{}, 0, len(records))
			for _, record := range records {
				collected = append(collected, flattenRecord(record.AsMap()))
			}
			return collected, nil
		})
		if err != nil {
			return err
		}
		rows = result.([]map[string]interface{})
		return nil
	})
	if err != nil {
		s.logger.Error().Err(err).Str("query", truncateQuery(query)).Msg("Cypher read failed")
		return nil, fmt.Errorf("cypher read: %w", err)
	}

	s.logger.Debug().
		Int64("execution_time_ms", time.Since(start).Milliseconds()).
		Int("row_count", len(rows)).
		Str("query", truncateQuery(query)).
		Msg("Cypher read executed")

	return rows, nil
}

// ExecuteWrite runs a mutating Cypher statement inside a write transaction.
func (s *Neo4jService) ExecuteWrite(ctx context.Context, query string, params map[string]interface{}) error {
	start := time.Now()

	err := s.withRetry(ctx, func(ctx context.Context) error {
		session := s.driver.NewSession(ctx, neo4j.SessionConfig{
			AccessMode:   neo4j.AccessModeWrite,
			DatabaseName: s.database,
		})
		defer session.Close(ctx)

		_, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (interface{}, error) {
			res, err := tx.Run(ctx, query, params)
			if err != nil {
				return nil, err
			}
			return nil, res.Err()
		})
		return err
	})
	if err != nil {
		s.logger.Error().Err(err).Str("query", truncateQuery(query)).Msg("Cypher write failed")
		return fmt.Errorf("cypher write: %w", err)
	}

	s.logger.Debug().
		Int64("execution_time_ms", time.Since(start).Milliseconds()).
		Str("query", truncateQuery(query)).
		Msg("Cypher write executed")

	return nil
}

// HealthCheck verifies connectivity with a trivial read.
func (s *Neo4jService) HealthCheck(ctx context.Context) error {
	_, err := s.ExecuteRead(ctx, "RETURN 1 as health", nil)
	if err != nil {
		return fmt.Errorf("neo4j health check: %w", err)
	}
	return nil
}

// Close releases the driver and its connection pool.
func (s *Neo4jService) Close(ctx context.Context) error {
	s.logger.Info().Msg("Closing Neo4j connection")
	return s.driver.Close(ctx)
}

// withRetry runs fn with a per-attempt timeout and exponential backoff
// between attempts, starting at 4s and capped at 10s.
func (s *Neo4jService) withRetry(ctx context.Context, fn func(ctx context.Context) error) error {
	attempts := s.maxRetries
	if attempts < 1 {
		attempts = 1
	}

	var lastErr error
	backoff := 4 * time.Second
	for attempt := 1; attempt <= attempts; attempt++ {
		attemptCtx, cancel := context.WithTimeout(ctx, s.timeout)
		err := fn(attemptCtx)
		cancel()
		if err == nil {
			return nil
		}
		lastErr = err

		if attempt == attempts || ctx.Err() != nil {
			break
		}

		s.logger.Warn().
			Err(err).
			Int("attempt", attempt).
			Int("max_attempts", attempts).
			Msg("Query attempt failed, retrying")

		select {
		case <-time.After(backoff):
		case <-ctx.Done():
			return ctx.Err()
		}
		backoff *= 2
		if backoff > 10*time.Second {
			backoff = 10 * time.Second
		}
	}
	return lastErr
}

// flattenRecord reduces driver entities to plain maps the rest of the
// application can serialize without importing driver types.
func flattenRecord(record map[string]interface{}) map[string]interface{} {
	flattened := make(map[string]interface{}, len(record))
	for key, value := range record {
		flattened[key] = flattenValue(value)
	}
	return flattened
}

func flattenValue(value interface{}) interface{} {
	switch v := value.(type) {
	case dbtype.Node:
		return flattenRecord(v.Props)
	case dbtype.Relationship:
		return flattenRecord(v.Props)
	case dbtype.Path:
		nodes := make([]interface{}, 0, len(v.Nodes))
		for _, n := range v.Nodes {
			nodes = append(nodes, flattenRecord(n.Props))
		}
		return nodes
	case dbtype.Date:
		return v.Time().Format(time.RFC3339)
	case dbtype.LocalDateTime:
		return v.Time().Format(time.RFC3339)
	case dbtype.LocalTime:
		return v.Time().Format(time.RFC3339)
	case dbtype.Time:
		return v.Time().Format(time.RFC3339)
	case time.Time:
		return v.Format(time.RFC3339)
	case []interface{}:
		items := make([]interface{}, 0, len(v))
		for _, item := range v {
			items = append(items, flattenValue(item))
		}
		return items
	case map[string]interface{}:
		return flattenRecord(v)
	default:
		return value
	}
}

func truncateQuery(query string) string {
	if len(query) <= 100 {
		return query
	}
	return query[:100]
}
