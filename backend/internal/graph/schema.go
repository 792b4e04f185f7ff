package graph

import (
	"context"
	"fmt"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"go.uber.org/zap"
)

const schemaVersion = "tablegraph_schema_v1"

var migrations = []struct {
	name  string
	query string
}{
	{
		name:  "row id constraint",
		query: `CREATE CONSTRAINT row_id_unique IF NOT EXISTS FOR (r:Row) REQUIRE r.id IS UNIQUE`,
	},
	{
		name:  "field key constraint",
		query: `CREATE CONSTRAINT field_key_unique IF NOT EXISTS FOR (f:Field) REQUIRE f.key IS UNIQUE`,
	},
	{
		name:  "field row index",
		query: `CREATE INDEX field_row_id IF NOT EXISTS FOR (f:Field) ON (f.row_id)`,
	},
	{
		name:  "row created index",
		query: `CREATE INDEX row_created_at IF NOT EXISTS FOR (r:Row) ON (r.created_at)`,
	},
}

// EnsureSchema creates constraints and indexes and records the schema version.
// Every statement is idempotent, so running it on each start is safe.
func (s *Store) EnsureSchema(ctx context.Context) error {
	session := s.writeSession(ctx)
	defer session.Close(ctx)

	// schema statements cannot share a transaction with data writes
	for _, m := range migrations {
		result, err := session.Run(ctx, m.query, nil)
		if err != nil {
			return fmt.Errorf("migration %q failed: %w", m.name, err)
		}
		if _, err := result.Consume(ctx); err != nil {
			return fmt.Errorf("migration %q failed: %w", m.name, err)
		}
		s.logger.Debug("Migration applied", zap.String("migration", m.name))
	}

	_, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		result, err := tx.Run(ctx, `
			MERGE (m:Migration {version: $version})
			ON CREATE SET m.applied_at = datetime()
		`, map[string]any{"version": schemaVersion})
		if err != nil {
			return nil, err
		}
		return result.Consume(ctx)
	})
	if err != nil {
		return fmt.Errorf("failed to mark schema version: %w", err)
	}

	s.logger.Info("Neo4j schema ready", zap.String("version", schemaVersion))
	return nil
}
