package graph

import (
	"context"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"go.uber.org/zap"

	"tablegraph/backend/internal/state"
	apperrors "tablegraph/backend/pkg/errors"
)

// ============================================================================
// Relationship Operations
// ============================================================================

// deleteFields removes every field of rowID with its edges, then drops
// fields of other rows left without any edge.
func deleteFields(ctx context.Context, tx neo4j.ManagedTransaction, rowID string) error {
	query := `
		MATCH (f:Field {row_id: $rowID})
		OPTIONAL MATCH (f)-[:RELATED]-(other:Field)
		WHERE other.row_id <> $rowID
		WITH collect(DISTINCT f) as mine, collect(DISTINCT other) as others
		FOREACH (f IN mine | DETACH DELETE f)
		WITH others
		UNWIND others as o
		WITH o WHERE o IS NOT NULL AND NOT (o)--()
		DELETE o
	`
	_, err := tx.Run(ctx, query, map[string]any{"rowID": rowID})
	return err
}

// ReplaceRelationships deletes every relationship touching rowID and creates
// rels inside one write transaction. The row is locked first; when it no longer
// exists nothing is written and a not-found error is returned.
func (s *Store) ReplaceRelationships(ctx context.Context, rowID string, rels []state.Relationship) error {
	session := s.writeSession(ctx)
	defer session.Close(ctx)

	batch := make([]map[string]any, 0, len(rels))
	for i, r := range rels {
		batch = append(batch, map[string]any{
			"ord":        i,
			"from_key":   r.From.NodeID(),
			"from_table": r.From.TableName,
			"from_row":   r.From.RowID,
			"from_col":   r.From.Column,
			"from_value": r.From.Value,
			"to_key":     r.To.NodeID(),
			"to_table":   r.To.TableName,
			"to_row":     r.To.RowID,
			"to_col":     r.To.Column,
			"to_value":   r.To.Value,
			"reason":     r.Reason,
		})
	}

	query := `
		UNWIND $rels as rel
		MERGE (a:Field {key: rel.from_key})
		  ON CREATE SET a.table_name = rel.from_table, a.row_id = rel.from_row, a.column = rel.from_col
		MERGE (b:Field {key: rel.to_key})
		  ON CREATE SET b.table_name = rel.to_table, b.row_id = rel.to_row, b.column = rel.to_col
		CREATE (a)-[:RELATED {
			from_value: rel.from_value,
			to_value: rel.to_value,
			reason: rel.reason,
			created_at: $now,
			ord: rel.ord
		}]->(b)
	`

	now := s.now().UTC().UnixMilli()
	_, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		locked, err := tx.Run(ctx, `
			MATCH (r:Row {id: $rowID})
			SET r.relationships_at = $now
			RETURN r.id as id
		`, map[string]any{"rowID": rowID, "now": now})
		if err != nil {
			return nil, err
		}
		found, err := locked.Collect(ctx)
		if err != nil {
			return nil, err
		}
		if len(found) == 0 {
			return nil, apperrors.NewRowNotFound(rowID)
		}

		if err := deleteFields(ctx, tx, rowID); err != nil {
			return nil, err
		}
		if len(batch) == 0 {
			return nil, nil
		}
		result, err := tx.Run(ctx, query, map[string]any{
			"rels": batch,
			"now":  now,
		})
		if err != nil {
			return nil, err
		}
		return result.Consume(ctx)
	})
	if apperrors.IsNotFound(err) {
		return err
	}
	if err != nil {
		return apperrors.NewStoreUnavailable("replace relationships", err)
	}

	s.logger.Debug("Relationships replaced",
		zap.String("row_id", rowID),
		zap.Int("count", len(rels)),
	)
	return nil
}

// FindRelationships returns every relationship in creation order
func (s *Store) FindRelationships(ctx context.Context) ([]state.Relationship, error) {
	session := s.readSession(ctx)
	defer session.Close(ctx)

	query := `
		MATCH (a:Field)-[r:RELATED]->(b:Field)
		RETURN
			a.table_name as from_table,
			a.row_id as from_row,
			a.column as from_col,
			r.from_value as from_value,
			b.table_name as to_table,
			b.row_id as to_row,
			b.column as to_col,
			r.to_value as to_value,
			r.reason as reason
		ORDER BY r.created_at, r.ord
	`

	out, err := session.ExecuteRead(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		result, err := tx.Run(ctx, query, nil)
		if err != nil {
			return nil, err
		}
		return result.Collect(ctx)
	})
	if err != nil {
		return nil, apperrors.NewStoreUnavailable("find relationships", err)
	}

	records := out.([]*neo4j.Record)
	rels := make([]state.Relationship, 0, len(records))
	for _, record := range records {
		rels = append(rels, state.Relationship{
			From: state.Endpoint{
				TableName: getStringFromRecord(record, "from_table"),
				RowID:     getStringFromRecord(record, "from_row"),
				Column:    getStringFromRecord(record, "from_col"),
				Value:     getStringFromRecord(record, "from_value"),
			},
			To: state.Endpoint{
				TableName: getStringFromRecord(record, "to_table"),
				RowID:     getStringFromRecord(record, "to_row"),
				Column:    getStringFromRecord(record, "to_col"),
				Value:     getStringFromRecord(record, "to_value"),
			},
			Reason: getStringFromRecord(record, "reason"),
		})
	}
	return rels, nil
}
