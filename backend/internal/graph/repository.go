// Package graph is the Neo4j implementation of state.Store.
//
// Rows are (:Row) nodes. Relationship endpoints are (:Field) nodes keyed by
// "table:row:column", joined by [:RELATED] edges that carry the value
// snapshots and reason. Field nodes are not tied to Row nodes, so a
// relationship may name a row that was never stored.
package graph

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"go.uber.org/zap"

	"tablegraph/backend/internal/state"
	apperrors "tablegraph/backend/pkg/errors"
	"tablegraph/backend/pkg/logger"
)

// Store handles all Neo4j database operations
type Store struct {
	driver neo4j.DriverWithContext
	logger *zap.Logger
	now    func() time.Time
}

// NewStore creates a new graph store on top of an open driver
func NewStore(driver neo4j.DriverWithContext) *Store {
	return &Store{
		driver: driver,
		logger: logger.Named("graph"),
		now:    time.Now,
	}
}

// Connect opens a driver and verifies connectivity
func Connect(ctx context.Context, uri, user, password string) (*Store, error) {
	driver, err := neo4j.NewDriverWithContext(uri, neo4j.BasicAuth(user, password, ""))
	if err != nil {
		return nil, fmt.Errorf("failed to create Neo4j driver: %w", err)
	}
	if err := driver.VerifyConnectivity(ctx); err != nil {
		driver.Close(ctx)
		return nil, apperrors.NewStoreUnavailable("connect", err)
	}
	return NewStore(driver), nil
}

// Close closes the Neo4j driver connection
func (s *Store) Close(ctx context.Context) error {
	return s.driver.Close(ctx)
}

func (s *Store) readSession(ctx context.Context) neo4j.SessionWithContext {
	return s.driver.NewSession(ctx, neo4j.SessionConfig{AccessMode: neo4j.AccessModeRead})
}

func (s *Store) writeSession(ctx context.Context) neo4j.SessionWithContext {
	return s.driver.NewSession(ctx, neo4j.SessionConfig{AccessMode: neo4j.AccessModeWrite})
}

const rowProjection = `
	r.id as id,
	r.table_name as table_name,
	r.columns as columns,
	r.values as values,
	r.tags as tags,
	r.tags_overridden as tags_overridden,
	r.created_at as created_at,
	r.updated_at as updated_at
`

// FindRowByID returns the row with the given id
func (s *Store) FindRowByID(ctx context.Context, rowID string) (*state.Row, error) {
	session := s.readSession(ctx)
	defer session.Close(ctx)

	out, err := session.ExecuteRead(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		result, err := tx.Run(ctx, `MATCH (r:Row {id: $id}) RETURN `+rowProjection, map[string]any{
			"id": rowID,
		})
		if err != nil {
			return nil, err
		}
		return result.Collect(ctx)
	})
	if err != nil {
		return nil, apperrors.NewStoreUnavailable("find row", err)
	}

	records := out.([]*neo4j.Record)
	if len(records) == 0 {
		return nil, apperrors.NewRowNotFound(rowID)
	}
	row := rowFromRecord(records[0])
	return &row, nil
}

// FindRows returns every row except excludeID, oldest first
func (s *Store) FindRows(ctx context.Context, excludeID string) ([]state.Row, error) {
	session := s.readSession(ctx)
	defer session.Close(ctx)

	query := `
		MATCH (r:Row)
		WHERE r.id <> $excludeID
		RETURN ` + rowProjection + `
		ORDER BY r.created_at, r.id
	`

	out, err := session.ExecuteRead(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		result, err := tx.Run(ctx, query, map[string]any{"excludeID": excludeID})
		if err != nil {
			return nil, err
		}
		return result.Collect(ctx)
	})
	if err != nil {
		return nil, apperrors.NewStoreUnavailable("find rows", err)
	}

	records := out.([]*neo4j.Record)
	rows := make([]state.Row, 0, len(records))
	for _, record := range records {
		rows = append(rows, rowFromRecord(record))
	}
	return rows, nil
}

// CreateRow assigns an id and timestamps and creates the row node
func (s *Store) CreateRow(ctx context.Context, row *state.Row) error {
	session := s.writeSession(ctx)
	defer session.Close(ctx)

	id := uuid.New().String()
	now := s.now().UTC().UnixMilli()
	params := rowParams(row)
	params["id"] = id
	params["now"] = now

	query := `
		CREATE (r:Row {
			id: $id,
			table_name: $tableName,
			columns: $columns,
			values: $values,
			tags: $tags,
			tags_overridden: $tagsOverridden,
			created_at: $now,
			updated_at: $now
		})
	`

	_, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		result, err := tx.Run(ctx, query, params)
		if err != nil {
			return nil, err
		}
		return result.Consume(ctx)
	})
	if err != nil {
		return apperrors.NewStoreUnavailable("create row", err)
	}

	row.ID = id
	row.CreatedAt = time.UnixMilli(now).UTC()
	row.UpdatedAt = row.CreatedAt

	s.logger.Debug("Row created",
		zap.String("row_id", id),
		zap.String("table_name", row.TableName),
	)
	return nil
}

// UpdateRow overwrites table name, values and tags of an existing row
func (s *Store) UpdateRow(ctx context.Context, row *state.Row) error {
	session := s.writeSession(ctx)
	defer session.Close(ctx)

	now := s.now().UTC().UnixMilli()
	params := rowParams(row)
	params["id"] = row.ID
	params["now"] = now

	query := `
		MATCH (r:Row {id: $id})
		SET r.table_name = $tableName,
		    r.columns = $columns,
		    r.values = $values,
		    r.tags = $tags,
		    r.tags_overridden = $tagsOverridden,
		    r.updated_at = $now
		RETURN r.id as id
	`

	out, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		result, err := tx.Run(ctx, query, params)
		if err != nil {
			return nil, err
		}
		return result.Collect(ctx)
	})
	if err != nil {
		return apperrors.NewStoreUnavailable("update row", err)
	}
	if len(out.([]*neo4j.Record)) == 0 {
		return apperrors.NewRowNotFound(row.ID)
	}
	row.UpdatedAt = time.UnixMilli(now).UTC()
	return nil
}

// DeleteRow removes the row node and every relationship touching it
func (s *Store) DeleteRow(ctx context.Context, rowID string) (bool, error) {
	session := s.writeSession(ctx)
	defer session.Close(ctx)

	out, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		if err := deleteFields(ctx, tx, rowID); err != nil {
			return nil, err
		}
		result, err := tx.Run(ctx, `MATCH (r:Row {id: $id}) DETACH DELETE r`, map[string]any{"id": rowID})
		if err != nil {
			return nil, err
		}
		summary, err := result.Consume(ctx)
		if err != nil {
			return nil, err
		}
		return summary.Counters().NodesDeleted() > 0, nil
	})
	if err != nil {
		return false, apperrors.NewStoreUnavailable("delete row", err)
	}
	return out.(bool), nil
}

func rowParams(row *state.Row) map[string]any {
	columns := row.RowData.Columns()
	values := make([]string, len(columns))
	for i, col := range columns {
		values[i], _ = row.RowData.Get(col)
	}
	tags := row.Tags
	if tags == nil {
		tags = []string{}
	}
	return map[string]any{
		"tableName":      row.TableName,
		"columns":        columns,
		"values":         values,
		"tags":           tags,
		"tagsOverridden": row.TagsOverridden,
	}
}

func rowFromRecord(record *neo4j.Record) state.Row {
	row := state.Row{
		ID:             getStringFromRecord(record, "id"),
		TableName:      getStringFromRecord(record, "table_name"),
		Tags:           getStringSliceFromRecord(record, "tags"),
		TagsOverridden: getBoolFromRecord(record, "tags_overridden"),
		CreatedAt:      time.UnixMilli(getInt64FromRecord(record, "created_at")).UTC(),
		UpdatedAt:      time.UnixMilli(getInt64FromRecord(record, "updated_at")).UTC(),
	}
	columns := getStringSliceFromRecord(record, "columns")
	values := getStringSliceFromRecord(record, "values")
	for i, col := range columns {
		if i < len(values) {
			row.RowData.Set(col, values[i])
		}
	}
	return row
}
