package sqlstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"tablegraph/backend/internal/state"
	apperrors "tablegraph/backend/pkg/errors"
)

const rowColumns = `id, table_name, row_data, tags, tags_overridden, created_at, updated_at`

// scanRow scans a row into a state.Row. The result must have rowColumns in order.
func scanRow(scanner interface{ Scan(dest ...any) error }) (state.Row, error) {
	var (
		r                    state.Row
		rowData, tags        string
		overridden           int
		createdAt, updatedAt int64
	)
	if err := scanner.Scan(&r.ID, &r.TableName, &rowData, &tags, &overridden, &createdAt, &updatedAt); err != nil {
		return r, err
	}
	if err := json.Unmarshal([]byte(rowData), &r.RowData); err != nil {
		return r, fmt.Errorf("decoding row_data of %s: %w", r.ID, err)
	}
	if err := json.Unmarshal([]byte(tags), &r.Tags); err != nil {
		return r, fmt.Errorf("decoding tags of %s: %w", r.ID, err)
	}
	r.TagsOverridden = overridden != 0
	r.CreatedAt = time.UnixMilli(createdAt).UTC()
	r.UpdatedAt = time.UnixMilli(updatedAt).UTC()
	return r, nil
}

func encodeRow(row *state.Row) (rowData, tags string, err error) {
	data, err := json.Marshal(row.RowData)
	if err != nil {
		return "", "", err
	}
	t := row.Tags
	if t == nil {
		t = []string{}
	}
	tagData, err := json.Marshal(t)
	if err != nil {
		return "", "", err
	}
	return string(data), string(tagData), nil
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// FindRowByID returns the row with the given id
func (s *Store) FindRowByID(ctx context.Context, rowID string) (*state.Row, error) {
	r, err := scanRow(s.conn.QueryRowContext(ctx,
		`SELECT `+rowColumns+` FROM dataset_rows WHERE id = ?`, rowID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.NewRowNotFound(rowID)
	}
	if err != nil {
		return nil, apperrors.NewStoreUnavailable("find row", err)
	}
	return &r, nil
}

// FindRows returns every row except excludeID, oldest first
func (s *Store) FindRows(ctx context.Context, excludeID string) ([]state.Row, error) {
	rows, err := s.conn.QueryContext(ctx,
		`SELECT `+rowColumns+` FROM dataset_rows WHERE id <> ? ORDER BY created_at, rowid`, excludeID)
	if err != nil {
		return nil, apperrors.NewStoreUnavailable("find rows", err)
	}
	defer rows.Close()

	out := []state.Row{}
	for rows.Next() {
		r, err := scanRow(rows)
		if err != nil {
			return nil, apperrors.NewStoreUnavailable("find rows", err)
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewStoreUnavailable("find rows", err)
	}
	return out, nil
}

// CreateRow assigns an id and timestamps and inserts the row
func (s *Store) CreateRow(ctx context.Context, row *state.Row) error {
	rowData, tags, err := encodeRow(row)
	if err != nil {
		return fmt.Errorf("encoding row: %w", err)
	}

	now := s.now().UTC()
	id := uuid.New().String()
	_, err = s.conn.ExecContext(ctx,
		`INSERT INTO dataset_rows (`+rowColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		id, row.TableName, rowData, tags, boolInt(row.TagsOverridden), now.UnixMilli(), now.UnixMilli())
	if err != nil {
		return apperrors.NewStoreUnavailable("create row", err)
	}

	row.ID = id
	row.CreatedAt = time.UnixMilli(now.UnixMilli()).UTC()
	row.UpdatedAt = row.CreatedAt
	return nil
}

// UpdateRow overwrites table name, values and tags of an existing row
func (s *Store) UpdateRow(ctx context.Context, row *state.Row) error {
	rowData, tags, err := encodeRow(row)
	if err != nil {
		return fmt.Errorf("encoding row: %w", err)
	}

	now := s.now().UTC().UnixMilli()
	res, err := s.conn.ExecContext(ctx,
		`UPDATE dataset_rows SET table_name = ?, row_data = ?, tags = ?, tags_overridden = ?, updated_at = ? WHERE id = ?`,
		row.TableName, rowData, tags, boolInt(row.TagsOverridden), now, row.ID)
	if err != nil {
		return apperrors.NewStoreUnavailable("update row", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return apperrors.NewStoreUnavailable("update row", err)
	}
	if n == 0 {
		return apperrors.NewRowNotFound(row.ID)
	}
	row.UpdatedAt = time.UnixMilli(now).UTC()
	return nil
}

// DeleteRow removes the row and its relationships in one transaction
func (s *Store) DeleteRow(ctx context.Context, rowID string) (bool, error) {
	var deleted bool
	err := s.inTx(ctx, "delete row", func(tx *sql.Tx) error {
		if err := deleteRelationshipsForRow(ctx, tx, rowID); err != nil {
			return err
		}
		res, err := tx.ExecContext(ctx, `DELETE FROM dataset_rows WHERE id = ?`, rowID)
		if err != nil {
			return err
		}
		n, err := res.RowsAffected()
		if err != nil {
			return err
		}
		deleted = n > 0
		return nil
	})
	if err != nil {
		return false, err
	}
	return deleted, nil
}

// inTx runs fn in a transaction, rolling back on any error
func (s *Store) inTx(ctx context.Context, op string, fn func(tx *sql.Tx) error) error {
	tx, err := s.conn.BeginTx(ctx, nil)
	if err != nil {
		return apperrors.NewStoreUnavailable(op, err)
	}
	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			s.logger.Warn("Rollback failed", zap.String("operation", op), zap.Error(rbErr))
		}
		if apperrors.IsNotFound(err) {
			return err
		}
		return apperrors.NewStoreUnavailable(op, err)
	}
	if err := tx.Commit(); err != nil {
		return apperrors.NewStoreUnavailable(op, err)
	}
	return nil
}
