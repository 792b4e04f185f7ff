package sqlstore

import (
	"context"
	"database/sql"
	"errors"

	"tablegraph/backend/internal/state"
	apperrors "tablegraph/backend/pkg/errors"
)

const relationshipColumns = `from_table, from_row_id, from_column, from_value,
	to_table, to_row_id, to_column, to_value, reason`

func deleteRelationshipsForRow(ctx context.Context, tx *sql.Tx, rowID string) error {
	_, err := tx.ExecContext(ctx,
		`DELETE FROM relationships WHERE from_row_id = ? OR to_row_id = ?`, rowID, rowID)
	return err
}

// ReplaceRelationships deletes every relationship touching rowID and inserts rels
// in the same transaction, so readers never see a half-written set. A row deleted
// before the transaction starts yields a not-found error and no writes.
func (s *Store) ReplaceRelationships(ctx context.Context, rowID string, rels []state.Relationship) error {
	return s.inTx(ctx, "replace relationships", func(tx *sql.Tx) error {
		var one int
		err := tx.QueryRowContext(ctx, `SELECT 1 FROM dataset_rows WHERE id = ?`, rowID).Scan(&one)
		if errors.Is(err, sql.ErrNoRows) {
			return apperrors.NewRowNotFound(rowID)
		}
		if err != nil {
			return err
		}

		if err := deleteRelationshipsForRow(ctx, tx, rowID); err != nil {
			return err
		}
		if len(rels) == 0 {
			return nil
		}

		stmt, err := tx.PrepareContext(ctx,
			`INSERT INTO relationships (`+relationshipColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`)
		if err != nil {
			return err
		}
		defer stmt.Close()

		for _, r := range rels {
			if _, err := stmt.ExecContext(ctx,
				r.From.TableName, r.From.RowID, r.From.Column, r.From.Value,
				r.To.TableName, r.To.RowID, r.To.Column, r.To.Value,
				r.Reason,
			); err != nil {
				return err
			}
		}
		return nil
	})
}

// FindRelationships returns every relationship in insertion order
func (s *Store) FindRelationships(ctx context.Context) ([]state.Relationship, error) {
	rows, err := s.conn.QueryContext(ctx,
		`SELECT `+relationshipColumns+` FROM relationships ORDER BY id`)
	if err != nil {
		return nil, apperrors.NewStoreUnavailable("find relationships", err)
	}
	defer rows.Close()

	out := []state.Relationship{}
	for rows.Next() {
		var r state.Relationship
		if err := rows.Scan(
			&r.From.TableName, &r.From.RowID, &r.From.Column, &r.From.Value,
			&r.To.TableName, &r.To.RowID, &r.To.Column, &r.To.Value,
			&r.Reason,
		); err != nil {
			return nil, apperrors.NewStoreUnavailable("find relationships", err)
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewStoreUnavailable("find relationships", err)
	}
	return out, nil
}
