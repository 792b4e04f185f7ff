// Package relations generates the relationships of a row whenever its data changes.
package relations

import (
	"context"
	"fmt"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"tablegraph/backend/internal/constants"
	"tablegraph/backend/internal/metrics"
	"tablegraph/backend/internal/state"
	apperrors "tablegraph/backend/pkg/errors"
	"tablegraph/backend/pkg/logger"
)

// RowSource is the read side of the row store the generator needs
type RowSource interface {
	FindRowByID(ctx context.Context, rowID string) (*state.Row, error)
	FindRows(ctx context.Context, excludeID string) ([]state.Row, error)
}

// RelationshipSink is the write side of the relationship store the generator needs
type RelationshipSink interface {
	ReplaceRelationships(ctx context.Context, rowID string, rels []state.Relationship) error
}

// Inter-row skip causes
const (
	skipEmptyPool    = "empty_pool"
	skipSelf         = "self_selected"
	skipEmptyColumns = "empty_columns"
)

// Generator recomputes the relationships owned by a row.
// Calls for the same row are serialized; calls for different rows run in parallel.
type Generator struct {
	rows   RowSource
	rels   RelationshipSink
	rng    Source
	locks  *rowLocks
	logger *zap.Logger
}

// NewGenerator creates a generator. A nil rng uses the runtime's global generator;
// a non-nil rng must be safe for concurrent use if Regenerate is called concurrently.
func NewGenerator(rows RowSource, rels RelationshipSink, rng Source) *Generator {
	if rng == nil {
		rng = globalSource{}
	}
	return &Generator{
		rows:   rows,
		rels:   rels,
		rng:    rng,
		locks:  newRowLocks(),
		logger: logger.Named("relations"),
	}
}

// Regenerate replaces every relationship touching rowID with a freshly sampled set
// and returns that set. The row is fetched before anything is deleted, so a row
// removed concurrently yields a not-found error and leaves the store untouched.
func (g *Generator) Regenerate(ctx context.Context, rowID string) ([]state.Relationship, error) {
	unlock := g.locks.lock(rowID)
	defer unlock()

	row, err := g.rows.FindRowByID(ctx, rowID)
	if err != nil {
		if apperrors.IsNotFound(err) {
			metrics.Regenerations.WithLabelValues("not_found").Inc()
		} else {
			metrics.Regenerations.WithLabelValues("error").Inc()
		}
		return nil, fmt.Errorf("regenerating relationships for %s: %w", rowID, err)
	}

	rels := g.intraRow(row)

	semantic, err := g.interRow(ctx, row)
	if err != nil {
		metrics.Regenerations.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("regenerating relationships for %s: %w", rowID, err)
	}
	rels = append(rels, semantic...)

	if err := g.rels.ReplaceRelationships(ctx, row.ID, rels); err != nil {
		metrics.Regenerations.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("regenerating relationships for %s: %w", rowID, err)
	}

	metrics.Regenerations.WithLabelValues("ok").Inc()
	metrics.RelationshipsGenerated.WithLabelValues(constants.ReasonIntraRow).Add(float64(len(rels) - len(semantic)))
	metrics.RelationshipsGenerated.WithLabelValues(constants.ReasonSemantic).Add(float64(len(semantic)))

	g.logger.Debug("Relationships regenerated",
		zap.String("row_id", row.ID),
		zap.String("table", row.TableName),
		zap.Int("intra_row", len(rels)-len(semantic)),
		zap.Int("semantic", len(semantic)),
	)
	return rels, nil
}

// RegenerateAll regenerates each row with at most parallelism calls in flight.
// The first failure cancels the remaining work.
func (g *Generator) RegenerateAll(ctx context.Context, rowIDs []string, parallelism int) error {
	eg, ctx := errgroup.WithContext(ctx)
	if parallelism > 0 {
		eg.SetLimit(parallelism)
	}
	for _, id := range rowIDs {
		eg.Go(func() error {
			_, err := g.Regenerate(ctx, id)
			return err
		})
	}
	return eg.Wait()
}

// intraRow links every column to IntraRowFanout other columns of the same row,
// chosen by shuffling the remaining columns. Rows below IntraRowMinColumns get none.
func (g *Generator) intraRow(row *state.Row) []state.Relationship {
	columns := row.RowData.Columns()
	if len(columns) < constants.IntraRowMinColumns {
		return nil
	}

	rels := make([]state.Relationship, 0, len(columns)*constants.IntraRowFanout)
	for _, from := range columns {
		others := make([]string, 0, len(columns)-1)
		for _, c := range columns {
			if c != from {
				others = append(others, c)
			}
		}
		g.rng.Shuffle(len(others), func(i, j int) {
			others[i], others[j] = others[j], others[i]
		})

		source := row.Endpoint(from)
		for _, to := range others[:constants.IntraRowFanout] {
			rels = append(rels, state.Relationship{
				From:   source,
				To:     row.Endpoint(to),
				Reason: constants.ReasonIntraRow,
			})
		}
	}
	return rels
}

// interRow draws a "to" row and a "from" row from every other row and links them
// through one column of this row. Degenerate draws skip the pass without error.
func (g *Generator) interRow(ctx context.Context, row *state.Row) ([]state.Relationship, error) {
	pool, err := g.rows.FindRows(ctx, row.ID)
	if err != nil {
		return nil, err
	}
	if len(pool) == 0 {
		g.skip(row, skipEmptyPool)
		return nil, nil
	}

	to := &pool[g.rng.IntN(len(pool))]
	from := &pool[g.rng.IntN(len(pool))]
	if to.ID == row.ID || from.ID == row.ID {
		g.skip(row, skipSelf)
		return nil, nil
	}
	if row.RowData.Len() == 0 || from.RowData.Len() == 0 || to.RowData.Len() == 0 {
		g.skip(row, skipEmptyColumns)
		return nil, nil
	}

	myCol := g.pick(row)
	fromCol := g.pick(from)
	toCol := g.pick(to)

	mine := row.Endpoint(myCol)
	return []state.Relationship{
		{From: mine, To: to.Endpoint(toCol), Reason: constants.ReasonSemantic},
		{From: from.Endpoint(fromCol), To: mine, Reason: constants.ReasonSemantic},
	}, nil
}

func (g *Generator) pick(row *state.Row) string {
	columns := row.RowData.Columns()
	return columns[g.rng.IntN(len(columns))]
}

func (g *Generator) skip(row *state.Row, cause string) {
	metrics.InterRowSkips.WithLabelValues(cause).Inc()
	g.logger.Debug("Inter-row pass skipped",
		zap.String("row_id", row.ID),
		zap.String("cause", cause),
	)
}
