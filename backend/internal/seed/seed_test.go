package seed

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tablegraph/backend/internal/memstore"
	"tablegraph/backend/internal/relations"
	"tablegraph/backend/internal/tagging"
)

func newTestSeeder(store *memstore.Store) *Seeder {
	rng := relations.Synchronized(relations.NewSeededSource(11))
	gen := relations.NewGenerator(store, store, rng)
	return NewSeeder(store, tagging.DefaultRules(), gen, rng)
}

func TestRun_Shape(t *testing.T) {
	ctx := context.Background()
	store := memstore.New()
	opts := Options{Tables: 2, RowsPerTable: 3, MinColumns: 10, MaxColumns: 15, InjectPercent: 40, Parallelism: 2}

	summary, err := newTestSeeder(store).Run(ctx, opts)
	require.NoError(t, err)
	assert.Equal(t, 6, summary.Rows)

	rows, err := store.FindRows(ctx, "")
	require.NoError(t, err)
	require.Len(t, rows, 6)

	classifier := tagging.NewClassifier(tagging.DefaultRules())
	tables := map[string]int{}
	for _, r := range rows {
		tables[r.TableName]++
		assert.GreaterOrEqual(t, r.RowData.Len(), 10)
		assert.LessOrEqual(t, r.RowData.Len(), 15)
		assert.Equal(t, "col_0", r.RowData.Columns()[0])
		assert.Equal(t, classifier.Classify(r.RowData), r.Tags, "tags agree with the classifier")
	}
	assert.Equal(t, map[string]int{"Table_1": 3, "Table_2": 3}, tables)

	rels, err := store.FindRelationships(ctx)
	require.NoError(t, err)
	assert.NotEmpty(t, rels)
}

func TestRun_InjectPercentExtremes(t *testing.T) {
	ctx := context.Background()

	store := memstore.New()
	_, err := newTestSeeder(store).Run(ctx, Options{Tables: 1, RowsPerTable: 2, MinColumns: 4, MaxColumns: 4, InjectPercent: 100})
	require.NoError(t, err)
	rows, _ := store.FindRows(ctx, "")
	for _, r := range rows {
		for _, v := range r.RowData.Texts() {
			assert.True(t, strings.HasPrefix(v, "random "), v)
		}
		assert.NotEmpty(t, r.Tags)
	}

	store = memstore.New()
	_, err = newTestSeeder(store).Run(ctx, Options{Tables: 1, RowsPerTable: 2, MinColumns: 4, MaxColumns: 4, InjectPercent: 0})
	require.NoError(t, err)
	rows, _ = store.FindRows(ctx, "")
	for _, r := range rows {
		assert.Empty(t, r.Tags)
	}
}

func TestRun_Reset(t *testing.T) {
	ctx := context.Background()
	store := memstore.New()
	s := newTestSeeder(store)
	opts := Options{Tables: 1, RowsPerTable: 2, MinColumns: 4, MaxColumns: 5, InjectPercent: 40}

	_, err := s.Run(ctx, opts)
	require.NoError(t, err)

	opts.Reset = true
	summary, err := s.Run(ctx, opts)
	require.NoError(t, err)
	assert.Equal(t, 2, summary.Deleted)

	rows, _ := store.FindRows(ctx, "")
	assert.Len(t, rows, 2)
}

func TestRun_InvalidOptions(t *testing.T) {
	s := newTestSeeder(memstore.New())
	_, err := s.Run(context.Background(), Options{Tables: 1, RowsPerTable: 1, MinColumns: 5, MaxColumns: 2})
	assert.Error(t, err)
	_, err = s.Run(context.Background(), Options{})
	assert.Error(t, err)
}
