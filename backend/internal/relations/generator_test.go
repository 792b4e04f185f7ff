package relations

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tablegraph/backend/internal/constants"
	"tablegraph/backend/internal/memstore"
	"tablegraph/backend/internal/state"
	apperrors "tablegraph/backend/pkg/errors"
)

func addRow(t *testing.T, s *memstore.Store, table string, pairs ...string) *state.Row {
	t.Helper()
	row := &state.Row{TableName: table, RowData: state.ValuesOf(pairs...)}
	require.NoError(t, s.CreateRow(context.Background(), row))
	return row
}

func byReason(rels []state.Relationship, reason string) []state.Relationship {
	var out []state.Relationship
	for _, r := range rels {
		if r.Reason == reason {
			out = append(out, r)
		}
	}
	return out
}

func touching(rels []state.Relationship, rowID string) []state.Relationship {
	var out []state.Relationship
	for _, r := range rels {
		if r.Touches(rowID) {
			out = append(out, r)
		}
	}
	return out
}

func TestRegenerate_IntraRowFourColumns(t *testing.T) {
	ctx := context.Background()
	store := memstore.New()
	r1 := addRow(t, store, "T", "a", "mars", "b", "red", "c", "5km", "d", "title")

	gen := NewGenerator(store, store, NewSeededSource(1))
	rels, err := gen.Regenerate(ctx, r1.ID)
	require.NoError(t, err)

	intra := byReason(rels, constants.ReasonIntraRow)
	// with four columns every column links to all three others
	require.Len(t, intra, 4*constants.IntraRowFanout)

	targetsBySource := map[string]map[string]bool{}
	for _, r := range intra {
		assert.Equal(t, r1.ID, r.From.RowID)
		assert.Equal(t, r1.ID, r.To.RowID)
		assert.NotEqual(t, r.From.Column, r.To.Column)
		if targetsBySource[r.From.Column] == nil {
			targetsBySource[r.From.Column] = map[string]bool{}
		}
		targetsBySource[r.From.Column][r.To.Column] = true

		want, _ := r1.RowData.Get(r.To.Column)
		assert.Equal(t, want, r.To.Value)
	}
	assert.Len(t, targetsBySource, 4, "every column is a source")
	for col, targets := range targetsBySource {
		assert.Len(t, targets, constants.IntraRowFanout, "column %s", col)
	}

	// no other rows, so no semantic relationships
	assert.Empty(t, byReason(rels, constants.ReasonSemantic))
}

func TestRegenerate_IntraRowSamplesThreeOfMany(t *testing.T) {
	ctx := context.Background()
	store := memstore.New()
	row := addRow(t, store, "T", "c0", "v0", "c1", "v1", "c2", "v2", "c3", "v3", "c4", "v4", "c5", "v5", "c6", "v6")

	rels, err := NewGenerator(store, store, NewSeededSource(7)).Regenerate(ctx, row.ID)
	require.NoError(t, err)

	intra := byReason(rels, constants.ReasonIntraRow)
	require.Len(t, intra, 7*constants.IntraRowFanout)

	counts := map[string]int{}
	for _, r := range intra {
		counts[r.From.Column]++
		assert.NotEqual(t, r.From.Column, r.To.Column)
	}
	for _, c := range row.RowData.Columns() {
		assert.Equal(t, constants.IntraRowFanout, counts[c], c)
	}
}

func TestRegenerate_FewerThanFourColumns(t *testing.T) {
	ctx := context.Background()
	store := memstore.New()
	row := addRow(t, store, "T", "a", "x", "b", "y", "c", "z")

	rels, err := NewGenerator(store, store, NewSeededSource(1)).Regenerate(ctx, row.ID)
	require.NoError(t, err)
	assert.Empty(t, byReason(rels, constants.ReasonIntraRow))
}

func TestRegenerate_InterRowWithSmallRows(t *testing.T) {
	ctx := context.Background()
	store := memstore.New()
	r1 := addRow(t, store, "T1", "a", "x", "b", "y")
	r2 := addRow(t, store, "T2", "a", "x", "b", "y", "c", "z")
	r3 := addRow(t, store, "T3", "k", "mars")

	rels, err := NewGenerator(store, store, NewSeededSource(3)).Regenerate(ctx, r3.ID)
	require.NoError(t, err)

	semantic := byReason(rels, constants.ReasonSemantic)
	require.Len(t, semantic, 2)

	out, in := semantic[0], semantic[1]
	assert.Equal(t, r3.ID, out.From.RowID)
	assert.Equal(t, "k", out.From.Column)
	assert.Contains(t, []string{r1.ID, r2.ID}, out.To.RowID)

	assert.Equal(t, r3.ID, in.To.RowID)
	assert.Equal(t, out.From, in.To, "both edges share this row's chosen column")
	assert.Contains(t, []string{r1.ID, r2.ID}, in.From.RowID)
}

func TestRegenerate_InterRowSkipsEmptyRow(t *testing.T) {
	ctx := context.Background()
	store := memstore.New()
	addRow(t, store, "Empty")
	row := addRow(t, store, "T", "a", "x")

	rels, err := NewGenerator(store, store, NewSeededSource(1)).Regenerate(ctx, row.ID)
	require.NoError(t, err)
	assert.Empty(t, rels)
}

func TestRegenerate_InterRowSkipsWhenAlone(t *testing.T) {
	ctx := context.Background()
	store := memstore.New()
	row := addRow(t, store, "T", "a", "x")

	rels, err := NewGenerator(store, store, nil).Regenerate(ctx, row.ID)
	require.NoError(t, err)
	assert.Empty(t, rels)
}

// selfLeakingRows returns the excluded row too, which forces a self draw
type selfLeakingRows struct {
	*memstore.Store
}

func (s selfLeakingRows) FindRows(ctx context.Context, excludeID string) ([]state.Row, error) {
	return s.Store.FindRows(ctx, "")
}

func TestRegenerate_InterRowSkipsSelfDraw(t *testing.T) {
	ctx := context.Background()
	store := memstore.New()
	row := addRow(t, store, "T", "a", "x", "b", "y", "c", "z", "d", "w")

	rels, err := NewGenerator(selfLeakingRows{store}, store, NewSeededSource(1)).Regenerate(ctx, row.ID)
	require.NoError(t, err)

	assert.Empty(t, byReason(rels, constants.ReasonSemantic))
	assert.Len(t, byReason(rels, constants.ReasonIntraRow), 4*constants.IntraRowFanout)
}

func TestRegenerate_ReplacesPreviousRelationships(t *testing.T) {
	ctx := context.Background()
	store := memstore.New()
	other := addRow(t, store, "U", "a", "x")
	row := addRow(t, store, "T", "a", "mars", "b", "red", "c", "5km", "d", "title")

	stale := []state.Relationship{
		{From: row.Endpoint("a"), To: other.Endpoint("a"), Reason: "stale"},
		{From: other.Endpoint("a"), To: row.Endpoint("b"), Reason: "stale"},
	}
	unrelated := state.Relationship{From: state.Endpoint{RowID: "p"}, To: state.Endpoint{RowID: "q"}, Reason: "keep"}
	require.NoError(t, store.ReplaceRelationships(ctx, other.ID, append(stale, unrelated)))

	rels, err := NewGenerator(store, store, NewSeededSource(5)).Regenerate(ctx, row.ID)
	require.NoError(t, err)

	stored, err := store.FindRelationships(ctx)
	require.NoError(t, err)
	assert.ElementsMatch(t, rels, touching(stored, row.ID))
	assert.Empty(t, byReason(stored, "stale"))
	assert.Len(t, byReason(stored, "keep"), 1)
}

func TestRegenerate_NotFoundLeavesStoreUntouched(t *testing.T) {
	ctx := context.Background()
	store := memstore.New()
	seed := addRow(t, store, "T", "a", "x")
	kept := state.Relationship{From: state.Endpoint{RowID: "gone"}, To: state.Endpoint{RowID: "b"}, Reason: "keep"}
	require.NoError(t, store.ReplaceRelationships(ctx, seed.ID, []state.Relationship{kept}))

	_, err := NewGenerator(store, store, nil).Regenerate(ctx, "gone")
	require.Error(t, err)
	assert.True(t, apperrors.IsNotFound(err))

	stored, _ := store.FindRelationships(ctx)
	assert.Equal(t, []state.Relationship{kept}, stored)
}

type failingRows struct {
	*memstore.Store
}

func (f failingRows) FindRows(ctx context.Context, excludeID string) ([]state.Row, error) {
	return nil, apperrors.NewStoreUnavailable("find rows", errors.New("connection reset"))
}

func TestRegenerate_StoreFailureWritesNothing(t *testing.T) {
	ctx := context.Background()
	store := memstore.New()
	row := addRow(t, store, "T", "a", "mars", "b", "red", "c", "5km", "d", "title")

	_, err := NewGenerator(failingRows{store}, store, nil).Regenerate(ctx, row.ID)
	require.Error(t, err)
	assert.True(t, apperrors.IsRetryable(err))

	stored, _ := store.FindRelationships(ctx)
	assert.Empty(t, stored)
}

func TestRegenerate_SameSeedSameResult(t *testing.T) {
	ctx := context.Background()
	store := memstore.New()
	addRow(t, store, "U", "a", "x", "b", "y")
	addRow(t, store, "V", "a", "x", "b", "y", "c", "z")
	row := addRow(t, store, "T", "c0", "v0", "c1", "v1", "c2", "v2", "c3", "v3", "c4", "v4")

	first, err := NewGenerator(store, store, NewSeededSource(42)).Regenerate(ctx, row.ID)
	require.NoError(t, err)
	second, err := NewGenerator(store, store, NewSeededSource(42)).Regenerate(ctx, row.ID)
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestRegenerate_ConcurrentSameRow(t *testing.T) {
	ctx := context.Background()
	store := memstore.New()
	row := addRow(t, store, "T", "a", "mars", "b", "red", "c", "5km", "d", "title")
	gen := NewGenerator(store, store, nil)

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := gen.Regenerate(ctx, row.ID)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	stored, _ := store.FindRelationships(ctx)
	assert.Len(t, touching(stored, row.ID), 4*constants.IntraRowFanout)
	assert.Zero(t, gen.locks.size())
}

func TestRegenerateAll(t *testing.T) {
	ctx := context.Background()
	store := memstore.New()
	var ids []string
	for i := 0; i < 5; i++ {
		ids = append(ids, addRow(t, store, "T", "a", "1", "b", "2", "c", "3", "d", "4").ID)
	}

	gen := NewGenerator(store, store, Synchronized(NewSeededSource(9)))
	require.NoError(t, gen.RegenerateAll(ctx, ids, 2))

	stored, _ := store.FindRelationships(ctx)
	assert.NotEmpty(t, byReason(stored, constants.ReasonIntraRow))

	err := gen.RegenerateAll(ctx, append(ids, "missing"), 2)
	assert.True(t, apperrors.IsNotFound(err))
}

// deletingRows removes victim just before the inter-row scan, the way a
// concurrent delete landing between the fetch and the write would.
type deletingRows struct {
	*memstore.Store
	victim string
}

func (d deletingRows) FindRows(ctx context.Context, excludeID string) ([]state.Row, error) {
	if _, err := d.Store.DeleteRow(ctx, d.victim); err != nil {
		return nil, err
	}
	return d.Store.FindRows(ctx, excludeID)
}

func TestRegenerate_RowDeletedMidwayLeavesNoRelationships(t *testing.T) {
	ctx := context.Background()
	store := memstore.New()
	addRow(t, store, "U", "a", "mars")
	row := addRow(t, store, "T", "a", "mars", "b", "red", "c", "5km", "d", "title")

	_, err := NewGenerator(deletingRows{store, row.ID}, store, nil).Regenerate(ctx, row.ID)
	require.Error(t, err)
	assert.True(t, apperrors.IsNotFound(err))

	_, err = store.FindRowByID(ctx, row.ID)
	assert.True(t, apperrors.IsNotFound(err))
	stored, _ := store.FindRelationships(ctx)
	assert.Empty(t, touching(stored, row.ID))
}
