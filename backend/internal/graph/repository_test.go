package graph

import (
	"context"
	"os"
	"testing"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tablegraph/backend/internal/state"
	apperrors "tablegraph/backend/pkg/errors"
)

// These tests require a running Neo4j instance.
// Set NEO4J_URI, NEO4J_USER, NEO4J_PASSWORD to point at it.
func newTestStore(t *testing.T) *Store {
	t.Helper()
	if testing.Short() {
		t.Skip("Skipping integration test")
	}

	ctx := context.Background()
	store, err := Connect(ctx, envOr("NEO4J_URI", "bolt://localhost:7687"), envOr("NEO4J_USER", "neo4j"), envOr("NEO4J_PASSWORD", "password"))
	if err != nil {
		t.Skipf("Neo4j not reachable: %v", err)
	}
	require.NoError(t, store.EnsureSchema(ctx))

	t.Cleanup(func() {
		session := store.driver.NewSession(ctx, neo4j.SessionConfig{AccessMode: neo4j.AccessModeWrite})
		defer session.Close(ctx)
		_, _ = session.Run(ctx, "MATCH (n) WHERE n:Row OR n:Field DETACH DELETE n", nil)
		store.Close(ctx)
	})
	return store
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func TestStore_RowLifecycle(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	row := &state.Row{
		TableName: "Planets",
		RowData:   state.ValuesOf("name", "mars", "color", "red"),
		Tags:      []string{"P", "C"},
	}
	require.NoError(t, store.CreateRow(ctx, row))

	got, err := store.FindRowByID(ctx, row.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"name", "color"}, got.RowData.Columns())
	assert.Equal(t, []string{"P", "C"}, got.Tags)

	row.Tags = []string{"N"}
	row.TagsOverridden = true
	require.NoError(t, store.UpdateRow(ctx, row))
	got, err = store.FindRowByID(ctx, row.ID)
	require.NoError(t, err)
	assert.True(t, got.TagsOverridden)

	deleted, err := store.DeleteRow(ctx, row.ID)
	require.NoError(t, err)
	assert.True(t, deleted)

	_, err = store.FindRowByID(ctx, row.ID)
	assert.True(t, apperrors.IsNotFound(err))
}

func createRow(t *testing.T, store *Store, value string) string {
	t.Helper()
	row := &state.Row{TableName: "T", RowData: state.ValuesOf("c", value)}
	require.NoError(t, store.CreateRow(context.Background(), row))
	return row.ID
}

func TestStore_ReplaceRelationships(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	a := state.Endpoint{TableName: "T", RowID: createRow(t, store, "1"), Column: "c", Value: "1"}
	b := state.Endpoint{TableName: "T", RowID: createRow(t, store, "2"), Column: "c", Value: "2"}
	c := state.Endpoint{TableName: "T", RowID: createRow(t, store, "3"), Column: "c", Value: "3"}

	require.NoError(t, store.ReplaceRelationships(ctx, a.RowID, []state.Relationship{
		{From: a, To: b, Reason: "semantic"},
		{From: c, To: a, Reason: "semantic"},
	}))
	require.NoError(t, store.ReplaceRelationships(ctx, b.RowID, []state.Relationship{
		{From: b, To: c, Reason: "semantic"},
	}))

	rels, err := store.FindRelationships(ctx)
	require.NoError(t, err)
	assert.ElementsMatch(t, []state.Relationship{
		{From: c, To: a, Reason: "semantic"},
		{From: b, To: c, Reason: "semantic"},
	}, rels)
}

func TestStore_ReplaceRelationshipsForDeletedRow(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	a := state.Endpoint{TableName: "T", RowID: createRow(t, store, "1"), Column: "c", Value: "1"}
	b := state.Endpoint{TableName: "T", RowID: createRow(t, store, "2"), Column: "c", Value: "2"}

	deleted, err := store.DeleteRow(ctx, a.RowID)
	require.NoError(t, err)
	require.True(t, deleted)

	err = store.ReplaceRelationships(ctx, a.RowID, []state.Relationship{{From: a, To: b, Reason: "semantic"}})
	assert.True(t, apperrors.IsNotFound(err))

	rels, err := store.FindRelationships(ctx)
	require.NoError(t, err)
	assert.Empty(t, rels)
}
