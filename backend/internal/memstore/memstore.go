// Package memstore keeps rows and relationships in process memory.
// It backs the "memory" store driver and the package tests that need a real store.
package memstore

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"tablegraph/backend/internal/state"
	apperrors "tablegraph/backend/pkg/errors"
)

// Store is a mutex-guarded in-memory state.Store
type Store struct {
	mu    sync.RWMutex
	rows  map[string]state.Row
	order []string
	rels  []state.Relationship
	now   func() time.Time
}

// New returns an empty store
func New() *Store {
	return &Store{
		rows: make(map[string]state.Row),
		now:  time.Now,
	}
}

// Close implements state.Store
func (s *Store) Close(ctx context.Context) error {
	return nil
}

// FindRowByID returns a copy of the row
func (s *Store) FindRowByID(ctx context.Context, rowID string) (*state.Row, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row, ok := s.rows[rowID]
	if !ok {
		return nil, apperrors.NewRowNotFound(rowID)
	}
	out := copyRow(row)
	return &out, nil
}

// FindRows returns rows in creation order, skipping excludeID
func (s *Store) FindRows(ctx context.Context, excludeID string) ([]state.Row, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]state.Row, 0, len(s.order))
	for _, id := range s.order {
		if id == excludeID {
			continue
		}
		out = append(out, copyRow(s.rows[id]))
	}
	return out, nil
}

// CreateRow assigns an id and timestamps and stores a copy
func (s *Store) CreateRow(ctx context.Context, row *state.Row) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now().UTC()
	row.ID = uuid.New().String()
	row.CreatedAt = now
	row.UpdatedAt = now

	s.rows[row.ID] = copyRow(*row)
	s.order = append(s.order, row.ID)
	return nil
}

// UpdateRow overwrites an existing row
func (s *Store) UpdateRow(ctx context.Context, row *state.Row) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.rows[row.ID]
	if !ok {
		return apperrors.NewRowNotFound(row.ID)
	}
	row.CreatedAt = existing.CreatedAt
	row.UpdatedAt = s.now().UTC()
	s.rows[row.ID] = copyRow(*row)
	return nil
}

// DeleteRow removes the row and every relationship touching it
func (s *Store) DeleteRow(ctx context.Context, rowID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.rows[rowID]; !ok {
		return false, nil
	}
	delete(s.rows, rowID)
	for i, id := range s.order {
		if id == rowID {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	s.rels = withoutRow(s.rels, rowID)
	return true, nil
}

// ReplaceRelationships drops every relationship touching rowID and appends rels.
// It fails with a not-found error, changing nothing, once the row is gone.
func (s *Store) ReplaceRelationships(ctx context.Context, rowID string, rels []state.Relationship) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.rows[rowID]; !ok {
		return apperrors.NewRowNotFound(rowID)
	}
	s.rels = append(withoutRow(s.rels, rowID), rels...)
	return nil
}

// FindRelationships returns a copy of every stored relationship
func (s *Store) FindRelationships(ctx context.Context) ([]state.Relationship, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]state.Relationship, len(s.rels))
	copy(out, s.rels)
	return out, nil
}

func withoutRow(rels []state.Relationship, rowID string) []state.Relationship {
	kept := make([]state.Relationship, 0, len(rels))
	for _, r := range rels {
		if !r.Touches(rowID) {
			kept = append(kept, r)
		}
	}
	return kept
}

func copyRow(row state.Row) state.Row {
	row.RowData = row.RowData.Clone()
	tags := make([]string, len(row.Tags))
	copy(tags, row.Tags)
	row.Tags = tags
	return row
}
