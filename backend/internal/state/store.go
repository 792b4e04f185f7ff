package state

import "context"

// RowStore persists rows. Implementations return *errors.ErrRowNotFound for
// unknown ids and *errors.ErrStoreUnavailable when the backend fails.
type RowStore interface {
	FindRowByID(ctx context.Context, rowID string) (*Row, error)
	// FindRows returns every row except excludeID; an empty excludeID excludes nothing.
	FindRows(ctx context.Context, excludeID string) ([]Row, error)
	// CreateRow assigns row.ID and timestamps and persists the row.
	CreateRow(ctx context.Context, row *Row) error
	UpdateRow(ctx context.Context, row *Row) error
	// DeleteRow removes the row and every relationship touching it in one transaction.
	DeleteRow(ctx context.Context, rowID string) (bool, error)
}

// RelationshipStore persists generated relationships
type RelationshipStore interface {
	// ReplaceRelationships deletes every relationship with rowID as either
	// endpoint and inserts rels, in one transaction. The row must still be
	// stored when the transaction runs, otherwise it returns ErrRowNotFound.
	ReplaceRelationships(ctx context.Context, rowID string, rels []Relationship) error
	FindRelationships(ctx context.Context) ([]Relationship, error)
}

// Store is a backend holding both rows and relationships
type Store interface {
	RowStore
	RelationshipStore
	Close(ctx context.Context) error
}
