// Package datasets is the write path for rows: classify, persist, regenerate
// relationships, then notify subscribers.
package datasets

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"tablegraph/backend/internal/events"
	"tablegraph/backend/internal/graphview"
	"tablegraph/backend/internal/metrics"
	"tablegraph/backend/internal/relations"
	"tablegraph/backend/internal/state"
	"tablegraph/backend/internal/tagging"
	apperrors "tablegraph/backend/pkg/errors"
	"tablegraph/backend/pkg/logger"
)

// CreateInput is a new row as submitted by a client
type CreateInput struct {
	TableName string       `json:"table_name"`
	RowData   state.Values `json:"row_data"`
}

// UpdateInput changes a row. Nil fields are left as they are.
type UpdateInput struct {
	TableName *string       `json:"table_name"`
	RowData   *state.Values `json:"row_data"`
}

// Service coordinates the row store, classifier, generator and change broker
type Service struct {
	store       state.Store
	classifier  *tagging.Classifier
	generator   *relations.Generator
	assembler   *graphview.Assembler
	publisher   events.Publisher
	defaultHops int
	logger      *zap.Logger
}

// NewService wires a service. A nil publisher drops change events.
func NewService(store state.Store, classifier *tagging.Classifier, generator *relations.Generator, publisher events.Publisher, defaultHops int) *Service {
	if publisher == nil {
		publisher = discard{}
	}
	return &Service{
		store:       store,
		classifier:  classifier,
		generator:   generator,
		assembler:   graphview.NewAssembler(store),
		publisher:   publisher,
		defaultHops: defaultHops,
		logger:      logger.Named("datasets"),
	}
}

type discard struct{}

func (discard) Publish(events.Event) {}

// Create classifies and stores a row, then generates its relationships
func (s *Service) Create(ctx context.Context, in CreateInput) (*state.Row, error) {
	row := &state.Row{
		TableName: in.TableName,
		RowData:   in.RowData.Clone(),
	}
	if err := row.Validate(); err != nil {
		return nil, err
	}
	row.Tags = s.classifier.Classify(row.RowData)

	if err := s.store.CreateRow(ctx, row); err != nil {
		return nil, fmt.Errorf("creating row: %w", err)
	}
	metrics.RowWrites.WithLabelValues("create").Inc()

	if err := s.regenerate(ctx, row.ID); err != nil {
		return row, err
	}

	s.logger.Info("Row created",
		zap.String("row_id", row.ID),
		zap.String("table_name", row.TableName),
		zap.Strings("tags", row.Tags),
	)
	return row, nil
}

// Update applies in to the row. Changed values recompute the tags and drop any override.
func (s *Service) Update(ctx context.Context, rowID string, in UpdateInput) (*state.Row, error) {
	row, err := s.store.FindRowByID(ctx, rowID)
	if err != nil {
		return nil, err
	}

	if in.TableName != nil {
		row.TableName = *in.TableName
	}
	if in.RowData != nil && !in.RowData.Equal(row.RowData) {
		row.RowData = in.RowData.Clone()
		row.Tags = s.classifier.Classify(row.RowData)
		row.TagsOverridden = false
	}
	if err := row.Validate(); err != nil {
		return nil, err
	}

	if err := s.store.UpdateRow(ctx, row); err != nil {
		return nil, fmt.Errorf("updating row: %w", err)
	}
	metrics.RowWrites.WithLabelValues("update").Inc()

	// endpoints carry the table name and values, so any update regenerates
	if err := s.regenerate(ctx, row.ID); err != nil {
		return row, err
	}
	return row, nil
}

// OverrideTags replaces the computed tags with an explicit set.
// Tags must come from the classifier's alphabet and are stored in alphabet order.
func (s *Service) OverrideTags(ctx context.Context, rowID string, tags []string) (*state.Row, error) {
	normalized, err := s.normalizeTags(tags)
	if err != nil {
		return nil, err
	}

	row, err := s.store.FindRowByID(ctx, rowID)
	if err != nil {
		return nil, err
	}
	row.Tags = normalized
	row.TagsOverridden = true

	if err := s.store.UpdateRow(ctx, row); err != nil {
		return nil, fmt.Errorf("overriding tags: %w", err)
	}
	metrics.RowWrites.WithLabelValues("override_tags").Inc()
	s.publisher.Publish(events.GraphUpdated())
	return row, nil
}

func (s *Service) normalizeTags(tags []string) ([]string, error) {
	requested := make(map[string]bool, len(tags))
	for _, tag := range tags {
		if !s.classifier.Known(tag) {
			return nil, apperrors.NewValidationFailed("tags", fmt.Sprintf("unknown tag %q", tag))
		}
		requested[tag] = true
	}
	out := []string{}
	for _, tag := range s.classifier.Alphabet() {
		if requested[tag] {
			out = append(out, tag)
		}
	}
	return out, nil
}

// Delete removes the row and every relationship touching it
func (s *Service) Delete(ctx context.Context, rowID string) error {
	deleted, err := s.store.DeleteRow(ctx, rowID)
	if err != nil {
		return fmt.Errorf("deleting row: %w", err)
	}
	if !deleted {
		return apperrors.NewRowNotFound(rowID)
	}
	metrics.RowWrites.WithLabelValues("delete").Inc()
	s.publisher.Publish(events.GraphUpdated())

	s.logger.Info("Row deleted", zap.String("row_id", rowID))
	return nil
}

// Get returns one row
func (s *Service) Get(ctx context.Context, rowID string) (*state.Row, error) {
	return s.store.FindRowByID(ctx, rowID)
}

// List returns every row, oldest first
func (s *Service) List(ctx context.Context) ([]state.Row, error) {
	return s.store.FindRows(ctx, "")
}

// Regenerate recomputes the relationships of an existing row and notifies subscribers
func (s *Service) Regenerate(ctx context.Context, rowID string) ([]state.Relationship, error) {
	rels, err := s.generator.Regenerate(ctx, rowID)
	if err != nil {
		return nil, err
	}
	s.publisher.Publish(events.GraphUpdated())
	return rels, nil
}

func (s *Service) regenerate(ctx context.Context, rowID string) error {
	_, err := s.Regenerate(ctx, rowID)
	if err != nil {
		s.logger.Error("Relationship regeneration failed",
			zap.String("row_id", rowID),
			zap.Error(err),
		)
	}
	return err
}

// Graph assembles the whole relationship graph
func (s *Service) Graph(ctx context.Context) (*graphview.Graph, error) {
	return s.assembler.Build(ctx)
}

// Neighborhood returns the nodes within hops of focus and the links among them.
// A negative hops uses the configured default.
func (s *Service) Neighborhood(ctx context.Context, focus string, hops int) (*graphview.Neighborhood, error) {
	g, err := s.assembler.Build(ctx)
	if err != nil {
		return nil, err
	}
	if hops < 0 {
		hops = s.defaultHops
	}
	return graphview.Highlight(g, focus, hops), nil
}
