// Package seed fills a store with synthetic tables for demos and load tests.
package seed

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"tablegraph/backend/internal/relations"
	"tablegraph/backend/internal/state"
	"tablegraph/backend/internal/tagging"
	"tablegraph/backend/pkg/logger"
)

// Options controls the generated data set
type Options struct {
	Tables       int
	RowsPerTable int
	MinColumns   int
	MaxColumns   int
	// InjectPercent is the chance, out of 100, that a value carries a rule keyword
	InjectPercent int
	Parallelism   int
	// Reset deletes every existing row first
	Reset bool
}

// DefaultOptions seeds 5 tables of 20 rows with 10 to 15 columns each
func DefaultOptions() Options {
	return Options{
		Tables:        5,
		RowsPerTable:  20,
		MinColumns:    10,
		MaxColumns:    15,
		InjectPercent: 40,
		Parallelism:   4,
	}
}

func (o Options) validate() error {
	switch {
	case o.Tables < 1 || o.RowsPerTable < 1:
		return fmt.Errorf("tables and rows per table must be positive")
	case o.MinColumns < 1 || o.MaxColumns < o.MinColumns:
		return fmt.Errorf("column range %d..%d is invalid", o.MinColumns, o.MaxColumns)
	case o.InjectPercent < 0 || o.InjectPercent > 100:
		return fmt.Errorf("inject percent %d is out of range", o.InjectPercent)
	}
	return nil
}

// Summary reports what a run produced
type Summary struct {
	Deleted int `json:"deleted"`
	Rows    int `json:"rows"`
}

// filler words contain no rule keyword in the default table
var filler = []string{
	"lorem", "ipsum", "dolor", "sit", "amet", "consectetur", "adipiscing", "elit",
	"sed", "do", "eiusmod", "tempor", "incididunt", "ut", "labore", "et", "dolore",
	"magna", "aliqua", "enim", "minim", "veniam", "quis", "nostrud",
}

// Seeder writes synthetic rows and then regenerates relationships for all of them
type Seeder struct {
	store      state.RowStore
	classifier *tagging.Classifier
	rules      []tagging.Rule
	generator  *relations.Generator
	rng        relations.Source
	logger     *zap.Logger
}

// NewSeeder creates a seeder. rules supply the injected keywords and should
// match the classifier. A nil rng gets a fixed seed, so runs repeat.
func NewSeeder(store state.RowStore, rules []tagging.Rule, generator *relations.Generator, rng relations.Source) *Seeder {
	if rng == nil {
		rng = relations.Synchronized(relations.NewSeededSource(uint64(len(rules)) + 1))
	}
	return &Seeder{
		store:      store,
		classifier: tagging.NewClassifier(rules),
		rules:      rules,
		generator:  generator,
		rng:        rng,
		logger:     logger.Named("seed"),
	}
}

// Run writes Tables x RowsPerTable rows named Table_1..Table_N and
// regenerates relationships once every row exists.
func (s *Seeder) Run(ctx context.Context, opts Options) (Summary, error) {
	var summary Summary
	if err := opts.validate(); err != nil {
		return summary, err
	}

	if opts.Reset {
		n, err := s.reset(ctx)
		if err != nil {
			return summary, err
		}
		summary.Deleted = n
	}

	ids := make([]string, 0, opts.Tables*opts.RowsPerTable)
	for t := 1; t <= opts.Tables; t++ {
		table := fmt.Sprintf("Table_%d", t)
		for i := 0; i < opts.RowsPerTable; i++ {
			row := &state.Row{TableName: table, RowData: s.values(opts)}
			row.Tags = s.classifier.Classify(row.RowData)
			if err := s.store.CreateRow(ctx, row); err != nil {
				return summary, fmt.Errorf("seeding %s row %d: %w", table, i, err)
			}
			ids = append(ids, row.ID)
		}
	}
	summary.Rows = len(ids)

	// regenerating after all inserts gives early rows the whole pool to draw from
	if err := s.generator.RegenerateAll(ctx, ids, opts.Parallelism); err != nil {
		return summary, fmt.Errorf("regenerating seeded rows: %w", err)
	}

	s.logger.Info("Seeding complete",
		zap.Int("tables", opts.Tables),
		zap.Int("rows", summary.Rows),
		zap.Int("deleted", summary.Deleted),
	)
	return summary, nil
}

func (s *Seeder) reset(ctx context.Context) (int, error) {
	rows, err := s.store.FindRows(ctx, "")
	if err != nil {
		return 0, err
	}
	for _, r := range rows {
		if _, err := s.store.DeleteRow(ctx, r.ID); err != nil {
			return 0, fmt.Errorf("resetting row %s: %w", r.ID, err)
		}
	}
	return len(rows), nil
}

func (s *Seeder) values(opts Options) state.Values {
	var v state.Values
	count := opts.MinColumns + s.rng.IntN(opts.MaxColumns-opts.MinColumns+1)
	for c := 0; c < count; c++ {
		v.Set(fmt.Sprintf("col_%d", c), s.value(opts))
	}
	return v
}

func (s *Seeder) value(opts Options) string {
	if len(s.rules) > 0 && s.rng.IntN(100) < opts.InjectPercent {
		rule := s.rules[s.rng.IntN(len(s.rules))]
		if len(rule.Keywords) > 0 {
			return "random " + rule.Keywords[s.rng.IntN(len(rule.Keywords))]
		}
	}
	return strings.Join([]string{
		filler[s.rng.IntN(len(filler))],
		filler[s.rng.IntN(len(filler))],
	}, " ")
}
