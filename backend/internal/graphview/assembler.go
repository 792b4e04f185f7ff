// Package graphview turns stored rows and relationships into the node/link
// structure drawn by the force-directed client, and computes highlight sets on it.
package graphview

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"tablegraph/backend/internal/constants"
	"tablegraph/backend/internal/metrics"
	"tablegraph/backend/internal/state"
	"tablegraph/backend/pkg/logger"
)

// Node is one distinct field occurrence. It only exists for one response.
type Node struct {
	ID    string   `json:"id"`
	Label string   `json:"label"`
	Group string   `json:"group"`
	Tags  []string `json:"tags"`
	// Char is Tags joined for display, or N/A when the row is gone or untagged.
	Char string `json:"char"`
}

// Link is one relationship between two nodes
type Link struct {
	Source string `json:"source"`
	Target string `json:"target"`
	Reason string `json:"reason"`
	Value  int    `json:"value"`
}

// Graph is the assembled response. Parallel links are kept as they are.
type Graph struct {
	Nodes []Node `json:"nodes"`
	Links []Link `json:"links"`
}

// Source is the read side of the stores the assembler needs
type Source interface {
	FindRows(ctx context.Context, excludeID string) ([]state.Row, error)
	FindRelationships(ctx context.Context) ([]state.Relationship, error)
}

// Assembler builds graphs on demand and holds no state between calls
type Assembler struct {
	source Source
	logger *zap.Logger
}

// NewAssembler creates an assembler reading from source
func NewAssembler(source Source) *Assembler {
	return &Assembler{
		source: source,
		logger: logger.Named("graphview"),
	}
}

// Build reads every relationship and row and assembles the graph.
// A store failure fails the whole call.
func (a *Assembler) Build(ctx context.Context) (*Graph, error) {
	start := time.Now()

	var (
		rows []state.Row
		rels []state.Relationship
	)
	eg, egCtx := errgroup.WithContext(ctx)
	eg.Go(func() error {
		var err error
		rows, err = a.source.FindRows(egCtx, "")
		return err
	})
	eg.Go(func() error {
		var err error
		rels, err = a.source.FindRelationships(egCtx)
		return err
	})
	if err := eg.Wait(); err != nil {
		return nil, fmt.Errorf("building graph: %w", err)
	}

	g := Assemble(rows, rels)

	metrics.GraphBuildDuration.Observe(time.Since(start).Seconds())
	metrics.GraphSize.WithLabelValues("nodes").Set(float64(len(g.Nodes)))
	metrics.GraphSize.WithLabelValues("links").Set(float64(len(g.Links)))
	a.logger.Debug("Graph assembled",
		zap.Int("nodes", len(g.Nodes)),
		zap.Int("links", len(g.Links)),
		zap.Duration("took", time.Since(start)),
	)
	return g, nil
}

type rowKey struct {
	table string
	id    string
}

// Assemble deduplicates relationship endpoints into nodes keyed by
// table:rowId:column, in first-seen order, and maps every relationship to one link.
func Assemble(rows []state.Row, rels []state.Relationship) *Graph {
	tagsByRow := make(map[rowKey][]string, len(rows))
	for _, r := range rows {
		tagsByRow[rowKey{r.TableName, r.ID}] = r.Tags
	}

	g := &Graph{
		Nodes: []Node{},
		Links: make([]Link, 0, len(rels)),
	}
	seen := make(map[string]bool)

	addNode := func(ep state.Endpoint) string {
		id := ep.NodeID()
		if seen[id] {
			return id
		}
		seen[id] = true

		tags, found := tagsByRow[rowKey{ep.TableName, ep.RowID}]
		if tags == nil {
			tags = []string{}
		}
		char := strings.Join(tags, ", ")
		if !found || char == "" {
			char = constants.MissingTags
		}
		g.Nodes = append(g.Nodes, Node{
			ID:    id,
			Label: ep.Value,
			Group: ep.TableName,
			Tags:  tags,
			Char:  char,
		})
		return id
	}

	for _, rel := range rels {
		source := addNode(rel.From)
		target := addNode(rel.To)

		reason := rel.Reason
		if reason == "" {
			reason = constants.ReasonUnknown
		}
		g.Links = append(g.Links, Link{
			Source: source,
			Target: target,
			Reason: reason,
			Value:  constants.EdgeWeight,
		})
	}
	return g
}
