package mirror

import (
	"context"
	"fmt"

	"github.com/michael-lorenzo/pypi-dependency-graph/pkg/graph"
	"github.com/michael-lorenzo/pypi-dependency-graph/pkg/store"
)

// AdjacencyLines reads every non-stub record as an adjacency line
// "name dep1 dep2 ...", ordered by name.
func AdjacencyLines(ctx context.Context, st store.Store) ([]string, error) {
	adj, err := st.Adjacency(ctx)
	if err != nil {
		return nil, fmt.Errorf("read adjacency: %w", err)
	}
	lines := make([]string, len(adj))
	for i, a := range adj {
		lines[i] = a.Line()
	}
	return lines, nil
}

// BuildGraph assembles the dependency graph from the store. Every non-stub
// record becomes a node, as does every name it depends on, stored or not.
func BuildGraph(ctx context.Context, st store.Store) (*graph.Graph, error) {
	lines, err := AdjacencyLines(ctx, st)
	if err != nil {
		return nil, err
	}
	g, err := graph.ParseAdjList(lines)
	if err != nil {
		return nil, fmt.Errorf("build graph: %w", err)
	}
	return g, nil
}
