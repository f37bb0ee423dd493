package mirror

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/michael-lorenzo/pypi-dependency-graph/pkg/store"
	"github.com/michael-lorenzo/pypi-dependency-graph/pkg/store/memory"
)

func TestBuildGraph(t *testing.T) {
	ctx := context.Background()
	st := memory.New()
	seed(t, st,
		&store.Record{Name: "flask", LastSerial: 3, Info: info(), Requirements: "click jinja2"},
		&store.Record{Name: "jinja2", LastSerial: 2, Info: info(), Requirements: "markupsafe"},
		&store.Record{Name: "six", LastSerial: 1, Info: info()},
		&store.Record{Name: "loop", LastSerial: 1, Info: info(), Requirements: "loop"},
		store.NewStub("broken", 9),
	)

	lines, err := AdjacencyLines(ctx, st)
	require.NoError(t, err)
	assert.Equal(t, []string{"flask click jinja2", "jinja2 markupsafe", "loop loop", "six"}, lines)

	g, err := BuildGraph(ctx, st)
	require.NoError(t, err)

	_, hasStub := g.Node("broken")
	assert.False(t, hasStub, "stubs are not graph nodes")
	_, hasTarget := g.Node("click")
	assert.True(t, hasTarget, "unstored dependencies still appear as targets")
	assert.Equal(t, 6, g.NodeCount())
	assert.Equal(t, 4, g.EdgeCount())
	assert.True(t, g.HasCycle())
}
