package cli

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/michael-lorenzo/pypi-dependency-graph/pkg/graph"
	"github.com/michael-lorenzo/pypi-dependency-graph/pkg/mirror"
	"github.com/michael-lorenzo/pypi-dependency-graph/pkg/store"
)

func TestPrintPlanNames(t *testing.T) {
	plan := mirror.Diff(
		map[string]int64{"new": 1, "stale": 5, "same": 3},
		store.Index{"stale": {Serial: 2}, "same": {Serial: 3}, "gone": {Serial: 1}},
	)

	var quiet bytes.Buffer
	printPlan(&quiet, plan, false)
	assert.NotContains(t, quiet.String(), "same")

	var loud bytes.Buffer
	printPlan(&loud, plan, true)
	for _, name := range []string{"new", "stale", "gone", "same"} {
		assert.Contains(t, loud.String(), name)
	}
}

func TestPrintGraphSummary(t *testing.T) {
	g, err := graph.ParseAdjList([]string{
		"requests urllib3 idna certifi",
		"httpx idna certifi",
		"botocore urllib3",
	})
	require.NoError(t, err)

	var out bytes.Buffer
	printGraphStats(&out, g)
	line := out.String()
	assert.Contains(t, line, "6 nodes")
	assert.Contains(t, line, "6 edges")
	assert.Contains(t, line, "3 roots")
	assert.Contains(t, line, "3 leaves")
	assert.Contains(t, line, "acyclic")

	out.Reset()
	printTopDependents(&out, g, 2)
	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.Len(t, lines, 3)
	assert.Contains(t, lines[1], "certifi")
	assert.Contains(t, lines[2], "idna")

	out.Reset()
	printTopDependents(&out, g, 0)
	assert.Empty(t, out.String())
}
