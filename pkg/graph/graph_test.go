package graph

import (
	"errors"
	"fmt"
	"slices"
	"testing"
)

func TestAddNode(t *testing.T) {
	g := New(nil)
	if err := g.AddNode(Node{ID: "a"}); err != nil {
		t.Fatalf("AddNode: %v", err)
	}
	if err := g.AddNode(Node{ID: "a"}); !errors.Is(err, ErrDuplicateNodeID) {
		t.Errorf("duplicate AddNode error = %v, want ErrDuplicateNodeID", err)
	}
	if err := g.AddNode(Node{}); !errors.Is(err, ErrInvalidNodeID) {
		t.Errorf("empty AddNode error = %v, want ErrInvalidNodeID", err)
	}
	n, ok := g.Node("a")
	if !ok || n.Meta == nil {
		t.Errorf("Node(a) = %+v, %v; want node with non-nil Meta", n, ok)
	}
}

func TestAddEdge(t *testing.T) {
	g := New(nil)
	_ = g.AddNode(Node{ID: "a"})
	_ = g.AddNode(Node{ID: "b"})

	tests := []struct {
		name string
		edge Edge
		want error
	}{
		{"valid", Edge{From: "a", To: "b"}, nil},
		{"duplicate is no-op", Edge{From: "a", To: "b"}, nil},
		{"self loop", Edge{From: "a", To: "a"}, nil},
		{"unknown source", Edge{From: "x", To: "b"}, ErrUnknownSourceNode},
		{"unknown target", Edge{From: "a", To: "x"}, ErrUnknownTargetNode},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := g.AddEdge(tt.edge); !errors.Is(err, tt.want) {
				t.Errorf("AddEdge(%v) = %v, want %v", tt.edge, err, tt.want)
			}
		})
	}

	if g.EdgeCount() != 2 {
		t.Errorf("EdgeCount = %d, want 2", g.EdgeCount())
	}
	if !g.HasEdge("a", "b") || g.HasEdge("b", "a") {
		t.Error("HasEdge direction mismatch")
	}
	if got := g.Children("a"); !slices.Equal(got, []string{"b", "a"}) {
		t.Errorf("Children(a) = %v", got)
	}
}

func TestSourcesAndSinks(t *testing.T) {
	g, err := ParseAdjList([]string{"app lib", "lib core", "tool core", "lonely"})
	if err != nil {
		t.Fatal(err)
	}

	ids := func(nodes []*Node) []string {
		var out []string
		for _, n := range nodes {
			out = append(out, n.ID)
		}
		return out
	}
	if got := ids(g.Sources()); !slices.Equal(got, []string{"app", "lonely", "tool"}) {
		t.Errorf("Sources = %v", got)
	}
	if got := ids(g.Sinks()); !slices.Equal(got, []string{"core", "lonely"}) {
		t.Errorf("Sinks = %v", got)
	}
	if g.InDegree("core") != 2 || g.OutDegree("app") != 1 {
		t.Errorf("degrees: in(core)=%d out(app)=%d", g.InDegree("core"), g.OutDegree("app"))
	}
}

func TestHasCycle(t *testing.T) {
	tests := []struct {
		name  string
		lines []string
		want  bool
	}{
		{"empty", nil, false},
		{"chain", []string{"a b", "b c"}, false},
		{"diamond", []string{"a b c", "b d", "c d"}, false},
		{"self loop", []string{"a a"}, true},
		{"two cycle", []string{"a b", "b a"}, true},
		{"cycle off the root", []string{"r a", "a b", "b c", "c a"}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g, err := ParseAdjList(tt.lines)
			if err != nil {
				t.Fatal(err)
			}
			if got := g.HasCycle(); got != tt.want {
				t.Errorf("HasCycle() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestHasCycleDeepChain(t *testing.T) {
	const depth = 200_000
	lines := make([]string, depth)
	for i := range lines {
		lines[i] = fmt.Sprintf("p%d p%d", i, i+1)
	}
	g, err := ParseAdjList(lines)
	if err != nil {
		t.Fatal(err)
	}
	if g.HasCycle() {
		t.Error("chain reported as cyclic")
	}
}

func TestParseAdjList(t *testing.T) {
	g, err := ParseAdjList([]string{
		"# header comment",
		"",
		"flask  click\twerkzeug  # trailing",
		"werkzeug markupsafe",
		"flask click",
	})
	if err != nil {
		t.Fatalf("ParseAdjList: %v", err)
	}

	var ids []string
	for _, n := range g.Nodes() {
		ids = append(ids, n.ID)
	}
	if want := []string{"click", "flask", "markupsafe", "werkzeug"}; !slices.Equal(ids, want) {
		t.Errorf("Nodes = %v, want %v", ids, want)
	}
	if g.EdgeCount() != 3 {
		t.Errorf("EdgeCount = %d, want 3", g.EdgeCount())
	}
}

func TestRankByInDegree(t *testing.T) {
	g, _ := ParseAdjList([]string{"a x y", "b x", "c y z"})
	got := RankByInDegree(g, 10)
	want := []Ranked{{"x", 2}, {"y", 2}, {"z", 1}, {"a", 0}, {"b", 0}, {"c", 0}}
	if !slices.Equal(got, want) {
		t.Errorf("RankByInDegree = %v, want %v", got, want)
	}
	if len(RankByInDegree(New(nil), 3)) != 0 {
		t.Error("empty graph should rank nothing")
	}
	if got := RankByInDegree(g, 2); !slices.Equal(got, want[:2]) {
		t.Errorf("RankByInDegree(g, 2) = %v", got)
	}
	if got := RankByInDegree(g, -1); len(got) != 0 {
		t.Errorf("RankByInDegree(g, -1) = %v, want empty", got)
	}
}
