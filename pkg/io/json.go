package io

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/michael-lorenzo/pypi-dependency-graph/pkg/graph"
)

type jsonGraph struct {
	Nodes []jsonNode `json:"nodes"`
	Edges []jsonEdge `json:"edges"`
}

type jsonNode struct {
	ID   string         `json:"id"`
	Meta graph.Metadata `json:"meta,omitempty"`
}

type jsonEdge struct {
	From string `json:"from"`
	To   string `json:"to"`
}

// WriteJSON encodes g as indented JSON. Nodes are sorted by ID; edges keep
// insertion order.
func WriteJSON(w io.Writer, g *graph.Graph) error {
	nodes := g.Nodes()
	edges := g.Edges()
	out := jsonGraph{
		Nodes: make([]jsonNode, len(nodes)),
		Edges: make([]jsonEdge, len(edges)),
	}
	for i, n := range nodes {
		out.Nodes[i] = jsonNode{ID: n.ID, Meta: n.Meta}
	}
	for i, e := range edges {
		out.Edges[i] = jsonEdge{From: e.From, To: e.To}
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(out); err != nil {
		return fmt.Errorf("encode: %w", err)
	}
	return nil
}
