// Package graph provides the directed dependency graph built from the mirror.
//
// # Overview
//
// A [Graph] holds nodes keyed by normalized package name and directed edges
// meaning "requires". Unlike a layered DAG, cycles and self-loops are allowed:
// PyPI packages do depend on each other in circles.
//
// Parallel edges are collapsed, so AddEdge is idempotent.
//
// # Adjacency Lists
//
// The mirror stores each package's dependencies as one space-joined string,
// which flattens into adjacency lines:
//
//	flask click itsdangerous jinja2 werkzeug
//	jinja2 markupsafe
//	six
//
// [ParseAdjList] assembles a graph from such lines. The first field is the
// source node; every following field is a target. A line with a single field
// adds an isolated node. Text after "#" is ignored.
//
// # Queries
//
// Besides adjacency ([Graph.Children], [Graph.Parents]) the package answers
// the questions a pass summary asks: [Graph.HasCycle], [Graph.Sources],
// [Graph.Sinks] and [RankByInDegree].
//
// # Concurrency
//
// Graph is not safe for concurrent mutation. Concurrent reads are fine once
// construction is done.
package graph
