// Package pkg provides the libraries behind pypigraph, a local mirror of
// PyPI metadata and the dependency graph derived from it.
//
// # Overview
//
// The pkg directory is organized by concern:
//
//  1. [integrations] - Registry clients (PEP 691 simple index, JSON API)
//  2. [deps/python] - PEP 440 versions, PEP 508 requirements and markers
//  3. [store] - The local mirror: SQLite, MongoDB and in-memory backends
//  4. [mirror] - Diff engine and reconciler
//  5. [graph] - Directed dependency graph
//  6. [io] - Graph export (GEXF, JSON, DOT, SVG)
//  7. [cache] - Metadata response caching (file, memory, Redis)
//
// # Architecture
//
// One reconciliation pass flows through the packages like this:
//
//	PyPI simple index        (integrations/pypi: ListProjects)
//	         ↓
//	snapshot ⟷ store index   (mirror: Diff)
//	         ↓
//	create / update / delete (mirror: Reconciler, integrations/pypi: FetchMetadata,
//	         ↓                deps/python: RequirementsFromInfo)
//	store adjacency          (store: Adjacency)
//	         ↓
//	graph                    (mirror: BuildGraph, graph: ParseAdjList)
//	         ↓
//	pypi.gexf                (io: Export)
//
// Cross-cutting packages: [observability] for metrics hooks, [errors] for
// coded errors surfaced by the CLI and HTTP API, [buildinfo] for version
// metadata.
//
// [integrations]: github.com/michael-lorenzo/pypi-dependency-graph/pkg/integrations
// [deps/python]: github.com/michael-lorenzo/pypi-dependency-graph/pkg/deps/python
// [store]: github.com/michael-lorenzo/pypi-dependency-graph/pkg/store
// [mirror]: github.com/michael-lorenzo/pypi-dependency-graph/pkg/mirror
// [graph]: github.com/michael-lorenzo/pypi-dependency-graph/pkg/graph
// [io]: github.com/michael-lorenzo/pypi-dependency-graph/pkg/io
// [cache]: github.com/michael-lorenzo/pypi-dependency-graph/pkg/cache
// [observability]: github.com/michael-lorenzo/pypi-dependency-graph/pkg/observability
// [errors]: github.com/michael-lorenzo/pypi-dependency-graph/pkg/errors
// [buildinfo]: github.com/michael-lorenzo/pypi-dependency-graph/pkg/buildinfo
package pkg
