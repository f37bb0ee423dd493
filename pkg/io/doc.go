// Package io writes dependency graphs to disk.
//
// # Formats
//
// [Export] picks an encoder by [Format]:
//
//   - gexf: GEXF 1.2 XML, the format Gephi and networkx read (default)
//   - json: {"nodes": [...], "edges": [...]} with node metadata
//   - dot: Graphviz source
//   - svg: the DOT source rendered through Graphviz
//
// [FormatFromPath] infers the format from a file extension so callers can
// accept a bare output path:
//
//	f, err := io.FormatFromPath("deps.json")
//	err = io.Export(g, "deps.json", f)
//
// # Overwrite Semantics
//
// Export writes to a temporary file next to the destination and renames it
// into place, so readers never observe a half-written graph and every run
// fully replaces the previous output.
//
// # JSON Format
//
//	{
//	  "nodes": [{"id": "flask"}, {"id": "jinja2"}],
//	  "edges": [{"from": "flask", "to": "jinja2"}]
//	}
//
// Node metadata is emitted under "meta" when present.
package io
