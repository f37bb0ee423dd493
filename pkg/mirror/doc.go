// Package mirror keeps a local store in step with the PyPI index.
//
// # Reconciliation
//
// A pass takes a snapshot of every project and its serial from the registry,
// compares it with the store's index ([Diff]) and applies the resulting
// [Plan] in three phases:
//
//  1. create: fetch metadata for new projects; a failed fetch stores a stub
//  2. update: refetch projects whose serial moved, and every stub
//  3. delete: drop projects the registry no longer lists, in one batch
//
// A failed fetch never fails the pass. It degrades to a stub on create and
// leaves the stored record untouched on update. Store write failures and
// context cancellation abort the pass.
//
// Usage:
//
//	r := mirror.NewReconciler(pypiClient, db, mirror.Options{Workers: 8})
//	result, err := r.Run(ctx)
//
// # Graph
//
// [BuildGraph] turns the stored requirements into a [graph.Graph], one
// adjacency line per non-stub record.
//
// [graph.Graph]: github.com/michael-lorenzo/pypi-dependency-graph/pkg/graph.Graph
package mirror
