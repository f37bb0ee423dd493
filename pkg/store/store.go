// Package store defines the local mirror of registry metadata.
//
// A [Store] holds one [Record] per normalized package name. Backends live in
// subpackages:
//
//   - [sqlite]: single-file database, the default (pypi.db)
//   - [mongo]: a MongoDB collection, for mirrors shared by several readers
//   - [memory]: process-local maps, for tests and dry runs
//
// Only the reconciler writes to a store; the diff engine and graph builder
// read from it. Implementations must tolerate concurrent readers but may
// assume a single writer.
//
// [sqlite]: github.com/michael-lorenzo/pypi-dependency-graph/pkg/store/sqlite
// [mongo]: github.com/michael-lorenzo/pypi-dependency-graph/pkg/store/mongo
// [memory]: github.com/michael-lorenzo/pypi-dependency-graph/pkg/store/memory
package store

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
)

// ErrNotFound is returned by [Store.Get] when no record has the given name.
var ErrNotFound = errors.New("package not found in store")

// Record is the mirrored state of one package.
type Record struct {
	// Name is the PEP 503 normalized name. It never changes once stored.
	Name string

	// LastSerial is the serial the metadata was fetched at, or the snapshot
	// serial for a stub.
	LastSerial int64

	// Info is the registry's info document, verbatim. Nil marks a stub: the
	// package is known to exist but its metadata could not be fetched.
	Info json.RawMessage

	// Requirements is the space-joined, sorted list of normalized dependency
	// names. Always empty for stubs.
	Requirements string
}

// NewStub returns a stub record carrying the serial the snapshot reported.
func NewStub(name string, serial int64) *Record {
	return &Record{Name: name, LastSerial: serial}
}

// IsStub reports whether r has no metadata.
func (r *Record) IsStub() bool { return r.Info == nil }

// Dependencies splits Requirements into names.
func (r *Record) Dependencies() []string { return strings.Fields(r.Requirements) }

// Entry is the part of a record the diff engine needs.
type Entry struct {
	Serial int64
	Stub   bool
}

// Index maps every stored name to its serial and stub flag.
type Index map[string]Entry

// Serials returns name → serial.
func (ix Index) Serials() map[string]int64 {
	out := make(map[string]int64, len(ix))
	for name, e := range ix {
		out[name] = e.Serial
	}
	return out
}

// Adjacency is one non-stub record's contribution to the dependency graph.
type Adjacency struct {
	Name         string
	Requirements string
}

// Line returns the adjacency line "name dep1 dep2 ...".
func (a Adjacency) Line() string {
	return strings.TrimSpace(a.Name + " " + a.Requirements)
}

// Store persists package records.
type Store interface {
	// Index reads every name with its serial and stub flag, without loading
	// metadata.
	Index(ctx context.Context) (Index, error)

	// Get returns one record or [ErrNotFound].
	Get(ctx context.Context, name string) (*Record, error)

	// Upsert inserts r or replaces the record with the same name. Each call
	// is durable on return.
	Upsert(ctx context.Context, r *Record) error

	// Delete removes one record. Deleting a missing name is not an error.
	Delete(ctx context.Context, name string) error

	// DeleteMany removes all named records as one batch. Backends that
	// cannot make the batch atomic document what a failure leaves behind.
	DeleteMany(ctx context.Context, names []string) error

	// Adjacency returns (name, requirements) for every non-stub record,
	// ordered by name.
	Adjacency(ctx context.Context) ([]Adjacency, error)

	// Count returns the number of records, stubs included.
	Count(ctx context.Context) (int, error)

	Close() error
}
