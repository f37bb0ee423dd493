// Package memory implements [store.Store] with in-process maps.
package memory

import (
	"bytes"
	"context"
	"slices"
	"strings"
	"sync"

	"github.com/michael-lorenzo/pypi-dependency-graph/pkg/store"
)

// Store keeps records in memory. The zero value is not usable; use [New].
type Store struct {
	mu      sync.RWMutex
	records map[string]store.Record
}

// New returns an empty store.
func New() *Store {
	return &Store{records: make(map[string]store.Record)}
}

func (s *Store) Index(ctx context.Context) (store.Index, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ix := make(store.Index, len(s.records))
	for name, r := range s.records {
		ix[name] = store.Entry{Serial: r.LastSerial, Stub: r.IsStub()}
	}
	return ix, nil
}

func (s *Store) Get(ctx context.Context, name string) (*store.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.records[name]
	if !ok {
		return nil, store.ErrNotFound
	}
	r.Info = bytes.Clone(r.Info)
	return &r, nil
}

func (s *Store) Upsert(ctx context.Context, r *store.Record) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	rec := *r
	rec.Info = bytes.Clone(r.Info)
	if rec.IsStub() {
		rec.Requirements = ""
	}
	s.mu.Lock()
	s.records[rec.Name] = rec
	s.mu.Unlock()
	return nil
}

func (s *Store) Delete(ctx context.Context, name string) error {
	s.mu.Lock()
	delete(s.records, name)
	s.mu.Unlock()
	return nil
}

func (s *Store) DeleteMany(ctx context.Context, names []string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, name := range names {
		delete(s.records, name)
	}
	return nil
}

func (s *Store) Adjacency(ctx context.Context) ([]store.Adjacency, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var adj []store.Adjacency
	for name, r := range s.records {
		if !r.IsStub() {
			adj = append(adj, store.Adjacency{Name: name, Requirements: r.Requirements})
		}
	}
	slices.SortFunc(adj, func(a, b store.Adjacency) int { return strings.Compare(a.Name, b.Name) })
	return adj, nil
}

func (s *Store) Count(ctx context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records), nil
}

func (s *Store) Close() error { return nil }

var _ store.Store = (*Store)(nil)
