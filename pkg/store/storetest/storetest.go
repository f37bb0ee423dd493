// Package storetest holds the behaviour every store backend must share.
package storetest

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/michael-lorenzo/pypi-dependency-graph/pkg/store"
)

// Opener returns an empty store. The suite closes it.
type Opener func(t *testing.T) store.Store

// Run executes the conformance suite against the backend open creates.
func Run(t *testing.T, open Opener) {
	tests := []struct {
		name string
		fn   func(t *testing.T, s store.Store)
	}{
		{"Empty", testEmpty},
		{"UpsertAndGet", testUpsertAndGet},
		{"UpsertReplaces", testUpsertReplaces},
		{"StubsAndIndex", testStubsAndIndex},
		{"Adjacency", testAdjacency},
		{"Delete", testDelete},
		{"DeleteMany", testDeleteMany},
		{"DeleteManyLarge", testDeleteManyLarge},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := open(t)
			t.Cleanup(func() { _ = s.Close() })
			tt.fn(t, s)
		})
	}
}

func full(name string, serial int64, reqs string) *store.Record {
	info := fmt.Sprintf(`{"name":%q,"requires_dist":null}`, name)
	return &store.Record{Name: name, LastSerial: serial, Info: json.RawMessage(info), Requirements: reqs}
}

func testEmpty(t *testing.T, s store.Store) {
	ctx := context.Background()

	ix, err := s.Index(ctx)
	require.NoError(t, err)
	assert.Empty(t, ix)

	n, err := s.Count(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)

	_, err = s.Get(ctx, "missing")
	assert.ErrorIs(t, err, store.ErrNotFound)

	adj, err := s.Adjacency(ctx)
	require.NoError(t, err)
	assert.Empty(t, adj)
}

func testUpsertAndGet(t *testing.T, s store.Store) {
	ctx := context.Background()
	rec := full("flask", 20512, "click werkzeug")
	require.NoError(t, s.Upsert(ctx, rec))

	got, err := s.Get(ctx, "flask")
	require.NoError(t, err)
	assert.Equal(t, "flask", got.Name)
	assert.Equal(t, int64(20512), got.LastSerial)
	assert.Equal(t, "click werkzeug", got.Requirements)
	assert.JSONEq(t, string(rec.Info), string(got.Info))
	assert.False(t, got.IsStub())
}

func testUpsertReplaces(t *testing.T, s store.Store) {
	ctx := context.Background()
	require.NoError(t, s.Upsert(ctx, store.NewStub("numpy", 5)))
	require.NoError(t, s.Upsert(ctx, full("numpy", 9, "")))

	got, err := s.Get(ctx, "numpy")
	require.NoError(t, err)
	assert.Equal(t, int64(9), got.LastSerial)
	assert.False(t, got.IsStub())
	assert.Equal(t, "", got.Requirements)

	n, err := s.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func testStubsAndIndex(t *testing.T, s store.Store) {
	ctx := context.Background()
	require.NoError(t, s.Upsert(ctx, full("a", 1, "b")))
	require.NoError(t, s.Upsert(ctx, store.NewStub("b", 2)))

	ix, err := s.Index(ctx)
	require.NoError(t, err)
	assert.Equal(t, store.Index{
		"a": {Serial: 1},
		"b": {Serial: 2, Stub: true},
	}, ix)

	stub, err := s.Get(ctx, "b")
	require.NoError(t, err)
	assert.True(t, stub.IsStub())
	assert.Nil(t, stub.Info)
	assert.Equal(t, "", stub.Requirements)
}

func testAdjacency(t *testing.T, s store.Store) {
	ctx := context.Background()
	require.NoError(t, s.Upsert(ctx, full("flask", 1, "click werkzeug")))
	require.NoError(t, s.Upsert(ctx, full("six", 1, "")))
	require.NoError(t, s.Upsert(ctx, store.NewStub("broken", 1)))
	require.NoError(t, s.Upsert(ctx, full("click", 1, "colorama")))

	adj, err := s.Adjacency(ctx)
	require.NoError(t, err)
	assert.Equal(t, []store.Adjacency{
		{Name: "click", Requirements: "colorama"},
		{Name: "flask", Requirements: "click werkzeug"},
		{Name: "six", Requirements: ""},
	}, adj)
}

func testDelete(t *testing.T, s store.Store) {
	ctx := context.Background()
	require.NoError(t, s.Upsert(ctx, full("a", 1, "")))

	require.NoError(t, s.Delete(ctx, "a"))
	require.NoError(t, s.Delete(ctx, "a"), "deleting a missing name is not an error")

	_, err := s.Get(ctx, "a")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func testDeleteMany(t *testing.T, s store.Store) {
	ctx := context.Background()
	for _, name := range []string{"a", "b", "c", "d"} {
		require.NoError(t, s.Upsert(ctx, full(name, 1, "")))
	}

	require.NoError(t, s.DeleteMany(ctx, nil))
	require.NoError(t, s.DeleteMany(ctx, []string{"a", "c", "never-stored"}))

	ix, err := s.Index(ctx)
	require.NoError(t, err)
	names := make([]string, 0, len(ix))
	for name := range ix {
		names = append(names, name)
	}
	sort.Strings(names)
	assert.Equal(t, []string{"b", "d"}, names)
}

func testDeleteManyLarge(t *testing.T, s store.Store) {
	ctx := context.Background()
	var names []string
	for i := range 1500 {
		name := fmt.Sprintf("pkg-%04d", i)
		names = append(names, name)
		require.NoError(t, s.Upsert(ctx, store.NewStub(name, int64(i))))
	}
	require.NoError(t, s.Upsert(ctx, full("survivor", 1, "")))

	require.NoError(t, s.DeleteMany(ctx, names))

	n, err := s.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}
