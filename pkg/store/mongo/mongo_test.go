package mongo

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/michael-lorenzo/pypi-dependency-graph/pkg/store"
	"github.com/michael-lorenzo/pypi-dependency-graph/pkg/store/storetest"
)

func TestConformance(t *testing.T) {
	uri := os.Getenv("PYPIGRAPH_TEST_MONGO_URI")
	if uri == "" {
		t.Skip("PYPIGRAPH_TEST_MONGO_URI not set")
	}

	storetest.Run(t, func(t *testing.T) store.Store {
		ctx := context.Background()
		db := fmt.Sprintf("pypigraph_test_%d", time.Now().UnixNano())
		s, err := Open(ctx, Config{URI: uri, Database: db}, nil)
		require.NoError(t, err)
		require.NoError(t, s.drop(ctx))
		return droppingStore{s}
	})
}

// droppingStore removes the test collection before disconnecting.
type droppingStore struct{ *Store }

func (d droppingStore) Close() error {
	_ = d.drop(context.Background())
	return d.Store.Close()
}

func TestHelloTransactions(t *testing.T) {
	tests := []struct {
		name  string
		reply helloReply
		want  bool
	}{
		{"standalone", helloReply{}, false},
		{"replica set", helloReply{SetName: "rs0"}, true},
		{"mongos", helloReply{Msg: "isdbgrid"}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, tt.reply.transactions())
		})
	}
}

func TestDeleteManyAcrossChunks(t *testing.T) {
	uri := os.Getenv("PYPIGRAPH_TEST_MONGO_URI")
	if uri == "" {
		t.Skip("PYPIGRAPH_TEST_MONGO_URI not set")
	}

	ctx := context.Background()
	s, err := Open(ctx, Config{URI: uri, Database: fmt.Sprintf("pypigraph_test_%d", time.Now().UnixNano())}, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = droppingStore{s}.Close() })

	names := make([]string, deleteChunk+3)
	docs := make([]interface{}, len(names))
	for i := range names {
		names[i] = fmt.Sprintf("pkg-%05d", i)
		docs[i] = document{Name: names[i], LastSerial: 1}
	}
	_, err = s.coll.InsertMany(ctx, docs)
	require.NoError(t, err)
	require.NoError(t, s.Upsert(ctx, &store.Record{Name: "keep", LastSerial: 1}))

	require.NoError(t, s.DeleteMany(ctx, names))

	n, err := s.Count(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, n)
}

func TestDocumentRecord(t *testing.T) {
	reqs := "click"
	full := (&document{Name: "flask", LastSerial: 2, Info: []byte(`{"a":1}`), Requirements: &reqs}).record()
	require.False(t, full.IsStub())
	require.Equal(t, "click", full.Requirements)

	stub := (&document{Name: "gone", LastSerial: 4}).record()
	require.True(t, stub.IsStub())
	require.Equal(t, int64(4), stub.LastSerial)
}
