// Package mongo implements [store.Store] on a MongoDB collection.
//
// Each record is one document keyed by the normalized name:
//
//	{_id: "flask", last_serial: 20512, info: <json bytes>, requirements: "click werkzeug"}
//
// Stubs have neither info nor requirements.
package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/charmbracelet/log"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/michael-lorenzo/pypi-dependency-graph/pkg/store"
)

const (
	// DefaultDatabase is used when the config names none.
	DefaultDatabase = "pypigraph"
	collection      = "packages"
	connectTimeout  = 10 * time.Second
	deleteChunk     = 10000
)

// Config selects the deployment and database.
type Config struct {
	URI      string
	Database string
}

// Store is a MongoDB-backed store.
type Store struct {
	client *mongo.Client
	coll   *mongo.Collection
	logger *log.Logger

	// txn is set when the deployment is a replica set or sharded cluster.
	// Standalone servers reject multi-document transactions.
	txn bool
}

// helloReply holds the fields of the hello command that identify the
// deployment topology.
type helloReply struct {
	SetName string `bson:"setName"`
	Msg     string `bson:"msg"`
}

func (h helloReply) transactions() bool {
	return h.SetName != "" || h.Msg == "isdbgrid"
}

type document struct {
	Name         string  `bson:"_id"`
	LastSerial   int64   `bson:"last_serial"`
	Info         []byte  `bson:"info,omitempty"`
	Requirements *string `bson:"requirements,omitempty"`
}

// Open connects to cfg.URI and verifies the deployment is reachable.
func Open(ctx context.Context, cfg Config, logger *log.Logger) (*Store, error) {
	if logger == nil {
		logger = log.Default()
	}
	if cfg.Database == "" {
		cfg.Database = DefaultDatabase
	}

	ctx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.URI))
	if err != nil {
		return nil, fmt.Errorf("connect mongo: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("ping mongo: %w", err)
	}

	var hello helloReply
	if err := client.Database("admin").RunCommand(ctx, bson.D{{Key: "hello", Value: 1}}).Decode(&hello); err != nil {
		logger.Debug("hello failed, assuming standalone", "error", err)
	}
	logger.Debug("connected to mongo", "database", cfg.Database, "transactions", hello.transactions())

	return &Store{
		client: client,
		coll:   client.Database(cfg.Database).Collection(collection),
		logger: logger,
		txn:    hello.transactions(),
	}, nil
}

func (s *Store) Index(ctx context.Context) (store.Index, error) {
	opts := options.Find().SetProjection(bson.M{"last_serial": 1, "requirements": 1})
	cur, err := s.coll.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, fmt.Errorf("read index: %w", err)
	}
	defer cur.Close(ctx)

	ix := make(store.Index)
	for cur.Next(ctx) {
		var doc document
		if err := cur.Decode(&doc); err != nil {
			return nil, fmt.Errorf("read index: %w", err)
		}
		ix[doc.Name] = store.Entry{Serial: doc.LastSerial, Stub: doc.Requirements == nil}
	}
	return ix, cur.Err()
}

func (s *Store) Get(ctx context.Context, name string) (*store.Record, error) {
	var doc document
	err := s.coll.FindOne(ctx, bson.M{"_id": name}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get %s: %w", name, err)
	}
	return doc.record(), nil
}

func (d *document) record() *store.Record {
	r := &store.Record{Name: d.Name, LastSerial: d.LastSerial}
	if d.Requirements != nil {
		r.Info = d.Info
		if r.Info == nil {
			r.Info = []byte("{}")
		}
		r.Requirements = *d.Requirements
	}
	return r
}

func (s *Store) Upsert(ctx context.Context, r *store.Record) error {
	doc := document{Name: r.Name, LastSerial: r.LastSerial}
	if !r.IsStub() {
		reqs := r.Requirements
		doc.Info, doc.Requirements = r.Info, &reqs
	}
	_, err := s.coll.ReplaceOne(ctx, bson.M{"_id": r.Name}, doc, options.Replace().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("upsert %s: %w", r.Name, err)
	}
	return nil
}

func (s *Store) Delete(ctx context.Context, name string) error {
	if _, err := s.coll.DeleteOne(ctx, bson.M{"_id": name}); err != nil {
		return fmt.Errorf("delete %s: %w", name, err)
	}
	return nil
}

// DeleteMany issues one $in delete per chunk of names. On a replica set or
// sharded cluster the chunks run in one transaction, so either all names
// are removed or none are. A standalone server cannot run transactions: a
// failure there can leave earlier chunks deleted, and the next pass deletes
// the rest since the names are still absent upstream.
func (s *Store) DeleteMany(ctx context.Context, names []string) error {
	if len(names) == 0 {
		return nil
	}

	var deleted int64
	if s.txn {
		sess, err := s.client.StartSession()
		if err != nil {
			return fmt.Errorf("delete many: %w", err)
		}
		defer sess.EndSession(ctx)

		_, err = sess.WithTransaction(ctx, func(sc mongo.SessionContext) (interface{}, error) {
			n, err := s.deleteChunks(sc, names)
			deleted = n
			return nil, err
		})
		if err != nil {
			return fmt.Errorf("delete many: %w", err)
		}
	} else {
		n, err := s.deleteChunks(ctx, names)
		if err != nil {
			return fmt.Errorf("delete many: %w", err)
		}
		deleted = n
	}
	s.logger.Debug("deleted packages", "count", deleted, "transaction", s.txn)
	return nil
}

func (s *Store) deleteChunks(ctx context.Context, names []string) (int64, error) {
	var deleted int64
	for start := 0; start < len(names); start += deleteChunk {
		chunk := names[start:min(start+deleteChunk, len(names))]
		res, err := s.coll.DeleteMany(ctx, bson.M{"_id": bson.M{"$in": chunk}})
		if err != nil {
			return deleted, err
		}
		deleted += res.DeletedCount
	}
	return deleted, nil
}

func (s *Store) Adjacency(ctx context.Context) ([]store.Adjacency, error) {
	opts := options.Find().
		SetProjection(bson.M{"requirements": 1}).
		SetSort(bson.D{{Key: "_id", Value: 1}})
	cur, err := s.coll.Find(ctx, bson.M{"requirements": bson.M{"$ne": nil}}, opts)
	if err != nil {
		return nil, fmt.Errorf("read adjacency: %w", err)
	}
	defer cur.Close(ctx)

	var adj []store.Adjacency
	for cur.Next(ctx) {
		var doc document
		if err := cur.Decode(&doc); err != nil {
			return nil, fmt.Errorf("read adjacency: %w", err)
		}
		adj = append(adj, store.Adjacency{Name: doc.Name, Requirements: *doc.Requirements})
	}
	return adj, cur.Err()
}

func (s *Store) Count(ctx context.Context) (int, error) {
	n, err := s.coll.CountDocuments(ctx, bson.M{})
	if err != nil {
		return 0, fmt.Errorf("count: %w", err)
	}
	return int(n), nil
}

func (s *Store) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), connectTimeout)
	defer cancel()
	return s.client.Disconnect(ctx)
}

// drop removes the collection. Tests use it to start clean.
func (s *Store) drop(ctx context.Context) error {
	return s.coll.Drop(ctx)
}

var _ store.Store = (*Store)(nil)
