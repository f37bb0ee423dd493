// Package sqlite implements [store.Store] on a single SQLite file.
//
// The schema matches the original mirror layout: one packages table with
// name as primary key, info as a nullable blob and requirements as nullable
// text. A NULL requirements column marks a stub.
package sqlite

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/log"
	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"

	"github.com/michael-lorenzo/pypi-dependency-graph/pkg/store"
)

// DefaultPath is the database file used when none is configured.
const DefaultPath = "pypi.db"

// deleteChunk bounds the number of bound parameters per DELETE statement.
const deleteChunk = 500

//go:embed schema.sql
var schema string

// Store is a SQLite-backed store.
type Store struct {
	db     *sql.DB
	path   string
	logger *log.Logger
}

// Open opens (creating if needed) the database at path and applies the schema.
func Open(ctx context.Context, path string, logger *log.Logger) (*Store, error) {
	if logger == nil {
		logger = log.Default()
	}
	if path == "" {
		path = DefaultPath
	}

	dsn := "file:" + path + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(10000)&_pragma=synchronous(NORMAL)"
	logger.Debug("opening database", "path", path)
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	// One writer at a time; readers share the same connection.
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply schema to %s: %w", path, err)
	}
	return &Store{db: db, path: path, logger: logger}, nil
}

// Path returns the database file path.
func (s *Store) Path() string { return s.path }

func (s *Store) Index(ctx context.Context) (store.Index, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT name, last_serial, info IS NULL FROM packages`)
	if err != nil {
		return nil, fmt.Errorf("read index: %w", err)
	}
	defer rows.Close()

	ix := make(store.Index)
	for rows.Next() {
		var (
			name string
			e    store.Entry
		)
		if err := rows.Scan(&name, &e.Serial, &e.Stub); err != nil {
			return nil, fmt.Errorf("read index: %w", err)
		}
		ix[name] = e
	}
	return ix, rows.Err()
}

func (s *Store) Get(ctx context.Context, name string) (*store.Record, error) {
	var (
		r    store.Record
		info []byte
		reqs sql.NullString
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT name, last_serial, info, requirements FROM packages WHERE name = ?`, name,
	).Scan(&r.Name, &r.LastSerial, &info, &reqs)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get %s: %w", name, err)
	}
	if info != nil {
		r.Info = info
	}
	r.Requirements = reqs.String
	return &r, nil
}

func (s *Store) Upsert(ctx context.Context, r *store.Record) error {
	var info, reqs any
	if !r.IsStub() {
		info, reqs = []byte(r.Info), r.Requirements
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO packages (name, last_serial, info, requirements) VALUES (?, ?, ?, ?)
		ON CONFLICT (name) DO UPDATE SET
			last_serial = excluded.last_serial,
			info = excluded.info,
			requirements = excluded.requirements`,
		r.Name, r.LastSerial, info, reqs)
	if err != nil {
		return fmt.Errorf("upsert %s: %w", r.Name, err)
	}
	return nil
}

func (s *Store) Delete(ctx context.Context, name string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM packages WHERE name = ?`, name); err != nil {
		return fmt.Errorf("delete %s: %w", name, err)
	}
	return nil
}

// DeleteMany removes names inside one transaction.
func (s *Store) DeleteMany(ctx context.Context, names []string) error {
	if len(names) == 0 {
		return nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("delete many: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	for start := 0; start < len(names); start += deleteChunk {
		chunk := names[start:min(start+deleteChunk, len(names))]
		args := make([]any, len(chunk))
		for i, name := range chunk {
			args[i] = name
		}
		placeholders := strings.TrimSuffix(strings.Repeat("?,", len(chunk)), ",")
		//nolint:gosec // placeholders are literal "?" strings
		if _, err := tx.ExecContext(ctx, `DELETE FROM packages WHERE name IN (`+placeholders+`)`, args...); err != nil {
			return fmt.Errorf("delete many: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("delete many: %w", err)
	}
	s.logger.Debug("deleted packages", "count", len(names))
	return nil
}

func (s *Store) Adjacency(ctx context.Context) ([]store.Adjacency, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT name, requirements FROM packages WHERE requirements IS NOT NULL ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("read adjacency: %w", err)
	}
	defer rows.Close()

	var adj []store.Adjacency
	for rows.Next() {
		var a store.Adjacency
		if err := rows.Scan(&a.Name, &a.Requirements); err != nil {
			return nil, fmt.Errorf("read adjacency: %w", err)
		}
		adj = append(adj, a)
	}
	return adj, rows.Err()
}

func (s *Store) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM packages`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count: %w", err)
	}
	return n, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

var _ store.Store = (*Store)(nil)
