// Package postgres provides a PostgreSQL-backed document store.
//
// Each logical database lives in its own schema, so Exists and Create map
// onto the schema rather than onto the server's databases.
package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/lib/pq"

	"github.com/mcoot/treason-stats/internal/storage"
)

// Config holds PostgreSQL connection settings
type Config struct {
	// URL is a lib/pq connection string or postgres:// URL
	URL string
	// Schema holds the documents of one logical database
	Schema string
}

// Storage persists documents as jsonb rows in a per-database schema
type Storage struct {
	sqlDB   *sql.DB
	schema  string
	created atomic.Bool

	mu    sync.RWMutex
	views map[string]storage.MapFunc
}

// Open connects to PostgreSQL. The schema is not created until Create is
// called.
func Open(cfg Config) (*Storage, error) {
	if strings.TrimSpace(cfg.URL) == "" {
		return nil, errors.New("postgres URL is required")
	}
	if strings.TrimSpace(cfg.Schema) == "" {
		return nil, errors.New("postgres schema is required")
	}
	sqlDB, err := sql.Open("postgres", cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("open postgres db: %w", err)
	}
	if err := sqlDB.Ping(); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping postgres db: %w", err)
	}
	return &Storage{
		sqlDB:  sqlDB,
		schema: cfg.Schema,
		views:  make(map[string]storage.MapFunc),
	}, nil
}

// Close closes the connection pool.
func (s *Storage) Close() error {
	if s == nil || s.sqlDB == nil {
		return nil
	}
	return s.sqlDB.Close()
}

// Ensure Storage implements the interface
var _ storage.DocumentStore = (*Storage)(nil)

func (s *Storage) table(name string) string {
	return pq.QuoteIdentifier(s.schema) + "." + pq.QuoteIdentifier(name)
}

func (s *Storage) ddl() []string {
	return []string{
		`CREATE SCHEMA IF NOT EXISTS ` + pq.QuoteIdentifier(s.schema),
		`CREATE TABLE IF NOT EXISTS ` + s.table("documents") + ` (
			id   TEXT PRIMARY KEY,
			body JSONB NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS ` + s.table("view_rows") + ` (
			view   TEXT NOT NULL,
			doc_id TEXT NOT NULL,
			key    TEXT NOT NULL,
			PRIMARY KEY (view, doc_id)
		)`,
		`CREATE INDEX IF NOT EXISTS view_rows_key ON ` + s.table("view_rows") + ` (view, key)`,
		`CREATE INDEX IF NOT EXISTS view_rows_doc ON ` + s.table("view_rows") + ` (doc_id)`,
	}
}

// Database lifecycle

func (s *Storage) Exists(ctx context.Context) (bool, error) {
	if s.created.Load() {
		return true, nil
	}
	var exists bool
	err := s.sqlDB.QueryRowContext(ctx,
		`SELECT EXISTS (
			SELECT 1 FROM information_schema.tables
			WHERE table_schema = $1 AND table_name = 'documents'
		)`, s.schema,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check documents table: %w", err)
	}
	if exists {
		s.created.Store(true)
	}
	return exists, nil
}

func (s *Storage) Create(ctx context.Context) error {
	for _, stmt := range s.ddl() {
		if _, err := s.sqlDB.ExecContext(ctx, stmt); err != nil && !alreadyExists(err) {
			return fmt.Errorf("create schema: %w", err)
		}
	}
	s.created.Store(true)
	return nil
}

// alreadyExists reports whether a concurrent Create won the race. IF NOT
// EXISTS does not guard against that in PostgreSQL.
func alreadyExists(err error) bool {
	var pe *pq.Error
	if !errors.As(err, &pe) {
		return false
	}
	switch pe.Code.Name() {
	case "unique_violation", "duplicate_schema", "duplicate_table", "duplicate_object":
		return true
	}
	return false
}

func (s *Storage) requireDatabase(ctx context.Context) error {
	exists, err := s.Exists(ctx)
	if err != nil {
		return err
	}
	if !exists {
		return storage.ErrDatabaseMissing
	}
	return nil
}

// Document operations

func (s *Storage) Get(ctx context.Context, id string, out any) error {
	if err := s.requireDatabase(ctx); err != nil {
		return err
	}

	var body []byte
	err := s.sqlDB.QueryRowContext(ctx,
		`SELECT body FROM `+s.table("documents")+` WHERE id = $1`, id,
	).Scan(&body)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return storage.ErrNotFound
		}
		return fmt.Errorf("get document: %w", err)
	}
	return json.Unmarshal(body, out)
}

func (s *Storage) Save(ctx context.Context, id string, doc any) (string, error) {
	data, err := storage.Encode(doc)
	if err != nil {
		return "", err
	}
	if id == "" {
		id = storage.NewID()
	}

	err = s.write(ctx, id, func([]byte) ([]byte, error) {
		return data, nil
	})
	if err != nil {
		return "", err
	}
	return id, nil
}

func (s *Storage) Merge(ctx context.Context, id string, fields map[string]any) error {
	return s.write(ctx, id, func(old []byte) ([]byte, error) {
		if old == nil {
			return nil, storage.ErrNotFound
		}
		return storage.MergeFields(old, fields)
	})
}

// write replaces a document and its view rows in one transaction. The
// existing row is locked so concurrent merges on one id serialize.
func (s *Storage) write(ctx context.Context, id string, update func(old []byte) ([]byte, error)) error {
	if err := s.requireDatabase(ctx); err != nil {
		return err
	}
	views := s.snapshotViews()

	return s.inTx(ctx, func(tx *sql.Tx) error {
		var old []byte
		err := tx.QueryRowContext(ctx,
			`SELECT body FROM `+s.table("documents")+` WHERE id = $1 FOR UPDATE`, id,
		).Scan(&old)
		if err != nil && !errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("read document: %w", err)
		}

		data, err := update(old)
		if err != nil {
			return err
		}

		_, err = tx.ExecContext(ctx,
			`INSERT INTO `+s.table("documents")+` (id, body) VALUES ($1, $2::jsonb)
			 ON CONFLICT (id) DO UPDATE SET body = excluded.body`,
			id, string(data),
		)
		if err != nil {
			return fmt.Errorf("write document: %w", err)
		}

		if _, err := tx.ExecContext(ctx, `DELETE FROM `+s.table("view_rows")+` WHERE doc_id = $1`, id); err != nil {
			return fmt.Errorf("clear view rows: %w", err)
		}
		for path, fn := range views {
			if err := s.insertRow(ctx, tx, path, fn, id, data); err != nil {
				return err
			}
		}
		return nil
	})
}

// View operations

func (s *Storage) DefineViews(ctx context.Context, design string, views storage.Views) error {
	data, err := storage.Encode(storage.NewDesignDoc(views))
	if err != nil {
		return err
	}
	err = s.write(ctx, storage.DesignDocID(design), func([]byte) ([]byte, error) {
		return data, nil
	})
	if err != nil {
		return err
	}

	s.mu.Lock()
	for name, fn := range views {
		s.views[storage.ViewPath(design, name)] = fn
	}
	s.mu.Unlock()

	return s.inTx(ctx, func(tx *sql.Tx) error {
		docs, err := s.allDocuments(ctx, tx)
		if err != nil {
			return err
		}
		for name, fn := range views {
			path := storage.ViewPath(design, name)
			if _, err := tx.ExecContext(ctx, `DELETE FROM `+s.table("view_rows")+` WHERE view = $1`, path); err != nil {
				return fmt.Errorf("clear view %s: %w", path, err)
			}
			for id, body := range docs {
				if err := s.insertRow(ctx, tx, path, fn, id, body); err != nil {
					return err
				}
			}
		}
		return nil
	})
}

func (s *Storage) Query(ctx context.Context, view string, opts storage.QueryOptions) ([]storage.Row, error) {
	if err := s.requireDatabase(ctx); err != nil {
		return nil, err
	}

	s.mu.RLock()
	_, ok := s.views[view]
	s.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", storage.ErrViewNotDefined, view)
	}

	query := `SELECT v.doc_id, v.key, d.body::text
		FROM ` + s.table("view_rows") + ` v JOIN ` + s.table("documents") + ` d ON d.id = v.doc_id
		WHERE v.view = $1`
	args := []any{view}
	if opts.Key != nil {
		query += ` AND v.key = $2`
		args = append(args, *opts.Key)
	}
	query += ` ORDER BY v.key COLLATE "C", v.doc_id COLLATE "C"`

	rows, err := s.sqlDB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query view %s: %w", view, err)
	}
	defer func() { _ = rows.Close() }()

	result := []storage.Row{}
	for rows.Next() {
		var row storage.Row
		var body string
		if err := rows.Scan(&row.ID, &row.Key, &body); err != nil {
			return nil, fmt.Errorf("scan view row: %w", err)
		}
		row.Value = json.RawMessage(body)
		result = append(result, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate view rows: %w", err)
	}
	return result, nil
}

func (s *Storage) inTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.sqlDB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

func (s *Storage) snapshotViews() map[string]storage.MapFunc {
	s.mu.RLock()
	defer s.mu.RUnlock()
	views := make(map[string]storage.MapFunc, len(s.views))
	for path, fn := range s.views {
		views[path] = fn
	}
	return views
}

func (s *Storage) allDocuments(ctx context.Context, tx *sql.Tx) (map[string][]byte, error) {
	rows, err := tx.QueryContext(ctx, `SELECT id, body FROM `+s.table("documents"))
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	defer func() { _ = rows.Close() }()

	docs := make(map[string][]byte)
	for rows.Next() {
		var id string
		var body []byte
		if err := rows.Scan(&id, &body); err != nil {
			return nil, fmt.Errorf("scan document: %w", err)
		}
		docs[id] = body
	}
	return docs, rows.Err()
}

func (s *Storage) insertRow(ctx context.Context, tx *sql.Tx, path string, fn storage.MapFunc, id string, data []byte) error {
	key, emit := storage.Emit(fn, id, data)
	if !emit {
		return nil
	}
	_, err := tx.ExecContext(ctx,
		`INSERT INTO `+s.table("view_rows")+` (view, doc_id, key) VALUES ($1, $2, $3)
		 ON CONFLICT (view, doc_id) DO UPDATE SET key = excluded.key`,
		path, id, key,
	)
	if err != nil {
		return fmt.Errorf("index %s in %s: %w", id, path, err)
	}
	return nil
}
