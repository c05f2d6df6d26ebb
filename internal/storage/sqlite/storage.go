// Package sqlite provides a SQLite-backed document store.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"

	_ "modernc.org/sqlite"

	"github.com/mcoot/treason-stats/internal/storage"
)

var schema = []string{
	`CREATE TABLE IF NOT EXISTS documents (
		id   TEXT PRIMARY KEY,
		body TEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS view_rows (
		view   TEXT NOT NULL,
		doc_id TEXT NOT NULL,
		key    TEXT NOT NULL,
		PRIMARY KEY (view, doc_id)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_view_rows_key ON view_rows(view, key)`,
	`CREATE INDEX IF NOT EXISTS idx_view_rows_doc ON view_rows(doc_id)`,
}

// Storage persists documents in SQLite. Creating the database means
// creating its tables; view rows live in their own table and are rewritten
// with each document in one transaction.
type Storage struct {
	sqlDB   *sql.DB
	created atomic.Bool

	mu    sync.RWMutex
	views map[string]storage.MapFunc
}

// Open opens a SQLite document store at path. Tables are not created until
// Create is called.
func Open(path string) (*Storage, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}
	dsn := filepath.Clean(path) + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=synchronous(NORMAL)"
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	if err := sqlDB.Ping(); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	return &Storage{
		sqlDB: sqlDB,
		views: make(map[string]storage.MapFunc),
	}, nil
}

// Close closes the SQLite handle.
func (s *Storage) Close() error {
	if s == nil || s.sqlDB == nil {
		return nil
	}
	return s.sqlDB.Close()
}

// Ensure Storage implements the interface
var _ storage.DocumentStore = (*Storage)(nil)

// Database lifecycle

func (s *Storage) Exists(ctx context.Context) (bool, error) {
	if s.created.Load() {
		return true, nil
	}
	var n int
	err := s.sqlDB.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = 'documents'`,
	).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("check documents table: %w", err)
	}
	if n > 0 {
		s.created.Store(true)
	}
	return n > 0, nil
}

func (s *Storage) Create(ctx context.Context) error {
	for _, stmt := range schema {
		if _, err := s.sqlDB.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("create schema: %w", err)
		}
	}
	s.created.Store(true)
	return nil
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

	var body string
	err := s.sqlDB.QueryRowContext(ctx, `SELECT body FROM documents WHERE id = ?`, id).Scan(&body)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return storage.ErrNotFound
		}
		return fmt.Errorf("get document: %w", err)
	}
	return json.Unmarshal([]byte(body), out)
}

func (s *Storage) Save(ctx context.Context, id string, doc any) (string, error) {
	data, err := storage.Encode(doc)
	if err != nil {
		return "", err
	}
	if id == "" {
		id = storage.NewID()
	}

	err = s.write(ctx, id, func(old []byte) ([]byte, error) {
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

// write replaces a document and its view rows in one transaction.
// update receives nil when the document does not exist.
func (s *Storage) write(ctx context.Context, id string, update func(old []byte) ([]byte, error)) error {
	if err := s.requireDatabase(ctx); err != nil {
		return err
	}
	views := s.snapshotViews()

	return s.inTx(ctx, func(tx *sql.Tx) error {
		var old []byte
		var body string
		err := tx.QueryRowContext(ctx, `SELECT body FROM documents WHERE id = ?`, id).Scan(&body)
		switch {
		case errors.Is(err, sql.ErrNoRows):
		case err != nil:
			return fmt.Errorf("read document: %w", err)
		default:
			old = []byte(body)
		}

		data, err := update(old)
		if err != nil {
			return err
		}

		_, err = tx.ExecContext(ctx,
			`INSERT INTO documents (id, body) VALUES (?, ?)
			 ON CONFLICT(id) DO UPDATE SET body = excluded.body`,
			id, string(data),
		)
		if err != nil {
			return fmt.Errorf("write document: %w", err)
		}

		if _, err := tx.ExecContext(ctx, `DELETE FROM view_rows WHERE doc_id = ?`, id); err != nil {
			return fmt.Errorf("clear view rows: %w", err)
		}
		for path, fn := range views {
			if err := insertRow(ctx, tx, path, fn, id, data); err != nil {
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
		docs, err := allDocuments(ctx, tx)
		if err != nil {
			return err
		}
		for name, fn := range views {
			path := storage.ViewPath(design, name)
			if _, err := tx.ExecContext(ctx, `DELETE FROM view_rows WHERE view = ?`, path); err != nil {
				return fmt.Errorf("clear view %s: %w", path, err)
			}
			for id, body := range docs {
				if err := insertRow(ctx, tx, path, fn, id, body); err != nil {
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

	query := `SELECT v.doc_id, v.key, d.body
		FROM view_rows v JOIN documents d ON d.id = v.doc_id
		WHERE v.view = ?`
	args := []any{view}
	if opts.Key != nil {
		query += ` AND v.key = ?`
		args = append(args, *opts.Key)
	}
	query += ` ORDER BY v.key, v.doc_id`

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

func allDocuments(ctx context.Context, tx *sql.Tx) (map[string][]byte, error) {
	rows, err := tx.QueryContext(ctx, `SELECT id, body FROM documents`)
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	defer func() { _ = rows.Close() }()

	docs := make(map[string][]byte)
	for rows.Next() {
		var id, body string
		if err := rows.Scan(&id, &body); err != nil {
			return nil, fmt.Errorf("scan document: %w", err)
		}
		docs[id] = []byte(body)
	}
	return docs, rows.Err()
}

func insertRow(ctx context.Context, tx *sql.Tx, path string, fn storage.MapFunc, id string, data []byte) error {
	key, emit := storage.Emit(fn, id, data)
	if !emit {
		return nil
	}
	_, err := tx.ExecContext(ctx,
		`INSERT INTO view_rows (view, doc_id, key) VALUES (?, ?, ?)
		 ON CONFLICT(view, doc_id) DO UPDATE SET key = excluded.key`,
		path, id, key,
	)
	if err != nil {
		return fmt.Errorf("index %s in %s: %w", id, path, err)
	}
	return nil
}
