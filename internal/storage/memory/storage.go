package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/mcoot/treason-stats/internal/storage"
)

// Storage is an in-memory implementation of the document store.
// Views are evaluated over every document at query time.
type Storage struct {
	mu sync.RWMutex

	created   bool
	documents map[string][]byte
	views     map[string]storage.MapFunc
}

// New creates a new in-memory storage instance. The database starts out
// missing, as it would on a fresh server.
func New() *Storage {
	return &Storage{
		documents: make(map[string][]byte),
		views:     make(map[string]storage.MapFunc),
	}
}

// Ensure Storage implements the interface
var _ storage.DocumentStore = (*Storage)(nil)

// Database lifecycle

func (s *Storage) Exists(ctx context.Context) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.created, nil
}

func (s *Storage) Create(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.created = true
	return nil
}

// Document operations

func (s *Storage) Get(ctx context.Context, id string, out any) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.created {
		return storage.ErrDatabaseMissing
	}
	data, ok := s.documents[id]
	if !ok {
		return storage.ErrNotFound
	}
	return json.Unmarshal(data, out)
}

func (s *Storage) Save(ctx context.Context, id string, doc any) (string, error) {
	data, err := storage.Encode(doc)
	if err != nil {
		return "", err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.created {
		return "", storage.ErrDatabaseMissing
	}
	if id == "" {
		id = storage.NewID()
	}
	s.documents[id] = data
	return id, nil
}

func (s *Storage) Merge(ctx context.Context, id string, fields map[string]any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.created {
		return storage.ErrDatabaseMissing
	}
	data, ok := s.documents[id]
	if !ok {
		return storage.ErrNotFound
	}
	merged, err := storage.MergeFields(data, fields)
	if err != nil {
		return err
	}
	s.documents[id] = merged
	return nil
}

// View operations

func (s *Storage) DefineViews(ctx context.Context, design string, views storage.Views) error {
	data, err := storage.Encode(storage.NewDesignDoc(views))
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.created {
		return storage.ErrDatabaseMissing
	}
	s.documents[storage.DesignDocID(design)] = data
	for name, fn := range views {
		s.views[storage.ViewPath(design, name)] = fn
	}
	return nil
}

func (s *Storage) Query(ctx context.Context, view string, opts storage.QueryOptions) ([]storage.Row, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.created {
		return nil, storage.ErrDatabaseMissing
	}
	fn, ok := s.views[view]
	if !ok {
		return nil, fmt.Errorf("%w: %s", storage.ErrViewNotDefined, view)
	}

	rows := []storage.Row{}
	for id, data := range s.documents {
		key, emit := storage.Emit(fn, id, data)
		if !emit || !opts.Matches(key) {
			continue
		}
		rows = append(rows, storage.Row{ID: id, Key: key, Value: json.RawMessage(data)})
	}
	storage.SortRows(rows)
	return rows, nil
}
