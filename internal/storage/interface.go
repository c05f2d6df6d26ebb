package storage

import (
	"context"
	"encoding/json"
	"errors"
)

// Errors returned by every DocumentStore implementation
var (
	ErrNotFound        = errors.New("document not found")
	ErrDatabaseMissing = errors.New("database does not exist")
	ErrViewNotDefined  = errors.New("view not defined")
)

// DocumentStore is a schemaless document database with map-only secondary
// views, modelled on CouchDB design documents.
type DocumentStore interface {
	// Database lifecycle
	Exists(ctx context.Context) (bool, error)
	Create(ctx context.Context) error

	// Document operations
	Get(ctx context.Context, id string, out any) error
	// Save writes doc at id, overwriting any existing document.
	// An empty id makes the store assign one, which is returned.
	Save(ctx context.Context, id string, doc any) (string, error)
	Merge(ctx context.Context, id string, fields map[string]any) error

	// View operations
	DefineViews(ctx context.Context, design string, views Views) error
	Query(ctx context.Context, view string, opts QueryOptions) ([]Row, error)
}

// Row is a single emitted view entry
type Row struct {
	ID    string
	Key   string
	Value json.RawMessage
}

// QueryOptions narrows a view query. A nil Key returns every row.
type QueryOptions struct {
	Key *string
}

// ByKey returns options matching rows emitted with exactly key
func ByKey(key string) QueryOptions {
	return QueryOptions{Key: &key}
}

// Matches reports whether a row key satisfies the options
func (o QueryOptions) Matches(key string) bool {
	return o.Key == nil || *o.Key == key
}
