package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/mcoot/treason-stats/internal/storage"
)

// Storage is a Redis-backed implementation of the document store.
//
// Each document is a JSON string. Every view keeps a HASH of document id to
// emitted key plus one SET of document ids per emitted key, updated in the
// same MULTI as the document write.
type Storage struct {
	client *redis.Client
	cfg    Config

	mu    sync.RWMutex
	views map[string]storage.MapFunc
}

// New creates a new Redis storage instance
func New(cfg Config) (*Storage, error) {
	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, err
	}

	opts.PoolSize = cfg.PoolSize
	opts.MinIdleConns = cfg.MinIdleConns

	client := redis.NewClient(opts)

	// Verify connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, err
	}

	return NewWithClient(client, cfg), nil
}

// NewWithClient creates a Redis storage with an existing client (for testing)
func NewWithClient(client *redis.Client, cfg Config) *Storage {
	if cfg.Database == "" {
		cfg.Database = DefaultConfig().Database
	}
	return &Storage{
		client: client,
		cfg:    cfg,
		views:  make(map[string]storage.MapFunc),
	}
}

// Close closes the Redis connection
func (s *Storage) Close() error {
	return s.client.Close()
}

// Ensure Storage implements the interface
var _ storage.DocumentStore = (*Storage)(nil)

// Database lifecycle

func (s *Storage) Exists(ctx context.Context) (bool, error) {
	n, err := s.client.Exists(ctx, createdKey(s.cfg.Database)).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (s *Storage) Create(ctx context.Context) error {
	return s.client.Set(ctx, createdKey(s.cfg.Database), "1", 0).Err()
}

// existser is satisfied by both the client and a WATCH transaction
type existser interface {
	Exists(ctx context.Context, keys ...string) *redis.IntCmd
}

func (s *Storage) requireDatabase(ctx context.Context, c existser) error {
	n, err := c.Exists(ctx, createdKey(s.cfg.Database)).Result()
	if err != nil {
		return err
	}
	if n == 0 {
		return storage.ErrDatabaseMissing
	}
	return nil
}

// Document operations

func (s *Storage) Get(ctx context.Context, id string, out any) error {
	if err := s.requireDatabase(ctx, s.client); err != nil {
		return err
	}

	data, err := s.client.Get(ctx, docKey(s.cfg.Database, id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return storage.ErrNotFound
		}
		return err
	}
	return json.Unmarshal(data, out)
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

// write replaces a document and its view rows under an optimistic lock on
// the document key. update receives nil when the document does not exist.
func (s *Storage) write(ctx context.Context, id string, update func(old []byte) ([]byte, error)) error {
	db := s.cfg.Database
	key := docKey(db, id)
	views := s.snapshotViews()

	txf := func(tx *redis.Tx) error {
		if err := s.requireDatabase(ctx, tx); err != nil {
			return err
		}

		old, err := tx.Get(ctx, key).Bytes()
		if errors.Is(err, redis.Nil) {
			old = nil
		} else if err != nil {
			return err
		}

		data, err := update(old)
		if err != nil {
			return err
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, data, 0)
			pipe.SAdd(ctx, docsIndexKey(db), id)
			for path, fn := range views {
				if old != nil {
					if oldKey, ok := storage.Emit(fn, id, old); ok {
						pipe.HDel(ctx, viewKey(db, path), id)
						pipe.SRem(ctx, viewRowsKey(db, path, oldKey), id)
					}
				}
				if newKey, ok := storage.Emit(fn, id, data); ok {
					pipe.HSet(ctx, viewKey(db, path), id, newKey)
					pipe.SAdd(ctx, viewRowsKey(db, path, newKey), id)
				}
			}
			return nil
		})
		return err
	}

	retries := max(1, s.cfg.MaxTxRetries)
	for _iter := 0; _iter < retries; _iter++ {
		err := s.client.Watch(ctx, txf, key)
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		return err
	}
	return fmt.Errorf("write %s: %w", id, redis.TxFailedErr)
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

	for name, fn := range views {
		if err := s.reindex(ctx, storage.ViewPath(design, name), fn); err != nil {
			return fmt.Errorf("reindex %s: %w", name, err)
		}
	}
	return nil
}

// reindex rebuilds a view from every stored document. Writes racing with a
// reindex may be missed, so views are defined before the store takes traffic.
func (s *Storage) reindex(ctx context.Context, path string, fn storage.MapFunc) error {
	db := s.cfg.Database

	ids, err := s.client.SMembers(ctx, docsIndexKey(db)).Result()
	if err != nil {
		return err
	}
	previous, err := s.client.HGetAll(ctx, viewKey(db, path)).Result()
	if err != nil {
		return err
	}

	var values []any
	if len(ids) > 0 {
		keys := make([]string, len(ids))
		for i, id := range ids {
			keys[i] = docKey(db, id)
		}
		values, err = s.client.MGet(ctx, keys...).Result()
		if err != nil {
			return err
		}
	}

	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		cleared := make(map[string]bool)
		for _, key := range previous {
			if !cleared[key] {
				pipe.Del(ctx, viewRowsKey(db, path, key))
				cleared[key] = true
			}
		}
		pipe.Del(ctx, viewKey(db, path))

		for i, val := range values {
			str, ok := val.(string)
			if !ok {
				continue
			}
			if key, emit := storage.Emit(fn, ids[i], []byte(str)); emit {
				pipe.HSet(ctx, viewKey(db, path), ids[i], key)
				pipe.SAdd(ctx, viewRowsKey(db, path, key), ids[i])
			}
		}
		return nil
	})
	return err
}

func (s *Storage) Query(ctx context.Context, view string, opts storage.QueryOptions) ([]storage.Row, error) {
	if err := s.requireDatabase(ctx, s.client); err != nil {
		return nil, err
	}

	s.mu.RLock()
	_, ok := s.views[view]
	s.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", storage.ErrViewNotDefined, view)
	}

	db := s.cfg.Database
	keys := make(map[string]string)
	var ids []string

	if opts.Key != nil {
		members, err := s.client.SMembers(ctx, viewRowsKey(db, view, *opts.Key)).Result()
		if err != nil {
			return nil, err
		}
		for _, id := range members {
			ids = append(ids, id)
			keys[id] = *opts.Key
		}
	} else {
		all, err := s.client.HGetAll(ctx, viewKey(db, view)).Result()
		if err != nil {
			return nil, err
		}
		for id, key := range all {
			ids = append(ids, id)
			keys[id] = key
		}
	}

	if len(ids) == 0 {
		return []storage.Row{}, nil
	}

	// Fetch all documents in one round trip using MGET
	docKeys := make([]string, len(ids))
	for i, id := range ids {
		docKeys[i] = docKey(db, id)
	}
	values, err := s.client.MGet(ctx, docKeys...).Result()
	if err != nil {
		return nil, err
	}

	rows := make([]storage.Row, 0, len(values))
	for i, val := range values {
		str, ok := val.(string)
		if !ok {
			continue
		}
		rows = append(rows, storage.Row{
			ID:    ids[i],
			Key:   keys[ids[i]],
			Value: json.RawMessage(str),
		})
	}
	storage.SortRows(rows)
	return rows, nil
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
