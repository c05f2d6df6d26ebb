package redis

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/suite"

	"github.com/mcoot/treason-stats/internal/storage"
	"github.com/mcoot/treason-stats/internal/storage/storagetest"
)

func newTestStorage(t *testing.T, mini *miniredis.Miniredis, database string) *Storage {
	t.Helper()

	client := redis.NewClient(&redis.Options{
		Addr: mini.Addr(),
	})

	cfg := DefaultConfig()
	cfg.Database = database

	s := NewWithClient(client, cfg)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestConformanceSuite(t *testing.T) {
	suite.Run(t, &storagetest.Suite{
		NewStore: func(t *testing.T) storage.DocumentStore {
			return newTestStorage(t, miniredis.RunT(t), "treason_test")
		},
	})
}

type StorageSuite struct {
	suite.Suite
	mini    *miniredis.Miniredis
	storage *Storage
	ctx     context.Context
}

func TestStorageSuite(t *testing.T) {
	suite.Run(t, new(StorageSuite))
}

func (s *StorageSuite) SetupTest() {
	s.mini = miniredis.RunT(s.T())
	s.storage = newTestStorage(s.T(), s.mini, "treason_db")
	s.ctx = context.Background()
	s.Require().NoError(s.storage.Create(s.ctx))
}

func byName(doc storage.Document) (string, bool) {
	name, ok := doc["name"].(string)
	return name, ok
}

func (s *StorageSuite) TestDocumentKeyLayout() {
	_, err := s.storage.Save(s.ctx, "p1", map[string]any{"name": "Alice"})
	s.Require().NoError(err)

	s.True(s.mini.Exists(createdKey("treason_db")))
	s.True(s.mini.Exists(docKey("treason_db", "p1")))

	members, err := s.mini.Members(docsIndexKey("treason_db"))
	s.Require().NoError(err)
	s.Equal([]string{"p1"}, members)
}

func (s *StorageSuite) TestViewIndexKeys() {
	s.Require().NoError(s.storage.DefineViews(s.ctx, "games", storage.Views{"by_name": byName}))
	_, err := s.storage.Save(s.ctx, "p1", map[string]any{"name": "Alice"})
	s.Require().NoError(err)

	s.Equal("Alice", s.mini.HGet(viewKey("treason_db", "games/by_name"), "p1"))
	members, err := s.mini.Members(viewRowsKey("treason_db", "games/by_name", "Alice"))
	s.Require().NoError(err)
	s.Equal([]string{"p1"}, members)
}

func (s *StorageSuite) TestDatabasesAreIsolated() {
	other := newTestStorage(s.T(), s.mini, "other_db")

	exists, err := other.Exists(s.ctx)
	s.Require().NoError(err)
	s.False(exists)

	s.Require().NoError(other.Create(s.ctx))
	_, err = s.storage.Save(s.ctx, "p1", map[string]any{"name": "Alice"})
	s.Require().NoError(err)

	var doc map[string]any
	s.ErrorIs(other.Get(s.ctx, "p1", &doc), storage.ErrNotFound)
}

func (s *StorageSuite) TestIndexSurvivesRestart() {
	s.Require().NoError(s.storage.DefineViews(s.ctx, "games", storage.Views{"by_name": byName}))
	_, err := s.storage.Save(s.ctx, "p1", map[string]any{"name": "Alice"})
	s.Require().NoError(err)

	restarted := newTestStorage(s.T(), s.mini, "treason_db")

	// Views are code, so a new process must define them again before querying
	_, err = restarted.Query(s.ctx, "games/by_name", storage.ByKey("Alice"))
	s.ErrorIs(err, storage.ErrViewNotDefined)

	s.Require().NoError(restarted.DefineViews(s.ctx, "games", storage.Views{"by_name": byName}))
	rows, err := restarted.Query(s.ctx, "games/by_name", storage.ByKey("Alice"))
	s.Require().NoError(err)
	s.Require().Len(rows, 1)
	s.Equal("p1", rows[0].ID)
}

func (s *StorageSuite) TestDocumentsNeverExpire() {
	_, err := s.storage.Save(s.ctx, "p1", map[string]any{"name": "Alice"})
	s.Require().NoError(err)

	s.Equal(int64(0), int64(s.mini.TTL(docKey("treason_db", "p1"))))
}
