// Package storagetest holds the behaviour every DocumentStore must share.
// Each implementation runs Suite from its own tests.
package storagetest

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/suite"

	"github.com/mcoot/treason-stats/internal/storage"
)

// Suite exercises a DocumentStore through its public contract
type Suite struct {
	suite.Suite

	// NewStore returns a fresh, empty store whose database does not exist yet
	NewStore func(t *testing.T) storage.DocumentStore

	store storage.DocumentStore
	ctx   context.Context
}

type card struct {
	Kind  string `json:"kind,omitempty"`
	Owner string `json:"owner,omitempty"`
	Power int    `json:"power"`
}

func byKind(doc storage.Document) (string, bool) {
	kind, ok := doc["kind"].(string)
	return kind, ok
}

func byOwner(doc storage.Document) (string, bool) {
	owner, ok := doc["owner"].(string)
	return owner, ok
}

func everything(doc storage.Document) (string, bool) {
	return "", true
}

func (s *Suite) SetupTest() {
	s.store = s.NewStore(s.T())
	s.ctx = context.Background()
}

func (s *Suite) create() {
	s.Require().NoError(s.store.Create(s.ctx))
}

func (s *Suite) save(id string, c card) string {
	saved, err := s.store.Save(s.ctx, id, c)
	s.Require().NoError(err)
	return saved
}

func (s *Suite) define(views storage.Views) {
	s.Require().NoError(s.store.DefineViews(s.ctx, "cards", views))
}

func (s *Suite) ids(rows []storage.Row) []string {
	ids := make([]string, len(rows))
	for i, r := range rows {
		ids[i] = r.ID
	}
	return ids
}

// Database lifecycle

func (s *Suite) TestFreshDatabaseDoesNotExist() {
	exists, err := s.store.Exists(s.ctx)
	s.Require().NoError(err)
	s.False(exists)
}

func (s *Suite) TestOperationsFailBeforeCreate() {
	var c card
	s.ErrorIs(s.store.Get(s.ctx, "duke", &c), storage.ErrDatabaseMissing)

	_, err := s.store.Save(s.ctx, "duke", card{Kind: "duke"})
	s.ErrorIs(err, storage.ErrDatabaseMissing)

	_, err = s.store.Query(s.ctx, "cards/by_kind", storage.QueryOptions{})
	s.ErrorIs(err, storage.ErrDatabaseMissing)
}

func (s *Suite) TestCreate() {
	s.create()

	exists, err := s.store.Exists(s.ctx)
	s.Require().NoError(err)
	s.True(exists)
}

func (s *Suite) TestCreateTwiceIsHarmless() {
	s.create()
	s.save("duke", card{Kind: "duke"})
	s.create()

	var c card
	s.Require().NoError(s.store.Get(s.ctx, "duke", &c))
	s.Equal("duke", c.Kind)
}

// Document tests

func (s *Suite) TestSaveAndGet() {
	s.create()
	id := s.save("duke", card{Kind: "duke", Power: 3})
	s.Equal("duke", id)

	var c card
	s.Require().NoError(s.store.Get(s.ctx, "duke", &c))
	s.Equal(card{Kind: "duke", Power: 3}, c)
}

func (s *Suite) TestSaveAssignsID() {
	s.create()
	first := s.save("", card{Kind: "captain"})
	second := s.save("", card{Kind: "captain"})

	s.NotEmpty(first)
	s.NotEqual(first, second)

	var c card
	s.Require().NoError(s.store.Get(s.ctx, first, &c))
	s.Equal("captain", c.Kind)
}

func (s *Suite) TestSaveOverwrites() {
	s.create()
	s.save("duke", card{Kind: "duke", Power: 1})
	s.save("duke", card{Kind: "duke", Power: 2})

	var c card
	s.Require().NoError(s.store.Get(s.ctx, "duke", &c))
	s.Equal(2, c.Power)
}

func (s *Suite) TestGetNotFound() {
	s.create()

	var c card
	s.ErrorIs(s.store.Get(s.ctx, "nonexistent", &c), storage.ErrNotFound)
}

func (s *Suite) TestMerge() {
	s.create()
	s.save("duke", card{Kind: "duke", Owner: "alice", Power: 3})

	err := s.store.Merge(s.ctx, "duke", map[string]any{"owner": "bob"})
	s.Require().NoError(err)

	var c card
	s.Require().NoError(s.store.Get(s.ctx, "duke", &c))
	s.Equal("bob", c.Owner)
	s.Equal("duke", c.Kind)
	s.Equal(3, c.Power)
}

func (s *Suite) TestMergeNotFound() {
	s.create()
	err := s.store.Merge(s.ctx, "nonexistent", map[string]any{"owner": "bob"})
	s.ErrorIs(err, storage.ErrNotFound)
}

// View tests

func (s *Suite) TestQueryByKey() {
	s.create()
	s.define(storage.Views{"by_kind": byKind})
	s.save("c1", card{Kind: "duke"})
	s.save("c2", card{Kind: "assassin"})
	s.save("c3", card{Kind: "duke"})

	rows, err := s.store.Query(s.ctx, "cards/by_kind", storage.ByKey("duke"))
	s.Require().NoError(err)
	s.Equal([]string{"c1", "c3"}, s.ids(rows))

	var c card
	s.Require().NoError(json.Unmarshal(rows[0].Value, &c))
	s.Equal("duke", c.Kind)
	s.Equal("duke", rows[0].Key)
}

func (s *Suite) TestQueryAllIsSortedByKeyThenID() {
	s.create()
	s.define(storage.Views{"by_kind": byKind})
	s.save("c3", card{Kind: "duke"})
	s.save("c1", card{Kind: "duke"})
	s.save("c2", card{Kind: "assassin"})
	s.save("c4", card{Power: 1})

	rows, err := s.store.Query(s.ctx, "cards/by_kind", storage.QueryOptions{})
	s.Require().NoError(err)
	s.Equal([]string{"c2", "c1", "c3"}, s.ids(rows))
}

func (s *Suite) TestQueryNoMatches() {
	s.create()
	s.define(storage.Views{"by_kind": byKind})

	rows, err := s.store.Query(s.ctx, "cards/by_kind", storage.ByKey("contessa"))
	s.Require().NoError(err)
	s.Empty(rows)
}

func (s *Suite) TestQueryUnknownView() {
	s.create()
	_, err := s.store.Query(s.ctx, "cards/missing", storage.QueryOptions{})
	s.ErrorIs(err, storage.ErrViewNotDefined)
}

func (s *Suite) TestViewsSkipDesignDocuments() {
	s.create()
	s.define(storage.Views{"everything": everything})
	s.save("c1", card{Kind: "duke"})

	rows, err := s.store.Query(s.ctx, "cards/everything", storage.QueryOptions{})
	s.Require().NoError(err)
	s.Equal([]string{"c1"}, s.ids(rows))
}

func (s *Suite) TestViewFollowsMerge() {
	s.create()
	s.define(storage.Views{"by_owner": byOwner})
	s.save("c1", card{Kind: "duke", Owner: "alice"})

	s.Require().NoError(s.store.Merge(s.ctx, "c1", map[string]any{"owner": "bob"}))

	rows, err := s.store.Query(s.ctx, "cards/by_owner", storage.ByKey("alice"))
	s.Require().NoError(err)
	s.Empty(rows)

	rows, err = s.store.Query(s.ctx, "cards/by_owner", storage.ByKey("bob"))
	s.Require().NoError(err)
	s.Equal([]string{"c1"}, s.ids(rows))
}

func (s *Suite) TestViewFollowsOverwrite() {
	s.create()
	s.define(storage.Views{"by_kind": byKind})
	s.save("c1", card{Kind: "duke"})
	s.save("c1", card{Power: 2})

	rows, err := s.store.Query(s.ctx, "cards/by_kind", storage.QueryOptions{})
	s.Require().NoError(err)
	s.Empty(rows)
}

func (s *Suite) TestDefineViewsIndexesExistingDocuments() {
	s.create()
	s.save("c1", card{Kind: "duke"})
	s.save("c2", card{Kind: "captain"})

	s.define(storage.Views{"by_kind": byKind})

	rows, err := s.store.Query(s.ctx, "cards/by_kind", storage.ByKey("captain"))
	s.Require().NoError(err)
	s.Equal([]string{"c2"}, s.ids(rows))
}

func (s *Suite) TestRedefiningViewsOverwrites() {
	s.create()
	s.save("c1", card{Kind: "duke", Owner: "alice"})
	s.define(storage.Views{"lookup": byKind})
	s.define(storage.Views{"lookup": byOwner})

	rows, err := s.store.Query(s.ctx, "cards/lookup", storage.ByKey("alice"))
	s.Require().NoError(err)
	s.Equal([]string{"c1"}, s.ids(rows))

	rows, err = s.store.Query(s.ctx, "cards/lookup", storage.ByKey("duke"))
	s.Require().NoError(err)
	s.Empty(rows)
}

func (s *Suite) TestDesignDocumentIsStored() {
	s.create()
	s.define(storage.Views{"by_owner": byOwner, "by_kind": byKind})

	var design storage.DesignDoc
	s.Require().NoError(s.store.Get(s.ctx, storage.DesignDocID("cards"), &design))
	s.Equal([]string{"by_kind", "by_owner"}, design.Views)
}
