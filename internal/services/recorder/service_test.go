package recorder

import (
	"context"
	"testing"

	"github.com/stretchr/testify/suite"

	"github.com/mcoot/treason-stats/internal/dependencies/mocks"
	"github.com/mcoot/treason-stats/internal/model"
	"github.com/mcoot/treason-stats/internal/services/readiness"
	"github.com/mcoot/treason-stats/internal/storage"
	"github.com/mcoot/treason-stats/internal/storage/memory"
	"github.com/mcoot/treason-stats/internal/testutil"
)

type ServiceSuite struct {
	suite.Suite
	store   *mocks.FaultyStore
	logs    *testutil.LogBuffer
	service *Service
	ctx     context.Context
}

func TestServiceSuite(t *testing.T) {
	suite.Run(t, new(ServiceSuite))
}

func (s *ServiceSuite) SetupTest() {
	logger, logs := testutil.BufferLogger()
	s.logs = logs
	s.store = mocks.NewFaultyStore(memory.New())
	s.service = New(s.store, readiness.New(s.store, logger), logger)
	s.ctx = context.Background()
}

func finishedGame() *model.GameStats {
	stats := model.NewGameStats()
	stats.AddPlayer(true)
	stats.AddPlayer(true)
	stats.AddPlayer(false)
	stats.Eliminated("carol")
	stats.Eliminated("bob")
	stats.Won("alice")
	stats.Bluff()
	stats.Challenge()
	stats.Move()
	stats.Move()
	return stats
}

func (s *ServiceSuite) TestRecordStoresGame() {
	stats := finishedGame()

	id, err := s.service.Record(s.ctx, stats)
	s.Require().NoError(err)
	s.NotEmpty(id)

	var stored model.GameStats
	s.Require().NoError(s.store.Get(s.ctx, id, &stored))
	s.Equal(*stats, stored)
}

func (s *ServiceSuite) TestRecordAssignsDistinctKeys() {
	first, err := s.service.Record(s.ctx, finishedGame())
	s.Require().NoError(err)
	second, err := s.service.Record(s.ctx, finishedGame())
	s.Require().NoError(err)

	s.NotEqual(first, second)
}

func (s *ServiceSuite) TestRecordedGameAppearsInViews() {
	id, err := s.service.Record(s.ctx, finishedGame())
	s.Require().NoError(err)

	rows, err := s.store.Query(s.ctx, readiness.ViewPlayerWins, storage.ByKey("alice"))
	s.Require().NoError(err)
	s.Require().Len(rows, 1)
	s.Equal(id, rows[0].ID)

	rows, err = s.store.Query(s.ctx, readiness.ViewAllGames, storage.QueryOptions{})
	s.Require().NoError(err)
	s.Len(rows, 1)
}

func (s *ServiceSuite) TestRecordDoesNotValidate() {
	stats := model.NewGameStats()
	stats.Won("alice")
	stats.Won("alice")
	s.Require().Error(stats.Validate())

	_, err := s.service.Record(s.ctx, stats)
	s.NoError(err)
}

func (s *ServiceSuite) TestRecordNil() {
	_, err := s.service.Record(s.ctx, nil)
	s.ErrorIs(err, model.ErrInvalidGameStats)
	s.Equal(0, s.store.Calls(mocks.OpSave))
}

func (s *ServiceSuite) TestSaveFailure() {
	s.store.Fail(mocks.OpSave, nil)

	_, err := s.service.Record(s.ctx, finishedGame())

	s.ErrorIs(err, model.ErrWrite)
	s.ErrorIs(err, mocks.ErrInjected)
	s.Contains(s.logs.String(), "failed to save game stats")
}

func (s *ServiceSuite) TestFailsWhenDatabaseWasNotCreated() {
	s.store.Fail(mocks.OpCreate, nil)

	_, err := s.service.Record(s.ctx, finishedGame())

	s.ErrorIs(err, model.ErrWrite)
	s.ErrorIs(err, storage.ErrDatabaseMissing)
}
