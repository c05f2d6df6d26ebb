package ranking

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/mcoot/treason-stats/internal/model"
	"github.com/mcoot/treason-stats/internal/services/readiness"
	"github.com/mcoot/treason-stats/internal/storage"
)

// Config holds configuration for the ranking service
type Config struct {
	// FanOut caps concurrent win-count queries while building rankings
	FanOut int
}

// DefaultConfig returns default ranking configuration
func DefaultConfig() Config {
	return Config{
		FanOut: 16,
	}
}

// Service answers win-count and leaderboard queries by aggregating the
// stored game records on every call
type Service struct {
	store  storage.DocumentStore
	gate   *readiness.Gate
	logger *slog.Logger
	cfg    Config
}

// New creates a new ranking Service
func New(store storage.DocumentStore, gate *readiness.Gate, cfg Config, logger *slog.Logger) *Service {
	if cfg.FanOut <= 0 {
		cfg.FanOut = DefaultConfig().FanOut
	}
	return &Service{
		store:  store,
		gate:   gate,
		logger: logger.With(slog.String("component", "ranking")),
		cfg:    cfg,
	}
}

type winsOptions struct {
	humanOnly bool
}

// WinsOption adjusts how PlayerWins counts
type WinsOption func(*winsOptions)

// HumanOnly counts only games without bots
func HumanOnly() WinsOption {
	return func(o *winsOptions) { o.humanOnly = true }
}

// HumanOnlyIf applies HumanOnly when enabled is set
func HumanOnlyIf(enabled bool) WinsOption {
	return func(o *winsOptions) { o.humanOnly = enabled }
}

// PlayerWins counts the recorded games won by id
func (s *Service) PlayerWins(ctx context.Context, id model.PlayerID, opts ...WinsOption) (int, error) {
	var o winsOptions
	for _, opt := range opts {
		opt(&o)
	}

	rows, err := s.query(ctx, readiness.ViewPlayerWins, storage.ByKey(string(id)))
	if err != nil {
		return 0, err
	}
	if !o.humanOnly {
		return len(rows), nil
	}

	wins := 0
	for _, row := range rows {
		var game struct {
			OnlyHumans bool `json:"onlyHumans"`
		}
		if err := json.Unmarshal(row.Value, &game); err != nil {
			return 0, s.queryFailed(readiness.ViewPlayerWins, err)
		}
		if game.OnlyHumans {
			wins++
		}
	}
	return wins, nil
}

// AllPlayers lists every registered player in directory order
func (s *Service) AllPlayers(ctx context.Context) ([]model.PlayerSummary, error) {
	rows, err := s.query(ctx, readiness.ViewAllPlayers, storage.QueryOptions{})
	if err != nil {
		return nil, err
	}

	players := make([]model.PlayerSummary, 0, len(rows))
	for _, row := range rows {
		var player model.Player
		if err := json.Unmarshal(row.Value, &player); err != nil {
			return nil, s.queryFailed(readiness.ViewAllPlayers, err)
		}
		players = append(players, model.PlayerSummary{
			PlayerName: player.Name,
			PlayerID:   model.PlayerID(row.ID),
		})
	}
	return players, nil
}

// Rankings returns every player's total wins, in directory order. Either
// every count succeeds or the whole call fails.
func (s *Service) Rankings(ctx context.Context) ([]model.PlayerWins, error) {
	players, err := s.AllPlayers(ctx)
	if err != nil {
		return nil, err
	}

	results := make([]model.PlayerWins, len(players))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.cfg.FanOut)
	for i, player := range players {
		i, player := i, player
		g.Go(func() error {
			wins, err := s.PlayerWins(gctx, player.PlayerID)
			if err != nil {
				return err
			}
			results[i] = model.PlayerWins{PlayerName: player.PlayerName, Wins: wins}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	s.logger.Debug("rankings computed",
		slog.Int("players", len(results)),
	)
	return results, nil
}

// Games lists every recorded game
func (s *Service) Games(ctx context.Context) ([]model.GameRecord, error) {
	rows, err := s.query(ctx, readiness.ViewAllGames, storage.QueryOptions{})
	if err != nil {
		return nil, err
	}

	games := make([]model.GameRecord, 0, len(rows))
	for _, row := range rows {
		record := model.GameRecord{ID: row.ID}
		if err := json.Unmarshal(row.Value, &record.GameStats); err != nil {
			return nil, s.queryFailed(readiness.ViewAllGames, err)
		}
		games = append(games, record)
	}
	return games, nil
}

func (s *Service) query(ctx context.Context, view string, opts storage.QueryOptions) ([]storage.Row, error) {
	if err := s.gate.Wait(ctx); err != nil {
		return nil, err
	}
	rows, err := s.store.Query(ctx, view, opts)
	if err != nil {
		return nil, s.queryFailed(view, err)
	}
	return rows, nil
}

func (s *Service) queryFailed(view string, err error) error {
	s.logger.Error("query failed",
		slog.String("view", view),
		slog.String("error", err.Error()),
	)
	return fmt.Errorf("%w: %s: %w", model.ErrQuery, view, err)
}
