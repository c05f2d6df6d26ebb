package recorder

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/mcoot/treason-stats/internal/model"
	"github.com/mcoot/treason-stats/internal/services/readiness"
	"github.com/mcoot/treason-stats/internal/storage"
)

// Service persists the statistics of finished games
type Service struct {
	store  storage.DocumentStore
	gate   *readiness.Gate
	logger *slog.Logger
}

// New creates a new recorder Service
func New(store storage.DocumentStore, gate *readiness.Gate, logger *slog.Logger) *Service {
	return &Service{
		store:  store,
		gate:   gate,
		logger: logger.With(slog.String("component", "recorder")),
	}
}

// Record saves stats as a new game document and returns its store-assigned
// key. Stats are stored as given; callers wanting checks use Validate first.
func (s *Service) Record(ctx context.Context, stats *model.GameStats) (string, error) {
	if stats == nil {
		return "", fmt.Errorf("%w: no stats given", model.ErrInvalidGameStats)
	}
	if err := s.gate.Wait(ctx); err != nil {
		return "", err
	}

	id, err := s.store.Save(ctx, "", stats)
	if err != nil {
		s.logger.Error("failed to save game stats",
			slog.Int("players", stats.Players),
			slog.String("error", err.Error()),
		)
		return "", fmt.Errorf("%w: save game: %w", model.ErrWrite, err)
	}

	winner, _ := stats.Winner()
	s.logger.Info("game recorded",
		slog.String("game_id", id),
		slog.Int("players", stats.Players),
		slog.String("winner", string(winner)),
		slog.Bool("only_humans", stats.OnlyHumans),
	)
	return id, nil
}
