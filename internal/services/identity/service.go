package identity

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/mcoot/treason-stats/internal/dependencies/random"
	"github.com/mcoot/treason-stats/internal/model"
	"github.com/mcoot/treason-stats/internal/services/readiness"
	"github.com/mcoot/treason-stats/internal/storage"
)

// IDBytes is the entropy of a generated player id; ids are hex encoded
const IDBytes = 32

// Registration is the outcome of a registration attempt
type Registration struct {
	// PlayerID is the id the client should use from now on
	PlayerID model.PlayerID
	// Created is set when PlayerID was freshly issued
	Created bool
	// Persisted is false when a freshly issued id could not be saved
	Persisted bool
	// Renamed is set when a background name update was started
	Renamed bool
}

// Config holds configuration for the identity service
type Config struct {
	// RenameTimeout bounds each background name update
	RenameTimeout time.Duration
}

// DefaultConfig returns default identity configuration
func DefaultConfig() Config {
	return Config{
		RenameTimeout: 10 * time.Second,
	}
}

// Service issues and recovers stable player ids
type Service struct {
	store  storage.DocumentStore
	gate   *readiness.Gate
	random random.Random
	logger *slog.Logger
	cfg    Config

	renames sync.WaitGroup
}

// New creates a new identity Service
func New(store storage.DocumentStore, gate *readiness.Gate, rnd random.Random, cfg Config, logger *slog.Logger) *Service {
	if cfg.RenameTimeout == 0 {
		cfg.RenameTimeout = DefaultConfig().RenameTimeout
	}
	return &Service{
		store:  store,
		gate:   gate,
		random: rnd,
		logger: logger.With(slog.String("component", "identity")),
		cfg:    cfg,
	}
}

// playerDoc distinguishes a player document from any other document
// stored under the same id
type playerDoc struct {
	Name *string `json:"name"`
}

// Register confirms claimedID for a player called name.
//
// A known id is returned as-is; if the name changed it is updated in the
// background and the caller does not wait for it. An unknown or empty id is
// replaced by a freshly generated one. Register never fails: if the new
// player cannot be saved the fresh id is still returned, with Persisted
// unset.
func (s *Service) Register(ctx context.Context, claimedID model.PlayerID, name string) Registration {
	if err := s.gate.Wait(ctx); err != nil {
		s.logger.Warn("stopped waiting for storage",
			slog.String("error", err.Error()),
		)
	}

	s.logger.Debug("player registering",
		slog.String("player_id", string(claimedID)),
		slog.String("name", name),
	)

	if existing, ok := s.lookup(ctx, claimedID); ok {
		reg := Registration{PlayerID: claimedID, Persisted: true}
		if existing != name {
			s.rename(ctx, claimedID, existing, name)
			reg.Renamed = true
		}
		s.logger.Info("existing player logged in",
			slog.String("player_id", string(claimedID)),
			slog.String("name", name),
		)
		return reg
	}

	return s.create(ctx, name)
}

// lookup returns the stored name for id, if id names a player document
func (s *Service) lookup(ctx context.Context, id model.PlayerID) (string, bool) {
	if id == "" || storage.IsDesignDoc(string(id)) {
		return "", false
	}

	var doc playerDoc
	err := s.store.Get(ctx, string(id), &doc)
	switch {
	case errors.Is(err, storage.ErrNotFound):
		s.logger.Info("player id not recognised, recreating",
			slog.String("player_id", string(id)),
		)
		return "", false
	case err != nil:
		s.logger.Warn("player lookup failed, recreating",
			slog.String("player_id", string(id)),
			slog.String("error", err.Error()),
		)
		return "", false
	case doc.Name == nil:
		s.logger.Warn("id does not belong to a player, recreating",
			slog.String("player_id", string(id)),
		)
		return "", false
	}
	return *doc.Name, true
}

func (s *Service) create(ctx context.Context, name string) Registration {
	id := model.PlayerID(s.random.Hex(IDBytes))

	if _, err := s.store.Save(ctx, string(id), model.Player{Name: name}); err != nil {
		s.logger.Error("failed to save player",
			slog.String("player_id", string(id)),
			slog.String("name", name),
			slog.String("error", err.Error()),
		)
		return Registration{PlayerID: id, Created: true}
	}

	s.logger.Info("allocated new player id",
		slog.String("player_id", string(id)),
		slog.String("name", name),
	)
	return Registration{PlayerID: id, Created: true, Persisted: true}
}

// rename updates a player's name on a detached goroutine. Failures are only
// logged; until it lands, readers may still see the old name.
func (s *Service) rename(ctx context.Context, id model.PlayerID, from, to string) {
	s.renames.Add(1)
	go func() {
		defer s.renames.Done()

		ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.cfg.RenameTimeout)
		defer cancel()

		err := s.store.Merge(ctx, string(id), map[string]any{"name": to})
		if err != nil {
			s.logger.Error("failed to update player name",
				slog.String("player_id", string(id)),
				slog.String("from", from),
				slog.String("to", to),
				slog.String("error", err.Error()),
			)
			return
		}

		s.logger.Info("updated player name",
			slog.String("player_id", string(id)),
			slog.String("from", from),
			slog.String("to", to),
		)
	}()
}

// Drain waits for background name updates to finish
func (s *Service) Drain(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		s.renames.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
