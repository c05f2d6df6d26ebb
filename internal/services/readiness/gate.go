// Package readiness provisions the backing database once per process and
// lets every operation wait for that to finish.
package readiness

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/mcoot/treason-stats/internal/model"
	"github.com/mcoot/treason-stats/internal/storage"
)

// Gate runs storage initialization exactly once and then stays settled.
//
// Initialization failures are logged and recorded but do not block callers:
// once settled, Wait always succeeds and operations fail individually
// against the unprovisioned store.
type Gate struct {
	store  storage.DocumentStore
	logger *slog.Logger

	once sync.Once
	done chan struct{}
	err  error
}

// New creates a Gate. Nothing touches the store until the first Wait.
func New(store storage.DocumentStore, logger *slog.Logger) *Gate {
	return &Gate{
		store:  store,
		logger: logger.With(slog.String("component", "readiness")),
		done:   make(chan struct{}),
	}
}

// Wait blocks until initialization has settled, starting it on first use.
// It only fails if ctx ends first; initialization carries on regardless.
func (g *Gate) Wait(ctx context.Context) error {
	g.once.Do(func() {
		go g.initialize(context.WithoutCancel(ctx))
	})

	select {
	case <-g.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Ready reports whether initialization has settled, successfully or not
func (g *Gate) Ready() bool {
	select {
	case <-g.done:
		return true
	default:
		return false
	}
}

// Err returns the initialization failure, or nil if initialization
// succeeded or has not settled yet
func (g *Gate) Err() error {
	if !g.Ready() {
		return nil
	}
	return g.err
}

func (g *Gate) initialize(ctx context.Context) {
	defer close(g.done)

	if err := g.provision(ctx); err != nil {
		g.err = fmt.Errorf("%w: %w", model.ErrInitialization, err)
		g.logger.Error("failed to initialize database",
			slog.String("error", err.Error()),
		)
		return
	}

	g.logger.Info("database ready",
		slog.String("design", DesignName),
	)
}

func (g *Gate) provision(ctx context.Context) error {
	exists, err := g.store.Exists(ctx)
	if err != nil {
		return fmt.Errorf("check database: %w", err)
	}
	if !exists {
		g.logger.Info("creating database")
		if err := g.store.Create(ctx); err != nil {
			return fmt.Errorf("create database: %w", err)
		}
	}

	g.logger.Debug("installing views")
	if err := g.store.DefineViews(ctx, DesignName, Views()); err != nil {
		return fmt.Errorf("define views: %w", err)
	}
	return nil
}
