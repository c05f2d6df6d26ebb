package factory

import (
	"log/slog"

	"github.com/mcoot/treason-stats/internal/dependencies/mocks"
	"github.com/mcoot/treason-stats/internal/services/identity"
	"github.com/mcoot/treason-stats/internal/services/ranking"
	"github.com/mcoot/treason-stats/internal/storage/memory"
	"github.com/mcoot/treason-stats/internal/testutil"
)

// TestApp extends App with test-specific helpers
type TestApp struct {
	*App

	// Mocks for test control
	MockRandom *mocks.MockRandom
	Store      *mocks.FaultyStore
}

// NewTestApp creates an App configured for testing with mocked dependencies
func NewTestApp() *TestApp {
	return NewTestAppWithLogger(testutil.NopLogger())
}

// NewTestAppWithLogger is NewTestApp logging to logger
func NewTestAppWithLogger(logger *slog.Logger) *TestApp {
	store := mocks.NewFaultyStore(memory.New())
	mockRandom := mocks.NewMockRandom()

	app := newWithDependencies(store, mockRandom, identity.DefaultConfig(), ranking.DefaultConfig(), logger)

	return &TestApp{
		App:        app,
		MockRandom: mockRandom,
		Store:      store,
	}
}
