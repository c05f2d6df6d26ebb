package mocks

import (
	"sync"

	"github.com/mcoot/treason-stats/internal/dependencies/random"
)

// MockRandom is a mock implementation of Random for testing.
// Once the queue is empty it falls back to real randomness so that
// unscripted callers still get distinct ids.
type MockRandom struct {
	mu sync.Mutex

	// HexResults is a queue of results to return from Hex
	HexResults []string
	hexIndex   int

	fallback *random.CryptoRandom
}

// Ensure MockRandom implements Random
var _ random.Random = (*MockRandom)(nil)

// NewMockRandom creates a new MockRandom
func NewMockRandom() *MockRandom {
	return &MockRandom{fallback: random.New()}
}

// Hex returns the next queued result
func (r *MockRandom) Hex(n int) string {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.hexIndex >= len(r.HexResults) {
		return r.fallback.Hex(n)
	}
	result := r.HexResults[r.hexIndex]
	r.hexIndex++
	return result
}

// QueueHex adds values to the Hex result queue
func (r *MockRandom) QueueHex(values ...string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.HexResults = append(r.HexResults, values...)
}

// Reset clears all queued results
func (r *MockRandom) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.HexResults = nil
	r.hexIndex = 0
}
