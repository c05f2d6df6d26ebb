package random

import (
	"encoding/hex"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHexLength(t *testing.T) {
	r := New()

	id := r.Hex(32)
	assert.Len(t, id, 64)

	_, err := hex.DecodeString(id)
	assert.NoError(t, err)
}

func TestHexIsUnique(t *testing.T) {
	r := New()
	seen := make(map[string]bool)
	for _iter := 0; _iter < 100; _iter++ {
		id := r.Hex(32)
		assert.False(t, seen[id], "duplicate id %s", id)
		seen[id] = true
	}
}

func TestHexNonPositive(t *testing.T) {
	assert.Empty(t, New().Hex(0))
	assert.Empty(t, New().Hex(-1))
}
