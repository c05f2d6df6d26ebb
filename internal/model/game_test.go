package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewGameStatsIsZeroed(t *testing.T) {
	stats := NewGameStats()

	assert.Equal(t, 0, stats.Players)
	assert.True(t, stats.OnlyHumans)
	assert.NotNil(t, stats.PlayerRank)
	assert.Empty(t, stats.PlayerRank)
	assert.Equal(t, 0, stats.Bluffs)
	assert.Equal(t, 0, stats.Challenges)
	assert.Equal(t, 0, stats.Moves)
}

func TestGameStatsRankingOrder(t *testing.T) {
	stats := NewGameStats()
	stats.AddPlayer(true)
	stats.AddPlayer(true)
	stats.AddPlayer(true)

	stats.Eliminated("carol")
	stats.Eliminated("bob")
	stats.Won("alice")

	assert.Equal(t, []PlayerID{"alice", "bob", "carol"}, stats.PlayerRank)
	winner, ok := stats.Winner()
	require.True(t, ok)
	assert.Equal(t, PlayerID("alice"), winner)
}

func TestGameStatsBotMakesGameNonHuman(t *testing.T) {
	stats := NewGameStats()
	stats.AddPlayer(true)
	stats.AddPlayer(false)

	assert.Equal(t, 2, stats.Players)
	assert.False(t, stats.OnlyHumans)
}

func TestGameStatsCounters(t *testing.T) {
	stats := NewGameStats()
	stats.Move()
	stats.Move()
	stats.Bluff()
	stats.Challenge()

	assert.Equal(t, 2, stats.Moves)
	assert.Equal(t, 1, stats.Bluffs)
	assert.Equal(t, 1, stats.Challenges)
}

func TestWinnerEmpty(t *testing.T) {
	_, ok := NewGameStats().Winner()
	assert.False(t, ok)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		stats   GameStats
		wantErr bool
	}{
		{
			name:  "valid",
			stats: GameStats{Players: 2, PlayerRank: []PlayerID{"a", "b"}},
		},
		{
			name:    "no players",
			stats:   GameStats{Players: 0, PlayerRank: []PlayerID{"a"}},
			wantErr: true,
		},
		{
			name:    "empty rank",
			stats:   GameStats{Players: 2, PlayerRank: []PlayerID{}},
			wantErr: true,
		},
		{
			name:    "more ranked than seated",
			stats:   GameStats{Players: 1, PlayerRank: []PlayerID{"a", "b"}},
			wantErr: true,
		},
		{
			name:    "duplicate",
			stats:   GameStats{Players: 2, PlayerRank: []PlayerID{"a", "a"}},
			wantErr: true,
		},
		{
			name:    "blank id",
			stats:   GameStats{Players: 2, PlayerRank: []PlayerID{"a", ""}},
			wantErr: true,
		},
		{
			name:    "negative counter",
			stats:   GameStats{Players: 2, PlayerRank: []PlayerID{"a"}, Moves: -1},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.stats.Validate()
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidGameStats)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
