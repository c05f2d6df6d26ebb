package cli

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFlattenRankingsSortsByWins(t *testing.T) {
	nested := [][]RankingEntry{{
		{PlayerName: "Carol", Wins: 1},
		{PlayerName: "Alice", Wins: 3},
		{PlayerName: "Bob", Wins: 1},
	}}

	assert.Equal(t, Rankings{
		{PlayerName: "Alice", Wins: 3},
		{PlayerName: "Bob", Wins: 1},
		{PlayerName: "Carol", Wins: 1},
	}, flattenRankings(nested))
}

func TestFlattenRankingsEmpty(t *testing.T) {
	assert.Equal(t, Rankings{}, flattenRankings(nil))
	assert.Equal(t, Rankings{}, flattenRankings([][]RankingEntry{{}}))
}

func TestTextOutput(t *testing.T) {
	tests := []struct {
		name string
		data any
		want []string
	}{
		{
			name: "new player",
			data: Registration{PlayerID: "abc", Created: true, Persisted: true},
			want: []string{"Registered new player: abc"},
		},
		{
			name: "unsaved player",
			data: Registration{PlayerID: "abc", Created: true},
			want: []string{"not saved"},
		},
		{
			name: "rename",
			data: Registration{PlayerID: "abc", Persisted: true, Renamed: true},
			want: []string{"Welcome back: abc", "name update pending"},
		},
		{
			name: "players",
			data: PlayerList{{PlayerName: "Alice", PlayerID: "a1"}},
			want: []string{"NAME", "Alice", "a1"},
		},
		{
			name: "no players",
			data: PlayerList{},
			want: []string{"No players registered"},
		},
		{
			name: "wins",
			data: PlayerWins{PlayerID: "a1", Wins: 4, HumanOnly: true},
			want: []string{"won 4", "human-only"},
		},
		{
			name: "games",
			data: GameList{{ID: "g1", GameStats: GameStats{Players: 2, PlayerRank: []string{"a", "b"}}}},
			want: []string{"g1", "a > b"},
		},
		{
			name: "rankings",
			data: Rankings{{PlayerName: "Alice", Wins: 2}},
			want: []string{"PLAYER", "Alice", "2"},
		},
		{
			name: "health",
			data: HealthResult{Status: "ok", Storage: "redis"},
			want: []string{"Status: ok", "Storage: redis"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			out := &Output{format: "text", w: &buf}
			out.Print(tt.data)
			for _, want := range tt.want {
				assert.Contains(t, buf.String(), want)
			}
		})
	}
}

func TestJSONOutput(t *testing.T) {
	var buf bytes.Buffer
	out := &Output{format: "json", w: &buf}
	out.Print(PlayerWins{PlayerID: "a1", Wins: 2})

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	assert.Equal(t, "a1", decoded["playerId"])
	assert.Equal(t, float64(2), decoded["wins"])
}

func TestPlayerIDFile(t *testing.T) {
	cfg := &Config{IDFile: t.TempDir() + "/nested/player-id"}

	require.NoError(t, cfg.LoadPlayerID())
	assert.Empty(t, cfg.PlayerID)

	require.NoError(t, cfg.SavePlayerID("abc123"))

	reloaded := &Config{IDFile: cfg.IDFile}
	require.NoError(t, reloaded.LoadPlayerID())
	assert.Equal(t, "abc123", reloaded.PlayerID)
}
