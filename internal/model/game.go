package model

import (
	"fmt"
	"slices"
)

// GameStats captures statistics about a single completed game.
//
// PlayerRank is ordered winner first, with the first player to be eliminated
// last in the slice. Disconnected players are not ranked.
type GameStats struct {
	Players    int        `json:"players"`
	OnlyHumans bool       `json:"onlyHumans"`
	PlayerRank []PlayerID `json:"playerRank"`
	Bluffs     int        `json:"bluffs"`
	Challenges int        `json:"challenges"`
	Moves      int        `json:"moves"`
}

// GameRecord is a stored game together with its store-assigned key
type GameRecord struct {
	ID string `json:"id"`
	GameStats
}

// NewGameStats returns zeroed stats for a game that is about to start
func NewGameStats() *GameStats {
	return &GameStats{
		Players:    0,
		OnlyHumans: true,
		PlayerRank: []PlayerID{},
		Bluffs:     0,
		Challenges: 0,
		Moves:      0,
	}
}

// AddPlayer counts a seated player. A single bot makes the game non-human.
func (g *GameStats) AddPlayer(human bool) {
	g.Players++
	if !human {
		g.OnlyHumans = false
	}
}

// Eliminated records a player being knocked out. Later eliminations rank
// higher, so each one is placed at the front of the ranking.
func (g *GameStats) Eliminated(id PlayerID) {
	g.PlayerRank = slices.Insert(g.PlayerRank, 0, id)
}

// Won records the winner at the head of the ranking
func (g *GameStats) Won(id PlayerID) {
	g.PlayerRank = slices.Insert(g.PlayerRank, 0, id)
}

func (g *GameStats) Bluff()     { g.Bluffs++ }
func (g *GameStats) Challenge() { g.Challenges++ }
func (g *GameStats) Move()      { g.Moves++ }

// Winner returns the player at the head of the ranking, if any
func (g *GameStats) Winner() (PlayerID, bool) {
	if len(g.PlayerRank) == 0 {
		return "", false
	}
	return g.PlayerRank[0], true
}

// Validate checks the invariants a well-formed game record should satisfy.
// Recording does not enforce these; callers opt in.
func (g *GameStats) Validate() error {
	if g.Players <= 0 {
		return fmt.Errorf("%w: players must be positive", ErrInvalidGameStats)
	}
	if len(g.PlayerRank) == 0 {
		return fmt.Errorf("%w: player rank is empty", ErrInvalidGameStats)
	}
	if len(g.PlayerRank) > g.Players {
		return fmt.Errorf("%w: ranked %d players in a %d player game", ErrInvalidGameStats, len(g.PlayerRank), g.Players)
	}
	seen := make(map[PlayerID]bool, len(g.PlayerRank))
	for _, id := range g.PlayerRank {
		if id == "" {
			return fmt.Errorf("%w: empty player id in rank", ErrInvalidGameStats)
		}
		if seen[id] {
			return fmt.Errorf("%w: player %s ranked twice", ErrInvalidGameStats, id)
		}
		seen[id] = true
	}
	if g.Bluffs < 0 || g.Challenges < 0 || g.Moves < 0 {
		return fmt.Errorf("%w: counters must not be negative", ErrInvalidGameStats)
	}
	return nil
}
