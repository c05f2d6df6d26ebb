package response

import (
	"github.com/mcoot/treason-stats/internal/model"
	"github.com/mcoot/treason-stats/internal/services/identity"
)

// Registration is the response for player registration
type Registration struct {
	PlayerID  string `json:"playerId"`
	Created   bool   `json:"created"`
	Persisted bool   `json:"persisted"`
	Renamed   bool   `json:"renamed,omitempty"`
}

// RegistrationFromModel converts an identity.Registration
func RegistrationFromModel(r identity.Registration) Registration {
	return Registration{
		PlayerID:  string(r.PlayerID),
		Created:   r.Created,
		Persisted: r.Persisted,
		Renamed:   r.Renamed,
	}
}

// PlayerWins is the response for a single player's win count
type PlayerWins struct {
	PlayerID  string `json:"playerId"`
	Wins      int    `json:"wins"`
	HumanOnly bool   `json:"humanOnly,omitempty"`
}

// GameRecorded is the response after recording a game
type GameRecorded struct {
	ID string `json:"id"`
}

// Rankings wraps the leaderboard in the single-element outer list
// clients expect
type Rankings [][]model.PlayerWins

// RankingsFromModel converts the flat leaderboard
func RankingsFromModel(wins []model.PlayerWins) Rankings {
	if wins == nil {
		wins = []model.PlayerWins{}
	}
	return Rankings{wins}
}

// Health statuses
const (
	HealthOK       = "ok"
	HealthStarting = "starting"
	HealthDegraded = "degraded"
)

// Health is the response for the health check
type Health struct {
	Status  string `json:"status"`
	Storage string `json:"storage"`
	Error   string `json:"error,omitempty"`
}
