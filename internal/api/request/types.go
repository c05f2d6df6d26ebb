package request

import "github.com/mcoot/treason-stats/internal/model"

// RegisterRequest is the request body for registering a player.
// ID is the id the client last used, if any.
type RegisterRequest struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// RecordGameRequest is the request body for recording a finished game
type RecordGameRequest struct {
	Players    int      `json:"players"`
	OnlyHumans bool     `json:"onlyHumans"`
	PlayerRank []string `json:"playerRank"`
	Bluffs     int      `json:"bluffs"`
	Challenges int      `json:"challenges"`
	Moves      int      `json:"moves"`
}

// ToModel converts the request to game stats
func (r RecordGameRequest) ToModel() *model.GameStats {
	rank := make([]model.PlayerID, len(r.PlayerRank))
	for i, id := range r.PlayerRank {
		rank[i] = model.PlayerID(id)
	}
	return &model.GameStats{
		Players:    r.Players,
		OnlyHumans: r.OnlyHumans,
		PlayerRank: rank,
		Bluffs:     r.Bluffs,
		Challenges: r.Challenges,
		Moves:      r.Moves,
	}
}
