package model

// PlayerID uniquely identifies a player across the system.
// Ids are issued by the server, never chosen by clients.
type PlayerID string

// Player is the stored identity document for a player
type Player struct {
	ID   PlayerID `json:"-"`
	Name string   `json:"name"`
}

// PlayerSummary is a lightweight directory entry for a player
type PlayerSummary struct {
	PlayerName string   `json:"playerName"`
	PlayerID   PlayerID `json:"playerId"`
}

// PlayerWins pairs a player's display name with their win count
type PlayerWins struct {
	PlayerName string `json:"playerName"`
	Wins       int    `json:"wins"`
}
