package readiness

import "github.com/mcoot/treason-stats/internal/storage"

// DesignName is the design document holding every view the service queries
const DesignName = "games"

// View paths, as passed to DocumentStore.Query
var (
	ViewAllGames   = storage.ViewPath(DesignName, "all_games")
	ViewPlayerWins = storage.ViewPath(DesignName, "player_wins")
	ViewAllPlayers = storage.ViewPath(DesignName, "all_players")
)

// Views returns the map functions of the games design document
func Views() storage.Views {
	return storage.Views{
		"all_games":   allGames,
		"player_wins": playerWins,
		"all_players": allPlayers,
	}
}

// isGame matches documents written by the game recorder
func isGame(doc storage.Document) bool {
	return storage.Truthy(doc["players"]) && storage.Truthy(doc["playerRank"])
}

func allGames(doc storage.Document) (string, bool) {
	return "", isGame(doc)
}

// playerWins emits each game under its winner, the head of playerRank
func playerWins(doc storage.Document) (string, bool) {
	if !isGame(doc) {
		return "", false
	}
	rank, _ := doc["playerRank"].([]any)
	if len(rank) == 0 {
		return "", true
	}
	winner, _ := rank[0].(string)
	return winner, true
}

// allPlayers matches player documents. Any other document carrying a
// non-empty name would match too.
func allPlayers(doc storage.Document) (string, bool) {
	return "", storage.Truthy(doc["name"])
}
