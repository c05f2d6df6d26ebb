package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"
)

// Output handles formatting output based on the configured format
type Output struct {
	format string
	w      io.Writer
}

// NewOutput creates a new Output formatter writing to stdout
func NewOutput(format string) *Output {
	return &Output{format: format, w: os.Stdout}
}

// Print outputs data in the configured format
func (o *Output) Print(data any) {
	if o.format == "json" {
		o.printJSON(data)
	} else {
		o.printText(data)
	}
}

// PrintError outputs an error
func (o *Output) PrintError(err error) {
	if o.format == "json" {
		errData := map[string]any{
			"error": map[string]string{
				"message": err.Error(),
			},
		}
		data, _ := json.Marshal(errData)
		fmt.Fprintln(os.Stderr, string(data))
	} else {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
	}
}

func (o *Output) printJSON(data any) {
	enc := json.NewEncoder(o.w)
	enc.SetIndent("", "  ")
	_ = enc.Encode(data)
}

func (o *Output) printText(data any) {
	switch v := data.(type) {
	case Registration:
		o.printRegistration(v)
	case PlayerList:
		o.printPlayerList(v)
	case PlayerWins:
		o.printPlayerWins(v)
	case GameRecorded:
		o.printGameRecorded(v)
	case GameList:
		o.printGameList(v)
	case Rankings:
		o.printRankings(v)
	case HealthResult:
		o.printHealthResult(v)
	default:
		// Fallback to JSON for unknown types
		o.printJSON(data)
	}
}

// Registration response type (matches API)
type Registration struct {
	PlayerID  string `json:"playerId"`
	Created   bool   `json:"created"`
	Persisted bool   `json:"persisted"`
	Renamed   bool   `json:"renamed,omitempty"`
}

// PlayerSummary response type
type PlayerSummary struct {
	PlayerName string `json:"playerName"`
	PlayerID   string `json:"playerId"`
}

// PlayerList response type
type PlayerList []PlayerSummary

// PlayerWins response type
type PlayerWins struct {
	PlayerID  string `json:"playerId"`
	Wins      int    `json:"wins"`
	HumanOnly bool   `json:"humanOnly,omitempty"`
}

// GameStats request and response type
type GameStats struct {
	Players    int      `json:"players"`
	OnlyHumans bool     `json:"onlyHumans"`
	PlayerRank []string `json:"playerRank"`
	Bluffs     int      `json:"bluffs"`
	Challenges int      `json:"challenges"`
	Moves      int      `json:"moves"`
}

// GameRecord response type
type GameRecord struct {
	ID string `json:"id"`
	GameStats
}

// GameList response type
type GameList []GameRecord

// GameRecorded response type
type GameRecorded struct {
	ID string `json:"id"`
}

// RankingEntry response type
type RankingEntry struct {
	PlayerName string `json:"playerName"`
	Wins       int    `json:"wins"`
}

// Rankings is the leaderboard as printed, already ordered
type Rankings []RankingEntry

// HealthResult response type
type HealthResult struct {
	Status  string `json:"status"`
	Storage string `json:"storage"`
	Error   string `json:"error,omitempty"`
}

func (o *Output) printRegistration(r Registration) {
	switch {
	case r.Created && !r.Persisted:
		fmt.Fprintf(o.w, "Player id: %s (not saved, register again later)\n", r.PlayerID)
	case r.Created:
		fmt.Fprintf(o.w, "Registered new player: %s\n", r.PlayerID)
	case r.Renamed:
		fmt.Fprintf(o.w, "Welcome back: %s (name update pending)\n", r.PlayerID)
	default:
		fmt.Fprintf(o.w, "Welcome back: %s\n", r.PlayerID)
	}
}

func (o *Output) printPlayerList(players PlayerList) {
	if len(players) == 0 {
		fmt.Fprintln(o.w, "No players registered")
		return
	}
	tw := tabwriter.NewWriter(o.w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "NAME\tID")
	for _, p := range players {
		fmt.Fprintf(tw, "%s\t%s\n", p.PlayerName, p.PlayerID)
	}
	_ = tw.Flush()
}

func (o *Output) printPlayerWins(w PlayerWins) {
	scope := "all games"
	if w.HumanOnly {
		scope = "human-only games"
	}
	fmt.Fprintf(o.w, "Player %s has won %d (%s)\n", w.PlayerID, w.Wins, scope)
}

func (o *Output) printGameRecorded(g GameRecorded) {
	fmt.Fprintf(o.w, "Game recorded: %s\n", g.ID)
}

func (o *Output) printGameList(games GameList) {
	if len(games) == 0 {
		fmt.Fprintln(o.w, "No games recorded")
		return
	}
	tw := tabwriter.NewWriter(o.w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tPLAYERS\tHUMANS ONLY\tMOVES\tRANK")
	for _, g := range games {
		fmt.Fprintf(tw, "%s\t%d\t%t\t%d\t%s\n", g.ID, g.Players, g.OnlyHumans, g.Moves, strings.Join(g.PlayerRank, " > "))
	}
	_ = tw.Flush()
}

func (o *Output) printRankings(r Rankings) {
	if len(r) == 0 {
		fmt.Fprintln(o.w, "No players ranked")
		return
	}
	tw := tabwriter.NewWriter(o.w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "#\tPLAYER\tWINS")
	for i, e := range r {
		fmt.Fprintf(tw, "%d\t%s\t%d\n", i+1, e.PlayerName, e.Wins)
	}
	_ = tw.Flush()
}

func (o *Output) printHealthResult(h HealthResult) {
	fmt.Fprintf(o.w, "Status: %s\n", h.Status)
	fmt.Fprintf(o.w, "Storage: %s\n", h.Storage)
	if h.Error != "" {
		fmt.Fprintf(o.w, "Error: %s\n", h.Error)
	}
}
