package cli

import (
	"cmp"
	"slices"

	"github.com/spf13/cobra"
)

func newRankingsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "rankings",
		Short: "Show the leaderboard, most wins first",
		RunE: func(cmd *cobra.Command, args []string) error {
			var result [][]RankingEntry

			if err := client.Get("/api/v1/rankings", &result); err != nil {
				return err
			}

			out := NewOutput(cfg.Output)
			out.Print(flattenRankings(result))
			return nil
		},
	}
}

// flattenRankings unwraps the server's nested leaderboard and orders it.
// The server leaves ordering to clients.
func flattenRankings(nested [][]RankingEntry) Rankings {
	flat := Rankings{}
	for _, group := range nested {
		flat = append(flat, group...)
	}
	slices.SortStableFunc(flat, func(a, b RankingEntry) int {
		if c := cmp.Compare(b.Wins, a.Wins); c != 0 {
			return c
		}
		return cmp.Compare(a.PlayerName, b.PlayerName)
	})
	return flat
}
