package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newGameCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "game",
		Short: "Game record commands",
	}

	cmd.AddCommand(newGameRecordCmd())
	cmd.AddCommand(newGameListCmd())

	return cmd
}

func newGameRecordCmd() *cobra.Command {
	var (
		rank                      []string
		players, bots             int
		bluffs, challenges, moves int
		strict                    bool
	)

	cmd := &cobra.Command{
		Use:   "record",
		Short: "Record a finished game",
		Long: `Record a finished game.

--rank lists player ids from the winner to the first player eliminated.
--players defaults to the number of ranked players plus --bots.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(rank) == 0 {
				return fmt.Errorf("--rank is required")
			}
			if players == 0 {
				players = len(rank) + bots
			}

			req := GameStats{
				Players:    players,
				OnlyHumans: bots == 0,
				PlayerRank: rank,
				Bluffs:     bluffs,
				Challenges: challenges,
				Moves:      moves,
			}

			path := "/api/v1/games"
			if strict {
				path += "?strict=true"
			}

			var result GameRecorded
			if err := client.Post(path, req, &result); err != nil {
				return err
			}

			out := NewOutput(cfg.Output)
			out.Print(result)
			return nil
		},
	}

	cmd.Flags().StringSliceVar(&rank, "rank", nil, "Player ids, winner first (required)")
	cmd.Flags().IntVar(&players, "players", 0, "Number of players seated")
	cmd.Flags().IntVar(&bots, "bots", 0, "Number of bots seated")
	cmd.Flags().IntVar(&bluffs, "bluffs", 0, "Bluffs made")
	cmd.Flags().IntVar(&challenges, "challenges", 0, "Challenges made")
	cmd.Flags().IntVar(&moves, "moves", 0, "Moves made")
	cmd.Flags().BoolVar(&strict, "strict", false, "Ask the server to validate the record")
	_ = cmd.MarkFlagRequired("rank")

	return cmd
}

func newGameListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List recorded games",
		RunE: func(cmd *cobra.Command, args []string) error {
			var result GameList

			if err := client.Get("/api/v1/games", &result); err != nil {
				return err
			}

			out := NewOutput(cfg.Output)
			out.Print(result)
			return nil
		},
	}
}
