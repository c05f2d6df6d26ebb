package cli

import (
	"fmt"
	"net/url"

	"github.com/spf13/cobra"
)

func newPlayerCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "player",
		Short: "Player commands",
	}

	cmd.AddCommand(newPlayerRegisterCmd())
	cmd.AddCommand(newPlayerListCmd())
	cmd.AddCommand(newPlayerWinsCmd())

	return cmd
}

func newPlayerRegisterCmd() *cobra.Command {
	var name string

	cmd := &cobra.Command{
		Use:   "register",
		Short: "Register, or log back in with the remembered id",
		RunE: func(cmd *cobra.Command, args []string) error {
			if name == "" {
				return fmt.Errorf("--name is required")
			}

			req := map[string]string{"id": cfg.PlayerID, "name": name}
			var result Registration

			if err := client.Post("/api/v1/players/register", req, &result); err != nil {
				return err
			}

			// Remember the confirmed id
			if err := cfg.SavePlayerID(result.PlayerID); err != nil {
				return fmt.Errorf("failed to save player id: %w", err)
			}

			out := NewOutput(cfg.Output)
			out.Print(result)
			return nil
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "Player name (required)")
	_ = cmd.MarkFlagRequired("name")

	return cmd
}

func newPlayerListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List registered players",
		RunE: func(cmd *cobra.Command, args []string) error {
			var result PlayerList

			if err := client.Get("/api/v1/players", &result); err != nil {
				return err
			}

			out := NewOutput(cfg.Output)
			out.Print(result)
			return nil
		},
	}
}

func newPlayerWinsCmd() *cobra.Command {
	var humanOnly bool

	cmd := &cobra.Command{
		Use:   "wins [player-id]",
		Short: "Show a player's win count (defaults to the remembered id)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id := cfg.PlayerID
			if len(args) == 1 {
				id = args[0]
			}
			if id == "" {
				return fmt.Errorf("no player id given and none remembered; run 'player register' first")
			}

			path := "/api/v1/players/" + url.PathEscape(id) + "/wins"
			if humanOnly {
				path += "?humanOnly=true"
			}

			var result PlayerWins
			if err := client.Get(path, &result); err != nil {
				return err
			}

			out := NewOutput(cfg.Output)
			out.Print(result)
			return nil
		},
	}

	cmd.Flags().BoolVar(&humanOnly, "human-only", false, "Only count games without bots")

	return cmd
}
