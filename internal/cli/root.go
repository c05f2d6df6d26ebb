package cli

import (
	"os"

	"github.com/spf13/cobra"
)

var (
	cfg    *Config
	client *Client
)

// NewRootCmd creates the root command
func NewRootCmd() *cobra.Command {
	cfg = DefaultConfig()

	rootCmd := &cobra.Command{
		Use:   "treason",
		Short: "CLI tool for the Treason stats API",
		Long: `treason is a CLI tool for the Treason game statistics API.

It registers players, records finished games and reads win counts and
rankings. The player id confirmed by the server is remembered between runs.`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			// Load player id from file if not provided via flag/env
			if err := cfg.LoadPlayerID(); err != nil {
				return err
			}

			// Create HTTP client
			client = NewClient(cfg.ServerURL, cfg.Verbose)
			return nil
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Global flags
	rootCmd.PersistentFlags().StringVar(&cfg.ServerURL, "server", cfg.ServerURL, "Server URL (env: TREASON_SERVER)")
	rootCmd.PersistentFlags().StringVar(&cfg.PlayerID, "id", cfg.PlayerID, "Player id (env: TREASON_PLAYER_ID)")
	rootCmd.PersistentFlags().StringVar(&cfg.IDFile, "id-file", cfg.IDFile, "Player id file path (env: TREASON_ID_FILE)")
	rootCmd.PersistentFlags().StringVarP(&cfg.Output, "output", "o", cfg.Output, "Output format: text, json")
	rootCmd.PersistentFlags().BoolVarP(&cfg.Verbose, "verbose", "v", cfg.Verbose, "Verbose output")

	// Add subcommands
	rootCmd.AddCommand(newPlayerCmd())
	rootCmd.AddCommand(newGameCmd())
	rootCmd.AddCommand(newRankingsCmd())
	rootCmd.AddCommand(newHealthCmd())

	return rootCmd
}

// Execute runs the root command
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		NewOutput(cfg.Output).PrintError(err)
		os.Exit(1)
	}
}
