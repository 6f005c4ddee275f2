package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/randalmurphal/turngraph/internal/settings"
)

var rootCmd = &cobra.Command{
	Use:   "turnbot",
	Short: "Conversational bots built on turngraph workflows",
	Long: `turnbot runs a Japanese movie recommendation bot and a Tokyo train status bot.
Each user message is one run of a compiled workflow.

Configuration comes from --config (YAML or JSON), then TMDB_API_KEY, ODPT_TOKEN
and USE_STUB, then TURNBOT_ variables such as TURNBOT_SESSION__DRIVER=sqlite.`,
	SilenceUsage: true,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringP("config", "c", "", "Path to a YAML or JSON settings file")
	rootCmd.PersistentFlags().String("log-level", "", "Override log.level")
}

// loadSettings reads settings for cmd from its flags and the process environment.
func loadSettings(cmd *cobra.Command) (settings.Settings, error) {
	path, _ := cmd.Flags().GetString("config")
	s, err := settings.Load(path, os.Environ())
	if err != nil {
		return settings.Settings{}, err
	}
	if level, _ := cmd.Flags().GetString("log-level"); level != "" {
		s.Log.Level = level
		if err := s.Validate(); err != nil {
			return settings.Settings{}, err
		}
	}
	return s, nil
}
