package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/randalmurphal/turngraph/internal/moviebot"
	"github.com/randalmurphal/turngraph/internal/tmdb"
)

var validateCmd = &cobra.Command{
	Use:   "validate [layout.yaml]",
	Short: "Check a movie bot layout",
	Long: `Compiles a layout file against the movie bot's step catalogue and reports
every structural problem. Without an argument the built-in layout is checked.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := ""
		if len(args) > 0 {
			path = args[0]
		}
		def, err := moviebot.LoadLayout(path)
		if err != nil {
			return err
		}
		r, err := moviebot.Compile(def, moviebot.DefaultConfig(), moviebot.Deps{
			Movies: &tmdb.Stub{},
		})
		if err != nil {
			return fmt.Errorf("validation failed: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "layout %s is valid: %d steps, entry %s, terminals %v\n",
			r.Name(), len(r.StepNames()), r.Entry(), r.Terminals())
		return nil
	},
}

func init() {
	rootCmd.AddCommand(validateCmd)
}
