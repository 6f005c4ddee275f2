package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/randalmurphal/turngraph/internal/moviebot"
	"github.com/randalmurphal/turngraph/internal/tmdb"
	"github.com/randalmurphal/turngraph/internal/transit"
	"github.com/randalmurphal/turngraph/pkg/turngraph"
)

var graphCmd = &cobra.Command{
	Use:   "graph [layout.yaml]",
	Short: "Print a workflow as a Mermaid diagram",
	Long: `Prints the movie bot workflow (or the layout file given) as a Mermaid
flowchart. --bot transit prints the train status workflow instead.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		bot, _ := cmd.Flags().GetString("bot")

		var r *turngraph.Runnable
		var err error
		switch bot {
		case "movie":
			path := ""
			if len(args) > 0 {
				path = args[0]
			}
			def, lerr := moviebot.LoadLayout(path)
			if lerr != nil {
				return lerr
			}
			r, err = moviebot.Compile(def, moviebot.DefaultConfig(), moviebot.Deps{Movies: &tmdb.Stub{}})
		case "transit":
			var tb *transit.Bot
			tb, err = transit.New(transit.NewStub(), nil)
			if err == nil {
				r = tb.Runnable()
			}
		default:
			return fmt.Errorf("unknown bot %q (want movie or transit)", bot)
		}
		if err != nil {
			return err
		}
		fmt.Fprint(cmd.OutOrStdout(), r.Mermaid(nil))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(graphCmd)
	graphCmd.Flags().String("bot", "movie", "Workflow to print: movie or transit")
}
