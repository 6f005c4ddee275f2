package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

var transitCmd = &cobra.Command{
	Use:   "transit <question>",
	Short: "Ask the train status bot one question",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := loadSettings(cmd)
		if err != nil {
			return err
		}
		a, err := newApp(cmd.Context(), s, os.Stderr)
		if err != nil {
			return err
		}
		defer a.Close(context.Background())

		reply, _, err := a.transit.Ask(cmd.Context(), strings.Join(args, " "))
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), reply)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(transitCmd)
}
