package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/DaanHessen/quizgame/internal/store"
)

func newHistoryCommand(a *app) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recently played games",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg := a.config()
			db, err := store.Open(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer db.Close()
			games, err := store.NewGameRepo(db).Recent(cmd.Context(), limit)
			if err != nil {
				return err
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "STARTED\tSCORE\tOUTCOME\tSEED")
			for _, g := range games {
				fmt.Fprintf(tw, "%s\t%d/%d\t%s\t%s\n", g.StartedAt.Local().Format("2006-01-02 15:04"), g.Score, g.Total, g.Outcome, g.Seed)
			}
			return tw.Flush()
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 10, "Number of games to show")
	return cmd
}
