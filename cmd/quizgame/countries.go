package main

import (
	"fmt"
	"sort"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

func newCountriesCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "countries",
		Short: "Download and print the Country → Capital map",
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, err := a.countriesClient(a.config())
			if err != nil {
				return err
			}
			capitals, err := c.CapitalMap(cmd.Context())
			if err != nil {
				return err
			}
			names := make([]string, 0, len(capitals))
			for name := range capitals {
				names = append(names, name)
			}
			sort.Strings(names)
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			for _, name := range names {
				fmt.Fprintf(tw, "%s\t%s\n", name, capitals[name])
			}
			return tw.Flush()
		},
	}
}
