package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/capitalize-ai/covid-dashboard/internal/warehouse"
)

var countriesCmd = &cobra.Command{
	Use:   "countries [country...]",
	Short: "List country labels, or print the case series of the given countries",
	RunE: func(cmd *cobra.Command, args []string) error {
		gateway, err := warehouse.Open(warehouseConfig(cfg))
		if err != nil {
			return err
		}
		defer gateway.Close()

		ctx := cmd.Context()
		out := cmd.OutOrStdout()

		if len(args) == 0 {
			countries, err := gateway.Countries(ctx)
			if err != nil {
				return err
			}
			fmt.Fprintln(out, strings.Join(countries, "\n"))
			return nil
		}

		rows, err := gateway.CaseSeriesFor(ctx, args)
		if err != nil {
			return err
		}
		for _, r := range rows {
			fmt.Fprintf(out, "%s\t%s\t%d\n", r.Date.Format("2006-01-02"), r.Country, r.Cases)
		}
		return nil
	},
}
