package main

import (
	"github.com/OutOfBedlam/trendline/chart"
	"github.com/OutOfBedlam/trendline/dataset"
	"github.com/OutOfBedlam/trendline/output/ndjson"
	"github.com/spf13/cobra"
)

func newPointsCmd(g *globalFlags) *cobra.Command {
	var series, dest string
	cmd := &cobra.Command{
		Use:   "points FILE",
		Short: "Print the points of each series as NDJSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := g.chartConfig()
			if err != nil {
				return err
			}
			records, fields, err := g.records(args[0])
			if err != nil {
				return err
			}
			names := splitList(series)
			if len(names) == 0 {
				names = fields
			}
			if records, err = dataset.Aggregate(records, names); err != nil {
				return err
			}
			derived, err := chart.Derive(records, names, cfg.Palette, cfg.Missing, g.logger(cmd.ErrOrStderr()))
			if err != nil {
				return err
			}
			return ndjson.Output{DestUrl: dest, W: cmd.OutOrStdout()}.Export(cmd.Context(), derived)
		},
	}
	cmd.Flags().StringVar(&series, "series", "", "comma separated series, all fields when empty")
	cmd.Flags().StringVar(&dest, "dest", "", "POST the points to this URL instead of printing them")
	return cmd
}
