package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/OutOfBedlam/trendline/chart"
	"github.com/OutOfBedlam/trendline/dataset"
	"github.com/OutOfBedlam/trendline/export/png"
	"github.com/OutOfBedlam/trendline/export/svg"
	"github.com/spf13/cobra"
)

type renderFlags struct {
	series       string
	value        string
	time         string
	hide         []string
	out          string
	resetBetween bool
}

func newRenderCmd(g *globalFlags) *cobra.Command {
	f := &renderFlags{}
	cmd := &cobra.Command{
		Use:   "render FILE...",
		Short: "Draw one or more datasets into a chart",
		Long: `Each file is drawn on top of the previous ones unless --reset-between is given.
Axes not given by --value and --time are inferred from each file.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRender(cmd, g, f, args)
		},
	}
	cmd.Flags().StringVar(&f.series, "series", "", "comma separated series to draw, all fields when empty")
	cmd.Flags().StringVar(&f.value, "value", "", "value axis domain as min,max")
	cmd.Flags().StringVar(&f.time, "time", "", "time axis domain as min,max")
	cmd.Flags().StringSliceVar(&f.hide, "hide", nil, "series drawn transparent, as if toggled in the legend")
	cmd.Flags().StringVarP(&f.out, "out", "o", "chart.svg", "output file, .svg or .png")
	cmd.Flags().BoolVar(&f.resetBetween, "reset-between", false, "clear the chart before drawing each file")
	return cmd
}

func runRender(cmd *cobra.Command, g *globalFlags, f *renderFlags, files []string) error {
	ext := strings.ToLower(filepath.Ext(f.out))
	if ext != ".svg" && ext != ".png" {
		return fmt.Errorf("output %q must end with .svg or .png", f.out)
	}
	cfg, err := g.chartConfig()
	if err != nil {
		return err
	}
	valueDomain, hasValue, err := parseDomain(f.value)
	if err != nil {
		return fmt.Errorf("value: %w", err)
	}
	timeDomain, hasTime, err := parseDomain(f.time)
	if err != nil {
		return fmt.Errorf("time: %w", err)
	}

	logger := g.logger(cmd.ErrOrStderr())
	ch := chart.New(cfg, chart.WithLogger(logger))
	for _, file := range files {
		records, fields, err := g.records(file)
		if err != nil {
			return err
		}
		series := splitList(f.series)
		if len(series) == 0 {
			series = fields
		}
		if records, err = dataset.Aggregate(records, series); err != nil {
			return fmt.Errorf("%s: %w", file, err)
		}
		v, t := valueDomain, timeDomain
		if !hasValue || !hasTime {
			iv, it, err := dataset.InferDomains(records, series)
			if errors.Is(err, chart.ErrEmptyRecords) {
				iv, it = chart.Domain{Min: 0, Max: 1}, chart.Domain{Min: 0, Max: 1}
			} else if err != nil {
				return fmt.Errorf("%s: %w", file, err)
			}
			if !hasValue {
				v = iv
			}
			if !hasTime {
				t = it
			}
		}
		if f.resetBetween {
			ch.Reset()
		}
		if _, err := ch.Render(records, series, v, t); err != nil {
			return fmt.Errorf("%s: %w", file, err)
		}
	}
	for _, name := range f.hide {
		if _, err := ch.ToggleSeries(name); err != nil {
			return err
		}
	}

	switch ext {
	case ".svg":
		out := &svg.SVGOutput{Canvas: svg.NewCanvas()}
		err = out.WriteFile(f.out, ch)
	case ".png":
		err = writePNG(f.out, ch)
	}
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s: %d frame(s), series %s\n",
		f.out, len(ch.Frames()), strings.Join(ch.SeriesNames(), ","))
	return nil
}

func writePNG(path string, ch *chart.Chart) error {
	fd, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := png.NewCanvas().Export(fd, ch); err != nil {
		fd.Close()
		os.Remove(path)
		return err
	}
	return fd.Close()
}
