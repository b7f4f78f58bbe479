package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/OutOfBedlam/trendline/chart"
	"github.com/OutOfBedlam/trendline/dataset"
	"github.com/spf13/cobra"
)

// Execute runs the command line and exits non-zero on error.
func Execute() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

type globalFlags struct {
	config     string
	timeField  string
	resolution string
	verbose    bool
}

func newRootCmd() *cobra.Command {
	g := &globalFlags{}
	root := &cobra.Command{
		Use:           "trendline",
		Short:         "Trendline draws time series datasets as line charts",
		Long:          `Trendline renders CSV, JSON, YAML and XLSX datasets as SVG or PNG line charts and keeps them in a local store.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&g.config, "config", "", "config file whose [chart] section overrides the chart defaults")
	root.PersistentFlags().StringVar(&g.timeField, "time-field", dataset.DefaultTimeField, "name of the timestamp field")
	root.PersistentFlags().StringVar(&g.resolution, "resolution", "day", "date resolution: day, month or year")
	root.PersistentFlags().BoolVarP(&g.verbose, "verbose", "v", false, "log debug messages")

	root.AddCommand(
		newRenderCmd(g),
		newImportCmd(g),
		newLsCmd(g),
		newPointsCmd(g),
	)
	return root
}

func (g *globalFlags) logger(w io.Writer) *slog.Logger {
	level := slog.LevelWarn
	if g.verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

func (g *globalFlags) options() (dataset.Options, error) {
	res, err := dataset.ParseResolution(g.resolution)
	if err != nil {
		return dataset.Options{}, err
	}
	return dataset.Options{TimeField: g.timeField, Resolution: res}, nil
}

func (g *globalFlags) chartConfig() (chart.Config, error) {
	cfg := struct {
		Chart chart.Config `toml:"chart"`
	}{Chart: chart.DefaultConfig()}
	if g.config == "" {
		return cfg.Chart, nil
	}
	if _, err := toml.DecodeFile(g.config, &cfg); err != nil {
		return chart.Config{}, fmt.Errorf("config %s: %w", g.config, err)
	}
	return cfg.Chart, nil
}

// records reads the file at path and converts its rows. The returned
// field names are the default series of the file.
func (g *globalFlags) records(path string) ([]chart.Record, []string, error) {
	opts, err := g.options()
	if err != nil {
		return nil, nil, err
	}
	tbl, err := dataset.Load(path)
	if err != nil {
		return nil, nil, err
	}
	records, err := dataset.ToRecords(tbl.Rows, opts)
	if err != nil {
		return nil, nil, fmt.Errorf("%s: %w", path, err)
	}
	return records, tbl.Fields(opts.TimeField), nil
}

func splitList(s string) []string {
	var ret []string
	for _, v := range strings.Split(s, ",") {
		if v = strings.TrimSpace(v); v != "" {
			ret = append(ret, v)
		}
	}
	return ret
}

// parseDomain parses "min,max". An empty string reports ok false.
func parseDomain(s string) (d chart.Domain, ok bool, err error) {
	if strings.TrimSpace(s) == "" {
		return d, false, nil
	}
	lo, hi, found := strings.Cut(s, ",")
	if !found {
		return d, false, fmt.Errorf("%w: %q is not min,max", chart.ErrInvalidDomain, s)
	}
	if d.Min, err = strconv.ParseFloat(strings.TrimSpace(lo), 64); err != nil {
		return d, false, fmt.Errorf("%w: %v", chart.ErrInvalidDomain, err)
	}
	if d.Max, err = strconv.ParseFloat(strings.TrimSpace(hi), 64); err != nil {
		return d, false, fmt.Errorf("%w: %v", chart.ErrInvalidDomain, err)
	}
	return d, true, d.Validate()
}
