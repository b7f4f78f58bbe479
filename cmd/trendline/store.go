package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"text/tabwriter"

	"github.com/OutOfBedlam/trendline/dataset"
	"github.com/OutOfBedlam/trendline/store/sqlite"
	"github.com/spf13/cobra"
)

const defaultDB = "./tmp/trendline.db"

func openStorage(g *globalFlags, cmd *cobra.Command, path string) (*sqlite.Storage, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, err
	}
	s := sqlite.NewStorage(path, 0)
	s.SetLogger(g.logger(cmd.ErrOrStderr()))
	if err := s.Open(); err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	return s, nil
}

func newImportCmd(g *globalFlags) *cobra.Command {
	var name, db string
	cmd := &cobra.Command{
		Use:   "import FILE",
		Short: "Store a dataset file so the server can chart it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			file := args[0]
			if name == "" {
				base := filepath.Base(file)
				name = strings.TrimSuffix(base, filepath.Ext(base))
			}
			tbl, err := dataset.Load(file)
			if err != nil {
				return err
			}
			s, err := openStorage(g, cmd, db)
			if err != nil {
				return err
			}
			defer s.Close()
			if err := s.Save(cmd.Context(), name, tbl); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s: %d rows, columns %s\n",
				name, len(tbl.Rows), strings.Join(tbl.Columns, ","))
			return nil
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "dataset name, the file name without extension when empty")
	cmd.Flags().StringVar(&db, "db", defaultDB, "sqlite database path")
	return cmd
}

func newLsCmd(g *globalFlags) *cobra.Command {
	var db string
	cmd := &cobra.Command{
		Use:   "ls",
		Short: "List stored datasets",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openStorage(g, cmd, db)
			if err != nil {
				return err
			}
			defer s.Close()
			list, err := s.List(cmd.Context())
			if err != nil {
				return err
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "NAME\tROWS\tCREATED\tCOLUMNS")
			for _, d := range list {
				fmt.Fprintf(tw, "%s\t%d\t%s\t%s\n", d.Name, d.Rows, d.Created.Format("2006-01-02 15:04:05"), strings.Join(d.Columns, ","))
			}
			return tw.Flush()
		},
	}
	cmd.Flags().StringVar(&db, "db", defaultDB, "sqlite database path")
	return cmd
}
