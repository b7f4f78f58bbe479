package registry

import (
	"bytes"
	"errors"
	"testing"

	"github.com/OutOfBedlam/metric"
	"github.com/OutOfBedlam/trendline/dataset"
	"github.com/stretchr/testify/require"
)

type CPUMock struct {
	Measure string `toml:"measure"`
}

func (c *CPUMock) Init() error {
	return nil
}

func (c *CPUMock) Gather(g *metric.Gather) error {
	g.Add("cpu:"+c.Measure, 10, metric.MeterType(metric.UnitPercent))
	return nil
}

type TableMock struct {
	Dataset string `toml:"dataset"`
	Rows    int    `toml:"rows"`
}

func (m *TableMock) SampleConfig() string {
	return "[[source.table]]\n  dataset = \"mock\"\n  rows = 1"
}

func (m *TableMock) Init() error {
	if m.Dataset == "" {
		return errors.New("dataset is required")
	}
	return nil
}

func (m *TableMock) DatasetName() string { return m.Dataset }

func (m *TableMock) Load() (dataset.Table, error) {
	tbl := dataset.Table{Columns: []string{"timestamp", "v"}}
	for i := 0; i < m.Rows; i++ {
		tbl.Rows = append(tbl.Rows, dataset.Row{"timestamp": i, "v": i * 2})
	}
	return tbl, nil
}

func TestConfig(t *testing.T) {
	require.NoError(t, Register("cpu", (*CPUMock)(nil)))
	require.NoError(t, Register("table", (*TableMock)(nil)))
	require.Error(t, Register("bogus", (*struct{})(nil)))

	tests := []struct {
		name     string
		content  string
		datasets []string
		wantErr  bool
	}{
		{
			name: "valid config",
			content: `
				[[input.cpu]]
					measure = "percent"
				[[source.table]]
					dataset = "first"
					rows = 3
				[[source.table]]
					dataset = "second"
				`,
			datasets: []string{"first", "second"},
		},
		{
			name: "other sections are ignored",
			content: `
				[http]
					listen = ":0"
				[chart.margin]
					top = 1
				`,
		},
		{
			name:    "unknown source",
			content: "[[source.parquet]]\n  path = \"x\"",
			wantErr: true,
		},
		{
			name:    "init failure",
			content: "[[source.table]]\n  rows = 1",
			wantErr: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sources, err := LoadConfig(metric.NewCollector(), tt.content)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			var names []string
			for _, s := range sources {
				names = append(names, s.DatasetName())
			}
			require.Equal(t, tt.datasets, names)
		})
	}

	sources, err := LoadConfig(nil, "[[input.cpu]]\n  measure = \"x\"\n[[source.table]]\n  dataset = \"only\"\n  rows = 2")
	require.NoError(t, err)
	require.Len(t, sources, 1)
	tbl, err := sources[0].Load()
	require.NoError(t, err)
	require.Len(t, tbl.Rows, 2)

	buf := &bytes.Buffer{}
	GenerateSampleConfig(buf)
	require.Contains(t, buf.String(), "[[source.table]]")
}
