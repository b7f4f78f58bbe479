package dataset

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/OutOfBedlam/trendline/chart"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func TestQuantize(t *testing.T) {
	tests := []struct {
		date    string
		res     Resolution
		expect  float64
		wantErr bool
	}{
		{date: "2020-03-17", res: ResolutionDay, expect: 20200317},
		{date: "2020-03-17", res: ResolutionMonth, expect: 202003},
		{date: "2020_03_17", res: ResolutionYear, expect: 2020},
		{date: "2020-03", res: ResolutionDay, wantErr: true},
		{date: "abcd-ef-gh", res: ResolutionDay, wantErr: true},
		{date: "2020-03-17", res: "week", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.date+"/"+string(tt.res), func(t *testing.T) {
			v, err := Quantize(tt.date, tt.res)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tt.expect, v)
		})
	}
}

func TestParseResolution(t *testing.T) {
	r, err := ParseResolution("")
	require.NoError(t, err)
	require.Equal(t, ResolutionDay, r)
	r, err = ParseResolution(" Month ")
	require.NoError(t, err)
	require.Equal(t, ResolutionMonth, r)
	_, err = ParseResolution("hour")
	require.ErrorIs(t, err, ErrResolution)
}

func TestToRecords(t *testing.T) {
	rows := []Row{
		{"timestamp": "2021-01-05", "toe": int64(3), "flat": 1.5},
		{"timestamp": "2021-02-11", "toe": int64(4), "flat": 2.5},
		{"timestamp": int64(202103), "toe": int64(5), "flat": 3.5},
	}
	records, err := ToRecords(rows, Options{Resolution: ResolutionMonth})
	require.NoError(t, err)
	require.Len(t, records, 3)
	require.Equal(t, []float64{202101, 202102, 202103},
		[]float64{records[0].Timestamp, records[1].Timestamp, records[2].Timestamp})
	require.NotContains(t, records[0].Fields, "timestamp")
	require.Equal(t, int64(3), records[0].Fields["toe"])

	_, err = ToRecords([]Row{{"toe": 1}}, Options{})
	require.ErrorIs(t, err, chart.ErrMissingField)

	_, err = ToRecords([]Row{{"when": []int{1}}}, Options{TimeField: "when"})
	require.ErrorIs(t, err, chart.ErrNotNumeric)
}

func TestAggregate(t *testing.T) {
	tbl, err := ReadCSV(strings.NewReader("timestamp,toe,flat\n2020-02-01,4,1\n2020-01-01,1,\n2020-01-15,2,3\n"))
	require.NoError(t, err)
	records, err := ToRecords(tbl.Rows, Options{Resolution: ResolutionMonth})
	require.NoError(t, err)

	tests := []struct {
		name   string
		series []string
		expect []chart.Record
	}{
		{
			name:   "monthly totals",
			series: []string{"toe", "flat"},
			expect: []chart.Record{
				{Timestamp: 202001, Fields: map[string]any{"toe": 3.0, "flat": 3.0}},
				{Timestamp: 202002, Fields: map[string]any{"toe": int64(4), "flat": int64(1)}},
			},
		},
		{
			name:   "absent everywhere stays absent",
			series: []string{"toe", "normal"},
			expect: []chart.Record{
				{Timestamp: 202001, Fields: map[string]any{"toe": 3.0}},
				{Timestamp: 202002, Fields: map[string]any{"toe": int64(4), "flat": int64(1)}},
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Aggregate(records, tt.series)
			require.NoError(t, err)
			require.Equal(t, tt.expect, got)
		})
	}

	_, err = Aggregate([]chart.Record{
		{Timestamp: 1, Fields: map[string]any{"toe": 1}},
		{Timestamp: 1, Fields: map[string]any{"toe": "many"}},
	}, []string{"toe"})
	require.ErrorIs(t, err, chart.ErrNotNumeric)

	got, err := Aggregate(nil, []string{"toe"})
	require.NoError(t, err)
	require.Empty(t, got)
}

func TestBetween(t *testing.T) {
	records := []chart.Record{{Timestamp: 1}, {Timestamp: 2}, {Timestamp: 3}, {Timestamp: 4}}
	got := Between(records, 2, 3)
	require.Len(t, got, 2)
	require.Equal(t, 2.0, got[0].Timestamp)
	require.Equal(t, 3.0, got[1].Timestamp)
}

func TestInferDomains(t *testing.T) {
	records := []chart.Record{
		{Timestamp: 20200101, Fields: map[string]any{"toe": 1.7, "flat": 9.9, "other": 1000}},
		{Timestamp: 20200105, Fields: map[string]any{"toe": -2.5, "flat": "x"}},
	}
	value, tm, err := InferDomains(records, []string{"toe", "flat"})
	require.NoError(t, err)
	require.Equal(t, chart.Domain{Min: -2, Max: 9}, value)
	require.Equal(t, chart.Domain{Min: 20200101, Max: 20200105}, tm)

	_, _, err = InferDomains(nil, []string{"toe"})
	require.ErrorIs(t, err, chart.ErrEmptyRecords)
	_, _, err = InferDomains(records, []string{"absent"})
	require.ErrorIs(t, err, chart.ErrEmptyRecords)
}

const sampleCSV = `timestamp, toe, flat, normal
2020-01-01, 1, 2, 3

2020-01-02, 4, 5.5, ""
`

func TestReadCSV(t *testing.T) {
	tbl, err := ReadCSV(strings.NewReader(sampleCSV))
	require.NoError(t, err)
	require.Equal(t, []string{"timestamp", "toe", "flat", "normal"}, tbl.Columns)
	require.Equal(t, []string{"toe", "flat", "normal"}, tbl.Fields(""))
	require.Len(t, tbl.Rows, 2)
	require.Equal(t, "2020-01-01", tbl.Rows[0]["timestamp"])
	require.Equal(t, int64(1), tbl.Rows[0]["toe"])
	require.Equal(t, 5.5, tbl.Rows[1]["flat"])
	require.NotContains(t, tbl.Rows[1], "normal")

	_, err = ReadCSV(strings.NewReader("timestamp,,x\n1,2,3\n"))
	require.Error(t, err)
}

func TestReadJSON(t *testing.T) {
	tbl, err := ReadJSON(strings.NewReader(`[{"timestamp":1,"b":2,"a":3},{"timestamp":2,"c":1}]`))
	require.NoError(t, err)
	require.Equal(t, []string{"a", "b", "timestamp", "c"}, tbl.Columns)
	records, err := ToRecords(tbl.Rows, Options{})
	require.NoError(t, err)
	v, err := records[0].Float("a")
	require.NoError(t, err)
	require.Equal(t, 3.0, v)
	require.Equal(t, 2.0, records[1].Timestamp)
}

func TestReadYAML(t *testing.T) {
	src := "- timestamp: 2020-01-01\n  toe: 3\n- timestamp: 2020-01-02\n  toe: 4.5\n"
	tbl, err := ReadYAML(strings.NewReader(src))
	require.NoError(t, err)
	require.Len(t, tbl.Rows, 2)
	records, err := ToRecords(tbl.Rows, Options{Resolution: ResolutionDay})
	require.NoError(t, err)
	require.Equal(t, 20200102.0, records[1].Timestamp)
	v, err := records[1].Float("toe")
	require.NoError(t, err)
	require.Equal(t, 4.5, v)
}

func TestReadXLSX(t *testing.T) {
	f := excelize.NewFile()
	defer f.Close()
	sheet := "Sheet1"
	f.SetCellValue(sheet, "A1", "timestamp")
	f.SetCellValue(sheet, "B1", "toe")
	f.SetCellValue(sheet, "A2", 20200101)
	f.SetCellValue(sheet, "B2", 100)
	f.SetCellValue(sheet, "A3", 20200102)
	f.SetCellValue(sheet, "B3", 200.5)

	path := filepath.Join(t.TempDir(), "steps.xlsx")
	require.NoError(t, f.SaveAs(path))

	tbl, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, []string{"timestamp", "toe"}, tbl.Columns)
	require.Len(t, tbl.Rows, 2)
	require.Equal(t, int64(100), tbl.Rows[0]["toe"])
	require.Equal(t, 200.5, tbl.Rows[1]["toe"])
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "steps.csv")
	require.NoError(t, os.WriteFile(path, []byte(sampleCSV), 0644))
	tbl, err := Load(path)
	require.NoError(t, err)
	require.Len(t, tbl.Rows, 2)

	_, err = Load(filepath.Join(dir, "steps.parquet"))
	require.ErrorIs(t, err, ErrFormat)
}

func TestFormatOf(t *testing.T) {
	for in, expect := range map[string]Format{
		"a.CSV":                           FormatCSV,
		"application/json; charset=utf-8": FormatJSON,
		"text/yaml":                       FormatYAML,
		".yml":                            FormatYAML,
		"book.xlsx":                       FormatXLSX,
	} {
		got, err := FormatOf(in)
		require.NoError(t, err, in)
		require.Equal(t, expect, got, in)
	}
}
