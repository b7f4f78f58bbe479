// Package dataset turns tabular rows into chart records: it reads files,
// quantizes date timestamps, filters ranges and infers axis domains.
package dataset

import (
	"errors"
	"fmt"
	"math"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/OutOfBedlam/trendline/chart"
)

// Row is one input row keyed by column name.
type Row = map[string]any

const DefaultTimeField = "timestamp"

type Resolution string

const (
	ResolutionDay   Resolution = "day"
	ResolutionMonth Resolution = "month"
	ResolutionYear  Resolution = "year"
)

var ErrResolution = errors.New("unknown resolution")

func ParseResolution(s string) (Resolution, error) {
	switch r := Resolution(strings.ToLower(strings.TrimSpace(s))); r {
	case "":
		return ResolutionDay, nil
	case ResolutionDay, ResolutionMonth, ResolutionYear:
		return r, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrResolution, s)
	}
}

// Quantize converts a yyyy-mm-dd (or yyyy_mm_dd) date into an integer
// timestamp of the given resolution: yyyymmdd, yyyymm or yyyy.
func Quantize(date string, res Resolution) (float64, error) {
	date = strings.TrimSpace(date)
	if i := strings.IndexAny(date, "T "); i > 0 {
		date = date[:i]
	}
	parts := strings.Split(strings.ReplaceAll(date, "_", "-"), "-")
	var n int
	switch res {
	case ResolutionYear:
		n = 1
	case ResolutionMonth:
		n = 2
	case ResolutionDay, "":
		n = 3
	default:
		return 0, fmt.Errorf("%w: %q", ErrResolution, res)
	}
	if len(parts) < n {
		return 0, fmt.Errorf("date %q has no %s part", date, res)
	}
	s := strings.Join(parts[:n], "")
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("date %q: %w", date, err)
	}
	return float64(v), nil
}

type Options struct {
	TimeField  string
	Resolution Resolution
}

// ToRecords converts rows into chart records. Numeric timestamps are kept
// as they are, date strings are quantized to the resolution.
func ToRecords(rows []Row, opts Options) ([]chart.Record, error) {
	field := opts.TimeField
	if field == "" {
		field = DefaultTimeField
	}
	ret := make([]chart.Record, 0, len(rows))
	for i, row := range rows {
		raw, ok := row[field]
		if !ok || raw == nil {
			return nil, fmt.Errorf("row %d: %w %q", i, chart.ErrMissingField, field)
		}
		ts, err := Timestamp(raw, opts.Resolution)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i, err)
		}
		fields := make(map[string]any, len(row))
		for k, v := range row {
			if k == field {
				continue
			}
			fields[k] = v
		}
		ret = append(ret, chart.Record{Timestamp: ts, Fields: fields})
	}
	return ret, nil
}

// Aggregate orders records by timestamp, keeping the input order of equal
// timestamps, and sums the series fields of records that share one.
// A field absent from some records of a group counts as zero; absent
// from all of them it stays absent. Records alone at their timestamp are
// returned unchanged.
func Aggregate(records []chart.Record, series []string) ([]chart.Record, error) {
	sorted := slices.Clone(records)
	slices.SortStableFunc(sorted, func(a, b chart.Record) int {
		switch {
		case a.Timestamp < b.Timestamp:
			return -1
		case a.Timestamp > b.Timestamp:
			return 1
		}
		return 0
	})
	ret := make([]chart.Record, 0, len(sorted))
	for i := 0; i < len(sorted); {
		j := i + 1
		for j < len(sorted) && sorted[j].Timestamp == sorted[i].Timestamp {
			j++
		}
		if j-i == 1 {
			ret = append(ret, sorted[i])
			i = j
			continue
		}
		fields := make(map[string]any, len(series))
		for _, name := range series {
			sum, found := 0.0, false
			for k := i; k < j; k++ {
				v, err := sorted[k].Float(name)
				if errors.Is(err, chart.ErrMissingField) {
					continue
				} else if err != nil {
					return nil, &chart.FieldError{Row: k, Field: name, Value: sorted[k].Fields[name], Err: err}
				}
				sum += v
				found = true
			}
			if found {
				fields[name] = sum
			}
		}
		ret = append(ret, chart.Record{Timestamp: sorted[i].Timestamp, Fields: fields})
		i = j
	}
	return ret, nil
}

// Timestamp converts a numeric value as is and a date, given as a string
// or a time.Time, by quantizing it to res.
func Timestamp(v any, res Resolution) (float64, error) {
	rec := chart.Record{Fields: map[string]any{"ts": v}}
	if f, err := rec.Float("ts"); err == nil {
		return f, nil
	}
	if t, ok := v.(time.Time); ok {
		return Quantize(t.Format(time.DateOnly), res)
	}
	s, ok := v.(string)
	if !ok {
		return 0, fmt.Errorf("timestamp %v: %w", v, chart.ErrNotNumeric)
	}
	return Quantize(s, res)
}

// Between keeps the records whose timestamp lies in [lo, hi].
func Between(records []chart.Record, lo, hi float64) []chart.Record {
	ret := make([]chart.Record, 0, len(records))
	for _, r := range records {
		if r.Timestamp < lo || r.Timestamp > hi {
			continue
		}
		ret = append(ret, r)
	}
	return ret
}

// InferDomains spans the value axis over every series field and the time
// axis over every timestamp, both truncated to integers.
func InferDomains(records []chart.Record, series []string) (value chart.Domain, timeDomain chart.Domain, err error) {
	if len(records) == 0 {
		return value, timeDomain, chart.ErrEmptyRecords
	}
	vmin, vmax := math.Inf(1), math.Inf(-1)
	tmin, tmax := math.Inf(1), math.Inf(-1)
	for _, r := range records {
		tmin = math.Min(tmin, r.Timestamp)
		tmax = math.Max(tmax, r.Timestamp)
		for _, name := range series {
			v, err := r.Float(name)
			if err != nil {
				continue
			}
			vmin = math.Min(vmin, v)
			vmax = math.Max(vmax, v)
		}
	}
	if math.IsInf(vmin, 1) {
		return value, timeDomain, fmt.Errorf("no numeric values in %v: %w", series, chart.ErrEmptyRecords)
	}
	value = chart.Domain{Min: math.Trunc(vmin), Max: math.Trunc(vmax)}
	timeDomain = chart.Domain{Min: math.Trunc(tmin), Max: math.Trunc(tmax)}
	return value, timeDomain, nil
}

// Table is a set of rows with their column names in file order.
type Table struct {
	Columns []string
	Rows    []Row
}

// Fields returns the column names other than timeField. They are the
// series plotted when no series list is given.
func (t Table) Fields(timeField string) []string {
	if timeField == "" {
		timeField = DefaultTimeField
	}
	cols := t.Columns
	if len(cols) == 0 {
		cols = columnsOf(t.Rows)
	}
	ret := make([]string, 0, len(cols))
	for _, c := range cols {
		if c != timeField {
			ret = append(ret, c)
		}
	}
	return ret
}

// columnsOf collects the keys of rows in first-seen order, each row's new keys sorted.
func columnsOf(rows []Row) []string {
	var ret []string
	for _, row := range rows {
		keys := make([]string, 0, len(row))
		for k := range row {
			if !slices.Contains(ret, k) {
				keys = append(keys, k)
			}
		}
		slices.Sort(keys)
		ret = append(ret, keys...)
	}
	return ret
}
