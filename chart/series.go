package chart

import (
	"fmt"
	"log/slog"
)

// MissingPolicy decides what a render does with a field that is
// absent or not numeric.
type MissingPolicy string

const (
	MissingFail MissingPolicy = "fail"
	MissingSkip MissingPolicy = "skip"
)

type Point struct {
	Time  float64 `json:"time"`
	Value float64 `json:"value"`
}

type Series struct {
	Name   string  `json:"name"`
	Index  int     `json:"index"`
	Color  string  `json:"color"`
	Points []Point `json:"values"`
}

// Last returns the last point of the series.
func (s Series) Last() (Point, bool) {
	if len(s.Points) == 0 {
		return Point{}, false
	}
	return s.Points[len(s.Points)-1], true
}

// Derive projects every record onto each named series, keeping record order.
func Derive(records []Record, names []string, palette Palette, policy MissingPolicy, logger *slog.Logger) ([]Series, error) {
	seen := make(map[string]struct{}, len(names))
	for _, name := range names {
		if _, ok := seen[name]; ok {
			return nil, fmt.Errorf("%w: %q", ErrDuplicateSeries, name)
		}
		seen[name] = struct{}{}
	}

	ret := make([]Series, len(names))
	for i, name := range names {
		s := Series{
			Name:   name,
			Index:  i,
			Color:  palette.Color(i),
			Points: make([]Point, 0, len(records)),
		}
		for row, rec := range records {
			v, err := rec.Float(name)
			if err != nil {
				ferr := &FieldError{Row: row, Field: name, Value: rec.Fields[name], Err: err}
				if policy == MissingSkip {
					if logger != nil {
						logger.Debug("Skip point", "series", name, "row", row, "error", err)
					}
					continue
				}
				return nil, ferr
			}
			s.Points = append(s.Points, Point{Time: rec.Timestamp, Value: v})
		}
		ret[i] = s
	}
	return ret, nil
}
