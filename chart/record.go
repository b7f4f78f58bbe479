package chart

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

var (
	ErrMissingField    = errors.New("missing field")
	ErrNotNumeric      = errors.New("not a numeric value")
	ErrInvalidDomain   = errors.New("invalid domain")
	ErrDuplicateSeries = errors.New("duplicate series name")
	ErrUnknownSeries   = errors.New("unknown series")
	ErrEmptyRecords    = errors.New("no records")
)

// Record is one time-stamped row. Fields holds one value per series name.
type Record struct {
	Timestamp float64
	Fields    map[string]any
}

// FieldError reports the record and field that could not be projected.
type FieldError struct {
	Row   int
	Field string
	Value any
	Err   error
}

func (e *FieldError) Error() string {
	if errors.Is(e.Err, ErrMissingField) {
		return fmt.Sprintf("record %d: %s %q", e.Row, e.Err, e.Field)
	}
	return fmt.Sprintf("record %d: field %q: %v (%v)", e.Row, e.Field, e.Err, e.Value)
}

func (e *FieldError) Unwrap() error {
	return e.Err
}

// Float returns the named field as float64.
// The returned error wraps ErrMissingField or ErrNotNumeric.
func (r Record) Float(name string) (float64, error) {
	v, ok := r.Fields[name]
	if !ok || v == nil {
		return 0, ErrMissingField
	}
	f, err := toFloat(v)
	if err != nil {
		return 0, err
	}
	return f, nil
}

func toFloat(v any) (float64, error) {
	var f float64
	switch x := v.(type) {
	case float64:
		f = x
	case float32:
		f = float64(x)
	case int:
		f = float64(x)
	case int8:
		f = float64(x)
	case int16:
		f = float64(x)
	case int32:
		f = float64(x)
	case int64:
		f = float64(x)
	case uint:
		f = float64(x)
	case uint8:
		f = float64(x)
	case uint16:
		f = float64(x)
	case uint32:
		f = float64(x)
	case uint64:
		f = float64(x)
	case bool:
		if x {
			f = 1
		}
	case json.Number:
		p, err := x.Float64()
		if err != nil {
			return 0, ErrNotNumeric
		}
		f = p
	case string:
		s := strings.TrimSpace(x)
		if s == "" {
			// +"" is 0 in the browser, but an empty cell is no measurement
			return 0, ErrNotNumeric
		}
		p, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0, ErrNotNumeric
		}
		f = p
	default:
		return 0, ErrNotNumeric
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, ErrNotNumeric
	}
	return f, nil
}
