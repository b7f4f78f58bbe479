package dataset

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"
	"gopkg.in/yaml.v3"
)

type Format string

const (
	FormatCSV  Format = "csv"
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
	FormatXLSX Format = "xlsx"
)

var ErrFormat = errors.New("unsupported format")

// FormatOf guesses the format from a file name or a media type.
func FormatOf(s string) (Format, error) {
	s = strings.ToLower(s)
	if i := strings.IndexByte(s, ';'); i >= 0 {
		s = strings.TrimSpace(s[:i])
	}
	switch {
	case strings.HasSuffix(s, ".csv"), s == "text/csv":
		return FormatCSV, nil
	case strings.HasSuffix(s, ".json"), s == "application/json":
		return FormatJSON, nil
	case strings.HasSuffix(s, ".yaml"), strings.HasSuffix(s, ".yml"),
		s == "application/yaml", s == "application/x-yaml", s == "text/yaml":
		return FormatYAML, nil
	case strings.HasSuffix(s, ".xlsx"),
		s == "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet":
		return FormatXLSX, nil
	}
	return "", fmt.Errorf("%w: %q", ErrFormat, s)
}

// Load reads the file at path, choosing the reader by extension.
func Load(path string) (Table, error) {
	format, err := FormatOf(filepath.Ext(path))
	if err != nil {
		return Table{}, err
	}
	f, err := os.Open(path)
	if err != nil {
		return Table{}, err
	}
	defer f.Close()
	return Read(f, format)
}

func Read(r io.Reader, format Format) (Table, error) {
	switch format {
	case FormatCSV:
		return ReadCSV(r)
	case FormatJSON:
		return ReadJSON(r)
	case FormatYAML:
		return ReadYAML(r)
	case FormatXLSX:
		return ReadXLSX(r, "")
	}
	return Table{}, fmt.Errorf("%w: %q", ErrFormat, format)
}

// ReadCSV reads a header line followed by data lines.
func ReadCSV(r io.Reader) (Table, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true
	lines, err := cr.ReadAll()
	if err != nil {
		return Table{}, fmt.Errorf("csv: %w", err)
	}
	return fromLines(lines)
}

// ReadJSON reads an array of objects.
func ReadJSON(r io.Reader) (Table, error) {
	dec := json.NewDecoder(r)
	dec.UseNumber()
	var rows []Row
	if err := dec.Decode(&rows); err != nil {
		return Table{}, fmt.Errorf("json: %w", err)
	}
	return Table{Columns: columnsOf(rows), Rows: rows}, nil
}

// ReadYAML reads a sequence of mappings.
func ReadYAML(r io.Reader) (Table, error) {
	var rows []Row
	if err := yaml.NewDecoder(r).Decode(&rows); err != nil && err != io.EOF {
		return Table{}, fmt.Errorf("yaml: %w", err)
	}
	return Table{Columns: columnsOf(rows), Rows: rows}, nil
}

// ReadXLSX reads a worksheet whose first row is the header.
// An empty sheet name selects the first sheet of the workbook.
func ReadXLSX(r io.Reader, sheet string) (Table, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return Table{}, fmt.Errorf("xlsx: %w", err)
	}
	defer f.Close()
	if sheet == "" {
		sheets := f.GetSheetList()
		if len(sheets) == 0 {
			return Table{}, errors.New("xlsx: workbook has no sheet")
		}
		sheet = sheets[0]
	}
	lines, err := f.GetRows(sheet)
	if err != nil {
		return Table{}, fmt.Errorf("xlsx: %w", err)
	}
	return fromLines(lines)
}

func fromLines(lines [][]string) (Table, error) {
	if len(lines) == 0 {
		return Table{}, nil
	}
	header := make([]string, len(lines[0]))
	for i, h := range lines[0] {
		header[i] = strings.TrimSpace(h)
		if header[i] == "" {
			return Table{}, fmt.Errorf("header column %d is empty", i+1)
		}
	}
	ret := Table{Columns: header, Rows: make([]Row, 0, len(lines)-1)}
	for _, line := range lines[1:] {
		if isBlank(line) {
			continue
		}
		row := make(Row, len(header))
		for i, h := range header {
			if i >= len(line) || strings.TrimSpace(line[i]) == "" {
				continue
			}
			row[h] = parseValue(strings.TrimSpace(line[i]))
		}
		ret.Rows = append(ret.Rows, row)
	}
	return ret, nil
}

func isBlank(line []string) bool {
	for _, s := range line {
		if strings.TrimSpace(s) != "" {
			return false
		}
	}
	return true
}

// parseValue returns int64 for integers, float64 for decimals,
// or the original string.
func parseValue(s string) any {
	if i, err := strconv.ParseInt(s, 10, 64); err == nil {
		return i
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return f
	}
	return s
}
