// Package file provides dataset sources that read local files.
package file

import (
	"embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/OutOfBedlam/trendline/dataset"
	"github.com/OutOfBedlam/trendline/registry"
)

func init() {
	registry.Register("csv", (*CSV)(nil))
	registry.Register("json", (*JSON)(nil))
	registry.Register("yaml", (*YAML)(nil))
	registry.Register("xlsx", (*XLSX)(nil))
}

//go:embed *.toml
var samples embed.FS

func sampleConfig(name string) string {
	b, err := samples.ReadFile(name + ".toml")
	if err != nil {
		return ""
	}
	return string(b)
}

var (
	_ registry.Source = (*CSV)(nil)
	_ registry.Source = (*JSON)(nil)
	_ registry.Source = (*YAML)(nil)
	_ registry.Source = (*XLSX)(nil)
)

// File is the part shared by every file source. The dataset name
// defaults to the file name without its extension.
type File struct {
	Dataset string `toml:"dataset"`
	Path    string `toml:"path"`

	format dataset.Format `toml:"-"`
}

func (f *File) setup(format dataset.Format) error {
	if f.Path == "" {
		return errors.New("path is required")
	}
	if _, err := os.Stat(f.Path); err != nil {
		return err
	}
	if f.Dataset == "" {
		base := filepath.Base(f.Path)
		f.Dataset = strings.TrimSuffix(base, filepath.Ext(base))
	}
	f.format = format
	return nil
}

func (f *File) DatasetName() string {
	return f.Dataset
}

func (f *File) Load() (dataset.Table, error) {
	fd, err := os.Open(f.Path)
	if err != nil {
		return dataset.Table{}, err
	}
	defer fd.Close()
	tbl, err := dataset.Read(fd, f.format)
	if err != nil {
		return tbl, fmt.Errorf("%s: %w", f.Path, err)
	}
	return tbl, nil
}

type CSV struct {
	File
}

func (s *CSV) SampleConfig() string { return sampleConfig("csv") }
func (s *CSV) Init() error { return s.setup(dataset.FormatCSV) }

type JSON struct {
	File
}

func (s *JSON) SampleConfig() string { return sampleConfig("json") }
func (s *JSON) Init() error { return s.setup(dataset.FormatJSON) }

type YAML struct {
	File
}

func (s *YAML) SampleConfig() string { return sampleConfig("yaml") }
func (s *YAML) Init() error { return s.setup(dataset.FormatYAML) }

// XLSX reads one sheet of a workbook, the first one when Sheet is empty.
type XLSX struct {
	File
	Sheet string `toml:"sheet"`
}

func (s *XLSX) SampleConfig() string { return sampleConfig("xlsx") }
func (s *XLSX) Init() error { return s.setup(dataset.FormatXLSX) }

func (s *XLSX) Load() (dataset.Table, error) {
	fd, err := os.Open(s.Path)
	if err != nil {
		return dataset.Table{}, err
	}
	defer fd.Close()
	tbl, err := dataset.ReadXLSX(fd, s.Sheet)
	if err != nil {
		return tbl, fmt.Errorf("%s: %w", s.Path, err)
	}
	return tbl, nil
}
