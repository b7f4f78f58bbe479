// Package registry maps config section names to the types that
// implement them. Metric inputs live under [[input.<name>]] and dataset
// sources under [[source.<name>]].
package registry

import (
	"fmt"
	"io"
	"reflect"
	"slices"

	"github.com/BurntSushi/toml"
	"github.com/OutOfBedlam/metric"
	"github.com/OutOfBedlam/trendline/dataset"
)

// Source produces a dataset that is stored when the server starts.
type Source interface {
	Init() error
	DatasetName() string
	Load() (dataset.Table, error)
}

type RegisterItem struct {
	Type         reflect.Type
	SampleConfig string
}

var (
	inputRegistry  = make(map[string]RegisterItem)
	sourceRegistry = make(map[string]RegisterItem)
)

func Register(name string, nilPtr any) error {
	sampleConfig := ""
	if sample, ok := nilPtr.(interface{ SampleConfig() string }); ok {
		sampleConfig = sample.SampleConfig()
	}
	item := RegisterItem{
		Type:         reflect.TypeOf(nilPtr).Elem(),
		SampleConfig: sampleConfig,
	}
	switch nilPtr.(type) {
	case metric.Input:
		inputRegistry[name] = item
	case Source:
		sourceRegistry[name] = item
	default:
		return fmt.Errorf("type %T is neither metric.Input nor registry.Source", nilPtr)
	}
	return nil
}

func GenerateSampleConfig(w io.Writer) {
	for _, reg := range []map[string]RegisterItem{inputRegistry, sourceRegistry} {
		names := []string{}
		for k := range reg {
			names = append(names, k)
		}
		slices.Sort(names)
		for _, k := range names {
			fmt.Fprintln(w, reg[k].SampleConfig)
			fmt.Fprintln(w)
		}
	}
}

// LoadConfig adds the configured inputs to c and returns the configured
// sources, initialized. Input sections are skipped when c is nil.
func LoadConfig(c *metric.Collector, content string) ([]Source, error) {
	cfg := make(map[string]any)
	meta, err := toml.Decode(content, &cfg)
	if err != nil {
		return nil, err
	}
	var sources []Source
	done := map[string]bool{}
	for _, keys := range meta.Keys() {
		if len(keys) != 2 {
			continue
		}
		kind, name := keys[0], keys[1]
		if done[kind+"."+name] {
			continue
		}
		var items map[string]RegisterItem
		switch kind {
		case "input":
			items = inputRegistry
		case "source":
			items = sourceRegistry
		default:
			continue
		}
		reg, ok := items[name]
		if !ok {
			return nil, fmt.Errorf("unknown %s type: %s", kind, name)
		}
		done[kind+"."+name] = true
		if kind == "input" && c == nil {
			continue
		}
		sections, ok := ((cfg[kind].(map[string]any))[name]).([]map[string]any)
		if !ok {
			return nil, fmt.Errorf("%s.%s must be an array of tables", kind, name)
		}
		for _, section := range sections {
			v, err := decode(reg.Type, section)
			if err != nil {
				return nil, fmt.Errorf("%s.%s: %w", kind, name, err)
			}
			if in, ok := v.(interface{ Init() error }); ok {
				if err := in.Init(); err != nil {
					return nil, fmt.Errorf("error initializing %s %s: %w", kind, name, err)
				}
			}
			switch kind {
			case "input":
				if err := c.AddInput(v.(metric.Input)); err != nil {
					return nil, err
				}
			case "source":
				sources = append(sources, v.(Source))
			}
		}
	}
	return sources, nil
}

func decode(typ reflect.Type, section map[string]any) (any, error) {
	v := reflect.New(typ).Interface()
	b, err := toml.Marshal(section)
	if err != nil {
		return nil, err
	}
	if _, err := toml.Decode(string(b), v); err != nil {
		return nil, err
	}
	return v, nil
}
