// Package gostat gathers Go runtime statistics of the trendline server.
package gostat

import (
	_ "embed"
	"fmt"
	"runtime"

	"github.com/OutOfBedlam/metric"
	"github.com/OutOfBedlam/trendline/registry"
)

func init() {
	registry.Register("go_runtime", (*Runtime)(nil))
}

//go:embed "runtime.toml"
var runtimeSampleConfig string

func (r *Runtime) SampleConfig() string {
	return runtimeSampleConfig
}

var _ metric.Input = (*Runtime)(nil)

type Runtime struct {
	Type      string `toml:"type"` // "gauge"(default) or "meter"
	HeapInuse bool   `toml:"heap_inuse"`

	countType metric.Type `toml:"-"`
	bytesType metric.Type `toml:"-"`
}

func (r *Runtime) Init() error {
	switch r.Type {
	case "", "gauge":
		r.countType = metric.GaugeType(metric.UnitShort)
		r.bytesType = metric.GaugeType(metric.UnitBytes)
	case "meter":
		r.countType = metric.MeterType(metric.UnitShort)
		r.bytesType = metric.MeterType(metric.UnitBytes)
	default:
		return fmt.Errorf("unknown metric type %q", r.Type)
	}
	return nil
}

func (r *Runtime) Gather(g *metric.Gather) error {
	g.Add("go:goroutines", float64(runtime.NumGoroutine()), r.countType)
	if r.HeapInuse {
		memStats := runtime.MemStats{}
		runtime.ReadMemStats(&memStats)
		g.Add("go:heap_inuse", float64(memStats.HeapInuse), r.bytesType)
	}
	return nil
}
