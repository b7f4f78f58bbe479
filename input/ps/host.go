// Package ps gathers host and process statistics for the metrics dashboard.
package ps

import (
	_ "embed"
	"fmt"

	"github.com/OutOfBedlam/metric"
	"github.com/OutOfBedlam/trendline/registry"
	"github.com/shirou/gopsutil/v4/cpu"
	"github.com/shirou/gopsutil/v4/load"
	"github.com/shirou/gopsutil/v4/mem"
)

func init() {
	registry.Register("host", (*Host)(nil))
}

//go:embed "host.toml"
var hostSampleConfig string

func (h *Host) SampleConfig() string {
	return hostSampleConfig
}

var _ metric.Input = (*Host)(nil)

type Host struct {
	Type string `toml:"type"` // "gauge"(default) or "meter"
	Load bool   `toml:"load"`

	percentType metric.Type `toml:"-"`
}

func (h *Host) Init() error {
	switch h.Type {
	case "", "gauge":
		h.percentType = metric.GaugeType(metric.UnitPercent)
	case "meter":
		h.percentType = metric.MeterType(metric.UnitPercent)
	default:
		return fmt.Errorf("unknown metric type %q", h.Type)
	}
	return nil
}

func (h *Host) Gather(g *metric.Gather) error {
	cpuPercent, err := cpu.Percent(0, false)
	if err != nil {
		return fmt.Errorf("error collecting CPU percent: %w", err)
	}
	if len(cpuPercent) > 0 {
		g.Add("host:cpu_percent", cpuPercent[0], h.percentType)
	}
	memStat, err := mem.VirtualMemory()
	if err != nil {
		return fmt.Errorf("error collecting memory percent: %w", err)
	}
	g.Add("host:mem_percent", memStat.UsedPercent, h.percentType)
	if h.Load {
		stat, err := load.Avg()
		if err != nil {
			return fmt.Errorf("error collecting load average: %w", err)
		}
		g.Add("host:load1", stat.Load1, metric.GaugeType(metric.UnitShort))
	}
	return nil
}
