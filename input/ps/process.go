package ps

import (
	_ "embed"
	"fmt"
	"os"

	"github.com/OutOfBedlam/metric"
	"github.com/OutOfBedlam/trendline/registry"
	"github.com/shirou/gopsutil/v4/process"
)

func init() {
	registry.Register("process", (*Process)(nil))
}

//go:embed "process.toml"
var processSampleConfig string

func (p *Process) SampleConfig() string {
	return processSampleConfig
}

var _ metric.Input = (*Process)(nil)

// Process gathers the memory and CPU use of a single process,
// the running one when Pid is zero.
type Process struct {
	Pid int32 `toml:"pid"`

	proc *process.Process `toml:"-"`
}

func (p *Process) Init() error {
	if p.Pid == 0 {
		p.Pid = int32(os.Getpid())
	}
	proc, err := process.NewProcess(p.Pid)
	if err != nil {
		return fmt.Errorf("process %d: %w", p.Pid, err)
	}
	p.proc = proc
	return nil
}

func (p *Process) Gather(g *metric.Gather) error {
	memInfo, err := p.proc.MemoryInfo()
	if err != nil {
		return fmt.Errorf("error collecting process memory: %w", err)
	}
	g.Add("proc:rss", float64(memInfo.RSS), metric.GaugeType(metric.UnitBytes))
	cpuPercent, err := p.proc.Percent(0)
	if err != nil {
		return fmt.Errorf("error collecting process cpu: %w", err)
	}
	g.Add("proc:cpu_percent", cpuPercent, metric.GaugeType(metric.UnitPercent))
	return nil
}
