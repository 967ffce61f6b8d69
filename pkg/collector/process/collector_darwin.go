//go:build darwin

package process

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"time"

	"golang.org/x/sys/unix"

	"github.com/srodi/fanview/pkg/types"
)

// sysctlMemsize allows tests to stub the hw.memsize lookup.
var sysctlMemsize = func() (uint64, error) {
	return unix.SysctlUint64("hw.memsize")
}

// TotalMemoryBytes returns the physical memory size reported by sysctl.
func TotalMemoryBytes() (uint64, error) {
	total, err := sysctlMemsize()
	if err != nil {
		return 0, fmt.Errorf("reading hw.memsize: %w", err)
	}
	return total, nil
}

// runPS allows tests to stub the ps invocation.
var runPS = func(ctx context.Context) ([]byte, error) {
	cmd := exec.CommandContext(ctx, "ps", "-axww", "-o", "pid=,ppid=,uid=,rss=,lstart=,comm=")
	cmd.Env = append(os.Environ(), "LC_ALL=C")
	return cmd.Output()
}

// Collector reads the process table through ps, since darwin has no /proc.
type Collector struct{}

// NewCollector returns a ps-backed collector.
func NewCollector() (*Collector, error) {
	return &Collector{}, nil
}

// Snapshot runs ps once and parses every row.
func (c *Collector) Snapshot(ctx context.Context) ([]types.ProcessRecord, error) {
	out, err := runPS(ctx)
	if err != nil {
		return nil, fmt.Errorf("running ps: %w", err)
	}
	return parsePSOutput(out, time.Local), nil
}
