//go:build linux

package process

import (
	"context"
	"errors"
	"fmt"
	"math"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/procfs"
	"golang.org/x/sys/unix"

	"github.com/srodi/fanview/pkg/types"
)

// procFS allows tests to point /proc reads at a fixture tree.
var procFS = procfs.NewDefaultFS

// ownerUID allows tests to stub the owner lookup of /proc/PID.
var ownerUID = defaultOwnerUID

func defaultOwnerUID(pid int) (int, error) {
	var st unix.Stat_t
	if err := unix.Stat(filepath.Join("/proc", strconv.Itoa(pid)), &st); err != nil {
		return types.UnknownUID, err
	}
	return int(st.Uid), nil
}

// Collector reads the process table from /proc.
type Collector struct {
	fs procfs.FS
}

// NewCollector opens the default procfs mount.
func NewCollector() (*Collector, error) {
	fs, err := procFS()
	if err != nil {
		return nil, fmt.Errorf("opening procfs: %w", err)
	}
	return &Collector{fs: fs}, nil
}

// TotalMemoryBytes returns MemTotal from /proc/meminfo in bytes.
func TotalMemoryBytes() (uint64, error) {
	fs, err := procFS()
	if err != nil {
		return 0, fmt.Errorf("opening procfs: %w", err)
	}
	mi, err := fs.Meminfo()
	if err != nil {
		return 0, fmt.Errorf("reading meminfo: %w", err)
	}
	if mi.MemTotal == nil {
		return 0, errors.New("MemTotal not found in meminfo")
	}
	return *mi.MemTotal * 1024, nil
}

// Snapshot returns every process visible in /proc. Processes that exit while the
// table is being read are left out.
func (c *Collector) Snapshot(ctx context.Context) ([]types.ProcessRecord, error) {
	procs, err := c.fs.AllProcs()
	if err != nil {
		return nil, fmt.Errorf("listing processes: %w", err)
	}

	records := make([]types.ProcessRecord, 0, len(procs))
	for _, p := range procs {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		stat, err := p.Stat()
		if err != nil {
			continue
		}
		rec := types.ProcessRecord{
			PID:      stat.PID,
			PPID:     stat.PPID,
			UID:      types.UnknownUID,
			RSSBytes: uint64(max(stat.ResidentMemory(), 0)),
			Name:     stat.Comm,
		}
		if started, err := stat.StartTime(); err == nil {
			sec, frac := math.Modf(started)
			rec.StartTime = time.Unix(int64(sec), int64(frac*1e9))
		}
		if uid, err := ownerUID(p.PID); err == nil {
			rec.UID = uid
		}
		if exe, err := p.Executable(); err == nil {
			rec.Exe = exe
		}
		if args, err := p.CmdLine(); err == nil {
			rec.Cmdline = strings.Join(args, " ")
		}
		records = append(records, rec)
	}
	return records, nil
}
