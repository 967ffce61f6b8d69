package proctree

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"

	"github.com/srodi/fanview/pkg/collector/process"
	"github.com/srodi/fanview/pkg/types"
)

// ErrHostNotFound is returned when the host pid is absent from the snapshot.
var ErrHostNotFound = errors.New("host process not found in snapshot")

const bytesPerMB = 1024 * 1024

// Member is one process counted in a Group.
type Member struct {
	types.ProcessRecord
	Reason Reason
}

// Group is the result of one memory query. It is rebuilt from scratch every time.
type Group struct {
	Host       types.ProcessRecord
	Members    []Member // host first, then by descending RSS
	TotalBytes uint64
}

// MB returns the total in megabytes (bytes / 1024 / 1024).
func (g Group) MB() float64 {
	return float64(g.TotalBytes) / bytesPerMB
}

// Aggregator sums the memory of the host process and everything related to it.
type Aggregator struct {
	reader   process.Reader
	strategy Strategy
	logger   *slog.Logger
}

// NewAggregator returns an Aggregator. A nil strategy counts OS descendants only.
func NewAggregator(reader process.Reader, strategy Strategy, logger *slog.Logger) *Aggregator {
	if strategy == nil {
		strategy = NoStrategy{}
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Aggregator{reader: reader, strategy: strategy, logger: logger}
}

// TotalMemory takes one snapshot and returns the group for hostPID.
func (a *Aggregator) TotalMemory(ctx context.Context, hostPID int) (Group, error) {
	snapshot, err := a.reader.Snapshot(ctx)
	if err != nil {
		return Group{}, fmt.Errorf("reading process table: %w", err)
	}
	return Collect(snapshot, hostPID, a.strategy, a.logger)
}

// Collect builds the group for hostPID from an existing snapshot: the host, its
// descendants and whatever strategy adds, deduplicated by pid.
func Collect(snapshot []types.ProcessRecord, hostPID int, strategy Strategy, logger *slog.Logger) (Group, error) {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	byPID := make(map[int]types.ProcessRecord, len(snapshot))
	for _, p := range snapshot {
		byPID[p.PID] = p
	}
	host, ok := byPID[hostPID]
	if !ok {
		return Group{}, fmt.Errorf("%w: pid %d", ErrHostNotFound, hostPID)
	}

	reasons := map[int]Reason{hostPID: ReasonHost}
	for pid := range Descendants(snapshot, hostPID) {
		reasons[pid] = ReasonDescendant
	}
	if strategy != nil {
		for pid, reason := range strategy.Supplement(host, snapshot) {
			if _, ok := reasons[pid]; !ok {
				reasons[pid] = reason
			}
		}
	}

	g := Group{Host: host}
	for pid, reason := range reasons {
		p, ok := byPID[pid]
		if !ok {
			continue
		}
		g.Members = append(g.Members, Member{ProcessRecord: p, Reason: reason})
		g.TotalBytes += p.RSSBytes
	}
	sort.Slice(g.Members, func(i, j int) bool {
		mi, mj := g.Members[i], g.Members[j]
		if (mi.Reason == ReasonHost) != (mj.Reason == ReasonHost) {
			return mi.Reason == ReasonHost
		}
		if mi.RSSBytes != mj.RSSBytes {
			return mi.RSSBytes > mj.RSSBytes
		}
		return mi.PID < mj.PID
	})

	logger.Debug("process group collected", "host", hostPID, "members", len(g.Members), "mb", g.MB())
	return g, nil
}
