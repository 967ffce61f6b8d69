//go:build !linux && !darwin

package process

import (
	"context"
	"errors"

	"github.com/srodi/fanview/pkg/types"
)

var errUnsupported = errors.New("process snapshots require linux or darwin")

// Collector is a placeholder on platforms without a process-table reader.
type Collector struct{}

// NewCollector returns an error because no reader exists for this platform.
func NewCollector() (*Collector, error) {
	return nil, errUnsupported
}

// Snapshot always fails on unsupported platforms.
func (c *Collector) Snapshot(ctx context.Context) ([]types.ProcessRecord, error) {
	return nil, errUnsupported
}

// TotalMemoryBytes always fails on unsupported platforms.
func TotalMemoryBytes() (uint64, error) {
	return 0, errUnsupported
}
