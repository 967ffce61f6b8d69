package process

import (
	"context"

	"github.com/srodi/fanview/pkg/types"
)

// Reader produces point-in-time snapshots of the OS process table.
type Reader interface {
	Snapshot(ctx context.Context) ([]types.ProcessRecord, error)
}

// ReaderFunc adapts a function to Reader.
type ReaderFunc func(ctx context.Context) ([]types.ProcessRecord, error)

func (f ReaderFunc) Snapshot(ctx context.Context) ([]types.ProcessRecord, error) {
	return f(ctx)
}
