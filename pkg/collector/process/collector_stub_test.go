//go:build !linux && !darwin

package process

import (
	"context"
	"errors"
	"testing"
)

func TestStubCollectorBehavior(t *testing.T) {
	if _, err := NewCollector(); !errors.Is(err, errUnsupported) {
		t.Fatalf("expected errUnsupported, got %v", err)
	}

	var c Collector
	if records, err := c.Snapshot(context.Background()); err != errUnsupported || records != nil {
		t.Fatalf("snapshot should fail with errUnsupported, got records=%v err=%v", records, err)
	}
	if total, err := TotalMemoryBytes(); !errors.Is(err, errUnsupported) || total != 0 {
		t.Fatalf("total memory should fail with errUnsupported, got %d, %v", total, err)
	}
}
