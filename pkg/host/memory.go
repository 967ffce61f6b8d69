package host

import (
	"context"
	"sync"

	"github.com/srodi/fanview/pkg/types"
)

// MemoryHost is an in-process Host that records what was applied to each target.
// It backs dry runs and tests.
type MemoryHost struct {
	mu      sync.Mutex
	targets map[string]*MemoryTarget
}

// NewMemoryHost creates a host with one recording target per label.
func NewMemoryHost(labels ...string) *MemoryHost {
	h := &MemoryHost{targets: make(map[string]*MemoryTarget, len(labels))}
	for _, label := range labels {
		h.targets[label] = &MemoryTarget{label: label}
	}
	return h
}

// Lookup implements Host.
func (h *MemoryHost) Lookup(label string) (Target, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	t, ok := h.targets[label]
	if !ok {
		return nil, false
	}
	return t, true
}

// Target returns the concrete recording target for label, or nil.
func (h *MemoryHost) Target(label string) *MemoryTarget {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.targets[label]
}

// Remove drops a target, simulating a closed panel.
func (h *MemoryHost) Remove(label string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.targets, label)
}

// MemoryTarget records every call made against it. Hooks, when set, run before
// the call is recorded and may return an error or block.
type MemoryTarget struct {
	label string

	mu      sync.Mutex
	scripts []string
	zoom    float64
	bounds  types.Rect
	placed  bool

	EvalHook   func(ctx context.Context, script string) error
	ZoomHook   func(ctx context.Context, factor float64) error
	BoundsHook func(ctx context.Context, bounds types.Rect) error
}

func (t *MemoryTarget) Label() string { return t.label }

func (t *MemoryTarget) Eval(ctx context.Context, script string) error {
	if t.EvalHook != nil {
		if err := t.EvalHook(ctx, script); err != nil {
			return err
		}
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.scripts = append(t.scripts, script)
	return nil
}

func (t *MemoryTarget) SetZoom(ctx context.Context, factor float64) error {
	if t.ZoomHook != nil {
		if err := t.ZoomHook(ctx, factor); err != nil {
			return err
		}
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.zoom = factor
	return nil
}

func (t *MemoryTarget) SetBounds(ctx context.Context, bounds types.Rect) error {
	if t.BoundsHook != nil {
		if err := t.BoundsHook(ctx, bounds); err != nil {
			return err
		}
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.bounds = bounds
	t.placed = true
	return nil
}

// Scripts returns a copy of the evaluated scripts in call order.
func (t *MemoryTarget) Scripts() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]string(nil), t.scripts...)
}

// Zoom returns the last zoom factor applied, 0 if none.
func (t *MemoryTarget) Zoom() float64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.zoom
}

// Bounds returns the last bounds applied and whether any were.
func (t *MemoryTarget) Bounds() (types.Rect, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.bounds, t.placed
}
