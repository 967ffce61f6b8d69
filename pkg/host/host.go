// Package host defines the rendering targets fanview drives and the window that owns them.
package host

import (
	"context"

	"github.com/srodi/fanview/pkg/types"
)

// Target is one independently addressable content surface.
type Target interface {
	Label() string
	Eval(ctx context.Context, script string) error
	SetZoom(ctx context.Context, factor float64) error
	SetBounds(ctx context.Context, bounds types.Rect) error
}

// Host owns the targets. Lookup reports false for a target that is closed or not created yet.
type Host interface {
	Lookup(label string) (Target, bool)
}
