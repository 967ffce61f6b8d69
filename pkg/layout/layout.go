// Package layout derives panel and control-strip geometry from the window size.
package layout

import (
	"context"
	"fmt"
	"math"

	"github.com/srodi/fanview/pkg/host"
	"github.com/srodi/fanview/pkg/types"
)

// MinAvailableHeight keeps panels usable when the control strip is tall and the window small.
const MinAvailableHeight = 100.0

// Metrics is the geometry derived for one window size. It is never stored.
type Metrics struct {
	Width           float64
	Height          float64
	StripHeight     float64
	AvailableHeight float64
	PanelWidth      float64
	LastPanelWidth  float64
	PanelCount      int
}

// Placement is the bounds assigned to one target.
type Placement struct {
	Label  string
	Bounds types.Rect
}

// Compute derives the layout for panelCount panels. It reports false for a zero panel count.
func Compute(size types.PhysicalSize, scale, stripHeight float64, panelCount int) (Metrics, bool) {
	if panelCount < 1 {
		return Metrics{}, false
	}
	if scale <= 0 || math.IsNaN(scale) || math.IsInf(scale, 0) {
		scale = 1
	}
	width := math.Floor(math.Max(float64(size.Width)/scale, 0))
	height := math.Floor(math.Max(float64(size.Height)/scale, 0))
	available := math.Floor(math.Max(height-stripHeight, MinAvailableHeight))
	count := float64(panelCount)
	panelWidth := math.Floor(width / count)
	lastWidth := math.Max(width-panelWidth*(count-1), 0)

	return Metrics{
		Width:           width,
		Height:          height,
		StripHeight:     stripHeight,
		AvailableHeight: available,
		PanelWidth:      panelWidth,
		LastPanelWidth:  lastWidth,
		PanelCount:      panelCount,
	}, true
}

// Plan assigns bounds to labels left to right, followed by the control strip when
// stripLabel is not empty. The last panel absorbs the rounding remainder.
func Plan(m Metrics, labels []string, stripLabel string) []Placement {
	if len(labels) == 0 {
		return nil
	}
	out := make([]Placement, 0, len(labels)+1)
	for i, label := range labels {
		width := m.PanelWidth
		if i == len(labels)-1 {
			width = m.LastPanelWidth
		}
		out = append(out, Placement{
			Label: label,
			Bounds: types.Rect{
				X:      math.Floor(m.PanelWidth * float64(i)),
				Y:      0,
				Width:  width,
				Height: m.AvailableHeight,
			},
		})
	}
	if stripLabel != "" {
		out = append(out, Placement{
			Label: stripLabel,
			Bounds: types.Rect{
				X:      0,
				Y:      m.AvailableHeight,
				Width:  math.Floor(m.Width),
				Height: math.Floor(m.StripHeight),
			},
		})
	}
	return out
}

// Apply computes the layout for labels and assigns it through h. Targets the host
// cannot find are skipped; the others keep the positions computed for the full set.
// The first assignment error stops the pass.
func Apply(ctx context.Context, h host.Host, size types.PhysicalSize, scale, stripHeight float64, labels []string, stripLabel string) error {
	m, ok := Compute(size, scale, stripHeight, len(labels))
	if !ok {
		return nil
	}
	for _, p := range Plan(m, labels, stripLabel) {
		t, ok := h.Lookup(p.Label)
		if !ok {
			continue
		}
		if err := t.SetBounds(ctx, p.Bounds); err != nil {
			return fmt.Errorf("placing %s: %w", p.Label, err)
		}
	}
	return nil
}
