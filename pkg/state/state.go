// Package state holds the few process-wide values shared by command handlers.
package state

import (
	"math"
	"sync/atomic"

	"github.com/srodi/fanview/pkg/types"
)

const (
	ZoomMin     = 50
	ZoomMax     = 200
	ZoomDefault = 100
	ZoomStep    = 10

	StripMinHeight = 76.0
	StripMaxHeight = 520.0
)

// Window is the last reported window geometry.
type Window struct {
	Size  types.PhysicalSize
	Scale float64
}

// State owns the zoom percentage, the control-strip height and the window geometry.
// It lives for the whole process; the zero value is not usable, call New.
type State struct {
	zoom   atomic.Int32
	strip  atomic.Uint32
	window atomic.Pointer[Window]
}

// New returns a State initialized to defaults.
func New(window Window) *State {
	s := &State{}
	s.zoom.Store(ZoomDefault)
	s.strip.Store(uint32(StripMinHeight))
	s.SetWindow(window)
	return s
}

// ZoomPercent returns the current zoom percentage.
func (s *State) ZoomPercent() int {
	return int(s.zoom.Load())
}

// StepZoom adds delta to the zoom percentage, clamps it to [ZoomMin, ZoomMax]
// and returns the stored value. Concurrent steps are never lost.
func (s *State) StepZoom(delta int) int {
	for {
		current := s.zoom.Load()
		next := clampZoom(int(current) + delta)
		if s.zoom.CompareAndSwap(current, int32(next)) {
			return next
		}
	}
}

// ResetZoom stores ZoomDefault unconditionally.
func (s *State) ResetZoom() int {
	s.zoom.Store(ZoomDefault)
	return ZoomDefault
}

// ZoomFactor converts a percentage to the factor applied to targets.
func ZoomFactor(percent int) float64 {
	return float64(percent) / 100.0
}

func clampZoom(v int) int {
	return min(max(v, ZoomMin), ZoomMax)
}

// SetStripHeight clamps h to [StripMinHeight, StripMaxHeight], rounds it and
// stores it. The stored height is returned.
func (s *State) SetStripHeight(h float64) float64 {
	v := ClampStripHeight(h)
	s.strip.Store(uint32(v))
	return v
}

// StripHeight returns the stored control-strip height.
func (s *State) StripHeight() float64 {
	return float64(s.strip.Load())
}

// ClampStripHeight applies the control-strip bounds and rounds to the nearest integer.
func ClampStripHeight(h float64) float64 {
	if math.IsNaN(h) {
		return StripMinHeight
	}
	return math.Round(math.Min(math.Max(h, StripMinHeight), StripMaxHeight))
}

// SetWindow records the latest window geometry.
func (s *State) SetWindow(w Window) {
	s.window.Store(&w)
}

// Window returns the latest window geometry.
func (s *State) Window() Window {
	if w := s.window.Load(); w != nil {
		return *w
	}
	return Window{Scale: 1}
}
