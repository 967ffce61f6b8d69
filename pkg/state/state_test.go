package state

import (
	"math"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestZoomDefaults(t *testing.T) {
	s := New(Window{Scale: 1})
	assert.Equal(t, ZoomDefault, s.ZoomPercent())
	assert.Equal(t, StripMinHeight, s.StripHeight())
}

func TestStepZoomClampsAtBounds(t *testing.T) {
	s := New(Window{Scale: 1})

	s.zoom.Store(195)
	assert.Equal(t, 200, s.StepZoom(ZoomStep))
	assert.Equal(t, 200, s.StepZoom(ZoomStep), "ceiling should be idempotent")

	s.zoom.Store(55)
	assert.Equal(t, 50, s.StepZoom(-ZoomStep))
	assert.Equal(t, 50, s.StepZoom(-ZoomStep))
}

func TestStepZoomSequenceStaysInRange(t *testing.T) {
	s := New(Window{Scale: 1})
	steps := []int{10, 10, -10, 10, 10, 10, 10, 10, 10, 10, 10, 10, 10, 10, -10, -10}
	prev := s.ZoomPercent()
	for _, d := range steps {
		got := s.StepZoom(d)
		require.GreaterOrEqual(t, got, ZoomMin)
		require.LessOrEqual(t, got, ZoomMax)
		if got != ZoomMin && got != ZoomMax {
			require.Equal(t, prev+d, got)
		}
		prev = got
	}
	for i := 0; i < 30; i++ {
		s.StepZoom(-ZoomStep)
	}
	assert.Equal(t, ZoomMin, s.ZoomPercent())
	assert.Equal(t, ZoomDefault, s.ResetZoom())
	assert.Equal(t, ZoomDefault, s.ZoomPercent())
}

func TestStepZoomConcurrentStepsAreNotLost(t *testing.T) {
	s := New(Window{Scale: 1})
	s.zoom.Store(ZoomMin)

	var wg sync.WaitGroup
	for i := 0; i < 15; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.StepZoom(ZoomStep)
		}()
	}
	wg.Wait()
	assert.Equal(t, ZoomMin+15*ZoomStep, s.ZoomPercent())
}

func TestZoomFactor(t *testing.T) {
	assert.InDelta(t, 1.5, ZoomFactor(150), 1e-9)
	assert.InDelta(t, 0.5, ZoomFactor(ZoomMin), 1e-9)
}

func TestSetStripHeightClampsAndRounds(t *testing.T) {
	cases := []struct {
		in   float64
		want float64
	}{
		{0, 76},
		{-40, 76},
		{76.4, 76},
		{100.5, 101},
		{300.49, 300},
		{519.6, 520},
		{9000, 520},
		{math.Inf(1), 520},
		{math.NaN(), 76},
	}
	s := New(Window{Scale: 1})
	for _, tc := range cases {
		assert.Equal(t, tc.want, s.SetStripHeight(tc.in), "input %v", tc.in)
		assert.Equal(t, tc.want, s.StripHeight(), "input %v", tc.in)
	}
}

func TestWindowRoundTrip(t *testing.T) {
	s := New(Window{Scale: 2})
	assert.Equal(t, 2.0, s.Window().Scale)

	var zero State
	assert.Equal(t, 1.0, zero.Window().Scale)
}
