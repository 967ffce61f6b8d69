package layout

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/srodi/fanview/pkg/host"
	"github.com/srodi/fanview/pkg/types"
)

func TestComputeScenario(t *testing.T) {
	m, ok := Compute(types.PhysicalSize{Width: 1200, Height: 800}, 2.0, 100, 3)
	require.True(t, ok)
	assert.Equal(t, 600.0, m.Width)
	assert.Equal(t, 400.0, m.Height)
	assert.Equal(t, 300.0, m.AvailableHeight)
	assert.Equal(t, 200.0, m.PanelWidth)
	assert.Equal(t, 200.0, m.LastPanelWidth)

	m, ok = Compute(types.PhysicalSize{Width: 1201, Height: 800}, 2.0, 100, 3)
	require.True(t, ok)
	assert.Equal(t, 600.0, m.Width, "logical width is floored")
	assert.Equal(t, 200.0, m.LastPanelWidth)
}

func TestComputeZeroPanelsIsRejected(t *testing.T) {
	_, ok := Compute(types.PhysicalSize{Width: 800, Height: 600}, 1, 76, 0)
	assert.False(t, ok)
}

func TestComputeAvailableHeightFloor(t *testing.T) {
	m, ok := Compute(types.PhysicalSize{Width: 400, Height: 200}, 1, 520, 2)
	require.True(t, ok)
	assert.Equal(t, MinAvailableHeight, m.AvailableHeight)

	m, _ = Compute(types.PhysicalSize{}, 1, 76, 1)
	assert.Equal(t, MinAvailableHeight, m.AvailableHeight)
	assert.Equal(t, 0.0, m.Width)
	assert.Equal(t, 0.0, m.LastPanelWidth)
}

func TestComputeBadScaleFallsBackToOne(t *testing.T) {
	for _, scale := range []float64{0, -2, math.NaN(), math.Inf(1)} {
		m, ok := Compute(types.PhysicalSize{Width: 900, Height: 700}, scale, 100, 3)
		require.True(t, ok)
		assert.Equal(t, 900.0, m.Width, "scale %v", scale)
	}
}

func TestPanelWidthsSumToWindowWidth(t *testing.T) {
	scales := []float64{1, 1.25, 1.5, 2, 3}
	for n := 1; n <= 7; n++ {
		for w := uint32(0); w <= 2600; w += 37 {
			for _, scale := range scales {
				m, ok := Compute(types.PhysicalSize{Width: w, Height: 900}, scale, 76, n)
				require.True(t, ok)

				labels := make([]string, n)
				for i := range labels {
					labels[i] = string(rune('a' + i))
				}
				placements := Plan(m, labels, "")
				var sum float64
				for i, p := range placements {
					sum += p.Bounds.Width
					if i < n-1 {
						require.Equal(t, m.PanelWidth, p.Bounds.Width)
					}
				}
				want := math.Floor(float64(w) / scale)
				require.Equal(t, want, sum, "n=%d w=%d scale=%v", n, w, scale)

				last := placements[n-1]
				require.Equal(t, want, last.Bounds.X+last.Bounds.Width, "right edge n=%d w=%d", n, w)
			}
		}
	}
}

func TestPlanPositionsPanelsAndStrip(t *testing.T) {
	m, _ := Compute(types.PhysicalSize{Width: 1000, Height: 700}, 1, 120, 3)
	got := Plan(m, []string{"a", "b", "c"}, "main")

	require.Len(t, got, 4)
	assert.Equal(t, types.Rect{X: 0, Y: 0, Width: 333, Height: 580}, got[0].Bounds)
	assert.Equal(t, types.Rect{X: 333, Y: 0, Width: 333, Height: 580}, got[1].Bounds)
	assert.Equal(t, types.Rect{X: 666, Y: 0, Width: 334, Height: 580}, got[2].Bounds)
	assert.Equal(t, "main", got[3].Label)
	assert.Equal(t, types.Rect{X: 0, Y: 580, Width: 1000, Height: 120}, got[3].Bounds)

	assert.Nil(t, Plan(m, nil, "main"))
}

func TestApplySkipsMissingTargetWithoutReflow(t *testing.T) {
	h := host.NewMemoryHost("a", "c", "main")
	size := types.PhysicalSize{Width: 900, Height: 600}

	require.NoError(t, Apply(context.Background(), h, size, 1, 100, []string{"a", "b", "c"}, "main"))

	a, ok := h.Target("a").Bounds()
	require.True(t, ok)
	assert.Equal(t, types.Rect{X: 0, Y: 0, Width: 300, Height: 500}, a)

	c, ok := h.Target("c").Bounds()
	require.True(t, ok)
	assert.Equal(t, types.Rect{X: 600, Y: 0, Width: 300, Height: 500}, c)

	strip, ok := h.Target("main").Bounds()
	require.True(t, ok)
	assert.Equal(t, types.Rect{X: 0, Y: 500, Width: 900, Height: 100}, strip)
}

func TestApplyEmptyLabelsIsNoop(t *testing.T) {
	h := host.NewMemoryHost("main")
	require.NoError(t, Apply(context.Background(), h, types.PhysicalSize{Width: 10, Height: 10}, 1, 76, nil, "main"))
	_, placed := h.Target("main").Bounds()
	assert.False(t, placed)
}

func TestApplyStopsOnFirstError(t *testing.T) {
	h := host.NewMemoryHost("a", "b")
	h.Target("a").BoundsHook = func(context.Context, types.Rect) error { return errors.New("gone") }

	err := Apply(context.Background(), h, types.PhysicalSize{Width: 400, Height: 400}, 1, 76, []string{"a", "b"}, "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "placing a")
	_, placed := h.Target("b").Bounds()
	assert.False(t, placed)
}
