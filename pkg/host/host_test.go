package host

import (
	"context"
	"errors"
	"testing"

	"github.com/go-rod/rod/lib/launcher"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/srodi/fanview/pkg/types"
)

func TestMemoryHostRecordsCalls(t *testing.T) {
	h := NewMemoryHost("claude", "main")
	ctx := context.Background()

	target, ok := h.Lookup("claude")
	require.True(t, ok)
	assert.Equal(t, "claude", target.Label())

	require.NoError(t, target.Eval(ctx, "a()"))
	require.NoError(t, target.Eval(ctx, "b()"))
	require.NoError(t, target.SetZoom(ctx, 1.3))
	require.NoError(t, target.SetBounds(ctx, types.Rect{X: 1, Y: 2, Width: 3, Height: 4}))

	mt := h.Target("claude")
	assert.Equal(t, []string{"a()", "b()"}, mt.Scripts())
	assert.Equal(t, 1.3, mt.Zoom())
	b, placed := mt.Bounds()
	assert.True(t, placed)
	assert.Equal(t, types.Rect{X: 1, Y: 2, Width: 3, Height: 4}, b)

	_, placed = h.Target("main").Bounds()
	assert.False(t, placed)
}

func TestMemoryHostHooksReject(t *testing.T) {
	h := NewMemoryHost("claude")
	mt := h.Target("claude")
	boom := errors.New("rejected")
	mt.EvalHook = func(context.Context, string) error { return boom }
	mt.ZoomHook = func(context.Context, float64) error { return boom }
	mt.BoundsHook = func(context.Context, types.Rect) error { return boom }

	assert.ErrorIs(t, mt.Eval(context.Background(), "x"), boom)
	assert.ErrorIs(t, mt.SetZoom(context.Background(), 2), boom)
	assert.ErrorIs(t, mt.SetBounds(context.Background(), types.Rect{}), boom)
	assert.Empty(t, mt.Scripts())
	assert.Zero(t, mt.Zoom())
}

func TestMemoryHostRemove(t *testing.T) {
	h := NewMemoryHost("claude")
	h.Remove("claude")
	_, ok := h.Lookup("claude")
	assert.False(t, ok)
	assert.Nil(t, h.Target("claude"))
}

func TestBrowserHost(t *testing.T) {
	if testing.Short() {
		t.Skip("launches a browser")
	}
	bin, found := launcher.LookPath()
	if !found {
		t.Skip("no Chromium binary found")
	}

	ctx := t.Context()
	h, err := LaunchBrowser(ctx, BrowserOptions{Bin: bin, Headless: true}, []PageSpec{
		{Label: "left", URL: "about:blank"},
	}, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = h.Close() })

	assert.NotZero(t, h.BrowserPID())

	target, ok := h.Lookup("left")
	require.True(t, ok)
	require.NoError(t, target.Eval(ctx, "const x = 41 + 1;\nwindow.answer = x;"))
	require.NoError(t, target.SetZoom(ctx, 1.5))

	_, ok = h.Lookup("right")
	assert.False(t, ok)
}
