package dispatch

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/srodi/fanview/pkg/host"
)

var panels = []string{"claude", "chatgpt", "gemini"}

func TestDispatchAppliesToEveryTarget(t *testing.T) {
	h := host.NewMemoryHost(panels...)
	d := New(h)

	require.NoError(t, d.Dispatch(context.Background(), "reload", panels, Eval("location.reload()")))
	for _, label := range panels {
		assert.Equal(t, []string{"location.reload()"}, h.Target(label).Scripts(), label)
	}
}

func TestDispatchSkipsAbsentTargets(t *testing.T) {
	h := host.NewMemoryHost("claude", "gemini")
	d := New(h)

	require.NoError(t, d.Dispatch(context.Background(), "zoom", panels, Zoom(1.2)))
	assert.Equal(t, 1.2, h.Target("claude").Zoom())
	assert.Equal(t, 1.2, h.Target("gemini").Zoom())
}

func TestDispatchEachChoosesOperationPerTarget(t *testing.T) {
	h := host.NewMemoryHost(panels...)
	d := New(h)

	err := d.DispatchEach(context.Background(), "send", panels, func(label string) Operation {
		if label == "chatgpt" {
			return Noop()
		}
		return Eval("send:" + label)
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"send:claude"}, h.Target("claude").Scripts())
	assert.Empty(t, h.Target("chatgpt").Scripts())
	assert.Equal(t, []string{"send:gemini"}, h.Target("gemini").Scripts())
}

func TestDispatchEmptyLabelsIsNoop(t *testing.T) {
	d := New(host.NewMemoryHost())
	assert.NoError(t, d.Dispatch(context.Background(), "reload", nil, Eval("x")))
}

func TestDispatchReturnsWithoutWaitingOnSlowTarget(t *testing.T) {
	h := host.NewMemoryHost(panels...)
	boom := errors.New("eval rejected")
	h.Target("chatgpt").EvalHook = func(context.Context, string) error { return boom }

	cancelled := make(chan struct{})
	h.Target("gemini").EvalHook = func(ctx context.Context, _ string) error {
		<-ctx.Done()
		close(cancelled)
		return ctx.Err()
	}

	d := New(h)
	done := make(chan error, 1)
	go func() {
		done <- d.Dispatch(context.Background(), "send", panels, Eval("x"))
	}()

	select {
	case err := <-done:
		var targetErr *TargetError
		require.ErrorAs(t, err, &targetErr)
		assert.Equal(t, "chatgpt", targetErr.Label)
		assert.ErrorIs(t, err, boom)
		assert.Equal(t, "send on chatgpt: eval rejected", err.Error())
	case <-time.After(2 * time.Second):
		t.Fatal("dispatch blocked on the slow target")
	}

	select {
	case <-cancelled:
	case <-time.After(2 * time.Second):
		t.Fatal("remaining target was not cancelled")
	}
	assert.Equal(t, []string{"x"}, h.Target("claude").Scripts())
}

func TestDispatchReportsFirstErrorInTargetOrder(t *testing.T) {
	h := host.NewMemoryHost(panels...)
	h.Target("claude").EvalHook = func(context.Context, string) error {
		time.Sleep(50 * time.Millisecond)
		return errors.New("slow failure")
	}
	h.Target("gemini").EvalHook = func(context.Context, string) error {
		return errors.New("fast failure")
	}

	err := New(h).Dispatch(context.Background(), "send", panels, Eval("x"))
	var targetErr *TargetError
	require.ErrorAs(t, err, &targetErr)
	assert.Equal(t, "claude", targetErr.Label)
}

func TestDispatchHonoursCallerCancellation(t *testing.T) {
	h := host.NewMemoryHost("claude")
	h.Target("claude").ZoomHook = func(ctx context.Context, _ float64) error {
		<-ctx.Done()
		return ctx.Err()
	}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	err := New(h).Dispatch(ctx, "zoom", []string{"claude"}, Zoom(1.1))
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestOperationApply(t *testing.T) {
	target := host.NewMemoryHost("t").Target("t")
	ctx := context.Background()

	require.NoError(t, Noop().Apply(ctx, target))
	require.NoError(t, Eval("").Apply(ctx, target))
	assert.Empty(t, target.Scripts())

	require.NoError(t, Zoom(0.5).Apply(ctx, target))
	assert.Equal(t, 0.5, target.Zoom())

	assert.Error(t, Operation{Kind: Kind(42)}.Apply(ctx, target))
	assert.Equal(t, "eval", KindEval.String())
	assert.Equal(t, "zoom", KindZoom.String())
	assert.Equal(t, "noop", KindNoop.String())
}
