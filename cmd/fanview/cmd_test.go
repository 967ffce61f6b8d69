package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/srodi/fanview/pkg/collector/process"
	"github.com/srodi/fanview/pkg/commands"
	"github.com/srodi/fanview/pkg/config"
	"github.com/srodi/fanview/pkg/host"
	"github.com/srodi/fanview/pkg/proctree"
	"github.com/srodi/fanview/pkg/server"
	"github.com/srodi/fanview/pkg/types"
)

func sampleGroup() proctree.Group {
	members := []proctree.Member{
		{ProcessRecord: types.ProcessRecord{PID: 100, PPID: 1, Name: "fanview", RSSBytes: 5 << 20}, Reason: proctree.ReasonHost},
		{ProcessRecord: types.ProcessRecord{PID: 102, PPID: 100, Name: "chrome", RSSBytes: 15 << 20}, Reason: proctree.ReasonDescendant},
		{ProcessRecord: types.ProcessRecord{PID: 101, PPID: 100, Name: "chrome", RSSBytes: 10 << 20}, Reason: proctree.ReasonDescendant},
	}
	return proctree.Group{Host: members[0].ProcessRecord, Members: members, TotalBytes: 30 << 20}
}

func TestWriteLayout(t *testing.T) {
	var buf bytes.Buffer
	err := writeLayout(&buf, types.PhysicalSize{Width: 1200, Height: 800}, 2, 100, []string{"claude", "chatgpt", "gemini"}, "main")
	require.NoError(t, err)

	out := buf.String()
	assert.Contains(t, out, "logical 600x400, panels 3 x 200 (last 200), available height 300, strip 100")
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 7)
	assert.Equal(t, []string{"gemini", "400", "0", "200", "300"}, strings.Fields(lines[5]))
	assert.Equal(t, []string{"main", "0", "300", "600", "100"}, strings.Fields(lines[6]))
}

func TestWriteLayoutWithoutPanels(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, writeLayout(&buf, types.PhysicalSize{Width: 100, Height: 100}, 1, 76, nil, "main"))
	assert.Equal(t, "no panels configured\n", buf.String())
}

func TestWriteMemoryFormats(t *testing.T) {
	view := viewConfig{topK: 2}

	var text bytes.Buffer
	require.NoError(t, writeMemory(&text, sampleGroup(), view, "text"))
	assert.Contains(t, text.String(), "fanview (pid 100): 3 processes, 30.0 MB")
	assert.Contains(t, text.String(), "descendant 2/25.0 MB")

	var js bytes.Buffer
	require.NoError(t, writeMemory(&js, sampleGroup(), view, "json"))
	var decoded memoryReport
	require.NoError(t, json.Unmarshal(js.Bytes(), &decoded))
	assert.InDelta(t, 30.0, decoded.Megabytes, 1e-9)
	assert.Equal(t, 3, decoded.Processes)
	require.Len(t, decoded.Members, 2)
	assert.Equal(t, 102, decoded.Members[0].PID)

	var y bytes.Buffer
	require.NoError(t, writeMemory(&y, sampleGroup(), view, "yaml"))
	var generic map[string]any
	require.NoError(t, yaml.Unmarshal(y.Bytes(), &generic))
	assert.Equal(t, 100, generic["host_pid"])

	assert.Error(t, writeMemory(&bytes.Buffer{}, sampleGroup(), view, "xml"))
}

func newViewCmd(t *testing.T, args ...string) *cobra.Command {
	t.Helper()
	cmd := &cobra.Command{Use: "test"}
	addViewFlags(cmd)
	require.NoError(t, cmd.ParseFlags(args))
	return cmd
}

func TestReadViewFlags(t *testing.T) {
	v, err := readViewFlags(newViewCmd(t, "--topk", "0", "--reason", "Renderer,host", "--min-mb", "2", "--name-filter", " chrome "))
	require.NoError(t, err)
	assert.Equal(t, 0, v.topK)
	assert.Equal(t, []proctree.Reason{proctree.ReasonRenderer, proctree.ReasonHost}, v.filter.Reasons)
	assert.Equal(t, 2.0, v.filter.MinMB)
	assert.Equal(t, "chrome", v.filter.NameFilter)

	_, err = readViewFlags(newViewCmd(t, "--reason", "cousin"))
	assert.Error(t, err)

	_, err = readViewFlags(newViewCmd(t, "--topk", "-1"))
	assert.Error(t, err)
}

func TestZeroTopKListsEveryMember(t *testing.T) {
	v, err := readViewFlags(newViewCmd(t, "--topk", "0"))
	require.NoError(t, err)

	var js bytes.Buffer
	require.NoError(t, writeMemory(&js, sampleGroup(), v, "json"))
	var decoded memoryReport
	require.NoError(t, json.Unmarshal(js.Bytes(), &decoded))
	assert.Len(t, decoded.Members, 3)
}

func newPIDCmd(t *testing.T, args ...string) *cobra.Command {
	t.Helper()
	cmd := &cobra.Command{Use: "test"}
	addPIDFlags(cmd)
	require.NoError(t, cmd.ParseFlags(args))
	cmd.SetContext(t.Context())
	return cmd
}

func TestResolvePIDFromFlag(t *testing.T) {
	pid, err := resolvePID(newPIDCmd(t, "--pid", "7"), config.Default())
	require.NoError(t, err)
	assert.Equal(t, 7, pid)
}

func TestResolvePIDFromServer(t *testing.T) {
	cmds, err := commands.New(commands.Config{
		Host:    host.NewMemoryHost("claude"),
		Labels:  []string{"claude"},
		HostPID: 4242,
	})
	require.NoError(t, err)
	srv := httptest.NewServer(server.NewHandler(cmds))
	t.Cleanup(srv.Close)
	addr := strings.TrimPrefix(srv.URL, "http://")

	cfg := config.Default()
	cfg.Server.Addr = addr
	pid, err := resolvePID(newPIDCmd(t), cfg)
	require.NoError(t, err)
	assert.Equal(t, 4242, pid)

	pid, err = resolvePID(newPIDCmd(t, "--addr", addr), config.Default())
	require.NoError(t, err)
	assert.Equal(t, 4242, pid)
}

func TestResolvePIDWithoutServer(t *testing.T) {
	srv := httptest.NewServer(nil)
	addr := strings.TrimPrefix(srv.URL, "http://")
	srv.Close()

	_, err := resolvePID(newPIDCmd(t, "--addr", addr), config.Default())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no --pid given")
}

func TestNewCommandsFromConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fanview.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
targets:
  - label: left
    keepalive:
      interval: 1m
      script: "ping()"
  - label: right
window:
  width: 800
  height: 600
`), 0o600))
	cfg, err := config.Load(path)
	require.NoError(t, err)

	h := host.NewMemoryHost("left", "right", "main")
	cmds, err := newCommands(cfg, h, nil, nil, nil)
	require.NoError(t, err)
	require.NoError(t, cmds.Relayout(t.Context()))

	b, ok := h.Target("right").Bounds()
	require.True(t, ok)
	assert.Equal(t, types.Rect{X: 400, Y: 0, Width: 400, Height: 524}, b)
	assert.Equal(t, []string{"left", "right"}, cmds.Status().Labels)
}

func TestWatchLoopShowsFailuresAndStopsWhenHostExits(t *testing.T) {
	var calls atomic.Int32
	reader := process.ReaderFunc(func(context.Context) ([]types.ProcessRecord, error) {
		switch calls.Add(1) {
		case 1:
			return nil, errors.New("proc unavailable")
		case 2:
			return []types.ProcessRecord{{PID: 100, Name: "fanview", RSSBytes: 5 << 20}}, nil
		default:
			return []types.ProcessRecord{{PID: 1, Name: "init"}}, nil
		}
	})
	agg := proctree.NewAggregator(reader, proctree.NoStrategy{}, nil)

	var restored int
	var out bytes.Buffer
	err := watchLoop(t.Context(), &out, agg, 100, time.Millisecond, viewConfig{topK: 5}, func() { restored++ })

	require.ErrorIs(t, err, proctree.ErrHostNotFound)
	assert.Equal(t, 1, restored)
	assert.Equal(t, int32(3), calls.Load())
	assert.Contains(t, out.String(), "snapshot failed: ")
	assert.Contains(t, out.String(), "proc unavailable")
	assert.Contains(t, out.String(), "fanview (pid 100): 1 processes, 5.0 MB")
}

func TestWatchLoopEndsOnCancel(t *testing.T) {
	reader := process.ReaderFunc(func(context.Context) ([]types.ProcessRecord, error) {
		return []types.ProcessRecord{{PID: 100, Name: "fanview", RSSBytes: 1 << 20}}, nil
	})
	agg := proctree.NewAggregator(reader, proctree.NoStrategy{}, nil)

	ctx, cancel := context.WithTimeout(t.Context(), 20*time.Millisecond)
	defer cancel()
	var restored int
	err := watchLoop(ctx, &bytes.Buffer{}, agg, 100, time.Millisecond, viewConfig{topK: 5}, func() { restored++ })
	require.NoError(t, err)
	assert.Zero(t, restored)
}

func TestRenderFrameReplacesTableOnError(t *testing.T) {
	now := time.Date(2026, time.October, 17, 9, 0, 0, 0, time.UTC)

	var buf bytes.Buffer
	require.NoError(t, renderFrame(&buf, proctree.Group{}, errors.New("boom"), time.Second, viewConfig{}, now))
	assert.True(t, strings.HasPrefix(buf.String(), "\033[H\033[2J"))
	assert.Contains(t, buf.String(), "Updated: 2026-10-17T09:00:00Z | Interval: 1s")
	assert.Contains(t, buf.String(), "snapshot failed: boom (retrying in 1s)")
	assert.NotContains(t, buf.String(), "PID")
}
