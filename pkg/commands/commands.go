// Package commands maps user-facing actions onto the dispatcher, the layout engine
// and the process aggregator. Both the HTTP server and the CLI call into it.
package commands

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/srodi/fanview/pkg/dispatch"
	"github.com/srodi/fanview/pkg/host"
	"github.com/srodi/fanview/pkg/layout"
	"github.com/srodi/fanview/pkg/metrics"
	"github.com/srodi/fanview/pkg/proctree"
	"github.com/srodi/fanview/pkg/scripts"
	"github.com/srodi/fanview/pkg/state"
	"github.com/srodi/fanview/pkg/types"
)

const (
	DefaultFocusDelay = 150 * time.Millisecond
	focusTimeout      = 5 * time.Second
)

// Keepalive re-evaluates Script in Label every Interval.
type Keepalive struct {
	Label    string
	Interval time.Duration
	Script   string
}

// Config holds the collaborators and fixed settings of a Commands.
type Config struct {
	Host       host.Host
	State      *state.State
	Scripts    *scripts.Provider
	Aggregator *proctree.Aggregator

	// Labels are the content panels in left-to-right order.
	Labels     []string
	StripLabel string
	FocusDelay time.Duration
	// HostPID is the root of the memory query; 0 means the current process.
	HostPID    int
	Keepalives []Keepalive
}

// Commands is safe for concurrent use.
type Commands struct {
	host       host.Host
	dispatcher *dispatch.Dispatcher
	state      *state.State
	scripts    *scripts.Provider
	aggregator *proctree.Aggregator
	metrics    *metrics.Metrics
	logger     *slog.Logger

	labels     []string
	stripLabel string
	focusDelay time.Duration
	hostPID    int
	keepalives []Keepalive
}

// Option configures Commands.
type Option func(*Commands)

func WithLogger(logger *slog.Logger) Option {
	return func(c *Commands) {
		c.logger = logger
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(c *Commands) {
		c.metrics = m
	}
}

// New builds Commands from cfg.
func New(cfg Config, opts ...Option) (*Commands, error) {
	if cfg.Host == nil {
		return nil, fmt.Errorf("commands: host is required")
	}
	c := &Commands{
		host:       cfg.Host,
		state:      cfg.State,
		scripts:    cfg.Scripts,
		aggregator: cfg.Aggregator,
		labels:     append([]string(nil), cfg.Labels...),
		stripLabel: cfg.StripLabel,
		focusDelay: cfg.FocusDelay,
		hostPID:    cfg.HostPID,
		keepalives: append([]Keepalive(nil), cfg.Keepalives...),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.logger == nil {
		c.logger = slog.New(slog.DiscardHandler)
	}
	if c.state == nil {
		c.state = state.New(state.Window{Scale: 1})
	}
	if c.scripts == nil {
		c.scripts = scripts.NewProvider(nil)
	}
	if c.focusDelay <= 0 {
		c.focusDelay = DefaultFocusDelay
	}
	if c.hostPID == 0 {
		c.hostPID = os.Getpid()
	}
	c.dispatcher = dispatch.New(c.host, dispatch.WithLogger(c.logger), dispatch.WithMetrics(c.metrics))
	c.metrics.SetZoom(c.state.ZoomPercent())
	c.metrics.SetStripHeight(c.state.StripHeight())
	return c, nil
}

// Labels returns the content panel labels.
func (c *Commands) Labels() []string {
	return append([]string(nil), c.labels...)
}

// StripLabel returns the control strip's label.
func (c *Commands) StripLabel() string {
	return c.stripLabel
}

// SendToAll types text into every panel and submits it. Blank text does nothing.
func (c *Commands) SendToAll(ctx context.Context, text string) error {
	if strings.TrimSpace(text) == "" {
		return nil
	}
	return c.dispatcher.DispatchEach(ctx, "send", c.labels, func(label string) dispatch.Operation {
		return dispatch.Eval(c.scripts.Send(label, text))
	})
}

// ReloadAll reloads every panel.
func (c *Commands) ReloadAll(ctx context.Context) error {
	return c.dispatcher.Dispatch(ctx, "reload", c.labels, dispatch.Eval(scripts.Reload))
}

// Reload reloads one target, panel or strip. An absent target is not an error.
func (c *Commands) Reload(ctx context.Context, label string) error {
	return c.dispatcher.Dispatch(ctx, "reload", []string{label}, dispatch.Eval(scripts.Reload))
}

// NewSessionAll opens a fresh conversation in every panel, then gives focus back to
// the control strip after the focus delay whatever the outcome.
func (c *Commands) NewSessionAll(ctx context.Context) error {
	c.scheduleFocus()
	return c.dispatcher.Dispatch(ctx, "new-session", c.labels, dispatch.Eval(scripts.NewSession))
}

func (c *Commands) scheduleFocus() {
	time.AfterFunc(c.focusDelay, func() {
		ctx, cancel := context.WithTimeout(context.Background(), focusTimeout)
		defer cancel()
		t, ok := c.host.Lookup(c.stripLabel)
		if !ok {
			c.logger.Debug("control strip absent, focus not restored", "target", c.stripLabel)
			return
		}
		if err := t.Eval(ctx, scripts.FocusInput); err != nil {
			c.logger.Warn("restoring focus failed", "target", c.stripLabel, "err", err)
		}
	})
}

// ClearCacheAll empties storage and caches in every panel.
func (c *Commands) ClearCacheAll(ctx context.Context) error {
	return c.dispatcher.Dispatch(ctx, "clear-cache", c.labels, dispatch.Eval(scripts.ClearCache))
}

// ZoomIn steps the shared zoom up and applies it. The new factor is returned even
// when applying it failed.
func (c *Commands) ZoomIn(ctx context.Context) (float64, error) {
	return c.applyZoom(ctx, c.state.StepZoom(state.ZoomStep))
}

// ZoomOut steps the shared zoom down and applies it.
func (c *Commands) ZoomOut(ctx context.Context) (float64, error) {
	return c.applyZoom(ctx, c.state.StepZoom(-state.ZoomStep))
}

// ZoomReset returns the shared zoom to 100% and applies it.
func (c *Commands) ZoomReset(ctx context.Context) (float64, error) {
	return c.applyZoom(ctx, c.state.ResetZoom())
}

func (c *Commands) applyZoom(ctx context.Context, percent int) (float64, error) {
	c.metrics.SetZoom(percent)
	factor := state.ZoomFactor(percent)
	return factor, c.dispatcher.Dispatch(ctx, "zoom", c.labels, dispatch.Zoom(factor))
}

// SetControlStripHeight stores the clamped height and lays the window out again.
func (c *Commands) SetControlStripHeight(ctx context.Context, height float64) (float64, error) {
	stored := c.state.SetStripHeight(height)
	c.metrics.SetStripHeight(stored)
	c.logger.Debug("control strip resized", "requested", height, "stored", stored)
	return stored, c.Relayout(ctx)
}

// Resize records a new window geometry and lays the window out again.
func (c *Commands) Resize(ctx context.Context, size types.PhysicalSize, scale float64) error {
	c.state.SetWindow(state.Window{Size: size, Scale: scale})
	return c.Relayout(ctx)
}

// Relayout assigns bounds to every panel and the strip from the current state.
func (c *Commands) Relayout(ctx context.Context) error {
	w := c.state.Window()
	if err := layout.Apply(ctx, c.host, w.Size, w.Scale, c.state.StripHeight(), c.labels, c.stripLabel); err != nil {
		c.logger.Warn("layout failed", "err", err)
		return err
	}
	return nil
}

// Memory measures the host process group.
func (c *Commands) Memory(ctx context.Context) (proctree.Group, error) {
	if c.aggregator == nil {
		return proctree.Group{}, fmt.Errorf("memory: no process aggregator configured")
	}
	g, err := c.aggregator.TotalMemory(ctx, c.hostPID)
	if err != nil {
		c.logger.Warn("memory query failed", "pid", c.hostPID, "err", err)
		return proctree.Group{}, err
	}
	c.metrics.SetGroup(g.TotalBytes, len(g.Members))
	return g, nil
}

// Status is a point-in-time view of the shared state.
type Status struct {
	ZoomPercent int                `json:"zoom_percent"`
	ZoomFactor  float64            `json:"zoom_factor"`
	StripHeight float64            `json:"control_strip_height"`
	Window      types.PhysicalSize `json:"window"`
	Scale       float64            `json:"scale"`
	Labels      []string           `json:"labels"`
	StripLabel  string             `json:"control_strip"`
	HostPID     int                `json:"host_pid"`
}

// Status returns the current shared state.
func (c *Commands) Status() Status {
	w := c.state.Window()
	zoom := c.state.ZoomPercent()
	return Status{
		ZoomPercent: zoom,
		ZoomFactor:  state.ZoomFactor(zoom),
		StripHeight: c.state.StripHeight(),
		Window:      w.Size,
		Scale:       w.Scale,
		Labels:      c.Labels(),
		StripLabel:  c.stripLabel,
		HostPID:     c.hostPID,
	}
}

// RunKeepalive re-evaluates each keepalive script on its interval until ctx ends.
// Failures are logged and the next tick tries again.
func (c *Commands) RunKeepalive(ctx context.Context) error {
	var wg sync.WaitGroup
	for _, k := range c.keepalives {
		if k.Interval <= 0 || strings.TrimSpace(k.Script) == "" {
			continue
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			c.keepalive(ctx, k)
		}()
	}
	wg.Wait()
	return nil
}

func (c *Commands) keepalive(ctx context.Context, k Keepalive) {
	ticker := time.NewTicker(k.Interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := c.dispatcher.Dispatch(ctx, "keepalive", []string{k.Label}, dispatch.Eval(k.Script)); err != nil && ctx.Err() == nil {
				c.logger.Warn("keepalive failed", "target", k.Label, "err", err)
			}
		}
	}
}
