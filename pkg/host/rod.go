package host

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sync"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"

	"github.com/srodi/fanview/pkg/types"
)

// PageSpec describes one page the browser host opens at startup.
type PageSpec struct {
	Label string
	URL   string
}

// BrowserOptions configures the Chromium instance behind a BrowserHost.
type BrowserOptions struct {
	Bin         string
	Headless    bool
	UserDataDir string
	UserAgent   string
	// Origin offsets every placement so the panels land inside the logical window.
	OriginX int
	OriginY int
}

// BrowserHost drives one Chromium page per target through the DevTools protocol.
type BrowserHost struct {
	opts     BrowserOptions
	launcher *launcher.Launcher
	browser  *rod.Browser
	logger   *slog.Logger

	mu    sync.RWMutex
	pages map[string]*pageTarget
}

// LaunchBrowser starts Chromium and opens the requested pages in order.
func LaunchBrowser(ctx context.Context, opts BrowserOptions, pages []PageSpec, logger *slog.Logger) (*BrowserHost, error) {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	l := launcher.New().Context(ctx).Headless(opts.Headless).Leakless(false)
	if opts.Bin != "" {
		l = l.Bin(opts.Bin)
	}
	if opts.UserDataDir != "" {
		l = l.UserDataDir(opts.UserDataDir)
	}
	controlURL, err := l.Launch()
	if err != nil {
		return nil, fmt.Errorf("launching browser: %w", err)
	}

	browser := rod.New().ControlURL(controlURL)
	if err := browser.Connect(); err != nil {
		l.Kill()
		return nil, fmt.Errorf("connecting to browser: %w", err)
	}

	h := &BrowserHost{
		opts:     opts,
		launcher: l,
		browser:  browser,
		logger:   logger,
		pages:    make(map[string]*pageTarget, len(pages)),
	}
	for _, spec := range pages {
		if err := h.Open(spec); err != nil {
			return nil, errors.Join(err, h.Close())
		}
	}
	return h, nil
}

// Open creates a page for spec, replacing any page already registered under its label.
func (h *BrowserHost) Open(spec PageSpec) error {
	page, err := h.browser.Page(proto.TargetCreateTarget{URL: spec.URL, NewWindow: true})
	if err != nil {
		return fmt.Errorf("opening %s: %w", spec.Label, err)
	}
	if h.opts.UserAgent != "" {
		if err := page.SetUserAgent(&proto.NetworkSetUserAgentOverride{UserAgent: h.opts.UserAgent}); err != nil {
			h.logger.Warn("user agent override failed", "target", spec.Label, "err", err)
		}
	}
	h.mu.Lock()
	h.pages[spec.Label] = &pageTarget{label: spec.Label, page: page, host: h}
	h.mu.Unlock()
	h.logger.Debug("page opened", "target", spec.Label, "url", spec.URL)
	return nil
}

// Lookup implements Host. A page whose DevTools target is gone is forgotten.
func (h *BrowserHost) Lookup(label string) (Target, bool) {
	h.mu.RLock()
	t, ok := h.pages[label]
	h.mu.RUnlock()
	if !ok {
		return nil, false
	}
	if _, err := (proto.TargetGetTargetInfo{TargetID: t.page.TargetID}).Call(h.browser); err != nil {
		h.mu.Lock()
		if h.pages[label] == t {
			delete(h.pages, label)
		}
		h.mu.Unlock()
		h.logger.Debug("page gone", "target", label, "err", err)
		return nil, false
	}
	return t, true
}

// BrowserPID returns the pid of the Chromium process, 0 if unknown.
func (h *BrowserHost) BrowserPID() int {
	return h.launcher.PID()
}

// Close shuts the browser down and removes its temporary profile.
func (h *BrowserHost) Close() error {
	err := h.browser.Close()
	h.launcher.Kill()
	if h.opts.UserDataDir == "" {
		h.launcher.Cleanup()
	}
	return err
}

type pageTarget struct {
	label string
	page  *rod.Page
	host  *BrowserHost
}

func (t *pageTarget) Label() string { return t.label }

func (t *pageTarget) Eval(ctx context.Context, script string) error {
	_, err := t.page.Context(ctx).Eval("() => {\n" + script + "\n}")
	return err
}

func (t *pageTarget) SetZoom(ctx context.Context, factor float64) error {
	return proto.EmulationSetPageScaleFactor{PageScaleFactor: factor}.Call(t.page.Context(ctx))
}

func (t *pageTarget) SetBounds(ctx context.Context, bounds types.Rect) error {
	left := t.host.opts.OriginX + int(math.Floor(bounds.X))
	top := t.host.opts.OriginY + int(math.Floor(bounds.Y))
	width := int(math.Floor(bounds.Width))
	height := int(math.Floor(bounds.Height))
	return t.page.Context(ctx).SetWindow(&proto.BrowserBounds{
		Left:        &left,
		Top:         &top,
		Width:       &width,
		Height:      &height,
		WindowState: proto.BrowserWindowStateNormal,
	})
}
