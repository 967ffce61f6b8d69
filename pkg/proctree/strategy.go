package proctree

import (
	"path/filepath"
	"strings"

	"github.com/srodi/fanview/pkg/types"
)

// Reason says why a process was counted in a group.
type Reason string

const (
	ReasonHost       Reason = "host"
	ReasonDescendant Reason = "descendant"
	ReasonName       Reason = "name"
	ReasonDataDir    Reason = "data-dir"
	ReasonRenderer   Reason = "renderer"
)

// Strategy finds processes related to the host that are not its OS descendants,
// such as renderers owned by a shared system service.
type Strategy interface {
	Supplement(host types.ProcessRecord, snapshot []types.ProcessRecord) map[int]Reason
}

// Heuristics configures the platform strategies.
type Heuristics struct {
	// AppPatterns match process names case-insensitively by substring.
	AppPatterns []string
	// DataDir is the per-application data directory renderers are tied to.
	DataDir string
	// RendererNames are exact process names of renderer processes. Matches are bounded
	// to processes started no earlier than the host and owned by the same user.
	RendererNames []string
}

func (h Heuristics) matchName(p types.ProcessRecord) bool {
	name := strings.ToLower(p.Name)
	for _, pattern := range h.AppPatterns {
		pattern = strings.ToLower(strings.TrimSpace(pattern))
		if pattern != "" && strings.Contains(name, pattern) {
			return true
		}
	}
	return false
}

func (h Heuristics) matchDataDir(p types.ProcessRecord) bool {
	if h.DataDir == "" {
		return false
	}
	dir := filepath.Clean(h.DataDir)
	if p.Exe != "" && strings.HasPrefix(filepath.Clean(p.Exe), dir+string(filepath.Separator)) {
		return true
	}
	return p.Cmdline != "" && strings.Contains(p.Cmdline, dir)
}

func (h Heuristics) matchRenderer(host, p types.ProcessRecord) bool {
	if !host.HasUID() || !p.HasUID() || p.UID != host.UID {
		return false
	}
	if p.StartTime.Before(host.StartTime) {
		return false
	}
	for _, n := range h.RendererNames {
		if p.Name == n {
			return true
		}
	}
	return false
}

// WebKitStrategy covers darwin, where WebContent processes are spawned by launchd on behalf
// of the host and never show up as its children.
type WebKitStrategy struct {
	Heuristics
}

// DefaultWebKitRenderers are the XPC services WebKit starts for a web view.
var DefaultWebKitRenderers = []string{
	"com.apple.WebKit.WebContent",
	"com.apple.WebKit.Networking",
	"com.apple.WebKit.GPU",
}

func (s WebKitStrategy) Supplement(host types.ProcessRecord, snapshot []types.ProcessRecord) map[int]Reason {
	out := make(map[int]Reason)
	for _, p := range snapshot {
		if p.PID == host.PID {
			continue
		}
		switch {
		case s.matchName(p):
			out[p.PID] = ReasonName
		case s.matchDataDir(p):
			out[p.PID] = ReasonDataDir
		case s.matchRenderer(host, p):
			out[p.PID] = ReasonRenderer
		}
	}
	return out
}

// ChromiumStrategy covers linux. Chromium renderers are normally real descendants, so
// only the name and data-directory rules apply, plus renderer command lines bounded
// like WebKit renderers.
type ChromiumStrategy struct {
	Heuristics
}

// DefaultChromiumRenderers are the comm names of Chromium renderer processes (comm is cut at 15 bytes).
var DefaultChromiumRenderers = []string{"chrome", "chromium", "chromium-browse", "headless_shell"}

func (s ChromiumStrategy) Supplement(host types.ProcessRecord, snapshot []types.ProcessRecord) map[int]Reason {
	out := make(map[int]Reason)
	for _, p := range snapshot {
		if p.PID == host.PID {
			continue
		}
		switch {
		case s.matchName(p):
			out[p.PID] = ReasonName
		case s.matchDataDir(p):
			out[p.PID] = ReasonDataDir
		case strings.Contains(p.Cmdline, "--type=renderer") && s.matchRenderer(host, p):
			out[p.PID] = ReasonRenderer
		}
	}
	return out
}

// NoStrategy adds nothing; only OS descendants count.
type NoStrategy struct{}

func (NoStrategy) Supplement(types.ProcessRecord, []types.ProcessRecord) map[int]Reason {
	return nil
}
