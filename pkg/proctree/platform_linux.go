//go:build linux

package proctree

// PlatformStrategy returns the Chromium heuristics used on linux.
func PlatformStrategy(h Heuristics) Strategy {
	if len(h.RendererNames) == 0 {
		h.RendererNames = DefaultChromiumRenderers
	}
	return ChromiumStrategy{Heuristics: h}
}
