//go:build darwin

package proctree

// PlatformStrategy returns the WebKit heuristics used on darwin.
func PlatformStrategy(h Heuristics) Strategy {
	if len(h.RendererNames) == 0 {
		h.RendererNames = DefaultWebKitRenderers
	}
	return WebKitStrategy{Heuristics: h}
}
