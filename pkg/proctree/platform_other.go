//go:build !linux && !darwin

package proctree

// PlatformStrategy returns NoStrategy; only OS descendants are counted here.
func PlatformStrategy(Heuristics) Strategy {
	return NoStrategy{}
}
