package types

import "time"

// DefaultTopK controls how many group members the memory report lists.
const DefaultTopK = 5

// UnknownUID marks a process whose owner could not be resolved.
const UnknownUID = -1

// ProcessRecord is one row of an OS process-table snapshot.
type ProcessRecord struct {
	PID       int
	PPID      int // 0 when the process has no parent
	StartTime time.Time
	UID       int
	RSSBytes  uint64
	Name      string
	Exe       string
	Cmdline   string
}

// HasUID reports whether the owner of the process is known.
func (p ProcessRecord) HasUID() bool {
	return p.UID != UnknownUID
}

// PhysicalSize is a window size in device pixels.
type PhysicalSize struct {
	Width  uint32 `json:"width"`
	Height uint32 `json:"height"`
}

// Rect is a position and size in logical units.
type Rect struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}
