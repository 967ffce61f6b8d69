// Package proctree finds the processes that belong to the host and sums their memory.
package proctree

import "github.com/srodi/fanview/pkg/types"

// Descendants returns the pids of every process in snapshot whose parent chain reaches root.
// The walk stops at a process without a parent, at a parent missing from the snapshot,
// and at a cycle. root itself is not included.
func Descendants(snapshot []types.ProcessRecord, root int) map[int]struct{} {
	parent := make(map[int]int, len(snapshot))
	for _, p := range snapshot {
		parent[p.PID] = p.PPID
	}

	// verdict caches the outcome per pid so each chain is walked once.
	verdict := make(map[int]bool, len(snapshot))
	out := make(map[int]struct{})
	for _, p := range snapshot {
		if p.PID == root {
			continue
		}
		if reachesRoot(p.PID, root, parent, verdict) {
			out[p.PID] = struct{}{}
		}
	}
	return out
}

func reachesRoot(pid, root int, parent map[int]int, verdict map[int]bool) bool {
	var chain []int
	seen := make(map[int]bool)
	result := false

	current := pid
	for {
		if v, ok := verdict[current]; ok {
			result = v
			break
		}
		if seen[current] {
			break // loop protection
		}
		seen[current] = true
		chain = append(chain, current)

		ppid, ok := parent[current]
		if !ok || ppid == 0 || ppid == current {
			break
		}
		if ppid == root {
			result = true
			break
		}
		current = ppid
	}

	for _, c := range chain {
		verdict[c] = result
	}
	return result
}
