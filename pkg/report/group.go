// Package report turns a process group into rows for the CLI and the HTTP API.
package report

import (
	"fmt"
	"sort"
	"strings"

	"github.com/srodi/fanview/pkg/collector/process"
	"github.com/srodi/fanview/pkg/proctree"
)

// totalMemoryBytes allows tests to stub the /proc/meminfo lookup.
var totalMemoryBytes = process.TotalMemoryBytes

const bytesPerMB = 1024 * 1024

const (
	DiagnosisOK       = "OK"
	DiagnosisDominant = "Dominant"
	DiagnosisHeavy    = "Heavy"
	DiagnosisOOMRisk  = "OOM risk"
)

// MemberRow condenses one group member for display.
type MemberRow struct {
	PID        int             `json:"pid"`
	PPID       int             `json:"ppid"`
	Name       string          `json:"name"`
	Reason     proctree.Reason `json:"reason"`
	RSSMB      float64         `json:"rss_mb"`
	GroupShare float64         `json:"group_share"`
	RAMShare   float64         `json:"ram_share"`
	Diagnosis  string          `json:"diagnosis"`
}

// FilterConfig controls which members appear in tables.
type FilterConfig struct {
	Reasons    []proctree.Reason // empty keeps every reason
	NameFilter string
	MinMB      float64
}

// BuildMemberRows converts g into rows in the group's order and returns both a
// slice for rendering and an index by pid.
func BuildMemberRows(g proctree.Group) ([]MemberRow, map[int]MemberRow) {
	// RAM share stays zero where meminfo is unavailable.
	totalMem, err := totalMemoryBytes()
	if err != nil {
		totalMem = 0
	}

	rows := make([]MemberRow, 0, len(g.Members))
	index := make(map[int]MemberRow, len(g.Members))
	for _, m := range g.Members {
		row := MemberRow{
			PID:    m.PID,
			PPID:   m.PPID,
			Name:   m.Name,
			Reason: m.Reason,
			RSSMB:  float64(m.RSSBytes) / bytesPerMB,
		}
		if g.TotalBytes > 0 {
			row.GroupShare = float64(m.RSSBytes) / float64(g.TotalBytes)
		}
		if totalMem > 0 {
			row.RAMShare = float64(m.RSSBytes) / float64(totalMem)
		}
		row.Diagnosis = classifyMember(&row, len(g.Members))
		rows = append(rows, row)
		index[row.PID] = row
	}
	return rows, index
}

// FilterRows applies cfg before ranking.
func FilterRows(rows []MemberRow, cfg FilterConfig) []MemberRow {
	filtered := make([]MemberRow, 0, len(rows))
	for _, row := range rows {
		if passesFilters(row, cfg) {
			filtered = append(filtered, row)
		}
	}
	return filtered
}

// TopRows returns the largest rows by RSS up to topK. topK <= 0 keeps them all.
func TopRows(rows []MemberRow, topK int) []MemberRow {
	candidates := make([]MemberRow, 0, len(rows))
	for _, row := range rows {
		if row.RSSMB == 0 {
			continue
		}
		candidates = append(candidates, row)
	}
	sort.SliceStable(candidates, func(i, j int) bool { return candidates[i].RSSMB > candidates[j].RSSMB })
	if topK > 0 && len(candidates) > topK {
		candidates = candidates[:topK]
	}
	return candidates
}

// ReasonTotal is the memory attributed to one membership reason.
type ReasonTotal struct {
	Reason  proctree.Reason `json:"reason"`
	Members int             `json:"members"`
	MB      float64         `json:"mb"`
}

// ReasonTotals sums rows per reason, largest first.
func ReasonTotals(rows []MemberRow) []ReasonTotal {
	byReason := make(map[proctree.Reason]*ReasonTotal)
	for _, row := range rows {
		t, ok := byReason[row.Reason]
		if !ok {
			t = &ReasonTotal{Reason: row.Reason}
			byReason[row.Reason] = t
		}
		t.Members++
		t.MB += row.RSSMB
	}
	out := make([]ReasonTotal, 0, len(byReason))
	for _, t := range byReason {
		out = append(out, *t)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].MB == out[j].MB {
			return out[i].Reason < out[j].Reason
		}
		return out[i].MB > out[j].MB
	})
	return out
}

// SelectFocusCandidate picks the member most worth pointing out, or nil.
func SelectFocusCandidate(rows []MemberRow) *MemberRow {
	if len(rows) == 0 {
		return nil
	}
	var best *MemberRow
	bestScore := -1.0
	for _, row := range rows {
		score := float64(diagnosisSeverity(row.Diagnosis))*1000 + row.RSSMB
		if best == nil || score > bestScore {
			c := row
			best = &c
			bestScore = score
		}
	}
	return best
}

// FocusSummary returns a short explanation string for the status line.
func FocusSummary(row MemberRow) string {
	switch row.Diagnosis {
	case DiagnosisOOMRisk:
		return fmt.Sprintf("%s holds %.1f%% of RAM (%.1f GB)", row.Name, row.RAMShare*100, row.RSSMB/1024)
	case DiagnosisHeavy:
		return fmt.Sprintf("%s uses %.1f GB RSS", row.Name, row.RSSMB/1024)
	case DiagnosisDominant:
		return fmt.Sprintf("%s is %.0f%% of the group (%.1f MB)", row.Name, row.GroupShare*100, row.RSSMB)
	default:
		return fmt.Sprintf("largest: %s %.1f MB", row.Name, row.RSSMB)
	}
}

// Summary is the one-line description of a group.
func Summary(g proctree.Group) string {
	return fmt.Sprintf("%s (pid %d): %d processes, %.1f MB", g.Host.Name, g.Host.PID, len(g.Members), g.MB())
}

func classifyMember(row *MemberRow, members int) string {
	if row.RAMShare > 0.3 {
		return DiagnosisOOMRisk
	}
	if row.RSSMB > 1000 {
		return DiagnosisHeavy
	}
	if members > 1 && row.GroupShare > 0.5 {
		return DiagnosisDominant
	}
	return DiagnosisOK
}

func passesFilters(row MemberRow, cfg FilterConfig) bool {
	if row.RSSMB < cfg.MinMB {
		return false
	}
	if cfg.NameFilter != "" && !strings.Contains(strings.ToLower(row.Name), strings.ToLower(cfg.NameFilter)) {
		return false
	}
	if len(cfg.Reasons) == 0 {
		return true
	}
	for _, r := range cfg.Reasons {
		if r == row.Reason {
			return true
		}
	}
	return false
}

func diagnosisSeverity(label string) int {
	switch label {
	case DiagnosisOOMRisk:
		return 3
	case DiagnosisHeavy:
		return 2
	case DiagnosisDominant:
		return 1
	default:
		return 0
	}
}
