// Package ui renders fanview's terminal output.
package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/srodi/fanview/pkg/report"
)

var (
	titleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("229")).
			Background(lipgloss.Color("57")).
			Bold(true).
			Padding(0, 1)
	headerStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("57")).Bold(true)
	dimStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	warnStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("208")).Bold(true)
)

// StatusLine renders the group summary followed by the focus note, highlighted
// when the focus row carries a non-OK diagnosis.
func StatusLine(summary string, focus *report.MemberRow) string {
	line := titleStyle.Render(summary)
	if focus == nil {
		return line
	}
	note := report.FocusSummary(*focus)
	if focus.Diagnosis != report.DiagnosisOK {
		return line + " " + warnStyle.Render(focus.Diagnosis+": "+note)
	}
	return line + " " + dimStyle.Render(note)
}

// MemberTable renders rows as a fixed-width table.
func MemberTable(rows []report.MemberRow) string {
	var b strings.Builder
	b.WriteString(headerStyle.Render(fmt.Sprintf("%-8s %-8s %-28s %-11s %10s %7s %7s", "PID", "PPID", "NAME", "REASON", "RSS MB", "GROUP", "RAM")))
	b.WriteString("\n")
	if len(rows) == 0 {
		b.WriteString(dimStyle.Render("(no processes)"))
		b.WriteString("\n")
		return b.String()
	}
	for _, row := range rows {
		line := fmt.Sprintf("%-8d %-8d %-28s %-11s %10.1f %6.1f%% %6.2f%%",
			row.PID, row.PPID, truncate(row.Name, 28), row.Reason, row.RSSMB, row.GroupShare*100, row.RAMShare*100)
		if row.Diagnosis != report.DiagnosisOK {
			line = warnStyle.Render(line)
		}
		b.WriteString(line)
		b.WriteString("\n")
	}
	return b.String()
}

// ReasonBreakdown renders one line per membership reason.
func ReasonBreakdown(totals []report.ReasonTotal) string {
	parts := make([]string, 0, len(totals))
	for _, t := range totals {
		parts = append(parts, fmt.Sprintf("%s %d/%.1f MB", t.Reason, t.Members, t.MB))
	}
	return dimStyle.Render(strings.Join(parts, "  ·  "))
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
