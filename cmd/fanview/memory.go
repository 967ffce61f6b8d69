package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/srodi/fanview/pkg/proctree"
	"github.com/srodi/fanview/pkg/report"
	"github.com/srodi/fanview/pkg/types"
	"github.com/srodi/fanview/pkg/ui"
)

var memoryCmd = &cobra.Command{
	Use:   "memory",
	Short: "Report the memory used by a fanview process and its renderers",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logger, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		pid, err := resolvePID(cmd, cfg)
		if err != nil {
			return err
		}
		output, _ := cmd.Flags().GetString("output")
		view, err := readViewFlags(cmd)
		if err != nil {
			return err
		}

		agg, err := newAggregator(cfg, logger)
		if err != nil {
			return err
		}
		g, err := agg.TotalMemory(cmd.Context(), pid)
		if err != nil {
			return err
		}
		return writeMemory(cmd.OutOrStdout(), g, view, output)
	},
}

func init() {
	rootCmd.AddCommand(memoryCmd)
	addPIDFlags(memoryCmd)
	memoryCmd.Flags().StringP("output", "o", "text", "output format: text, json or yaml")
	addViewFlags(memoryCmd)
}

// viewConfig controls how member tables are trimmed.
type viewConfig struct {
	topK   int
	filter report.FilterConfig
}

func addViewFlags(cmd *cobra.Command) {
	cmd.Flags().Int("topk", types.DefaultTopK, "number of processes to list (0 lists all)")
	cmd.Flags().Float64("min-mb", 0, "hide processes below this resident size")
	cmd.Flags().String("name-filter", "", "only list processes whose name contains this substring (case-insensitive)")
	cmd.Flags().StringSlice("reason", nil, "only list processes counted for these reasons (host, descendant, name, data-dir, renderer)")
}

func readViewFlags(cmd *cobra.Command) (viewConfig, error) {
	topK, _ := cmd.Flags().GetInt("topk")
	minMB, _ := cmd.Flags().GetFloat64("min-mb")
	nameFilter, _ := cmd.Flags().GetString("name-filter")
	reasons, _ := cmd.Flags().GetStringSlice("reason")

	v := viewConfig{topK: topK, filter: report.FilterConfig{MinMB: minMB, NameFilter: strings.TrimSpace(nameFilter)}}
	if v.topK < 0 {
		return viewConfig{}, fmt.Errorf("--topk must not be negative")
	}
	for _, r := range reasons {
		reason := proctree.Reason(strings.ToLower(strings.TrimSpace(r)))
		switch reason {
		case proctree.ReasonHost, proctree.ReasonDescendant, proctree.ReasonName, proctree.ReasonDataDir, proctree.ReasonRenderer:
			v.filter.Reasons = append(v.filter.Reasons, reason)
		default:
			return viewConfig{}, fmt.Errorf("unknown reason %q", r)
		}
	}
	return v, nil
}

type memoryReport struct {
	Megabytes float64              `json:"megabytes" yaml:"megabytes"`
	HostPID   int                  `json:"host_pid" yaml:"host_pid"`
	Processes int                  `json:"processes" yaml:"processes"`
	Members   []report.MemberRow   `json:"members" yaml:"members"`
	Reasons   []report.ReasonTotal `json:"reasons" yaml:"reasons"`
}

func writeMemory(w io.Writer, g proctree.Group, view viewConfig, output string) error {
	rows, _ := report.BuildMemberRows(g)
	visible := report.TopRows(report.FilterRows(rows, view.filter), view.topK)

	switch strings.ToLower(output) {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(memoryReport{Megabytes: g.MB(), HostPID: g.Host.PID, Processes: len(g.Members), Members: visible, Reasons: report.ReasonTotals(rows)})
	case "yaml":
		enc := yaml.NewEncoder(w)
		defer enc.Close()
		return enc.Encode(memoryReport{Megabytes: g.MB(), HostPID: g.Host.PID, Processes: len(g.Members), Members: visible, Reasons: report.ReasonTotals(rows)})
	case "text", "":
		fmt.Fprintln(w, ui.StatusLine(report.Summary(g), report.SelectFocusCandidate(rows)))
		fmt.Fprintln(w, ui.ReasonBreakdown(report.ReasonTotals(rows)))
		fmt.Fprintln(w)
		fmt.Fprint(w, ui.MemberTable(visible))
		return nil
	default:
		return fmt.Errorf("unknown output format %q", output)
	}
}
