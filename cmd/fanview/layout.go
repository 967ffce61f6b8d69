package main

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/srodi/fanview/pkg/layout"
	"github.com/srodi/fanview/pkg/state"
	"github.com/srodi/fanview/pkg/types"
)

var layoutCmd = &cobra.Command{
	Use:   "layout",
	Short: "Print the panel geometry for a window size without opening anything",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, _, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		size := types.PhysicalSize{Width: cfg.Window.Width, Height: cfg.Window.Height}
		if cmd.Flags().Changed("width") {
			size.Width, _ = cmd.Flags().GetUint32("width")
		}
		if cmd.Flags().Changed("height") {
			size.Height, _ = cmd.Flags().GetUint32("height")
		}
		scale := cfg.Window.Scale
		if cmd.Flags().Changed("scale") {
			scale, _ = cmd.Flags().GetFloat64("scale")
		}
		strip, _ := cmd.Flags().GetFloat64("strip-height")

		return writeLayout(cmd.OutOrStdout(), size, scale, state.ClampStripHeight(strip), cfg.Labels(), cfg.ControlStrip.Label)
	},
}

func init() {
	rootCmd.AddCommand(layoutCmd)
	layoutCmd.Flags().Uint32("width", 0, "window width in device pixels (overrides window.width)")
	layoutCmd.Flags().Uint32("height", 0, "window height in device pixels (overrides window.height)")
	layoutCmd.Flags().Float64("scale", 1, "display scale factor (overrides window.scale)")
	layoutCmd.Flags().Float64("strip-height", state.StripMinHeight, "control strip height in logical pixels")
}

func writeLayout(w io.Writer, size types.PhysicalSize, scale, strip float64, labels []string, stripLabel string) error {
	m, ok := layout.Compute(size, scale, strip, len(labels))
	if !ok {
		_, err := fmt.Fprintln(w, "no panels configured")
		return err
	}
	fmt.Fprintf(w, "logical %gx%g, panels %d x %g (last %g), available height %g, strip %g\n\n",
		m.Width, m.Height, m.PanelCount, m.PanelWidth, m.LastPanelWidth, m.AvailableHeight, m.StripHeight)

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "TARGET\tX\tY\tWIDTH\tHEIGHT")
	for _, p := range layout.Plan(m, labels, stripLabel) {
		fmt.Fprintf(tw, "%s\t%g\t%g\t%g\t%g\n", p.Label, p.Bounds.X, p.Bounds.Y, p.Bounds.Width, p.Bounds.Height)
	}
	return tw.Flush()
}
