package main

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/srodi/fanview/pkg/collector/process"
	"github.com/srodi/fanview/pkg/commands"
	"github.com/srodi/fanview/pkg/config"
	"github.com/srodi/fanview/pkg/host"
	"github.com/srodi/fanview/pkg/logging"
	"github.com/srodi/fanview/pkg/metrics"
	"github.com/srodi/fanview/pkg/proctree"
	"github.com/srodi/fanview/pkg/scripts"
	"github.com/srodi/fanview/pkg/state"
	"github.com/srodi/fanview/pkg/types"
)

// loadConfig reads --config and applies the persistent flag overrides.
func loadConfig(cmd *cobra.Command) (config.Config, *slog.Logger, error) {
	path, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(path)
	if err != nil {
		return config.Config{}, nil, err
	}
	if lvl, _ := cmd.Flags().GetString("log-level"); lvl != "" {
		cfg.Log.Level = lvl
	}
	level, err := logging.ParseLevel(cfg.Log.Level)
	if err != nil {
		return config.Config{}, nil, err
	}
	return cfg, logging.New(level, cfg.Log.Format), nil
}

// newAggregator builds the memory aggregator for this platform.
func newAggregator(cfg config.Config, logger *slog.Logger) (*proctree.Aggregator, error) {
	collector, err := process.NewCollector()
	if err != nil {
		return nil, fmt.Errorf("initializing process collector: %w", err)
	}
	var strategy proctree.Strategy = proctree.NoStrategy{}
	if cfg.Process.Heuristics {
		dataDir := cfg.Process.DataDir
		if dataDir == "" {
			dataDir = cfg.Browser.UserDataDir
		}
		strategy = proctree.PlatformStrategy(proctree.Heuristics{
			AppPatterns:   cfg.Process.AppPatterns,
			DataDir:       dataDir,
			RendererNames: cfg.Process.RendererNames,
		})
	}
	return proctree.NewAggregator(collector, strategy, logger), nil
}

// newCommands wires the command layer on top of h.
func newCommands(cfg config.Config, h host.Host, agg *proctree.Aggregator, m *metrics.Metrics, logger *slog.Logger) (*commands.Commands, error) {
	var keepalives []commands.Keepalive
	for _, t := range cfg.Targets {
		if t.Keepalive == nil {
			continue
		}
		keepalives = append(keepalives, commands.Keepalive{
			Label:    t.Label,
			Interval: t.Keepalive.Interval,
			Script:   t.Keepalive.Script,
		})
	}
	st := state.New(state.Window{
		Size:  types.PhysicalSize{Width: cfg.Window.Width, Height: cfg.Window.Height},
		Scale: cfg.Window.Scale,
	})
	return commands.New(commands.Config{
		Host:       h,
		State:      st,
		Scripts:    scripts.NewProvider(cfg.Adapters()),
		Aggregator: agg,
		Labels:     cfg.Labels(),
		StripLabel: cfg.ControlStrip.Label,
		FocusDelay: cfg.Dispatch.FocusDelay,
		Keepalives: keepalives,
	}, commands.WithLogger(logger), commands.WithMetrics(m))
}
