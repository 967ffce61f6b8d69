package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"

	"github.com/srodi/fanview/pkg/config"
	"github.com/srodi/fanview/pkg/host"
	"github.com/srodi/fanview/pkg/metrics"
	"github.com/srodi/fanview/pkg/server"
	"github.com/srodi/fanview/pkg/types"
)

const shutdownTimeout = 5 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Open the panels and serve the control API",
	Long: `Launches Chromium with one window per configured target plus the control strip,
lays them out, and serves the JSON control API and the control-strip page.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logger, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		if addr, _ := cmd.Flags().GetString("addr"); addr != "" {
			cfg.Server.Addr = addr
		}
		if cmd.Flags().Changed("headless") {
			cfg.Browser.Headless, _ = cmd.Flags().GetBool("headless")
		}
		dryRun, _ := cmd.Flags().GetBool("dry-run")

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		return serve(ctx, cfg, dryRun, logger)
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().String("addr", "", "listen address (overrides server.addr)")
	serveCmd.Flags().Bool("headless", false, "run Chromium without visible windows")
	serveCmd.Flags().Bool("dry-run", false, "record commands in memory instead of launching a browser")
}

func serve(ctx context.Context, cfg config.Config, dryRun bool, logger *slog.Logger) error {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	// Listen before the browser starts so the control strip page is reachable on first load.
	ln, err := net.Listen("tcp", cfg.Server.Addr)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", cfg.Server.Addr, err)
	}
	defer ln.Close()

	h, closeHost, err := openHost(ctx, cfg, ln.Addr().String(), dryRun, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := closeHost(); err != nil {
			logger.Warn("closing host", "err", err)
		}
	}()

	agg, err := newAggregator(cfg, logger)
	if err != nil {
		logger.Warn("memory queries disabled", "err", err)
	}
	cmds, err := newCommands(cfg, h, agg, m, logger)
	if err != nil {
		return err
	}
	if err := cmds.Relayout(ctx); err != nil {
		logger.Warn("initial layout failed", "err", err)
	}
	go cmds.RunKeepalive(ctx)

	srv := &http.Server{
		Handler:           server.NewHandler(cmds, server.WithLogger(logger), server.WithGatherer(reg), server.WithTopK(types.DefaultTopK)),
		ReadHeaderTimeout: 5 * time.Second,
	}
	serverErrors := make(chan error, 1)
	go func() {
		logger.Info("control API listening", "addr", ln.Addr().String(), "targets", cfg.Labels(), "dry_run", dryRun)
		serverErrors <- srv.Serve(ln)
	}()

	select {
	case err := <-serverErrors:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("server error: %w", err)
	case <-ctx.Done():
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Warn("graceful shutdown did not complete", "timeout", shutdownTimeout, "err", err)
			return srv.Close()
		}
		return nil
	}
}

// openHost returns the rendering host and its close function.
func openHost(ctx context.Context, cfg config.Config, listenAddr string, dryRun bool, logger *slog.Logger) (host.Host, func() error, error) {
	pages := make([]host.PageSpec, 0, len(cfg.Targets)+1)
	for _, t := range cfg.Targets {
		pages = append(pages, host.PageSpec{Label: t.Label, URL: t.URL})
	}
	stripURL := cfg.ControlStrip.URL
	if stripURL == "" {
		stripURL = "http://" + listenAddr + "/"
	}
	pages = append(pages, host.PageSpec{Label: cfg.ControlStrip.Label, URL: stripURL})

	if dryRun {
		labels := make([]string, len(pages))
		for i, p := range pages {
			labels[i] = p.Label
		}
		return host.NewMemoryHost(labels...), func() error { return nil }, nil
	}

	bh, err := host.LaunchBrowser(ctx, host.BrowserOptions{
		Bin:         cfg.Browser.Bin,
		Headless:    cfg.Browser.Headless,
		UserDataDir: cfg.Browser.UserDataDir,
		UserAgent:   cfg.Browser.UserAgent,
		OriginX:     cfg.Window.Left,
		OriginY:     cfg.Window.Top,
	}, pages, logger)
	if err != nil {
		return nil, nil, err
	}
	logger.Info("browser started", "pid", bh.BrowserPID())
	return bh, bh.Close, nil
}
