package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/srodi/fanview/pkg/proctree"
	"github.com/srodi/fanview/pkg/ui"
)

const defaultInterval = 5 * time.Second

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Refresh the memory report of a fanview process in place",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logger, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		pid, err := resolvePID(cmd, cfg)
		if err != nil {
			return err
		}
		interval, _ := cmd.Flags().GetDuration("interval")
		if interval <= 0 {
			interval = defaultInterval
		}
		view, err := readViewFlags(cmd)
		if err != nil {
			return err
		}
		agg, err := newAggregator(cfg, logger)
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		out := cmd.OutOrStdout()
		restore := enableSingleView(out, logger)
		defer restore()

		return watchLoop(ctx, out, agg, pid, interval, view, restore)
	},
}

func init() {
	rootCmd.AddCommand(watchCmd)
	addPIDFlags(watchCmd)
	watchCmd.Flags().Duration("interval", defaultInterval, "refresh interval (e.g. 3s, 1m)")
	addViewFlags(watchCmd)
}

// watchLoop redraws until ctx ends or the host process disappears. The terminal
// is restored before an error is returned so the message lands on the main buffer.
func watchLoop(ctx context.Context, w io.Writer, agg *proctree.Aggregator, pid int, interval time.Duration, view viewConfig, restore func()) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		g, err := agg.TotalMemory(ctx, pid)
		if errors.Is(err, proctree.ErrHostNotFound) {
			restore()
			return fmt.Errorf("watching pid %d: %w", pid, err)
		}
		if ctx.Err() != nil {
			return nil
		}
		if werr := renderFrame(w, g, err, interval, view, time.Now()); werr != nil {
			restore()
			return werr
		}
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

// renderFrame writes one full screen in a single write. A failed snapshot
// replaces the table instead of leaving the previous one on screen.
func renderFrame(w io.Writer, g proctree.Group, snapErr error, interval time.Duration, view viewConfig, now time.Time) error {
	var buf bytes.Buffer
	buf.WriteString("\033[H\033[2J")
	buf.WriteString(ui.Banner())
	fmt.Fprintf(&buf, "fanview watch (press Ctrl+C to exit)\n")
	fmt.Fprintf(&buf, "Updated: %s | Interval: %v\n\n", now.Format(time.RFC3339), interval)
	if snapErr != nil {
		fmt.Fprintf(&buf, "snapshot failed: %v (retrying in %v)\n", snapErr, interval)
	} else if err := writeMemory(&buf, g, view, "text"); err != nil {
		return err
	}
	_, err := w.Write(buf.Bytes())
	return err
}

// enableSingleView switches a terminal to the alternate buffer with the cursor
// hidden and echo off. The returned func undoes it and is safe to call twice.
func enableSingleView(w io.Writer, logger *slog.Logger) func() {
	stdoutFD := int(os.Stdout.Fd())
	stdinFD := int(os.Stdin.Fd())
	if !term.IsTerminal(stdoutFD) {
		return func() {}
	}

	fmt.Fprint(w, "\033[?1049h") // switch to alternate buffer
	fmt.Fprint(w, "\033[?25l")   // hide cursor

	var undoEcho func()
	if term.IsTerminal(stdinFD) {
		undo, err := disableInputEcho(stdinFD)
		if err != nil {
			logger.Warn("unable to suppress stdin echo", "err", err)
		}
		undoEcho = undo
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			if undoEcho != nil {
				undoEcho()
			}
			fmt.Fprint(w, "\033[?25h")   // show cursor
			fmt.Fprint(w, "\033[?1049l") // restore main buffer
		})
	}
}
