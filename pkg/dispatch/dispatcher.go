// Package dispatch fans one operation out to a set of rendering targets concurrently.
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/srodi/fanview/pkg/host"
	"github.com/srodi/fanview/pkg/metrics"
)

// TargetError is the single failure surfaced by a fan-out call.
type TargetError struct {
	Op    string
	Label string
	Err   error
}

func (e *TargetError) Error() string {
	return fmt.Sprintf("%s on %s: %v", e.Op, e.Label, e.Err)
}

func (e *TargetError) Unwrap() error { return e.Err }

// Dispatcher applies operations to the targets of one host.
type Dispatcher struct {
	host    host.Host
	metrics *metrics.Metrics
	logger  *slog.Logger
}

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithMetrics records every call to m.
func WithMetrics(m *metrics.Metrics) Option {
	return func(d *Dispatcher) {
		d.metrics = m
	}
}

// WithLogger configures the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(d *Dispatcher) {
		d.logger = logger
	}
}

// New returns a Dispatcher for h.
func New(h host.Host, opts ...Option) *Dispatcher {
	d := &Dispatcher{host: h}
	for _, opt := range opts {
		opt(d)
	}
	if d.logger == nil {
		d.logger = slog.New(slog.DiscardHandler)
	}
	return d
}

// Dispatch applies op to every label. See DispatchEach.
func (d *Dispatcher) Dispatch(ctx context.Context, name string, labels []string, op Operation) error {
	return d.DispatchEach(ctx, name, labels, func(string) Operation { return op })
}

// DispatchEach applies opFor(label) to every label concurrently, one goroutine per label.
// A label the host cannot find counts as success.
//
// Outcomes are inspected in label order and the first failure in that order is returned
// as a *TargetError. At that point the remaining applications are cancelled through
// their context and no longer awaited; targets already mutated are not rolled back.
// If ctx ends first, ctx.Err() is returned.
func (d *Dispatcher) DispatchEach(ctx context.Context, name string, labels []string, opFor func(label string) Operation) error {
	if len(labels) == 0 {
		return nil
	}
	callID := uuid.NewString()
	start := time.Now()
	logger := d.logger.With("op", name, "call", callID)

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	results := make([]chan error, len(labels))
	for i, label := range labels {
		ch := make(chan error, 1)
		results[i] = ch
		op := opFor(label)
		go func() {
			ch <- d.apply(runCtx, label, op, logger)
		}()
	}

	for i, ch := range results {
		select {
		case err := <-ch:
			if err == nil {
				continue
			}
			targetErr := &TargetError{Op: name, Label: labels[i], Err: err}
			logger.Warn("fan-out failed", "target", labels[i], "err", err, "abandoned", len(labels)-i-1)
			d.metrics.ObserveFanout(name, time.Since(start), labels[i], targetErr)
			return targetErr
		case <-ctx.Done():
			err := ctx.Err()
			logger.Warn("fan-out interrupted", "err", err)
			d.metrics.ObserveFanout(name, time.Since(start), "", err)
			return err
		}
	}

	logger.Debug("fan-out done", "targets", len(labels), "elapsed", time.Since(start))
	d.metrics.ObserveFanout(name, time.Since(start), "", nil)
	return nil
}

func (d *Dispatcher) apply(ctx context.Context, label string, op Operation, logger *slog.Logger) error {
	t, ok := d.host.Lookup(label)
	if !ok {
		logger.Debug("target absent, skipped", "target", label)
		return nil
	}
	err := op.Apply(ctx, t)
	if err != nil && errors.Is(err, context.Canceled) && ctx.Err() != nil {
		logger.Debug("target application cancelled", "target", label)
	}
	return err
}
