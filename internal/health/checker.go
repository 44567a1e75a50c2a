// Package health runs periodic fairness checks against a random
// source, off the per-roll hot path, and records each verdict through
// the telemetry emitter.
package health

import (
	"context"
	"fmt"
	"time"

	"github.com/louisbranch/dice-engine/internal/fairness"
	"github.com/louisbranch/dice-engine/internal/random"
	"github.com/louisbranch/dice-engine/internal/storage"
	"github.com/louisbranch/dice-engine/internal/telemetry"
)

const component = "fairness-check"

// Defaults for the periodic check. A d20 at this volume keeps a single
// check under a second while giving the chi-square test enough mass
// per face.
const (
	DefaultSides      = 20
	DefaultSampleSize = 100000
	DefaultInterval   = time.Hour
)

// Checker samples a random source on an interval and emits a fairness
// verdict per run.
type Checker struct {
	src        random.Source
	emitter    *telemetry.Emitter
	sides      int
	sampleSize int
	interval   time.Duration
}

// Option configures a Checker.
type Option func(*Checker)

// WithShape overrides the die shape and sample volume.
func WithShape(sides, sampleSize int) Option {
	return func(c *Checker) {
		c.sides = sides
		c.sampleSize = sampleSize
	}
}

// WithInterval overrides the check cadence.
func WithInterval(interval time.Duration) Option {
	return func(c *Checker) { c.interval = interval }
}

// New creates a checker for src that records verdicts through emitter.
func New(src random.Source, emitter *telemetry.Emitter, opts ...Option) *Checker {
	c := &Checker{
		src:        src,
		emitter:    emitter,
		sides:      DefaultSides,
		sampleSize: DefaultSampleSize,
		interval:   DefaultInterval,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Check runs a single fairness validation and emits its verdict.
func (c *Checker) Check(ctx context.Context) (fairness.Report, error) {
	report, err := fairness.Validate(c.src, c.sides, c.sampleSize)
	if err != nil {
		emitErr := c.emitter.Emit(ctx, storage.TelemetryEvent{
			Component: component,
			Severity:  string(telemetry.SeverityError),
			Message:   fmt.Sprintf("fairness check failed: %v", err),
		})
		if emitErr != nil {
			return fairness.Report{}, fmt.Errorf("emit failure event: %w", emitErr)
		}
		return fairness.Report{}, err
	}

	severity := telemetry.SeverityInfo
	if !report.Passed {
		// A fair source fails about alpha of the time, so one failing
		// run is a warning, not an error.
		severity = telemetry.SeverityWarn
	}
	if err := c.emitter.Emit(ctx, storage.TelemetryEvent{
		Component: component,
		Severity:  string(severity),
		Message: fmt.Sprintf("d%d chi-square %.2f over %d draws, p=%.4f, passed=%t",
			report.Sides, report.ChiSquare, report.SampleSize, report.PValue, report.Passed),
	}); err != nil {
		return fairness.Report{}, fmt.Errorf("emit fairness event: %w", err)
	}
	return report, nil
}

// Run checks on the configured interval until the context is
// cancelled. It returns nil on cancellation; the ticker loop stopping
// is the expected shutdown path.
func (c *Checker) Run(ctx context.Context) error {
	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if _, err := c.Check(ctx); err != nil {
				return err
			}
		}
	}
}
