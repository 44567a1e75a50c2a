// Package engine exposes the dice engine's public surface: parse and
// evaluate a single expression, amortize parsing across a batch, and
// run fairness checks against the configured random source.
package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/louisbranch/dice-engine/internal/dice"
	"github.com/louisbranch/dice-engine/internal/fairness"
	"github.com/louisbranch/dice-engine/internal/platform/id"
	"github.com/louisbranch/dice-engine/internal/random"
)

const tracerName = "github.com/louisbranch/dice-engine/internal/engine"

// MaxBatchSize bounds a single RollBatch call.
const MaxBatchSize = 10000

// ErrMissingSource indicates an engine constructed without a random
// source.
var ErrMissingSource = errors.New("random source is not configured")

// ErrInvalidBatchSize indicates a batch size outside [1, MaxBatchSize].
var ErrInvalidBatchSize = errors.New("batch size out of range")

// Recorder receives each evaluated roll. Implementations own whatever
// history they keep; the engine holds no state across calls.
type Recorder interface {
	AppendRoll(ctx context.Context, result dice.RollResult) error
}

// Engine evaluates dice expressions against a random source.
type Engine struct {
	src      random.Source
	recorder Recorder
	clock    func() time.Time
	tracer   trace.Tracer
}

// Option configures an Engine.
type Option func(*Engine)

// WithRecorder wires a roll history collaborator. Recording failures
// fail the roll; history is part of the caller's contract when
// configured.
func WithRecorder(recorder Recorder) Option {
	return func(e *Engine) { e.recorder = recorder }
}

// WithClock overrides the timestamp source, for tests.
func WithClock(clock func() time.Time) Option {
	return func(e *Engine) { e.clock = clock }
}

// New creates an engine drawing from src.
func New(src random.Source, opts ...Option) *Engine {
	e := &Engine{
		src:    src,
		clock:  time.Now,
		tracer: otel.Tracer(tracerName),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Roll parses and evaluates a single expression.
func (e *Engine) Roll(ctx context.Context, expression string) (dice.RollResult, error) {
	if e == nil || e.src == nil {
		return dice.RollResult{}, ErrMissingSource
	}

	ctx, span := e.tracer.Start(ctx, "engine.Roll",
		trace.WithAttributes(attribute.String("dice.expression", expression)))
	defer span.End()

	node, err := dice.Parse(expression)
	if err != nil {
		span.SetStatus(codes.Error, "parse failed")
		span.RecordError(err)
		return dice.RollResult{}, err
	}

	result, err := e.evaluate(ctx, expression, node)
	if err != nil {
		span.SetStatus(codes.Error, "evaluate failed")
		span.RecordError(err)
		return dice.RollResult{}, err
	}
	span.SetAttributes(attribute.Int("dice.total", result.Total))
	return result, nil
}

// RollBatch parses expression once and evaluates it n times against
// the same source. The context is checked between rolls so callers can
// cancel long batches; a single roll is bounded and never blocks.
func (e *Engine) RollBatch(ctx context.Context, expression string, n int) ([]dice.RollResult, error) {
	if e == nil || e.src == nil {
		return nil, ErrMissingSource
	}

	ctx, span := e.tracer.Start(ctx, "engine.RollBatch",
		trace.WithAttributes(
			attribute.String("dice.expression", expression),
			attribute.Int("dice.batch_size", n),
		))
	defer span.End()
	if n < 1 || n > MaxBatchSize {
		return nil, fmt.Errorf("%w: %d not in [1, %d]", ErrInvalidBatchSize, n, MaxBatchSize)
	}

	node, err := dice.Parse(expression)
	if err != nil {
		span.SetStatus(codes.Error, "parse failed")
		span.RecordError(err)
		return nil, err
	}

	results := make([]dice.RollResult, 0, n)
	for i := 0; i < n; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		result, err := e.evaluate(ctx, expression, node)
		if err != nil {
			span.SetStatus(codes.Error, "evaluate failed")
			span.RecordError(err)
			return nil, fmt.Errorf("roll %d of %d: %w", i+1, n, err)
		}
		results = append(results, result)
	}
	return results, nil
}

// ValidateFairness samples the engine's source and runs the chi-square
// goodness-of-fit check. It consumes entropy from the same source the
// rolls use, so it exercises exactly the generator in production.
func (e *Engine) ValidateFairness(sides, sampleSize int) (fairness.Report, error) {
	if e == nil || e.src == nil {
		return fairness.Report{}, ErrMissingSource
	}
	return fairness.Validate(e.src, sides, sampleSize)
}

func (e *Engine) evaluate(ctx context.Context, expression string, node dice.Node) (dice.RollResult, error) {
	result, err := dice.Evaluate(node, e.src)
	if err != nil {
		return dice.RollResult{}, err
	}

	rollID, err := id.NewID()
	if err != nil {
		return dice.RollResult{}, fmt.Errorf("generate roll id: %w", err)
	}
	result.ID = rollID
	result.Expression = expression
	result.Timestamp = e.clock().UTC()

	if e.recorder != nil {
		if err := e.recorder.AppendRoll(ctx, result); err != nil {
			return dice.RollResult{}, fmt.Errorf("record roll: %w", err)
		}
	}
	return result, nil
}
