package engine

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/louisbranch/dice-engine/internal/dice"
	"github.com/louisbranch/dice-engine/internal/random"
)

type recorderFunc func(ctx context.Context, result dice.RollResult) error

func (f recorderFunc) AppendRoll(ctx context.Context, result dice.RollResult) error {
	return f(ctx, result)
}

func TestRollProducesAuditableResult(t *testing.T) {
	now := time.Date(2026, 8, 27, 12, 0, 0, 0, time.UTC)
	eng := New(random.NewSeeded(42), WithClock(func() time.Time { return now }))

	result, err := eng.Roll(context.Background(), "4d6dl1+2")
	if err != nil {
		t.Fatalf("roll: %v", err)
	}
	if result.ID == "" {
		t.Fatal("expected a roll id")
	}
	if result.Expression != "4d6dl1+2" {
		t.Fatalf("expected the submitted expression, got %q", result.Expression)
	}
	if !result.Timestamp.Equal(now) {
		t.Fatalf("expected timestamp %v, got %v", now, result.Timestamp)
	}
	if len(result.Terms) != 2 {
		t.Fatalf("expected 2 terms, got %d", len(result.Terms))
	}
	if len(result.Terms[0].Dice) != 4 {
		t.Fatalf("expected 4 dice, got %d", len(result.Terms[0].Dice))
	}
}

func TestRollIsDeterministicPerSeed(t *testing.T) {
	ctx := context.Background()
	a, err := New(random.NewSeeded(7)).Roll(ctx, "10d20")
	if err != nil {
		t.Fatalf("roll: %v", err)
	}
	b, err := New(random.NewSeeded(7)).Roll(ctx, "10d20")
	if err != nil {
		t.Fatalf("roll: %v", err)
	}

	if a.Total != b.Total {
		t.Fatalf("expected identical totals, got %d and %d", a.Total, b.Total)
	}
	for i := range a.Terms[0].Dice {
		if a.Terms[0].Dice[i].Value != b.Terms[0].Dice[i].Value {
			t.Fatalf("die %d: expected identical draws", i)
		}
	}
	if a.ID == b.ID {
		t.Fatal("expected distinct roll ids")
	}
}

func TestRollErrors(t *testing.T) {
	eng := New(random.NewSeeded(1))
	ctx := context.Background()

	if _, err := eng.Roll(ctx, "4d"); err == nil {
		t.Fatal("expected parse error")
	}
	var parseErr *dice.ParseError
	_, err := eng.Roll(ctx, "4d6kh1kl1")
	if !errors.As(err, &parseErr) {
		t.Fatalf("expected ParseError, got %T: %v", err, err)
	}

	var divErr *dice.DivisionByZeroError
	_, err = eng.Roll(ctx, "1d6/0")
	if !errors.As(err, &divErr) {
		t.Fatalf("expected DivisionByZeroError, got %T: %v", err, err)
	}
}

func TestRollWithoutSource(t *testing.T) {
	eng := New(nil)
	if _, err := eng.Roll(context.Background(), "1d6"); !errors.Is(err, ErrMissingSource) {
		t.Fatalf("expected ErrMissingSource, got %v", err)
	}
	if _, err := eng.RollBatch(context.Background(), "1d6", 3); !errors.Is(err, ErrMissingSource) {
		t.Fatalf("expected ErrMissingSource, got %v", err)
	}
	if _, err := eng.ValidateFairness(6, 600); !errors.Is(err, ErrMissingSource) {
		t.Fatalf("expected ErrMissingSource, got %v", err)
	}
}

func TestRollRecordsHistory(t *testing.T) {
	var recorded []dice.RollResult
	eng := New(random.NewSeeded(3), WithRecorder(recorderFunc(func(_ context.Context, result dice.RollResult) error {
		recorded = append(recorded, result)
		return nil
	})))

	result, err := eng.Roll(context.Background(), "2d8")
	if err != nil {
		t.Fatalf("roll: %v", err)
	}
	if len(recorded) != 1 {
		t.Fatalf("expected 1 recorded roll, got %d", len(recorded))
	}
	if recorded[0].ID != result.ID {
		t.Fatalf("expected recorded id %q, got %q", result.ID, recorded[0].ID)
	}
}

func TestRollFailsWhenRecordingFails(t *testing.T) {
	cause := errors.New("disk full")
	eng := New(random.NewSeeded(3), WithRecorder(recorderFunc(func(context.Context, dice.RollResult) error {
		return cause
	})))

	if _, err := eng.Roll(context.Background(), "1d6"); !errors.Is(err, cause) {
		t.Fatalf("expected recording failure to surface, got %v", err)
	}
}

func TestRollBatch(t *testing.T) {
	eng := New(random.NewSeeded(11))
	results, err := eng.RollBatch(context.Background(), "4d6dl1", 50)
	if err != nil {
		t.Fatalf("batch: %v", err)
	}
	if len(results) != 50 {
		t.Fatalf("expected 50 results, got %d", len(results))
	}

	ids := make(map[string]bool, len(results))
	for i, result := range results {
		if result.Total < 2 || result.Total > 18 {
			t.Fatalf("roll %d: total %d outside [2, 18]", i, result.Total)
		}
		if ids[result.ID] {
			t.Fatalf("roll %d: duplicate id %q", i, result.ID)
		}
		ids[result.ID] = true
	}
}

func TestRollBatchSizeLimits(t *testing.T) {
	eng := New(random.NewSeeded(1))
	ctx := context.Background()

	for _, n := range []int{0, -1, MaxBatchSize + 1} {
		if _, err := eng.RollBatch(ctx, "1d6", n); !errors.Is(err, ErrInvalidBatchSize) {
			t.Fatalf("expected ErrInvalidBatchSize for %d, got %v", n, err)
		}
	}
	if _, err := eng.RollBatch(ctx, "1d6", 1); err != nil {
		t.Fatalf("expected batch of 1 to succeed, got %v", err)
	}
}

func TestRollBatchParsesOnce(t *testing.T) {
	// A parse error must surface before any dice are drawn.
	eng := New(random.NewSeeded(1))
	if _, err := eng.RollBatch(context.Background(), "4d6kh1kl1", 10); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestRollBatchHonorsCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	eng := New(random.NewSeeded(1))
	if _, err := eng.RollBatch(ctx, "1d6", 100); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestValidateFairnessUsesEngineSource(t *testing.T) {
	eng := New(random.NewSeeded(20260827))
	report, err := eng.ValidateFairness(6, 600)
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if report.Sides != 6 || report.SampleSize != 600 {
		t.Fatalf("report does not echo its inputs: %+v", report)
	}
}

func TestNilEngine(t *testing.T) {
	var eng *Engine
	if _, err := eng.Roll(context.Background(), "1d6"); !errors.Is(err, ErrMissingSource) {
		t.Fatalf("expected ErrMissingSource, got %v", err)
	}
}
