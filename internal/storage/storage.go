// Package storage defines the persistence interfaces the engine's
// collaborators implement. The engine itself never owns roll history;
// it hands immutable results to whatever store the caller wires in.
package storage

import (
	"context"
	"errors"
	"time"

	"github.com/louisbranch/dice-engine/internal/dice"
)

// ErrNotFound indicates a requested record is missing.
var ErrNotFound = errors.New("record not found")

// RollStore persists evaluated roll results.
type RollStore interface {
	AppendRoll(ctx context.Context, result dice.RollResult) error
	GetRoll(ctx context.Context, id string) (dice.RollResult, error)
	ListRecentRolls(ctx context.Context, limit int) ([]dice.RollResult, error)
}

// TelemetryEvent records an operational observation, such as a
// fairness health-check verdict.
type TelemetryEvent struct {
	Timestamp time.Time
	Component string
	Severity  string
	Message   string
}

// TelemetryStore persists operational telemetry events.
type TelemetryStore interface {
	AppendTelemetryEvent(ctx context.Context, event TelemetryEvent) error
}
