// Package sqlite provides a SQLite-backed roll history and telemetry
// store.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/louisbranch/dice-engine/internal/dice"
	sqlitemigrate "github.com/louisbranch/dice-engine/internal/platform/storage/sqlitemigrate"
	"github.com/louisbranch/dice-engine/internal/storage"
	"github.com/louisbranch/dice-engine/internal/storage/sqlite/migrations"
	_ "modernc.org/sqlite"
)

const timeFormat = time.RFC3339Nano

// Store provides a SQLite-backed store implementing storage.RollStore
// and storage.TelemetryStore.
type Store struct {
	sqlDB *sql.DB
}

// Open opens a SQLite store at the provided path.
func Open(path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}

	cleanPath := filepath.Clean(path)
	dsn := cleanPath + "?_journal_mode=WAL&_foreign_keys=ON&_busy_timeout=5000&_synchronous=NORMAL"
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	if err := sqlDB.Ping(); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}

	store := &Store{sqlDB: sqlDB}
	if err := sqlitemigrate.ApplyMigrations(sqlDB, migrations.FS, ""); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return store, nil
}

// Close closes the underlying SQLite database.
func (s *Store) Close() error {
	if s == nil || s.sqlDB == nil {
		return nil
	}
	return s.sqlDB.Close()
}

// AppendRoll persists a roll result. The per-term breakdown is stored
// as JSON so callers can re-render the roll without the engine.
func (s *Store) AppendRoll(ctx context.Context, result dice.RollResult) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}
	if strings.TrimSpace(result.ID) == "" {
		return fmt.Errorf("roll id is required")
	}

	terms, err := json.Marshal(result.Terms)
	if err != nil {
		return fmt.Errorf("encode roll terms: %w", err)
	}

	timestamp := result.Timestamp
	if timestamp.IsZero() {
		timestamp = time.Now().UTC()
	}

	_, err = s.sqlDB.ExecContext(ctx,
		"INSERT INTO rolls (id, expression, total, terms, created_at) VALUES (?, ?, ?, ?, ?)",
		result.ID,
		result.Expression,
		result.Total,
		string(terms),
		timestamp.UTC().Format(timeFormat),
	)
	if err != nil {
		return fmt.Errorf("insert roll: %w", err)
	}
	return nil
}

// GetRoll loads a roll result by id. Missing records return
// storage.ErrNotFound.
func (s *Store) GetRoll(ctx context.Context, id string) (dice.RollResult, error) {
	if err := ctx.Err(); err != nil {
		return dice.RollResult{}, err
	}
	if s == nil || s.sqlDB == nil {
		return dice.RollResult{}, fmt.Errorf("storage is not configured")
	}
	if strings.TrimSpace(id) == "" {
		return dice.RollResult{}, fmt.Errorf("roll id is required")
	}

	row := s.sqlDB.QueryRowContext(ctx,
		"SELECT id, expression, total, terms, created_at FROM rolls WHERE id = ?", id)
	result, err := scanRoll(row.Scan)
	if err == sql.ErrNoRows {
		return dice.RollResult{}, storage.ErrNotFound
	}
	if err != nil {
		return dice.RollResult{}, fmt.Errorf("load roll: %w", err)
	}
	return result, nil
}

// ListRecentRolls returns up to limit rolls, newest first.
func (s *Store) ListRecentRolls(ctx context.Context, limit int) ([]dice.RollResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s == nil || s.sqlDB == nil {
		return nil, fmt.Errorf("storage is not configured")
	}
	if limit < 1 {
		return nil, fmt.Errorf("limit must be positive")
	}

	rows, err := s.sqlDB.QueryContext(ctx,
		"SELECT id, expression, total, terms, created_at FROM rolls ORDER BY created_at DESC, id DESC LIMIT ?", limit)
	if err != nil {
		return nil, fmt.Errorf("list rolls: %w", err)
	}
	defer rows.Close()

	var results []dice.RollResult
	for rows.Next() {
		result, err := scanRoll(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("scan roll: %w", err)
		}
		results = append(results, result)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rolls: %w", err)
	}
	return results, nil
}

// AppendTelemetryEvent persists an operational telemetry event.
func (s *Store) AppendTelemetryEvent(ctx context.Context, event storage.TelemetryEvent) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}

	timestamp := event.Timestamp
	if timestamp.IsZero() {
		timestamp = time.Now().UTC()
	}

	_, err := s.sqlDB.ExecContext(ctx,
		"INSERT INTO telemetry_events (created_at, component, severity, message) VALUES (?, ?, ?, ?)",
		timestamp.UTC().Format(timeFormat),
		event.Component,
		event.Severity,
		event.Message,
	)
	if err != nil {
		return fmt.Errorf("insert telemetry event: %w", err)
	}
	return nil
}

func scanRoll(scan func(dest ...any) error) (dice.RollResult, error) {
	var (
		result    dice.RollResult
		termsJSON string
		createdAt string
	)
	if err := scan(&result.ID, &result.Expression, &result.Total, &termsJSON, &createdAt); err != nil {
		return dice.RollResult{}, err
	}
	if err := json.Unmarshal([]byte(termsJSON), &result.Terms); err != nil {
		return dice.RollResult{}, fmt.Errorf("decode roll terms: %w", err)
	}
	timestamp, err := time.Parse(timeFormat, createdAt)
	if err != nil {
		return dice.RollResult{}, fmt.Errorf("parse roll timestamp: %w", err)
	}
	result.Timestamp = timestamp
	return result, nil
}
