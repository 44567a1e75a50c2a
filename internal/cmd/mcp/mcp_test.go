package mcp

import (
	"context"
	"flag"
	"strings"
	"testing"
)

func TestParseConfigDefaults(t *testing.T) {
	fs := flag.NewFlagSet("mcp", flag.ContinueOnError)
	cfg, err := ParseConfig(fs, nil)
	if err != nil {
		t.Fatalf("parse config: %v", err)
	}
	if cfg.Seed != "" {
		t.Fatalf("expected empty default seed, got %q", cfg.Seed)
	}
	if cfg.HistoryPath != "" {
		t.Fatalf("expected empty default history path, got %q", cfg.HistoryPath)
	}
}

func TestParseConfigOverrides(t *testing.T) {
	t.Setenv("DICE_ENGINE_HISTORY_PATH", "env.db")

	fs := flag.NewFlagSet("mcp", flag.ContinueOnError)
	cfg, err := ParseConfig(fs, []string{"-seed", "42"})
	if err != nil {
		t.Fatalf("parse config: %v", err)
	}
	if cfg.Seed != "42" {
		t.Fatalf("expected flag seed, got %q", cfg.Seed)
	}
	if cfg.HistoryPath != "env.db" {
		t.Fatalf("expected env history path, got %q", cfg.HistoryPath)
	}
}

func TestRunRejectsBadSeed(t *testing.T) {
	err := Run(context.Background(), Config{Seed: "not-a-number"})
	if err == nil || !strings.Contains(err.Error(), "parse seed") {
		t.Fatalf("expected seed parse error, got %v", err)
	}
}
