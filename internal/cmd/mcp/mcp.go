// Package mcp parses MCP command flags and serves the engine over
// stdio.
package mcp

import (
	"context"
	"flag"
	"fmt"
	"log"
	"strconv"
	"time"

	"github.com/louisbranch/dice-engine/internal/engine"
	"github.com/louisbranch/dice-engine/internal/health"
	mcpserver "github.com/louisbranch/dice-engine/internal/mcp"
	entrypoint "github.com/louisbranch/dice-engine/internal/platform/cmd"
	"github.com/louisbranch/dice-engine/internal/random"
	"github.com/louisbranch/dice-engine/internal/storage/sqlite"
	"github.com/louisbranch/dice-engine/internal/telemetry"
)

// Config holds MCP command configuration.
type Config struct {
	Seed        string `env:"DICE_ENGINE_SEED"`
	HistoryPath string `env:"DICE_ENGINE_HISTORY_PATH"`
	// FairnessInterval enables the periodic fairness check when
	// positive. Verdicts land in the history store's telemetry table.
	FairnessInterval time.Duration `env:"DICE_ENGINE_FAIRNESS_INTERVAL"`
}

// ParseConfig parses environment and flags into a Config.
func ParseConfig(fs *flag.FlagSet, args []string) (Config, error) {
	var cfg Config
	if err := entrypoint.ParseConfig(&cfg); err != nil {
		return Config{}, err
	}

	fs.StringVar(&cfg.Seed, "seed", cfg.Seed, "seed for deterministic rolls (empty uses crypto entropy)")
	fs.StringVar(&cfg.HistoryPath, "history", cfg.HistoryPath, "SQLite path for roll history (empty disables history)")
	fs.DurationVar(&cfg.FairnessInterval, "fairness-interval", cfg.FairnessInterval, "interval between fairness checks (0 disables them)")
	if err := entrypoint.ParseArgs(fs, args); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Run starts the MCP server on stdio.
func Run(ctx context.Context, cfg Config) error {
	return entrypoint.RunWithTelemetry(ctx, entrypoint.ServiceMCP, func(ctx context.Context) error {
		src, err := newSource(cfg.Seed)
		if err != nil {
			return err
		}

		var opts []engine.Option
		var store *sqlite.Store
		if cfg.HistoryPath != "" {
			store, err = sqlite.Open(cfg.HistoryPath)
			if err != nil {
				return fmt.Errorf("open roll history: %w", err)
			}
			defer store.Close()
			opts = append(opts, engine.WithRecorder(store))
		}

		if cfg.FairnessInterval > 0 && store != nil {
			// The checker samples its own secure source so periodic
			// draws never perturb a seeded roll sequence.
			checker := health.New(random.Secure(), telemetry.NewEmitter(store),
				health.WithInterval(cfg.FairnessInterval))
			go func() {
				if err := checker.Run(ctx); err != nil {
					log.Printf("fairness checker stopped: %v", err)
				}
			}()
		}

		server, err := mcpserver.NewServer(engine.New(src, opts...))
		if err != nil {
			return err
		}
		return server.Serve(ctx)
	})
}

func newSource(seed string) (random.Source, error) {
	if seed == "" {
		return random.Secure(), nil
	}
	value, err := strconv.ParseUint(seed, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("parse seed %q: %w", seed, err)
	}
	return random.NewSeeded(value), nil
}
