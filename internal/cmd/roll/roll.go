// Package roll parses roll command flags and evaluates dice
// expressions from the command line.
package roll

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"strconv"

	"github.com/louisbranch/dice-engine/internal/engine"
	entrypoint "github.com/louisbranch/dice-engine/internal/platform/cmd"
	"github.com/louisbranch/dice-engine/internal/random"
	"github.com/louisbranch/dice-engine/internal/storage/sqlite"
)

// Config holds roll command configuration.
type Config struct {
	Seed        string `env:"DICE_ENGINE_SEED"`
	HistoryPath string `env:"DICE_ENGINE_HISTORY_PATH"`
	Batch       int    `env:"DICE_ENGINE_BATCH" envDefault:"1"`

	expressions []string
}

// ParseConfig parses environment and flags into a Config. Remaining
// arguments are the expressions to roll.
func ParseConfig(fs *flag.FlagSet, args []string) (Config, error) {
	var cfg Config
	if err := entrypoint.ParseConfig(&cfg); err != nil {
		return Config{}, err
	}

	fs.StringVar(&cfg.Seed, "seed", cfg.Seed, "seed for deterministic rolls (empty uses crypto entropy)")
	fs.StringVar(&cfg.HistoryPath, "history", cfg.HistoryPath, "SQLite path for roll history (empty disables history)")
	fs.IntVar(&cfg.Batch, "n", cfg.Batch, "number of times to roll each expression")
	if err := entrypoint.ParseArgs(fs, args); err != nil {
		return Config{}, err
	}

	cfg.expressions = fs.Args()
	if len(cfg.expressions) == 0 {
		return Config{}, errors.New("at least one expression is required")
	}
	return cfg, nil
}

// Run evaluates the configured expressions and writes each result as
// JSON to out.
func Run(ctx context.Context, cfg Config, out io.Writer) error {
	return entrypoint.RunWithTelemetry(ctx, entrypoint.ServiceRoll, func(ctx context.Context) error {
		src, err := newSource(cfg.Seed)
		if err != nil {
			return err
		}

		var opts []engine.Option
		if cfg.HistoryPath != "" {
			store, err := sqlite.Open(cfg.HistoryPath)
			if err != nil {
				return fmt.Errorf("open roll history: %w", err)
			}
			defer store.Close()
			opts = append(opts, engine.WithRecorder(store))
		}
		eng := engine.New(src, opts...)

		encoder := json.NewEncoder(out)
		encoder.SetIndent("", "  ")
		for _, expression := range cfg.expressions {
			results, err := eng.RollBatch(ctx, expression, cfg.Batch)
			if err != nil {
				return fmt.Errorf("roll %q: %w", expression, err)
			}
			for _, result := range results {
				if err := encoder.Encode(result); err != nil {
					return fmt.Errorf("encode result: %w", err)
				}
			}
		}
		return nil
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
