// Package scenario wires the scenario runner command.
package scenario

import (
	"context"
	"errors"
	"flag"
	"io"
	"time"

	entrypoint "github.com/louisbranch/wager.space/internal/platform/cmd"
	"github.com/louisbranch/wager.space/internal/platform/logging"
	"github.com/louisbranch/wager.space/internal/tools/scenario"
)

// Config holds scenario command configuration.
type Config struct {
	Scenario       string        `env:"WAGER_SPACE_SCENARIO_FILE"`
	Assertions     bool          `env:"WAGER_SPACE_SCENARIO_ASSERT"      envDefault:"true"`
	Verbose        bool          `env:"WAGER_SPACE_SCENARIO_VERBOSE"`
	Timeout        time.Duration `env:"WAGER_SPACE_SCENARIO_TIMEOUT"     envDefault:"10s"`
	FlushRecipient string        `env:"WAGER_SPACE_FLUSH_RECIPIENT"      envDefault:"owner"`
	Log            logging.Config
}

// ParseConfig parses environment defaults and flags into a Config.
func ParseConfig(fs *flag.FlagSet, args []string) (Config, error) {
	var cfg Config
	if err := entrypoint.ParseConfig(&cfg); err != nil {
		return Config{}, err
	}

	fs.StringVar(&cfg.Scenario, "scenario", cfg.Scenario, "path to scenario lua file")
	fs.BoolVar(&cfg.Assertions, "assert", cfg.Assertions, "enable assertions (disable to log expectations)")
	fs.BoolVar(&cfg.Verbose, "verbose", cfg.Verbose, "enable verbose logging")
	fs.DurationVar(&cfg.Timeout, "timeout", cfg.Timeout, "timeout per step")
	fs.StringVar(&cfg.FlushRecipient, "flush-recipient", cfg.FlushRecipient, "flush recipient policy (owner or challenger)")
	if err := entrypoint.ParseArgs(fs, args); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Run executes the scenario command.
func Run(ctx context.Context, cfg Config, out io.Writer, errOut io.Writer) error {
	if out == nil {
		out = io.Discard
	}
	if errOut == nil {
		errOut = io.Discard
	}
	if cfg.Scenario == "" {
		return errors.New("scenario path is required")
	}

	mode := scenario.AssertionStrict
	if !cfg.Assertions {
		mode = scenario.AssertionLogOnly
	}

	logger, err := logging.New(errOut, cfg.Log)
	if err != nil {
		return err
	}
	return entrypoint.RunWithTelemetry(ctx, entrypoint.ServiceScenario, func(ctx context.Context) error {
		if err := scenario.RunFile(ctx, scenario.Config{
			Timeout:        cfg.Timeout,
			Assertions:     mode,
			Verbose:        cfg.Verbose,
			FlushRecipient: cfg.FlushRecipient,
			Logger:         &logger,
		}, cfg.Scenario); err != nil {
			return err
		}
		_, err := io.WriteString(out, "scenario passed: "+cfg.Scenario+"\n")
		return err
	})
}
