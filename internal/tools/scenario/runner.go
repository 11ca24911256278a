package scenario

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/louisbranch/wager.space/internal/platform/logging"
	"github.com/louisbranch/wager.space/internal/services/challenge/app"
	"github.com/louisbranch/wager.space/internal/services/challenge/storage/integrity"
	"github.com/rs/zerolog"
)

// scenarioStart is the clock origin of every run so deadlines are reproducible.
var scenarioStart = time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

// Config controls scenario execution.
type Config struct {
	Timeout    time.Duration
	Assertions AssertionMode
	Verbose    bool
	// FlushRecipient overrides the service flush policy.
	FlushRecipient string
	Logger         *zerolog.Logger
}

// DefaultConfig returns default runner configuration.
func DefaultConfig() Config {
	return Config{
		Timeout:    10 * time.Second,
		Assertions: AssertionStrict,
		Verbose:    false,
	}
}

// Runner executes Lua scenarios against an in-process challenge service.
type Runner struct {
	service    *app.Service
	clock      *manualClock
	assertions Assertions
	logger     zerolog.Logger
	verbose    bool
	timeout    time.Duration
}

// NewRunner opens a memory-backed service and prepares a scenario runner.
func NewRunner(ctx context.Context, cfg Config) (*Runner, error) {
	logger := runnerLogger(cfg)
	keyring, err := integrity.NewKeyring(map[string][]byte{"scenario": []byte("scenario-runner")}, "scenario")
	if err != nil {
		return nil, fmt.Errorf("scenario keyring: %w", err)
	}
	clock := &manualClock{now: scenarioStart}
	service, err := app.Open(ctx, app.Env{
		Storage:              app.StorageMemory,
		FlushRecipient:       cfg.FlushRecipient,
		IdempotencyCacheSize: 256,
	}, keyring, app.Config{
		Logger: logger.Level(zerolog.WarnLevel),
		Now:    clock.Now,
	})
	if err != nil {
		return nil, fmt.Errorf("open challenge service: %w", err)
	}
	return newRunnerWithDeps(cfg, runnerDeps{service: service, clock: clock})
}

// newRunnerWithDeps builds a Runner from pre-built dependencies.
// Config defaults (logger, timeout) are applied here so they are testable.
func newRunnerWithDeps(cfg Config, deps runnerDeps) (*Runner, error) {
	if deps.service == nil {
		return nil, errors.New("challenge service is required")
	}
	if deps.clock == nil {
		return nil, errors.New("scenario clock is required")
	}
	logger := runnerLogger(cfg)

	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 10 * time.Second
	}

	return &Runner{
		service:    deps.service,
		clock:      deps.clock,
		assertions: Assertions{Mode: cfg.Assertions, Logger: logger},
		logger:     logger,
		verbose:    cfg.Verbose,
		timeout:    timeout,
	}, nil
}

func runnerLogger(cfg Config) zerolog.Logger {
	if cfg.Logger != nil {
		return logging.Component(*cfg.Logger, "scenario")
	}
	return logging.Component(zerolog.New(os.Stderr).With().Timestamp().Logger(), "scenario")
}

// Close releases resources held by the runner.
func (r *Runner) Close() error {
	if r.service != nil {
		return r.service.Close()
	}
	return nil
}

// RunFile loads and executes a scenario file.
func RunFile(ctx context.Context, cfg Config, path string) error {
	scenario, err := LoadScenarioFromFile(path)
	if err != nil {
		return err
	}
	runner, err := NewRunner(ctx, cfg)
	if err != nil {
		return err
	}
	defer runner.Close()
	return runner.RunScenario(ctx, scenario)
}

// RunScenario executes the scenario steps in order.
func (r *Runner) RunScenario(ctx context.Context, scenario *Scenario) error {
	if scenario == nil {
		return errors.New("scenario is required")
	}
	r.logf("scenario start: %s (%d steps)", scenario.Name, len(scenario.Steps))
	state := &scenarioState{challenges: map[string]string{}}

	for index, step := range scenario.Steps {
		stepNumber := index + 1
		r.logf("step %d/%d start: %s", stepNumber, len(scenario.Steps), step.Kind)
		stepStart := time.Now()
		stepCtx, cancel := context.WithTimeout(ctx, r.timeout)
		err := r.runStep(stepCtx, state, step)
		cancel()
		if err != nil {
			return fmt.Errorf("step %d (%s): %w", stepNumber, step.Kind, err)
		}
		r.logf("step %d/%d done: %s (%s)", stepNumber, len(scenario.Steps), step.Kind, time.Since(stepStart))
	}
	r.logf("scenario done: %s", scenario.Name)
	return nil
}

func (r *Runner) logf(format string, args ...any) {
	if !r.verbose {
		return
	}
	r.logger.Info().Msgf(format, args...)
}
