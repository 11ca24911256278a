// Package challenge wires the challenge admin command.
package challenge

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"strings"

	entrypoint "github.com/louisbranch/wager.space/internal/platform/cmd"
	apperrors "github.com/louisbranch/wager.space/internal/platform/errors"
	"github.com/louisbranch/wager.space/internal/platform/errors/i18n"
	"github.com/louisbranch/wager.space/internal/platform/logging"
	"github.com/louisbranch/wager.space/internal/platform/metrics"
	"github.com/louisbranch/wager.space/internal/services/challenge/app"
	"github.com/louisbranch/wager.space/internal/services/challenge/storage/integrity"
	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var errUsage = errors.New("usage: challenge [flags] <create|accept|complete|finish|extend|pause|flush|contribute|show|list|events|wallet|verify> [args]")

// Config holds challenge command configuration.
type Config struct {
	App     app.Env
	Keyring integrity.EnvConfig
	Log     logging.Config
	Locale  string `env:"WAGER_SPACE_LOCALE" envDefault:"en-US"`
	// As is the caller address used for commands.
	As        string `env:"WAGER_SPACE_CALLER"`
	RequestID string
	// Metrics prints the collected command metrics after the subcommand.
	Metrics bool
	Args    []string
}

// ParseConfig parses environment defaults and flags into a Config. The
// remaining arguments name the subcommand.
func ParseConfig(fs *flag.FlagSet, args []string) (Config, error) {
	var cfg Config
	if err := entrypoint.ParseConfig(&cfg); err != nil {
		return Config{}, err
	}

	fs.StringVar(&cfg.App.Storage, "storage", cfg.App.Storage, "storage backend (sqlite or memory)")
	fs.StringVar(&cfg.App.EventsDBPath, "events-db", cfg.App.EventsDBPath, "event journal database path")
	fs.StringVar(&cfg.App.ProjectionsDBPath, "projections-db", cfg.App.ProjectionsDBPath, "projection database path")
	fs.StringVar(&cfg.App.FlushRecipient, "flush-recipient", cfg.App.FlushRecipient, "flush recipient policy (owner or challenger)")
	fs.StringVar(&cfg.As, "as", cfg.As, "caller address")
	fs.StringVar(&cfg.RequestID, "request-id", cfg.RequestID, "idempotency key for the command")
	fs.StringVar(&cfg.Locale, "locale", cfg.Locale, "locale for messages and amounts")
	fs.BoolVar(&cfg.Metrics, "metrics", cfg.Metrics, "print command metrics")
	if err := entrypoint.ParseArgs(fs, args); err != nil {
		return Config{}, err
	}
	cfg.Args = fs.Args()
	return cfg, nil
}

// Run opens the challenge service and executes one subcommand.
func Run(ctx context.Context, cfg Config, out io.Writer, errOut io.Writer) error {
	if out == nil {
		out = io.Discard
	}
	if errOut == nil {
		errOut = io.Discard
	}
	if len(cfg.Args) == 0 {
		return errUsage
	}

	logger, err := logging.New(errOut, cfg.Log)
	if err != nil {
		return err
	}
	keyring, err := integrity.KeyringFromConfig(cfg.Keyring)
	if err != nil {
		return err
	}

	return entrypoint.RunWithTelemetry(ctx, entrypoint.ServiceChallenge, func(ctx context.Context) error {
		registry := prometheus.NewRegistry()
		service, err := app.Open(ctx, cfg.App, keyring, app.Config{
			Logger:  logging.Component(logger, entrypoint.ServiceChallenge),
			Metrics: metrics.NewChallengeCollector(registry),
		})
		if err != nil {
			return fmt.Errorf("open challenge service: %w", err)
		}
		defer func() {
			if err := service.Close(); err != nil {
				logger.Error().Err(err).Msg("close challenge service")
			}
		}()

		cli := &commandLine{
			service: service,
			out:     out,
			printer: message.NewPrinter(language.Make(cfg.Locale)),
			caller:  app.Caller{Address: cfg.As, RequestID: cfg.RequestID},
		}
		if err := cli.dispatch(ctx, cfg.Args); err != nil {
			return localize(err, cfg.Locale)
		}
		if cfg.Metrics {
			return writeMetrics(out, registry)
		}
		return nil
	})
}

// localize replaces a domain error with its catalog message, keeping the code.
func localize(err error, locale string) error {
	var domainErr *apperrors.Error
	if !errors.As(err, &domainErr) {
		return err
	}
	metadata := domainErr.Metadata
	if metadata == nil {
		metadata = map[string]string{}
	}
	text := i18n.GetCatalog(locale).Format(string(domainErr.Code), metadata)
	return fmt.Errorf("%s: %s: %w", domainErr.Code, text, err)
}

func writeMetrics(out io.Writer, registry *prometheus.Registry) error {
	families, err := registry.Gather()
	if err != nil {
		return fmt.Errorf("gather metrics: %w", err)
	}
	for _, family := range families {
		for _, metric := range family.GetMetric() {
			labels := make([]string, 0, len(metric.GetLabel()))
			for _, pair := range metric.GetLabel() {
				labels = append(labels, pair.GetName()+"="+pair.GetValue())
			}
			value := metric.GetCounter().GetValue()
			if gauge := metric.GetGauge(); gauge != nil {
				value = gauge.GetValue()
			}
			if histogram := metric.GetHistogram(); histogram != nil {
				value = float64(histogram.GetSampleCount())
			}
			if _, err := fmt.Fprintf(out, "%s{%s} %g\n", family.GetName(), strings.Join(labels, ","), value); err != nil {
				return err
			}
		}
	}
	return nil
}
