// Package logging builds the zerolog loggers shared by wager.space binaries.
package logging

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Formats accepted by Config.Format.
const (
	FormatJSON    = "json"
	FormatConsole = "console"
)

// Config holds logger settings read from the environment.
type Config struct {
	Level  string `env:"WAGER_SPACE_LOG_LEVEL" envDefault:"info"`
	Format string `env:"WAGER_SPACE_LOG_FORMAT" envDefault:"json"`
}

// New returns a root logger writing to w.
func New(w io.Writer, cfg Config) (zerolog.Logger, error) {
	if w == nil {
		w = os.Stderr
	}
	level, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(cfg.Level)))
	if err != nil {
		return zerolog.Nop(), fmt.Errorf("parse log level %q: %w", cfg.Level, err)
	}
	if level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}

	switch strings.ToLower(strings.TrimSpace(cfg.Format)) {
	case "", FormatJSON:
	case FormatConsole:
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: time.RFC3339}
	default:
		return zerolog.Nop(), fmt.Errorf("unknown log format %q", cfg.Format)
	}

	return zerolog.New(w).Level(level).With().Timestamp().Logger(), nil
}

// Component derives a child logger tagged with the component name.
func Component(log zerolog.Logger, name string) zerolog.Logger {
	return log.With().Str("component", name).Logger()
}
