package scenario

import (
	"fmt"

	"github.com/rs/zerolog"
)

// AssertionMode decides whether a failed expectation stops the run.
type AssertionMode int

const (
	// AssertionStrict fails the step on the first unmet expectation.
	AssertionStrict AssertionMode = iota
	// AssertionLogOnly logs unmet expectations and keeps going.
	AssertionLogOnly
)

// Assertions reports unmet expectations according to Mode.
type Assertions struct {
	Mode   AssertionMode
	Logger zerolog.Logger
}

// Failf always returns an error; it is for broken steps, not expectations.
func (a Assertions) Failf(format string, args ...any) error {
	return fmt.Errorf(format, args...)
}

// Assertf reports an unmet expectation.
func (a Assertions) Assertf(format string, args ...any) error {
	message := fmt.Sprintf(format, args...)
	if a.Mode == AssertionLogOnly {
		a.Logger.Warn().Msg("expectation: " + message)
		return nil
	}
	return fmt.Errorf("expectation failed: %s", message)
}
