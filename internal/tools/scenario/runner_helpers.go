package scenario

import (
	"sort"
	"strings"

	apperrors "github.com/louisbranch/wager.space/internal/platform/errors"
	"github.com/louisbranch/wager.space/internal/services/challenge/app"
	"github.com/louisbranch/wager.space/internal/services/challenge/domain/challenge"
	"github.com/louisbranch/wager.space/internal/services/challenge/domain/event"
)

const defaultChallengeName = "main"

func (r *Runner) failf(format string, args ...any) error {
	return r.assertions.Failf(format, args...)
}

func (r *Runner) assertf(format string, args ...any) error {
	return r.assertions.Assertf(format, args...)
}

// checkOutcome compares a command error with the step's expect_error code.
// handled is true when the step has nothing left to do.
func (r *Runner) checkOutcome(step Step, err error) (bool, error) {
	want := strings.ToUpper(optionalString(step.Args, "expect_error", ""))
	if want == "" {
		if err != nil {
			return true, r.failf("%s: %v", step.Kind, err)
		}
		return false, nil
	}
	if err == nil {
		return true, r.assertf("%s succeeded, want %s", step.Kind, want)
	}
	if got := apperrors.CodeOf(err); string(got) != want {
		return true, r.assertf("%s error = %s (%v), want %s", step.Kind, got, err, want)
	}
	return true, nil
}

// challengeID resolves the step's challenge: the named one, or the last created.
func (r *Runner) challengeID(state *scenarioState, step Step) (string, error) {
	name := optionalString(step.Args, "challenge", "")
	if name == "" {
		if state.current == "" {
			return "", r.failf("no challenge declared before %s", step.Kind)
		}
		return state.current, nil
	}
	id, ok := state.challenges[name]
	if !ok {
		return "", r.failf("unknown challenge %q", name)
	}
	return id, nil
}

// caller resolves the acting address from the step's "as" argument. A step
// with a request_id reuses it verbatim so scripts can exercise retries.
func (r *Runner) caller(step Step, defaultActor string) app.Caller {
	return app.Caller{
		Address:   actorAddress(optionalString(step.Args, "as", defaultActor)),
		RequestID: optionalString(step.Args, "request_id", ""),
	}
}

// actorAddress maps a scenario actor name to an identity address.
func actorAddress(name string) string {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" || strings.HasPrefix(name, "0x") {
		return name
	}
	return "0x" + name
}

func eventName(t event.Type) string {
	return challenge.EventName(t)
}

func sortedKeys(args map[string]any) []string {
	keys := make([]string, 0, len(args))
	for key := range args {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

func requiredString(args map[string]any, key string) string {
	value, ok := args[key]
	if !ok {
		return ""
	}
	text, ok := value.(string)
	if ok && text != "" {
		return text
	}
	return ""
}

func readInt(args map[string]any, key string) (int, bool) {
	value, ok := args[key]
	if !ok {
		return 0, false
	}
	switch typed := value.(type) {
	case int:
		return typed, true
	case float64:
		return int(typed), true
	default:
		return 0, false
	}
}

func optionalString(args map[string]any, key, fallback string) string {
	value, ok := args[key]
	if !ok {
		return fallback
	}
	text, ok := value.(string)
	if ok && text != "" {
		return text
	}
	return fallback
}

func optionalInt(args map[string]any, key string, fallback int) int {
	value, ok := readInt(args, key)
	if !ok {
		return fallback
	}
	return value
}

func readBool(args map[string]any, key string) (bool, bool) {
	value, ok := args[key]
	if !ok {
		return false, false
	}
	switch typed := value.(type) {
	case bool:
		return typed, true
	case string:
		lower := strings.ToLower(strings.TrimSpace(typed))
		switch lower {
		case "true", "yes", "1":
			return true, true
		case "false", "no", "0":
			return false, true
		}
	}
	return false, false
}

func readStringSlice(args map[string]any, key string) []string {
	value, ok := args[key]
	if !ok {
		return nil
	}
	items, ok := value.([]any)
	if !ok {
		if text, ok := value.(string); ok && text != "" {
			return []string{text}
		}
		return nil
	}
	out := make([]string, 0, len(items))
	for _, item := range items {
		if text, ok := item.(string); ok && text != "" {
			out = append(out, text)
		}
	}
	return out
}
