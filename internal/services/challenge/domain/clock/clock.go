// Package clock derives challenge expiration from wall-clock time.
//
// Nothing here is scheduled: callers pass "now" on every evaluation.
package clock

import (
	"errors"
	"fmt"
	"time"
)

// MaxDays bounds a single duration so deadlines stay far from time.Time overflow.
const MaxDays = 36500

// ErrInvalidDuration indicates a negative component, an out of range value or
// a zero total.
var ErrInvalidDuration = errors.New("duration must be positive")

// Duration is the days/hours/minutes triple used at creation and extension.
type Duration struct {
	Days    int `json:"days"`
	Hours   int `json:"hours"`
	Minutes int `json:"minutes"`
}

// maxMinutes is MaxDays expressed in minutes.
const maxMinutes = MaxDays * 24 * 60

// Total returns the duration as a time.Duration. Durations that fail Validate
// are clamped to MaxDays.
func (d Duration) Total() time.Duration {
	minutes, ok := d.minutes()
	if !ok {
		minutes = maxMinutes
	}
	if minutes < 0 {
		minutes = 0
	}
	return time.Duration(minutes) * time.Minute
}

// minutes sums the components; ok is false when the sum leaves the MaxDays
// range or any component alone would overflow it.
func (d Duration) minutes() (int64, bool) {
	if d.Days > MaxDays || d.Hours > MaxDays*24 || d.Minutes > maxMinutes {
		return 0, false
	}
	if d.Days < -MaxDays || d.Hours < -MaxDays*24 || d.Minutes < -maxMinutes {
		return 0, false
	}
	total := int64(d.Days)*24*60 + int64(d.Hours)*60 + int64(d.Minutes)
	if total > maxMinutes {
		return 0, false
	}
	return total, true
}

// Validate rejects negative, oversized or zero durations. The bound applies to
// the summed total, not only to each component.
func (d Duration) Validate() error {
	if d.Days < 0 || d.Hours < 0 || d.Minutes < 0 {
		return fmt.Errorf("%w: components must not be negative", ErrInvalidDuration)
	}
	total, ok := d.minutes()
	if !ok {
		return fmt.Errorf("%w: longer than %d days", ErrInvalidDuration, MaxDays)
	}
	if total == 0 {
		return fmt.Errorf("%w: total is zero", ErrInvalidDuration)
	}
	return nil
}

// String renders the duration the way listings display it, e.g. "1d 2h 30m".
func (d Duration) String() string {
	return fmt.Sprintf("%dd %dh %dm", d.Days, d.Hours, d.Minutes)
}

// Deadline returns from plus the duration.
func Deadline(from time.Time, d Duration) time.Time {
	return from.Add(d.Total())
}

// Expired reports whether now is strictly after deadline.
func Expired(now, deadline time.Time) bool {
	return now.After(deadline)
}

// Countdown is the time left until a deadline, broken down for display.
type Countdown struct {
	Days    int `json:"days"`
	Hours   int `json:"hours"`
	Minutes int `json:"minutes"`
	Seconds int `json:"seconds"`
}

// Zero reports whether no time is left.
func (c Countdown) Zero() bool {
	return c == Countdown{}
}

// Remaining computes the countdown from now to deadline. It is zero once the
// deadline has passed.
func Remaining(now, deadline time.Time) Countdown {
	left := deadline.Sub(now)
	if left <= 0 {
		return Countdown{}
	}
	left = left.Truncate(time.Second)
	days := int(left / (24 * time.Hour))
	left -= time.Duration(days) * 24 * time.Hour
	hours := int(left / time.Hour)
	left -= time.Duration(hours) * time.Hour
	minutes := int(left / time.Minute)
	left -= time.Duration(minutes) * time.Minute
	return Countdown{Days: days, Hours: hours, Minutes: minutes, Seconds: int(left / time.Second)}
}
