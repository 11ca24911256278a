package scenario

import (
	"time"

	"github.com/louisbranch/wager.space/internal/services/challenge/app"
)

// runnerDeps bundles injectable dependencies for runner construction.
type runnerDeps struct {
	service *app.Service
	clock   *manualClock
}

// manualClock only moves when a scenario advances it.
type manualClock struct {
	now time.Time
}

func (c *manualClock) Now() time.Time {
	return c.now
}

func (c *manualClock) Advance(d time.Duration) {
	c.now = c.now.Add(d)
}
