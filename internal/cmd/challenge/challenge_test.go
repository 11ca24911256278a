package challenge

import (
	"bytes"
	"context"
	"flag"
	"path/filepath"
	"strings"
	"testing"

	"github.com/louisbranch/wager.space/internal/services/challenge/app"
	"github.com/stretchr/testify/require"
)

const (
	owner      = "0x00000000000000000000000000000000000000aa"
	challenger = "0x00000000000000000000000000000000000000bb"
	contender  = "0x00000000000000000000000000000000000000cc"
	backer     = "0x00000000000000000000000000000000000000dd"
)

func testConfig(t *testing.T) Config {
	t.Helper()
	t.Setenv("WAGER_SPACE_OTEL_ENABLED", "false")
	dir := t.TempDir()
	cfg := Config{
		App: app.Env{
			Storage:           app.StorageSQLite,
			EventsDBPath:      filepath.Join(dir, "events.db"),
			ProjectionsDBPath: filepath.Join(dir, "projections.db"),
			FlushRecipient:    "owner",
		},
		Locale: "en-US",
	}
	cfg.Keyring.Key = "cli-secret"
	cfg.Log.Level = "error"
	return cfg
}

func run(t *testing.T, cfg Config, as string, args ...string) string {
	t.Helper()
	cfg.As = as
	cfg.Args = args
	var out bytes.Buffer
	require.NoError(t, Run(context.Background(), cfg, &out, nil), "run %v", args)
	return out.String()
}

func TestParseConfigDefaults(t *testing.T) {
	fs := flag.NewFlagSet("challenge", flag.ContinueOnError)

	cfg, err := ParseConfig(fs, []string{"-as", owner, "show", "abc"})
	require.NoError(t, err)
	require.Equal(t, app.StorageSQLite, cfg.App.Storage)
	require.Equal(t, "en-US", cfg.Locale)
	require.Equal(t, owner, cfg.As)
	require.Equal(t, []string{"show", "abc"}, cfg.Args)
}

func TestRunRequiresSubcommand(t *testing.T) {
	err := Run(context.Background(), Config{}, nil, nil)
	require.ErrorIs(t, err, errUsage)
}

func TestRunRequiresKeyring(t *testing.T) {
	cfg := testConfig(t)
	cfg.Keyring.Key = ""
	cfg.Args = []string{"list"}
	require.Error(t, Run(context.Background(), cfg, nil, nil))
}

func TestRunRejectsUnknownSubcommand(t *testing.T) {
	cfg := testConfig(t)
	cfg.Args = []string{"launch"}
	err := Run(context.Background(), cfg, nil, nil)
	require.ErrorIs(t, err, errUsage)
}

func TestRunLifecycleAcrossInvocations(t *testing.T) {
	cfg := testConfig(t)

	created := run(t, cfg, owner, "create",
		"-challenger", challenger,
		"-contender", contender,
		"-owner", owner,
		"-description", "Walk 1 mile a day.",
		"-days", "7")
	challengeID, _, ok := strings.Cut(created, "\t")
	require.True(t, ok, "create output %q", created)
	require.Contains(t, created, "ChallengeCreated")

	require.Contains(t, run(t, cfg, backer, "contribute", challengeID, "1500"), "balance=1,500")
	require.Contains(t, run(t, cfg, owner, "complete", challengeID), "balance=0")
	require.Contains(t, run(t, cfg, backer, "contribute", challengeID, "2000"), "balance=2,000")
	require.Contains(t, run(t, cfg, owner, "flush", challengeID), "FlushBalance")

	require.Contains(t, run(t, cfg, "", "wallet", contender), "1,500")
	require.Contains(t, run(t, cfg, "", "wallet", owner), "2,000")

	shown := run(t, cfg, "", "show", challengeID)
	require.Contains(t, shown, "Walk 1 mile a day.")
	require.Contains(t, shown, "final balance:")

	events := run(t, cfg, "", "events", challengeID)
	require.Equal(t, 5, strings.Count(events, "\n"))
	require.Contains(t, events, "Contribution")

	require.Contains(t, run(t, cfg, "", "list", "-filter", `status = "active"`), challengeID)
	require.Contains(t, run(t, cfg, "", "verify"), "verified 5 events")
}

func TestRunLocalizesDomainErrors(t *testing.T) {
	cfg := testConfig(t)
	created := run(t, cfg, owner, "create",
		"-challenger", challenger,
		"-contender", contender,
		"-owner", owner,
		"-description", "Walk 1 mile a day.",
		"-hours", "1")
	challengeID, _, _ := strings.Cut(created, "\t")

	cfg.As = backer
	cfg.Args = []string{"accept", challengeID}
	err := Run(context.Background(), cfg, nil, nil)
	require.Error(t, err)
	require.Contains(t, err.Error(), "UNAUTHORIZED")
	require.Contains(t, err.Error(), "This action is not available")
}

func TestRunCommandRequiresCaller(t *testing.T) {
	cfg := testConfig(t)
	cfg.Args = []string{"accept", "abc"}
	err := Run(context.Background(), cfg, nil, nil)
	require.ErrorContains(t, err, "caller address is required")
}

func TestRunPrintsMetrics(t *testing.T) {
	cfg := testConfig(t)
	cfg.Metrics = true
	out := run(t, cfg, owner, "create",
		"-challenger", challenger,
		"-contender", contender,
		"-owner", owner,
		"-description", "Walk 1 mile a day.",
		"-days", "1")
	require.Contains(t, out, "challenge_commands_total")
}
