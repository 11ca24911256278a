package app

import (
	"context"
	"math"
	"path/filepath"
	"testing"
	"time"

	apperrors "github.com/louisbranch/wager.space/internal/platform/errors"
	"github.com/louisbranch/wager.space/internal/services/challenge/domain/challenge"
	"github.com/louisbranch/wager.space/internal/services/challenge/storage/integrity"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

func TestOpenSQLiteSurvivesRestart(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	env := Env{
		Storage:           StorageSQLite,
		EventsDBPath:      filepath.Join(dir, "data", "events.db"),
		ProjectionsDBPath: filepath.Join(dir, "data", "projections.db"),
		FlushRecipient:    string(challenge.FlushToOwner),
	}
	clk := &testClock{now: time.Date(2026, 5, 4, 10, 0, 0, 0, time.UTC)}
	base := Config{Logger: zerolog.Nop(), Now: clk.Now}
	keyring := testKeyring(t)

	svc, err := Open(ctx, env, keyring, base)
	require.NoError(t, err)
	id := createFixture(t, svc)
	contribute(t, svc, id, 3)
	_, err = svc.Complete(ctx, as(owner), id)
	require.NoError(t, err)
	contribute(t, svc, id, 2)
	_, err = svc.ExtendExpiration(ctx, as(owner), id, 0, 1, 0)
	require.NoError(t, err)
	require.NoError(t, svc.Close())

	reopened, err := Open(ctx, env, keyring, base)
	require.NoError(t, err)
	t.Cleanup(func() { require.NoError(t, reopened.Close()) })

	view, err := reopened.GetChallenge(ctx, id)
	require.NoError(t, err)
	require.Equal(t, fixtureDescription, view.Description)
	require.Equal(t, uint64(2), view.Balance)
	require.Equal(t, uint64(3), view.Reward)
	require.True(t, view.Completed)
	require.True(t, view.Extended)

	wallet, err := reopened.WalletBalance(ctx, contender)
	require.NoError(t, err)
	require.Equal(t, uint64(3), wallet)

	list, err := reopened.ListChallenges(ctx, ListRequest{Filter: `balance = 2`})
	require.NoError(t, err)
	require.Len(t, list.Challenges, 1)
	require.Equal(t, id, list.Challenges[0].ID)

	receipt, err := reopened.FlushBalance(ctx, as(owner), id)
	require.NoError(t, err)
	require.Equal(t, uint64(6), receipt.Seq)

	verified, err := reopened.VerifyJournal(ctx)
	require.NoError(t, err)
	require.Equal(t, 6, verified)
}

func TestOpenSQLiteBoundsLargeContributions(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	env := Env{
		Storage:           StorageSQLite,
		EventsDBPath:      filepath.Join(dir, "events.db"),
		ProjectionsDBPath: filepath.Join(dir, "projections.db"),
	}
	clk := &testClock{now: time.Date(2026, 5, 4, 10, 0, 0, 0, time.UTC)}
	svc, err := Open(ctx, env, testKeyring(t), Config{Logger: zerolog.Nop(), Now: clk.Now})
	require.NoError(t, err)
	t.Cleanup(func() { require.NoError(t, svc.Close()) })

	id := createFixture(t, svc)
	_, err = svc.Contribute(ctx, as(backer), id, math.MaxInt64+10)
	requireCode(t, err, apperrors.CodeInvalidAmount)

	contribute(t, svc, id, math.MaxInt64)
	_, err = svc.Contribute(ctx, as(backer), id, 1)
	requireCode(t, err, apperrors.CodeInvalidAmount)

	balance, err := svc.ChallengeBalance(ctx, id)
	require.NoError(t, err)
	require.Equal(t, uint64(math.MaxInt64), balance)

	list, err := svc.ListChallenges(ctx, ListRequest{Filter: `balance > 0`})
	require.NoError(t, err)
	require.Len(t, list.Challenges, 1)
	require.Equal(t, uint64(math.MaxInt64), list.Challenges[0].Balance)
}

func TestOpenCatchesUpStaleProjections(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	eventsPath := filepath.Join(dir, "events.db")
	keyring := testKeyring(t)
	base := Config{Logger: zerolog.Nop()}

	svc, err := OpenSQLite(ctx, eventsPath, filepath.Join(dir, "first.db"), keyring, base)
	require.NoError(t, err)
	id := createFixture(t, svc)
	contribute(t, svc, id, 9)
	require.NoError(t, svc.Close())

	// A fresh projections database is rebuilt from the journal.
	rebuilt, err := OpenSQLite(ctx, eventsPath, filepath.Join(dir, "second.db"), keyring, base)
	require.NoError(t, err)
	t.Cleanup(func() { require.NoError(t, rebuilt.Close()) })

	list, err := rebuilt.ListChallenges(ctx, ListRequest{})
	require.NoError(t, err)
	require.Len(t, list.Challenges, 1)
	require.Equal(t, uint64(9), list.Challenges[0].Balance)
}

func TestOpenRejectsTamperedKeyring(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	eventsPath := filepath.Join(dir, "events.db")
	projectionsPath := filepath.Join(dir, "projections.db")
	base := Config{Logger: zerolog.Nop()}

	svc, err := OpenSQLite(ctx, eventsPath, projectionsPath, testKeyring(t), base)
	require.NoError(t, err)
	createFixture(t, svc)
	require.NoError(t, svc.Close())

	other, err := integrity.NewKeyring(map[string][]byte{"test": []byte("other-secret")}, "test")
	require.NoError(t, err)
	_, err = OpenSQLite(ctx, eventsPath, projectionsPath, other, base)
	require.ErrorContains(t, err, "verify event integrity")
}

func TestOpenMemoryBackend(t *testing.T) {
	svc, err := Open(context.Background(), Env{Storage: StorageMemory}, testKeyring(t), Config{Logger: zerolog.Nop()})
	require.NoError(t, err)
	t.Cleanup(func() { require.NoError(t, svc.Close()) })
	createFixture(t, svc)
}

func TestOpenRejectsUnknownBackend(t *testing.T) {
	_, err := Open(context.Background(), Env{Storage: "postgres"}, testKeyring(t), Config{})
	require.Error(t, err)
}

func TestLoadEnvDefaults(t *testing.T) {
	env, err := LoadEnv()
	require.NoError(t, err)
	require.Equal(t, StorageSQLite, env.Storage)
	require.Equal(t, "owner", env.FlushRecipient)
	require.Equal(t, 1024, env.IdempotencyCacheSize)
}
