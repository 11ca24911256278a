package sqlite

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/louisbranch/wager.space/internal/services/challenge/domain/challenge"
	"github.com/louisbranch/wager.space/internal/services/challenge/domain/engine"
	"github.com/louisbranch/wager.space/internal/services/challenge/domain/event"
	"github.com/louisbranch/wager.space/internal/services/challenge/storage/integrity"
)

var testNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func openTestEventsAt(t *testing.T, path string) *Store {
	t.Helper()
	keyring, err := integrity.NewKeyring(map[string][]byte{"test": []byte("secret")}, "test")
	if err != nil {
		t.Fatalf("new keyring: %v", err)
	}
	registries, err := engine.BuildRegistries()
	if err != nil {
		t.Fatalf("build registries: %v", err)
	}
	store, err := OpenEvents(path, keyring, registries.Events)
	if err != nil {
		t.Fatalf("open events: %v", err)
	}
	return store
}

func openTestEvents(t *testing.T) *Store {
	t.Helper()
	store := openTestEventsAt(t, filepath.Join(t.TempDir(), "events.db"))
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func openTestProjections(t *testing.T) *Store {
	t.Helper()
	store, err := OpenProjections(filepath.Join(t.TempDir(), "projections.db"))
	if err != nil {
		t.Fatalf("open projections: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func pauseEvent(challengeID string, paused bool, at time.Time) event.Event {
	payload := `{"paused":false}`
	if paused {
		payload = `{"paused":true}`
	}
	return event.Event{
		ChallengeID: challengeID,
		Timestamp:   at,
		Type:        challenge.EventTypePauseToggled,
		ActorID:     "0xowner",
		EntityType:  challenge.EntityType,
		EntityID:    challengeID,
		PayloadJSON: []byte(payload),
	}
}
