package sqlite

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/louisbranch/wager.space/internal/services/challenge/domain/engine"
	"github.com/louisbranch/wager.space/internal/services/challenge/domain/event"
	"github.com/louisbranch/wager.space/internal/services/challenge/storage/integrity"
)

func TestAppendEventAssignsSequenceAndChain(t *testing.T) {
	store := openTestEvents(t)
	ctx := context.Background()

	var appended []event.Event
	for i := 0; i < 3; i++ {
		evt, err := store.AppendEvent(ctx, pauseEvent("c1", i%2 == 0, testNow.Add(time.Duration(i)*time.Second)))
		if err != nil {
			t.Fatalf("append %d: %v", i, err)
		}
		appended = append(appended, evt)
	}
	for i, evt := range appended {
		if evt.Seq != uint64(i+1) {
			t.Fatalf("event %d seq = %d", i, evt.Seq)
		}
		if evt.Signature == "" || evt.SignatureKeyID != "test" {
			t.Fatalf("event %d is not signed: %+v", i, evt)
		}
	}
	if appended[0].PrevHash != "" {
		t.Fatal("first event must not link a predecessor")
	}
	if appended[2].PrevHash != appended[1].ChainHash {
		t.Fatal("expected chain link to previous event")
	}

	other, err := store.AppendEvent(ctx, pauseEvent("c2", true, testNow))
	if err != nil {
		t.Fatalf("append other stream: %v", err)
	}
	if other.Seq != 1 {
		t.Fatalf("streams must be sequenced independently, got seq %d", other.Seq)
	}

	if err := store.VerifyEventIntegrity(ctx); err != nil {
		t.Fatalf("verify integrity: %v", err)
	}
}

func TestListEventsPaging(t *testing.T) {
	store := openTestEvents(t)
	ctx := context.Background()
	for i := 0; i < 4; i++ {
		if _, err := store.AppendEvent(ctx, pauseEvent("c1", i%2 == 0, testNow)); err != nil {
			t.Fatalf("append: %v", err)
		}
	}

	page, err := store.ListEvents(ctx, "c1", 1, 2)
	if err != nil {
		t.Fatalf("list events: %v", err)
	}
	if len(page) != 2 || page[0].Seq != 2 || page[1].Seq != 3 {
		t.Fatalf("unexpected page: %+v", page)
	}

	all, err := store.ListEvents(ctx, "c1", 0, 0)
	if err != nil {
		t.Fatalf("list all: %v", err)
	}
	if len(all) != 4 {
		t.Fatalf("expected 4 events, got %d", len(all))
	}
	if !all[0].Timestamp.Equal(testNow) {
		t.Fatalf("timestamp = %v, want %v", all[0].Timestamp, testNow)
	}
	if string(all[0].PayloadJSON) != `{"paused":true}` {
		t.Fatalf("payload = %s", all[0].PayloadJSON)
	}

	ids, err := store.ListChallengeIDs(ctx)
	if err != nil {
		t.Fatalf("list ids: %v", err)
	}
	if len(ids) != 1 || ids[0] != "c1" {
		t.Fatalf("ids = %v", ids)
	}
}

func TestAppendEventValidation(t *testing.T) {
	store := openTestEvents(t)
	evt := pauseEvent("c1", true, testNow)
	evt.Type = "challenge.unknown"
	if _, err := store.AppendEvent(context.Background(), evt); err == nil {
		t.Fatal("expected error for unknown event type")
	}
	if _, err := OpenEvents(filepath.Join(t.TempDir(), "e.db"), nil, nil); err == nil {
		t.Fatal("expected error without keyring")
	}
}

func TestReopenContinuesSequence(t *testing.T) {
	path := filepath.Join(t.TempDir(), "events.db")
	ctx := context.Background()

	store := openTestEventsAt(t, path)
	for i := 0; i < 2; i++ {
		if _, err := store.AppendEvent(ctx, pauseEvent("c1", i == 0, testNow)); err != nil {
			t.Fatalf("append: %v", err)
		}
	}
	if err := store.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	reopened := openTestEventsAt(t, path)
	defer reopened.Close()
	evt, err := reopened.AppendEvent(ctx, pauseEvent("c1", true, testNow))
	if err != nil {
		t.Fatalf("append after reopen: %v", err)
	}
	if evt.Seq != 3 {
		t.Fatalf("seq = %d, want 3", evt.Seq)
	}
	if err := reopened.VerifyEventIntegrity(ctx); err != nil {
		t.Fatalf("verify integrity: %v", err)
	}
}

func TestVerifyEventIntegrityDetectsTampering(t *testing.T) {
	store := openTestEvents(t)
	ctx := context.Background()
	for i := 0; i < 3; i++ {
		if _, err := store.AppendEvent(ctx, pauseEvent("c1", i%2 == 0, testNow)); err != nil {
			t.Fatalf("append: %v", err)
		}
	}

	if _, err := store.sqlDB.ExecContext(ctx,
		"UPDATE events SET payload_json = ? WHERE challenge_id = ? AND seq = 2",
		[]byte(`{"paused":true}`), "c1",
	); err != nil {
		t.Fatalf("tamper: %v", err)
	}
	if err := store.VerifyEventIntegrity(ctx); err == nil {
		t.Fatal("expected integrity failure after tampering")
	}
}

func TestMigrationsRecorded(t *testing.T) {
	store := openTestEvents(t)
	applied, err := store.Migrations(context.Background())
	if err != nil {
		t.Fatalf("migrations: %v", err)
	}
	if len(applied) != 1 {
		t.Fatalf("applied = %v", applied)
	}
}

func TestMillisHelpers(t *testing.T) {
	loc, err := time.LoadLocation("America/New_York")
	if err != nil {
		t.Fatalf("load location: %v", err)
	}
	value := time.Date(2026, 2, 1, 9, 0, 0, 0, loc)
	if toMillis(value) != value.UTC().UnixMilli() {
		t.Fatalf("expected millis to match UTC unix millis")
	}
	if round := fromMillis(toMillis(value)); !round.Equal(value.UTC()) {
		t.Fatalf("expected round trip UTC time, got %v", round)
	}
}

func TestAppendEventWithoutRetries(t *testing.T) {
	keyring, err := integrity.NewKeyring(map[string][]byte{"test": []byte("secret")}, "test")
	if err != nil {
		t.Fatalf("new keyring: %v", err)
	}
	registries, err := engine.BuildRegistries()
	if err != nil {
		t.Fatalf("build registries: %v", err)
	}
	store, err := OpenEvents(filepath.Join(t.TempDir(), "events.db"), keyring, registries.Events, WithAppendRetries(0))
	if err != nil {
		t.Fatalf("open events: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })

	evt, err := store.AppendEvent(context.Background(), pauseEvent("c1", true, testNow))
	if err != nil {
		t.Fatalf("append: %v", err)
	}
	if evt.Seq != 1 {
		t.Fatalf("seq = %d, want 1", evt.Seq)
	}
}
