package memory

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/louisbranch/wager.space/internal/services/challenge/domain/replay"
	"github.com/louisbranch/wager.space/internal/services/challenge/storage"
)

var testNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func seed(t *testing.T, p *Projections, recs ...storage.ChallengeRecord) {
	t.Helper()
	for _, rec := range recs {
		if err := p.PutChallenge(context.Background(), rec); err != nil {
			t.Fatalf("put challenge %s: %v", rec.ID, err)
		}
	}
}

func TestGetChallengeNotFound(t *testing.T) {
	p := NewProjections()
	_, err := p.GetChallenge(context.Background(), "missing")
	if !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if err := p.PutChallenge(context.Background(), storage.ChallengeRecord{}); err == nil {
		t.Fatal("expected error for empty id")
	}
}

func TestListChallengesPaging(t *testing.T) {
	p := NewProjections()
	for i := 0; i < 5; i++ {
		seed(t, p, storage.ChallengeRecord{ID: fmt.Sprintf("c%d", i), Phase: "created", Deadline: testNow.Add(time.Hour)})
	}

	var ids []string
	token := ""
	for pages := 0; pages < 5; pages++ {
		page, err := p.ListChallenges(context.Background(), storage.ListChallengesRequest{PageSize: 2, PageToken: token, Now: testNow})
		if err != nil {
			t.Fatalf("list: %v", err)
		}
		for _, rec := range page.Challenges {
			ids = append(ids, rec.ID)
		}
		token = page.NextPageToken
		if token == "" {
			break
		}
	}
	want := []string{"c0", "c1", "c2", "c3", "c4"}
	if fmt.Sprint(ids) != fmt.Sprint(want) {
		t.Fatalf("ids = %v, want %v", ids, want)
	}
}

func TestListChallengesFilter(t *testing.T) {
	p := NewProjections()
	seed(t, p,
		storage.ChallengeRecord{ID: "a", Owner: "0x1", Phase: "created", Deposits: 100, Deadline: testNow.Add(time.Hour)},
		storage.ChallengeRecord{ID: "b", Owner: "0x1", Phase: "accepted", Deadline: testNow.Add(-time.Minute)},
		storage.ChallengeRecord{ID: "c", Owner: "0x2", Phase: "finished", Deposits: 10, Payouts: 10, Deadline: testNow.Add(-time.Minute)},
		storage.ChallengeRecord{ID: "d", Owner: "0x2", Phase: "completed", Deposits: 10, Deadline: testNow.Add(-time.Minute)},
	)

	tests := []struct {
		filter string
		want   string
	}{
		{`status = "active"`, "[a d]"},
		{`status = "expired"`, "[b]"},
		{`status = "finished"`, "[c]"},
		{`owner = "0x1" AND balance > 0`, "[a]"},
		{`balance = 0`, "[b c]"},
	}
	for _, tt := range tests {
		page, err := p.ListChallenges(context.Background(), storage.ListChallengesRequest{Filter: tt.filter, Now: testNow})
		if err != nil {
			t.Fatalf("list %q: %v", tt.filter, err)
		}
		ids := make([]string, 0, len(page.Challenges))
		for _, rec := range page.Challenges {
			ids = append(ids, rec.ID)
		}
		if got := fmt.Sprint(ids); got != tt.want {
			t.Errorf("%q = %s, want %s", tt.filter, got, tt.want)
		}
	}

	if _, err := p.ListChallenges(context.Background(), storage.ListChallengesRequest{Filter: `nope = 1`}); err == nil {
		t.Fatal("expected filter parse error")
	}
}

func TestCreditWalletOncePerEvent(t *testing.T) {
	p := NewProjections()
	ctx := context.Background()
	for i := 0; i < 2; i++ {
		if err := p.CreditWallet(ctx, "0xa", 300, "c1", 4, testNow); err != nil {
			t.Fatalf("credit: %v", err)
		}
	}
	if err := p.CreditWallet(ctx, "0xa", 200, "c1", 7, testNow); err != nil {
		t.Fatalf("credit: %v", err)
	}
	wallet, err := p.GetWallet(ctx, "0xa")
	if err != nil {
		t.Fatalf("get wallet: %v", err)
	}
	if wallet.Balance != 500 {
		t.Fatalf("balance = %d, want 500", wallet.Balance)
	}

	empty, err := p.GetWallet(ctx, "0xb")
	if err != nil || empty.Balance != 0 {
		t.Fatalf("unknown wallet = %+v, %v", empty, err)
	}
}

func TestCreditWalletRejectsOverflow(t *testing.T) {
	p := NewProjections()
	ctx := context.Background()
	if err := p.CreditWallet(ctx, "0xa", storage.MaxWalletBalance, "c1", 3, testNow); err != nil {
		t.Fatalf("credit max: %v", err)
	}
	if err := p.CreditWallet(ctx, "0xa", 1, "c2", 3, testNow); !errors.Is(err, storage.ErrWalletOverflow) {
		t.Fatalf("err = %v, want ErrWalletOverflow", err)
	}
	if err := p.CreditWallet(ctx, "0xc", 1, "c2", 3, testNow); err != nil {
		t.Fatalf("credit after rejection: %v", err)
	}
}

func TestCheckpoints(t *testing.T) {
	p := NewProjections()
	ctx := context.Background()
	if _, err := p.Get(ctx, "c1"); !errors.Is(err, replay.ErrCheckpointNotFound) {
		t.Fatalf("expected ErrCheckpointNotFound, got %v", err)
	}
	if err := p.Save(ctx, replay.Checkpoint{ChallengeID: "c1", LastSeq: 3}); err != nil {
		t.Fatalf("save: %v", err)
	}
	cp, err := p.Get(ctx, "c1")
	if err != nil || cp.LastSeq != 3 {
		t.Fatalf("checkpoint = %+v, %v", cp, err)
	}
}

func TestCanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := NewProjections().GetChallenge(ctx, "c1"); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}
