package storage

import "testing"

func TestClampPageSize(t *testing.T) {
	tests := map[int]int{
		0:    DefaultPageSize,
		-3:   DefaultPageSize,
		10:   10,
		1000: MaxPageSize,
	}
	for in, want := range tests {
		if got := ClampPageSize(in); got != want {
			t.Fatalf("ClampPageSize(%d) = %d, want %d", in, got, want)
		}
	}
}

func TestChallengeRecordBalance(t *testing.T) {
	rec := ChallengeRecord{Deposits: 500, Payouts: 200}
	if rec.Balance() != 300 {
		t.Fatalf("balance = %d, want 300", rec.Balance())
	}
}
