package filter

import (
	"reflect"
	"strings"
	"testing"
	"time"
)

var testNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func TestParseChallengeFilter_PhaseEquals(t *testing.T) {
	cond, err := ParseChallengeFilter(`phase = "accepted"`, testNow)
	if err != nil {
		t.Fatalf("parse filter: %v", err)
	}
	if cond.Clause != "phase = ?" {
		t.Errorf("expected 'phase = ?', got %q", cond.Clause)
	}
	if !reflect.DeepEqual(cond.Params, []any{"accepted"}) {
		t.Errorf("Params = %v", cond.Params)
	}
}

func TestParseChallengeFilter_Empty(t *testing.T) {
	cond, err := ParseChallengeFilter(" ", testNow)
	if err != nil {
		t.Fatalf("parse filter: %v", err)
	}
	if cond.Clause != "" || cond.Params != nil {
		t.Fatalf("expected empty condition, got %+v", cond)
	}
}

func TestParseChallengeFilter_AndOr(t *testing.T) {
	cond, err := ParseChallengeFilter(`owner = "0xa" AND balance > 0`, testNow)
	if err != nil {
		t.Fatalf("parse filter: %v", err)
	}
	if cond.Clause != "(owner = ? AND (deposits - payouts) > ?)" {
		t.Fatalf("Clause = %q", cond.Clause)
	}
	if !reflect.DeepEqual(cond.Params, []any{"0xa", int64(0)}) {
		t.Fatalf("Params = %v", cond.Params)
	}

	cond, err = ParseChallengeFilter(`challenger = "0xa" OR contender = "0xa"`, testNow)
	if err != nil {
		t.Fatalf("parse filter: %v", err)
	}
	if cond.Clause != "(challenger = ? OR contender = ?)" {
		t.Fatalf("Clause = %q", cond.Clause)
	}
}

func TestParseChallengeFilter_StatusUsesNow(t *testing.T) {
	cond, err := ParseChallengeFilter(`status = "expired"`, testNow)
	if err != nil {
		t.Fatalf("parse filter: %v", err)
	}
	if !strings.HasPrefix(cond.Clause, "(CASE WHEN phase = 'finished'") {
		t.Fatalf("Clause = %q", cond.Clause)
	}
	if !strings.HasSuffix(cond.Clause, "END) = ?") {
		t.Fatalf("Clause = %q", cond.Clause)
	}
	if !reflect.DeepEqual(cond.Params, []any{testNow.UnixMilli(), "expired"}) {
		t.Fatalf("Params = %v", cond.Params)
	}
}

func TestParseChallengeFilter_InvalidField(t *testing.T) {
	if _, err := ParseChallengeFilter(`accepted_by = "0xa"`, testNow); err == nil {
		t.Fatal("expected error for undeclared field")
	}
}

func TestParseChallengeFilter_TypeMismatch(t *testing.T) {
	if _, err := ParseChallengeFilter(`balance = "lots"`, testNow); err == nil {
		t.Fatal("expected error comparing int field with string")
	}
}

func TestChallengeFieldsCoverDeclarations(t *testing.T) {
	fields := ChallengeFields()
	if fields[FieldStatus] != FieldString {
		t.Fatalf("status type = %s", fields[FieldStatus])
	}
	if fields[FieldBalance] != FieldInt {
		t.Fatalf("balance type = %s", fields[FieldBalance])
	}
	if _, err := ChallengeDeclarations(); err != nil {
		t.Fatalf("declarations: %v", err)
	}
}
