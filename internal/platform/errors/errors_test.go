package errors

import (
	stderrors "errors"
	"fmt"
	"testing"

	"google.golang.org/genproto/googleapis/rpc/errdetails"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

func TestErrorIsMatchesByCode(t *testing.T) {
	err := fmt.Errorf("handle: %w", New(CodeContractPaused, "paused"))
	if !stderrors.Is(err, New(CodeContractPaused, "")) {
		t.Fatal("expected errors.Is to match by code")
	}
	if stderrors.Is(err, New(CodeUnauthorized, "")) {
		t.Fatal("expected errors.Is to reject a different code")
	}
}

func TestCodeOf(t *testing.T) {
	cause := stderrors.New("disk full")
	err := fmt.Errorf("append: %w", Wrap(CodeUnknown, "append failed", cause))
	if got := CodeOf(err); got != CodeUnknown {
		t.Fatalf("CodeOf = %s, want %s", got, CodeUnknown)
	}
	if !stderrors.Is(err, cause) {
		t.Fatal("expected wrapped cause to be reachable")
	}
	if got := CodeOf(stderrors.New("plain")); got != CodeUnknown {
		t.Fatalf("CodeOf(plain) = %s, want %s", got, CodeUnknown)
	}
	if !HasCode(New(CodeInvalidAmount, "zero"), CodeInvalidAmount) {
		t.Fatal("expected HasCode to match")
	}
	if HasCode(nil, CodeInvalidAmount) {
		t.Fatal("expected HasCode(nil) to be false")
	}
}

func TestGRPCCodeMapping(t *testing.T) {
	tests := []struct {
		code Code
		want codes.Code
	}{
		{CodeInvalidAmount, codes.InvalidArgument},
		{CodeInvalidDuration, codes.InvalidArgument},
		{CodeUnauthorized, codes.PermissionDenied},
		{CodeAlreadyExtended, codes.FailedPrecondition},
		{CodeInsufficientBalance, codes.FailedPrecondition},
		{CodeNotFound, codes.NotFound},
		{CodeAlreadyExists, codes.AlreadyExists},
		{CodeUnknown, codes.Internal},
	}
	for _, tt := range tests {
		if got := tt.code.GRPCCode(); got != tt.want {
			t.Fatalf("%s.GRPCCode() = %v, want %v", tt.code, got, tt.want)
		}
	}
}

func TestKnownCodesMapToNonInternal(t *testing.T) {
	for _, code := range KnownCodes() {
		if !code.IsKnown() {
			t.Fatalf("%s should be known", code)
		}
		if code.GRPCCode() == codes.Internal {
			t.Fatalf("%s maps to Internal", code)
		}
	}
	if Code("NOPE").IsKnown() {
		t.Fatal("expected unknown code")
	}
}

func TestLocalizedStatusAttachesDetails(t *testing.T) {
	err := WithMetadata(CodeUnauthorized, "caller is not owner", map[string]string{"Caller": "0xabc"})
	st, ok := status.FromError(err.LocalizedStatus("en-US"))
	if !ok {
		t.Fatal("expected grpc status")
	}
	if st.Code() != codes.PermissionDenied {
		t.Fatalf("status code = %v, want %v", st.Code(), codes.PermissionDenied)
	}
	var info *errdetails.ErrorInfo
	var localized *errdetails.LocalizedMessage
	for _, detail := range st.Details() {
		switch d := detail.(type) {
		case *errdetails.ErrorInfo:
			info = d
		case *errdetails.LocalizedMessage:
			localized = d
		}
	}
	if info == nil || info.Reason != string(CodeUnauthorized) || info.Domain != Domain {
		t.Fatalf("error info = %v", info)
	}
	if localized == nil || localized.Message != "This action is not available to 0xabc" {
		t.Fatalf("localized message = %v", localized)
	}
}
