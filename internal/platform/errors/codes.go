// Package errors provides structured error handling for the challenge engine.
package errors

import "google.golang.org/grpc/codes"

// Code is a machine-readable error code.
type Code string

const (
	// CodeUnknown represents an unknown error.
	CodeUnknown Code = "UNKNOWN"

	// Authorization errors
	CodeUnauthorized Code = "UNAUTHORIZED"

	// Lifecycle errors
	CodeInvalidState      Code = "INVALID_STATE"
	CodeAlreadyExtended   Code = "ALREADY_EXTENDED"
	CodeAlreadyAccepted   Code = "ALREADY_ACCEPTED"
	CodeAlreadyCompleted  Code = "ALREADY_COMPLETED"
	CodeContractPaused    Code = "CONTRACT_PAUSED"
	CodeChallengeInactive Code = "CHALLENGE_INACTIVE"

	// Escrow errors
	CodeInsufficientBalance Code = "INSUFFICIENT_BALANCE"
	CodeInvalidAmount       Code = "INVALID_AMOUNT"

	// Validation errors
	CodeInvalidDuration Code = "INVALID_DURATION"
	CodeInvalidIdentity Code = "INVALID_IDENTITY"
	CodeInvalidArgument Code = "INVALID_ARGUMENT"

	// Storage errors
	CodeNotFound      Code = "NOT_FOUND"
	CodeAlreadyExists Code = "ALREADY_EXISTS"
)

// GRPCCode maps domain codes to gRPC status codes.
func (c Code) GRPCCode() codes.Code {
	switch c {
	// InvalidArgument - validation failures, bad input
	case CodeInvalidAmount,
		CodeInvalidDuration,
		CodeInvalidIdentity,
		CodeInvalidArgument:
		return codes.InvalidArgument

	// PermissionDenied - wrong caller for the command
	case CodeUnauthorized:
		return codes.PermissionDenied

	// FailedPrecondition - state doesn't allow operation
	case CodeInvalidState,
		CodeAlreadyExtended,
		CodeAlreadyAccepted,
		CodeAlreadyCompleted,
		CodeContractPaused,
		CodeChallengeInactive,
		CodeInsufficientBalance:
		return codes.FailedPrecondition

	// NotFound - resource doesn't exist
	case CodeNotFound:
		return codes.NotFound

	// AlreadyExists - unique resource constraint
	case CodeAlreadyExists:
		return codes.AlreadyExists

	default:
		return codes.Internal
	}
}

// KnownCodes lists every code the engine can surface, in declaration order.
func KnownCodes() []Code {
	return []Code{
		CodeUnauthorized,
		CodeInvalidState,
		CodeAlreadyExtended,
		CodeAlreadyAccepted,
		CodeAlreadyCompleted,
		CodeContractPaused,
		CodeChallengeInactive,
		CodeInsufficientBalance,
		CodeInvalidAmount,
		CodeInvalidDuration,
		CodeInvalidIdentity,
		CodeInvalidArgument,
		CodeNotFound,
		CodeAlreadyExists,
	}
}

// IsKnown reports whether the code is one the engine declares.
func (c Code) IsKnown() bool {
	for _, known := range KnownCodes() {
		if known == c {
			return true
		}
	}
	return false
}
