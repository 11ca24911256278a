package engine

import (
	"errors"

	apperrors "github.com/louisbranch/wager.space/internal/platform/errors"
	"github.com/louisbranch/wager.space/internal/services/challenge/domain/command"
)

// nonRetryableError wraps an error to signal that retrying the operation
// would be harmful, e.g. duplicate event creation after a post-persist
// fold failure.
type nonRetryableError struct {
	err error
}

func (e *nonRetryableError) Error() string { return e.err.Error() }
func (e *nonRetryableError) Unwrap() error { return e.err }

// NonRetryable returns true from IsNonRetryable checks.
func (e *nonRetryableError) NonRetryable() bool { return true }

// wrapNonRetryable marks an error as non-retryable.
func wrapNonRetryable(err error) error {
	if err == nil {
		return nil
	}
	return &nonRetryableError{err: err}
}

// IsNonRetryable returns true when the error (or any error in its chain)
// signals that the operation must not be retried.
func IsNonRetryable(err error) bool {
	var target interface{ NonRetryable() bool }
	if errors.As(err, &target) {
		return target.NonRetryable()
	}
	return false
}

// RejectionError converts the first rejection of a decision into a domain error.
func RejectionError(cmd command.Command, rejection command.Rejection) *apperrors.Error {
	code := apperrors.Code(rejection.Code)
	if !code.IsKnown() {
		code = apperrors.CodeUnknown
	}
	return apperrors.WithMetadata(code, rejection.Message, map[string]string{
		"ChallengeID": cmd.ChallengeID,
		"Caller":      cmd.ActorID,
		"Command":     string(cmd.Type),
	})
}

// validationError maps envelope validation failures to InvalidArgument.
func validationError(err error) error {
	if err == nil {
		return nil
	}
	var domainErr *apperrors.Error
	if errors.As(err, &domainErr) {
		return err
	}
	return apperrors.Wrap(apperrors.CodeInvalidArgument, err.Error(), err)
}
