package i18n

// Error codes must match the codes defined in internal/platform/errors/codes.go.
const (
	CodeUnauthorized        = "UNAUTHORIZED"
	CodeInvalidState        = "INVALID_STATE"
	CodeAlreadyExtended     = "ALREADY_EXTENDED"
	CodeAlreadyAccepted     = "ALREADY_ACCEPTED"
	CodeAlreadyCompleted    = "ALREADY_COMPLETED"
	CodeContractPaused      = "CONTRACT_PAUSED"
	CodeChallengeInactive   = "CHALLENGE_INACTIVE"
	CodeInsufficientBalance = "INSUFFICIENT_BALANCE"
	CodeInvalidAmount       = "INVALID_AMOUNT"
	CodeInvalidDuration     = "INVALID_DURATION"
	CodeInvalidIdentity     = "INVALID_IDENTITY"
	CodeInvalidArgument     = "INVALID_ARGUMENT"
	CodeNotFound            = "NOT_FOUND"
	CodeAlreadyExists       = "ALREADY_EXISTS"
)

var enUSMessages = map[Code]string{
	CodeUnauthorized:        "This action is not available to {{.Caller}}",
	CodeInvalidState:        "The challenge cannot do that right now",
	CodeAlreadyExtended:     "The expiration has already been extended once",
	CodeAlreadyAccepted:     "The challenge has already been accepted",
	CodeAlreadyCompleted:    "The challenge has already been completed",
	CodeContractPaused:      "The challenge is paused",
	CodeChallengeInactive:   "The challenge no longer accepts contributions",
	CodeInsufficientBalance: "The challenge balance is too low",
	CodeInvalidAmount:       "Amount must be a positive number",
	CodeInvalidDuration:     "Duration must be longer than zero",
	CodeInvalidIdentity:     "Challenger and contender must be two different addresses",
	CodeInvalidArgument:     "The request is invalid",
	CodeNotFound:            "The requested challenge was not found",
	CodeAlreadyExists:       "The challenge already exists",
}
