package challenge

import (
	"encoding/json"
	"errors"
	"strings"
	"time"
	"unicode/utf8"

	apperrors "github.com/louisbranch/wager.space/internal/platform/errors"
	"github.com/louisbranch/wager.space/internal/services/challenge/domain/clock"
	"github.com/louisbranch/wager.space/internal/services/challenge/domain/command"
	"github.com/louisbranch/wager.space/internal/services/challenge/domain/event"
	"github.com/louisbranch/wager.space/internal/services/challenge/domain/ledger"
)

// MaxDescriptionLength bounds the commitment text in runes.
const MaxDescriptionLength = 512

// Decide returns the decision for a challenge command against current state.
//
// Every handler checks, in order: the caller role, phase and one-shot guards,
// the pause guard, then amounts and balance. A rejection carries no events.
func Decide(state State, cmd command.Command, now func() time.Time) command.Decision {
	if now == nil {
		now = time.Now
	}
	at := now().UTC().Truncate(time.Millisecond)

	if cmd.Type == CommandTypeCreate {
		return decideCreate(state, cmd, at)
	}
	if !state.Created {
		return command.Reject(reject(apperrors.CodeNotFound, "challenge not created"))
	}

	switch cmd.Type {
	case CommandTypeAccept:
		return decideAccept(state, cmd, at)
	case CommandTypeComplete:
		return decideComplete(state, cmd, at)
	case CommandTypeFinish:
		return decideFinish(state, cmd, at)
	case CommandTypeExtendExpiration:
		return decideExtend(state, cmd, at)
	case CommandTypeSwitchPause:
		return decideSwitchPause(state, cmd, at)
	case CommandTypeFlushBalance:
		return decideFlush(state, cmd, at)
	case CommandTypeContribute:
		return decideContribute(state, cmd, at)
	default:
		return command.Reject(reject(apperrors.CodeInvalidArgument, "unsupported command type "+string(cmd.Type)))
	}
}

func decideCreate(state State, cmd command.Command, at time.Time) command.Decision {
	if state.Created {
		return command.Reject(reject(apperrors.CodeAlreadyExists, "challenge already exists"))
	}
	var payload CreatePayload
	_ = json.Unmarshal(cmd.PayloadJSON, &payload)

	description := strings.TrimSpace(payload.Description)
	if description == "" {
		return command.Reject(reject(apperrors.CodeInvalidArgument, "description is required"))
	}
	if utf8.RuneCountInString(description) > MaxDescriptionLength {
		return command.Reject(reject(apperrors.CodeInvalidArgument, "description is too long"))
	}
	challenger := NormalizeAddress(payload.Challenger)
	contender := NormalizeAddress(payload.Contender)
	owner := NormalizeAddress(payload.Owner)
	if challenger == "" || contender == "" || owner == "" {
		return command.Reject(reject(apperrors.CodeInvalidIdentity, "challenger, contender and owner are required"))
	}
	if challenger == contender {
		return command.Reject(reject(apperrors.CodeInvalidIdentity, "challenger and contender must differ"))
	}
	duration := clock.Duration{Days: payload.Days, Hours: payload.Hours, Minutes: payload.Minutes}
	if err := duration.Validate(); err != nil {
		return command.Reject(reject(apperrors.CodeInvalidDuration, err.Error()))
	}

	return accept(cmd, EventTypeCreated, CreatedPayload{
		Challenger:  challenger,
		Contender:   contender,
		Owner:       owner,
		Description: description,
		Duration:    duration,
		Deadline:    clock.Deadline(at, duration),
	}, at)
}

func decideAccept(state State, cmd command.Command, at time.Time) command.Decision {
	if rejection, ok := authorize(state, cmd.ActorID, RoleContender); !ok {
		return command.Reject(rejection)
	}
	if _, ok := state.Phase.accept(); !ok {
		return command.Reject(reject(apperrors.CodeAlreadyAccepted, "challenge already accepted"))
	}
	return accept(cmd, EventTypeAccepted, AcceptedPayload{Contender: state.Contender}, at)
}

func decideComplete(state State, cmd command.Command, at time.Time) command.Decision {
	if rejection, ok := authorize(state, cmd.ActorID, RoleOwner); !ok {
		return command.Reject(rejection)
	}
	if _, ok := state.Phase.complete(); !ok {
		return command.Reject(reject(apperrors.CodeAlreadyCompleted, "challenge already completed"))
	}
	reward := state.Balance()
	// Pause freezes funds only; a completion that moves nothing still goes through.
	if state.Paused && reward > 0 {
		return command.Reject(reject(apperrors.CodeContractPaused, "challenge is paused"))
	}
	if reward > 0 {
		if _, err := state.Ledger.Payout(reward); err != nil {
			return command.Reject(ledgerRejection(err))
		}
	}
	return accept(cmd, EventTypeCompleted, CompletedPayload{Reward: reward, Recipient: state.Contender}, at)
}

func decideFinish(state State, cmd command.Command, at time.Time) command.Decision {
	if rejection, ok := authorize(state, cmd.ActorID, RoleChallenger); !ok {
		return command.Reject(rejection)
	}
	if !state.finishable(at) {
		return command.Reject(reject(apperrors.CodeInvalidState, "challenge must be accepted, completed, unexpired and unfinished"))
	}
	return accept(cmd, EventTypeFinished, struct{}{}, at)
}

func decideExtend(state State, cmd command.Command, at time.Time) command.Decision {
	if rejection, ok := authorize(state, cmd.ActorID, RoleOwner); !ok {
		return command.Reject(rejection)
	}
	if state.Extended {
		return command.Reject(reject(apperrors.CodeAlreadyExtended, "expiration already extended"))
	}
	var payload ExtendExpirationPayload
	_ = json.Unmarshal(cmd.PayloadJSON, &payload)
	duration := clock.Duration{Days: payload.Days, Hours: payload.Hours, Minutes: payload.Minutes}
	if err := duration.Validate(); err != nil {
		return command.Reject(reject(apperrors.CodeInvalidDuration, err.Error()))
	}
	return accept(cmd, EventTypeExpirationExtended, ExpirationExtendedPayload{
		Duration: duration,
		Deadline: clock.Deadline(state.Deadline, duration),
	}, at)
}

func decideSwitchPause(state State, cmd command.Command, at time.Time) command.Decision {
	if rejection, ok := authorize(state, cmd.ActorID, RoleOwner); !ok {
		return command.Reject(rejection)
	}
	return accept(cmd, EventTypePauseToggled, PauseToggledPayload{Paused: !state.Paused}, at)
}

func decideFlush(state State, cmd command.Command, at time.Time) command.Decision {
	if rejection, ok := authorize(state, cmd.ActorID, RoleOwner); !ok {
		return command.Reject(rejection)
	}
	if !state.Completed() {
		return command.Reject(reject(apperrors.CodeInvalidState, "challenge must be completed before flushing"))
	}
	if state.Paused {
		return command.Reject(reject(apperrors.CodeContractPaused, "challenge is paused"))
	}
	var payload FlushBalancePayload
	_ = json.Unmarshal(cmd.PayloadJSON, &payload)
	role := payload.Recipient
	if role == "" {
		role = FlushToOwner
	}
	var recipient string
	switch role {
	case FlushToOwner:
		recipient = state.Owner
	case FlushToChallenger:
		recipient = state.Challenger
	default:
		return command.Reject(reject(apperrors.CodeInvalidArgument, "unknown flush recipient"))
	}
	if state.Flushed {
		return command.Reject(reject(apperrors.CodeInsufficientBalance, "balance already flushed"))
	}
	_, amount, err := state.Ledger.Drain()
	if err != nil {
		return command.Reject(ledgerRejection(err))
	}
	return accept(cmd, EventTypeBalanceFlushed, BalanceFlushedPayload{
		Amount:        amount,
		Recipient:     recipient,
		RecipientRole: role,
	}, at)
}

func decideContribute(state State, cmd command.Command, at time.Time) command.Decision {
	if rejection, ok := authorize(state, cmd.ActorID, RoleNotContender); !ok {
		return command.Reject(rejection)
	}
	if !state.contributable(at) {
		return command.Reject(reject(apperrors.CodeChallengeInactive, "challenge no longer accepts contributions"))
	}
	if state.Paused {
		return command.Reject(reject(apperrors.CodeContractPaused, "challenge is paused"))
	}
	var payload ContributePayload
	_ = json.Unmarshal(cmd.PayloadJSON, &payload)
	if _, err := state.Ledger.Deposit(payload.Amount); err != nil {
		return command.Reject(ledgerRejection(err))
	}
	return accept(cmd, EventTypeContributed, ContributedPayload{Amount: payload.Amount, From: cmd.ActorID}, at)
}

func accept(cmd command.Command, eventType event.Type, payload any, at time.Time) command.Decision {
	payloadJSON, _ := json.Marshal(payload)
	return command.Accept(command.NewEvent(cmd, eventType, EntityType, cmd.ChallengeID, payloadJSON, at))
}

func ledgerRejection(err error) command.Rejection {
	switch {
	case errors.Is(err, ledger.ErrInsufficientBalance):
		return reject(apperrors.CodeInsufficientBalance, err.Error())
	case errors.Is(err, ledger.ErrInvalidAmount):
		return reject(apperrors.CodeInvalidAmount, err.Error())
	default:
		return reject(apperrors.CodeInvalidState, err.Error())
	}
}
