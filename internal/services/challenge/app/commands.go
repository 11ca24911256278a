package app

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	apperrors "github.com/louisbranch/wager.space/internal/platform/errors"
	"github.com/louisbranch/wager.space/internal/platform/timeouts"
	"github.com/louisbranch/wager.space/internal/services/challenge/domain/challenge"
	"github.com/louisbranch/wager.space/internal/services/challenge/domain/command"
	"github.com/louisbranch/wager.space/internal/services/challenge/domain/event"
)

// Caller identifies who issues a command.
type Caller struct {
	Address string
	// RequestID, when set, makes retries of the same command return the
	// first outcome.
	RequestID string
}

// CreateRequest describes a new challenge.
type CreateRequest struct {
	Challenger  string
	Contender   string
	Owner       string
	Description string
	Days        int
	Hours       int
	Minutes     int
}

// Receipt is the committed result of a command.
type Receipt struct {
	ChallengeID string
	Seq         uint64
	Type        event.Type
	// Name is the external event name, e.g. CompleteChallenge.
	Name        string
	PayloadJSON []byte
	Timestamp   time.Time
	// Balance is the escrow held after the command.
	Balance  uint64
	Replayed bool
}

// CreateChallenge opens a challenge under a fresh id.
func (s *Service) CreateChallenge(ctx context.Context, caller Caller, req CreateRequest) (Receipt, error) {
	challengeID, err := s.newID()
	if err != nil {
		return Receipt{}, apperrors.Wrap(apperrors.CodeUnknown, "generate challenge id", err)
	}
	return s.execute(ctx, challengeID, challenge.CommandTypeCreate, caller, challenge.CreatePayload{
		Challenger:  req.Challenger,
		Contender:   req.Contender,
		Owner:       req.Owner,
		Description: req.Description,
		Days:        req.Days,
		Hours:       req.Hours,
		Minutes:     req.Minutes,
	})
}

// Accept records the contender's acceptance.
func (s *Service) Accept(ctx context.Context, caller Caller, challengeID string) (Receipt, error) {
	return s.execute(ctx, challengeID, challenge.CommandTypeAccept, caller, nil)
}

// Complete pays the escrow to the contender.
func (s *Service) Complete(ctx context.Context, caller Caller, challengeID string) (Receipt, error) {
	return s.execute(ctx, challengeID, challenge.CommandTypeComplete, caller, nil)
}

// Finish closes a completed challenge.
func (s *Service) Finish(ctx context.Context, caller Caller, challengeID string) (Receipt, error) {
	return s.execute(ctx, challengeID, challenge.CommandTypeFinish, caller, nil)
}

// ExtendExpiration pushes the deadline back once.
func (s *Service) ExtendExpiration(ctx context.Context, caller Caller, challengeID string, days, hours, minutes int) (Receipt, error) {
	return s.execute(ctx, challengeID, challenge.CommandTypeExtendExpiration, caller, challenge.ExtendExpirationPayload{
		Days:    days,
		Hours:   hours,
		Minutes: minutes,
	})
}

// SwitchPause toggles the pause flag.
func (s *Service) SwitchPause(ctx context.Context, caller Caller, challengeID string) (Receipt, error) {
	return s.execute(ctx, challengeID, challenge.CommandTypeSwitchPause, caller, nil)
}

// FlushBalance empties the escrow to the configured recipient.
func (s *Service) FlushBalance(ctx context.Context, caller Caller, challengeID string) (Receipt, error) {
	return s.execute(ctx, challengeID, challenge.CommandTypeFlushBalance, caller, challenge.FlushBalancePayload{
		Recipient: s.flushRecipient,
	})
}

// Contribute deposits amount into the escrow.
func (s *Service) Contribute(ctx context.Context, caller Caller, challengeID string, amount uint64) (Receipt, error) {
	return s.execute(ctx, challengeID, challenge.CommandTypeContribute, caller, challenge.ContributePayload{
		Amount: amount,
	})
}

func (s *Service) execute(ctx context.Context, challengeID string, cmdType command.Type, caller Caller, payload any) (Receipt, error) {
	challengeID = strings.TrimSpace(challengeID)
	if challengeID == "" {
		return Receipt{}, apperrors.New(apperrors.CodeInvalidArgument, "challenge id is required")
	}
	var payloadJSON []byte
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return Receipt{}, apperrors.Wrap(apperrors.CodeInvalidArgument, fmt.Sprintf("encode %s payload", cmdType), err)
		}
		payloadJSON = raw
	}

	ctx, cancel := context.WithTimeout(ctx, timeouts.Command)
	defer cancel()
	outcome, err := s.engine.Execute(ctx, command.Command{
		ChallengeID: challengeID,
		Type:        cmdType,
		ActorID:     caller.Address,
		RequestID:   strings.TrimSpace(caller.RequestID),
		PayloadJSON: payloadJSON,
	})
	if err != nil {
		return Receipt{}, err
	}
	evt := outcome.Event
	return Receipt{
		ChallengeID: evt.ChallengeID,
		Seq:         evt.Seq,
		Type:        evt.Type,
		Name:        challenge.EventName(evt.Type),
		PayloadJSON: evt.PayloadJSON,
		Timestamp:   evt.Timestamp,
		Balance:     outcome.State.Balance(),
		Replayed:    outcome.Replayed,
	}, nil
}
