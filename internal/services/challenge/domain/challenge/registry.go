package challenge

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/louisbranch/wager.space/internal/services/challenge/domain/command"
	"github.com/louisbranch/wager.space/internal/services/challenge/domain/event"
)

const (
	CommandTypeCreate           command.Type = "challenge.create"
	CommandTypeAccept           command.Type = "challenge.accept"
	CommandTypeComplete         command.Type = "challenge.complete"
	CommandTypeFinish           command.Type = "challenge.finish"
	CommandTypeExtendExpiration command.Type = "challenge.extend_expiration"
	CommandTypeSwitchPause      command.Type = "challenge.switch_pause"
	CommandTypeFlushBalance     command.Type = "challenge.flush_balance"
	CommandTypeContribute       command.Type = "challenge.contribute"

	EventTypeCreated            event.Type = "challenge.created"
	EventTypeAccepted           event.Type = "challenge.accepted"
	EventTypeCompleted          event.Type = "challenge.completed"
	EventTypeFinished           event.Type = "challenge.finished"
	EventTypeExpirationExtended event.Type = "challenge.expiration_extended"
	EventTypePauseToggled       event.Type = "challenge.pause_toggled"
	EventTypeBalanceFlushed     event.Type = "challenge.balance_flushed"
	EventTypeContributed        event.Type = "challenge.contributed"

	// EntityType addresses every challenge event.
	EntityType = "challenge"
)

// eventNames maps event types to the names external callers know them by.
var eventNames = map[event.Type]string{
	EventTypeCreated:            "ChallengeCreated",
	EventTypeAccepted:           "Accept",
	EventTypeCompleted:          "CompleteChallenge",
	EventTypeFinished:           "FinishChallenge",
	EventTypeExpirationExtended: "ExtendExpiration",
	EventTypePauseToggled:       "PauseToggled",
	EventTypeBalanceFlushed:     "FlushBalance",
	EventTypeContributed:        "Contribution",
}

// EventName returns the external name of an event type, or the type itself.
func EventName(t event.Type) string {
	if name, ok := eventNames[t]; ok {
		return name
	}
	return string(t)
}

// RegisterCommands registers challenge commands with the shared registry.
func RegisterCommands(registry *command.Registry) error {
	if registry == nil {
		return errors.New("command registry is required")
	}
	definitions := []command.Definition{
		{Type: CommandTypeCreate, ValidatePayload: validateCreatePayload},
		{Type: CommandTypeAccept, ValidatePayload: validateEmptyPayload},
		{Type: CommandTypeComplete, ValidatePayload: validateEmptyPayload},
		{Type: CommandTypeFinish, ValidatePayload: validateEmptyPayload},
		{Type: CommandTypeExtendExpiration, ValidatePayload: validateExtendPayload},
		{Type: CommandTypeSwitchPause, ValidatePayload: validateEmptyPayload},
		{Type: CommandTypeFlushBalance, ValidatePayload: validateFlushPayload},
		{Type: CommandTypeContribute, ValidatePayload: validateContributePayload},
	}
	for _, def := range definitions {
		if err := registry.Register(def); err != nil {
			return err
		}
	}
	return nil
}

// RegisterEvents registers challenge events with the shared registry.
func RegisterEvents(registry *event.Registry) error {
	if registry == nil {
		return errors.New("event registry is required")
	}
	definitions := []event.Definition{
		{Type: EventTypeCreated, ValidatePayload: decodeInto[CreatedPayload]},
		{Type: EventTypeAccepted, ValidatePayload: decodeInto[AcceptedPayload]},
		{Type: EventTypeCompleted, ValidatePayload: decodeInto[CompletedPayload]},
		{Type: EventTypeFinished, ValidatePayload: validateEmptyPayload},
		{Type: EventTypeExpirationExtended, ValidatePayload: decodeInto[ExpirationExtendedPayload]},
		{Type: EventTypePauseToggled, ValidatePayload: decodeInto[PauseToggledPayload]},
		{Type: EventTypeBalanceFlushed, ValidatePayload: decodeInto[BalanceFlushedPayload]},
		{Type: EventTypeContributed, ValidatePayload: validateContributedPayload},
	}
	for _, def := range definitions {
		if err := registry.Register(def); err != nil {
			return err
		}
	}
	return nil
}

func decodeInto[T any](raw json.RawMessage) error {
	var payload T
	return json.Unmarshal(raw, &payload)
}

func validateEmptyPayload(raw json.RawMessage) error {
	var payload map[string]any
	return json.Unmarshal(raw, &payload)
}

func validateCreatePayload(raw json.RawMessage) error {
	return decodeInto[CreatePayload](raw)
}

func validateExtendPayload(raw json.RawMessage) error {
	return decodeInto[ExtendExpirationPayload](raw)
}

func validateFlushPayload(raw json.RawMessage) error {
	var payload FlushBalancePayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return err
	}
	switch payload.Recipient {
	case "", FlushToOwner, FlushToChallenger:
		return nil
	default:
		return fmt.Errorf("unknown flush recipient %q", payload.Recipient)
	}
}

func validateContributePayload(raw json.RawMessage) error {
	return decodeInto[ContributePayload](raw)
}

func validateContributedPayload(raw json.RawMessage) error {
	var payload ContributedPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return err
	}
	if payload.Amount == 0 {
		return errors.New("contributed amount must be positive")
	}
	return nil
}
