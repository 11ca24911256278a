package challenge

import (
	"time"

	"github.com/louisbranch/wager.space/internal/services/challenge/domain/clock"
)

// FlushRecipient names who receives a flushed balance.
type FlushRecipient string

const (
	FlushToOwner      FlushRecipient = "owner"
	FlushToChallenger FlushRecipient = "challenger"
)

// CreatePayload captures the payload for challenge.create commands.
type CreatePayload struct {
	Challenger  string `json:"challenger"`
	Contender   string `json:"contender"`
	Owner       string `json:"owner"`
	Description string `json:"description"`
	Days        int    `json:"days"`
	Hours       int    `json:"hours"`
	Minutes     int    `json:"minutes"`
}

// CreatedPayload captures the payload for challenge.created events.
type CreatedPayload struct {
	Challenger  string         `json:"challenger"`
	Contender   string         `json:"contender"`
	Owner       string         `json:"owner"`
	Description string         `json:"description"`
	Duration    clock.Duration `json:"duration"`
	Deadline    time.Time      `json:"deadline"`
}

// AcceptedPayload captures the payload for challenge.accepted events.
type AcceptedPayload struct {
	Contender string `json:"contender"`
}

// CompletedPayload captures the payload for challenge.completed events.
type CompletedPayload struct {
	Reward    uint64 `json:"reward"`
	Recipient string `json:"recipient"`
}

// ExtendExpirationPayload captures the payload for challenge.extend_expiration commands.
type ExtendExpirationPayload struct {
	Days    int `json:"days"`
	Hours   int `json:"hours"`
	Minutes int `json:"minutes"`
}

// ExpirationExtendedPayload captures the payload for challenge.expiration_extended events.
type ExpirationExtendedPayload struct {
	Duration clock.Duration `json:"duration"`
	Deadline time.Time      `json:"deadline"`
}

// PauseToggledPayload captures the payload for challenge.pause_toggled events.
type PauseToggledPayload struct {
	Paused bool `json:"paused"`
}

// FlushBalancePayload captures the payload for challenge.flush_balance commands.
type FlushBalancePayload struct {
	Recipient FlushRecipient `json:"recipient,omitempty"`
}

// BalanceFlushedPayload captures the payload for challenge.balance_flushed events.
type BalanceFlushedPayload struct {
	Amount        uint64         `json:"amount"`
	Recipient     string         `json:"recipient"`
	RecipientRole FlushRecipient `json:"recipient_role"`
}

// ContributePayload captures the payload for challenge.contribute commands.
type ContributePayload struct {
	Amount uint64 `json:"amount"`
}

// ContributedPayload captures the payload for challenge.contributed events.
type ContributedPayload struct {
	Amount uint64 `json:"amount"`
	From   string `json:"from"`
}
