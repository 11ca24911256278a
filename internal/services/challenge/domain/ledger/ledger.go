// Package ledger tracks the escrow held by a single challenge.
//
// A Ledger is a value: Deposit and Payout return the next ledger and leave the
// receiver untouched, so a rejected movement never partially applies.
package ledger

import (
	"errors"
	"fmt"
	"math"
)

var (
	// ErrInvalidAmount indicates a zero amount or a deposit that would overflow.
	ErrInvalidAmount = errors.New("amount must be positive")
	// ErrInsufficientBalance indicates a payout larger than the balance.
	ErrInsufficientBalance = errors.New("insufficient balance")
	// ErrCorrupt indicates payouts exceeding deposits.
	ErrCorrupt = errors.New("ledger payouts exceed deposits")
)

// MaxAmount bounds cumulative deposits so totals fit signed 64-bit storage.
const MaxAmount = math.MaxInt64

// Ledger records cumulative inbound and outbound escrow in the smallest
// currency unit.
type Ledger struct {
	Deposits uint64 `json:"deposits"`
	Payouts  uint64 `json:"payouts"`
}

// Balance returns Deposits minus Payouts.
func (l Ledger) Balance() uint64 {
	if l.Payouts > l.Deposits {
		return 0
	}
	return l.Deposits - l.Payouts
}

// Validate checks the payouts-never-exceed-deposits invariant.
func (l Ledger) Validate() error {
	if l.Payouts > l.Deposits {
		return fmt.Errorf("%w: deposits %d payouts %d", ErrCorrupt, l.Deposits, l.Payouts)
	}
	return nil
}

// Deposit returns the ledger after adding amount.
func (l Ledger) Deposit(amount uint64) (Ledger, error) {
	if amount == 0 {
		return l, ErrInvalidAmount
	}
	if l.Deposits > MaxAmount || amount > MaxAmount-l.Deposits {
		return l, fmt.Errorf("%w: deposit of %d overflows", ErrInvalidAmount, amount)
	}
	l.Deposits += amount
	return l, nil
}

// Payout returns the ledger after moving amount out of escrow.
func (l Ledger) Payout(amount uint64) (Ledger, error) {
	if amount == 0 {
		return l, ErrInvalidAmount
	}
	if amount > l.Balance() {
		return l, fmt.Errorf("%w: have %d, need %d", ErrInsufficientBalance, l.Balance(), amount)
	}
	l.Payouts += amount
	return l, nil
}

// Drain pays out the whole balance. A zero balance fails with ErrInsufficientBalance.
func (l Ledger) Drain() (Ledger, uint64, error) {
	balance := l.Balance()
	if balance == 0 {
		return l, 0, fmt.Errorf("%w: balance is zero", ErrInsufficientBalance)
	}
	next, err := l.Payout(balance)
	return next, balance, err
}
