package challenge

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"

	apperrors "github.com/louisbranch/wager.space/internal/platform/errors"
	"github.com/louisbranch/wager.space/internal/services/challenge/domain/command"
)

// Role is a caller requirement checked before any lifecycle guard.
type Role int

const (
	// RoleAnyone admits every caller.
	RoleAnyone Role = iota
	// RoleOwner admits only the privileged owner.
	RoleOwner
	// RoleChallenger admits only the challenger.
	RoleChallenger
	// RoleContender admits only the contender.
	RoleContender
	// RoleNotContender admits everyone except the contender.
	RoleNotContender
)

func (r Role) String() string {
	switch r {
	case RoleOwner:
		return "owner"
	case RoleChallenger:
		return "challenger"
	case RoleContender:
		return "contender"
	case RoleNotContender:
		return "not contender"
	default:
		return "anyone"
	}
}

// Authorize reports whether caller satisfies role on state.
func Authorize(state State, caller string, role Role) bool {
	caller = NormalizeAddress(caller)
	if caller == "" {
		return false
	}
	switch role {
	case RoleAnyone:
		return true
	case RoleOwner:
		return caller == state.Owner
	case RoleChallenger:
		return caller == state.Challenger
	case RoleContender:
		return caller == state.Contender
	case RoleNotContender:
		return caller != state.Contender
	default:
		return false
	}
}

// authorize is the gate at the top of every handler.
func authorize(state State, caller string, role Role) (command.Rejection, bool) {
	if Authorize(state, caller, role) {
		return command.Rejection{}, true
	}
	return reject(apperrors.CodeUnauthorized, "caller must be "+role.String()), false
}

// NormalizeAddress trims and lower-cases an identity address.
func NormalizeAddress(address string) string {
	return strings.ToLower(strings.TrimSpace(address))
}

// EscrowAddress derives the deterministic escrow handle for a challenge id.
func EscrowAddress(challengeID string) string {
	sum := sha256.Sum256([]byte("challenge:" + challengeID))
	return "0x" + hex.EncodeToString(sum[:20])
}

func reject(code apperrors.Code, message string) command.Rejection {
	return command.Rejection{Code: string(code), Message: message}
}
