package event

import (
	"strings"
	"time"
)

// Type identifies the event type string, e.g. "challenge.accepted".
type Type string

// Domain returns the prefix before the first dot.
func (t Type) Domain() string {
	value := string(t)
	if idx := strings.IndexByte(value, '.'); idx >= 0 {
		return value[:idx]
	}
	return value
}

// Event captures the canonical event envelope.
type Event struct {
	ChallengeID    string
	Seq            uint64
	Hash           string
	PrevHash       string
	ChainHash      string
	SignatureKeyID string
	Signature      string
	Timestamp      time.Time
	Type           Type
	RequestID      string
	ActorID        string
	EntityType     string
	EntityID       string
	PayloadJSON    []byte
}
