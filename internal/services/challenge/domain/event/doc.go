// Package event defines the canonical event envelope and event-type registry used by
// the challenge write path.
//
// Events are immutable facts emitted by accepted decisions. The registry checks
// addressing and payload validity before persistence assigns sequence and
// integrity fields.
package event
