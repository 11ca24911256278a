// Package challenge implements the challenge lifecycle and its escrow as an
// event-sourced aggregate.
//
// Decide evaluates a command against the current State and returns either a
// single event or a rejection. Fold applies accepted events to State. Neither
// function performs I/O; time enters only through the now function handed to
// Decide, and expiration is always derived from it on demand.
package challenge
