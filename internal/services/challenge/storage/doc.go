// Package storage defines persistence interfaces for the challenge service.
//
// It covers the event journal, the challenge listing read model and external
// wallet balances credited by payouts. Implementations (memory, SQLite) live in
// subpackages.
//
// Common error types:
//   - ErrNotFound: requested record is missing
//   - ErrAlreadyExists: a unique record was written twice
package storage
