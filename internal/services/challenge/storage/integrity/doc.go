// Package integrity signs and verifies the journal's hash chain.
//
// Each challenge stream is signed with an HMAC key derived from a root key and
// the challenge id, so a leaked derived key exposes a single stream.
package integrity
