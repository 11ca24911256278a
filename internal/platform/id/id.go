// Package id generates identifiers for challenges and events.
package id

import (
	"encoding/base32"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

var encoding = base32.StdEncoding.WithPadding(base32.NoPadding)

// NewID generates a URL-safe identifier using UUIDv4 bytes encoded as base32.
// The identifier is 26 characters long, lowercase, and contains no padding.
func NewID() (string, error) {
	raw, err := uuid.NewRandom()
	if err != nil {
		return "", fmt.Errorf("generate uuid: %w", err)
	}
	return strings.ToLower(encoding.EncodeToString(raw[:])), nil
}

// Valid reports whether s looks like an identifier produced by NewID.
func Valid(s string) bool {
	if len(s) != 26 {
		return false
	}
	decoded, err := encoding.DecodeString(strings.ToUpper(s))
	if err != nil || len(decoded) != 16 {
		return false
	}
	return s == strings.ToLower(s)
}
