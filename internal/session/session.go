// Package session manages widget session identity and conversation
// persistence.
//
// A session is identified by a client-held UUID, minted by the gateway on
// first contact and echoed back on every response. A conversation is the
// server-side record keyed by (tenant, session id); it owns the message
// history.
package session

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/google/uuid"
)

// ErrInvalidID indicates a client-supplied session ID is not a UUID.
var ErrInvalidID = errors.New("invalid session ID format")

// idPattern is the strict 8-4-4-4-12 hex form. uuid.Parse accepts several
// other encodings (URN, braces, no dashes) that widgets never send, so a
// lenient parse would let malformed IDs proliferate as distinct sessions.
var idPattern = regexp.MustCompile(`^[0-9a-f]{8}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{12}$`)

// ValidateID checks that raw is a canonically formatted UUID
// (case-insensitive).
func ValidateID(raw string) (uuid.UUID, error) {
	if !idPattern.MatchString(strings.ToLower(raw)) {
		return uuid.Nil, fmt.Errorf("%w: %q", ErrInvalidID, raw)
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: %q", ErrInvalidID, raw)
	}
	return id, nil
}

// MintID creates a fresh session ID.
func MintID() uuid.UUID {
	return uuid.New()
}

// ResolveID validates a client-supplied session ID, minting a new one when
// the client sent none. minted reports whether the ID is new.
func ResolveID(raw string) (id uuid.UUID, minted bool, err error) {
	if raw == "" {
		return MintID(), true, nil
	}
	id, err = ValidateID(raw)
	if err != nil {
		return uuid.Nil, false, err
	}
	return id, false, nil
}
