// Package chat contains the core concepts of the messaging system:
// identities, participant pairs, sessions and messages.
// No runtime, network or storage logic should be added here.
package chat

import (
	"chat-relay/errors"
	"fmt"
	"strings"
)

// UserID is an opaque, already authenticated user identifier.
// The core references identities, it never owns them.
type UserID string

func (u UserID) String() string { return string(u) }

func (u UserID) IsZero() bool { return strings.TrimSpace(string(u)) == "" }

// Pair is the unordered couple of participants of a session.
// It is always stored sorted so that (A,B) and (B,A) share the same key.
type Pair struct {
	Low  UserID
	High UserID
}

// NewPair builds the sorted pair, rejecting empty or identical identities.
func NewPair(a, b UserID) (Pair, error) {
	if a.IsZero() || b.IsZero() {
		return Pair{}, errors.ErrInvalidIdentity
	}
	if a == b {
		return Pair{}, errors.ErrSameParticipant
	}
	if b < a {
		a, b = b, a
	}
	return Pair{Low: a, High: b}, nil
}

// Key is the storage uniqueness key of the pair.
func (p Pair) Key() string {
	return fmt.Sprintf("%s:%s", p.Low, p.High)
}

func (p Pair) Contains(u UserID) bool {
	return p.Low == u || p.High == u
}

// Other returns the counterpart of u, false when u is not part of the pair.
func (p Pair) Other(u UserID) (UserID, bool) {
	switch u {
	case p.Low:
		return p.High, true
	case p.High:
		return p.Low, true
	default:
		return "", false
	}
}

func (p Pair) Participants() []UserID {
	return []UserID{p.Low, p.High}
}
