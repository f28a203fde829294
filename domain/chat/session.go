package chat

import (
	"chat-relay/errors"
	"fmt"
	"time"
)

// Status is reserved for a future consent workflow.
// Sessions are created pending and nothing transitions them yet.
type Status string

const (
	StatusPending  Status = "pending"
	StatusAccepted Status = "accepted"
	StatusRejected Status = "rejected"
)

// Session is the durable two-party conversation.
// Messages themselves live in the store, the session keeps the summary
// needed for listings (last message, counters, activity).
type Session struct {
	ID           string
	Participants Pair
	Status       Status
	CreatedAt    time.Time
	LastActivity time.Time
	MessageCount int
	LastMessage  *Message
	// Unread counts, per viewer, the messages the viewer did not author and has not read yet.
	Unread map[UserID]int
}

func NewSession(id string, pair Pair, at time.Time) Session {
	at = at.UTC()
	return Session{
		ID:           id,
		Participants: pair,
		Status:       StatusPending,
		CreatedAt:    at,
		LastActivity: at,
		Unread:       map[UserID]int{pair.Low: 0, pair.High: 0},
	}
}

// Append records a new message in the summary.
// LastActivity never moves backwards, even with a skewed clock.
func (s *Session) Append(m Message) error {
	receiver, ok := s.Participants.Other(m.Sender)
	if !ok {
		return fmt.Errorf("%w: %s", errors.ErrNotParticipant, m.Sender)
	}
	if m.CreatedAt.After(s.LastActivity) {
		s.LastActivity = m.CreatedAt
	}
	if s.Unread == nil {
		s.Unread = make(map[UserID]int)
	}
	s.Unread[receiver]++
	s.MessageCount++
	last := m
	s.LastMessage = &last
	return nil
}

// MarkRead resets the unread counter of the reader.
func (s *Session) MarkRead(reader UserID) error {
	if !s.Participants.Contains(reader) {
		return fmt.Errorf("%w: %s", errors.ErrNotParticipant, reader)
	}
	if s.Unread == nil {
		s.Unread = make(map[UserID]int)
	}
	s.Unread[reader] = 0
	if s.LastMessage != nil && s.LastMessage.Sender != reader {
		s.LastMessage.Read = true
	}
	return nil
}

func (s Session) UnreadFor(viewer UserID) int {
	return s.Unread[viewer]
}
