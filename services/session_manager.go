package services

import (
	"chat-relay/contract"
	"chat-relay/domain/chat"
	"chat-relay/domain/event"
	"chat-relay/errors"
	"chat-relay/repositories"
	"context"
	"log/slog"
	"time"
)

type ISessionManager interface {
	FindOrCreateSession(ctx context.Context, a, b chat.UserID) (chat.Session, bool, error)
	OpenSession(ctx context.Context, a, b chat.UserID) (chat.Session, error)
}

// SessionManager guarantees a single session per unordered pair of users.
// Uniqueness is enforced by the store, the manager only resolves the race.
type SessionManager struct {
	log        *slog.Logger
	repository repositories.IChatRepository
	delivery   contract.IDelivery
	now        func() time.Time
}

func NewSessionManager(log *slog.Logger, repository repositories.IChatRepository,
	delivery contract.IDelivery) *SessionManager {
	return &SessionManager{log: log, repository: repository, delivery: delivery, now: time.Now}
}

// FindOrCreateSession returns the session of (a, b) whatever the order, creating it when missing.
// created is true only for the caller whose insert won.
func (m *SessionManager) FindOrCreateSession(ctx context.Context, a, b chat.UserID) (chat.Session, bool, error) {
	pair, err := chat.NewPair(a, b)
	if err != nil {
		return chat.Session{}, false, err
	}

	session, err := m.repository.FindSession(ctx, pair)
	if err == nil {
		return session, false, nil
	}
	if !errors.Is(err, errors.ErrSessionNotFound) {
		return chat.Session{}, false, err
	}

	session, err = m.repository.CreateSession(ctx, pair, m.now())
	switch {
	case err == nil:
		m.log.Info("Chat session created", "session_id", session.ID, "user_low", pair.Low, "user_high", pair.High)
		m.notifyCreated(ctx, session)
		return session, true, nil
	case errors.Is(err, errors.ErrSessionAlreadyExists):
		// Lost the race against a concurrent creation, the winner's session is the one
		m.log.Debug("Concurrent session creation, reusing existing", "pair", pair.Key())
		session, err = m.repository.FindSession(ctx, pair)
		if err != nil {
			return chat.Session{}, false, err
		}
		return session, false, nil
	default:
		return chat.Session{}, false, err
	}
}

// OpenSession is the explicit createChat path: both participants are always told the session id,
// even when it already existed.
func (m *SessionManager) OpenSession(ctx context.Context, a, b chat.UserID) (chat.Session, error) {
	session, created, err := m.FindOrCreateSession(ctx, a, b)
	if err != nil {
		return chat.Session{}, err
	}
	if !created {
		m.notifyCreated(ctx, session)
	}
	return session, nil
}

func (m *SessionManager) notifyCreated(ctx context.Context, session chat.Session) {
	m.delivery.SendTo(ctx, event.ChatSessionCreated{SessionID: session.ID},
		session.Participants.Participants()...)
}
