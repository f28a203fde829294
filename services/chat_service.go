package services

import (
	"chat-relay/domain/chat"
	"chat-relay/errors"
	"chat-relay/repositories"
	"context"
	"fmt"
)

type IChatService interface {
	ListSessions(ctx context.Context, viewer chat.UserID) ([]chat.Session, error)
	GetSession(ctx context.Context, sessionID string, viewer chat.UserID) (chat.Session, error)
	GetMessages(ctx context.Context, cmd chat.GetMessagesCommand) ([]chat.Message, *string, error)
	MarkRead(ctx context.Context, cmd chat.MarkReadCommand) error
}

// ChatService is the read side used by the HTTP API.
// A session is only visible to its two participants.
type ChatService struct {
	repository repositories.IChatRepository
	relay      IRelay
}

func NewChatService(repository repositories.IChatRepository, relay IRelay) *ChatService {
	return &ChatService{repository: repository, relay: relay}
}

// ListSessions returns the sessions of viewer, most recent activity first.
func (s *ChatService) ListSessions(ctx context.Context, viewer chat.UserID) ([]chat.Session, error) {
	return s.repository.ListSessionsForUser(ctx, viewer)
}

func (s *ChatService) GetSession(ctx context.Context, sessionID string, viewer chat.UserID) (chat.Session, error) {
	session, err := s.repository.GetSession(ctx, sessionID)
	if err != nil {
		return chat.Session{}, err
	}
	if !session.Participants.Contains(viewer) {
		return chat.Session{}, fmt.Errorf("%w: %s", errors.ErrNotParticipant, viewer)
	}
	return session, nil
}

func (s *ChatService) GetMessages(ctx context.Context, cmd chat.GetMessagesCommand) ([]chat.Message, *string, error) {
	if _, err := s.GetSession(ctx, cmd.SessionID, cmd.Viewer); err != nil {
		return nil, nil, err
	}
	return s.repository.GetMessages(ctx, cmd.SessionID, cmd.Cursor)
}

func (s *ChatService) MarkRead(ctx context.Context, cmd chat.MarkReadCommand) error {
	return s.relay.MarkRead(ctx, cmd)
}
