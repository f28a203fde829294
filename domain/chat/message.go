package chat

import (
	"chat-relay/errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

type Kind string

const (
	KindText  Kind = "text"
	KindImage Kind = "image"
	KindVideo Kind = "video"
	KindVoice Kind = "voice"
)

// ParseKind defaults to text when the client sends nothing, like the mobile app does.
func ParseKind(s string) (Kind, error) {
	switch k := Kind(s); k {
	case "":
		return KindText, nil
	case KindText, KindImage, KindVideo, KindVoice:
		return k, nil
	default:
		return "", fmt.Errorf("%w: %q", errors.ErrInvalidKind, s)
	}
}

// Message is an entry of the append-only log of a session.
// Only Read ever changes once the message is stored.
type Message struct {
	ID        uuid.UUID
	SessionID string
	Sender    UserID
	Content   string
	Kind      Kind
	CreatedAt time.Time
	Read      bool
}

func NewMessage(sessionID string, sender UserID, kind Kind, content string, at time.Time) Message {
	return Message{
		ID:        uuid.New(),
		SessionID: sessionID,
		Sender:    sender,
		Content:   content,
		Kind:      kind,
		CreatedAt: at.UTC(),
		Read:      false,
	}
}
