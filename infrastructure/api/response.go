package api

import (
	"chat-relay/domain/chat"
	"chat-relay/errors"
	"chat-relay/repositories"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/samber/lo"
)

type MessageResponse struct {
	ID        string    `json:"id"`
	SessionID string    `json:"sessionId"`
	Sender    string    `json:"sender"`
	Kind      string    `json:"kind"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"createdAt"`
	Read      bool      `json:"read"`
}

// SessionResponse is a session as seen by one viewer: UnreadCount is the viewer's own.
type SessionResponse struct {
	ID           string           `json:"id"`
	Participants []string         `json:"participants"`
	Status       string           `json:"status"`
	LastMessage  *MessageResponse `json:"lastMessage"`
	UnreadCount  int              `json:"unreadCount"`
	MessageCount int              `json:"messageCount"`
	LastActivity time.Time        `json:"lastActivity"`
	CreatedAt    time.Time        `json:"createdAt"`
}

type MessagesPage struct {
	Messages []MessageResponse `json:"messages"`
	Cursor   *string           `json:"cursor"`
}

type PresenceResponse struct {
	UserID   string    `json:"userId"`
	Online   bool      `json:"online"`
	LastSeen time.Time `json:"lastSeen"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}

func toMessageResponse(m chat.Message) MessageResponse {
	return MessageResponse{
		ID:        m.ID.String(),
		SessionID: m.SessionID,
		Sender:    m.Sender.String(),
		Kind:      string(m.Kind),
		Content:   m.Content,
		CreatedAt: m.CreatedAt,
		Read:      m.Read,
	}
}

func toSessionResponse(s chat.Session, viewer chat.UserID) SessionResponse {
	response := SessionResponse{
		ID:           s.ID,
		Participants: lo.Map(s.Participants.Participants(), func(u chat.UserID, _ int) string { return u.String() }),
		Status:       string(s.Status),
		UnreadCount:  s.UnreadFor(viewer),
		MessageCount: s.MessageCount,
		LastActivity: s.LastActivity,
		CreatedAt:    s.CreatedAt,
	}
	if s.LastMessage != nil {
		response.LastMessage = lo.ToPtr(toMessageResponse(*s.LastMessage))
	}
	return response
}

func toPresenceResponse(p repositories.Presence) PresenceResponse {
	return PresenceResponse{UserID: p.UserID.String(), Online: p.Online, LastSeen: p.LastSeen}
}

func writeJSON(log *slog.Logger, w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.Debug("Unable to write response", "error", err)
	}
}

// writeError renders the error taxonomy. Internal details only reach the logs.
func writeError(log *slog.Logger, w http.ResponseWriter, err error) {
	status := errors.HTTPStatus(err)
	if status >= http.StatusInternalServerError {
		log.Error("Request failed", "error", err)
	}
	writeJSON(log, w, status, ErrorResponse{Error: errors.Info(err)})
}
