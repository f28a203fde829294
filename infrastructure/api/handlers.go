package api

import (
	"chat-relay/auth"
	"chat-relay/domain/chat"
	"chat-relay/errors"
	"chat-relay/services"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/samber/lo"
)

type handler struct {
	log       *slog.Logger
	chats     services.IChatService
	presence  services.IPresence
	validator *services.Validator
}

func (h *handler) Health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(h.log, w, http.StatusOK, map[string]string{"status": "ok"})
}

// ListChats returns the sessions of the caller, most recent activity first.
// GET /chats
func (h *handler) ListChats(w http.ResponseWriter, r *http.Request) {
	viewer, ok := h.viewer(w, r)
	if !ok {
		return
	}
	sessions, err := h.chats.ListSessions(r.Context(), viewer)
	if err != nil {
		writeError(h.log, w, err)
		return
	}
	writeJSON(h.log, w, http.StatusOK, lo.Map(sessions, func(s chat.Session, _ int) SessionResponse {
		return toSessionResponse(s, viewer)
	}))
}

// GetChat answers 404 both for an unknown session and for a caller outside of it.
// GET /chats/{chatID}
func (h *handler) GetChat(w http.ResponseWriter, r *http.Request) {
	viewer, ok := h.viewer(w, r)
	if !ok {
		return
	}
	session, err := h.chats.GetSession(r.Context(), chi.URLParam(r, "chatID"), viewer)
	if err != nil {
		writeError(h.log, w, err)
		return
	}
	writeJSON(h.log, w, http.StatusOK, toSessionResponse(session, viewer))
}

// GET /chats/{chatID}/messages?cursor=
func (h *handler) GetMessages(w http.ResponseWriter, r *http.Request) {
	viewer, ok := h.viewer(w, r)
	if !ok {
		return
	}
	cmd := chat.GetMessagesCommand{SessionID: chi.URLParam(r, "chatID"), Viewer: viewer}
	if cursor := r.URL.Query().Get("cursor"); cursor != "" {
		cmd.Cursor = &cursor
	}
	messages, next, err := h.chats.GetMessages(r.Context(), cmd)
	if err != nil {
		writeError(h.log, w, err)
		return
	}
	writeJSON(h.log, w, http.StatusOK, MessagesPage{
		Messages: lo.Map(messages, func(m chat.Message, _ int) MessageResponse { return toMessageResponse(m) }),
		Cursor:   next,
	})
}

// POST /chats/{chatID}/read
func (h *handler) MarkRead(w http.ResponseWriter, r *http.Request) {
	viewer, ok := h.viewer(w, r)
	if !ok {
		return
	}
	err := h.chats.MarkRead(r.Context(), chat.MarkReadCommand{SessionID: chi.URLParam(r, "chatID"), Viewer: viewer})
	if err != nil {
		writeError(h.log, w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// GET /users/{userID}/presence
func (h *handler) GetPresence(w http.ResponseWriter, r *http.Request) {
	userID := chat.UserID(chi.URLParam(r, "userID"))
	if err := h.validator.Identity(userID); err != nil {
		writeError(h.log, w, err)
		return
	}
	presence, err := h.presence.LastSeen(r.Context(), userID)
	if err != nil {
		writeError(h.log, w, err)
		return
	}
	writeJSON(h.log, w, http.StatusOK, toPresenceResponse(presence))
}

func (h *handler) viewer(w http.ResponseWriter, r *http.Request) (chat.UserID, bool) {
	viewer, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		writeError(h.log, w, errors.ErrUnauthenticated)
		return "", false
	}
	if err := h.validator.Identity(viewer); err != nil {
		writeError(h.log, w, err)
		return "", false
	}
	return viewer, true
}
