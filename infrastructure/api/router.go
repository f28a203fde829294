package api

import (
	"chat-relay/auth"
	"chat-relay/services"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// RouterDeps groups what NewRouter wires.
// WebSocket, Metrics and Inspector are optional, a nil handler leaves the route out.
type RouterDeps struct {
	Log           *slog.Logger
	Authenticator *auth.Authenticator
	ChatService   services.IChatService
	Presence      services.IPresence
	Validator     *services.Validator
	WebSocket     http.Handler
	Metrics       http.Handler
	Inspector     http.Handler
}

// NewRouter mounts every HTTP endpoint of the relay.
//
//	GET  /healthz
//	GET  /metrics
//	GET  /ws
//	GET  /chats
//	GET  /chats/{chatID}
//	GET  /chats/{chatID}/messages?cursor=
//	POST /chats/{chatID}/read
//	GET  /users/{userID}/presence
//	GET  /debug/inspect?prefix=
func NewRouter(deps RouterDeps) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	h := &handler{
		log:       deps.Log,
		chats:     deps.ChatService,
		presence:  deps.Presence,
		validator: deps.Validator,
	}

	r.Get("/healthz", h.Health)
	if deps.Metrics != nil {
		r.Handle("/metrics", deps.Metrics)
	}
	if deps.WebSocket != nil {
		// Authenticates on its own, browsers can't set headers on an upgrade
		r.Handle("/ws", deps.WebSocket)
	}
	if deps.Inspector != nil {
		r.Handle("/debug/inspect", deps.Inspector)
	}

	r.Group(func(r chi.Router) {
		r.Use(auth.Middleware(deps.Authenticator))

		r.Route("/chats", func(r chi.Router) {
			r.Get("/", h.ListChats)
			r.Route("/{chatID}", func(r chi.Router) {
				r.Get("/", h.GetChat)
				r.Get("/messages", h.GetMessages)
				r.Post("/read", h.MarkRead)
			})
		})
		r.Get("/users/{userID}/presence", h.GetPresence)
	})

	return r
}
