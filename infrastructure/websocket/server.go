package websocket

import (
	"chat-relay/auth"
	"chat-relay/domain/chat"
	"chat-relay/errors"
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"
)

type Options struct {
	SendBufferSize  int
	EventsPerSecond float64
	EventsBurst     int
	WriteWait       time.Duration
	PongWait        time.Duration
	MaxMessageSize  int64
}

func DefaultOptions() Options {
	return Options{
		SendBufferSize:  64,
		EventsPerSecond: 20,
		EventsBurst:     40,
		WriteWait:       10 * time.Second,
		PongWait:        60 * time.Second,
		MaxMessageSize:  64 * 1024,
	}
}

// PingInterval must stay below PongWait so the peer answers before the read deadline.
func (o Options) PingInterval() time.Duration {
	return o.PongWait * 9 / 10
}

// Server upgrades HTTP requests on /ws and runs one Connection per client.
type Server struct {
	log           *slog.Logger
	ctx           context.Context
	upgrader      websocket.Upgrader
	authenticator *auth.Authenticator
	handler       Handler
	opts          Options
}

// NewServer binds every connection to ctx: canceling it closes them all.
func NewServer(ctx context.Context, log *slog.Logger, authenticator *auth.Authenticator,
	handler Handler, opts Options) *Server {
	return &Server{
		log: log,
		ctx: ctx,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
		authenticator: authenticator,
		handler:       handler,
		opts:          opts,
	}
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	identity, err := s.identity(r)
	if err != nil {
		http.Error(w, errors.Info(err), errors.HTTPStatus(err))
		return
	}

	socket, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// The upgrader already answered the client
		s.log.Debug("WebSocket upgrade failed", "error", err)
		return
	}

	conn := newConnection(s.log, socket, identity, s.opts)
	s.log.Info("Connection attached", "connection_id", conn.ID(), "identity", identity)

	stop := context.AfterFunc(s.ctx, conn.close)
	defer stop()

	go conn.writeLoop()
	conn.readLoop(s.ctx, s.handler)
	s.log.Info("Connection detached", "connection_id", conn.ID())
}

// identity is mandatory once a secret is configured. In development mode
// the X-User-ID header, when present, pins the connection to that user.
func (s *Server) identity(r *http.Request) (chat.UserID, error) {
	if s.authenticator != nil && s.authenticator.Enabled() {
		return s.authenticator.IdentityFromRequest(r)
	}
	return chat.UserID(strings.TrimSpace(r.Header.Get(auth.DevIdentityHeader))), nil
}
