package websocket

import (
	"chat-relay/auth"
	"chat-relay/contract"
	"chat-relay/domain/chat"
	"chat-relay/domain/event"
	"chat-relay/errors"
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/mama165/sdk-go/logs"
	"github.com/stretchr/testify/require"
)

type received struct {
	origin contract.Connection
	in     event.Inbound
}

// echoHandler answers every registerUser with a chatSessionCreated and records all events.
type echoHandler struct {
	events chan received
}

func (h *echoHandler) Handle(ctx context.Context, origin contract.Connection, in event.Inbound) error {
	h.events <- received{origin: origin, in: in}
	if register, ok := in.(event.RegisterUser); ok {
		return origin.Consume(ctx, event.ChatSessionCreated{SessionID: "session-of-" + register.UserID})
	}
	return nil
}

func (h *echoHandler) next(t *testing.T) received {
	t.Helper()
	select {
	case r := <-h.events:
		return r
	case <-time.After(2 * time.Second):
		t.Fatal("no event reached the handler")
		return received{}
	}
}

func newTestServer(t *testing.T, authenticator *auth.Authenticator, opts Options) (*httptest.Server, *echoHandler) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	handler := &echoHandler{events: make(chan received, 16)}
	server := httptest.NewServer(NewServer(ctx, logs.GetLoggerFromLevel(slog.LevelDebug), authenticator, handler, opts))
	t.Cleanup(func() {
		cancel()
		server.Close()
	})
	return server, handler
}

func dial(t *testing.T, server *httptest.Server, header http.Header) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(server.URL, "http")
	client, resp, err := websocket.DefaultDialer.Dial(url, header)
	require.NoError(t, err)
	_ = resp.Body.Close()
	t.Cleanup(func() { _ = client.Close() })
	return client
}

func readEvent(t *testing.T, client *websocket.Conn) event.Outbound {
	t.Helper()
	require.NoError(t, client.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, raw, err := client.ReadMessage()
	require.NoError(t, err)
	out, err := event.DecodeOutbound(raw)
	require.NoError(t, err)
	return out
}

func TestServer_Relays_Frames_Both_Ways(t *testing.T) {
	req := require.New(t)
	server, handler := newTestServer(t, nil, DefaultOptions())
	client := dial(t, server, nil)

	// When the client registers
	raw, err := event.EncodeInbound(event.RegisterUser{UserID: "alice"})
	req.NoError(err)
	req.NoError(client.WriteMessage(websocket.TextMessage, raw))

	// Then the handler gets the decoded event and its answer reaches the client
	got := handler.next(t)
	req.Equal(event.RegisterUser{UserID: "alice"}, got.in)
	_, authenticated := got.origin.Identity()
	req.False(authenticated)
	req.Equal(event.ChatSessionCreated{SessionID: "session-of-alice"}, readEvent(t, client))
}

func TestServer_Answers_Malformed_Frames_With_Error(t *testing.T) {
	req := require.New(t)
	server, _ := newTestServer(t, nil, DefaultOptions())
	client := dial(t, server, nil)

	req.NoError(client.WriteMessage(websocket.TextMessage, []byte(`{"event":"joinRoom","data":{}}`)))

	failure, ok := readEvent(t, client).(event.Failure)
	req.True(ok)
	req.Contains(failure.Info, "unknown event")
}

func TestServer_Synthesizes_Disconnect(t *testing.T) {
	req := require.New(t)
	server, handler := newTestServer(t, nil, DefaultOptions())
	client := dial(t, server, nil)

	// When the client goes away
	req.NoError(client.Close())

	// Then the handler is told so
	got := handler.next(t)
	req.Equal(event.Disconnect{}, got.in)

	// And the closed connection refuses further events
	req.ErrorIs(got.origin.Consume(context.Background(), event.Failure{}), errors.ErrConnectionClosed)
}

func TestServer_Rate_Limits_Inbound_Events(t *testing.T) {
	req := require.New(t)
	opts := DefaultOptions()
	opts.EventsPerSecond = 0.001
	opts.EventsBurst = 1
	server, handler := newTestServer(t, nil, opts)
	client := dial(t, server, nil)

	frame, err := event.EncodeInbound(event.Typing{Sender: "alice", Receiver: "bob"})
	req.NoError(err)
	req.NoError(client.WriteMessage(websocket.TextMessage, frame))
	req.NoError(client.WriteMessage(websocket.TextMessage, frame))

	req.Equal(event.Typing{Sender: "alice", Receiver: "bob"}, handler.next(t).in)
	failure, ok := readEvent(t, client).(event.Failure)
	req.True(ok)
	req.Equal(errors.ErrRateLimited.Error(), failure.Info)
}

func TestServer_Authentication(t *testing.T) {
	req := require.New(t)
	authenticator := auth.NewAuthenticator("websocket-test-secret", time.Hour)
	server, handler := newTestServer(t, authenticator, DefaultOptions())
	url := "ws" + strings.TrimPrefix(server.URL, "http")

	// Without a token the upgrade is refused
	_, resp, err := websocket.DefaultDialer.Dial(url, nil)
	req.Error(err)
	req.Equal(http.StatusUnauthorized, resp.StatusCode)
	_ = resp.Body.Close()

	// With one the connection carries the identity
	token, err := authenticator.GenerateToken("alice")
	req.NoError(err)
	client := dial(t, server, http.Header{"Authorization": []string{"Bearer " + token}})
	raw, err := event.EncodeInbound(event.RegisterUser{UserID: "alice"})
	req.NoError(err)
	req.NoError(client.WriteMessage(websocket.TextMessage, raw))

	identity, ok := handler.next(t).origin.Identity()
	req.True(ok)
	req.Equal(chat.UserID("alice"), identity)
}
