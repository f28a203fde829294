package services

import (
	"chat-relay/domain/chat"
	"chat-relay/domain/event"
	"chat-relay/errors"
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDispatcher_Register_Broadcasts_Online(t *testing.T) {
	req := require.New(t)
	h := newHarness(t)
	conn1 := h.connect(t, "alice")

	// When bob registers
	conn2 := h.connect(t, "bob")

	// Then he is resolvable and alice learns he is online
	sink, ok := h.registry.Resolve("bob")
	req.True(ok)
	req.Same(conn2, sink)
	online := eventsOf[event.PresenceChanged](conn1)
	req.Len(online, 1)
	req.Equal("bob", online[0].UserID)
	req.True(online[0].Online)
	req.Empty(eventsOf[event.PresenceChanged](conn2))

	presence, err := h.presence.LastSeen(context.Background(), "bob")
	req.NoError(err)
	req.True(presence.Online)
}

func TestDispatcher_Register_Without_Presence_Policy(t *testing.T) {
	req := require.New(t)
	h := newHarness(t, withPolicy(Policy{}))
	conn1 := h.connect(t, "alice")
	h.connect(t, "bob")

	req.Empty(conn1.received())
	_, err := h.presence.LastSeen(context.Background(), "bob")
	req.ErrorIs(err, errors.ErrPresenceNotFound)
}

func TestDispatcher_CreateChat_Is_Order_Independent(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	h := newHarness(t)
	conn1 := h.connect(t, "alice")
	conn2 := h.connect(t, "bob")

	// When both open the chat, in both orders
	req.NoError(h.dispatcher.Handle(ctx, conn1, event.CreateChat{UserID1: "alice", UserID2: "bob"}))
	req.NoError(h.dispatcher.Handle(ctx, conn2, event.CreateChat{UserID1: "bob", UserID2: "alice"}))

	// Then each participant is answered twice with the same session
	created1 := eventsOf[event.ChatSessionCreated](conn1)
	created2 := eventsOf[event.ChatSessionCreated](conn2)
	req.Len(created1, 2)
	req.Equal(created1, created2)
	req.Equal(created1[0], created1[1])

	sessions, err := h.chatService.ListSessions(ctx, "alice")
	req.NoError(err)
	req.Len(sessions, 1)
}

func TestDispatcher_CreateChat_With_Itself_Reports_Error(t *testing.T) {
	req := require.New(t)
	h := newHarness(t)
	conn1 := h.connect(t, "alice")

	err := h.dispatcher.Handle(context.Background(), conn1, event.CreateChat{UserID1: "alice", UserID2: "alice"})

	req.ErrorIs(err, errors.ErrSameParticipant)
	failures := eventsOf[event.Failure](conn1)
	req.Len(failures, 1)
	req.Equal(errors.ErrSameParticipant.Error(), failures[0].Info)
}

func TestDispatcher_Typing_Reaches_The_Receiver_Only(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	h := newHarness(t)
	conn1 := h.connect(t, "alice")
	conn2 := h.connect(t, "bob")
	conn3 := h.connect(t, "carol")
	for _, c := range []*Conn{conn1, conn2, conn3} {
		c.reset()
	}

	req.NoError(h.dispatcher.Handle(ctx, conn1, event.Typing{Sender: "alice", Receiver: "bob"}))
	req.NoError(h.dispatcher.Handle(ctx, conn1, event.StopTyping{Sender: "alice", Receiver: "bob"}))

	req.Equal([]event.Outbound{
		event.TypingSignal{Sender: "alice", Status: true},
		event.StopTypingSignal{Sender: "alice", Status: false},
	}, conn2.received())
	req.Empty(conn1.received())
	req.Empty(conn3.received())

	// Typing to someone offline is silently dropped
	req.NoError(h.dispatcher.Handle(ctx, conn1, event.Typing{Sender: "alice", Receiver: "dave"}))
	req.Empty(conn1.received())
}

func TestDispatcher_Disconnect_Then_Send_Still_Persists(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	h := newHarness(t)
	conn1 := h.connect(t, "alice")
	conn2 := h.connect(t, "bob")
	conn1.reset()

	// When bob's connection goes away
	req.NoError(h.dispatcher.Handle(ctx, conn2, event.Disconnect{}))

	// Then bob can't be resolved and alice sees him offline
	_, ok := h.registry.Resolve("bob")
	req.False(ok)
	offline := eventsOf[event.PresenceChanged](conn1)
	req.Len(offline, 1)
	req.False(offline[0].Online)
	req.Equal("bob", offline[0].UserID)

	// And a message to him is still stored and echoed
	conn2.reset()
	req.NoError(h.dispatcher.Handle(ctx, conn1, event.SendMessage{Sender: "alice", Receiver: "bob", Content: "ping"}))
	req.Len(eventsOf[event.MessageDelivered](conn1), 1)
	req.Empty(conn2.received())

	sessions, err := h.chatService.ListSessions(ctx, "bob")
	req.NoError(err)
	req.Len(sessions, 1)
	req.Equal(1, sessions[0].UnreadFor("bob"))
}

func TestDispatcher_Disconnect_Of_Superseded_Connection_Keeps_User_Online(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	h := newHarness(t)
	observer := h.connect(t, "carol")
	oldConn := h.connect(t, "alice")
	replacement := newConn("conn-alice-2")
	req.NoError(h.dispatcher.Handle(ctx, replacement, event.RegisterUser{UserID: "alice"}))
	observer.reset()

	removed := h.dispatcher.Disconnect(ctx, oldConn)

	req.Empty(removed)
	sink, ok := h.registry.Resolve("alice")
	req.True(ok)
	req.Same(replacement, sink)
	req.Empty(observer.received())
}

func TestDispatcher_Authenticated_Connection_Cannot_Impersonate(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	h := newHarness(t)
	conn := newConn("conn-1")
	conn.identity = "alice"

	// Registering as someone else is refused
	err := h.dispatcher.Handle(ctx, conn, event.RegisterUser{UserID: "bob"})
	req.ErrorIs(err, errors.ErrIdentityMismatch)
	_, ok := h.registry.Resolve("bob")
	req.False(ok)
	req.Len(eventsOf[event.Failure](conn), 1)

	// Sending as someone else gets a messageFailed
	err = h.dispatcher.Handle(ctx, conn, event.SendMessage{Sender: "bob", Receiver: "carol", Content: "hi"})
	req.ErrorIs(err, errors.ErrIdentityMismatch)
	req.Len(eventsOf[event.MessageFailed](conn), 1)

	// Acting as itself works, on either side of createChat
	req.NoError(h.dispatcher.Handle(ctx, conn, event.RegisterUser{UserID: "alice"}))
	req.NoError(h.dispatcher.Handle(ctx, conn, event.CreateChat{UserID1: "bob", UserID2: "alice"}))
	req.Len(eventsOf[event.ChatSessionCreated](conn), 1)
}

func TestDispatcher_Explicit_Presence_Events(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	h := newHarness(t, withPolicy(Policy{}))
	conn1 := h.connect(t, "alice")
	conn2 := h.connect(t, "bob")

	req.NoError(h.dispatcher.Handle(ctx, conn1, event.SetOffline{UserID: "alice"}))

	changes := eventsOf[event.PresenceChanged](conn2)
	req.Len(changes, 1)
	req.False(changes[0].Online)
	req.Empty(eventsOf[event.PresenceChanged](conn1))

	presence, err := h.presence.LastSeen(ctx, chat.UserID("alice"))
	req.NoError(err)
	req.False(presence.Online)
	req.True(changes[0].LastSeen.Equal(presence.LastSeen))
}
