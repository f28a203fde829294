package services

import (
	"chat-relay/domain/chat"
	"chat-relay/domain/event"
	"chat-relay/errors"
	"chat-relay/mocks"
	"context"
	"fmt"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/mama165/sdk-go/logs"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func TestSessionManager_FindOrCreate_Is_Order_Independent(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	h := newHarness(t)

	first, created, err := h.sessions.FindOrCreateSession(ctx, "alice", "bob")
	req.NoError(err)
	req.True(created)

	second, created, err := h.sessions.FindOrCreateSession(ctx, "bob", "alice")
	req.NoError(err)
	req.False(created)
	req.Equal(first.ID, second.ID)
}

func TestSessionManager_Concurrent_Creation_Yields_One_Session(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	h := newHarness(t)
	conn1 := h.connect(t, "alice")

	// When many goroutines open the same chat at once, in both orders
	const workers = 16
	ids := make([]string, workers)
	errs := make([]error, workers)
	var wg sync.WaitGroup
	for i := range workers {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			a, b := chat.UserID("alice"), chat.UserID("bob")
			if i%2 == 1 {
				a, b = b, a
			}
			session, _, err := h.sessions.FindOrCreateSession(ctx, a, b)
			ids[i], errs[i] = session.ID, err
		}(i)
	}
	wg.Wait()

	// Then every caller got the same session and it was announced once
	for i := range workers {
		req.NoError(errs[i])
		req.Equal(ids[0], ids[i])
	}
	req.Len(eventsOf[event.ChatSessionCreated](conn1), 1)

	sessions, err := h.chatService.ListSessions(ctx, "bob")
	req.NoError(err)
	req.Len(sessions, 1)
}

func TestSessionManager_Lost_Race_Reuses_The_Winner(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	ctrl := gomock.NewController(t)
	repo := mocks.NewMockIChatRepository(ctrl)
	delivery := mocks.NewMockIDelivery(ctrl)
	log := logs.GetLoggerFromLevel(slog.LevelDebug)
	pair, err := chat.NewPair("alice", "bob")
	req.NoError(err)
	winner := chat.NewSession("s-winner", pair, time.Now())

	// Given a concurrent creation slipped in between the lookup and the insert
	gomock.InOrder(
		repo.EXPECT().FindSession(gomock.Any(), pair).Return(chat.Session{}, errors.ErrSessionNotFound),
		repo.EXPECT().CreateSession(gomock.Any(), pair, gomock.Any()).Return(chat.Session{}, errors.ErrSessionAlreadyExists),
		repo.EXPECT().FindSession(gomock.Any(), pair).Return(winner, nil),
	)
	// Then the loser never announces the session
	delivery.EXPECT().SendTo(gomock.Any(), gomock.Any(), gomock.Any()).Times(0)

	manager := NewSessionManager(log, repo, delivery)
	session, created, err := manager.FindOrCreateSession(ctx, "bob", "alice")

	req.NoError(err)
	req.False(created)
	req.Equal("s-winner", session.ID)
}

func TestSessionManager_Propagates_Store_Failures(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	repo := mocks.NewMockIChatRepository(ctrl)
	delivery := mocks.NewMockIDelivery(ctrl)
	log := logs.GetLoggerFromLevel(slog.LevelDebug)
	storeErr := fmt.Errorf("%w: disk full", errors.ErrPersistence)

	repo.EXPECT().FindSession(gomock.Any(), gomock.Any()).Return(chat.Session{}, errors.ErrSessionNotFound)
	repo.EXPECT().CreateSession(gomock.Any(), gomock.Any(), gomock.Any()).Return(chat.Session{}, storeErr)

	manager := NewSessionManager(log, repo, delivery)
	_, err := manager.OpenSession(context.Background(), "alice", "bob")

	req.ErrorIs(err, errors.ErrPersistence)
}

func TestSessionManager_Rejects_Same_Participant(t *testing.T) {
	req := require.New(t)
	h := newHarness(t)

	_, _, err := h.sessions.FindOrCreateSession(context.Background(), "alice", "alice")

	req.ErrorIs(err, errors.ErrSameParticipant)
}
