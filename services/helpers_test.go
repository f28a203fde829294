package services

import (
	"chat-relay/domain/chat"
	"chat-relay/domain/event"
	"chat-relay/observability"
	"chat-relay/repositories"
	"chat-relay/runtime"
	"context"
	"log/slog"
	"regexp"
	"sync"
	"testing"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/mama165/sdk-go/logs"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"
)

// Conn records what the relay pushes to a client.
type Conn struct {
	mu       sync.Mutex
	id       string
	identity chat.UserID
	events   []event.Outbound
}

func newConn(id string) *Conn { return &Conn{id: id} }

func (c *Conn) Consume(_ context.Context, e event.Outbound) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, e)
	return nil
}

func (c *Conn) ID() string { return c.id }

func (c *Conn) Identity() (chat.UserID, bool) { return c.identity, c.identity != "" }

func (c *Conn) received() []event.Outbound {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]event.Outbound(nil), c.events...)
}

func (c *Conn) reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = nil
}

// eventsOf filters the recorded events of one variant.
func eventsOf[T event.Outbound](c *Conn) []T {
	var out []T
	for _, e := range c.received() {
		if typed, ok := e.(T); ok {
			out = append(out, typed)
		}
	}
	return out
}

type harness struct {
	registry     *runtime.Registry
	chatRepo     repositories.IChatRepository
	presenceRepo repositories.IPresenceRepository
	sessions     *SessionManager
	relay        *Relay
	presence     *Presence
	dispatcher   *Dispatcher
	chatService  *ChatService
}

type harnessOption func(*harnessConfig)

type harnessConfig struct {
	chatRepo  repositories.IChatRepository
	moderator Moderator
	policy    Policy
}

func withChatRepository(repo repositories.IChatRepository) harnessOption {
	return func(c *harnessConfig) { c.chatRepo = repo }
}

func withModerator(m Moderator) harnessOption {
	return func(c *harnessConfig) { c.moderator = m }
}

func withPolicy(p Policy) harnessOption {
	return func(c *harnessConfig) { c.policy = p }
}

func newTestValidator() *Validator {
	return NewValidator(regexp.MustCompile(`^[A-Za-z0-9_-]+$`), 64)
}

func newHarness(t *testing.T, opts ...harnessOption) *harness {
	t.Helper()
	log := logs.GetLoggerFromLevel(slog.LevelDebug)
	db, err := badger.Open(badger.DefaultOptions("").WithInMemory(true).WithLogger(nil))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	cfg := harnessConfig{
		chatRepo: repositories.NewChatRepository(db, log, nil),
		policy:   Policy{OnlineOnRegister: true, OfflineOnDisconnect: true},
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	metrics := observability.NewCollector(prometheus.NewRegistry())
	registry := runtime.NewRegistry(log)
	delivery := runtime.NewEventFanout(log, registry, metrics, time.Second)
	validator := newTestValidator()
	presenceRepo := repositories.NewPresenceRepository(db)

	sessions := NewSessionManager(log, cfg.chatRepo, delivery)
	relay := NewRelay(log, validator, sessions, cfg.chatRepo, delivery, cfg.moderator, metrics, 2000)
	presence := NewPresence(log, presenceRepo, delivery)
	dispatcher := NewDispatcher(log, validator, registry, delivery, sessions, relay, presence, metrics, cfg.policy)

	return &harness{
		registry:     registry,
		chatRepo:     cfg.chatRepo,
		presenceRepo: presenceRepo,
		sessions:     sessions,
		relay:        relay,
		presence:     presence,
		dispatcher:   dispatcher,
		chatService:  NewChatService(cfg.chatRepo, relay),
	}
}

// connect attaches a connection and registers userID on it.
func (h *harness) connect(t *testing.T, userID chat.UserID) *Conn {
	t.Helper()
	conn := newConn("conn-" + userID.String())
	require.NoError(t, h.dispatcher.Handle(context.Background(), conn, event.RegisterUser{UserID: userID.String()}))
	return conn
}
