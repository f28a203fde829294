package runtime

import (
	"chat-relay/domain/chat"
	"chat-relay/domain/event"
	"chat-relay/errors"
	"context"
	"log/slog"
	"testing"

	"github.com/mama165/sdk-go/logs"
	"github.com/stretchr/testify/require"
)

type Sink struct {
	name   string
	events []event.Outbound
}

func (s *Sink) Consume(_ context.Context, e event.Outbound) error {
	s.events = append(s.events, e)
	return nil
}

func newTestRegistry() *Registry {
	return NewRegistry(logs.GetLoggerFromLevel(slog.LevelDebug))
}

func TestRegistry_Register_And_Resolve(t *testing.T) {
	req := require.New(t)
	registry := newTestRegistry()
	sink := &Sink{name: "conn1"}

	// Given no user is connected
	req.Zero(registry.Len())
	_, ok := registry.Resolve("alice")
	req.False(ok)

	// When alice registers
	req.NoError(registry.Register("alice", sink))

	// Then her connection is resolved
	resolved, ok := registry.Resolve("alice")
	req.True(ok)
	req.Same(sink, resolved)
	req.Equal(1, registry.Len())
}

func TestRegistry_Second_Registration_Supersedes_The_First(t *testing.T) {
	req := require.New(t)
	registry := newTestRegistry()
	first := &Sink{name: "conn1"}
	second := &Sink{name: "conn2"}

	// Given alice registered from a first connection
	req.NoError(registry.Register("alice", first))

	// When she registers again from a second one
	req.NoError(registry.Register("alice", second))

	// Then only the second is tracked
	resolved, ok := registry.Resolve("alice")
	req.True(ok)
	req.Same(second, resolved)
	req.Equal(1, registry.Len())

	// And closing the superseded connection doesn't log her out
	req.Empty(registry.Unregister(first))
	_, ok = registry.Resolve("alice")
	req.True(ok)
}

func TestRegistry_Unregister_Removes_Every_Identity_Of_The_Connection(t *testing.T) {
	req := require.New(t)
	registry := newTestRegistry()
	shared := &Sink{name: "shared"}
	other := &Sink{name: "other"}

	// Given one connection registered under two identities
	req.NoError(registry.Register("alice", shared))
	req.NoError(registry.Register("alice-alt", shared))
	req.NoError(registry.Register("bob", other))

	// When the connection goes away
	removed := registry.Unregister(shared)

	// Then both identities are offline, bob is untouched
	req.ElementsMatch([]chat.UserID{"alice", "alice-alt"}, removed)
	_, ok := registry.Resolve("alice")
	req.False(ok)
	_, ok = registry.Resolve("bob")
	req.True(ok)
	req.Len(registry.Entries(), 1)
}

func TestRegistry_Close_Refuses_New_Registrations(t *testing.T) {
	req := require.New(t)
	registry := newTestRegistry()
	req.NoError(registry.Register("alice", &Sink{}))

	// When the registry is shut down
	registry.Close()

	// Then its state is dropped and it refuses registrations
	req.Zero(registry.Len())
	req.ErrorIs(registry.Register("bob", &Sink{}), errors.ErrRegistryClosed)
}
