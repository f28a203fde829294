package runtime

import (
	"chat-relay/contract"
	"chat-relay/domain/chat"
	"chat-relay/errors"
	"log/slog"
	"sync"

	"github.com/samber/lo"
)

// Registry maps each online identity to its live connection.
// It is process-local and volatile: after a restart clients rebuild it by registering again.
type Registry struct {
	mu          sync.RWMutex
	log         *slog.Logger
	connections map[chat.UserID]contract.EventSink // map identity -> Sink
	closed      bool
}

func NewRegistry(log *slog.Logger) *Registry {
	return &Registry{
		log:         log,
		connections: make(map[chat.UserID]contract.EventSink),
	}
}

// Register inserts or overwrites the mapping for userID.
// At most one connection is tracked per identity, a new registration supersedes the previous one.
func (r *Registry) Register(userID chat.UserID, sink contract.EventSink) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return errors.ErrRegistryClosed
	}
	if previous, ok := r.connections[userID]; ok && previous != sink {
		r.log.Debug("Connection superseded", "user_id", userID)
	}
	r.connections[userID] = sink
	return nil
}

// Resolve returns the live connection of userID. Absence is the offline signal.
func (r *Registry) Resolve(userID chat.UserID) (contract.EventSink, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	sink, ok := r.connections[userID]
	return sink, ok
}

// Unregister removes every identity currently mapped to sink and returns them.
// Identities that were superseded by another connection are left untouched.
func (r *Registry) Unregister(sink contract.EventSink) []chat.UserID {
	r.mu.Lock()
	defer r.mu.Unlock()

	var removed []chat.UserID
	for userID, s := range r.connections {
		if s == sink {
			delete(r.connections, userID)
			removed = append(removed, userID)
		}
	}
	return removed
}

// Entries returns a snapshot, safe to iterate without holding the lock.
func (r *Registry) Entries() []contract.Entry {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return lo.MapToSlice(r.connections, func(userID chat.UserID, sink contract.EventSink) contract.Entry {
		return contract.Entry{UserID: userID, Sink: sink}
	})
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.connections)
}

// Close ends the registry lifecycle: every mapping is dropped and
// further registrations are refused.
func (r *Registry) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.closed = true
	r.log.Info("Closing connection registry", "connections", len(r.connections))
	clear(r.connections)
}
