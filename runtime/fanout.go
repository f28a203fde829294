package runtime

import (
	"chat-relay/contract"
	"chat-relay/domain/chat"
	"chat-relay/domain/event"
	"chat-relay/observability"
	"context"
	"log/slog"
	"time"
)

// EventFanout routes outbound events to the live connections resolved from the registry.
//
// Delivery is best-effort: an identity without connection is a routing miss,
// a connection that cannot accept the event within sinkTimeout loses it.
// Nothing is queued or retried.
//
// EventFanout is safe for concurrent use by multiple goroutines.
type EventFanout struct {
	log         *slog.Logger
	registry    contract.IRegistry
	metrics     observability.IMetrics
	sinkTimeout time.Duration
}

func NewEventFanout(log *slog.Logger, registry contract.IRegistry,
	metrics observability.IMetrics, sinkTimeout time.Duration) *EventFanout {
	return &EventFanout{log: log, registry: registry, metrics: metrics, sinkTimeout: sinkTimeout}
}

// SendTo delivers e once per distinct connection among userIDs and returns the number of deliveries.
func (f *EventFanout) SendTo(ctx context.Context, e event.Outbound, userIDs ...chat.UserID) int {
	seen := make(map[contract.EventSink]struct{}, len(userIDs))
	delivered := 0
	for _, userID := range userIDs {
		sink, ok := f.registry.Resolve(userID)
		if !ok {
			f.log.Debug("Routing miss, user is offline", "user_id", userID, "event", e.Name())
			f.metrics.RecordDelivery(observability.Offline)
			continue
		}
		if _, dup := seen[sink]; dup {
			continue
		}
		seen[sink] = struct{}{}
		if f.SendToSink(ctx, sink, e) {
			delivered++
		}
	}
	return delivered
}

// SendToSink hands e to a single connection, bounded by the sink timeout.
func (f *EventFanout) SendToSink(ctx context.Context, sink contract.EventSink, e event.Outbound) bool {
	sinkCtx, cancel := context.WithTimeout(ctx, f.sinkTimeout)
	defer cancel()

	if err := sink.Consume(sinkCtx, e); err != nil {
		f.log.Debug("Event dropped for connection", "event", e.Name(), "error", err)
		f.metrics.RecordDelivery(observability.Dropped)
		return false
	}
	f.metrics.RecordDelivery(observability.Delivered)
	return true
}

// Broadcast delivers e to every registered connection except the one of except.
func (f *EventFanout) Broadcast(ctx context.Context, e event.Outbound, except chat.UserID) int {
	var skip contract.EventSink
	if except != "" {
		skip, _ = f.registry.Resolve(except)
	}

	seen := make(map[contract.EventSink]struct{})
	delivered := 0
	for _, entry := range f.registry.Entries() {
		if entry.UserID == except || (skip != nil && entry.Sink == skip) {
			continue
		}
		if _, dup := seen[entry.Sink]; dup {
			continue
		}
		seen[entry.Sink] = struct{}{}
		if f.SendToSink(ctx, entry.Sink, e) {
			delivered++
		}
	}
	return delivered
}
