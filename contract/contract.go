//go:generate go run go.uber.org/mock/mockgen -source=contract.go -destination=../mocks/mock_contract.go -package=mocks
package contract

import (
	"chat-relay/domain/chat"
	"chat-relay/domain/event"
	"context"
	"reflect"
)

type ISupervisor interface {
	Add(worker ...Worker) ISupervisor
	Run(ctx context.Context)
	Start(ctx context.Context, worker Worker)
	Stop()
}

type WorkerName string

// Worker doesn't protect itself
// Can be silly, focused
type Worker interface {
	Run(ctx context.Context) error
}

// GetWorkerName uses reflection to retrieve the type name of the worker.
// This is used for logging and supervision purposes during worker initialization
// or lifecycle events, avoiding the need for manual naming in the Worker interface.
func GetWorkerName(w Worker) string {
	if w == nil {
		return "NilWorker"
	}
	t := reflect.TypeOf(w)
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	return t.Name()
}

// EventSink is the delivery side of a live connection.
// Implementations must be comparable (pointers) since the registry
// looks them up by identity on disconnect.
type EventSink interface {
	Consume(ctx context.Context, e event.Outbound) error
}

// Connection is the transport handle the dispatcher receives events from.
// Identity is the user attached by the authentication layer, if any.
type Connection interface {
	EventSink
	ID() string
	Identity() (chat.UserID, bool)
}

// Entry is a snapshot line of the registry.
type Entry struct {
	UserID chat.UserID
	Sink   EventSink
}

type IRegistry interface {
	Register(userID chat.UserID, sink EventSink) error
	Resolve(userID chat.UserID) (EventSink, bool)
	Unregister(sink EventSink) []chat.UserID
	Entries() []Entry
	Len() int
}

// IDelivery fans events out to the resolved connections.
// An identity without connection is skipped silently, it is not an error.
type IDelivery interface {
	SendTo(ctx context.Context, e event.Outbound, userIDs ...chat.UserID) int
	SendToSink(ctx context.Context, sink EventSink, e event.Outbound) bool
	Broadcast(ctx context.Context, e event.Outbound, except chat.UserID) int
}
