package services

import (
	"chat-relay/contract"
	"chat-relay/domain/chat"
	"chat-relay/domain/event"
	"chat-relay/errors"
	"chat-relay/observability"
	"context"
	"fmt"
	"log/slog"
)

// Policy holds the presence side effects of the connection lifecycle.
type Policy struct {
	OnlineOnRegister    bool
	OfflineOnDisconnect bool
}

// Dispatcher routes every inbound event of a connection to the component handling it.
// A connection's events are handled one at a time, in arrival order, by its read loop.
type Dispatcher struct {
	log       *slog.Logger
	validator *Validator
	registry  contract.IRegistry
	delivery  contract.IDelivery
	sessions  ISessionManager
	relay     IRelay
	presence  IPresence
	metrics   observability.IMetrics
	policy    Policy
}

func NewDispatcher(log *slog.Logger, validator *Validator, registry contract.IRegistry,
	delivery contract.IDelivery, sessions ISessionManager, relay IRelay, presence IPresence,
	metrics observability.IMetrics, policy Policy) *Dispatcher {
	return &Dispatcher{
		log:       log,
		validator: validator,
		registry:  registry,
		delivery:  delivery,
		sessions:  sessions,
		relay:     relay,
		presence:  presence,
		metrics:   metrics,
		policy:    policy,
	}
}

// Handle processes one inbound event. Failures are reported to the origin connection only:
// messages get a messageFailed, every other event an error event.
func (d *Dispatcher) Handle(ctx context.Context, origin contract.Connection, in event.Inbound) error {
	name := string(in.Name())
	d.metrics.RecordEvent(name)

	reported, err := d.handle(ctx, origin, in)
	if err == nil {
		return nil
	}
	d.metrics.RecordEventFailure(name)
	d.log.Debug("Event failed", "event", name, "error", err)
	if reported || origin == nil {
		return err
	}
	if _, isMessage := in.(event.SendMessage); isMessage {
		d.delivery.SendToSink(ctx, origin, event.MessageFailed{Info: errors.Info(err)})
	} else {
		d.delivery.SendToSink(ctx, origin, event.Failure{Info: errors.Info(err)})
	}
	return err
}

// handle returns whether the failure was already answered to the client.
func (d *Dispatcher) handle(ctx context.Context, origin contract.Connection, in event.Inbound) (reported bool, err error) {
	if err := d.authorize(origin, in); err != nil {
		return false, err
	}

	switch e := in.(type) {
	case event.RegisterUser:
		return false, d.register(ctx, origin, e)
	case event.CreateChat:
		if err := d.validator.Struct(e); err != nil {
			return false, err
		}
		_, err = d.sessions.OpenSession(ctx, chat.UserID(e.UserID1), chat.UserID(e.UserID2))
		return false, err
	case event.SendMessage:
		_, err = d.relay.SendMessage(ctx, origin, e)
		return true, err
	case event.Typing:
		if err := d.validator.Struct(e); err != nil {
			return false, err
		}
		d.presence.NotifyTyping(ctx, chat.UserID(e.Sender), chat.UserID(e.Receiver))
		return false, nil
	case event.StopTyping:
		if err := d.validator.Struct(e); err != nil {
			return false, err
		}
		d.presence.NotifyStopTyping(ctx, chat.UserID(e.Sender), chat.UserID(e.Receiver))
		return false, nil
	case event.MarkRead:
		if err := d.validator.Struct(e); err != nil {
			return false, err
		}
		return false, d.relay.MarkRead(ctx, chat.MarkReadCommand{SessionID: e.SessionID, Viewer: chat.UserID(e.UserID)})
	case event.SetOnline:
		if err := d.validator.Struct(e); err != nil {
			return false, err
		}
		return false, d.presence.SetOnline(ctx, chat.UserID(e.UserID))
	case event.SetOffline:
		if err := d.validator.Struct(e); err != nil {
			return false, err
		}
		return false, d.presence.SetOffline(ctx, chat.UserID(e.UserID))
	case event.Disconnect:
		if origin != nil {
			d.Disconnect(ctx, origin)
		}
		return false, nil
	default:
		return false, fmt.Errorf("%w: %T", errors.ErrUnknownEvent, in)
	}
}

func (d *Dispatcher) register(ctx context.Context, origin contract.Connection, e event.RegisterUser) error {
	if err := d.validator.Struct(e); err != nil {
		return err
	}
	if origin == nil {
		return errors.ErrConnectionClosed
	}
	userID := chat.UserID(e.UserID)
	if err := d.registry.Register(userID, origin); err != nil {
		return err
	}
	d.log.Info("User registered", "user_id", userID, "connection_id", origin.ID())
	if d.policy.OnlineOnRegister {
		return d.presence.SetOnline(ctx, userID)
	}
	return nil
}

// Disconnect drops every identity of the closing connection. Sessions are not touched.
func (d *Dispatcher) Disconnect(ctx context.Context, conn contract.EventSink) []chat.UserID {
	removed := d.registry.Unregister(conn)
	for _, userID := range removed {
		d.log.Info("User disconnected", "user_id", userID)
		if !d.policy.OfflineOnDisconnect {
			continue
		}
		if err := d.presence.SetOffline(ctx, userID); err != nil {
			d.log.Warn("Unable to record offline presence", "user_id", userID, "error", err)
		}
	}
	return removed
}

// authorize checks that an authenticated connection only acts on behalf of its own identity.
func (d *Dispatcher) authorize(origin contract.Connection, in event.Inbound) error {
	if origin == nil {
		return nil
	}
	identity, ok := origin.Identity()
	if !ok {
		return nil
	}
	var acting string
	switch e := in.(type) {
	case event.RegisterUser:
		acting = e.UserID
	case event.CreateChat:
		// Either side may open the session
		if e.UserID2 == identity.String() {
			return nil
		}
		acting = e.UserID1
	case event.SendMessage:
		acting = e.Sender
	case event.Typing:
		acting = e.Sender
	case event.StopTyping:
		acting = e.Sender
	case event.MarkRead:
		acting = e.UserID
	case event.SetOnline:
		acting = e.UserID
	case event.SetOffline:
		acting = e.UserID
	default:
		return nil
	}
	if acting != identity.String() {
		return fmt.Errorf("%w: %s", errors.ErrIdentityMismatch, identity)
	}
	return nil
}
