package services

import (
	"chat-relay/contract"
	"chat-relay/domain/chat"
	"chat-relay/domain/event"
	"chat-relay/errors"
	"chat-relay/moderation"
	"chat-relay/observability"
	"chat-relay/repositories"
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"
)

// FailedToCreateMessage is the info of messageFailed when the message could not be stored.
const FailedToCreateMessage = "Failed to create message"

// Moderator rewrites text content before it is stored. Optional.
type Moderator interface {
	Moderate(content string) moderation.Review
}

type IRelay interface {
	SendMessage(ctx context.Context, origin contract.EventSink, cmd event.SendMessage) (chat.Message, error)
	MarkRead(ctx context.Context, cmd chat.MarkReadCommand) error
}

// Relay persists messages and fans them out to the participants.
type Relay struct {
	log              *slog.Logger
	validator        *Validator
	sessions         ISessionManager
	repository       repositories.IChatRepository
	delivery         contract.IDelivery
	moderator        Moderator
	metrics          observability.IMetrics
	maxContentLength int
	now              func() time.Time
}

func NewRelay(log *slog.Logger, validator *Validator, sessions ISessionManager,
	repository repositories.IChatRepository, delivery contract.IDelivery,
	moderator Moderator, metrics observability.IMetrics, maxContentLength int) *Relay {
	return &Relay{
		log:              log,
		validator:        validator,
		sessions:         sessions,
		repository:       repository,
		delivery:         delivery,
		moderator:        moderator,
		metrics:          metrics,
		maxContentLength: maxContentLength,
		now:              time.Now,
	}
}

// SendMessage validates, stores and routes a message.
// Failures are answered with messageFailed to the origin connection only, nothing is retried.
// The message is delivered once to the sender (echo) and once to the receiver when online,
// each followed by the same payload as globalMessage.
func (r *Relay) SendMessage(ctx context.Context, origin contract.EventSink, cmd event.SendMessage) (chat.Message, error) {
	sender, receiver := chat.UserID(cmd.Sender), chat.UserID(cmd.Receiver)

	kind, err := r.validate(cmd)
	if err != nil {
		r.metrics.RecordMessageFailure(observability.ReasonValidation)
		r.fail(ctx, origin, sender, errors.Info(err))
		return chat.Message{}, err
	}

	session, _, err := r.sessions.FindOrCreateSession(ctx, sender, receiver)
	if err != nil {
		r.log.Error("Unable to resolve chat session", "sender", sender, "receiver", receiver, "error", err)
		r.metrics.RecordMessageFailure(observability.ReasonPersistence)
		r.fail(ctx, origin, sender, FailedToCreateMessage)
		return chat.Message{}, err
	}

	content := cmd.Content
	if kind == chat.KindText && r.moderator != nil {
		review := r.moderator.Moderate(content)
		r.metrics.RecordCensored(review.Lang, review.Matches)
		content = review.Content
	}

	message := chat.NewMessage(session.ID, sender, kind, content, r.now())
	start := time.Now()
	if _, err = r.repository.AppendMessage(ctx, session.ID, message); err != nil {
		r.log.Error("Unable to store message", "session_id", session.ID, "sender", sender, "error", err)
		r.metrics.RecordMessageFailure(observability.ReasonPersistence)
		r.fail(ctx, origin, sender, FailedToCreateMessage)
		return chat.Message{}, err
	}
	r.metrics.RecordMessagePersisted(time.Since(start))

	payload := toMessageDelivered(message, receiver)
	delivered := r.delivery.SendTo(ctx, payload, sender, receiver)
	r.delivery.SendTo(ctx, event.GlobalMessage(payload), sender, receiver)
	r.log.Debug("Message relayed", "session_id", session.ID, "message_id", message.ID, "deliveries", delivered)
	return message, nil
}

// MarkRead flags as read the messages the requester received in the session
// and tells both participants about it.
func (r *Relay) MarkRead(ctx context.Context, cmd chat.MarkReadCommand) error {
	session, err := r.repository.GetSession(ctx, cmd.SessionID)
	if err != nil {
		return err
	}
	if !session.Participants.Contains(cmd.Viewer) {
		return fmt.Errorf("%w: %s", errors.ErrNotParticipant, cmd.Viewer)
	}
	if err = r.repository.SetAllRead(ctx, cmd.SessionID, cmd.Viewer); err != nil {
		return err
	}
	r.delivery.SendTo(ctx, event.MessagesRead{SessionID: cmd.SessionID, Reader: cmd.Viewer.String()},
		session.Participants.Participants()...)
	return nil
}

func (r *Relay) validate(cmd event.SendMessage) (chat.Kind, error) {
	if err := r.validator.Struct(cmd); err != nil {
		return "", err
	}
	kind, err := chat.ParseKind(cmd.MessageKind())
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(cmd.Content) == "" {
		return "", errors.ErrEmptyContent
	}
	if utf8.RuneCountInString(cmd.Content) > r.maxContentLength {
		return "", fmt.Errorf("%w: more than %d characters", errors.ErrContentTooLong, r.maxContentLength)
	}
	return kind, nil
}

// fail reports to the origin connection, or to the sender's connection when the
// event did not come from a connection.
func (r *Relay) fail(ctx context.Context, origin contract.EventSink, sender chat.UserID, info string) {
	failed := event.MessageFailed{Info: info}
	if origin != nil {
		r.delivery.SendToSink(ctx, origin, failed)
		return
	}
	if !sender.IsZero() {
		r.delivery.SendTo(ctx, failed, sender)
	}
}

func toMessageDelivered(m chat.Message, receiver chat.UserID) event.MessageDelivered {
	return event.MessageDelivered{
		MessageID: m.ID.String(),
		SessionID: m.SessionID,
		Sender:    m.Sender.String(),
		Receiver:  receiver.String(),
		Kind:      string(m.Kind),
		Content:   m.Content,
		CreatedAt: m.CreatedAt,
	}
}
