package services

import (
	"chat-relay/contract"
	"chat-relay/domain/chat"
	"chat-relay/domain/event"
	"chat-relay/repositories"
	"context"
	"log/slog"
	"time"
)

type IPresence interface {
	SetOnline(ctx context.Context, userID chat.UserID) error
	SetOffline(ctx context.Context, userID chat.UserID) error
	NotifyTyping(ctx context.Context, sender, receiver chat.UserID) bool
	NotifyStopTyping(ctx context.Context, sender, receiver chat.UserID) bool
	LastSeen(ctx context.Context, userID chat.UserID) (repositories.Presence, error)
}

// Presence relays online/offline and typing signals.
// Typing is ephemeral and never stored, presence only keeps the last-seen record.
type Presence struct {
	log        *slog.Logger
	repository repositories.IPresenceRepository
	delivery   contract.IDelivery
	now        func() time.Time
}

func NewPresence(log *slog.Logger, repository repositories.IPresenceRepository, delivery contract.IDelivery) *Presence {
	return &Presence{log: log, repository: repository, delivery: delivery, now: time.Now}
}

func (p *Presence) SetOnline(ctx context.Context, userID chat.UserID) error {
	return p.set(ctx, userID, true)
}

func (p *Presence) SetOffline(ctx context.Context, userID chat.UserID) error {
	return p.set(ctx, userID, false)
}

// set persists then broadcasts to every other connected peer. A store failure means no broadcast.
func (p *Presence) set(ctx context.Context, userID chat.UserID, online bool) error {
	presence := repositories.Presence{UserID: userID, Online: online, LastSeen: p.now().UTC()}
	if err := p.repository.SetPresence(ctx, presence); err != nil {
		return err
	}
	notified := p.delivery.Broadcast(ctx, event.PresenceChanged{
		UserID:   userID.String(),
		Online:   online,
		LastSeen: presence.LastSeen,
	}, userID)
	p.log.Debug("Presence changed", "user_id", userID, "online", online, "notified", notified)
	return nil
}

// NotifyTyping reaches the receiver only, and only when connected.
func (p *Presence) NotifyTyping(ctx context.Context, sender, receiver chat.UserID) bool {
	return p.delivery.SendTo(ctx, event.TypingSignal{Sender: sender.String(), Status: true}, receiver) > 0
}

func (p *Presence) NotifyStopTyping(ctx context.Context, sender, receiver chat.UserID) bool {
	return p.delivery.SendTo(ctx, event.StopTypingSignal{Sender: sender.String(), Status: false}, receiver) > 0
}

func (p *Presence) LastSeen(ctx context.Context, userID chat.UserID) (repositories.Presence, error) {
	return p.repository.GetPresence(ctx, userID)
}
