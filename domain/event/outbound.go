package event

import "time"

type ChatSessionCreated struct {
	SessionID string `json:"sessionId"`
}

// MessageDelivered is the single event sent to both the sender (echo) and the receiver.
type MessageDelivered struct {
	MessageID string    `json:"messageId"`
	SessionID string    `json:"sessionId"`
	Sender    string    `json:"sender"`
	Receiver  string    `json:"receiver"`
	Kind      string    `json:"kind"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"createdAt"`
}

// GlobalMessage mirrors MessageDelivered for clients listening to every
// conversation at once (chat list previews).
type GlobalMessage MessageDelivered

type MessageFailed struct {
	Info string `json:"info"`
}

type TypingSignal struct {
	Sender string `json:"sender"`
	Status bool   `json:"status"`
}

type StopTypingSignal struct {
	Sender string `json:"sender"`
	Status bool   `json:"status"`
}

// PresenceChanged is emitted as userOnline or userOffline depending on Online.
type PresenceChanged struct {
	UserID   string    `json:"userId"`
	Online   bool      `json:"-"`
	LastSeen time.Time `json:"lastSeen"`
}

type MessagesRead struct {
	SessionID string `json:"sessionId"`
	Reader    string `json:"reader"`
}

// Failure reports an error to the connection that triggered it.
type Failure struct {
	Info string `json:"info"`
}

func (ChatSessionCreated) Name() Name { return ChatSessionCreatedName }
func (MessageDelivered) Name() Name   { return MessageName }
func (GlobalMessage) Name() Name      { return GlobalMessageName }
func (MessageFailed) Name() Name      { return MessageFailedName }
func (TypingSignal) Name() Name       { return TypingName }
func (StopTypingSignal) Name() Name   { return StopTypingName }
func (MessagesRead) Name() Name       { return MessagesReadName }
func (Failure) Name() Name            { return ErrorName }

func (p PresenceChanged) Name() Name {
	if p.Online {
		return UserOnlineName
	}
	return UserOfflineName
}

func (ChatSessionCreated) outbound() {}
func (MessageDelivered) outbound()   {}
func (GlobalMessage) outbound()      {}
func (MessageFailed) outbound()      {}
func (TypingSignal) outbound()       {}
func (StopTypingSignal) outbound()   {}
func (PresenceChanged) outbound()    {}
func (MessagesRead) outbound()       {}
func (Failure) outbound()            {}
