// Package event defines the closed set of real-time events exchanged with clients.
// Inbound and Outbound are sealed: only this package can add variants, so a new
// kind of event has to be handled by the codec and the dispatcher switches.
package event

type Name string

const (
	RegisterUserName Name = "registerUser"
	CreateChatName   Name = "createChat"
	MessageName      Name = "message"
	TypingName       Name = "typing"
	StopTypingName   Name = "stopTyping"
	MarkReadName     Name = "markRead"
	UserOnlineName   Name = "userOnline"
	UserOfflineName  Name = "userOffline"
	DisconnectName   Name = "disconnect"

	ChatSessionCreatedName Name = "chatSessionCreated"
	MessageFailedName      Name = "messageFailed"
	MessagesReadName       Name = "messagesRead"
	GlobalMessageName      Name = "globalMessage"
	ErrorName              Name = "error"
)

// Inbound is an event emitted by a client.
type Inbound interface {
	Name() Name
	inbound()
}

// Outbound is an event pushed to a client connection.
type Outbound interface {
	Name() Name
	outbound()
}
