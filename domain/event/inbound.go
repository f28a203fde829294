package event

type RegisterUser struct {
	UserID string `json:"userId" validate:"required,identity"`
}

type CreateChat struct {
	UserID1 string `json:"userId1" validate:"required,identity"`
	UserID2 string `json:"userId2" validate:"required,identity,nefield=UserID1"`
}

// SendMessage carries a chat message. Older clients send the kind as "type".
type SendMessage struct {
	Sender   string `json:"sender" validate:"required,identity"`
	Receiver string `json:"receiver" validate:"required,identity,nefield=Sender"`
	Kind     string `json:"kind" validate:"omitempty,oneof=text image video voice"`
	Type     string `json:"type,omitempty" validate:"omitempty,oneof=text image video voice"`
	Content  string `json:"content" validate:"required"`
}

// MessageKind resolves the kind/type alias.
func (m SendMessage) MessageKind() string {
	if m.Kind != "" {
		return m.Kind
	}
	return m.Type
}

type Typing struct {
	Sender   string `json:"sender" validate:"required,identity"`
	Receiver string `json:"receiver" validate:"required,identity,nefield=Sender"`
}

type StopTyping struct {
	Sender   string `json:"sender" validate:"required,identity"`
	Receiver string `json:"receiver" validate:"required,identity,nefield=Sender"`
}

type MarkRead struct {
	SessionID string `json:"sessionId" validate:"required,uuid"`
	UserID    string `json:"userId" validate:"required,identity"`
}

type SetOnline struct {
	UserID string `json:"userId" validate:"required,identity"`
}

type SetOffline struct {
	UserID string `json:"userId" validate:"required,identity"`
}

// Disconnect is synthesized by the transport when the connection terminates.
type Disconnect struct{}

func (RegisterUser) Name() Name { return RegisterUserName }
func (CreateChat) Name() Name   { return CreateChatName }
func (SendMessage) Name() Name  { return MessageName }
func (Typing) Name() Name       { return TypingName }
func (StopTyping) Name() Name   { return StopTypingName }
func (MarkRead) Name() Name     { return MarkReadName }
func (SetOnline) Name() Name    { return UserOnlineName }
func (SetOffline) Name() Name   { return UserOfflineName }
func (Disconnect) Name() Name   { return DisconnectName }

func (RegisterUser) inbound() {}
func (CreateChat) inbound()   {}
func (SendMessage) inbound()  {}
func (Typing) inbound()       {}
func (StopTyping) inbound()   {}
func (MarkRead) inbound()     {}
func (SetOnline) inbound()    {}
func (SetOffline) inbound()   {}
func (Disconnect) inbound()   {}
