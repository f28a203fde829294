package event

import (
	"chat-relay/errors"
	"encoding/json"
	"fmt"
)

// Envelope is the wire frame: {"event": "message", "data": {...}}.
type Envelope struct {
	Event Name            `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// Decode parses a client frame into one of the inbound variants.
// Disconnect is never accepted from the wire, the transport synthesizes it.
func Decode(raw []byte) (Inbound, error) {
	var env Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, fmt.Errorf("%w: %v", errors.ErrMalformedPayload, err)
	}
	switch env.Event {
	case RegisterUserName:
		return asInbound[RegisterUser](env)
	case CreateChatName:
		return asInbound[CreateChat](env)
	case MessageName:
		return asInbound[SendMessage](env)
	case TypingName:
		return asInbound[Typing](env)
	case StopTypingName:
		return asInbound[StopTyping](env)
	case MarkReadName:
		return asInbound[MarkRead](env)
	case UserOnlineName:
		return asInbound[SetOnline](env)
	case UserOfflineName:
		return asInbound[SetOffline](env)
	default:
		return nil, fmt.Errorf("%w: %q", errors.ErrUnknownEvent, env.Event)
	}
}

// DecodeOutbound parses a server frame, used by clients.
func DecodeOutbound(raw []byte) (Outbound, error) {
	var env Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, fmt.Errorf("%w: %v", errors.ErrMalformedPayload, err)
	}
	switch env.Event {
	case ChatSessionCreatedName:
		return asOutbound[ChatSessionCreated](env)
	case MessageName:
		return asOutbound[MessageDelivered](env)
	case GlobalMessageName:
		return asOutbound[GlobalMessage](env)
	case MessageFailedName:
		return asOutbound[MessageFailed](env)
	case TypingName:
		return asOutbound[TypingSignal](env)
	case StopTypingName:
		return asOutbound[StopTypingSignal](env)
	case UserOnlineName, UserOfflineName:
		p, err := decodeData[PresenceChanged](env)
		if err != nil {
			return nil, err
		}
		p.Online = env.Event == UserOnlineName
		return p, nil
	case MessagesReadName:
		return asOutbound[MessagesRead](env)
	case ErrorName:
		return asOutbound[Failure](env)
	default:
		return nil, fmt.Errorf("%w: %q", errors.ErrUnknownEvent, env.Event)
	}
}

// Encode wraps an outbound event into its envelope.
func Encode(e Outbound) ([]byte, error) {
	return encode(e.Name(), e)
}

// EncodeInbound is the client side counterpart of Encode.
func EncodeInbound(e Inbound) ([]byte, error) {
	return encode(e.Name(), e)
}

func encode(name Name, payload any) ([]byte, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return json.Marshal(Envelope{Event: name, Data: data})
}

func asInbound[T Inbound](env Envelope) (Inbound, error) {
	payload, err := decodeData[T](env)
	if err != nil {
		return nil, err
	}
	return payload, nil
}

func asOutbound[T Outbound](env Envelope) (Outbound, error) {
	payload, err := decodeData[T](env)
	if err != nil {
		return nil, err
	}
	return payload, nil
}

func decodeData[T any](env Envelope) (T, error) {
	var payload T
	if len(env.Data) == 0 {
		return payload, fmt.Errorf("%w: %s has no data", errors.ErrMalformedPayload, env.Event)
	}
	if err := json.Unmarshal(env.Data, &payload); err != nil {
		return payload, fmt.Errorf("%w: %s: %v", errors.ErrMalformedPayload, env.Event, err)
	}
	return payload, nil
}
