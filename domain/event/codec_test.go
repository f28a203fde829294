package event

import (
	"chat-relay/errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestDecode_Known_Events(t *testing.T) {
	tests := []struct {
		name     string
		raw      string
		expected Inbound
	}{
		{
			name:     "register user",
			raw:      `{"event":"registerUser","data":{"userId":"alice"}}`,
			expected: RegisterUser{UserID: "alice"},
		},
		{
			name:     "create chat",
			raw:      `{"event":"createChat","data":{"userId1":"alice","userId2":"bob"}}`,
			expected: CreateChat{UserID1: "alice", UserID2: "bob"},
		},
		{
			name:     "message with legacy type field",
			raw:      `{"event":"message","data":{"sender":"alice","receiver":"bob","type":"image","content":"https://cdn/x.png"}}`,
			expected: SendMessage{Sender: "alice", Receiver: "bob", Type: "image", Content: "https://cdn/x.png"},
		},
		{
			name:     "typing",
			raw:      `{"event":"typing","data":{"sender":"alice","receiver":"bob"}}`,
			expected: Typing{Sender: "alice", Receiver: "bob"},
		},
		{
			name:     "stop typing",
			raw:      `{"event":"stopTyping","data":{"sender":"alice","receiver":"bob"}}`,
			expected: StopTyping{Sender: "alice", Receiver: "bob"},
		},
		{
			name:     "user offline",
			raw:      `{"event":"userOffline","data":{"userId":"alice"}}`,
			expected: SetOffline{UserID: "alice"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := require.New(t)
			in, err := Decode([]byte(tt.raw))
			req.NoError(err)
			req.Equal(tt.expected, in)
		})
	}
}

func TestDecode_Rejects_Unknown_And_Malformed(t *testing.T) {
	req := require.New(t)

	_, err := Decode([]byte(`{"event":"joinRoom","data":{}}`))
	req.ErrorIs(err, errors.ErrUnknownEvent)

	// Disconnect only comes from the transport
	_, err = Decode([]byte(`{"event":"disconnect","data":{}}`))
	req.ErrorIs(err, errors.ErrUnknownEvent)

	_, err = Decode([]byte(`not json`))
	req.ErrorIs(err, errors.ErrMalformedPayload)

	_, err = Decode([]byte(`{"event":"message"}`))
	req.ErrorIs(err, errors.ErrMalformedPayload)

	_, err = Decode([]byte(`{"event":"message","data":{"sender":42}}`))
	req.ErrorIs(err, errors.ErrValidation)
}

func TestEncode_Presence_Uses_Online_Flag_As_Event_Name(t *testing.T) {
	req := require.New(t)
	lastSeen := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

	raw, err := Encode(PresenceChanged{UserID: "alice", Online: false, LastSeen: lastSeen})
	req.NoError(err)
	req.JSONEq(`{"event":"userOffline","data":{"userId":"alice","lastSeen":"2026-01-02T03:04:05Z"}}`, string(raw))

	out, err := DecodeOutbound(raw)
	req.NoError(err)
	req.Equal(PresenceChanged{UserID: "alice", Online: false, LastSeen: lastSeen}, out)
}

func TestEncode_Message_Event(t *testing.T) {
	req := require.New(t)
	at := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	delivered := MessageDelivered{
		MessageID: "m-1",
		SessionID: "s-1",
		Sender:    "alice",
		Receiver:  "bob",
		Kind:      "text",
		Content:   "hello",
		CreatedAt: at,
	}

	raw, err := Encode(delivered)
	req.NoError(err)

	out, err := DecodeOutbound(raw)
	req.NoError(err)
	req.Equal(delivered, out)

	raw, err = Encode(GlobalMessage(delivered))
	req.NoError(err)
	req.Contains(string(raw), `"event":"globalMessage"`)
	out, err = DecodeOutbound(raw)
	req.NoError(err)
	req.Equal(GlobalMessage(delivered), out)
}

func TestSendMessage_Kind_Alias(t *testing.T) {
	req := require.New(t)
	req.Equal("voice", SendMessage{Type: "voice"}.MessageKind())
	req.Equal("video", SendMessage{Kind: "video", Type: "voice"}.MessageKind())
	req.Equal("", SendMessage{}.MessageKind())
}
