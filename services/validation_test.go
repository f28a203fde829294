package services

import (
	"chat-relay/domain/event"
	"chat-relay/errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestValidator_Struct(t *testing.T) {
	v := newTestValidator()
	tests := []struct {
		name     string
		payload  any
		expected error
	}{
		{name: "valid register", payload: event.RegisterUser{UserID: "alice"}},
		{name: "missing identity", payload: event.RegisterUser{}, expected: errors.ErrInvalidIdentity},
		{name: "identity with spaces", payload: event.RegisterUser{UserID: "alice smith"}, expected: errors.ErrInvalidIdentity},
		{name: "identity too long", payload: event.RegisterUser{UserID: strings.Repeat("a", 65)}, expected: errors.ErrInvalidIdentity},
		{name: "chat with itself", payload: event.CreateChat{UserID1: "alice", UserID2: "alice"}, expected: errors.ErrSameParticipant},
		{name: "unknown kind", payload: event.SendMessage{Sender: "alice", Receiver: "bob", Kind: "gif", Content: "x"}, expected: errors.ErrInvalidKind},
		{name: "empty content", payload: event.SendMessage{Sender: "alice", Receiver: "bob"}, expected: errors.ErrEmptyContent},
		{name: "session id is not a uuid", payload: event.MarkRead{SessionID: "nope", UserID: "alice"}, expected: errors.ErrValidation},
		{name: "valid mark read", payload: event.MarkRead{SessionID: "1b4e28ba-2fa1-11d2-883f-0016d3cca427", UserID: "alice"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := require.New(t)
			err := v.Struct(tt.payload)
			if tt.expected == nil {
				req.NoError(err)
				return
			}
			req.ErrorIs(err, tt.expected)
		})
	}
}

func TestValidator_Identity(t *testing.T) {
	req := require.New(t)
	v := newTestValidator()

	req.NoError(v.Identity("bob_42"))
	req.ErrorIs(v.Identity(""), errors.ErrInvalidIdentity)
	req.ErrorIs(v.Identity("bob/../admin"), errors.ErrInvalidIdentity)
}
