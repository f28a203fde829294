package auth

import (
	"chat-relay/domain/chat"
	"chat-relay/errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestAuthenticator_Token_Round_Trip(t *testing.T) {
	req := require.New(t)
	a := NewAuthenticator("a-long-enough-secret-for-tests", time.Hour)

	token, err := a.GenerateToken("alice")
	req.NoError(err)

	claims, err := a.ValidateToken(token)
	req.NoError(err)
	req.Equal("alice", claims.UserID)
}

func TestAuthenticator_Rejects_Bad_Tokens(t *testing.T) {
	req := require.New(t)
	a := NewAuthenticator("secret-one", time.Hour)
	other := NewAuthenticator("secret-two", time.Hour)

	// Signed with another secret
	token, err := other.GenerateToken("alice")
	req.NoError(err)
	_, err = a.ValidateToken(token)
	req.ErrorIs(err, errors.ErrUnauthenticated)

	// Expired
	expired := NewAuthenticator("secret-one", time.Minute)
	expired.now = func() time.Time { return time.Now().Add(-time.Hour) }
	token, err = expired.GenerateToken("alice")
	req.NoError(err)
	_, err = a.ValidateToken(token)
	req.ErrorIs(err, errors.ErrUnauthenticated)

	_, err = a.ValidateToken("not.a.token")
	req.ErrorIs(err, errors.ErrUnauthenticated)
}

func TestAuthenticator_IdentityFromRequest(t *testing.T) {
	req := require.New(t)
	a := NewAuthenticator("secret", time.Hour)
	token, err := a.GenerateToken("alice")
	req.NoError(err)

	// Bearer header
	r := httptest.NewRequest(http.MethodGet, "/chats", nil)
	r.Header.Set("Authorization", "Bearer "+token)
	userID, err := a.IdentityFromRequest(r)
	req.NoError(err)
	req.Equal(chat.UserID("alice"), userID)

	// Query parameter, used by browsers on /ws
	r = httptest.NewRequest(http.MethodGet, "/ws?token="+token, nil)
	userID, err = a.IdentityFromRequest(r)
	req.NoError(err)
	req.Equal(chat.UserID("alice"), userID)

	// The development header is ignored once a secret is set
	r = httptest.NewRequest(http.MethodGet, "/chats", nil)
	r.Header.Set(DevIdentityHeader, "mallory")
	_, err = a.IdentityFromRequest(r)
	req.ErrorIs(err, errors.ErrUnauthenticated)
}

func TestAuthenticator_Development_Mode(t *testing.T) {
	req := require.New(t)
	a := NewAuthenticator("", time.Hour)
	req.False(a.Enabled())

	r := httptest.NewRequest(http.MethodGet, "/chats", nil)
	r.Header.Set(DevIdentityHeader, "bob")
	userID, err := a.IdentityFromRequest(r)
	req.NoError(err)
	req.Equal(chat.UserID("bob"), userID)

	_, err = a.GenerateToken("bob")
	req.ErrorIs(err, errors.ErrUnauthenticated)
}

func TestMiddleware(t *testing.T) {
	req := require.New(t)
	a := NewAuthenticator("", time.Hour)
	var seen chat.UserID
	handler := Middleware(a)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen, _ = UserIDFromContext(r.Context())
	}))

	// Given no identity, the request is refused
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/chats", nil))
	req.Equal(http.StatusUnauthorized, rec.Code)
	req.Empty(seen)

	// Given an identity, it reaches the handler
	r := httptest.NewRequest(http.MethodGet, "/chats", nil)
	r.Header.Set(DevIdentityHeader, "carol")
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, r)
	req.Equal(http.StatusOK, rec.Code)
	req.Equal(chat.UserID("carol"), seen)
}
