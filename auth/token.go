package auth

import (
	"chat-relay/domain/chat"
	"chat-relay/errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const (
	issuer = "chat-relay"
	// DevIdentityHeader carries the caller identity when no secret is configured.
	DevIdentityHeader = "X-User-ID"
)

// CustomClaims defines the structure of the data stored inside the JWT.
type CustomClaims struct {
	UserID string `json:"user_id"`
	jwt.RegisteredClaims
}

// Authenticator issues and checks HS256 tokens.
// With an empty secret it runs in development mode and trusts the X-User-ID header.
type Authenticator struct {
	secret        []byte
	tokenDuration time.Duration
	now           func() time.Time
}

func NewAuthenticator(secret string, tokenDuration time.Duration) *Authenticator {
	return &Authenticator{secret: []byte(secret), tokenDuration: tokenDuration, now: time.Now}
}

func (a *Authenticator) Enabled() bool { return len(a.secret) > 0 }

// GenerateToken creates a signed JWT for a specific user.
func (a *Authenticator) GenerateToken(userID chat.UserID) (string, error) {
	if !a.Enabled() {
		return "", fmt.Errorf("%w: no signing secret configured", errors.ErrUnauthenticated)
	}
	now := a.now()
	claims := &CustomClaims{
		UserID: userID.String(),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID.String(),
			ExpiresAt: jwt.NewNumericDate(now.Add(a.tokenDuration)),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    issuer,
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(a.secret)
}

// ValidateToken parses and validates the signature and expiration of a JWT string.
func (a *Authenticator) ValidateToken(tokenString string) (*CustomClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &CustomClaims{}, func(token *jwt.Token) (any, error) {
		return a.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(issuer),
		jwt.WithTimeFunc(a.now),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errors.ErrUnauthenticated, err)
	}
	claims, ok := token.Claims.(*CustomClaims)
	if !ok || !token.Valid || claims.UserID == "" {
		return nil, fmt.Errorf("%w: invalid claims", errors.ErrUnauthenticated)
	}
	return claims, nil
}

// IdentityFromRequest resolves the caller of an HTTP request.
// The token is read from "Authorization: Bearer <token>" or, for browsers
// opening a WebSocket, from the "token" query parameter.
func (a *Authenticator) IdentityFromRequest(r *http.Request) (chat.UserID, error) {
	if !a.Enabled() {
		userID := strings.TrimSpace(r.Header.Get(DevIdentityHeader))
		if userID == "" {
			return "", fmt.Errorf("%w: missing %s header", errors.ErrUnauthenticated, DevIdentityHeader)
		}
		return chat.UserID(userID), nil
	}

	tokenString, found := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
	if !found {
		tokenString = r.URL.Query().Get("token")
	}
	if tokenString == "" {
		return "", fmt.Errorf("%w: authorization token is missing", errors.ErrUnauthenticated)
	}
	claims, err := a.ValidateToken(tokenString)
	if err != nil {
		return "", err
	}
	return chat.UserID(claims.UserID), nil
}
