package auth

import (
	"chat-relay/domain/chat"
	"chat-relay/errors"
	"context"
	"net/http"
)

type contextKey string

const UserIDKey contextKey = "user_id"

// Middleware rejects unauthenticated requests and injects the caller identity into the context.
func Middleware(a *Authenticator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			userID, err := a.IdentityFromRequest(r)
			if err != nil {
				http.Error(w, errors.Info(err), errors.HTTPStatus(err))
				return
			}
			next.ServeHTTP(w, r.WithContext(WithUserID(r.Context(), userID)))
		})
	}
}

func WithUserID(ctx context.Context, userID chat.UserID) context.Context {
	return context.WithValue(ctx, UserIDKey, userID)
}

// UserIDFromContext returns the identity injected by Middleware.
func UserIDFromContext(ctx context.Context) (chat.UserID, bool) {
	userID, ok := ctx.Value(UserIDKey).(chat.UserID)
	return userID, ok && userID != ""
}
