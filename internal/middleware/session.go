// Package middleware provides HTTP middlewares for sessions, logging and
// metrics.
package middleware

import (
	"context"
	"net/http"

	"github.com/atinyakov/globify/internal/models"
	"go.uber.org/zap"
)

type ctxKey string

const userKey ctxKey = "user"

// SessionReader extracts the signed-in username from a request.
type SessionReader interface {
	Username(r *http.Request) (string, bool)
}

// UserResolver loads the account behind a session username. It returns
// nil, nil for an account that no longer exists.
type UserResolver interface {
	Resolve(ctx context.Context, username string) (*models.User, error)
}

// SessionAuth resolves the session cookie into a *models.User stored in the
// request context. Requests without a valid session pass through anonymous.
// A lookup failure is logged and the request also continues anonymous.
func SessionAuth(sessions SessionReader, users UserResolver, logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			username, ok := sessions.Username(r)
			if !ok {
				next.ServeHTTP(w, r)
				return
			}

			user, err := users.Resolve(r.Context(), username)
			if err != nil {
				logger.Error("resolve session user", zap.String("username", username), zap.Error(err))
				next.ServeHTTP(w, r)
				return
			}
			if user == nil {
				next.ServeHTTP(w, r)
				return
			}

			next.ServeHTTP(w, r.WithContext(ContextWithUser(r.Context(), user)))
		})
	}
}

// RequireUser redirects anonymous requests to /login.
func RequireUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if UserFromContext(r.Context()) == nil {
			http.Redirect(w, r, "/login", http.StatusSeeOther)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// ContextWithUser returns a copy of ctx carrying user.
func ContextWithUser(ctx context.Context, user *models.User) context.Context {
	return context.WithValue(ctx, userKey, user)
}

// UserFromContext returns the signed-in user, or nil for anonymous requests.
func UserFromContext(ctx context.Context) *models.User {
	if u, ok := ctx.Value(userKey).(*models.User); ok {
		return u
	}
	return nil
}
