package auth

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/sakif/snippet-hub/internal/apperror"
	"github.com/sakif/snippet-hub/internal/model"
)

// SessionCookie carries the signed session token.
const SessionCookie = "session"

// UserLookup is the one repository call the middleware needs.
type UserLookup interface {
	GetUserByID(ctx context.Context, id string) (*model.User, error)
}

// contextKey is unexported so no other package can read or shadow the
// identity stored under it.
type contextKey string

const identityKey contextKey = "identity"

// Sessions resolves the session cookie into a model.Identity.
type Sessions struct {
	tokens *TokenService
	users  UserLookup
	secure bool
	logger *slog.Logger
}

// NewSessions wires the token service to the user store. secure sets the
// Secure flag on every cookie it writes.
func NewSessions(tokens *TokenService, users UserLookup, secure bool, logger *slog.Logger) *Sessions {
	return &Sessions{tokens: tokens, users: users, secure: secure, logger: logger}
}

// Middleware resolves the caller on every request. It never rejects: a
// missing, expired or forged cookie, or one that names a deleted user, just
// leaves the request anonymous. Route guards (RequireAuth, RequireAdmin)
// decide what anonymous callers may do.
func (s *Sessions) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		cookie, err := r.Cookie(SessionCookie)
		if err != nil || cookie.Value == "" {
			next.ServeHTTP(w, r)
			return
		}

		userID, err := s.tokens.Validate(cookie.Value)
		if err != nil {
			s.logger.Debug("ignoring invalid session", slog.String("error", err.Error()))
			next.ServeHTTP(w, r)
			return
		}

		user, err := s.users.GetUserByID(r.Context(), userID)
		if err != nil {
			if !errors.Is(err, apperror.ErrNotFound) {
				s.logger.Error("loading session user",
					slog.String("userID", userID),
					slog.String("error", err.Error()),
				)
			}
			next.ServeHTTP(w, r)
			return
		}

		next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), user.Identity())))
	})
}

// Issue signs a token for user and sets it as the session cookie.
func (s *Sessions) Issue(w http.ResponseWriter, user *model.User) error {
	token, err := s.tokens.Generate(user.ID)
	if err != nil {
		return err
	}
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookie,
		Value:    token,
		Path:     "/",
		MaxAge:   int(s.tokens.TTL() / time.Second),
		HttpOnly: true,
		Secure:   s.secure,
		SameSite: http.SameSiteLaxMode,
	})
	return nil
}

// Clear expires the session cookie.
func (s *Sessions) Clear(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   s.secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// WithIdentity returns a copy of ctx carrying id.
func WithIdentity(ctx context.Context, id model.Identity) context.Context {
	return context.WithValue(ctx, identityKey, id)
}

// IdentityFromContext returns the caller, or the anonymous zero Identity.
func IdentityFromContext(ctx context.Context) model.Identity {
	id, _ := ctx.Value(identityKey).(model.Identity)
	return id
}

// RequireAuth rejects anonymous callers with 401.
func RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !IdentityFromContext(r.Context()).Authenticated() {
			writeDenied(w, http.StatusUnauthorized, "unauthorized", "valid authentication required")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RequireAdmin rejects anonymous callers with 401 and everyone but the admin
// with 403.
func RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := IdentityFromContext(r.Context())
		switch {
		case !id.Authenticated():
			writeDenied(w, http.StatusUnauthorized, "unauthorized", "valid authentication required")
		case !id.IsAdmin():
			writeDenied(w, http.StatusForbidden, "forbidden", "admin access required")
		default:
			next.ServeHTTP(w, r)
		}
	})
}

// writeDenied mirrors the handler package's error body without importing it.
func writeDenied(w http.ResponseWriter, status int, kind, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(`{"error":"` + kind + `","message":"` + message + `"}` + "\n"))
}
