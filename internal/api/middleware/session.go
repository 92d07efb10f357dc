package middleware

import (
	"context"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/searchiq/storefront/internal/application/services"
	"github.com/searchiq/storefront/pkg/config"
)

type sessionIDKey struct{}

// WithSessionID returns ctx carrying the browser session id.
func WithSessionID(ctx context.Context, sessionID string) context.Context {
	return context.WithValue(ctx, sessionIDKey{}, sessionID)
}

// SessionIDFromContext returns the session id set by Session, or "".
func SessionIDFromContext(ctx context.Context) string {
	sid, _ := ctx.Value(sessionIDKey{}).(string)
	return sid
}

// Session assigns every browser an opaque session id cookie. Ids that are
// not well-formed are replaced.
func Session(cfg config.SessionConfig) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			var sid string
			if c, err := r.Cookie(cfg.CookieName); err == nil {
				if _, err := uuid.Parse(c.Value); err == nil {
					sid = c.Value
				}
			}
			if sid == "" {
				sid = uuid.NewString()
				SetSessionCookie(w, cfg, sid, 0)
			}
			next.ServeHTTP(w, r.WithContext(WithSessionID(r.Context(), sid)))
		})
	}
}

// SetSessionCookie writes the session cookie. A positive maxAge makes it
// persistent; zero leaves a browser-session cookie.
func SetSessionCookie(w http.ResponseWriter, cfg config.SessionConfig, sessionID string, maxAge time.Duration) {
	cookie := &http.Cookie{
		Name:     cfg.CookieName,
		Value:    sessionID,
		Path:     "/",
		HttpOnly: true,
		Secure:   cfg.SecureCookie,
		SameSite: http.SameSiteLaxMode,
	}
	if maxAge > 0 {
		cookie.MaxAge = int(maxAge.Seconds())
		cookie.Expires = time.Now().Add(maxAge)
	}
	http.SetCookie(w, cookie)
}

// RequireAuth redirects requests without a stored credential to /login
// before anything is rendered. Authenticated sessions get their lifetime
// extended by ttl.
func RequireAuth(auth *services.AuthSessionService, ttl time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sess := auth.Open(SessionIDFromContext(r.Context()))
			if !sess.IsAuthenticated(r.Context()) {
				http.Redirect(w, r, "/login", http.StatusSeeOther)
				return
			}
			if ttl > 0 {
				_ = sess.Touch(r.Context(), ttl)
			}
			next.ServeHTTP(w, r)
		})
	}
}
