package providers

import (
	"context"
	"time"
)

// SessionStore persists per-session key-value data. Keys are flat strings;
// a missing key reads as ("", false, nil).
type SessionStore interface {
	Get(ctx context.Context, sessionID, key string) (string, bool, error)
	Set(ctx context.Context, sessionID, key, value string) error
	Delete(ctx context.Context, sessionID string, keys ...string) error
	// Touch extends the lifetime of every key in the session.
	Touch(ctx context.Context, sessionID string, ttl time.Duration) error
}

// SessionProvider is the capability handed to every request-issuing call.
type SessionProvider interface {
	// BuildAuthHeaders returns the headers for a backend call. Authorization
	// is only present when a token exists.
	BuildAuthHeaders(ctx context.Context) map[string]string

	// Logout clears the credential and profile from the session.
	Logout(ctx context.Context) error
}
