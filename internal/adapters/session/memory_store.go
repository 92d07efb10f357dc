package session

import (
	"context"
	"sync"
	"time"

	"github.com/searchiq/storefront/internal/domain/providers"
)

type memorySession struct {
	values    map[string]string
	expiresAt time.Time
}

// MemoryStore is the single-process session store used when Redis is disabled.
type MemoryStore struct {
	mu       sync.Mutex
	sessions map[string]*memorySession
	ttl      time.Duration
	now      func() time.Time
}

// NewMemoryStore creates an in-memory session store.
func NewMemoryStore(ttl time.Duration) providers.SessionStore {
	return newMemoryStore(ttl, time.Now)
}

func newMemoryStore(ttl time.Duration, now func() time.Time) *MemoryStore {
	return &MemoryStore{
		sessions: make(map[string]*memorySession),
		ttl:      ttl,
		now:      now,
	}
}

// live returns the session if present and not expired. Caller holds mu.
func (s *MemoryStore) live(sessionID string) *memorySession {
	sess, ok := s.sessions[sessionID]
	if !ok {
		return nil
	}
	if !sess.expiresAt.IsZero() && s.now().After(sess.expiresAt) {
		delete(s.sessions, sessionID)
		return nil
	}
	return sess
}

// sweep drops every expired session. Caller holds mu.
func (s *MemoryStore) sweep() {
	now := s.now()
	for sid, sess := range s.sessions {
		if !sess.expiresAt.IsZero() && now.After(sess.expiresAt) {
			delete(s.sessions, sid)
		}
	}
}

func (s *MemoryStore) Get(ctx context.Context, sessionID, key string) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess := s.live(sessionID)
	if sess == nil {
		return "", false, nil
	}
	val, ok := sess.values[key]
	return val, ok, nil
}

func (s *MemoryStore) Set(ctx context.Context, sessionID, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess := s.live(sessionID)
	if sess == nil {
		s.sweep()
		sess = &memorySession{values: make(map[string]string)}
		s.sessions[sessionID] = sess
	}
	sess.values[key] = value
	if s.ttl > 0 {
		sess.expiresAt = s.now().Add(s.ttl)
	}
	return nil
}

func (s *MemoryStore) Delete(ctx context.Context, sessionID string, keys ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(keys) == 0 {
		delete(s.sessions, sessionID)
		return nil
	}
	if sess := s.live(sessionID); sess != nil {
		for _, k := range keys {
			delete(sess.values, k)
		}
	}
	return nil
}

func (s *MemoryStore) Touch(ctx context.Context, sessionID string, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if sess := s.live(sessionID); sess != nil && ttl > 0 {
		sess.expiresAt = s.now().Add(ttl)
	}
	return nil
}
