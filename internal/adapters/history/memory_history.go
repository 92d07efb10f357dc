package history

import (
	"context"
	"sync"
	"time"

	"github.com/searchiq/storefront/internal/domain/entities"
	"github.com/searchiq/storefront/internal/domain/providers"
)

type memoryList struct {
	entries   []*entities.SearchHistoryEntry
	expiresAt time.Time
}

// MemoryHistory is the in-process history store. A session's list expires
// ttl after its last append, like the session itself.
type MemoryHistory struct {
	mu         sync.Mutex
	lists      map[string]*memoryList
	maxEntries int
	ttl        time.Duration
	now        func() time.Time
}

// NewMemoryHistory creates an in-memory history store. A zero ttl keeps
// lists until they are cleared.
func NewMemoryHistory(maxEntries int, ttl time.Duration) providers.HistoryStore {
	return newMemoryHistory(maxEntries, ttl, time.Now)
}

func newMemoryHistory(maxEntries int, ttl time.Duration, now func() time.Time) *MemoryHistory {
	if maxEntries <= 0 {
		maxEntries = entities.DefaultSearchHistorySize
	}
	return &MemoryHistory{
		lists:      make(map[string]*memoryList),
		maxEntries: maxEntries,
		ttl:        ttl,
		now:        now,
	}
}

// live returns the session's list if present and not expired. Caller holds mu.
func (h *MemoryHistory) live(sessionID string) *memoryList {
	l, ok := h.lists[sessionID]
	if !ok {
		return nil
	}
	if !l.expiresAt.IsZero() && h.now().After(l.expiresAt) {
		delete(h.lists, sessionID)
		return nil
	}
	return l
}

// sweep drops every expired list. Caller holds mu.
func (h *MemoryHistory) sweep() {
	now := h.now()
	for sid, l := range h.lists {
		if !l.expiresAt.IsZero() && now.After(l.expiresAt) {
			delete(h.lists, sid)
		}
	}
}

func (h *MemoryHistory) Append(ctx context.Context, sessionID string, entry *entities.SearchHistoryEntry) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	l := h.live(sessionID)
	if l == nil {
		h.sweep()
		l = &memoryList{}
		h.lists[sessionID] = l
	}

	list := append(l.entries, entry)
	if over := len(list) - h.maxEntries; over > 0 {
		list = append([]*entities.SearchHistoryEntry(nil), list[over:]...)
	}
	l.entries = list
	if h.ttl > 0 {
		l.expiresAt = h.now().Add(h.ttl)
	}
	return nil
}

func (h *MemoryHistory) List(ctx context.Context, sessionID string) ([]*entities.SearchHistoryEntry, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	l := h.live(sessionID)
	if l == nil {
		return []*entities.SearchHistoryEntry{}, nil
	}
	out := make([]*entities.SearchHistoryEntry, len(l.entries))
	copy(out, l.entries)
	return out, nil
}

func (h *MemoryHistory) Clear(ctx context.Context, sessionID string) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	delete(h.lists, sessionID)
	return nil
}
