package providers

import (
	"context"

	"github.com/searchiq/storefront/internal/domain/entities"
)

// HistoryStore keeps a bounded, oldest-evicted list of searches per session.
type HistoryStore interface {
	Append(ctx context.Context, sessionID string, entry *entities.SearchHistoryEntry) error
	List(ctx context.Context, sessionID string) ([]*entities.SearchHistoryEntry, error)
	Clear(ctx context.Context, sessionID string) error
}
