package repositories

import (
	"context"

	"github.com/searchiq/storefront/internal/domain/entities"
)

// SearchAnalyticsRepository persists search events for offline analysis.
type SearchAnalyticsRepository interface {
	LogEvent(ctx context.Context, event *entities.SearchEvent) error
	GetZeroResultQueries(ctx context.Context, sessionHash string, limit int) ([]*entities.SearchEvent, error)
}
