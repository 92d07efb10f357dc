package services

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/searchiq/storefront/internal/domain/entities"
	"github.com/searchiq/storefront/internal/domain/repositories"
)

// SearchAnalyticsService records searches without blocking the request path.
type SearchAnalyticsService struct {
	repo repositories.SearchAnalyticsRepository
}

// NewSearchAnalyticsService creates the service. A nil repo disables tracking.
func NewSearchAnalyticsService(repo repositories.SearchAnalyticsRepository) *SearchAnalyticsService {
	return &SearchAnalyticsService{repo: repo}
}

// Track persists event in the background.
func (s *SearchAnalyticsService) Track(event *entities.SearchEvent) {
	if s == nil || s.repo == nil || event == nil {
		return
	}
	go func() {
		// The request context is usually gone by the time the insert runs.
		bgCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := s.repo.LogEvent(bgCtx, event); err != nil {
			log.Warn().Err(err).Str("action", event.Action).Msg("failed to log search event")
		}
	}()
}

// GetZeroResultQueries lists the session's recent searches that returned
// nothing.
func (s *SearchAnalyticsService) GetZeroResultQueries(ctx context.Context, sessionID string, limit int) ([]*entities.SearchEvent, error) {
	if s == nil || s.repo == nil {
		return nil, nil
	}
	return s.repo.GetZeroResultQueries(ctx, entities.HashSessionID(sessionID), limit)
}
