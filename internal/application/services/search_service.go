package services

import (
	"context"
	"strings"
	"time"

	"github.com/searchiq/storefront/internal/domain/entities"
	"github.com/searchiq/storefront/internal/domain/providers"
	"github.com/searchiq/storefront/internal/infrastructure/clients/backendapi"
	"github.com/searchiq/storefront/internal/infrastructure/observability"
	apperrors "github.com/searchiq/storefront/pkg/errors"
)

// LiveSearchMinLength is the length a search-as-you-type query must exceed.
const LiveSearchMinLength = 3

// SearchOutcome is the result of one product search.
type SearchOutcome struct {
	Query       string
	Items       interface{}
	Intent      string
	ResultCount int
	Elapsed     time.Duration
}

// SearchService runs product searches and keeps the session's search history.
type SearchService struct {
	api        backendapi.API
	history    providers.HistoryStore
	analytics  *SearchAnalyticsService
	gate       *LoadingGate
	maxResults int
	now        func() time.Time
}

// NewSearchService creates a new search service
func NewSearchService(api backendapi.API, history providers.HistoryStore, analytics *SearchAnalyticsService, gate *LoadingGate, maxResults int) *SearchService {
	if maxResults <= 0 {
		maxResults = 10
	}
	return &SearchService{
		api:        api,
		history:    history,
		analytics:  analytics,
		gate:       gate,
		maxResults: maxResults,
		now:        time.Now,
	}
}

// Search issues the query for sess. It returns ErrInProgress while the
// session's previous search is still running.
func (s *SearchService) Search(ctx context.Context, sess *UserSession, query string) (*SearchOutcome, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, apperrors.NewValidationError("Please enter a search query")
	}

	release, err := s.gate.Acquire(sess.ID(), ActionSearch)
	if err != nil {
		return nil, err
	}
	defer release()

	ctx, span := observability.StartSpan(ctx, "SearchService.Search")
	defer span.End()

	start := s.now()

	env, err := s.api.Search(ctx, sess, entities.SearchRequest{Query: query, MaxResults: s.maxResults})
	elapsed := s.now().Sub(start)
	if err != nil {
		observability.RecordError(span, err)
		s.analytics.Track(&entities.SearchEvent{
			SessionHash: entities.HashSessionID(sess.ID()),
			Action:      ActionSearch,
			Query:       query,
			LatencyMs:   elapsed.Milliseconds(),
			Failed:      true,
		})
		return nil, err
	}

	count := listLen(env.Items)
	outcome := &SearchOutcome{
		Query:       query,
		Items:       env.Items,
		Intent:      env.Intent,
		ResultCount: count,
		Elapsed:     elapsed,
	}

	entry := &entities.SearchHistoryEntry{
		Query:       query,
		ElapsedMs:   elapsed.Milliseconds(),
		ResultCount: count,
		Intent:      env.Intent,
		Timestamp:   s.now().UTC(),
	}
	if err := s.history.Append(ctx, sess.ID(), entry); err != nil {
		observability.LoggerFromContext(ctx).Warn().Err(err).Msg("failed to append search history")
	}
	if err := sess.SetValue(ctx, entities.SessionKeyRecentSearchQuery, query); err != nil {
		observability.LoggerFromContext(ctx).Warn().Err(err).Msg("failed to store recent search query")
	}

	s.analytics.Track(&entities.SearchEvent{
		SessionHash: entities.HashSessionID(sess.ID()),
		Action:      ActionSearch,
		Query:       query,
		Intent:      env.Intent,
		ResultCount: count,
		LatencyMs:   elapsed.Milliseconds(),
	})

	return outcome, nil
}

// SearchAsYouType runs a search typed into the box without submitting. It
// returns a nil outcome, without calling the backend, while the query is
// LiveSearchMinLength runes or shorter.
func (s *SearchService) SearchAsYouType(ctx context.Context, sess *UserSession, query string) (*SearchOutcome, error) {
	if len([]rune(strings.TrimSpace(query))) <= LiveSearchMinLength {
		return nil, nil
	}
	return s.Search(ctx, sess, query)
}

// History returns the session's recent searches, oldest first.
func (s *SearchService) History(ctx context.Context, sessionID string) ([]*entities.SearchHistoryEntry, error) {
	return s.history.List(ctx, sessionID)
}

// Summary aggregates the session's search history.
func (s *SearchService) Summary(ctx context.Context, sessionID string) (*entities.SearchSummary, error) {
	entries, err := s.history.List(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	return entities.SummarizeHistory(entries), nil
}

// ClearHistory drops the session's search history.
func (s *SearchService) ClearHistory(ctx context.Context, sessionID string) error {
	return s.history.Clear(ctx, sessionID)
}

func listLen(v interface{}) int {
	if list, ok := v.([]interface{}); ok {
		return len(list)
	}
	return 0
}
