package database

import (
	"context"
	"time"

	"github.com/doug-martin/goqu/v9"
	"github.com/google/uuid"

	"github.com/searchiq/storefront/internal/domain/entities"
	"github.com/searchiq/storefront/internal/domain/repositories"
	"github.com/searchiq/storefront/internal/infrastructure/clients/postgres"
	"github.com/searchiq/storefront/internal/infrastructure/observability"
	apperrors "github.com/searchiq/storefront/pkg/errors"
)

const searchHistoryEventsTable = "search_history_events"

// SearchAnalyticsAdapter persists search events in Postgres.
type SearchAnalyticsAdapter struct {
	client  *postgres.Client
	db      *goqu.Database
	metrics *observability.Metrics
}

// NewSearchAnalyticsAdapter creates a new search analytics adapter.
func NewSearchAnalyticsAdapter(client *postgres.Client, metrics *observability.Metrics) repositories.SearchAnalyticsRepository {
	return &SearchAnalyticsAdapter{
		client:  client,
		db:      goqu.New("postgres", client.DB()),
		metrics: metrics,
	}
}

// LogEvent inserts one search event.
func (a *SearchAnalyticsAdapter) LogEvent(ctx context.Context, event *entities.SearchEvent) error {
	if event == nil {
		return apperrors.NewValidationError("search event is nil")
	}
	if event.ID == "" {
		event.ID = uuid.New().String()
	}
	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now().UTC()
	}

	record := goqu.Record{
		"id":           event.ID,
		"session_hash": event.SessionHash,
		"action":       event.Action,
		"query":        event.Query,
		"intent":       event.Intent,
		"result_count": event.ResultCount,
		"latency_ms":   event.LatencyMs,
		"failed":       event.Failed,
		"created_at":   event.CreatedAt,
	}

	query, args, err := a.db.Insert(searchHistoryEventsTable).Rows(record).ToSQL()
	if err != nil {
		return apperrors.NewInternalError("failed to build search event insert query", err)
	}

	start := time.Now()
	_, err = a.client.DB().ExecContext(ctx, query, args...)
	observability.RecordDBMetric(ctx, a.metrics, "insert_search_event", time.Since(start))
	if err != nil {
		return apperrors.NewInternalError("failed to log search event", err)
	}

	return nil
}

// GetZeroResultQueries returns one session's most recent successful searches
// that found nothing.
func (a *SearchAnalyticsAdapter) GetZeroResultQueries(ctx context.Context, sessionHash string, limit int) ([]*entities.SearchEvent, error) {
	if limit <= 0 {
		limit = 100
	}

	query, args, err := a.db.From(searchHistoryEventsTable).
		Select("id", "session_hash", "action", "query", "intent", "result_count", "latency_ms", "failed", "created_at").
		Where(
			goqu.C("session_hash").Eq(sessionHash),
			goqu.C("result_count").Eq(0),
			goqu.C("failed").IsFalse(),
		).
		Order(goqu.C("created_at").Desc()).
		Limit(uint(limit)).
		ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build zero result query", err)
	}

	rows, err := a.client.DB().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, apperrors.NewInternalError("failed to get zero result queries", err)
	}
	defer rows.Close()

	var events []*entities.SearchEvent
	for rows.Next() {
		e := &entities.SearchEvent{}
		if err := rows.Scan(
			&e.ID,
			&e.SessionHash,
			&e.Action,
			&e.Query,
			&e.Intent,
			&e.ResultCount,
			&e.LatencyMs,
			&e.Failed,
			&e.CreatedAt,
		); err != nil {
			return nil, apperrors.NewInternalError("failed to scan search event", err)
		}
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewInternalError("failed to iterate search events", err)
	}

	return events, nil
}
