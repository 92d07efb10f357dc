package services

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/searchiq/storefront/internal/adapters/cache"
	"github.com/searchiq/storefront/internal/domain/entities"
	"github.com/searchiq/storefront/internal/infrastructure/clients/backendapi"
	"github.com/searchiq/storefront/internal/infrastructure/observability"
	apperrors "github.com/searchiq/storefront/pkg/errors"
)

// deviceModelsTTLSeconds is how long a brand's model list is cached.
const deviceModelsTTLSeconds = 600

// SparePartsService serves the spare-parts and assistant tabs.
type SparePartsService struct {
	api        backendapi.API
	cache      *cache.JSONCache
	analytics  *SearchAnalyticsService
	gate       *LoadingGate
	maxResults int
	now        func() time.Time
}

// NewSparePartsService creates a new spare parts service. cache may be nil.
func NewSparePartsService(api backendapi.API, cache *cache.JSONCache, analytics *SearchAnalyticsService, gate *LoadingGate, maxResults int) *SparePartsService {
	if maxResults <= 0 {
		maxResults = 10
	}
	return &SparePartsService{
		api:        api,
		cache:      cache,
		analytics:  analytics,
		gate:       gate,
		maxResults: maxResults,
		now:        time.Now,
	}
}

// Recommend looks up parts for a brand, model and issue description.
func (s *SparePartsService) Recommend(ctx context.Context, sess *UserSession, filters entities.SearchFilters, maxResults int) (interface{}, error) {
	filters.Brand = strings.TrimSpace(filters.Brand)
	filters.DeviceModel = strings.TrimSpace(filters.DeviceModel)
	filters.IssueDescription = strings.TrimSpace(filters.IssueDescription)
	if filters.Brand == "" || filters.DeviceModel == "" || filters.IssueDescription == "" {
		return nil, apperrors.NewValidationError("Please fill in all required fields")
	}
	if maxResults <= 0 {
		maxResults = s.maxResults
	}

	release, err := s.gate.Acquire(sess.ID(), ActionSpareParts)
	if err != nil {
		return nil, err
	}
	defer release()

	ctx, span := observability.StartSpan(ctx, "SparePartsService.Recommend")
	defer span.End()

	start := s.now()
	items, err := s.api.RecommendSpareParts(ctx, sess, entities.SparePartRequest{
		Brand:            filters.Brand,
		DeviceModel:      filters.DeviceModel,
		IssueDescription: filters.IssueDescription,
		MaxResults:       maxResults,
	})
	s.analytics.Track(&entities.SearchEvent{
		SessionHash: entities.HashSessionID(sess.ID()),
		Action:      ActionSpareParts,
		Query:       filters.Brand + " " + filters.DeviceModel + ": " + filters.IssueDescription,
		ResultCount: listLen(items),
		LatencyMs:   s.now().Sub(start).Milliseconds(),
		Failed:      err != nil,
	})
	if err != nil {
		observability.RecordError(span, err)
		return nil, err
	}

	return items, nil
}

// DeviceModels returns the models of brand, served from cache when possible.
func (s *SparePartsService) DeviceModels(ctx context.Context, sess *UserSession, brand string) ([]string, error) {
	brand = strings.TrimSpace(brand)
	key := "spare-parts:models:" + strings.ToLower(brand)

	if s.cache != nil {
		var models []string
		if hit, err := s.cache.Get(ctx, key, &models); err == nil && hit {
			return models, nil
		}
	}

	models, err := s.api.DeviceModels(ctx, sess, brand)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, key, models, deviceModelsTTLSeconds); err != nil {
			observability.LoggerFromContext(ctx).Warn().Err(err).Str("brand", brand).Msg("failed to cache device models")
		}
	}
	return models, nil
}

// IntelligentRecommendations analyses a free-text problem and recommends parts.
func (s *SparePartsService) IntelligentRecommendations(ctx context.Context, sess *UserSession, problem string) (*entities.RecommendationEnvelope, error) {
	problem = strings.TrimSpace(problem)
	if problem == "" {
		return nil, apperrors.NewValidationError("Please describe your problem to get personalized recommendations")
	}

	release, err := s.gate.Acquire(sess.ID(), ActionRecommendations)
	if err != nil {
		return nil, err
	}
	defer release()

	ctx, span := observability.StartSpan(ctx, "SparePartsService.IntelligentRecommendations")
	defer span.End()

	start := s.now()
	env, err := s.api.IntelligentRecommendations(ctx, sess, entities.RecommendationRequest{
		UserProblem:     problem,
		UserPreferences: s.Preferences(ctx, sess),
		IncludeAnalysis: true,
		MaxResults:      s.maxResults,
	})
	if err != nil {
		observability.RecordError(span, err)
		s.analytics.Track(&entities.SearchEvent{
			SessionHash: entities.HashSessionID(sess.ID()),
			Action:      ActionRecommendations,
			Query:       problem,
			LatencyMs:   s.now().Sub(start).Milliseconds(),
			Failed:      true,
		})
		return nil, err
	}

	intent := ""
	if env.DetectedIssue != nil {
		intent = env.DetectedIssue.DeviceType
	}
	s.analytics.Track(&entities.SearchEvent{
		SessionHash: entities.HashSessionID(sess.ID()),
		Action:      ActionRecommendations,
		Query:       problem,
		Intent:      intent,
		ResultCount: env.TotalFound,
		LatencyMs:   s.now().Sub(start).Milliseconds(),
	})

	if env.DetectedIssue != nil && env.DetectedIssue.DeviceType != "" {
		prefs := s.Preferences(ctx, sess)
		prefs["last_device_type"] = env.DetectedIssue.DeviceType
		if err := s.SavePreferences(ctx, sess, prefs); err != nil {
			observability.LoggerFromContext(ctx).Warn().Err(err).Msg("failed to save spare parts preferences")
		}
	}

	return env, nil
}

// Preferences returns the session's stored preference blob; unreadable or
// missing data yields an empty map.
func (s *SparePartsService) Preferences(ctx context.Context, sess *UserSession) map[string]interface{} {
	prefs := map[string]interface{}{}
	raw, ok := sess.Value(ctx, entities.SessionKeySparePartsPrefs)
	if !ok || raw == "" {
		return prefs
	}
	if err := json.Unmarshal([]byte(raw), &prefs); err != nil {
		return map[string]interface{}{}
	}
	return prefs
}

// SavePreferences replaces the session's preference blob.
func (s *SparePartsService) SavePreferences(ctx context.Context, sess *UserSession, prefs map[string]interface{}) error {
	data, err := json.Marshal(prefs)
	if err != nil {
		return err
	}
	return sess.SetValue(ctx, entities.SessionKeySparePartsPrefs, string(data))
}
