package backendapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/searchiq/storefront/internal/domain/entities"
	"github.com/searchiq/storefront/internal/domain/providers"
	"github.com/searchiq/storefront/internal/infrastructure/observability"
	apperrors "github.com/searchiq/storefront/pkg/errors"
)

// Backend endpoints consumed by the storefront.
const (
	EndpointSearch                     = "/api/search"
	EndpointSparePartsRecommend        = "/api/spare-parts/recommend"
	EndpointSparePartsModels           = "/api/spare-parts/models/"
	EndpointIntelligentRecommendations = "/api/intelligent-recommendations"
	EndpointQuickAnalysis              = "/api/quick-analysis"
	EndpointLogin                      = "/api/auth/login"
	EndpointSignup                     = "/api/auth/signup"
)

// API is the set of backend calls used by the application services.
type API interface {
	Request(ctx context.Context, session providers.SessionProvider, endpoint string, payload interface{}) (json.RawMessage, error)
	Fetch(ctx context.Context, session providers.SessionProvider, endpoint string) (json.RawMessage, error)
	Search(ctx context.Context, session providers.SessionProvider, req entities.SearchRequest) (*entities.SearchEnvelope, error)
	RecommendSpareParts(ctx context.Context, session providers.SessionProvider, req entities.SparePartRequest) (interface{}, error)
	DeviceModels(ctx context.Context, session providers.SessionProvider, brand string) ([]string, error)
	IntelligentRecommendations(ctx context.Context, session providers.SessionProvider, req entities.RecommendationRequest) (*entities.RecommendationEnvelope, error)
	QuickAnalysis(ctx context.Context, session providers.SessionProvider, req entities.QuickAnalysisRequest) (map[string]interface{}, error)
	Login(ctx context.Context, req entities.LoginRequest) (*entities.AuthResult, error)
	Signup(ctx context.Context, req entities.SignupRequest) (*entities.AuthResult, error)
}

// HTTPClient talks JSON to the backend API. Every call is a single attempt.
type HTTPClient struct {
	baseURL    string
	httpClient *http.Client
	metrics    *observability.Metrics
}

// NewClient creates a client for baseURL. A zero timeout leaves deadlines to
// the request context.
func NewClient(baseURL string, timeout time.Duration, metrics *observability.Metrics) *HTTPClient {
	trimmed := strings.TrimRight(baseURL, "/")
	return &HTTPClient{
		baseURL: trimmed,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		metrics: metrics,
	}
}

// Request POSTs payload as JSON to endpoint with the session's auth headers.
//
// A 401 logs the session out and returns apperrors.ErrAuthExpired without
// reading the body. Any other non-2xx yields *apperrors.RequestFailed carrying
// the raw body. A 2xx body that is not JSON yields *apperrors.MalformedPayload.
func (c *HTTPClient) Request(ctx context.Context, session providers.SessionProvider, endpoint string, payload interface{}) (json.RawMessage, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request for %s: %w", endpoint, err)
	}
	return c.do(ctx, session, http.MethodPost, endpoint, bytes.NewReader(body), true)
}

// Fetch is Request for GET endpoints.
func (c *HTTPClient) Fetch(ctx context.Context, session providers.SessionProvider, endpoint string) (json.RawMessage, error) {
	return c.do(ctx, session, http.MethodGet, endpoint, nil, true)
}

// Search calls the product search endpoint.
func (c *HTTPClient) Search(ctx context.Context, session providers.SessionProvider, req entities.SearchRequest) (*entities.SearchEnvelope, error) {
	raw, err := c.Request(ctx, session, EndpointSearch, req)
	if err != nil {
		return nil, err
	}
	out := &entities.SearchEnvelope{}
	if err := decode(raw, out); err != nil {
		// A list-shaped or scalar body still renders as "no results".
		return &entities.SearchEnvelope{}, nil
	}
	return out, nil
}

// RecommendSpareParts returns the decoded recommendation body as-is; the
// renderer decides whether it is list-shaped.
func (c *HTTPClient) RecommendSpareParts(ctx context.Context, session providers.SessionProvider, req entities.SparePartRequest) (interface{}, error) {
	raw, err := c.Request(ctx, session, EndpointSparePartsRecommend, req)
	if err != nil {
		return nil, err
	}
	var out interface{}
	if err := decode(raw, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// DeviceModels lists the known device models for brand.
func (c *HTTPClient) DeviceModels(ctx context.Context, session providers.SessionProvider, brand string) ([]string, error) {
	if strings.TrimSpace(brand) == "" {
		return nil, apperrors.NewValidationError("brand is required")
	}
	raw, err := c.Fetch(ctx, session, EndpointSparePartsModels+url.PathEscape(brand))
	if err != nil {
		return nil, err
	}
	var models []string
	if err := decode(raw, &models); err != nil {
		return nil, &apperrors.MalformedPayload{Reason: "device models: expected a list of strings"}
	}
	return models, nil
}

// IntelligentRecommendations calls the problem-driven recommendation endpoint.
func (c *HTTPClient) IntelligentRecommendations(ctx context.Context, session providers.SessionProvider, req entities.RecommendationRequest) (*entities.RecommendationEnvelope, error) {
	raw, err := c.Request(ctx, session, EndpointIntelligentRecommendations, req)
	if err != nil {
		return nil, err
	}
	out := &entities.RecommendationEnvelope{}
	if err := decode(raw, out); err != nil {
		return &entities.RecommendationEnvelope{}, nil
	}
	return out, nil
}

// QuickAnalysis calls the lightweight problem analysis endpoint.
func (c *HTTPClient) QuickAnalysis(ctx context.Context, session providers.SessionProvider, req entities.QuickAnalysisRequest) (map[string]interface{}, error) {
	raw, err := c.Request(ctx, session, EndpointQuickAnalysis, req)
	if err != nil {
		return nil, err
	}
	out := map[string]interface{}{}
	if err := decode(raw, &out); err != nil {
		return nil, &apperrors.MalformedPayload{Reason: "quick analysis: expected an object"}
	}
	return out, nil
}

// Login authenticates credentials. A 401 is a credential failure here and is
// returned as *apperrors.RequestFailed; no session is touched.
func (c *HTTPClient) Login(ctx context.Context, req entities.LoginRequest) (*entities.AuthResult, error) {
	return c.authenticate(ctx, EndpointLogin, req)
}

// Signup registers a new account.
func (c *HTTPClient) Signup(ctx context.Context, req entities.SignupRequest) (*entities.AuthResult, error) {
	return c.authenticate(ctx, EndpointSignup, req)
}

func (c *HTTPClient) authenticate(ctx context.Context, endpoint string, payload interface{}) (*entities.AuthResult, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request for %s: %w", endpoint, err)
	}
	raw, err := c.do(ctx, nil, http.MethodPost, endpoint, bytes.NewReader(body), false)
	if err != nil {
		return nil, err
	}
	out := &entities.AuthResult{}
	if err := decode(raw, out); err != nil {
		return nil, err
	}
	if out.AccessToken == "" {
		return nil, &apperrors.MalformedPayload{Reason: "auth response has no access_token"}
	}
	return out, nil
}

func (c *HTTPClient) do(ctx context.Context, session providers.SessionProvider, method, endpoint string, body io.Reader, logoutOn401 bool) (json.RawMessage, error) {
	ctx, span := observability.StartSpan(ctx, "backendapi."+method)
	defer span.End()
	span.SetAttributes(
		attribute.String("http.method", method),
		attribute.String("backend.endpoint", endpoint),
	)
	logger := observability.LoggerFromContext(ctx)
	start := time.Now()

	httpReq, err := http.NewRequestWithContext(ctx, method, c.baseURL+endpoint, body)
	if err != nil {
		return nil, fmt.Errorf("failed to build request for %s: %w", endpoint, err)
	}
	for k, v := range authHeaders(ctx, session) {
		httpReq.Header.Set(k, v)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		span.SetStatus(codes.Error, "transport failure")
		observability.RecordError(span, err)
		logger.Warn().Err(err).Str("endpoint", endpoint).Msg("backend call failed")
		return nil, &apperrors.NetworkError{Endpoint: endpoint, Err: err}
	}
	defer resp.Body.Close()

	elapsed := time.Since(start)
	span.SetAttributes(attribute.Int("http.status_code", resp.StatusCode))
	observability.RecordBackendMetric(ctx, c.metrics, endpoint, resp.StatusCode, elapsed)
	logger.Debug().
		Str("method", method).
		Str("endpoint", endpoint).
		Int("status", resp.StatusCode).
		Dur("latency", elapsed).
		Msg("backend call")

	if resp.StatusCode == http.StatusUnauthorized && logoutOn401 {
		span.SetStatus(codes.Error, "unauthorized")
		if session != nil {
			if err := session.Logout(ctx); err != nil {
				logger.Error().Err(err).Msg("failed to clear session after 401")
			}
		}
		logger.Info().Str("endpoint", endpoint).Msg("backend rejected credential, session cleared")
		return nil, apperrors.ErrAuthExpired
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &apperrors.NetworkError{Endpoint: endpoint, Err: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		span.SetStatus(codes.Error, resp.Status)
		rf := &apperrors.RequestFailed{Status: resp.StatusCode, Body: string(data)}
		observability.RecordError(span, rf)
		return nil, rf
	}

	if !json.Valid(data) {
		return nil, &apperrors.MalformedPayload{Reason: fmt.Sprintf("%s returned a non-JSON body", endpoint)}
	}
	return json.RawMessage(data), nil
}

func authHeaders(ctx context.Context, session providers.SessionProvider) map[string]string {
	if session == nil {
		return map[string]string{"Content-Type": "application/json"}
	}
	return session.BuildAuthHeaders(ctx)
}

func decode(raw json.RawMessage, out interface{}) error {
	if err := json.Unmarshal(raw, out); err != nil {
		return &apperrors.MalformedPayload{Reason: err.Error()}
	}
	return nil
}

// ErrorMessage extracts the human message from a backend error body
// ({detail} or {error}); it falls back to the raw text.
func ErrorMessage(rf *apperrors.RequestFailed) string {
	if rf == nil {
		return ""
	}
	var body struct {
		Detail interface{} `json:"detail"`
		Error  string      `json:"error"`
	}
	if err := json.Unmarshal([]byte(rf.Body), &body); err == nil {
		if s, ok := body.Detail.(string); ok && s != "" {
			return s
		}
		if body.Error != "" {
			return body.Error
		}
	}
	return strings.TrimSpace(rf.Body)
}
