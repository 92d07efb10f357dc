package services

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/searchiq/storefront/internal/adapters/session"
	"github.com/searchiq/storefront/internal/domain/entities"
	"github.com/searchiq/storefront/internal/domain/providers"
)

// fakeAPI is a scriptable backendapi.API.
type fakeAPI struct {
	mu sync.Mutex

	searchFn   func(ctx context.Context, req entities.SearchRequest) (*entities.SearchEnvelope, error)
	spareFn    func(ctx context.Context, req entities.SparePartRequest) (interface{}, error)
	modelsFn   func(ctx context.Context, brand string) ([]string, error)
	recFn      func(ctx context.Context, req entities.RecommendationRequest) (*entities.RecommendationEnvelope, error)
	analysisFn func(ctx context.Context, req entities.QuickAnalysisRequest) (map[string]interface{}, error)
	loginFn    func(ctx context.Context, req entities.LoginRequest) (*entities.AuthResult, error)
	signupFn   func(ctx context.Context, req entities.SignupRequest) (*entities.AuthResult, error)

	modelsCalls   int
	analysisCalls []string
	lastHeaders   map[string]string
}

func (f *fakeAPI) record(ctx context.Context, s providers.SessionProvider) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if s != nil {
		f.lastHeaders = s.BuildAuthHeaders(ctx)
	}
}

func (f *fakeAPI) Request(ctx context.Context, s providers.SessionProvider, endpoint string, payload interface{}) (json.RawMessage, error) {
	f.record(ctx, s)
	return json.RawMessage(`{}`), nil
}

func (f *fakeAPI) Fetch(ctx context.Context, s providers.SessionProvider, endpoint string) (json.RawMessage, error) {
	f.record(ctx, s)
	return json.RawMessage(`{}`), nil
}

func (f *fakeAPI) Search(ctx context.Context, s providers.SessionProvider, req entities.SearchRequest) (*entities.SearchEnvelope, error) {
	f.record(ctx, s)
	return f.searchFn(ctx, req)
}

func (f *fakeAPI) RecommendSpareParts(ctx context.Context, s providers.SessionProvider, req entities.SparePartRequest) (interface{}, error) {
	f.record(ctx, s)
	return f.spareFn(ctx, req)
}

func (f *fakeAPI) DeviceModels(ctx context.Context, s providers.SessionProvider, brand string) ([]string, error) {
	f.record(ctx, s)
	f.mu.Lock()
	f.modelsCalls++
	f.mu.Unlock()
	return f.modelsFn(ctx, brand)
}

func (f *fakeAPI) IntelligentRecommendations(ctx context.Context, s providers.SessionProvider, req entities.RecommendationRequest) (*entities.RecommendationEnvelope, error) {
	f.record(ctx, s)
	return f.recFn(ctx, req)
}

func (f *fakeAPI) QuickAnalysis(ctx context.Context, s providers.SessionProvider, req entities.QuickAnalysisRequest) (map[string]interface{}, error) {
	f.record(ctx, s)
	f.mu.Lock()
	f.analysisCalls = append(f.analysisCalls, req.ProblemText)
	f.mu.Unlock()
	return f.analysisFn(ctx, req)
}

func (f *fakeAPI) Login(ctx context.Context, req entities.LoginRequest) (*entities.AuthResult, error) {
	return f.loginFn(ctx, req)
}

func (f *fakeAPI) Signup(ctx context.Context, req entities.SignupRequest) (*entities.AuthResult, error) {
	return f.signupFn(ctx, req)
}

func (f *fakeAPI) analysisTexts() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.analysisCalls...)
}

func newTestSessions(api *fakeAPI) (*AuthSessionService, providers.SessionStore) {
	store := session.NewMemoryStore(0)
	return NewAuthSessionService(store, api), store
}

func loggedIn(ctx context.Context, store providers.SessionStore, auth *AuthSessionService, sid string) *UserSession {
	_ = store.Set(ctx, sid, entities.SessionKeyToken, "tok-"+sid)
	_ = store.Set(ctx, sid, entities.SessionKeyAccessToken, "tok-"+sid)
	return auth.Open(sid)
}
