package handlers_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/searchiq/storefront/internal/adapters/cache"
	"github.com/searchiq/storefront/internal/adapters/events"
	"github.com/searchiq/storefront/internal/adapters/history"
	"github.com/searchiq/storefront/internal/adapters/session"
	"github.com/searchiq/storefront/internal/api/handlers"
	"github.com/searchiq/storefront/internal/api/routes"
	"github.com/searchiq/storefront/internal/application/services"
	"github.com/searchiq/storefront/internal/domain/entities"
	"github.com/searchiq/storefront/internal/domain/providers"
	"github.com/searchiq/storefront/internal/infrastructure/clients/backendapi"
	"github.com/searchiq/storefront/internal/presentation"
	"github.com/searchiq/storefront/pkg/config"
)

const testCookie = "searchiq_sid"

// backendCall is one request seen by the fake backend.
type backendCall struct {
	Method        string
	Path          string
	Authorization string
	Body          map[string]interface{}
}

// testApp is the storefront wired to in-memory stores and a fake backend.
type testApp struct {
	t       *testing.T
	handler http.Handler
	store     providers.SessionStore
	bus       providers.EventBus
	analytics *analyticsRecorder

	mu     sync.Mutex
	routes map[string]http.HandlerFunc
	calls  []backendCall
}

func newTestApp(t *testing.T) *testApp {
	t.Helper()
	app := &testApp{t: t, routes: make(map[string]http.HandlerFunc)}

	backend := httptest.NewServer(http.HandlerFunc(app.serveBackend))
	t.Cleanup(backend.Close)

	cfg := &config.Config{
		Session: config.SessionConfig{CookieName: testCookie, RememberMeHours: 168},
		UI:      config.UIConfig{SearchMaxResults: 10, AnalysisDebounceMs: 20, HistoryMaxEntries: 50},
	}

	app.store = session.NewMemoryStore(time.Hour)
	app.bus = events.NewMemoryEventBus()
	t.Cleanup(func() { _ = app.bus.Close() })

	renderer, err := presentation.NewRenderer(presentation.WithRand(func() float64 { return 0 }))
	require.NoError(t, err)

	api := backendapi.NewClient(backend.URL, 0, nil)
	gate := services.NewLoadingGate()
	app.analytics = &analyticsRecorder{}
	analytics := services.NewSearchAnalyticsService(app.analytics)
	auth := services.NewAuthSessionService(app.store, api)
	notifications := services.NewNotificationService(app.store)
	search := services.NewSearchService(api, history.NewMemoryHistory(cfg.UI.HistoryMaxEntries, time.Hour), analytics, gate, cfg.UI.SearchMaxResults)
	parts := services.NewSparePartsService(api, cache.NewJSONCache(cache.NewMemoryAdapter(), nil), analytics, gate, cfg.UI.SearchMaxResults)
	analysis := services.NewAnalysisService(api, app.bus, services.NewGenerations(), cfg.UI.AnalysisDebounce())
	t.Cleanup(analysis.Close)
	auth.OnLogout(analysis.Forget)

	ui := handlers.NewUISupport(auth, notifications)
	router := routes.NewRouter(routes.Handlers{
		Health:       handlers.NewHealthHandler("storefront-test"),
		Auth:         handlers.NewAuthHandler(ui, auth, renderer, cfg.Session),
		Page:         handlers.NewPageHandler(ui, renderer, cfg.UI.AnalysisDebounceMs),
		Search:       handlers.NewSearchHandler(ui, search, analytics, renderer),
		SpareParts:   handlers.NewSparePartsHandler(ui, parts, renderer),
		Analysis:     handlers.NewAnalysisHandler(ui, analysis),
		Notification: handlers.NewNotificationHandler(ui, renderer),
	}, auth, cfg, nil)
	app.handler = router.SetupRoutes()
	return app
}

// analyticsRecorder keeps search events in memory.
type analyticsRecorder struct {
	mu     sync.Mutex
	events []*entities.SearchEvent
}

func (r *analyticsRecorder) LogEvent(ctx context.Context, event *entities.SearchEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
	return nil
}

func (r *analyticsRecorder) GetZeroResultQueries(ctx context.Context, sessionHash string, limit int) ([]*entities.SearchEvent, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*entities.SearchEvent
	for _, e := range r.events {
		if e.SessionHash == sessionHash && e.ResultCount == 0 && !e.Failed && len(out) < limit {
			out = append(out, e)
		}
	}
	return out, nil
}

func (r *analyticsRecorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.events)
}

func (a *testApp) serveBackend(w http.ResponseWriter, r *http.Request) {
	call := backendCall{Method: r.Method, Path: r.URL.Path, Authorization: r.Header.Get("Authorization")}
	if r.Body != nil {
		_ = json.NewDecoder(r.Body).Decode(&call.Body)
	}

	a.mu.Lock()
	a.calls = append(a.calls, call)
	fn, ok := a.routes[r.URL.Path]
	a.mu.Unlock()

	if !ok {
		http.NotFound(w, r)
		return
	}
	fn(w, r)
}

// on registers the fake backend response for path.
func (a *testApp) on(path string, fn http.HandlerFunc) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.routes[path] = fn
}

// reply answers with a fixed status and body.
func reply(status int, body string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = io.WriteString(w, body)
	}
}

func (a *testApp) backendCalls(path string) []backendCall {
	a.mu.Lock()
	defer a.mu.Unlock()
	var out []backendCall
	for _, c := range a.calls {
		if c.Path == path {
			out = append(out, c)
		}
	}
	return out
}

// signedIn creates a session holding token and returns its id.
func (a *testApp) signedIn(token string) string {
	a.t.Helper()
	sid := uuid.NewString()
	ctx := context.Background()
	require.NoError(a.t, a.store.Set(ctx, sid, entities.SessionKeyToken, token))
	require.NoError(a.t, a.store.Set(ctx, sid, entities.SessionKeyAccessToken, token))
	require.NoError(a.t, a.store.Set(ctx, sid, entities.SessionKeyUser, `{"id":1,"username":"asha","email":"asha@example.com"}`))
	return sid
}

func (a *testApp) do(method, target, sid string, form url.Values) *httptest.ResponseRecorder {
	var body io.Reader
	if form != nil {
		body = strings.NewReader(form.Encode())
	}
	req := httptest.NewRequest(method, target, body)
	if form != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}
	if sid != "" {
		req.AddCookie(&http.Cookie{Name: testCookie, Value: sid})
	}
	rec := httptest.NewRecorder()
	a.handler.ServeHTTP(rec, req)
	return rec
}

func (a *testApp) value(sid, key string) (string, bool) {
	v, ok, err := a.store.Get(context.Background(), sid, key)
	require.NoError(a.t, err)
	return v, ok
}
